package service

import "testing"

func TestCompanyNameFrom(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{"standard pattern", "Frequencias_Aroma_Acme.xlsx", "Acme"},
		{"xls extension", "Frequencias_Aroma_Globex.xls", "Globex"},
		{"case insensitive", "frequencias_aroma_initech.XLSX", "initech"},
		{"no pattern match", "report.xlsx", CompanyNameUnknown},
		{"missing company segment", "Frequencias_Aroma_.xlsx", CompanyNameUnknown},
		{"wrong extension", "Frequencias_Aroma_Acme.csv", CompanyNameUnknown},
		{"path traversal stripped", "Frequencias_Aroma_..%2F..%2Fetc.xlsx", "2F2Fetc"},
		{"separator stripped", "Frequencias_Aroma_Ac me!.xlsx", "Acme"},
		{"only unsafe chars", "Frequencias_Aroma_///.xlsx", CompanyNameUnknown},
		{"underscores kept", "Frequencias_Aroma_Acme_Corp.xlsx", "Acme_Corp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompanyNameFrom(tt.fileName); got != tt.want {
				t.Errorf("CompanyNameFrom(%q) = %q, want %q", tt.fileName, got, tt.want)
			}
		})
	}
}
