package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/neuroaroma/api/internal/model"
	"github.com/neuroaroma/api/internal/store"
	"github.com/neuroaroma/api/internal/worker"
)

// companyRe extracts the company segment from the expected upload
// naming pattern.
var companyRe = regexp.MustCompile(`(?i)^Frequencias_Aroma_(.+)\.(xlsx|xls)$`)

// unsafeChars strips anything that must not reach a directory name.
// The company name is client-controlled and becomes a path segment.
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// CompanyNameUnknown is the fallback when the upload name does not match
// the expected pattern. A mismatch is not a rejection.
const CompanyNameUnknown = "Unknown"

// UploadService stages uploaded spreadsheets and kicks off processing
type UploadService struct {
	store      *store.Store
	processor  *worker.Processor
	uploadsDir string
}

func NewUploadService(s *store.Store, p *worker.Processor, uploadsDir string) *UploadService {
	return &UploadService{
		store:      s,
		processor:  p,
		uploadsDir: uploadsDir,
	}
}

// CompanyNameFrom derives the output namespace from the client-supplied
// file name, sanitized for use as a directory segment.
func CompanyNameFrom(originalName string) string {
	m := companyRe.FindStringSubmatch(filepath.Base(originalName))
	if m == nil {
		return CompanyNameUnknown
	}
	name := unsafeChars.ReplaceAllString(m[1], "")
	if name == "" {
		return CompanyNameUnknown
	}
	return name
}

// Accept persists the upload to the staging directory, creates a pending
// job and starts processing in the background. It returns as soon as the
// job record exists; the processor owns the staged file from here on.
func (s *UploadService) Accept(file io.Reader, originalName string) (*model.Job, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	stagedName := uuid.New().String() + ext
	stagedPath := filepath.Join(s.uploadsDir, stagedName)

	dst, err := os.Create(stagedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(stagedPath)
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(stagedPath)
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}

	job := s.store.Create(stagedName, originalName, CompanyNameFrom(originalName))

	go s.processor.Process(job.ID, stagedPath, originalName)

	return job, nil
}
