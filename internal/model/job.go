package model

import "time"

// JobStatus represents the lifecycle state of a processing job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job represents one upload-to-artifact processing request
type Job struct {
	ID               int64      `json:"id"`
	SourceFileName   string     `json:"-"` // staged file on disk, internal
	OriginalFileName string     `json:"originalFileName"`
	Status           JobStatus  `json:"status"`
	CompanyName      string     `json:"companyName"`
	FrequencyCount   *int       `json:"frequencyCount"`
	FrequencyMin     *float64   `json:"frequencyMin"`
	FrequencyMax     *float64   `json:"frequencyMax"`
	AudioFileName    *string    `json:"audioFileName"`
	PDFFileName      *string    `json:"pdfFileName"`
	ErrorMessage     *string    `json:"errorMessage"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt"`
}

// UploadResponse is returned by POST /api/upload
type UploadResponse struct {
	JobID int64 `json:"jobId"`
	Job   *Job  `json:"job"`
}

// WorkerResult is the structured record the external worker prints to
// stdout on success.
type WorkerResult struct {
	FrequencyCount int     `json:"frequency_count"`
	AudioFile      string  `json:"audio_file"`
	PDFFile        string  `json:"pdf_file"`
	FrequencyMin   float64 `json:"frequency_min"`
	FrequencyMax   float64 `json:"frequency_max"`
	AromaID        string  `json:"aroma_id"`
}
