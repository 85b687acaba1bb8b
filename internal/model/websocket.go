package model

// WebSocket message types
const (
	WSMessageTypeSubscribe    = "subscribe"
	WSMessageTypeAudioPreview = "audio_preview"
	WSMessageTypeComplete     = "complete"
	WSMessageTypeError        = "error"
)

// WSClientMessage is what an observer sends over the socket
type WSClientMessage struct {
	Type  string `json:"type"`
	JobID int64  `json:"jobId"`
}

// WSProgressMessage is pushed while the worker reports progress.
// CurrentFrequency is carried for protocol compatibility but the worker
// does not emit per-frequency values yet, so it is always zero.
type WSProgressMessage struct {
	Type              string  `json:"type"`
	JobID             int64   `json:"jobId"`
	FrequencyProgress int     `json:"frequencyProgress"`
	TotalFrequencies  int     `json:"totalFrequencies"`
	CurrentFrequency  float64 `json:"currentFrequency"`
}

// WSCompleteMessage is pushed when a job finishes successfully
type WSCompleteMessage struct {
	Type  string `json:"type"`
	JobID int64  `json:"jobId"`
	Job   *Job   `json:"job"`
}

// WSErrorMessage is pushed when a job fails
type WSErrorMessage struct {
	Type    string `json:"type"`
	JobID   int64  `json:"jobId"`
	Message string `json:"message"`
}
