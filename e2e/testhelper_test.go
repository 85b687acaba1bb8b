package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/xuri/excelize/v2"

	"github.com/neuroaroma/api/internal/config"
	"github.com/neuroaroma/api/internal/handler"
	"github.com/neuroaroma/api/internal/model"
	"github.com/neuroaroma/api/internal/service"
	"github.com/neuroaroma/api/internal/store"
	ws "github.com/neuroaroma/api/internal/websocket"
	"github.com/neuroaroma/api/internal/worker"
	"github.com/neuroaroma/api/pkg/response"
)

// testApp holds all components needed for testing
type testApp struct {
	app       *fiber.App
	store     *store.Store
	outputDir string
}

type appOptions struct {
	workerScript string
	maxSizeMB    int
}

// setupApp creates a Fiber app wired like main.go, minus the Redis rate
// limiter so tests run without infrastructure. The external worker is a
// shell script under the test's control.
func setupApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	uploadsDir := t.TempDir()
	outputDir := t.TempDir()

	if opts.maxSizeMB == 0 {
		opts.maxSizeMB = 50
	}
	if opts.workerScript == "" {
		opts.workerScript = writeWorkerScript(t, successWorkerScript)
	}

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	jobStore := store.New()
	processor := worker.New(jobStore, hub, config.WorkerConfig{
		PythonBin: "/bin/sh",
		Script:    opts.workerScript,
	})
	uploadService := service.NewUploadService(jobStore, processor, uploadsDir)

	uploadHandler := handler.NewUploadHandler(uploadService, opts.maxSizeMB)
	jobsHandler := handler.NewJobsHandler(jobStore, validate)
	downloadHandler := handler.NewDownloadHandler(jobStore, outputDir)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return response.Error(c, code, message)
		},
		BodyLimit: 64 * 1024 * 1024,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Post("/upload", uploadHandler.Upload)
	api.Get("/jobs", jobsHandler.List)
	api.Get("/jobs/:id", jobsHandler.Get)
	api.Delete("/jobs/:id", jobsHandler.Delete)
	api.Get("/download/:jobId/:type", downloadHandler.Download)

	return &testApp{
		app:       app,
		store:     jobStore,
		outputDir: outputDir,
	}
}

// successWorkerScript mimics the Python worker's happy path
const successWorkerScript = `#!/bin/sh
echo "Progress: 2/5 frequencies processed"
echo "Progress: 5/5 frequencies processed"
echo '{"frequency_count":5,"audio_file":"a.mp3","pdf_file":"a.pdf","frequency_min":18.0,"frequency_max":22.0,"aroma_id":"abc123"}'
`

func writeWorkerScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("failed to write worker script: %v", err)
	}
	return path
}

// buildXLSX produces a real spreadsheet with a THz column
func buildXLSX(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetCellValue("Sheet1", "A1", "THz"); err != nil {
		t.Fatalf("failed to build spreadsheet: %v", err)
	}
	for i, v := range []float64{18.1, 19.2, 20.3, 21.4, 22.0} {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetCellValue("Sheet1", cell, v); err != nil {
			t.Fatalf("failed to build spreadsheet: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize spreadsheet: %v", err)
	}
	return buf.Bytes()
}

// createUploadRequest builds a multipart/form-data upload request
func createUploadRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	partHeader.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, "/api/upload", &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d (body: %s)", want, resp.StatusCode, body)
	}
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON (%s): %v", body, err)
	}
	return result
}

func parseJSONList(t *testing.T, resp *http.Response) []map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var result []map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON list (%s): %v", body, err)
	}
	return result
}

// pollJobStatus queries the job until it reaches want or the deadline
// passes, returning the final record.
func pollJobStatus(t *testing.T, ta *testApp, jobID int64, want string, timeout time.Duration) map[string]interface{} {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/api/jobs/%d", jobID), nil)
		resp, err := ta.app.Test(req, -1)
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		assertStatus(t, resp, http.StatusOK)
		job := parseJSON(t, resp)
		if job["status"] == want {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %d never reached status %q, last: %v", jobID, want, job["status"])
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// seedCompletedJob plants a completed job and its artifact files
func seedCompletedJob(t *testing.T, ta *testApp, company string) *model.Job {
	t.Helper()

	job := ta.store.Create("staged.xlsx", "Frequencias_Aroma_"+company+".xlsx", company)

	processing := model.JobStatusProcessing
	ta.store.Update(job.ID, store.JobUpdate{Status: &processing})

	completed := model.JobStatusCompleted
	count := 5
	min, max := 18.0, 22.0
	audio, pdf := "a.mp3", "a.pdf"
	updated, ok := ta.store.Update(job.ID, store.JobUpdate{
		Status:         &completed,
		FrequencyCount: &count,
		FrequencyMin:   &min,
		FrequencyMax:   &max,
		AudioFileName:  &audio,
		PDFFileName:    &pdf,
	})
	if !ok {
		t.Fatal("failed to seed completed job")
	}
	return updated
}

// writeArtifact drops a file under output/<company>/ and returns its size
func writeArtifact(t *testing.T, ta *testApp, company, name string, size int) {
	t.Helper()

	dir := filepath.Join(ta.outputDir, company)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create artifact dir: %v", err)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}
}
