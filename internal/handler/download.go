package handler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/neuroaroma/api/internal/model"
	"github.com/neuroaroma/api/internal/store"
	"github.com/neuroaroma/api/pkg/response"
)

type DownloadHandler struct {
	store     *store.Store
	outputDir string
}

func NewDownloadHandler(s *store.Store, outputDir string) *DownloadHandler {
	return &DownloadHandler{
		store:     s,
		outputDir: outputDir,
	}
}

// Download handles GET /api/download/:jobId/:type
func (h *DownloadHandler) Download(c *fiber.Ctx) error {
	jobID, err := strconv.ParseInt(c.Params("jobId"), 10, 64)
	if err != nil {
		return response.ValidationError(c, "Invalid job id")
	}

	kind := c.Params("type")
	if kind != "audio" && kind != "pdf" {
		return response.ValidationError(c, "Invalid artifact type. Supported: audio, pdf")
	}

	job, ok := h.store.Get(jobID)
	if !ok {
		return response.NotFound(c, "Job not found")
	}
	if job.Status != model.JobStatusCompleted {
		return response.ValidationError(c, "Job is not completed yet")
	}

	var fileName *string
	var contentType string
	switch kind {
	case "audio":
		fileName = job.AudioFileName
		contentType = "audio/mpeg"
	case "pdf":
		fileName = job.PDFFileName
		contentType = "application/pdf"
	}
	if fileName == nil {
		return response.NotFound(c, "Artifact not available")
	}

	// The record and the filesystem can drift; a missing file is a 404,
	// never a crash.
	path := filepath.Join(h.outputDir, job.CompanyName, *fileName)
	f, err := os.Open(path)
	if err != nil {
		return response.NotFound(c, "Artifact file not found")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return response.NotFound(c, "Artifact file not found")
	}
	size := info.Size()

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, *fileName))
	c.Set(fiber.HeaderAcceptRanges, "bytes")

	start, end, ok := parseByteRange(c.Get(fiber.HeaderRange), size)
	if !ok {
		c.Set(fiber.HeaderContentLength, strconv.FormatInt(size, 10))
		return c.SendStream(f, int(size))
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		f.Close()
		return response.ServiceError(c, "Failed to read artifact")
	}

	length := end - start + 1
	c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	c.Set(fiber.HeaderContentLength, strconv.FormatInt(length, 10))
	c.Status(fiber.StatusPartialContent)
	return c.SendStream(&rangeReader{Reader: io.LimitReader(f, length), file: f}, int(length))
}

// parseByteRange parses a "bytes=start-end" header against the file
// size. An absent, malformed or unsatisfiable range reports ok=false and
// the caller serves the whole file.
func parseByteRange(header string, size int64) (start, end int64, ok bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) || size == 0 {
		return 0, 0, false
	}

	parts := strings.SplitN(strings.TrimPrefix(header, prefix), "-", 2)
	if len(parts) != 2 || parts[0] == "" {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}

	end = size - 1
	if parts[1] != "" {
		end, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}

	return start, end, true
}

// rangeReader keeps the underlying file closable once fasthttp drains
// the limited stream.
type rangeReader struct {
	io.Reader
	file *os.File
}

func (r *rangeReader) Close() error {
	return r.file.Close()
}
