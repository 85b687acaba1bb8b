package handler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/neuroaroma/api/internal/model"
	"github.com/neuroaroma/api/internal/service"
	"github.com/neuroaroma/api/pkg/response"
)

type UploadHandler struct {
	service     *service.UploadService
	maxFileSize int64
}

func NewUploadHandler(svc *service.UploadService, maxSizeMB int) *UploadHandler {
	return &UploadHandler{
		service:     svc,
		maxFileSize: int64(maxSizeMB) * 1024 * 1024,
	}
}

// validContentTypes are the two recognized spreadsheet formats
var validContentTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel":                                          true,
}

var validExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

// Upload handles POST /api/upload
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required")
	}

	if file.Size > h.maxFileSize {
		return response.ValidationError(c,
			fmt.Sprintf("File size exceeds %dMB limit", h.maxFileSize/(1024*1024)))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType := file.Header.Get("Content-Type")
	if !validExtensions[ext] && !validContentTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: XLSX, XLS")
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open uploaded file")
	}
	defer f.Close()

	job, err := h.service.Accept(f, file.Filename)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.UploadResponse{JobID: job.ID, Job: job})
}
