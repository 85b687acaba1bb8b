package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/neuroaroma/api/internal/store"
	"github.com/neuroaroma/api/pkg/response"
)

const defaultListLimit = 10

type JobsHandler struct {
	store     *store.Store
	validator *validator.Validate
}

func NewJobsHandler(s *store.Store, v *validator.Validate) *JobsHandler {
	return &JobsHandler{
		store:     s,
		validator: v,
	}
}

type listJobsQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// Get handles GET /api/jobs/:id
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.ValidationError(c, "Invalid job id")
	}

	job, ok := h.store.Get(id)
	if !ok {
		return response.NotFound(c, "Job not found")
	}

	return response.OK(c, job)
}

// List handles GET /api/jobs?limit=N
func (h *JobsHandler) List(c *fiber.Ctx) error {
	var q listJobsQuery
	if err := c.QueryParser(&q); err != nil {
		return response.ValidationError(c, "Invalid query parameters")
	}
	if err := h.validator.Struct(&q); err != nil {
		return response.ValidationError(c, "limit must be between 1 and 100")
	}
	if q.Limit == 0 {
		q.Limit = defaultListLimit
	}

	return response.OK(c, h.store.ListRecent(q.Limit))
}

// Delete handles DELETE /api/jobs/:id
func (h *JobsHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.ValidationError(c, "Invalid job id")
	}

	if !h.store.Delete(id) {
		return response.NotFound(c, "Job not found")
	}

	return response.NoContent(c)
}
