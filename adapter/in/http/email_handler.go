// Package http exposes the processing pipeline over a Fiber API.
package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"mailtriage/adapter/out/persistence"
	"mailtriage/core/domain"
	"mailtriage/core/service/pipeline"
	"mailtriage/pkg/apperr"
	"mailtriage/pkg/response"
)

// MaxBatchSize bounds one batch request.
const MaxBatchSize = 100

type EmailHandler struct {
	processor *pipeline.Processor
	batch     *pipeline.BatchProcessor
	results   *persistence.ResultAdapter
	log       zerolog.Logger
}

func NewEmailHandler(processor *pipeline.Processor, batch *pipeline.BatchProcessor, results *persistence.ResultAdapter, log zerolog.Logger) *EmailHandler {
	return &EmailHandler{
		processor: processor,
		batch:     batch,
		results:   results,
		log:       log,
	}
}

// ProcessEmail handles POST /api/emails/process.
func (h *EmailHandler) ProcessEmail(c *fiber.Ctx) error {
	var email domain.Email
	if err := c.BodyParser(&email); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	result, err := h.processor.Process(c.Context(), &email)
	if err != nil {
		return err
	}
	return response.OK(c, result)
}

type batchRequest struct {
	Emails []domain.Email `json:"emails"`
}

// ProcessBatch handles POST /api/emails/batch.
func (h *EmailHandler) ProcessBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if len(req.Emails) == 0 {
		return apperr.MissingField("emails")
	}
	if len(req.Emails) > MaxBatchSize {
		return apperr.InputValidation("emails", "batch size exceeds "+strconv.Itoa(MaxBatchSize))
	}

	emails := make([]*domain.Email, len(req.Emails))
	for i := range req.Emails {
		emails[i] = &req.Emails[i]
	}

	result, err := h.batch.ProcessBatch(c.Context(), emails)
	if err != nil {
		return err
	}
	return response.OK(c, result)
}

// GetResult handles GET /api/emails/:id.
func (h *EmailHandler) GetResult(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return apperr.MissingField("id")
	}

	result, err := h.results.GetByID(c.Context(), id)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeDatabaseError, "failed to load result", fiber.StatusInternalServerError)
	}
	if result == nil {
		return apperr.NotFound("email")
	}
	return response.OK(c, result)
}

// ListResults handles GET /api/emails.
func (h *EmailHandler) ListResults(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		return apperr.InputValidation("limit", "must be between 1 and 100")
	}

	results, err := h.results.ListRecent(c.Context(), limit)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeDatabaseError, "failed to list results", fiber.StatusInternalServerError)
	}
	return response.OK(c, fiber.Map{
		"results": results,
		"count":   len(results),
	})
}

// Stats handles GET /api/stats.
func (h *EmailHandler) Stats(c *fiber.Ctx) error {
	counts, err := h.results.CountByCategory(c.Context())
	if err != nil {
		return apperr.Wrap(err, apperr.CodeDatabaseError, "failed to load stats", fiber.StatusInternalServerError)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return response.OK(c, fiber.Map{
		"total":       total,
		"by_category": counts,
	})
}
