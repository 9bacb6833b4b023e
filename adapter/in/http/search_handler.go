package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"mailtriage/core/agent/rag"
	"mailtriage/core/domain"
	"mailtriage/pkg/apperr"
	"mailtriage/pkg/response"
)

type SearchHandler struct {
	index *rag.Index
	log   zerolog.Logger
}

func NewSearchHandler(index *rag.Index, log zerolog.Logger) *SearchHandler {
	return &SearchHandler{index: index, log: log}
}

// Search handles POST /api/search.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var query domain.SearchQuery
	if err := c.BodyParser(&query); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	result, err := h.index.Search(c.Context(), &query)
	if err != nil {
		return err
	}
	return response.OK(c, result)
}

// FindSimilar handles GET /api/emails/:id/similar.
func (h *SearchHandler) FindSimilar(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return apperr.MissingField("id")
	}

	limit := c.QueryInt("limit", 5)
	if limit < 1 || limit > 20 {
		return apperr.InputValidation("limit", "must be between 1 and 20")
	}

	results, err := h.index.FindSimilar(c.Context(), id, limit)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{
		"email_id": id,
		"similar":  results,
		"count":    len(results),
	})
}

// RemoveFromIndex handles DELETE /api/emails/:id/index.
func (h *SearchHandler) RemoveFromIndex(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return apperr.MissingField("id")
	}

	if err := h.index.Remove(c.Context(), id); err != nil {
		return err
	}
	return response.OK(c, fiber.Map{
		"email_id": id,
		"status":   "removed",
	})
}
