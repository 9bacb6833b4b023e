package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"mailtriage/core/domain"
	"mailtriage/internal/stream"
	"mailtriage/pkg/apperr"
	"mailtriage/pkg/response"
)

// EnqueueHandler accepts emails for asynchronous processing by the
// stream worker.
type EnqueueHandler struct {
	producer *stream.Producer
	log      zerolog.Logger
}

func NewEnqueueHandler(producer *stream.Producer, log zerolog.Logger) *EnqueueHandler {
	return &EnqueueHandler{producer: producer, log: log}
}

// Enqueue handles POST /api/emails/enqueue.
func (h *EnqueueHandler) Enqueue(c *fiber.Ctx) error {
	var email domain.Email
	if err := c.BodyParser(&email); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	messageID, err := h.producer.PublishEmail(c.Context(), &email)
	if err != nil {
		return err
	}
	return response.Created(c, fiber.Map{
		"message_id": messageID,
		"status":     "queued",
	})
}
