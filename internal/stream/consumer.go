package stream

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"mailtriage/core/domain"
)

type emailProcessor interface {
	Process(ctx context.Context, email *domain.Email) (*domain.ProcessingResult, error)
}

// Consumer drains the ingest stream through the pipeline.
type Consumer struct {
	stream    *RedisStream
	processor emailProcessor
	name      string
	log       zerolog.Logger
}

func NewConsumer(stream *RedisStream, processor emailProcessor, name string, log zerolog.Logger) *Consumer {
	return &Consumer{
		stream:    stream,
		processor: processor,
		name:      name,
		log:       log.With().Str("component", "consumer").Logger(),
	}
}

// Start blocks until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.stream.CreateGroup(ctx, StreamEmailIngest); err != nil {
		return err
	}

	c.log.Info().Str("consumer", c.name).Msg("stream consumer started")
	c.stream.Consume(ctx, StreamEmailIngest, c.name, c.handle)
	return nil
}

// handle decodes and processes one message. Malformed payloads are
// acknowledged rather than redelivered forever; processing failures are
// left in the group's pending list.
func (c *Consumer) handle(ctx context.Context, id string, data []byte) error {
	var email domain.Email
	if err := json.Unmarshal(data, &email); err != nil {
		c.log.Error().Err(err).Str("message_id", id).Msg("malformed email payload dropped")
		return nil
	}

	result, err := c.processor.Process(ctx, &email)
	if err != nil {
		return err
	}

	c.log.Debug().
		Str("message_id", id).
		Str("email_id", result.EmailID).
		Str("category", string(result.Classification.Category)).
		Msg("stream email processed")
	return nil
}
