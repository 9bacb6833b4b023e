package stream

import (
	"context"

	"mailtriage/core/domain"
)

// Producer enqueues emails for asynchronous processing.
type Producer struct {
	stream *RedisStream
}

func NewProducer(stream *RedisStream) *Producer {
	return &Producer{stream: stream}
}

// PublishEmail validates and enqueues one email, returning the stream
// message id.
func (p *Producer) PublishEmail(ctx context.Context, email *domain.Email) (string, error) {
	if err := email.Validate(); err != nil {
		return "", err
	}
	return p.stream.Publish(ctx, StreamEmailIngest, email)
}
