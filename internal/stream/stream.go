// Package stream moves emails through Redis Streams for asynchronous
// processing.
package stream

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StreamEmailIngest carries emails submitted for asynchronous
// processing.
const StreamEmailIngest = "emails:ingest"

// DefaultGroup is the consumer group shared by all worker instances.
const DefaultGroup = "mailtriage"

type RedisStream struct {
	client *redis.Client
	group  string
	log    zerolog.Logger
}

func NewRedisStream(client *redis.Client, group string, log zerolog.Logger) *RedisStream {
	if group == "" {
		group = DefaultGroup
	}
	return &RedisStream{client: client, group: group, log: log}
}

func (s *RedisStream) CreateGroup(ctx context.Context, stream string) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, s.group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

func (s *RedisStream) Publish(ctx context.Context, stream string, data any) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"data": jsonData},
	}).Result()
}

// Consume reads and acknowledges messages until the context is
// cancelled. A handler error leaves the message unacknowledged in the
// group's pending list; another consumer must XCLAIM it to retry.
// TODO: add an XAUTOCLAIM sweep so stalled pending messages are
// reclaimed without operator intervention.
func (s *RedisStream) Consume(ctx context.Context, stream, consumer string, handler func(ctx context.Context, id string, data []byte) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Str("stream", stream).Msg("stream read failed")
			}
			continue
		}

		for _, result := range streams {
			for _, msg := range result.Messages {
				data, ok := msg.Values["data"].(string)
				if !ok {
					s.client.XAck(ctx, result.Stream, s.group, msg.ID)
					continue
				}

				if err := handler(ctx, msg.ID, []byte(data)); err != nil {
					s.log.Error().Err(err).Str("message_id", msg.ID).Msg("message handling failed")
					continue
				}
				s.client.XAck(ctx, result.Stream, s.group, msg.ID)
			}
		}
	}
}

func (s *RedisStream) Pending(ctx context.Context, stream string) (int64, error) {
	info, err := s.client.XPending(ctx, stream, s.group).Result()
	if err != nil {
		return 0, err
	}
	return info.Count, nil
}
