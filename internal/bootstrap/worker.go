package bootstrap

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"mailtriage/config"
	"mailtriage/internal/stream"
	"mailtriage/pkg/apperr"
)

// consumerRunner is the blocking consume loop the worker drives.
type consumerRunner interface {
	Start(ctx context.Context) error
}

// Worker consumes the email ingest stream in the background.
type Worker struct {
	consumer consumerRunner
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
	log      zerolog.Logger
}

// NewWorker builds the stream-consuming worker. Redis is required; the
// API mode runs without it but the worker has no job source then.
func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}
	if deps.Redis == nil {
		cleanup()
		return nil, nil, apperr.ConfigError("REDIS_URL is required in worker mode")
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}

	redisStream := stream.NewRedisStream(deps.Redis, stream.DefaultGroup, deps.Log)
	consumer := stream.NewConsumer(redisStream, deps.Processor, hostname, deps.Log)

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		consumer: consumer,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		log:      deps.Log,
	}, cleanup, nil
}

// Start runs the consumer until Stop is called. It returns immediately
// when Stop raced ahead of it.
func (w *Worker) Start() error {
	defer close(w.done)
	if err := w.consumer.Start(w.ctx); err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	return nil
}

// Stop cancels the consumer and waits for Start to return.
func (w *Worker) Stop() {
	w.once.Do(func() {
		w.cancel()
		<-w.done
		w.log.Info().Msg("worker stopped")
	})
}
