package pipeline

import (
	"context"
	"time"

	"github.com/go-pkgz/pool"
	"github.com/rs/zerolog"

	"mailtriage/core/domain"
)

// BatchItem is the per-email outcome of a batch run. Exactly one of
// Result and Error is set.
type BatchItem struct {
	Index  int                      `json:"index"`
	Result *domain.ProcessingResult `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

type BatchResult struct {
	Total          int         `json:"total"`
	Succeeded      int         `json:"succeeded"`
	Failed         int         `json:"failed"`
	Items          []BatchItem `json:"items"`
	ProcessingTime float64     `json:"processing_time"`
}

// BatchProcessor fans a batch of emails out over a bounded worker pool.
// One failing email never aborts the rest of the batch.
type BatchProcessor struct {
	processor *Processor
	workers   int
	log       zerolog.Logger
}

func NewBatchProcessor(processor *Processor, workers int, log zerolog.Logger) *BatchProcessor {
	if workers <= 0 {
		workers = 4
	}
	return &BatchProcessor{
		processor: processor,
		workers:   workers,
		log:       log.With().Str("component", "batch").Logger(),
	}
}

// ProcessBatch processes all emails concurrently and reports per-email
// outcomes in input order.
func (b *BatchProcessor) ProcessBatch(ctx context.Context, emails []*domain.Email) (*BatchResult, error) {
	start := time.Now()
	if len(emails) == 0 {
		return &BatchResult{Items: []BatchItem{}}, nil
	}
	items := make([]BatchItem, len(emails))

	// Each worker writes only its own index, so no lock is needed.
	worker := pool.WorkerFunc[int](func(ctx context.Context, i int) error {
		result, err := b.processor.Process(ctx, emails[i])
		if err != nil {
			items[i] = BatchItem{Index: i, Error: err.Error()}
			return err
		}
		items[i] = BatchItem{Index: i, Result: result}
		return nil
	})

	workers := b.workers
	if len(emails) < workers {
		workers = len(emails)
	}

	p := pool.New[int](workers, worker).WithContinueOnError()
	if err := p.Go(ctx); err != nil {
		return nil, err
	}
	for i := range emails {
		p.Submit(i)
	}
	if err := p.Close(ctx); err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result := &BatchResult{
		Total:          len(emails),
		Items:          items,
		ProcessingTime: time.Since(start).Seconds(),
	}
	for _, item := range items {
		if item.Error == "" && item.Result != nil {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	b.log.Info().
		Int("total", result.Total).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Float64("processing_time", result.ProcessingTime).
		Msg("batch processed")
	return result, nil
}
