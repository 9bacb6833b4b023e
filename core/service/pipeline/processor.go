// Package pipeline orchestrates the full processing of one email:
// validation, classification, response generation, and indexing.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mailtriage/core/agent/rag"
	"mailtriage/core/domain"
)

type Classifier interface {
	Classify(ctx context.Context, email *domain.Email) (domain.Classification, error)
}

type Responder interface {
	Generate(ctx context.Context, email *domain.Email, classification *domain.Classification) (domain.Response, error)
}

type Indexer interface {
	Insert(ctx context.Context, req *rag.InsertRequest) error
}

// classificationCache is satisfied by cache.RedisCache.
type ClassificationCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// resultStore is satisfied by persistence.ResultAdapter.
type ResultStore interface {
	Save(ctx context.Context, result *domain.ProcessingResult) error
}

type ProcessorConfig struct {
	// CacheTTL bounds how long a classification is reused for
	// identical email content. Zero disables caching even when a
	// cache is wired.
	CacheTTL time.Duration
}

// Processor runs the stages in order and assembles the terminal result.
// Stages before indexing are fail-fast; an indexing failure is logged
// and the already-assembled result is still returned.
type Processor struct {
	classifier Classifier
	responder  Responder
	indexer    Indexer
	cache      ClassificationCache
	results    ResultStore
	cfg        ProcessorConfig
	log        zerolog.Logger
}

func NewProcessor(c Classifier, r Responder, idx Indexer, cache ClassificationCache, cfg ProcessorConfig, log zerolog.Logger) *Processor {
	return &Processor{
		classifier: c,
		responder:  r,
		indexer:    idx,
		cache:      cache,
		cfg:        cfg,
		log:        log.With().Str("component", "pipeline").Logger(),
	}
}

// WithResultStore persists each completed result. Persistence failures
// are logged and never fail the run.
func (p *Processor) WithResultStore(store ResultStore) *Processor {
	p.results = store
	return p
}

// Process validates, classifies, drafts a reply for, and indexes one
// email. The returned result carries a generated email id.
func (p *Processor) Process(ctx context.Context, email *domain.Email) (*domain.ProcessingResult, error) {
	start := time.Now()

	if err := email.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	emailID := uuid.New().String()

	classification, cached, err := p.classify(ctx, email)
	if err != nil {
		return nil, err
	}

	response, err := p.responder.Generate(ctx, email, &classification)
	if err != nil {
		return nil, err
	}

	if p.indexer != nil {
		req := &rag.InsertRequest{
			ID:        emailID,
			Subject:   email.Subject,
			Body:      email.Body,
			Category:  classification.Category,
			Timestamp: time.Now().UTC(),
		}
		if err := p.indexer.Insert(ctx, req); err != nil {
			// The classification and response are already complete;
			// a missing index entry only degrades future searches.
			p.log.Warn().Err(err).Str("email_id", emailID).Msg("indexing failed")
		}
	}

	elapsed := time.Since(start).Seconds()
	result := &domain.ProcessingResult{
		EmailID:        emailID,
		Classification: classification,
		Response:       response,
		ProcessingTime: elapsed,
		Timestamp:      time.Now().UTC(),
	}

	if p.results != nil {
		if err := p.results.Save(ctx, result); err != nil {
			p.log.Warn().Err(err).Str("email_id", emailID).Msg("result persistence failed")
		}
	}

	p.log.Info().
		Str("email_id", emailID).
		Str("category", string(classification.Category)).
		Str("priority", string(classification.Priority)).
		Bool("classification_cached", cached).
		Float64("processing_time", elapsed).
		Msg("email processed")

	return result, nil
}

// classify consults the cache first; identical content from the same
// sender reuses the prior classification. Cache failures are logged and
// treated as misses.
func (p *Processor) classify(ctx context.Context, email *domain.Email) (domain.Classification, bool, error) {
	key := ""
	if p.cache != nil && p.cfg.CacheTTL > 0 {
		key = classificationKey(email)
		var cached domain.Classification
		hit, err := p.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			p.log.Debug().Err(err).Msg("classification cache read failed")
		} else if hit {
			return cached, true, nil
		}
	}

	classification, err := p.classifier.Classify(ctx, email)
	if err != nil {
		return domain.Classification{}, false, err
	}

	// Fallback classifications are not cached; the next attempt may
	// reach the completion service.
	if key != "" && !classification.Fallback {
		if err := p.cache.SetJSON(ctx, key, classification, p.cfg.CacheTTL); err != nil {
			p.log.Debug().Err(err).Msg("classification cache write failed")
		}
	}
	return classification, false, nil
}

func classificationKey(email *domain.Email) string {
	sum := sha256.Sum256([]byte(email.Sender + "\x00" + email.Content()))
	return "classify:" + hex.EncodeToString(sum[:])
}
