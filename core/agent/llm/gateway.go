package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"mailtriage/pkg/apperr"
)

// Truncation limits applied to prompt material before a completion call.
const (
	MaxPromptSubjectLen = 200
	MaxPromptBodyLen    = 2000
)

// Truncate cuts s to maxLen characters and appends an ellipsis marker.
// Cuts fall on rune boundaries so multibyte text stays valid.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	count := 0
	for i := range s {
		if count == maxLen {
			return s[:i] + "..."
		}
		count++
	}
	return s
}

// TruncateSubject bounds a subject line for prompt embedding.
func TruncateSubject(s string) string { return Truncate(s, MaxPromptSubjectLen) }

// TruncateBody bounds a body for prompt embedding.
func TruncateBody(s string) string { return Truncate(s, MaxPromptBodyLen) }

// completer is the single-request completion dependency.
type completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// GatewayConfig controls the retry policy.
type GatewayConfig struct {
	MaxRetries int           // total attempts (default 3)
	RetryDelay time.Duration // fixed delay between attempts (default 1s)
}

// Gateway wraps the completion client with validation, a bounded retry
// loop, and a circuit breaker. After exhausting retries it fails with
// apperr.CodeCompletionUnavailable; callers decide whether to substitute
// a default value or propagate.
type Gateway struct {
	client     completer
	maxRetries int
	retryDelay time.Duration
	breaker    *gobreaker.CircuitBreaker
	log        zerolog.Logger
}

func NewGateway(client completer, cfg GatewayConfig, log zerolog.Logger) *Gateway {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "completion",
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Gateway{
		client:     client,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		breaker:    breaker,
		log:        log,
	}
}

// Complete runs one completion call with bounded retry. The prompt must be
// non-empty; callers are responsible for token-budget truncation
// (TruncateSubject/TruncateBody) before calling.
func (g *Gateway) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", apperr.MissingField("prompt")
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.retryDelay):
			}
		}

		result, err := g.breaker.Execute(func() (any, error) {
			return g.client.Complete(ctx, req)
		})
		if err == nil {
			return result.(string), nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		g.log.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_retries", g.maxRetries).
			Msg("completion attempt failed")
	}

	return "", apperr.CompletionUnavailable(g.maxRetries, lastErr)
}
