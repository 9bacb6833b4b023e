// Package rag maintains the vector index of processed emails and serves
// similarity queries over it.
package rag

import (
	"context"

	"mailtriage/pkg/apperr"
)

type embeddingClient interface {
	Embedding(ctx context.Context, text string) ([]float32, error)
}

// Embedder wraps the external embedding service. There is no retry at
// this layer; failures surface as apperr.CodeEmbeddingUnavailable.
type Embedder struct {
	client embeddingClient
	cache  *EmbeddingCache
}

func NewEmbedder(client embeddingClient, cache *EmbeddingCache) *Embedder {
	return &Embedder{client: client, cache: cache}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if embedding, ok := e.cache.Get(text); ok {
			return embedding, nil
		}
	}

	embedding, err := e.client.Embedding(ctx, text)
	if err != nil {
		return nil, apperr.EmbeddingUnavailable(err)
	}

	if e.cache != nil {
		e.cache.Set(text, embedding)
	}
	return embedding, nil
}

// PrepareText combines subject and body into the document stored and
// embedded for one email.
func PrepareText(subject, body string, maxLen int) string {
	text := subject + "\n\n" + body
	if len(text) <= maxLen {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}
