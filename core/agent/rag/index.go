package rag

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"mailtriage/core/domain"
	"mailtriage/pkg/apperr"
)

// MaxDocumentLength bounds the stored/embedded document text.
const MaxDocumentLength = 8000

// Index is the similarity index over processed emails. It is the only
// shared resource in the pipeline; concurrency safety is delegated to
// the store backend.
type Index struct {
	embedder *Embedder
	store    Store
	log      zerolog.Logger
}

func NewIndex(embedder *Embedder, store Store, log zerolog.Logger) *Index {
	return &Index{embedder: embedder, store: store, log: log}
}

// InsertRequest describes one email to index.
type InsertRequest struct {
	ID        string
	Subject   string
	Body      string
	Category  domain.Category
	Timestamp time.Time
}

// Insert embeds the email text and stores it. Embedding failure surfaces
// as EMBEDDING_UNAVAILABLE (no retry at this layer); store failure as
// INDEX_BACKEND.
func (idx *Index) Insert(ctx context.Context, req *InsertRequest) error {
	document := PrepareText(req.Subject, req.Body, MaxDocumentLength)

	embedding, err := idx.embedder.Embed(ctx, document)
	if err != nil {
		return err
	}

	record := &Record{
		ID:        req.ID,
		Embedding: embedding,
		Document:  document,
		Subject:   req.Subject,
		Category:  req.Category,
		Timestamp: req.Timestamp,
	}
	if err := idx.store.Add(ctx, record); err != nil {
		return apperr.IndexBackend("add", err)
	}

	idx.log.Debug().Str("email_id", req.ID).Msg("email indexed")
	return nil
}

// Search embeds the query text and returns neighbors ranked by
// descending similarity, where similarity = max(0, 1-distance).
func (idx *Index) Search(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	embedding, err := idx.embedder.Embed(ctx, query.Query)
	if err != nil {
		return nil, err
	}

	neighbors, err := idx.store.Query(ctx, embedding, QueryOptions{
		Limit:    query.Limit,
		Category: query.CategoryFilter,
		DateFrom: query.DateFrom,
		DateTo:   query.DateTo,
	})
	if err != nil {
		return nil, apperr.IndexBackend("query", err)
	}

	results := make([]domain.SearchResult, len(neighbors))
	for i, n := range neighbors {
		results[i] = domain.SearchResult{
			EmailID:         n.ID,
			Subject:         n.Subject,
			Snippet:         BuildSnippet(n.Document, query.Query),
			SimilarityScore: similarity(n.Distance),
			Category:        n.Category,
			Timestamp:       n.Timestamp,
		}
	}
	sortBySimilarity(results)

	return &domain.SearchResponse{
		Query:      query.Query,
		Results:    results,
		TotalCount: len(results),
		SearchTime: time.Since(start).Seconds(),
	}, nil
}

// FindSimilar returns up to limit emails ranked by similarity to the
// stored email, excluding the email itself.
func (idx *Index) FindSimilar(ctx context.Context, id string, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	record, err := idx.store.Get(ctx, id)
	if err != nil {
		return nil, apperr.IndexBackend("get", err)
	}
	if record == nil {
		return nil, apperr.NotFound("email")
	}

	// One extra neighbor because the anchor email itself will match.
	neighbors, err := idx.store.Query(ctx, record.Embedding, QueryOptions{Limit: limit + 1})
	if err != nil {
		return nil, apperr.IndexBackend("query", err)
	}

	var results []domain.SearchResult
	for _, n := range neighbors {
		if n.ID == id {
			continue
		}
		results = append(results, domain.SearchResult{
			EmailID:         n.ID,
			Subject:         n.Subject,
			Snippet:         truncateDocument(n.Document),
			SimilarityScore: similarity(n.Distance),
			Category:        n.Category,
			Timestamp:       n.Timestamp,
		})
	}
	sortBySimilarity(results)

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Remove deletes an email from the index. Unknown ids are NOT_FOUND.
func (idx *Index) Remove(ctx context.Context, id string) error {
	deleted, err := idx.store.Delete(ctx, id)
	if err != nil {
		return apperr.IndexBackend("delete", err)
	}
	if !deleted {
		return apperr.NotFound("email")
	}

	idx.log.Debug().Str("email_id", id).Msg("email removed from index")
	return nil
}

// Count reports the number of indexed emails.
func (idx *Index) Count(ctx context.Context) (int, error) {
	count, err := idx.store.Count(ctx)
	if err != nil {
		return 0, apperr.IndexBackend("count", err)
	}
	return count, nil
}

// similarity converts a cosine distance to a score in [0,1].
func similarity(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	return s
}

func sortBySimilarity(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
}
