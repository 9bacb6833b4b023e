package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mailtriage/core/domain"
	"mailtriage/pkg/apperr"
)

// fakeEmbeddingClient returns a fixed vector or an error.
type fakeEmbeddingClient struct {
	embedding []float32
	err       error
	calls     int
}

func (f *fakeEmbeddingClient) Embedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.embedding != nil {
		return f.embedding, nil
	}
	return make([]float32, 1536), nil
}

// fakeStore is an in-memory Store with scripted neighbors.
type fakeStore struct {
	records   map[string]*Record
	neighbors []Neighbor
	addErr    error
	queryErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*Record)}
}

func (f *fakeStore) Add(ctx context.Context, record *Record) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.records[record.ID] = record
	return nil
}

func (f *fakeStore) Query(ctx context.Context, embedding []float32, opts QueryOptions) ([]Neighbor, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	result := f.neighbors
	if opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*Record, error) {
	return f.records[id], nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := f.records[id]; !ok {
		return false, nil
	}
	delete(f.records, id)
	return true, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return len(f.records), nil
}

func testIndex(client *fakeEmbeddingClient, store *fakeStore) *Index {
	embedder := NewEmbedder(client, nil)
	return NewIndex(embedder, store, zerolog.Nop())
}

func TestInsertStoresRecord(t *testing.T) {
	store := newFakeStore()
	index := testIndex(&fakeEmbeddingClient{}, store)

	err := index.Insert(context.Background(), &InsertRequest{
		ID:        "email-1",
		Subject:   "Order delayed",
		Body:      "My order has not arrived yet",
		Category:  domain.CategoryOrder,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record, ok := store.records["email-1"]
	if !ok {
		t.Fatal("record not stored")
	}
	if record.Category != domain.CategoryOrder {
		t.Errorf("expected order category, got %s", record.Category)
	}
	if len(record.Embedding) == 0 {
		t.Error("expected embedding on stored record")
	}
}

func TestInsertEmbeddingFailure(t *testing.T) {
	store := newFakeStore()
	index := testIndex(&fakeEmbeddingClient{err: errors.New("quota exceeded")}, store)

	err := index.Insert(context.Background(), &InsertRequest{ID: "email-1", Subject: "s", Body: "b"})
	if !apperr.IsCode(err, apperr.CodeEmbeddingUnavailable) {
		t.Errorf("expected EMBEDDING_UNAVAILABLE, got %v", err)
	}
	if len(store.records) != 0 {
		t.Error("nothing may be stored when embedding fails")
	}
}

func TestInsertStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.addErr = errors.New("connection refused")
	index := testIndex(&fakeEmbeddingClient{}, store)

	err := index.Insert(context.Background(), &InsertRequest{ID: "email-1", Subject: "s", Body: "b"})
	if !apperr.IsCode(err, apperr.CodeIndexBackend) {
		t.Errorf("expected INDEX_BACKEND, got %v", err)
	}
}

func TestSearchRanksByDescendingSimilarity(t *testing.T) {
	store := newFakeStore()
	store.neighbors = []Neighbor{
		{ID: "far", Subject: "far", Document: "far away content", Distance: 0.8},
		{ID: "near", Subject: "near", Document: "very close content", Distance: 0.1},
		{ID: "mid", Subject: "mid", Document: "somewhat close content", Distance: 0.4},
	}
	index := testIndex(&fakeEmbeddingClient{}, store)

	resp, err := index.Search(context.Background(), &domain.SearchQuery{Query: "content", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].SimilarityScore > resp.Results[i-1].SimilarityScore {
			t.Errorf("results not sorted by descending similarity at %d", i)
		}
	}
	if resp.Results[0].EmailID != "near" {
		t.Errorf("expected 'near' first, got %s", resp.Results[0].EmailID)
	}
}

func TestSearchSimilarityNeverNegative(t *testing.T) {
	store := newFakeStore()
	store.neighbors = []Neighbor{
		{ID: "opposite", Subject: "s", Document: "d", Distance: 1.7},
	}
	index := testIndex(&fakeEmbeddingClient{}, store)

	resp, err := index.Search(context.Background(), &domain.SearchQuery{Query: "anything", Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Results[0].SimilarityScore != 0 {
		t.Errorf("expected similarity clamped to 0, got %f", resp.Results[0].SimilarityScore)
	}
}

func TestSearchValidation(t *testing.T) {
	index := testIndex(&fakeEmbeddingClient{}, newFakeStore())

	tests := []struct {
		name  string
		query domain.SearchQuery
	}{
		{"empty query", domain.SearchQuery{Query: "", Limit: 10}},
		{"limit too large", domain.SearchQuery{Query: "q", Limit: 100}},
		{"bad category filter", domain.SearchQuery{Query: "q", Limit: 5, CategoryFilter: "bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := index.Search(context.Background(), &tt.query); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSearchEmbeddingFailureAborts(t *testing.T) {
	index := testIndex(&fakeEmbeddingClient{err: errors.New("boom")}, newFakeStore())

	_, err := index.Search(context.Background(), &domain.SearchQuery{Query: "q", Limit: 5})
	if !apperr.IsCode(err, apperr.CodeEmbeddingUnavailable) {
		t.Errorf("expected EMBEDDING_UNAVAILABLE, got %v", err)
	}
}

func TestFindSimilarExcludesSelf(t *testing.T) {
	store := newFakeStore()
	store.records["anchor"] = &Record{ID: "anchor", Embedding: make([]float32, 4)}
	store.neighbors = []Neighbor{
		{ID: "anchor", Subject: "anchor", Document: "itself", Distance: 0.0},
		{ID: "twin", Subject: "twin", Document: "nearly identical", Distance: 0.05},
		{ID: "cousin", Subject: "cousin", Document: "related", Distance: 0.3},
	}
	index := testIndex(&fakeEmbeddingClient{}, store)

	results, err := index.FindSimilar(context.Background(), "anchor", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, r := range results {
		if r.EmailID == "anchor" {
			t.Error("findSimilar must never include the anchor id")
		}
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
	if results[0].EmailID != "twin" {
		t.Errorf("expected 'twin' ranked first, got %s", results[0].EmailID)
	}
}

func TestFindSimilarRespectsLimit(t *testing.T) {
	store := newFakeStore()
	store.records["anchor"] = &Record{ID: "anchor", Embedding: make([]float32, 4)}
	store.neighbors = []Neighbor{
		{ID: "a", Distance: 0.1},
		{ID: "b", Distance: 0.2},
		{ID: "c", Distance: 0.3},
	}
	index := testIndex(&fakeEmbeddingClient{}, store)

	results, err := index.FindSimilar(context.Background(), "anchor", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) > 2 {
		t.Errorf("expected at most 2 results, got %d", len(results))
	}
}

func TestFindSimilarUnknownID(t *testing.T) {
	index := testIndex(&fakeEmbeddingClient{}, newFakeStore())

	_, err := index.FindSimilar(context.Background(), "ghost", 5)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestRemoveDeletesRecord(t *testing.T) {
	store := newFakeStore()
	index := testIndex(&fakeEmbeddingClient{}, store)

	req := &InsertRequest{ID: "email-1", Subject: "refund", Body: "please refund order 99"}
	if err := index.Insert(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := index.Remove(context.Background(), "email-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.records) != 0 {
		t.Errorf("expected empty store, got %d records", len(store.records))
	}
}

func TestRemoveUnknownID(t *testing.T) {
	index := testIndex(&fakeEmbeddingClient{}, newFakeStore())

	err := index.Remove(context.Background(), "ghost")
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestEmbedderUsesCache(t *testing.T) {
	client := &fakeEmbeddingClient{embedding: []float32{1, 2, 3}}
	embedder := NewEmbedder(client, NewEmbeddingCache(DefaultEmbeddingCacheConfig()))

	for i := 0; i < 3; i++ {
		if _, err := embedder.Embed(context.Background(), "same text"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if client.calls != 1 {
		t.Errorf("expected 1 upstream call with cache, got %d", client.calls)
	}
}

func TestEmbeddingCacheExpiry(t *testing.T) {
	cache := NewEmbeddingCache(EmbeddingCacheConfig{MaxSize: 10, TTL: time.Millisecond})
	cache.Set("text", []float32{1})

	time.Sleep(5 * time.Millisecond)
	if _, ok := cache.Get("text"); ok {
		t.Error("expired entry must not be returned")
	}
}

func TestEmbeddingCacheEviction(t *testing.T) {
	cache := NewEmbeddingCache(EmbeddingCacheConfig{MaxSize: 2, TTL: time.Hour})
	cache.Set("a", []float32{1})
	cache.Set("b", []float32{2})
	cache.Set("c", []float32{3})

	if cache.Len() > 2 {
		t.Errorf("cache exceeded max size: %d", cache.Len())
	}
}

func TestPGVectorRoundTrip(t *testing.T) {
	original := []float32{0.125, -1.5, 3}

	parsed, err := parsePGVector(pgVector(original))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed) != len(original) {
		t.Fatalf("expected %d elements, got %d", len(original), len(parsed))
	}
	for i := range original {
		if parsed[i] != original[i] {
			t.Errorf("element %d: expected %f, got %f", i, original[i], parsed[i])
		}
	}
}

func TestParsePGVectorMalformed(t *testing.T) {
	for _, input := range []string{"", "0.1,0.2", "[0.1,abc]"} {
		if _, err := parsePGVector(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}
