package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailtriage/core/domain"
)

// Record is one indexed email: id, embedding, stored document and
// metadata. Immutable after insertion.
type Record struct {
	ID        string
	Embedding []float32
	Document  string
	Subject   string
	Category  domain.Category
	Timestamp time.Time
}

// Neighbor is one nearest-neighbor hit with its cosine distance.
type Neighbor struct {
	ID        string
	Subject   string
	Document  string
	Category  domain.Category
	Timestamp time.Time
	Distance  float64
}

// QueryOptions restrict a nearest-neighbor query.
type QueryOptions struct {
	Limit    int
	Category domain.Category
	DateFrom *time.Time
	DateTo   *time.Time
}

// Store is the vector index backend boundary.
type Store interface {
	Add(ctx context.Context, record *Record) error
	Query(ctx context.Context, embedding []float32, opts QueryOptions) ([]Neighbor, error)
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// PGVectorStore implements Store on PostgreSQL with the pgvector
// extension, cosine distance.
type PGVectorStore struct {
	db *pgxpool.Pool
}

func NewPGVectorStore(db *pgxpool.Pool) *PGVectorStore {
	return &PGVectorStore{db: db}
}

func (s *PGVectorStore) Add(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO email_vectors (id, embedding, document, subject, category, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.Exec(ctx, query,
		record.ID,
		pgVector(record.Embedding),
		record.Document,
		record.Subject,
		string(record.Category),
		record.Timestamp,
	)
	return err
}

func (s *PGVectorStore) Query(ctx context.Context, embedding []float32, opts QueryOptions) ([]Neighbor, error) {
	if opts.Limit <= 0 {
		opts.Limit = domain.DefaultSearchLimit
	}

	query := `
		SELECT id, subject, document, category, received_at, embedding <=> $1 AS distance
		FROM email_vectors
	`
	args := []any{pgVector(embedding)}
	where := ""

	if opts.Category != "" {
		args = append(args, string(opts.Category))
		where = appendCond(where, "category = $"+strconv.Itoa(len(args)))
	}
	if opts.DateFrom != nil {
		args = append(args, *opts.DateFrom)
		where = appendCond(where, "received_at >= $"+strconv.Itoa(len(args)))
	}
	if opts.DateTo != nil {
		args = append(args, *opts.DateTo)
		where = appendCond(where, "received_at <= $"+strconv.Itoa(len(args)))
	}

	args = append(args, opts.Limit)
	query += where + fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var neighbors []Neighbor
	for rows.Next() {
		var n Neighbor
		var category string
		if err := rows.Scan(&n.ID, &n.Subject, &n.Document, &category, &n.Timestamp, &n.Distance); err != nil {
			return nil, err
		}
		n.Category, _ = domain.ParseCategory(category)
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}

func (s *PGVectorStore) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, embedding::text, document, subject, category, received_at
		FROM email_vectors
		WHERE id = $1
	`
	var record Record
	var embeddingText, category string
	err := s.db.QueryRow(ctx, query, id).Scan(
		&record.ID, &embeddingText, &record.Document,
		&record.Subject, &category, &record.Timestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record.Category, _ = domain.ParseCategory(category)
	record.Embedding, err = parsePGVector(embeddingText)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *PGVectorStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM email_vectors WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM email_vectors`).Scan(&count)
	return count, err
}

func appendCond(where, cond string) string {
	if where == "" {
		return " WHERE " + cond
	}
	return where + " AND " + cond
}

// pgVector converts a float32 slice to the pgvector literal format.
func pgVector(v []float32) string {
	if len(v) == 0 {
		return "[0]"
	}

	buf := make([]byte, 0, len(v)*13+2)
	buf = append(buf, '[')
	for i, f := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, float64(f), 'f', 6, 32)
	}
	buf = append(buf, ']')
	return string(buf)
}

// parsePGVector reads a pgvector literal like "[0.1,0.2]" back into floats.
func parsePGVector(s string) ([]float32, error) {
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("malformed vector literal")
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return nil, nil
	}

	var result []float32
	start := 0
	for i := 0; i <= len(body); i++ {
		if i == len(body) || body[i] == ',' {
			f, err := strconv.ParseFloat(body[start:i], 32)
			if err != nil {
				return nil, fmt.Errorf("malformed vector element: %w", err)
			}
			result = append(result, float32(f))
			start = i + 1
		}
	}
	return result, nil
}
