// Package persistence provides database adapters for processed email
// results.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"mailtriage/core/domain"
)

// ResultAdapter stores terminal pipeline results in Postgres.
type ResultAdapter struct {
	db *sqlx.DB
}

func NewResultAdapter(db *sqlx.DB) *ResultAdapter {
	return &ResultAdapter{db: db}
}

// resultRow represents the database row.
type resultRow struct {
	EmailID            string         `db:"email_id"`
	Category           string         `db:"category"`
	SubCategory        sql.NullString `db:"sub_category"`
	Priority           string         `db:"priority"`
	Sentiment          string         `db:"sentiment"`
	Confidence         float64        `db:"confidence"`
	Keywords           pq.StringArray `db:"keywords"`
	Entities           []byte         `db:"entities"`
	Fallback           bool           `db:"fallback"`
	ResponseContent    string         `db:"response_content"`
	ResponseTone       string         `db:"response_tone"`
	SuggestedActions   pq.StringArray `db:"suggested_actions"`
	ResponseConfidence float64        `db:"response_confidence"`
	ProcessingTime     float64        `db:"processing_time"`
	CreatedAt          time.Time      `db:"created_at"`
}

func (r *resultRow) toEntity() (*domain.ProcessingResult, error) {
	var entities []domain.Entity
	if len(r.Entities) > 0 {
		if err := json.Unmarshal(r.Entities, &entities); err != nil {
			return nil, fmt.Errorf("failed to decode entities: %w", err)
		}
	}

	category, _ := domain.ParseCategory(r.Category)

	result := &domain.ProcessingResult{
		EmailID: r.EmailID,
		Classification: domain.Classification{
			Category:   category,
			Priority:   domain.Priority(r.Priority),
			Sentiment:  domain.Sentiment(r.Sentiment),
			Confidence: r.Confidence,
			Keywords:   r.Keywords,
			Entities:   entities,
			Fallback:   r.Fallback,
		},
		Response: domain.Response{
			Content:          r.ResponseContent,
			Tone:             r.ResponseTone,
			SuggestedActions: r.SuggestedActions,
			Confidence:       r.ResponseConfidence,
		},
		ProcessingTime: r.ProcessingTime,
		Timestamp:      r.CreatedAt,
	}
	if r.SubCategory.Valid {
		result.Classification.SubCategory = r.SubCategory.String
	}
	return result, nil
}

// Save upserts one processing result keyed by email id.
func (a *ResultAdapter) Save(ctx context.Context, result *domain.ProcessingResult) error {
	entities, err := json.Marshal(result.Classification.Entities)
	if err != nil {
		return fmt.Errorf("failed to encode entities: %w", err)
	}

	query := `
		INSERT INTO processing_results (
			email_id, category, sub_category, priority, sentiment,
			confidence, keywords, entities, fallback,
			response_content, response_tone, suggested_actions,
			response_confidence, processing_time, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (email_id) DO UPDATE SET
			category = EXCLUDED.category,
			sub_category = EXCLUDED.sub_category,
			priority = EXCLUDED.priority,
			sentiment = EXCLUDED.sentiment,
			confidence = EXCLUDED.confidence,
			keywords = EXCLUDED.keywords,
			entities = EXCLUDED.entities,
			fallback = EXCLUDED.fallback,
			response_content = EXCLUDED.response_content,
			response_tone = EXCLUDED.response_tone,
			suggested_actions = EXCLUDED.suggested_actions,
			response_confidence = EXCLUDED.response_confidence,
			processing_time = EXCLUDED.processing_time`

	var subCategory sql.NullString
	if result.Classification.SubCategory != "" {
		subCategory = sql.NullString{String: result.Classification.SubCategory, Valid: true}
	}

	_, err = a.db.ExecContext(ctx, query,
		result.EmailID,
		string(result.Classification.Category),
		subCategory,
		string(result.Classification.Priority),
		string(result.Classification.Sentiment),
		result.Classification.Confidence,
		pq.StringArray(result.Classification.Keywords),
		entities,
		result.Classification.Fallback,
		result.Response.Content,
		result.Response.Tone,
		pq.StringArray(result.Response.SuggestedActions),
		result.Response.Confidence,
		result.ProcessingTime,
		result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save processing result: %w", err)
	}
	return nil
}

// GetByID returns the stored result, or nil when the id is unknown.
func (a *ResultAdapter) GetByID(ctx context.Context, emailID string) (*domain.ProcessingResult, error) {
	var row resultRow
	query := `SELECT * FROM processing_results WHERE email_id = $1`

	if err := a.db.GetContext(ctx, &row, query, emailID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get processing result: %w", err)
	}
	return row.toEntity()
}

// ListRecent returns the newest results first.
func (a *ResultAdapter) ListRecent(ctx context.Context, limit int) ([]*domain.ProcessingResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []resultRow
	query := `SELECT * FROM processing_results ORDER BY created_at DESC LIMIT $1`

	if err := a.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list processing results: %w", err)
	}

	results := make([]*domain.ProcessingResult, 0, len(rows))
	for i := range rows {
		result, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// CountByCategory reports how many results each category holds.
func (a *ResultAdapter) CountByCategory(ctx context.Context) (map[domain.Category]int, error) {
	type countRow struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
	}

	var rows []countRow
	query := `SELECT category, COUNT(*) AS count FROM processing_results GROUP BY category`

	if err := a.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count by category: %w", err)
	}

	counts := make(map[domain.Category]int, len(rows))
	for _, row := range rows {
		category, _ := domain.ParseCategory(row.Category)
		counts[category] = counts[category] + row.Count
	}
	return counts, nil
}
