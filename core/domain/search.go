package domain

import (
	"time"

	"mailtriage/pkg/apperr"
)

// Search limits.
const (
	MaxSearchLimit     = 50
	DefaultSearchLimit = 10
)

// SearchQuery is one semantic search request against the similarity index.
type SearchQuery struct {
	Query          string     `json:"query"`
	Limit          int        `json:"limit"`
	CategoryFilter Category   `json:"category_filter,omitempty"`
	DateFrom       *time.Time `json:"date_from,omitempty"`
	DateTo         *time.Time `json:"date_to,omitempty"`
}

// Validate checks query constraints and applies the default limit.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return apperr.MissingField("query")
	}
	if q.Limit == 0 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit < 1 || q.Limit > MaxSearchLimit {
		return apperr.InputValidation("limit", "must be between 1 and 50")
	}
	if q.CategoryFilter != "" {
		if _, ok := ParseCategory(string(q.CategoryFilter)); !ok {
			return apperr.InputValidation("category_filter", "unknown category")
		}
	}
	return nil
}

// SearchResult is one ranked hit from the similarity index.
type SearchResult struct {
	EmailID         string    `json:"email_id"`
	Subject         string    `json:"subject"`
	Snippet         string    `json:"snippet"`
	SimilarityScore float64   `json:"similarity_score"`
	Category        Category  `json:"category"`
	Timestamp       time.Time `json:"timestamp"`
}

// SearchResponse wraps ranked results with timing metadata.
type SearchResponse struct {
	Query      string         `json:"query"`
	Results    []SearchResult `json:"results"`
	TotalCount int            `json:"total_count"`
	SearchTime float64        `json:"search_time"` // seconds
}
