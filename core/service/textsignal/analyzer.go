// Package textsignal implements keyword and pattern based text heuristics
// over raw email content. Everything here is pure and deterministic: no
// network calls, no shared state.
package textsignal

import (
	"regexp"
	"sort"
	"strings"

	"mailtriage/core/domain"
)

// Sentiment keyword sets.
var (
	positiveKeywords = []string{
		"thank", "great", "excellent", "wonderful", "amazing", "love",
		"perfect", "satisfied", "happy", "pleased",
	}
	negativeKeywords = []string{
		"terrible", "awful", "bad", "horrible", "disappointed", "angry",
		"frustrated", "upset", "unhappy", "hate", "worst",
	}
)

// urgencyIndicators is the fixed list scored by UrgencyScore.
var urgencyIndicators = []string{
	"urgent", "emergency", "critical", "asap", "immediately",
	"broken", "down", "not working", "crashed", "failed",
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "up": {}, "about": {}, "into": {}, "through": {}, "during": {},
	"before": {}, "after": {}, "above": {}, "below": {}, "between": {},
	"among": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "being": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"may": {}, "might": {}, "can": {}, "am": {},
}

var (
	wordPattern  = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	orderPattern = regexp.MustCompile(`(?i)(?:order|#)\s*[-:]?\s*([a-zA-Z0-9]+)`)
	moneyPattern = regexp.MustCompile(`\$\d+(?:\.\d{2})?`)
)

// Analyzer extracts local signals from email text.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Sentiment counts positive and negative keyword occurrences
// (case-insensitive substring match). Ties resolve to neutral.
func (a *Analyzer) Sentiment(text string) domain.Sentiment {
	lower := strings.ToLower(text)

	positive := 0
	for _, word := range positiveKeywords {
		if strings.Contains(lower, word) {
			positive++
		}
	}
	negative := 0
	for _, word := range negativeKeywords {
		if strings.Contains(lower, word) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return domain.SentimentPositive
	case negative > positive:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// Keywords returns up to maxKeywords tokens ranked by descending frequency.
// Tokens are lowercase alphabetic words of length >= 3 with stop words
// removed. Frequency ties keep first-seen order.
func (a *Analyzer) Keywords(text string, maxKeywords int) []string {
	if maxKeywords <= 0 {
		return nil
	}

	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	freq := make(map[string]int)
	var order []string
	for _, word := range words {
		if _, skip := stopWords[word]; skip {
			continue
		}
		if freq[word] == 0 {
			order = append(order, word)
		}
		freq[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}

// Entities extracts email addresses, phone numbers, order identifiers and
// dollar amounts, in document order. Duplicates are kept.
func (a *Analyzer) Entities(text string) []domain.Entity {
	type match struct {
		pos    int
		entity domain.Entity
	}
	var matches []match

	for _, loc := range emailPattern.FindAllStringIndex(text, -1) {
		matches = append(matches, match{loc[0], domain.Entity{Type: "email", Value: text[loc[0]:loc[1]]}})
	}
	for _, loc := range phonePattern.FindAllStringIndex(text, -1) {
		matches = append(matches, match{loc[0], domain.Entity{Type: "phone", Value: text[loc[0]:loc[1]]}})
	}
	for _, idx := range orderPattern.FindAllStringSubmatchIndex(text, -1) {
		// idx[2]:idx[3] is the captured id token
		matches = append(matches, match{idx[0], domain.Entity{Type: "order_id", Value: text[idx[2]:idx[3]]}})
	}
	for _, loc := range moneyPattern.FindAllStringIndex(text, -1) {
		matches = append(matches, match{loc[0], domain.Entity{Type: "money", Value: text[loc[0]:loc[1]]}})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	entities := make([]domain.Entity, len(matches))
	for i, m := range matches {
		entities[i] = m.entity
	}
	return entities
}

// UrgencyScore returns the fraction of urgency indicators present in the
// text, in [0,1]. Monotonic in the count of distinct indicators.
func (a *Analyzer) UrgencyScore(text string) float64 {
	lower := strings.ToLower(text)

	count := 0
	for _, indicator := range urgencyIndicators {
		if strings.Contains(lower, indicator) {
			count++
		}
	}

	score := float64(count) / float64(len(urgencyIndicators))
	if score > 1 {
		return 1
	}
	return score
}

// Language word lists for DetectLanguage.
var (
	spanishWords = []string{"el", "la", "es", "en", "de", "que", "por", "con"}
	frenchWords  = []string{"le", "la", "est", "en", "de", "que", "pour", "avec"}
	germanWords  = []string{"der", "die", "ist", "in", "von", "dass", "für", "mit"}
)

// DetectLanguage is a coarse, low-confidence heuristic: it counts common
// words per language and only switches away from the English default when
// more than 2 of a language's words are present.
func (a *Analyzer) DetectLanguage(text string) string {
	if text == "" {
		return "en"
	}

	lower := strings.ToLower(text)
	count := func(words []string) int {
		n := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				n++
			}
		}
		return n
	}

	switch {
	case count(spanishWords) > 2:
		return "es"
	case count(frenchWords) > 2:
		return "fr"
	case count(germanWords) > 2:
		return "de"
	default:
		return "en"
	}
}
