package rag

import "strings"

// SnippetLength is the window size in characters scanned over the document.
const SnippetLength = 200

// BuildSnippet selects the most query-relevant window of the document.
// A fixed-length window slides across the document, each position scored
// by the count of distinct query terms it contains; the first
// highest-scoring window wins. The window is trimmed to the preceding
// word boundary and suffixed with a truncation marker when it does not
// reach the document's end.
func BuildSnippet(document, query string) string {
	runes := []rune(document)
	if len(runes) <= SnippetLength {
		return document
	}

	queryTerms := strings.Fields(strings.ToLower(query))
	lowerRunes := []rune(strings.ToLower(document))
	if len(lowerRunes) != len(runes) {
		// Lowercasing changed the rune count; score on the original.
		lowerRunes = runes
	}

	bestPos := 0
	bestScore := 0
	for i := 0; i+SnippetLength <= len(runes); i++ {
		window := string(lowerRunes[i : i+SnippetLength])
		score := 0
		for _, term := range queryTerms {
			if strings.Contains(window, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestPos = i
		}
	}

	window := runes[bestPos : bestPos+SnippetLength]

	if bestPos+SnippetLength < len(runes) {
		for i := len(window) - 1; i > SnippetLength*8/10; i-- {
			if window[i] == ' ' {
				return string(window[:i]) + "..."
			}
		}
		return string(window) + "..."
	}
	return string(window)
}

// truncateDocument is the plain fallback snippet used by find-similar,
// where there is no query text to score against.
func truncateDocument(document string) string {
	runes := []rune(document)
	if len(runes) <= SnippetLength {
		return document
	}
	return string(runes[:SnippetLength]) + "..."
}
