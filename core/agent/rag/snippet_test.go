package rag

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildSnippetShortDocumentPassthrough(t *testing.T) {
	doc := "short document, no truncation needed"
	if got := BuildSnippet(doc, "document"); got != doc {
		t.Errorf("expected document returned whole, got %q", got)
	}
}

func TestBuildSnippetSelectsRelevantWindow(t *testing.T) {
	filler := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	doc := filler + "the refund for order 12345 was processed yesterday " + filler

	snippet := BuildSnippet(doc, "refund order")
	if !strings.Contains(snippet, "refund") {
		t.Errorf("expected snippet to cover the query terms, got %q", snippet)
	}
	if len(snippet) > SnippetLength+3 {
		t.Errorf("snippet too long: %d", len(snippet))
	}
}

func TestBuildSnippetTruncationMarker(t *testing.T) {
	doc := strings.Repeat("word ", 100)
	snippet := BuildSnippet(doc, "word")
	if !strings.HasSuffix(snippet, "...") {
		t.Errorf("expected truncation marker on mid-document snippet, got %q", snippet)
	}
}

func TestBuildSnippetNoMatchFallsBackToStart(t *testing.T) {
	doc := strings.Repeat("alpha beta gamma ", 30)
	snippet := BuildSnippet(doc, "zzzzz")
	if !strings.HasPrefix(doc, strings.TrimSuffix(snippet, "...")) {
		t.Errorf("expected snippet from document start, got %q", snippet)
	}
}

func TestBuildSnippetTrimsAtWordBoundary(t *testing.T) {
	doc := strings.Repeat("boundary ", 50)
	snippet := BuildSnippet(doc, "boundary")

	trimmed := strings.TrimSuffix(snippet, "...")
	if strings.HasSuffix(trimmed, " ") {
		t.Errorf("trailing space left after boundary trim: %q", snippet)
	}
	if !strings.HasSuffix(trimmed, "boundary") {
		t.Errorf("expected cut on a word boundary, got %q", snippet)
	}
}

func TestBuildSnippetMultibyteDocument(t *testing.T) {
	doc := strings.Repeat("고객 문의 환불 요청 ", 40)
	snippet := BuildSnippet(doc, "환불")

	if !utf8.ValidString(snippet) {
		t.Fatalf("snippet is not valid UTF-8: %q", snippet)
	}
	if n := utf8.RuneCountInString(snippet); n > SnippetLength+3 {
		t.Errorf("snippet too long: %d characters", n)
	}
	if !strings.Contains(snippet, "환불") {
		t.Errorf("expected snippet to cover the query term, got %q", snippet)
	}
}

func TestTruncateDocumentMultibyte(t *testing.T) {
	got := truncateDocument(strings.Repeat("주", 500))
	if !utf8.ValidString(got) {
		t.Fatalf("truncated document is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != SnippetLength+3 {
		t.Errorf("expected %d characters, got %d", SnippetLength+3, n)
	}
}

func TestTruncateDocument(t *testing.T) {
	short := "fits entirely"
	if got := truncateDocument(short); got != short {
		t.Errorf("expected short document unchanged, got %q", got)
	}

	long := strings.Repeat("x", 500)
	got := truncateDocument(long)
	if len(got) != SnippetLength+3 {
		t.Errorf("expected %d chars, got %d", SnippetLength+3, len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("expected truncation marker")
	}
}
