package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreviewText(t *testing.T) {
	if got := previewText("short\ntext", 150); got != "short text" {
		t.Errorf("expected %q, got %q", "short text", got)
	}

	// 149 ASCII bytes put the 150th rune across the byte boundary.
	text := strings.Repeat("a", 149) + strings.Repeat("é", 10)
	got := previewText(text, 150)
	if !utf8.ValidString(got) {
		t.Fatalf("preview split a rune: %q", got)
	}
	want := strings.Repeat("a", 149) + "é..."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
