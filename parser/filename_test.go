package parser

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{
			name:     "punctuation and spaces",
			title:    "Echo Dot (3rd Gen) - Charcoal",
			expected: "Echo_Dot__3rd_Gen____Charcoal-B07XJ8C8F5.csv",
		},
		{
			name:     "unknown title",
			title:    UnknownProductTitle,
			expected: "unknown-B07XJ8C8F5.csv",
		},
		{
			name:     "path separators",
			title:    "a/b\\c:d",
			expected: "a_b_c_d-B07XJ8C8F5.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputFilename(tt.title, "B07XJ8C8F5", ".csv"); got != tt.expected {
				t.Errorf("OutputFilename(%q) = %q, want %q", tt.title, got, tt.expected)
			}
		})
	}
}

func TestSanitizeTitleTruncates(t *testing.T) {
	title := strings.Repeat("Long title, ", 10)
	got := SanitizeTitle(title)
	if utf8.RuneCountInString(got) != 64 {
		t.Fatalf("sanitized length = %d, want 64", utf8.RuneCountInString(got))
	}
	if !strings.HasPrefix(got, "Long_title__Long_title__") {
		t.Fatalf("unexpected sanitized prefix: %q", got)
	}
	if SanitizeTitle(title) != got {
		t.Fatalf("sanitizing must be deterministic")
	}
}

func TestSanitizeTitleCountsCharacters(t *testing.T) {
	title := strings.Repeat("é", 70)
	got := SanitizeTitle(title)
	if utf8.RuneCountInString(got) != 64 {
		t.Fatalf("sanitized length = %d runes, want 64", utf8.RuneCountInString(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a multi-byte character")
	}
}
