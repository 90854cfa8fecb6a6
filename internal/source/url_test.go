// internal/source/url_test.go
package source

import (
	"testing"
)

func TestNormalize_Canonicalization(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases scheme and host",
			input:    "HTTPS://SportsTimingSolutions.IN/Result?bib=123",
			expected: "https://sportstimingsolutions.in/Result?bib=123",
		},
		{
			name:     "strips default https port",
			input:    "https://example.com:443/results",
			expected: "https://example.com/results",
		},
		{
			name:     "strips default http port",
			input:    "http://example.com:80/results",
			expected: "http://example.com/results",
		},
		{
			name:     "keeps non-default port",
			input:    "https://example.com:8443/results",
			expected: "https://example.com:8443/results",
		},
		{
			name:     "drops fragment",
			input:    "https://example.com/results#finish",
			expected: "https://example.com/results",
		},
		{
			name:     "sorts query parameters",
			input:    "https://example.com/r?z=1&a=2",
			expected: "https://example.com/r?a=2&z=1",
		},
		{
			name:     "trailing slash equals no slash",
			input:    "https://example.com/results/",
			expected: "https://example.com/results",
		},
		{
			name:     "resolves dot segments",
			input:    "https://example.com/a/../results",
			expected: "https://example.com/results",
		},
		{
			name:     "empty path becomes root",
			input:    "https://example.com",
			expected: "https://example.com/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q) failed: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalize_Rejections(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"not-a-url",
		"ftp://example.com/file",
		"https://",
		"://missing-scheme",
	}

	for _, input := range inputs {
		if _, err := Normalize(input); err == nil {
			t.Errorf("Normalize(%q) should fail", input)
		}
	}
}

func TestHash_Stability(t *testing.T) {
	n, err := Normalize("https://sportstimingsolutions.in/result?bib=42&race=10k")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	first := Hash(n)
	for i := 0; i < 10; i++ {
		if Hash(n) != first {
			t.Fatal("Hash is not stable across calls")
		}
	}

	if len(first) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(first))
	}
}

func TestHash_EquivalentURLsCollide(t *testing.T) {
	a, _, err := NormalizeAndHash("HTTPS://Example.com:443/results/?b=2&a=1")
	if err != nil {
		t.Fatalf("NormalizeAndHash failed: %v", err)
	}
	b, _, err2 := NormalizeAndHash("https://example.com/results?a=1&b=2")
	if err2 != nil {
		t.Fatalf("NormalizeAndHash failed: %v", err2)
	}

	if a != b {
		t.Errorf("equivalent URLs normalized differently: %q vs %q", a, b)
	}
	if Hash(a) != Hash(b) {
		t.Error("equivalent URLs hashed differently")
	}
}

func TestHash_DistinctURLsDiffer(t *testing.T) {
	_, h1, err := NormalizeAndHash("https://example.com/results?bib=1")
	if err != nil {
		t.Fatalf("NormalizeAndHash failed: %v", err)
	}
	_, h2, err := NormalizeAndHash("https://example.com/results?bib=2")
	if err != nil {
		t.Fatalf("NormalizeAndHash failed: %v", err)
	}

	if h1 == h2 {
		t.Error("distinct URLs should hash differently")
	}
}
