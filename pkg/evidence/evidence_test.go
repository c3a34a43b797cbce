package evidence

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestIsAcceptable(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		want    bool
	}{
		{
			name:    "empty",
			snippet: "",
			want:    false,
		},
		{
			name:    "whitespace only",
			snippet: "   \t\n ",
			want:    false,
		},
		{
			name:    "complete sentence",
			snippet: "Prefers working with people over processes.",
			want:    true,
		},
		{
			name:    "lowercase fragment",
			snippet: "tends to overthink decisions when pressured.",
			want:    false,
		},
		{
			name:    "short do line allowed",
			snippet: "Do: Be direct.",
			want:    true,
		},
		{
			name:    "short dont line allowed",
			snippet: "Don't: Ramble.",
			want:    true,
		},
		{
			name:    "too short non do line",
			snippet: "Big thinker.",
			want:    false,
		},
		{
			name:    "based on responses boilerplate",
			snippet: "Based on Jane Doe's responses, the report has selected statements.",
			want:    false,
		},
		{
			name:    "mask some of short",
			snippet: "She will mask some of her behavior.",
			want:    false,
		},
		{
			name:    "mask some of long enough reads complete",
			snippet: "Under pressure she may mask some of her natural directness to keep the conversation comfortable for everyone involved.",
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAcceptable(tt.snippet); got != tt.want {
				t.Fatalf("IsAcceptable(%q) = %v, want %v", tt.snippet, got, tt.want)
			}
		})
	}
}

func TestCleanSnippet(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "normalizes whitespace and adds period",
			input:  "Prefers  autonomy \n over close supervision",
			maxLen: 200,
			want:   "Prefers autonomy over close supervision.",
		},
		{
			name:   "strips section lead in",
			input:  "Behavioral Characteristics Based on Jane's responses, She is people-oriented and direct",
			maxLen: 200,
			want:   "She is people-oriented and direct.",
		},
		{
			name:   "do line keeps its ending",
			input:  "Do: Provide yes or no answers",
			maxLen: 200,
			want:   "Do: Provide yes or no answers",
		},
		{
			name:   "truncates on word boundary",
			input:  strings.Repeat("word ", 60),
			maxLen: 50,
			want:   "word word word word word word word word word...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanSnippet(tt.input, tt.maxLen)
			if got != tt.want {
				t.Fatalf("CleanSnippet(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if len(got) > tt.maxLen+1 {
				t.Fatalf("cleaned snippet exceeds max length: %d > %d", len(got), tt.maxLen)
			}
		})
	}
}

func TestTruncateMultibyteBoundary(t *testing.T) {
	in := strings.Repeat("ä", 40)
	got := Truncate(in, 20)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated snippet is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if len(got) > 20 {
		t.Fatalf("truncated snippet exceeds max length: %d", len(got))
	}
}

func TestPrepareForDisplay(t *testing.T) {
	got, ok := PrepareForDisplay("Enjoys building long-term client relationships.", 200)
	if !ok {
		t.Fatal("expected snippet to be accepted")
	}
	if got != "Enjoys building long-term client relationships." {
		t.Fatalf("unexpected cleaned snippet: %q", got)
	}

	if _, ok := PrepareForDisplay("fragment without a capital start", 200); ok {
		t.Fatal("expected lowercase fragment to be rejected")
	}
}
