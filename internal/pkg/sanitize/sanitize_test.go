package sanitize

import (
	"errors"
	"strings"
	"testing"
)

func TestCleanString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{name: "passthrough", in: "Dana Reyes", maxLen: 100, want: "Dana Reyes"},
		{name: "strips control characters", in: "Dana\x00\x1bReyes\r\n", maxLen: 100, want: "DanaReyes"},
		{name: "trims whitespace", in: "  Dana  ", maxLen: 100, want: "Dana"},
		{name: "caps length", in: strings.Repeat("a", 20), maxLen: 10, want: strings.Repeat("a", 10)},
		{name: "zero max means uncapped", in: strings.Repeat("b", 600), maxLen: 0, want: strings.Repeat("b", 600)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanString(tt.in, tt.maxLen); got != tt.want {
				t.Fatalf("CleanString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestCleanStringKeepsMultibyteIntact(t *testing.T) {
	t.Parallel()

	got := CleanString("héllo wörld", 6)
	if !strings.HasPrefix("héllo wörld", got) {
		t.Fatalf("truncation produced non-prefix %q", got)
	}
	for _, r := range got {
		if r == '�' {
			t.Fatalf("truncation split a multibyte rune: %q", got)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	if got := ErrorMessage(nil); got != "" {
		t.Fatalf("expected empty message for nil error, got %q", got)
	}

	long := errors.New(strings.Repeat("x", MaxErrorLength+100))
	if got := ErrorMessage(long); len(got) != MaxErrorLength {
		t.Fatalf("expected message capped at %d, got %d", MaxErrorLength, len(got))
	}
}

func TestScrubPayloadMasksPII(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"email":"dana.reyes+test@example.org","phone":"+1 (555) 123-4567","note":"keep"}`)
	got, truncated := ScrubPayload(raw)

	if truncated {
		t.Fatalf("small payload should not be truncated")
	}
	if strings.Contains(got, "dana.reyes") {
		t.Fatalf("email local part leaked: %s", got)
	}
	if !strings.Contains(got, "***@example.org") {
		t.Fatalf("email domain should be retained: %s", got)
	}
	if strings.Contains(got, "555") {
		t.Fatalf("phone number leaked: %s", got)
	}
	if !strings.Contains(got, "[phone]") {
		t.Fatalf("phone placeholder missing: %s", got)
	}
	if !strings.Contains(got, "keep") {
		t.Fatalf("unrelated content must survive scrubbing: %s", got)
	}
}

func TestScrubPayloadTruncatesOversized(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Repeat("a", MaxPayloadBytes+1000))
	got, truncated := ScrubPayload(raw)

	if !truncated {
		t.Fatalf("expected oversized payload to be marked truncated")
	}
	if len(got) > MaxPayloadBytes {
		t.Fatalf("retained payload exceeds cap: %d", len(got))
	}
}

func TestScrubPayloadKeepsStructuralWhitespace(t *testing.T) {
	t.Parallel()

	got, _ := ScrubPayload([]byte("{\n\t\"a\": 1\x07\n}"))
	if !strings.Contains(got, "\n\t") {
		t.Fatalf("newline and tab should survive: %q", got)
	}
	if strings.Contains(got, "\x07") {
		t.Fatalf("bell character should be stripped: %q", got)
	}
}
