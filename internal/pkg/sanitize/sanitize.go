package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxErrorLength caps error messages stored on ledger rows.
	MaxErrorLength = 500
	// MaxPayloadBytes caps the retained debug copy of a payload.
	MaxPayloadBytes = 64 * 1024
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9 ()\-]{7,}[0-9]`)
)

// CleanString strips control characters and caps the length. Applied to
// every provider-supplied string before persistence.
func CleanString(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if maxLen > 0 && len(out) > maxLen {
		out = truncateUTF8(out, maxLen)
	}
	return strings.TrimSpace(out)
}

// ErrorMessage redacts an internal error for ledger storage: control
// characters stripped, length capped. Secrets never appear because callers
// pass error text, not payloads or configuration.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return CleanString(err.Error(), MaxErrorLength)
}

// ScrubPayload produces the retained debug copy of a raw body: control
// characters (except whitespace) stripped, emails and phone numbers masked,
// size capped. Returns the scrubbed body and whether it was truncated.
func ScrubPayload(raw []byte) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range string(raw) {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()
	s = emailPattern.ReplaceAllStringFunc(s, maskEmail)
	s = phonePattern.ReplaceAllString(s, "[phone]")

	truncated := false
	if len(s) > MaxPayloadBytes {
		s = truncateUTF8(s, MaxPayloadBytes)
		truncated = true
	}
	return s, truncated
}

// maskEmail keeps the domain so debugging retains which provider tenant an
// event came from while the local part is masked.
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "[email]"
	}
	return "***@" + email[at+1:]
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
