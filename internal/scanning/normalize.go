package scanning

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const byteOrderMark = "\ufeff"

// NormalizeText prepares extracted text for the receipt parser.
// It drops a byte order mark and a markdown code fence an LLM may have
// wrapped the transcript in, and composes decomposed characters so the
// Cyrillic labels match byte for byte. Line breaks and indentation are kept.
func NormalizeText(text string) string {
	text = strings.TrimPrefix(text, byteOrderMark)

	if trimmed := strings.TrimSpace(text); strings.HasPrefix(trimmed, "```") {
		// The opening fence may carry a language tag, the whole line goes
		_, body, _ := strings.Cut(trimmed, "\n")
		body = strings.TrimRight(body, " \r\n")
		body = strings.TrimSuffix(body, "```")
		text = strings.TrimRight(body, " \r\n") + "\n"
	}

	return norm.NFC.String(text)
}
