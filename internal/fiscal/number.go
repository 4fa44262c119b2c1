package fiscal

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// numericPrefix is the longest leading run that reads as a plain decimal number
	numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)`)

	// trailingNumber is a locale formatted number at the very end of a line
	trailingNumber = regexp.MustCompile(`[0-9.,]+$`)

	// firstNumber is the first locale formatted number anywhere in the text
	firstNumber = regexp.MustCompile(`[0-9.,]+`)
)

// parseLocaleNumber reads a Serbian formatted number ("1.009,99") as a float.
// Every '.' is a grouping separator and the first ',' is the decimal separator.
// Like a lenient float parser, trailing garbage after a valid prefix is ignored.
func parseLocaleNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	prefix := numericPrefix.FindString(strings.TrimSpace(s))
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(prefix)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// cutTrailingNumber removes the trailing number of a line and returns the remaining text
func cutTrailingNumber(line string) string {
	return strings.TrimSpace(trailingNumber.ReplaceAllString(line, ""))
}

// trailingNumberValue parses the trailing number of a line.
// found is false when the line does not end with a number at all, ok is false
// when the token exists but cannot be read as a number.
func trailingNumberValue(line string) (value float64, found bool, ok bool) {
	token := trailingNumber.FindString(line)
	if token == "" {
		return 0, false, false
	}
	value, ok = parseLocaleNumber(token)
	return value, true, ok
}
