package fiscal

import (
	"regexp"
	"strings"
)

var (
	spaceRun = regexp.MustCompile(`[ ]+`)

	// completeItemRow is a row that already holds name, VAT tag and the three numeric columns.
	// Only needed for already flattened input, where no indented price row follows.
	completeItemRow = regexp.MustCompile(`\(\D\)[ ]+[0-9.,]+[ ]+[0-9.,]+[ ]+[0-9.,]+[ ]*$`)
)

// normalizeNewlines converts CRLF line endings to LF
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// isPriceRow reports whether a physical line is the numeric row that ends an item:
// indented, starting with a number and ending with a price
func isPriceRow(line string) bool {
	if !strings.HasPrefix(line, " ") {
		return false
	}
	trimmed := strings.TrimSpace(line)
	first, _, _ := strings.Cut(trimmed, " ")
	if _, ok := parseLocaleNumber(first); !ok {
		return false
	}
	return trailingNumber.MatchString(trimmed)
}

// closesItem reports whether a physical line completes the logical item in progress
func closesItem(line string) bool {
	return isPriceRow(line) || completeItemRow.MatchString(line)
}

// flattenItems merges item rows the printer wrapped over several lines,
// returning one logical line per item. An item that never reaches its
// price row is dropped.
func flattenItems(block string) []string {
	var (
		lines   []string
		pending string
	)

	for _, line := range strings.Split(normalizeNewlines(block), "\n") {
		if line == "" {
			continue
		}

		pending = spaceRun.ReplaceAllString(pending+line, " ")
		if closesItem(line) {
			if item := strings.TrimSpace(pending); item != "" {
				lines = append(lines, item)
			}
			pending = ""
		}
	}

	return lines
}
