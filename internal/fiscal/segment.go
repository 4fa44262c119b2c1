package fiscal

import "strings"

// Literal markers printed by every fiscal device. They have to match byte for byte.
const (
	documentBanner   = "============ ФИСКАЛНИ РАЧУН ============"
	salesBanner      = "-------------ПРОМЕТ ПРОДАЈА-------------"
	doubleRule       = "========================================"
	singleRule       = "----------------------------------------"
	itemsHeaderLabel = "Укупно"

	totalLabel   = "Укупан износ:"
	dateLabel    = "ПФР време:"
	numberLabel  = "ПФР број рачуна:"
	counterLabel = "Бројач рачуна:"
)

// sections holds the zones of a receipt the extractors work on
type sections struct {
	header string
	items  string
}

// splitPart returns the i-th piece of s split around sep, and whether it exists
func splitPart(s, sep string, i int) (string, bool) {
	parts := strings.Split(s, sep)
	if i >= len(parts) {
		return "", false
	}
	return parts[i], true
}

// segment cuts the receipt into its header and item zones.
// Footer values are not sliced here, they are looked up by label in the full text.
func segment(text string) sections {
	var s sections

	if head, _, found := strings.Cut(text, salesBanner); found {
		head = strings.Replace(head, documentBanner+"\r\n", "", 1)
		head = strings.Replace(head, documentBanner+"\n", "", 1)
		s.header = head
	}

	body, ok := splitPart(text, doubleRule, 1)
	if !ok {
		return s
	}
	body, _ = splitPart(body, singleRule, 0)
	if items, ok := splitPart(body, itemsHeaderLabel, 1); ok {
		s.items = items
	}

	return s
}
