package fiscal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateRun       = regexp.MustCompile(`[ .:0-9]+`)
	dateTimeShape = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})\.? +(\d{1,2}):(\d{1,2}):(\d{1,2})$`)
	lineBreaks    = strings.NewReplacer(" ", "", "\r\n", "", "\n", "")
)

// afterLabel returns the text following the first occurrence of label,
// up to the next occurrence of the same label
func afterLabel(text, label string) (string, bool) {
	return splitPart(text, label, 1)
}

// joinWrapped glues back a value the printer wrapped over several lines
func joinWrapped(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}

// parseTotal reads the grand total, 0 when missing or unreadable
func parseTotal(text string) float64 {
	rest, ok := afterLabel(text, totalLabel)
	if !ok {
		return 0
	}

	token := firstNumber.FindString(rest)
	if token == "" {
		return 0
	}
	total, ok := parseLocaleNumber(token)
	if !ok {
		return 0
	}
	return total
}

// parseDate reads the "DD.MM.YYYY. HH:MM:SS" PFR timestamp.
// The civil time is built in loc and shifted by loc's offset, so the
// returned instant carries the printed wall clock as UTC. This matches
// existing consumers only when loc is the zone the receipt was issued in.
func parseDate(text string, loc *time.Location) *time.Time {
	rest, ok := afterLabel(text, dateLabel)
	if !ok {
		return nil
	}

	raw := strings.TrimSpace(dateRun.FindString(rest))
	m := dateTimeShape.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}

	parts := make([]int, 0, 6)
	for _, p := range m[1:] {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		parts = append(parts, n)
	}

	civil := time.Date(parts[2], time.Month(parts[1]), parts[0], parts[3], parts[4], parts[5], 0, loc)
	_, offset := civil.Zone()
	date := civil.Add(time.Duration(offset) * time.Second).UTC()
	return &date
}

// parseNumber reads the PFR receipt number, which may be wrapped over several lines
func parseNumber(text string) *string {
	rest, ok := afterLabel(text, numberLabel)
	if !ok {
		return nil
	}

	value, _ := splitPart(rest, counterLabel, 0)
	return nonEmpty(joinWrapped(value))
}

// parseCounter reads the receipt counter up to the closing rule line
func parseCounter(text string) *string {
	rest, ok := afterLabel(text, counterLabel)
	if !ok {
		return nil
	}

	value, _ := splitPart(rest, "=", 0)
	return nonEmpty(joinWrapped(value))
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
