// Package fiscal decodes the printed journal of a Serbian fiscal receipt
// into a structured Bill.
//
// Parsing never fails: sections that are missing or malformed leave the
// corresponding fields nil or at their default value. A Parser holds no
// mutable state and can be shared between goroutines.
package fiscal

import "time"

// Parser turns receipt text into a Bill
type Parser struct {
	location *time.Location
}

// Option configures a Parser
type Option func(*Parser)

// WithLocation sets the zone whose offset is used to normalize the receipt
// timestamp. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.location = loc
		}
	}
}

// NewParser creates a Parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{location: time.Local}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse decodes receipt text with the default Parser
func Parse(text string) *Bill {
	return defaultParser.Parse(text)
}

// Parse decodes receipt text. The returned Bill is never nil.
func (p *Parser) Parse(text string) *Bill {
	zones := segment(text)

	logical := flattenItems(zones.items)
	items := make([]Item, 0, len(logical))
	for _, line := range logical {
		items = append(items, parseItem(line))
	}

	return &Bill{
		Company: parseCompany(zones.header),
		POS:     parsePointOfSale(zones.header),
		Price:   parseTotal(text),
		Date:    parseDate(text, p.location),
		Number:  parseNumber(text),
		Counter: parseCounter(text),
		Items:   items,
	}
}
