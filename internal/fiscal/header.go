package fiscal

import "strings"

// Fixed line positions in the receipt header
const (
	taxIDLine    = 0
	nameLine     = 1
	posLine      = 2
	addressLine  = 3
	locationLine = 4
)

// headerLines splits the header into physical lines
func headerLines(header string) []string {
	return strings.Split(normalizeNewlines(header), "\n")
}

// lineAt returns the trimmed line at index i, or nil when the header is shorter
func lineAt(lines []string, i int) *string {
	if i >= len(lines) {
		return nil
	}
	s := strings.TrimSpace(lines[i])
	return &s
}

// parseCompany reads the issuer from the header
func parseCompany(header string) *Company {
	if header == "" {
		return nil
	}

	lines := headerLines(header)
	company := &Company{
		TaxID:   lineAt(lines, taxIDLine),
		Name:    lineAt(lines, nameLine),
		Address: lineAt(lines, addressLine),
	}

	// "Београд-Нови Београд" is city and municipality, a line without dash is both
	if location := lineAt(lines, locationLine); location != nil {
		city, municipality, found := strings.Cut(*location, "-")
		if !found {
			municipality = city
		}
		city = strings.TrimSpace(city)
		municipality = strings.TrimSpace(municipality)
		company.City = &city
		company.Municipality = &municipality
	}

	return company
}

// parsePointOfSale reads the "<id>-<name>" register line of the header
func parsePointOfSale(header string) *PointOfSale {
	if header == "" {
		return nil
	}

	lines := headerLines(header)
	if len(lines) <= posLine {
		return nil
	}

	line := lines[posLine]
	idPart, _, _ := strings.Cut(line, "-")
	id := strings.TrimSpace(idPart)

	name := strings.TrimSpace(strings.Replace(line, id, "", 1))
	name = strings.TrimSpace(strings.TrimPrefix(name, "-"))

	return &PointOfSale{
		ID:   &id,
		Name: &name,
	}
}
