package fiscal

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// vatRule maps the printed tax label of an item to its rate
type vatRule struct {
	tags []string
	rate VATRate
}

// vatRules are checked in order, the first rule with a matching tag wins
var vatRules = []vatRule{
	{tags: []string{"(e)", "(E)", "(е)", "(Е)"}, rate: VATReduced},
	{tags: []string{"(a)", "(A)", "(g)", "(G)", "(г)", "(Г)"}, rate: VATExempt},
}

// measurementRule detects one unit by any of its Latin or Cyrillic spellings
type measurementRule struct {
	unit     MeasurementUnit
	patterns []*regexp.Regexp
}

// measurementRules are evaluated in declaration order, first match wins
var measurementRules = []measurementRule{
	newMeasurementRule(UnitPiece, "kom", "ком", "komad"),
	newMeasurementRule(UnitKilogram, "kg", "кг"),
	newMeasurementRule(UnitLiter, "l", "л"),
	newMeasurementRule(UnitBox, "kut", "кут"),
	newMeasurementRule(UnitPieceIntl, "pce", "пце"),
	newMeasurementRule(UnitMeter, "m", "м"),
	newMeasurementRule(UnitSquareMeter, "m2", "м2"),
}

// newMeasurementRule builds the /unit, (unit), [unit] and {unit} forms for every alias
func newMeasurementRule(unit MeasurementUnit, aliases ...string) measurementRule {
	rule := measurementRule{unit: unit}
	for _, alias := range aliases {
		a := regexp.QuoteMeta(alias)
		rule.patterns = append(rule.patterns,
			regexp.MustCompile(`/`+a),
			regexp.MustCompile(`\( ?`+a+` ?\)`),
			regexp.MustCompile(`\[ ?`+a+` ?\]`),
			regexp.MustCompile(`\{ ?`+a+` ?\}`),
		)
	}
	return rule
}

// unitTagPatterns strip a trailing measurement tag from a name, applied in order
var unitTagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/\D{1,3}\d?$`),
	regexp.MustCompile(`(?i)\( ?\D{1,3}\d? ?\)$`),
	regexp.MustCompile(`(?i)\[ ?\D{1,3}\d? ?\]$`),
	regexp.MustCompile(`(?i)\{ ?\D{1,3}\d? ?\}$`),
	regexp.MustCompile(`(?i)[ /]+(kom|kg|komad) *$`),
}

// skuRule extracts a product id from a name
type skuRule struct {
	pattern *regexp.Regexp
	// stripUnit removes the measurement tag before matching
	stripUnit bool
}

// skuRules are tried in order. A prefix id cannot start with a bracket, so
// "(30 min) Massage" is never read as an id. A suffix id needs at least 4 digits.
var skuRules = []skuRule{
	{pattern: regexp.MustCompile(`^([^0-9({\[]?\d+) *[-,]*`)},
	{pattern: regexp.MustCompile(` *[-,/]? *(\D?\d{4,}) *$`), stripUnit: true},
}

var (
	vatTag          = regexp.MustCompile(`\(\D\)`)
	separatorAfter  = regexp.MustCompile(`^ *[-,] *`)
	separatorBefore = regexp.MustCompile(` *[-/,]$`)
	separatorTail   = regexp.MustCompile(` *[-/,] *$`)
)

// parseItem extracts every field of one logical item line
func parseItem(line string) Item {
	fullName := itemFullName(line)
	sku := itemSKU(fullName)

	return Item{
		SKU:             sku,
		Name:            itemName(fullName, sku),
		FullName:        fullName,
		MeasurementUnit: measurementUnit(line),
		VATType:         vatType(line),
		UnitPrice:       itemUnitPrice(line),
		Amount:          itemAmount(line),
		Price:           itemPrice(line),
	}
}

// vatType returns the VAT rate of an item, standard rate when no tag is printed
func vatType(line string) VATRate {
	for _, rule := range vatRules {
		for _, tag := range rule.tags {
			if strings.Contains(line, tag) {
				return rule.rate
			}
		}
	}
	return VATStandard
}

// measurementUnit returns the unit of an item, kom when none is printed
func measurementUnit(line string) MeasurementUnit {
	lower := strings.ToLower(line)
	for _, rule := range measurementRules {
		for _, pattern := range rule.patterns {
			if pattern.MatchString(lower) {
				return rule.unit
			}
		}
	}
	return UnitPiece
}

// removeMeasurementType strips a trailing measurement tag such as "/KG" or "[M2 ]"
func removeMeasurementType(name string) string {
	for _, pattern := range unitTagPatterns {
		name = pattern.ReplaceAllString(name, "")
	}
	return name
}

// itemFullName is the part of the line before the VAT tag
func itemFullName(line string) *string {
	if line == "" {
		return nil
	}

	// Without a tag only the last character is cut off
	_, size := utf8.DecodeLastRuneInString(line)
	end := len(line) - size
	if tag := vatTag.FindString(line); tag != "" {
		end = strings.LastIndex(line, tag)
	}

	name := strings.TrimSpace(line[:end])
	return &name
}

// itemSKU finds the product id at the start or at the end of the name
func itemSKU(fullName *string) *string {
	if fullName == nil || *fullName == "" {
		return nil
	}

	for _, rule := range skuRules {
		name := *fullName
		if rule.stripUnit {
			name = removeMeasurementType(name)
		}
		if m := rule.pattern.FindStringSubmatch(name); m != nil {
			sku := strings.TrimSpace(m[1])
			return &sku
		}
	}
	return nil
}

// itemName cleans the full name of the product id and measurement tag
func itemName(fullName, sku *string) *string {
	if fullName == nil || *fullName == "" {
		return nil
	}

	name := *fullName
	if sku != nil {
		name = strings.Replace(name, *sku, "", 1)
		if separatorAfter.MatchString(name) {
			name = strings.TrimSpace(separatorAfter.ReplaceAllString(name, ""))
		}
		if separatorBefore.MatchString(name) {
			name = strings.TrimSpace(separatorBefore.ReplaceAllString(name, ""))
		}
	}

	name = removeMeasurementType(name)

	if sku != nil {
		name = separatorTail.ReplaceAllString(name, "")
	}

	name = strings.TrimSpace(name)
	return &name
}

// itemPrice is the line total, the last number of the line
func itemPrice(line string) *float64 {
	if line == "" {
		return nil
	}

	price, _, ok := trailingNumberValue(line)
	if !ok {
		price = 0
	}
	return &price
}

// itemAmount is the quantity, the number right before the price
func itemAmount(line string) *float64 {
	if line == "" {
		return nil
	}

	amount, _, ok := trailingNumberValue(cutTrailingNumber(line))
	if !ok {
		amount = 1
	}
	return &amount
}

// itemUnitPrice is the price of one unit, the third number from the end
func itemUnitPrice(line string) *float64 {
	if line == "" {
		return nil
	}

	unitPrice, found, ok := trailingNumberValue(cutTrailingNumber(cutTrailingNumber(line)))
	switch {
	case !found:
		unitPrice = 0
	case !ok:
		unitPrice = 1
	}
	return &unitPrice
}
