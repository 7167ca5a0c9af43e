package invoice

import (
	"regexp"
	"strings"
)

// DefaultMaxLineItems bounds table parsing against pathological input.
const DefaultMaxLineItems = 20

// minDescriptionLen rejects table captures too short to be a real item
// description (stray column fragments, currency codes).
const minDescriptionLen = 6

// tableHeaderPatterns recognize the column-header line that opens an
// itemized table region.
var tableHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:description|item)s?\b.*\b(?:qty|quantity|amount|total)\b`),
	regexp.MustCompile(`(?i)\b(?:qty|quantity)\b.*\b(?:price|rate|unit)\b`),
	regexp.MustCompile(`(?i)\b(?:price|rate)\b.*\b(?:amount|total)\b`),
}

// tableStopPattern ends the table region: summary and footer vocabulary at
// the start of a line means the itemized block is over.
var tableStopPattern = regexp.MustCompile(
	`(?i)^\s*(?:sub[\s-]?total|tax|total|grand\s+total|amount\s+due|balance|notes?|payment|due\s+date|thank\s+you|terms)\b`)

// Candidate row shapes, tried in order. Groups: description/quantity/price
// and amount positions differ per shape; the two-group shape is the
// fallback for tables without quantity columns.
var (
	rowDescQtyPriceAmount = regexp.MustCompile(`^(.+?)\s+(\d+(?:\.\d+)?)\s+[$€£]?([\d,]+(?:\.\d{1,2})?)\s+[$€£]?([\d,]+(?:\.\d{1,2})?)$`)
	rowQtyDescPriceAmount = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s+(.+?)\s+[$€£]?([\d,]+(?:\.\d{1,2})?)\s+[$€£]?([\d,]+(?:\.\d{1,2})?)$`)
	rowDescAmount         = regexp.MustCompile(`^(.+?)\s+[$€£]?([\d,]+\.\d{2})$`)
)

// LineItemParser scans text lines for a tabular description/qty/price/amount
// region bounded by header and footer markers.
type LineItemParser struct {
	MaxItems int
}

// NewLineItemParser returns a parser with the default item cap.
func NewLineItemParser() *LineItemParser {
	return &LineItemParser{MaxItems: DefaultMaxLineItems}
}

// Parse returns the ordered line items found in text, or nil when no table
// header is recognized; invoices without itemized tables are normal, not an
// error. Rows matching no candidate shape are skipped silently.
func (p *LineItemParser) Parse(text string) []LineItem {
	maxItems := p.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxLineItems
	}

	var items []LineItem
	inTable := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !inTable {
			if isTableHeader(line) {
				inTable = true
			}
			continue
		}

		if tableStopPattern.MatchString(line) {
			break
		}

		if item, ok := parseRow(line); ok {
			items = append(items, item)
			if len(items) >= maxItems {
				break
			}
		}
	}

	return items
}

func isTableHeader(line string) bool {
	for _, re := range tableHeaderPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// parseRow attempts the candidate shapes in order and returns the first one
// whose groups survive validation. Amount must be positive in every shape;
// a row without a valid amount is discarded, never coerced to zero.
func parseRow(line string) (LineItem, bool) {
	if m := rowDescQtyPriceAmount.FindStringSubmatch(line); m != nil {
		if item, ok := buildItem(m[1], m[2], m[3], m[4]); ok {
			return item, true
		}
	}
	if m := rowQtyDescPriceAmount.FindStringSubmatch(line); m != nil {
		if item, ok := buildItem(m[2], m[1], m[3], m[4]); ok {
			return item, true
		}
	}
	if m := rowDescAmount.FindStringSubmatch(line); m != nil {
		if item, ok := buildItem(m[1], "", "", m[2]); ok {
			return item, true
		}
	}
	return LineItem{}, false
}

func buildItem(desc, qty, price, amount string) (LineItem, bool) {
	desc = strings.TrimSpace(desc)
	if len(desc) < minDescriptionLen {
		return LineItem{}, false
	}

	amt, ok := parseAmount(amount)
	if !ok || amt <= 0 {
		return LineItem{}, false
	}

	item := LineItem{Description: desc, Amount: amt}

	if qty != "" {
		q, ok := parseAmount(qty)
		if !ok || q <= 0 {
			return LineItem{}, false
		}
		item.Quantity = &q
	}
	if price != "" {
		pr, ok := parseAmount(price)
		if !ok || pr < 0 {
			return LineItem{}, false
		}
		item.UnitPrice = &pr
	}

	return item, true
}
