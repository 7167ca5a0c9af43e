package invoice

import "strings"

// Fields holds the scalar values matched by the pattern tables. Absent
// fields stay empty; an all-empty Fields is still a successful extraction.
type Fields struct {
	InvoiceNumber string
	Date          string
	Vendor        string
	Subtotal      string
	Tax           string
	TaxRate       string
	Total         string
}

// ExtractFields applies the pattern table selected by docType to the
// acquired text. When typeRules is false (or the type has no table of its
// own) only the Standard Invoice patterns run; otherwise the type-specific
// rules are tried first and the standard rules serve as fallback per field.
//
// For the tax field, a capture containing a percent sign is recorded as
// TaxRate instead of Tax; a single match never sets both.
func ExtractFields(text string, docType DocumentType, typeRules bool) Fields {
	var out Fields

	var extra map[field][]fieldRule
	if typeRules {
		extra = typePatterns[docType]
	}

	for _, f := range extractionFields {
		rules := standardPatterns[f]
		if typed, ok := extra[f]; ok {
			rules = append(append([]fieldRule{}, typed...), rules...)
		}
		value, isRate := matchField(text, f, rules)
		if value == "" {
			continue
		}
		switch f {
		case fieldInvoiceNumber:
			out.InvoiceNumber = value
		case fieldDate:
			out.Date = value
		case fieldVendor:
			out.Vendor = value
		case fieldSubtotal:
			out.Subtotal = value
		case fieldTax:
			if isRate {
				out.TaxRate = value
			} else {
				out.Tax = value
			}
		case fieldTotal:
			out.Total = value
		}
	}

	return out
}

// matchField runs the ordered rules for one field and returns the first
// validated capture. The second return reports whether a tax capture was a
// percentage rather than an amount.
func matchField(text string, f field, rules []fieldRule) (string, bool) {
	for _, rule := range rules {
		m := rule.re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		raw := m[1]
		if f == fieldTax && strings.Contains(raw, "%") {
			if value, ok := validRate(raw); ok {
				return value, true
			}
			continue
		}
		if value, ok := rule.validate(raw); ok {
			return value, false
		}
	}
	return "", false
}

// Empty reports whether no field matched at all.
func (f Fields) Empty() bool {
	return f == Fields{}
}
