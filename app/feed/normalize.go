package feed

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

const isoDate = "2006-01-02"

// EDGAR Form C documents write dates as MM-DD-YYYY; other sources use ISO.
var dateLayouts = []string{
	"1-2-2006",
	"1/2/2006",
	isoDate,
	time.RFC3339,
}

// NormalizeDate returns value as YYYY-MM-DD when it parses with a known
// layout, and the trimmed input otherwise. Duplicate detection compares the
// normalized form, so "04-30-2024" and "2024-04-30" name the same deadline.
func NormalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(isoDate)
		}
	}

	return value
}

// ParseAmount reads a money or price value leniently. Currency symbols,
// thousands separators and spaces are ignored; anything that still isn't a
// number yields an invalid (null) decimal.
func ParseAmount(value string) decimal.NullDecimal {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, value)

	if cleaned == "" {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}

	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// CleanText applies NFKC normalization and collapses runs of whitespace.
func CleanText(value string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(value)), " ")
}
