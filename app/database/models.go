package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoredOffering represents an offerings row
type StoredOffering struct {
	ID        string
	CreatedAt time.Time
	Offering
}

func nullableDecimal(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func parseNullableDecimal(s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
