package database

import (
	"context"

	"github.com/shopspring/decimal"
)

// Offering is the record handed to a backend for storage.
type Offering struct {
	CompanyCIK        string
	CompanyName       string
	CompanyURL        string
	LiveStatus        string
	FundingPortal     string
	MaxOfferingAmount decimal.NullDecimal
	PricePerShare     decimal.NullDecimal
	CompanyState      string
	DeadlineDate      string
	SignatureDate     string
	DocumentURL       string
	Summary           string
}

// OfferingRepository is the storage surface the ingestion run needs.
// Exists matches both key values exactly; Create returns the backend's ID
// for the new record.
type OfferingRepository interface {
	Exists(ctx context.Context, companyCIK, deadlineDate string) (bool, error)
	Create(ctx context.Context, offering Offering) (string, error)
}

// OfferingReader is implemented by backends that can list what they store.
type OfferingReader interface {
	List(ctx context.Context, limit int) ([]StoredOffering, error)
	Count(ctx context.Context) (int, error)
}
