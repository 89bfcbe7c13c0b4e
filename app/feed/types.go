package feed

import (
	"time"

	"github.com/shopspring/decimal"
)

// Feed processing types

type Entry struct {
	ID      string
	Title   string
	Link    string
	Updated *time.Time
}

// Offering is one Reg CF offering as extracted from a filing's primary document.
// CompanyCIK and DeadlineDate together identify it in storage.
type Offering struct {
	CompanyCIK        string
	CompanyName       string
	CompanyURL        string
	LiveStatus        string // LIVE or TEST
	FundingPortal     string
	MaxOfferingAmount decimal.NullDecimal
	PricePerShare     decimal.NullDecimal
	CompanyState      string
	DeadlineDate      string // YYYY-MM-DD when parseable, raw value otherwise
	SignatureDate     string

	DocumentURL string
	Summary     string // issuer website summary, optional
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Marker   string         `yaml:"marker"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxItems        int  `yaml:"max_items"`
	Timeout         int  `yaml:"timeout"` // seconds, whole run
}
