package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DealType selects the commission rate and pool minimum.
type DealType string

const (
	DealRental    DealType = "RENTAL"
	DealSale      DealType = "SALE"
	DealDeveloper DealType = "DEVELOPER"
)

// Valid reports whether d is a known deal type.
func (d DealType) Valid() bool {
	switch d {
	case DealRental, DealSale, DealDeveloper:
		return true
	}
	return false
}

// Requirement is a normalized client request for a property.
type Requirement struct {
	ClientID  string          `json:"client_id" validate:"required"`
	Location  string          `json:"location" validate:"required"`
	Bedrooms  int             `json:"bedrooms" validate:"gte=0,lte=20"`
	BudgetMin decimal.Decimal `json:"budget_min"`
	BudgetMax decimal.Decimal `json:"budget_max"`
	DealKind  DealType        `json:"deal_kind" validate:"required,oneof=RENTAL SALE DEVELOPER"`
}

// NormalizeLocation upper-cases and trims a location so matching is exact
// but case-insensitive.
func NormalizeLocation(loc string) string {
	return strings.ToUpper(strings.TrimSpace(loc))
}
