package domain

import "time"

// Ad statuses. New ads are published as active immediately; rejected is
// terminal and reached after repeated content violations.
const (
	AdStatusPending  = "pending"
	AdStatusActive   = "active"
	AdStatusRejected = "rejected"
	AdStatusSold     = "sold"
)

// Ad is a car sale listing.
type Ad struct {
	ID          string `json:"id"`
	SellerID    string `json:"seller_id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// PriceAmount is the seller's asking price in minor units of Currency.
	PriceAmount int64  `json:"price_amount"`
	Currency    string `json:"currency"`

	// Converted prices in minor units, recalculated from the rates that
	// were current when the ad was last written.
	PriceUSD int64   `json:"price_usd"`
	PriceEUR int64   `json:"price_eur"`
	PriceUAH int64   `json:"price_uah"`
	RateUSD  float64 `json:"rate_usd"`
	RateEUR  float64 `json:"rate_eur"`
	RateUAH  float64 `json:"rate_uah"`

	Year    int    `json:"year"`
	Mileage int    `json:"mileage"`
	ModelID string `json:"model_id"`

	Status         string `json:"status"`
	RejectionCount int    `json:"rejection_count"`
	Views          int64  `json:"views"`

	// Version is bumped on every successful update and guards against
	// lost writes from concurrent editors.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsValidAdStatus checks whether the given string is a known ad status.
func IsValidAdStatus(status string) bool {
	switch status {
	case AdStatusPending, AdStatusActive, AdStatusRejected, AdStatusSold:
		return true
	}
	return false
}

// Supported price currencies.
const (
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyUAH = "UAH"
)

// IsValidCurrency checks whether the given code is a supported currency.
func IsValidCurrency(code string) bool {
	switch code {
	case CurrencyUSD, CurrencyEUR, CurrencyUAH:
		return true
	}
	return false
}
