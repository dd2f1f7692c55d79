package domain

import "time"

// CurrencyRate is a fetched exchange rate between two currencies.
type CurrencyRate struct {
	ID             string    `json:"id"`
	BaseCurrency   string    `json:"base_currency"`
	TargetCurrency string    `json:"target_currency"`
	Rate           float64   `json:"rate"`
	FetchedAt      time.Time `json:"fetched_at"`
}
