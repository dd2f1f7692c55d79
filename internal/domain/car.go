package domain

import "time"

// CarBrand is a car manufacturer, e.g. "BMW".
type CarBrand struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CarModel is a model belonging to a brand, e.g. "X5".
type CarModel struct {
	ID        string    `json:"id"`
	BrandID   string    `json:"brand_id"`
	Name      string    `json:"name"`
	Brand     *CarBrand `json:"brand,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
