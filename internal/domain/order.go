package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals go over the wire as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type OrderItem struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type DeliveryDetails struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type Order struct {
	ID              string          `json:"id"`
	Items           []OrderItem     `json:"items"`
	DeliveryDetails DeliveryDetails `json:"delivery_details"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Elapsed reports how long ago the order was created relative to now.
func (o *Order) Elapsed(now time.Time) time.Duration {
	return now.Sub(o.CreatedAt)
}
