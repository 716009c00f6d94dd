package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Fish struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	WeightKg   decimal.Decimal `json:"weight_kg"`
	CatchDate  time.Time       `json:"catch_date"`
	Location   string          `json:"location"`
	Grade      Grade           `json:"grade"`
	PricePerKg decimal.Decimal `json:"price_per_kg"`
	Available  bool            `json:"is_available"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Segment is an individually sellable cut of a fish. Position and size are
// layout hints for the selection map only.
type Segment struct {
	ID            int64           `json:"id"`
	FishID        int64           `json:"fish_id"`
	Name          string          `json:"name"`
	Type          SegmentType     `json:"segment_type"`
	WeightKg      decimal.Decimal `json:"weight_kg"`
	PositionX     float64         `json:"position_x"`
	PositionY     float64         `json:"position_y"`
	Width         float64         `json:"width"`
	Height        float64         `json:"height"`
	Available     bool            `json:"is_available"`
	ReservedUntil *time.Time      `json:"reserved_until"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Held reports whether an unexpired hold is on the segment at now.
func (s Segment) Held(now time.Time) bool {
	return s.ReservedUntil != nil && !s.ReservedUntil.Before(now)
}

// Purchasable reports whether the segment can be held or bought at now.
func (s Segment) Purchasable(now time.Time) bool {
	return s.Available && !s.Held(now)
}

type Customer struct {
	Name            string     `json:"customer_name"`
	Email           string     `json:"customer_email"`
	Phone           string     `json:"customer_phone,omitempty"`
	DeliveryAddress string     `json:"delivery_address,omitempty"`
	DeliveryDate    *time.Time `json:"delivery_date,omitempty"`
}

// Order is the immutable record of a sale. SegmentIDs and the totals are
// frozen at commit time.
type Order struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"order_number"`
	UserID        string          `json:"user_id"`
	FishID        int64           `json:"fish_id"`
	SegmentIDs    []int64         `json:"segment_ids"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Customer
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Version   int         `json:"version"`
}
