package models

import (
	"time"
)

// ReservationStatus is the lifecycle status of a reservation.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// PriceStatus tracks whether the authoritative price was written.
// A reservation stays PricePending until ConfirmPrice succeeds; pending rows are
// picked up by the reconciler.
type PriceStatus string

const (
	PricePending   PriceStatus = "pending"
	PriceConfirmed PriceStatus = "confirmed"
)

// Reservation holds one unit for the half-open window [StartAt, EndAt).
type Reservation struct {
	ID              string            `json:"id"`
	UnitID          string            `json:"unit_id"`
	Category        string            `json:"category"`
	PlanTier        Tier              `json:"plan_tier"`
	UserID          *string           `json:"user_id,omitempty"`
	StartAt         time.Time         `json:"start_date"`
	EndAt           time.Time         `json:"end_date"`
	ControllerCount int               `json:"controller_count"`
	FulfillmentMode FulfillmentMode   `json:"fulfillment_mode"`
	Address         string            `json:"address,omitempty"`
	Status          ReservationStatus `json:"status"`
	BasePrice       int64             `json:"base_price"`
	ControllerPrice int64             `json:"controller_price"`
	TotalPrice      int64             `json:"total_price"`
	PriceStatus     PriceStatus       `json:"price_status"`
	Addons          []string          `json:"addons"`
	Notes           string            `json:"notes,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Overlaps reports whether the reservation's window intersects [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return Overlaps(r.StartAt, r.EndAt, start, end)
}

// Overlaps compares two half-open intervals.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// FulfillmentMode is how the unit reaches the requester.
type FulfillmentMode string

const (
	FulfillmentDelivery FulfillmentMode = "delivery"
	FulfillmentPickup   FulfillmentMode = "pickup"
)

// Valid reports whether m is a known mode.
func (m FulfillmentMode) Valid() bool {
	return m == FulfillmentDelivery || m == FulfillmentPickup
}
