// Package events defines the booking notifications published to staff screens and downstream consumers.
package events

import (
	"context"
	"errors"
	"time"
)

// Type names an event on every transport.
type Type string

const (
	TypeBookingConfirmed Type = "booking.confirmed"
	TypeBookingRejected  Type = "booking.rejected"
	TypeRepriceFlagged   Type = "booking.reprice_flagged"
	TypeRepriced         Type = "booking.repriced"
)

type BookingConfirmed struct {
	ReservationID  string    `json:"reservation_id"`
	UnitID         string    `json:"unit_id"`
	Category       string    `json:"category"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	TotalPrice     int64     `json:"total_price"`
	RepricePending bool      `json:"reprice_pending"`
	Attempts       int       `json:"attempts"`
}

type BookingRejected struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// RepriceFlagged is sent when a held reservation is left without a confirmed price.
type RepriceFlagged struct {
	ReservationID string `json:"reservation_id"`
	UnitID        string `json:"unit_id"`
	Category      string `json:"category"`
	Reason        string `json:"reason"`
}

type Repriced struct {
	ReservationID string `json:"reservation_id"`
	Category      string `json:"category"`
	TotalPrice    int64  `json:"total_price"`
}

// Notifier receives booking outcomes. Errors are reported to the caller, which
// logs them; a failed notification never changes a booking's outcome.
type Notifier interface {
	BookingConfirmed(ctx context.Context, e BookingConfirmed) error
	BookingRejected(ctx context.Context, e BookingRejected) error
	RepriceFlagged(ctx context.Context, e RepriceFlagged) error
	Repriced(ctx context.Context, e Repriced) error
}

// Multi fans every event out to all notifiers and joins their errors.
type Multi []Notifier

func (m Multi) BookingConfirmed(ctx context.Context, e BookingConfirmed) error {
	return m.each(func(n Notifier) error { return n.BookingConfirmed(ctx, e) })
}

func (m Multi) BookingRejected(ctx context.Context, e BookingRejected) error {
	return m.each(func(n Notifier) error { return n.BookingRejected(ctx, e) })
}

func (m Multi) RepriceFlagged(ctx context.Context, e RepriceFlagged) error {
	return m.each(func(n Notifier) error { return n.RepriceFlagged(ctx, e) })
}

func (m Multi) Repriced(ctx context.Context, e Repriced) error {
	return m.each(func(n Notifier) error { return n.Repriced(ctx, e) })
}

func (m Multi) each(fn func(Notifier) error) error {
	var errs []error
	for _, n := range m {
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) BookingConfirmed(context.Context, BookingConfirmed) error { return nil }
func (Nop) BookingRejected(context.Context, BookingRejected) error   { return nil }
func (Nop) RepriceFlagged(context.Context, RepriceFlagged) error     { return nil }
func (Nop) Repriced(context.Context, Repriced) error                 { return nil }
