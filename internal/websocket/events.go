package websocket

import (
	"context"
	"fmt"

	"github.com/console-zone/rental/internal/events"
	"github.com/console-zone/rental/internal/storage/models"
)

// EventBroadcaster pushes booking events to connected staff screens.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

func (b *EventBroadcaster) BookingConfirmed(ctx context.Context, e events.BookingConfirmed) error {
	return b.broadcast(e.Category, NewMessage(TypeBookingConfirmed, e))
}

func (b *EventBroadcaster) BookingRejected(ctx context.Context, e events.BookingRejected) error {
	return b.broadcast(e.Category, NewMessage(TypeBookingRejected, e))
}

func (b *EventBroadcaster) RepriceFlagged(ctx context.Context, e events.RepriceFlagged) error {
	return b.broadcast(e.Category, NewMessage(TypeRepriceFlagged, e))
}

func (b *EventBroadcaster) Repriced(ctx context.Context, e events.Repriced) error {
	return b.broadcast(e.Category, NewMessage(TypeRepriced, e))
}

// UnitStatusChanged sends a unit status event after a maintenance update.
func (b *EventBroadcaster) UnitStatusChanged(unit models.InventoryUnit) error {
	return b.broadcast(unit.Category, NewMessage(TypeUnitStatus, UnitStatusPayload{
		UnitID:   unit.ID,
		Category: unit.Category,
		Status:   string(unit.Status),
	}))
}

func (b *EventBroadcaster) broadcast(category string, msg Message) error {
	data, err := msg.JSON()
	if err != nil {
		return fmt.Errorf("encoding websocket message: %w", err)
	}

	b.hub.Broadcast(category, data)
	return nil
}

var _ events.Notifier = (*EventBroadcaster)(nil)
