package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeBookingConfirmed MessageType = "booking.confirmed"
	TypeBookingRejected  MessageType = "booking.rejected"
	TypeRepriceFlagged   MessageType = "booking.reprice_flagged"
	TypeRepriced         MessageType = "booking.repriced"
	TypeUnitStatus       MessageType = "unit.status_changed"

	// Client -> Server command types
	TypeSubscribe MessageType = "subscribe"
	TypePing      MessageType = "ping"

	// Server -> Client response types
	TypeSubscribeAck MessageType = "subscribe.ack"
	TypePong         MessageType = "pong"
	TypeError        MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// Command is a message sent by a client.
type Command struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribePayload is the payload of a subscribe command.
type SubscribePayload struct {
	Categories []string `json:"categories"`
}

// UnitStatusPayload is the payload for unit.status_changed events.
type UnitStatusPayload struct {
	UnitID   string `json:"unit_id"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
