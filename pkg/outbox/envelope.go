package outbox

import (
	"encoding/json"
	"time"

	"github.com/bitedash/bitedash-backend/pkg/enums"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID int64           `json:"userId"`
	Role   enums.ActorRole `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// OrderCreatedData is the payload body for order.created events.
type OrderCreatedData struct {
	OrderID     int64  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	PayerID     int64  `json:"payerId"`
	VendorID    int64  `json:"vendorId"`
	TotalAmount string `json:"totalAmount"`
	Status      string `json:"status"`
}

// OrderStatusChangedData is the payload body for order.status_changed events.
type OrderStatusChangedData struct {
	OrderID        int64   `json:"orderId"`
	OrderNumber    string  `json:"orderNumber"`
	PayerID        int64   `json:"payerId"`
	VendorID       int64   `json:"vendorId"`
	PreviousStatus *string `json:"previousStatus,omitempty"`
	NewStatus      string  `json:"newStatus"`
}
