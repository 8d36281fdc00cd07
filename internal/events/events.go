package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/quickeats/order-service/pkg/models"
)

const (
	// OrderEventsTopic carries all order lifecycle events.
	OrderEventsTopic = "order-events"
	// OrderEventsDLQTopic receives events that exhausted consumer retries.
	OrderEventsDLQTopic = "order-events.dlq"
)

// Order event types.
const (
	TypeOrderCreated = "order.created"
	TypeOrderUpdated = "order.updated"
	TypeOrderDeleted = "order.deleted"
)

// OrderEvent is the message published for every order lifecycle change. It
// carries a summary of the order, not the full item list.
type OrderEvent struct {
	EventID     string             `json:"eventId"`
	Type        string             `json:"type"`
	OrderID     int64              `json:"orderId"`
	CustomerID  int64              `json:"customerId"`
	TotalAmount float64            `json:"totalAmount"`
	Status      models.OrderStatus `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
	EventTime   time.Time          `json:"eventTime"`
}

// NewOrderEvent builds an event for the given lifecycle change.
func NewOrderEvent(eventType string, order *models.Order) OrderEvent {
	return OrderEvent{
		EventID:     uuid.New().String(),
		Type:        eventType,
		OrderID:     order.OrderID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
		EventTime:   time.Now().UTC(),
	}
}
