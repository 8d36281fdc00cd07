package notify

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/quickeats/order-service/internal/events"
	"github.com/quickeats/order-service/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name  string
		event events.OrderEvent
		want  string
	}{
		{
			"created",
			events.OrderEvent{Type: events.TypeOrderCreated, OrderID: 7, TotalAmount: 25.98},
			"Your order #7 has been placed. Total: $25.98",
		},
		{
			"deleted",
			events.OrderEvent{Type: events.TypeOrderDeleted, OrderID: 7},
			"Your order #7 has been removed",
		},
		{
			"preparing",
			events.OrderEvent{Type: events.TypeOrderUpdated, OrderID: 7, Status: models.StatusPreparing},
			"Your order #7 is being prepared",
		},
		{
			"ready",
			events.OrderEvent{Type: events.TypeOrderUpdated, OrderID: 7, Status: models.StatusReady},
			"Your order #7 is ready",
		},
		{
			"delivered",
			events.OrderEvent{Type: events.TypeOrderUpdated, OrderID: 7, Status: models.StatusDelivered},
			"Your order #7 has been delivered. Enjoy!",
		},
		{
			"cancelled",
			events.OrderEvent{Type: events.TypeOrderUpdated, OrderID: 7, Status: models.StatusCancelled},
			"Your order #7 has been cancelled",
		},
		{
			"updated without status change",
			events.OrderEvent{Type: events.TypeOrderUpdated, OrderID: 7, Status: models.StatusCreated, TotalAmount: 24.99},
			"Your order #7 has been updated. Total: $24.99",
		},
		{
			"unknown type",
			events.OrderEvent{Type: "order.unknown", OrderID: 7},
			"Update for order #7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.event); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandleOrderEvent(t *testing.T) {
	notifier := NewNotifier(testLogger())

	event := events.OrderEvent{
		Type:       events.TypeOrderCreated,
		OrderID:    1,
		CustomerID: 101,
	}
	if err := notifier.HandleOrderEvent(event); err != nil {
		t.Errorf("HandleOrderEvent: %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	notifier := NewNotifier(testLogger())
	if notifier.IsRetryable(errors.New("anything")) {
		t.Error("log-only delivery must not be retried")
	}
}
