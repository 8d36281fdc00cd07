package notify

import (
	"fmt"

	"github.com/quickeats/order-service/internal/events"
	"github.com/quickeats/order-service/pkg/models"
	"github.com/sirupsen/logrus"
)

// Notifier turns order events into customer notifications. Delivery is
// log-only; a real channel (email, push) would slot in behind Deliver.
type Notifier struct {
	logger *logrus.Logger
}

func NewNotifier(logger *logrus.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// HandleOrderEvent implements events.OrderEventHandler.
func (n *Notifier) HandleOrderEvent(event events.OrderEvent) error {
	return n.Deliver(event.CustomerID, Message(event))
}

// IsRetryable classifies delivery failures for the retry consumer. Log-only
// delivery never fails transiently.
func (n *Notifier) IsRetryable(err error) bool {
	return false
}

// Deliver sends the notification to the customer.
func (n *Notifier) Deliver(customerID int64, message string) error {
	n.logger.WithFields(logrus.Fields{
		"customer_id": customerID,
		"message":     message,
	}).Info("Notification delivered")
	return nil
}

// Message renders the customer-facing text for an order event.
func Message(event events.OrderEvent) string {
	switch event.Type {
	case events.TypeOrderCreated:
		return fmt.Sprintf("Your order #%d has been placed. Total: $%.2f", event.OrderID, event.TotalAmount)
	case events.TypeOrderDeleted:
		return fmt.Sprintf("Your order #%d has been removed", event.OrderID)
	case events.TypeOrderUpdated:
		switch event.Status {
		case models.StatusPreparing:
			return fmt.Sprintf("Your order #%d is being prepared", event.OrderID)
		case models.StatusReady:
			return fmt.Sprintf("Your order #%d is ready", event.OrderID)
		case models.StatusDelivered:
			return fmt.Sprintf("Your order #%d has been delivered. Enjoy!", event.OrderID)
		case models.StatusCancelled:
			return fmt.Sprintf("Your order #%d has been cancelled", event.OrderID)
		default:
			return fmt.Sprintf("Your order #%d has been updated. Total: $%.2f", event.OrderID, event.TotalAmount)
		}
	default:
		return fmt.Sprintf("Update for order #%d", event.OrderID)
	}
}
