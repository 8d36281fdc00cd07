package orders

import (
	"context"
	"errors"

	"github.com/quickeats/order-service/pkg/models"
)

// ErrOrderNotFound is returned for operations on an orderId that does not
// exist, including a second delete of the same order.
var ErrOrderNotFound = errors.New("order not found")

// Store persists orders. Implementations must keep totalAmount consistent
// with the stored items, assign immutable ids and creation timestamps, and
// make Update and Delete atomic with respect to concurrent operations on the
// same order. List and History return orders in creation order.
type Store interface {
	Create(ctx context.Context, customerID, restaurantID int64, items []models.OrderItem) (*models.Order, error)
	GetByID(ctx context.Context, orderID int64) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	History(ctx context.Context, customerID int64) ([]models.Order, error)
	Update(ctx context.Context, orderID int64, update *models.OrderUpdate) (*models.Order, error)
	Delete(ctx context.Context, orderID int64) error
	Ping(ctx context.Context) error
	Close() error
}
