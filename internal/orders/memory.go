package orders

import (
	"context"
	"sync"
	"time"

	"github.com/quickeats/order-service/pkg/models"
)

// MemoryStore is an in-memory Store used by tests and for running the
// service without a database. A single lock covers the map and the insertion
// index, which also gives every operation the per-order atomicity the
// Postgres store gets from row locks.
type MemoryStore struct {
	mutex  sync.RWMutex
	nextID int64
	orders map[int64]*models.Order
	index  []int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[int64]*models.Order),
	}
}

func (s *MemoryStore) Create(ctx context.Context, customerID, restaurantID int64, items []models.OrderItem) (*models.Order, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextID++
	now := time.Now().UTC()
	order := &models.Order{
		OrderID:      s.nextID,
		CustomerID:   customerID,
		RestaurantID: restaurantID,
		Status:       models.StatusCreated,
		Items:        append([]models.OrderItem(nil), items...),
		TotalAmount:  models.TotalAmount(items),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.orders[order.OrderID] = order
	s.index = append(s.index, order.OrderID)
	return copyOrder(order), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, orderID int64) (*models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	orders := make([]models.Order, 0, len(s.index))
	for _, id := range s.index {
		orders = append(orders, *copyOrder(s.orders[id]))
	}
	return orders, nil
}

func (s *MemoryStore) History(ctx context.Context, customerID int64) ([]models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	orders := make([]models.Order, 0)
	for _, id := range s.index {
		if order := s.orders[id]; order.CustomerID == customerID {
			orders = append(orders, *copyOrder(order))
		}
	}
	return orders, nil
}

func (s *MemoryStore) Update(ctx context.Context, orderID int64, update *models.OrderUpdate) (*models.Order, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}

	if update.CustomerID != nil {
		order.CustomerID = *update.CustomerID
	}
	if update.RestaurantID != nil {
		order.RestaurantID = *update.RestaurantID
	}
	if update.Status != nil {
		order.Status = *update.Status
	}
	if update.Items != nil {
		order.Items = append([]models.OrderItem(nil), update.Items...)
	}
	order.TotalAmount = models.TotalAmount(order.Items)
	order.UpdatedAt = time.Now().UTC()

	return copyOrder(order), nil
}

func (s *MemoryStore) Delete(ctx context.Context, orderID int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.orders[orderID]; !ok {
		return ErrOrderNotFound
	}
	delete(s.orders, orderID)
	for i, id := range s.index {
		if id == orderID {
			s.index = append(s.index[:i], s.index[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// copyOrder returns a deep copy so callers never alias stored state.
func copyOrder(order *models.Order) *models.Order {
	out := *order
	out.Items = append([]models.OrderItem(nil), order.Items...)
	return &out
}
