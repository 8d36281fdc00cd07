package models

import (
	"fmt"
	"time"
)

// OrderStatus is the closed set of states an order can be in.
type OrderStatus string

const (
	StatusCreated   OrderStatus = "CREATED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusReady     OrderStatus = "READY"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// ParseOrderStatus validates a status string against the closed enumeration.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case StatusCreated, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return OrderStatus(s), nil
	default:
		return "", &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("status must be one of: CREATED, PREPARING, READY, DELIVERED, CANCELLED, got %q", s),
		}
	}
}

// OrderItem is one line within an order. Price is the unit price snapshot
// taken at order time, not a live catalog lookup.
type OrderItem struct {
	MenuItemID int64   `json:"menuItemId"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}

// Valid reports whether the item passes per-item validation.
func (i OrderItem) Valid() bool {
	return i.MenuItemID > 0 && i.Quantity > 0 && i.Price >= 0
}

// Order is a customer's placed request for one or more menu items from one
// restaurant. JSON field names are fixed by the front-end contract.
type Order struct {
	OrderID      int64       `json:"orderId"`
	CustomerID   int64       `json:"customerId"`
	RestaurantID int64       `json:"restaurantId"`
	Status       OrderStatus `json:"status"`
	Items        []OrderItem `json:"items"`
	TotalAmount  float64     `json:"totalAmount"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"-"`
}

// TotalAmount sums price*quantity over the given items.
func TotalAmount(items []OrderItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// FilterValidItems drops items that fail per-item validation and returns the
// survivors. Invalid items are filtered rather than rejected, matching the
// behavior the front-end relies on.
func FilterValidItems(items []OrderItem) []OrderItem {
	valid := make([]OrderItem, 0, len(items))
	for _, item := range items {
		if item.Valid() {
			valid = append(valid, item)
		}
	}
	return valid
}

// ValidationError reports a single invalid or missing field. Callers can
// distinguish a malformed identifier from an empty item list by Field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	CustomerID   int64       `json:"customerId"`
	RestaurantID int64       `json:"restaurantId"`
	Items        []OrderItem `json:"items"`
}

// Validate checks the request and returns the filtered item list. It fails
// with a *ValidationError naming the offending field.
func (r *CreateOrderRequest) Validate() ([]OrderItem, error) {
	if r.CustomerID <= 0 {
		return nil, &ValidationError{Field: "customerId", Message: "customerId must be a positive integer"}
	}
	if r.RestaurantID <= 0 {
		return nil, &ValidationError{Field: "restaurantId", Message: "restaurantId must be a positive integer"}
	}
	items := FilterValidItems(r.Items)
	if len(items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "order must contain at least one valid item"}
	}
	return items, nil
}

// UpdateOrderRequest is the body of PUT /orders/{id}. Absent fields leave the
// stored values unchanged; a present items list replaces the stored one
// wholesale.
type UpdateOrderRequest struct {
	CustomerID   *int64       `json:"customerId,omitempty"`
	RestaurantID *int64       `json:"restaurantId,omitempty"`
	Status       *string      `json:"status,omitempty"`
	Items        *[]OrderItem `json:"items,omitempty"`
}

// OrderUpdate is a validated update ready to be applied by a store. Nil
// pointers mean "leave unchanged"; a nil Items slice means the item list is
// not being replaced.
type OrderUpdate struct {
	CustomerID   *int64
	RestaurantID *int64
	Status       *OrderStatus
	Items        []OrderItem
}

// Validate checks the present fields and returns the update to apply.
func (r *UpdateOrderRequest) Validate() (*OrderUpdate, error) {
	update := &OrderUpdate{}
	if r.CustomerID != nil {
		if *r.CustomerID <= 0 {
			return nil, &ValidationError{Field: "customerId", Message: "customerId must be a positive integer"}
		}
		update.CustomerID = r.CustomerID
	}
	if r.RestaurantID != nil {
		if *r.RestaurantID <= 0 {
			return nil, &ValidationError{Field: "restaurantId", Message: "restaurantId must be a positive integer"}
		}
		update.RestaurantID = r.RestaurantID
	}
	if r.Status != nil {
		status, err := ParseOrderStatus(*r.Status)
		if err != nil {
			return nil, err
		}
		update.Status = &status
	}
	if r.Items != nil {
		items := FilterValidItems(*r.Items)
		if len(items) == 0 {
			return nil, &ValidationError{Field: "items", Message: "replacement item list must contain at least one valid item"}
		}
		update.Items = items
	}
	return update, nil
}

// Error kinds carried in the "error" field of non-2xx response bodies.
const (
	ErrKindValidation = "validation_error"
	ErrKindNotFound   = "not_found"
	ErrKindInternal   = "internal_error"
)

// ErrorResponse is the machine-readable error body for non-2xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}
