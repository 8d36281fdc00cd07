package orders

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quickeats/order-service/pkg/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	handler := NewHandler(NewMemoryStore(), testLogger())
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)
	return NewClient(server.URL, testLogger())
}

func clientCreateRequest() *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		CustomerID:   101,
		RestaurantID: 5,
		Items:        []models.OrderItem{{MenuItemID: 1, Quantity: 2, Price: 12.99}},
	}
}

func TestClientCreateAndGet(t *testing.T) {
	client := newTestClient(t)

	created, err := client.CreateOrder(clientCreateRequest())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if created.OrderID != 1 || created.TotalAmount != 25.98 {
		t.Errorf("created = %+v", created)
	}

	fetched, err := client.GetOrder(created.OrderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if fetched.Status != models.StatusCreated {
		t.Errorf("Status = %q, want CREATED", fetched.Status)
	}
}

func TestClientListAndHistory(t *testing.T) {
	client := newTestClient(t)

	client.CreateOrder(clientCreateRequest())
	other := clientCreateRequest()
	other.CustomerID = 202
	client.CreateOrder(other)

	orders, err := client.GetOrders()
	if err != nil {
		t.Fatalf("GetOrders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("GetOrders len = %d, want 2", len(orders))
	}

	history, err := client.GetHistory(101)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 1 || history[0].CustomerID != 101 {
		t.Errorf("history = %+v", history)
	}
}

func TestClientUpdateAndDelete(t *testing.T) {
	client := newTestClient(t)

	created, err := client.CreateOrder(clientCreateRequest())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	newItems := []models.OrderItem{{MenuItemID: 3, Quantity: 1, Price: 24.99}}
	updated, err := client.UpdateOrder(created.OrderID, &models.UpdateOrderRequest{Items: &newItems})
	if err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}
	if updated.TotalAmount != 24.99 {
		t.Errorf("TotalAmount = %v, want 24.99", updated.TotalAmount)
	}

	if err := client.DeleteOrder(created.OrderID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if err := client.DeleteOrder(created.OrderID); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("second DeleteOrder = %v, want ErrOrderNotFound", err)
	}
}

func TestClientErrorMapping(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.GetOrder(42); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("GetOrder(42) = %v, want ErrOrderNotFound", err)
	}

	bad := clientCreateRequest()
	bad.CustomerID = 0
	_, err := client.CreateOrder(bad)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("CreateOrder error = %T (%v), want *models.ValidationError", err, err)
	}
	if verr.Field != "customerId" {
		t.Errorf("validation field = %q, want customerId", verr.Field)
	}
}

func TestClientUnexpectedErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"internal_error","message":"database unavailable"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.GetOrders()

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T (%v), want *APIError", err, err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Kind != models.ErrKindInternal {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClientTransportError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", testLogger())
	if _, err := client.GetOrders(); err == nil {
		t.Error("expected transport error")
	}
}
