package models

import (
	"testing"
)

func TestOrderItemValid(t *testing.T) {
	tests := []struct {
		name string
		item OrderItem
		want bool
	}{
		{"valid item", OrderItem{MenuItemID: 1, Quantity: 2, Price: 12.99}, true},
		{"free item", OrderItem{MenuItemID: 7, Quantity: 1, Price: 0}, true},
		{"zero menu item id", OrderItem{MenuItemID: 0, Quantity: 2, Price: 12.99}, false},
		{"negative menu item id", OrderItem{MenuItemID: -1, Quantity: 2, Price: 12.99}, false},
		{"zero quantity", OrderItem{MenuItemID: 1, Quantity: 0, Price: 12.99}, false},
		{"negative quantity", OrderItem{MenuItemID: 1, Quantity: -3, Price: 12.99}, false},
		{"negative price", OrderItem{MenuItemID: 1, Quantity: 2, Price: -0.01}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTotalAmount(t *testing.T) {
	tests := []struct {
		name  string
		items []OrderItem
		want  float64
	}{
		{"empty", nil, 0},
		{"single item", []OrderItem{{MenuItemID: 1, Quantity: 2, Price: 12.99}}, 25.98},
		{"multiple items", []OrderItem{
			{MenuItemID: 1, Quantity: 2, Price: 12.99},
			{MenuItemID: 3, Quantity: 1, Price: 24.99},
		}, 50.97},
		{"zero price item", []OrderItem{{MenuItemID: 5, Quantity: 3, Price: 0}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalAmount(tt.items); got != tt.want {
				t.Errorf("TotalAmount() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterValidItems(t *testing.T) {
	items := []OrderItem{
		{MenuItemID: 1, Quantity: 2, Price: 12.99},
		{MenuItemID: 0, Quantity: 1, Price: 5},
		{MenuItemID: 2, Quantity: 0, Price: 5},
		{MenuItemID: 3, Quantity: 1, Price: -1},
		{MenuItemID: 4, Quantity: 1, Price: 8.50},
	}

	valid := FilterValidItems(items)
	if len(valid) != 2 {
		t.Fatalf("expected 2 valid items, got %d", len(valid))
	}
	if valid[0].MenuItemID != 1 || valid[1].MenuItemID != 4 {
		t.Errorf("filter changed item order: %+v", valid)
	}
}

func TestCreateOrderRequestValidate(t *testing.T) {
	validItems := []OrderItem{{MenuItemID: 1, Quantity: 2, Price: 12.99}}

	tests := []struct {
		name      string
		req       CreateOrderRequest
		wantField string
	}{
		{"valid", CreateOrderRequest{CustomerID: 101, RestaurantID: 5, Items: validItems}, ""},
		{"missing customer", CreateOrderRequest{RestaurantID: 5, Items: validItems}, "customerId"},
		{"negative customer", CreateOrderRequest{CustomerID: -1, RestaurantID: 5, Items: validItems}, "customerId"},
		{"missing restaurant", CreateOrderRequest{CustomerID: 101, Items: validItems}, "restaurantId"},
		{"no items", CreateOrderRequest{CustomerID: 101, RestaurantID: 5}, "items"},
		{"only invalid items", CreateOrderRequest{
			CustomerID:   101,
			RestaurantID: 5,
			Items:        []OrderItem{{MenuItemID: 0, Quantity: 1, Price: 5}},
		}, "items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := tt.req.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(items) == 0 {
					t.Fatal("expected validated items")
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("error field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestCreateOrderRequestValidateFiltersInvalidItems(t *testing.T) {
	req := CreateOrderRequest{
		CustomerID:   101,
		RestaurantID: 5,
		Items: []OrderItem{
			{MenuItemID: 1, Quantity: 2, Price: 12.99},
			{MenuItemID: 0, Quantity: 1, Price: 99},
		},
	}

	items, err := req.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].MenuItemID != 1 {
		t.Errorf("expected invalid item to be dropped, got %+v", items)
	}
}

func TestUpdateOrderRequestValidate(t *testing.T) {
	goodID := int64(7)
	badID := int64(-2)
	goodStatus := "READY"
	badStatus := "SHIPPED"
	emptyItems := []OrderItem{{MenuItemID: 0, Quantity: 0, Price: -1}}
	newItems := []OrderItem{{MenuItemID: 3, Quantity: 1, Price: 24.99}}

	tests := []struct {
		name      string
		req       UpdateOrderRequest
		wantField string
	}{
		{"empty update", UpdateOrderRequest{}, ""},
		{"identity change", UpdateOrderRequest{CustomerID: &goodID, RestaurantID: &goodID}, ""},
		{"bad customer", UpdateOrderRequest{CustomerID: &badID}, "customerId"},
		{"bad restaurant", UpdateOrderRequest{RestaurantID: &badID}, "restaurantId"},
		{"status change", UpdateOrderRequest{Status: &goodStatus}, ""},
		{"unknown status", UpdateOrderRequest{Status: &badStatus}, "status"},
		{"item replacement", UpdateOrderRequest{Items: &newItems}, ""},
		{"all items invalid", UpdateOrderRequest{Items: &emptyItems}, "items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update, err := tt.req.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if update == nil {
					t.Fatal("expected update")
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("error field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	for _, valid := range []string{"CREATED", "PREPARING", "READY", "DELIVERED", "CANCELLED"} {
		if _, err := ParseOrderStatus(valid); err != nil {
			t.Errorf("ParseOrderStatus(%q) unexpected error: %v", valid, err)
		}
	}

	for _, invalid := range []string{"", "created", "SHIPPED", "Ready"} {
		if _, err := ParseOrderStatus(invalid); err == nil {
			t.Errorf("ParseOrderStatus(%q) expected error", invalid)
		}
	}
}
