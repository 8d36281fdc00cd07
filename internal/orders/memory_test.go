package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/quickeats/order-service/pkg/models"
)

func testItems() []models.OrderItem {
	return []models.OrderItem{{MenuItemID: 1, Quantity: 2, Price: 12.99}}
}

func TestMemoryStoreCreate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	order, err := store.Create(ctx, 101, 5, testItems())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if order.OrderID != 1 {
		t.Errorf("OrderID = %d, want 1", order.OrderID)
	}
	if order.Status != models.StatusCreated {
		t.Errorf("Status = %q, want %q", order.Status, models.StatusCreated)
	}
	if order.TotalAmount != 25.98 {
		t.Errorf("TotalAmount = %v, want 25.98", order.TotalAmount)
	}
	if order.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	second, err := store.Create(ctx, 102, 5, testItems())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if second.OrderID != 2 {
		t.Errorf("second OrderID = %d, want 2", second.OrderID)
	}
}

func TestMemoryStoreGetByID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, _ := store.Create(ctx, 101, 5, testItems())

	got, err := store.GetByID(ctx, created.OrderID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.OrderID != created.OrderID || got.TotalAmount != created.TotalAmount {
		t.Errorf("GetByID returned %+v, want %+v", got, created)
	}

	if _, err := store.GetByID(ctx, 999); err != ErrOrderNotFound {
		t.Errorf("GetByID(999) error = %v, want ErrOrderNotFound", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, _ := store.Create(ctx, 101, 5, testItems())
	created.Items[0].Price = 999

	fresh, _ := store.GetByID(ctx, created.OrderID)
	if fresh.Items[0].Price != 12.99 {
		t.Errorf("stored item mutated through returned copy: %v", fresh.Items[0].Price)
	}
}

func TestMemoryStoreListCreationOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Create(ctx, 101, 5, testItems())
	}

	orders, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(orders) != 5 {
		t.Fatalf("len = %d, want 5", len(orders))
	}
	for i, order := range orders {
		if order.OrderID != int64(i+1) {
			t.Errorf("orders[%d].OrderID = %d, want %d", i, order.OrderID, i+1)
		}
	}
}

func TestMemoryStoreHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Create(ctx, 101, 5, testItems())
	store.Create(ctx, 202, 5, testItems())
	store.Create(ctx, 101, 8, testItems())

	history, err := store.History(ctx, 101)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len = %d, want 2", len(history))
	}
	if history[0].OrderID != 1 || history[1].OrderID != 3 {
		t.Errorf("history not in creation order: %d, %d", history[0].OrderID, history[1].OrderID)
	}

	empty, err := store.History(ctx, 999)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty history, got %d orders", len(empty))
	}
}

func TestMemoryStoreUpdateItems(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, _ := store.Create(ctx, 101, 5, testItems())

	newItems := []models.OrderItem{{MenuItemID: 3, Quantity: 1, Price: 24.99}}
	updated, err := store.Update(ctx, created.OrderID, &models.OrderUpdate{Items: newItems})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.TotalAmount != 24.99 {
		t.Errorf("TotalAmount = %v, want 24.99", updated.TotalAmount)
	}
	if updated.CustomerID != 101 || updated.RestaurantID != 5 {
		t.Errorf("identity fields changed: customer %d, restaurant %d", updated.CustomerID, updated.RestaurantID)
	}
	if updated.CreatedAt != created.CreatedAt {
		t.Error("CreatedAt changed on update")
	}
}

func TestMemoryStoreUpdateIdentity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, _ := store.Create(ctx, 101, 5, testItems())

	customer := int64(777)
	status := models.StatusReady
	updated, err := store.Update(ctx, created.OrderID, &models.OrderUpdate{
		CustomerID: &customer,
		Status:     &status,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.CustomerID != 777 {
		t.Errorf("CustomerID = %d, want 777", updated.CustomerID)
	}
	if updated.Status != models.StatusReady {
		t.Errorf("Status = %q, want READY", updated.Status)
	}
	// Items untouched, total unchanged.
	if updated.TotalAmount != 25.98 {
		t.Errorf("TotalAmount = %v, want 25.98", updated.TotalAmount)
	}
}

func TestMemoryStoreUpdateNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Update(context.Background(), 42, &models.OrderUpdate{}); err != ErrOrderNotFound {
		t.Errorf("error = %v, want ErrOrderNotFound", err)
	}
}

func TestMemoryStoreDeleteTwice(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, _ := store.Create(ctx, 101, 5, testItems())

	if err := store.Delete(ctx, created.OrderID); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if _, err := store.GetByID(ctx, created.OrderID); err != ErrOrderNotFound {
		t.Errorf("GetByID after delete = %v, want ErrOrderNotFound", err)
	}
	if err := store.Delete(ctx, created.OrderID); err != ErrOrderNotFound {
		t.Errorf("second Delete = %v, want ErrOrderNotFound", err)
	}

	orders, _ := store.List(ctx)
	if len(orders) != 0 {
		t.Errorf("expected empty store, got %d orders", len(orders))
	}
}

func TestMemoryStoreConcurrentUpdateDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const n = 50
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		order, _ := store.Create(ctx, 101, 5, testItems())
		ids[i] = order.OrderID
	}

	newItems := []models.OrderItem{{MenuItemID: 9, Quantity: 3, Price: 2.50}}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			store.Update(ctx, id, &models.OrderUpdate{Items: newItems})
		}(id)
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			store.Delete(ctx, id)
		}(id)
	}
	wg.Wait()

	// Every order was deleted exactly once; any surviving state would mean
	// an update resurrected a deleted order.
	orders, _ := store.List(ctx)
	if len(orders) != 0 {
		t.Errorf("expected all orders deleted, %d remain", len(orders))
	}
	for _, id := range ids {
		if err := store.Delete(ctx, id); err != ErrOrderNotFound {
			t.Errorf("Delete(%d) after concurrent ops = %v, want ErrOrderNotFound", id, err)
		}
	}
}
