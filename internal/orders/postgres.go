package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quickeats/order-service/pkg/models"
	"github.com/sirupsen/logrus"
)

// PostgresStore is the production Store. Update and Delete lock the order row
// with SELECT ... FOR UPDATE so a read-modify-write cannot race a concurrent
// update or delete of the same order.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewPostgresStore(db *sql.DB, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			order_id BIGSERIAL PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			restaurant_id BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL,
			total_amount DECIMAL(10,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			item_id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(order_id) ON DELETE CASCADE,
			menu_item_id BIGINT NOT NULL,
			quantity INTEGER NOT NULL,
			price DECIMAL(10,2) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, customerID, restaurantID int64, items []models.OrderItem) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	order := &models.Order{
		CustomerID:   customerID,
		RestaurantID: restaurantID,
		Status:       models.StatusCreated,
		Items:        append([]models.OrderItem(nil), items...),
		TotalAmount:  models.TotalAmount(items),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, restaurant_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING order_id`,
		order.CustomerID, order.RestaurantID, order.Status, order.TotalAmount,
		order.CreatedAt, order.UpdatedAt,
	).Scan(&order.OrderID)
	if err != nil {
		return nil, err
	}

	if err := insertItems(ctx, tx, order.OrderID, order.Items); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, orderID int64) (*models.Order, error) {
	order := &models.Order{}
	err := s.db.QueryRowContext(ctx, `
		SELECT order_id, customer_id, restaurant_id, status, total_amount, created_at, updated_at
		FROM orders WHERE order_id = $1`, orderID,
	).Scan(
		&order.OrderID, &order.CustomerID, &order.RestaurantID,
		&order.Status, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	order.Items, err = s.loadItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Order, error) {
	return s.listWhere(ctx, `
		SELECT order_id, customer_id, restaurant_id, status, total_amount, created_at, updated_at
		FROM orders ORDER BY order_id ASC`)
}

func (s *PostgresStore) History(ctx context.Context, customerID int64) ([]models.Order, error) {
	return s.listWhere(ctx, `
		SELECT order_id, customer_id, restaurant_id, status, total_amount, created_at, updated_at
		FROM orders WHERE customer_id = $1 ORDER BY order_id ASC`, customerID)
}

func (s *PostgresStore) listWhere(ctx context.Context, query string, args ...interface{}) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.OrderID, &order.CustomerID, &order.RestaurantID,
			&order.Status, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Items, err = s.loadItems(ctx, orders[i].OrderID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *PostgresStore) Update(ctx context.Context, orderID int64, update *models.OrderUpdate) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order := &models.Order{}
	err = tx.QueryRowContext(ctx, `
		SELECT order_id, customer_id, restaurant_id, status, total_amount, created_at, updated_at
		FROM orders WHERE order_id = $1 FOR UPDATE`, orderID,
	).Scan(
		&order.OrderID, &order.CustomerID, &order.RestaurantID,
		&order.Status, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
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
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
			return nil, err
		}
		if err := insertItems(ctx, tx, orderID, update.Items); err != nil {
			return nil, err
		}
		order.Items = append([]models.OrderItem(nil), update.Items...)
	} else {
		order.Items, err = loadItemsTx(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
	}

	order.TotalAmount = models.TotalAmount(order.Items)
	order.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET customer_id = $1, restaurant_id = $2, status = $3, total_amount = $4, updated_at = $5
		WHERE order_id = $6`,
		order.CustomerID, order.RestaurantID, order.Status, order.TotalAmount,
		order.UpdatedAt, orderID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresStore) Delete(ctx context.Context, orderID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT order_id FROM orders WHERE order_id = $1 FOR UPDATE`, orderID).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) loadItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT menu_item_id, quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY item_id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func loadItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]models.OrderItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT menu_item_id, quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY item_id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0)
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.MenuItemID, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func insertItems(ctx context.Context, tx *sql.Tx, orderID int64, items []models.OrderItem) error {
	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, menu_item_id, quantity, price)
			VALUES ($1, $2, $3, $4)`,
			orderID, item.MenuItemID, item.Quantity, item.Price)
		if err != nil {
			return err
		}
	}
	return nil
}
