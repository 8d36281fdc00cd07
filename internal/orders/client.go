package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/quickeats/order-service/pkg/models"
	"github.com/sirupsen/logrus"
)

// APIError is a non-2xx response the client could not map to a more specific
// error.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("order service returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
}

// Client is a typed HTTP client for the order service. Transport failures are
// returned wrapped but otherwise verbatim; error bodies are mapped to
// ErrOrderNotFound, *models.ValidationError, or *APIError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) CreateOrder(req *models.CreateOrderRequest) (*models.Order, error) {
	var order models.Order
	if err := c.do("POST", "/orders", req, &order); err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"order_id":     order.OrderID,
		"total_amount": order.TotalAmount,
	}).Info("Order created via API")
	return &order, nil
}

func (c *Client) GetOrder(orderID int64) (*models.Order, error) {
	var order models.Order
	if err := c.do("GET", "/orders/"+strconv.FormatInt(orderID, 10), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) GetOrders() ([]models.Order, error) {
	var orders []models.Order
	if err := c.do("GET", "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UpdateOrder(orderID int64, req *models.UpdateOrderRequest) (*models.Order, error) {
	var order models.Order
	if err := c.do("PUT", "/orders/"+strconv.FormatInt(orderID, 10), req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) DeleteOrder(orderID int64) error {
	return c.do("DELETE", "/orders/"+strconv.FormatInt(orderID, 10), nil, nil)
}

func (c *Client) GetHistory(customerID int64) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do("GET", "/orders/history/"+strconv.FormatInt(customerID, 10), nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach order service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.mapError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode order service response: %w", err)
	}
	return nil
}

func (c *Client) mapError(resp *http.Response) error {
	var body models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Kind: "unknown", Message: "unreadable error body"}
	}

	switch body.Error {
	case models.ErrKindNotFound:
		return ErrOrderNotFound
	case models.ErrKindValidation:
		return &models.ValidationError{Field: body.Field, Message: body.Message}
	default:
		return &APIError{StatusCode: resp.StatusCode, Kind: body.Error, Message: body.Message}
	}
}
