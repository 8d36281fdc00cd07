package orders

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/quickeats/order-service/pkg/models"
	"github.com/sirupsen/logrus"
)

// EventPublisher receives order lifecycle notifications. Publish failures are
// logged by the handler but never fail the HTTP request.
type EventPublisher interface {
	PublishOrderCreated(order *models.Order) error
	PublishOrderUpdated(order *models.Order) error
	PublishOrderDeleted(order *models.Order) error
}

// FeedBroadcaster pushes order changes to connected live-feed clients.
type FeedBroadcaster interface {
	BroadcastOrder(eventType string, order *models.Order)
}

// Handler serves the public order API.
type Handler struct {
	store     Store
	logger    *logrus.Logger
	publisher EventPublisher
	feed      FeedBroadcaster
}

func NewHandler(store Store, logger *logrus.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// SetPublisher attaches an event publisher. Optional: the service runs
// without Kafka.
func (h *Handler) SetPublisher(publisher EventPublisher) {
	h.publisher = publisher
}

// SetFeed attaches a live-feed broadcaster. Optional.
func (h *Handler) SetFeed(feed FeedBroadcaster) {
	h.feed = feed
}

// Router builds the route table. The paths and methods are fixed by the
// front-end contract.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/orders", h.CreateOrder).Methods("POST")
	router.HandleFunc("/orders", h.ListOrders).Methods("GET")
	router.HandleFunc("/orders/history/{customerId}", h.GetHistory).Methods("GET")
	router.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET")
	router.HandleFunc("/orders/{id}", h.UpdateOrder).Methods("PUT")
	router.HandleFunc("/orders/{id}", h.DeleteOrder).Methods("DELETE")

	// Browser preflight requests are answered by the CORS middleware.
	router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	router.Use(corsMiddleware)
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(h.logger))
	return router
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode create order request")
		h.respondWithError(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   models.ErrKindValidation,
			Message: "invalid request body",
		})
		return
	}

	items, err := req.Validate()
	if err != nil {
		h.respondValidationError(w, err)
		return
	}

	order, err := h.store.Create(r.Context(), req.CustomerID, req.RestaurantID, items)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create order")
		h.respondInternalError(w)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_id":     order.OrderID,
		"customer_id":  order.CustomerID,
		"total_amount": order.TotalAmount,
		"items_count":  len(order.Items),
	}).Info("Order created")

	h.publish(func(p EventPublisher) error { return p.PublishOrderCreated(order) }, order.OrderID)
	h.broadcast("order_created", order)
	h.respondWithJSON(w, http.StatusCreated, order)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list orders")
		h.respondInternalError(w)
		return
	}

	h.logger.WithField("count", len(orders)).Info("Retrieved orders")
	h.respondWithJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "id", "orderId")
	if !ok {
		return
	}

	order, err := h.store.GetByID(r.Context(), orderID)
	if err == ErrOrderNotFound {
		h.respondNotFound(w, orderID)
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get order")
		h.respondInternalError(w)
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "id", "orderId")
	if !ok {
		return
	}

	var req models.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode update order request")
		h.respondWithError(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   models.ErrKindValidation,
			Message: "invalid request body",
		})
		return
	}

	update, err := req.Validate()
	if err != nil {
		h.respondValidationError(w, err)
		return
	}

	order, err := h.store.Update(r.Context(), orderID, update)
	if err == ErrOrderNotFound {
		h.respondNotFound(w, orderID)
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to update order")
		h.respondInternalError(w)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_id":     order.OrderID,
		"total_amount": order.TotalAmount,
		"status":       order.Status,
	}).Info("Order updated")

	h.publish(func(p EventPublisher) error { return p.PublishOrderUpdated(order) }, order.OrderID)
	h.broadcast("order_updated", order)
	h.respondWithJSON(w, http.StatusOK, order)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "id", "orderId")
	if !ok {
		return
	}

	order, err := h.store.GetByID(r.Context(), orderID)
	if err == ErrOrderNotFound {
		h.respondNotFound(w, orderID)
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load order for deletion")
		h.respondInternalError(w)
		return
	}

	if err := h.store.Delete(r.Context(), orderID); err != nil {
		if err == ErrOrderNotFound {
			h.respondNotFound(w, orderID)
			return
		}
		h.logger.WithError(err).Error("Failed to delete order")
		h.respondInternalError(w)
		return
	}

	h.logger.WithField("order_id", orderID).Info("Order deleted")

	h.publish(func(p EventPublisher) error { return p.PublishOrderDeleted(order) }, orderID)
	h.broadcast("order_deleted", order)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.pathID(w, r, "customerId", "customerId")
	if !ok {
		return
	}

	orders, err := h.store.History(r.Context(), customerID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get order history")
		h.respondInternalError(w)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"customer_id": customerID,
		"count":       len(orders),
	}).Info("Retrieved order history")

	h.respondWithJSON(w, http.StatusOK, orders)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unhealthy",
			"service": "order-service",
			"error":   "store unavailable",
		})
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "order-service",
	})
}

// pathID parses a positive integer path variable, writing a validation error
// on failure.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, pathVar, field string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[pathVar], 10, 64)
	if err != nil || id <= 0 {
		h.respondWithError(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   models.ErrKindValidation,
			Field:   field,
			Message: field + " must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func (h *Handler) publish(fn func(EventPublisher) error, orderID int64) {
	if h.publisher == nil {
		return
	}
	if err := fn(h.publisher); err != nil {
		// Eventing is best effort. The order is already committed.
		h.logger.WithError(err).WithField("order_id", orderID).Error("Failed to publish order event")
	}
}

func (h *Handler) broadcast(eventType string, order *models.Order) {
	if h.feed != nil {
		h.feed.BroadcastOrder(eventType, order)
	}
}

func (h *Handler) respondValidationError(w http.ResponseWriter, err error) {
	resp := models.ErrorResponse{Error: models.ErrKindValidation, Message: err.Error()}
	if verr, ok := err.(*models.ValidationError); ok {
		resp.Field = verr.Field
		resp.Message = verr.Message
	}
	h.respondWithError(w, http.StatusBadRequest, resp)
}

func (h *Handler) respondNotFound(w http.ResponseWriter, orderID int64) {
	h.respondWithError(w, http.StatusNotFound, models.ErrorResponse{
		Error:   models.ErrKindNotFound,
		Message: "order " + strconv.FormatInt(orderID, 10) + " not found",
	})
}

func (h *Handler) respondInternalError(w http.ResponseWriter) {
	h.respondWithError(w, http.StatusInternalServerError, models.ErrorResponse{
		Error:   models.ErrKindInternal,
		Message: "internal server error",
	})
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, body models.ErrorResponse) {
	h.respondWithJSON(w, code, body)
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID returns the request id set by the middleware, if any.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID)))
	})
}

// corsMiddleware allows browser access from any origin. The original service
// is called directly from a SPA served off a different port.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rw.status,
				"duration":   time.Since(start).Milliseconds(),
				"remote":     r.RemoteAddr,
				"request_id": RequestID(r.Context()),
			}).Info("Request completed")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the logging wrapper.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
