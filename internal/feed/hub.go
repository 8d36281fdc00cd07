package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quickeats/order-service/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	// The dashboard is served off a different origin than the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// OrderMessage is what feed subscribers receive for every order change.
type OrderMessage struct {
	Type      string        `json:"type"`
	Order     *models.Order `json:"order"`
	Timestamp time.Time     `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan OrderMessage
}

// Hub fans order lifecycle messages out to connected websocket clients.
// Clients whose send buffer is full are dropped rather than blocking the
// broadcast loop.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan OrderMessage
	register   chan *client
	unregister chan *client
	mutex      sync.RWMutex
	logger     *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan OrderMessage, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithField("client_count", count).Info("Feed client connected")

		case c := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithField("client_count", count).Info("Feed client disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastOrder queues an order change for all subscribers. Drops the
// message if the broadcast buffer is full.
func (h *Hub) BroadcastOrder(eventType string, order *models.Order) {
	message := OrderMessage{
		Type:      eventType,
		Order:     order,
		Timestamp: time.Now().UTC(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Feed broadcast buffer full, dropping message")
	}
}

// HandleWebSocket upgrades the request and subscribes the connection to the
// feed.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan OrderMessage, 64),
	}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// readPump discards client input and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WithError(err).Error("Feed connection error")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				h.logger.WithError(err).Error("Failed to marshal feed message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
