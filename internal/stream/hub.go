package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"tsfeed/internal/metrics"
	"tsfeed/internal/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// Hub broadcasts freshly resampled buckets to connected WebSocket clients.
// A client subscribes to one series via the ?series= query parameter, or to
// everything when the parameter is absent.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn   *websocket.Conn
	series string // empty means all series
	send   chan []byte
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the connection and registers the client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}

	c := &client{
		conn:   conn,
		series: r.URL.Query().Get("series"),
		send:   make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.ActiveStreamClients.Inc()

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Broadcast sends a bucket to every client subscribed to its series
func (h *Hub) Broadcast(bucket *models.BucketResponse) {
	data, err := json.Marshal(bucket)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.series != "" && c.series != bucket.Series {
			continue
		}
		select {
		case c.send <- data:
		default:
			// slow consumer, drop the update
			metrics.PublishFailures.WithLabelValues("websocket").Inc()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			metrics.PublishSuccess.WithLabelValues("websocket").Inc()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards inbound messages and detects disconnects
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.ActiveStreamClients.Dec()
	}
	h.mu.Unlock()
	c.conn.Close()
}
