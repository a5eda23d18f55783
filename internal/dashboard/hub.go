// Package dashboard streams pipeline events to admin dashboard clients
// over WebSocket. Each connection is an independent subscriber on the
// broadcast publisher; a slow or dead client is dropped without slowing
// aggregation or the other clients.
package dashboard

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/realtime"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second

	// sendBufferSize bounds per-client queueing. A client that falls this
	// far behind is disconnected rather than backpressuring the publisher.
	sendBufferSize = 64
)

// ClientGauge tracks the connected client count. Satisfied by
// prometheus.Gauge.
type ClientGauge interface {
	Inc()
	Dec()
}

// Options configures the Hub.
type Options struct {
	Publisher *realtime.Publisher
	Logger    *log.Logger

	// Latest, when set, provides the snapshot sent to a client on connect
	// so the dashboard renders immediately instead of waiting for a tick.
	Latest func() *domain.AggregatedMetrics

	// Clients, when set, is moved on connect and disconnect.
	Clients ClientGauge

	// CheckOrigin overrides the upgrader's origin policy.
	CheckOrigin func(r *http.Request) bool
}

// Hub upgrades dashboard connections and fans pipeline events out to them.
type Hub struct {
	publisher *realtime.Publisher
	logger    *log.Logger
	latest    func() *domain.AggregatedMetrics
	clients   ClientGauge
	upgrader  websocket.Upgrader
}

// NewHub creates a hub on the given publisher.
func NewHub(opts Options) (*Hub, error) {
	if opts.Publisher == nil {
		return nil, errors.New("dashboard: publisher is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &Hub{
		publisher: opts.Publisher,
		logger:    opts.Logger,
		latest:    opts.Latest,
		clients:   opts.Clients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}, nil
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &client{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: h.logger,
	}

	if h.clients != nil {
		h.clients.Inc()
		defer h.clients.Dec()
	}

	if h.latest != nil {
		if metrics := h.latest(); metrics != nil {
			client.enqueue(realtime.Event{Type: realtime.EventMetricsUpdated, Metrics: metrics})
		}
	}

	unsubscribe := h.publisher.Subscribe(client.enqueue)
	defer unsubscribe()

	go client.writeLoop()
	client.readLoop()
}

// client is one connected dashboard session.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	logger *log.Logger
}

// enqueue marshals the event onto the send buffer. A full buffer closes
// the connection: the write loop will bail and the read loop will see the
// closed socket.
func (c *client) enqueue(event realtime.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Printf("websocket: failed to marshal %s event: %v", event.Type, err)
		return
	}

	select {
	case c.send <- payload:
	case <-c.done:
	default:
		c.logger.Printf("websocket: client too slow, dropping connection")
		_ = c.conn.Close()
	}
}

// writeLoop drains the send buffer and keeps the connection alive with
// pings.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop discards inbound frames; the stream is one-way. It returns when
// the client disconnects, which tears the session down.
func (c *client) readLoop() {
	defer close(c.done)
	defer func() { _ = c.conn.Close() }()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
