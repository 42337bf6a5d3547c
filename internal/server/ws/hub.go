// Package ws pushes paged market views to browser clients over WebSocket.
// Each connection keeps its own open/resolved page cursors; every snapshot
// swap re-renders the pages each connection is looking at.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/predicthub/predicthub/internal/service"
	"github.com/predicthub/predicthub/internal/viewmodel"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024

	sendBufferSize = 64
)

// Pager renders one page of a market subset.
type Pager interface {
	List(subset viewmodel.Subset, page int) service.MarketPage
}

// Client actions.
const (
	ActionPage = "page"
	ActionNext = "next"
	ActionPrev = "prev"
)

// Message types sent to clients.
const (
	TypeMarkets = "markets"
	TypeError   = "error"
)

type clientMsg struct {
	Action string `json:"action"`
	Subset string `json:"subset"`
	Page   int    `json:"page"`
}

type serverMsg struct {
	Type    string              `json:"type"`
	Payload *service.MarketPage `json:"payload,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// Hub tracks connected clients and re-renders their pages on refresh.
type Hub struct {
	pager      Pager
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	refresh    chan struct{}
	done       chan struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a hub. allowedOrigins restricts browser origins the same
// way the CORS middleware does; an empty list or "*" accepts any.
func NewHub(pager Pager, allowedOrigins []string, logger *slog.Logger) *Hub {
	return &Hub{
		pager: pager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		refresh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "ws_hub")),
	}
}

// Refresh schedules a re-render of every client. Calls made while a
// re-render is already pending are coalesced; it never blocks.
func (h *Hub) Refresh() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

// Run starts the hub's main event loop. It exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: client connected", slog.Int("total_clients", total))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected", slog.Int("total_clients", total))

		case <-h.refresh:
			h.mu.RLock()
			for c := range h.clients {
				c.renderAll()
			}
			h.mu.RUnlock()
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection, sends the
// first page of both subsets and registers the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	c.renderAll()
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
