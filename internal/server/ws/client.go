package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/predicthub/predicthub/internal/viewmodel"
)

// client represents a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	cursors viewmodel.Cursors
	closed  bool
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// renderAll pushes the current page of both subsets.
func (c *client) renderAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderLocked(viewmodel.SubsetOpen)
	c.renderLocked(viewmodel.SubsetResolved)
}

func (c *client) renderLocked(subset viewmodel.Subset) {
	page := c.hub.pager.List(subset, c.cursors.For(subset).Page())
	c.enqueueLocked(serverMsg{Type: TypeMarkets, Payload: &page})
}

// enqueueLocked drops the message when the client is too slow to keep up.
func (c *client) enqueueLocked(msg serverMsg) {
	if c.closed {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("ws: dropping message for slow client")
	}
}

// handle applies one client action to that subset's cursor and re-renders
// it.
func (c *client) handle(msg clientMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subset, err := viewmodel.ParseSubset(msg.Subset)
	if err != nil {
		c.enqueueLocked(serverMsg{Type: TypeError, Error: err.Error()})
		return
	}
	cur := c.cursors.For(subset)

	switch msg.Action {
	case ActionPage:
		cur.Set(msg.Page)
	case ActionNext:
		cur.Next(c.hub.pager.List(subset, cur.Page()).TotalPages)
	case ActionPrev:
		cur.Prev()
	default:
		c.enqueueLocked(serverMsg{Type: TypeError, Error: "unknown action " + msg.Action})
		return
	}
	c.renderLocked(subset)
}

// readPump reads page actions from the connection until it closes.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var msg clientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			c.mu.Lock()
			c.enqueueLocked(serverMsg{Type: TypeError, Error: "invalid message"})
			c.mu.Unlock()
			continue
		}
		c.handle(msg)
	}
}

// writePump pumps messages from the hub to the WebSocket connection and
// sends periodic pings.
func (c *client) writePump() {
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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
