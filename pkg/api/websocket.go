package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer   = 256
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by the CORS layer in front of the router.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub indexes websocket clients by channel ("book:CORN", "trades:CORN") and
// fans market updates out to them. A slow client misses updates rather than
// stalling the engine hook that produced them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	channels map[string]map[*Client]struct{}

	join  chan *Client
	leave chan *Client
	done  chan struct{}

	logger *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		channels: make(map[string]map[*Client]struct{}),
		join:     make(chan *Client),
		leave:    make(chan *Client),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Run owns client membership until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.join:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debugw("ws_client_connected", "client", c.id, "total", n)

		case c := <-h.leave:
			h.mu.Lock()
			h.drop(c)
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debugw("ws_client_disconnected", "client", c.id, "total", n)

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			return
		}
	}
}

// drop forgets c and closes its outbox. Caller holds the write lock.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.closed = true
	for ch := range c.channels {
		h.removeFromChannel(ch, c)
	}
	close(c.send)
}

func (h *Hub) removeFromChannel(channel string, c *Client) {
	subs := h.channels[channel]
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.channels, channel)
	}
}

func (h *Hub) subscribe(c *Client, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	for _, ch := range channels {
		subs := h.channels[ch]
		if subs == nil {
			subs = make(map[*Client]struct{})
			h.channels[ch] = subs
		}
		subs[c] = struct{}{}
		c.channels[ch] = struct{}{}
	}
}

func (h *Hub) unsubscribe(c *Client, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		delete(c.channels, ch)
		h.removeFromChannel(ch, c)
	}
}

// Subscribers reports how many clients listen on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToChannel marshals data once and queues it for every subscriber.
func (h *Hub) BroadcastToChannel(channel string, data any) {
	h.mu.RLock()
	subs := len(h.channels[channel])
	h.mu.RUnlock()
	if subs == 0 {
		return
	}

	msg, err := json.Marshal(data)
	if err != nil {
		h.logger.Warnw("ws_marshal_failed", "channel", channel, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.channels[channel] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debugw("ws_client_lagging", "client", c.id, "channel", channel)
		}
	}
}

// Client is one websocket connection. channels and closed are guarded by
// the hub lock.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	id       string
	channels map[string]struct{}
	closed   bool
}

// readLoop applies subscribe and unsubscribe requests until the peer goes
// away, then hands the client back to the hub.
func (c *Client) readLoop() {
	defer func() {
		select {
		case c.hub.leave <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxBodyBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req WSSubscribeRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.hub.logger.Debugw("ws_invalid_message", "client", c.id, "err", err)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debugw("ws_read_failed", "client", c.id, "err", err)
			}
			return
		}

		switch req.Op {
		case "subscribe":
			c.hub.subscribe(c, req.Channels)
		case "unsubscribe":
			c.hub.unsubscribe(c, req.Channels)
		default:
			c.hub.logger.Debugw("ws_unknown_op", "client", c.id, "op", req.Op)
			continue
		}
		c.hub.logger.Debugw("ws_"+req.Op, "client", c.id, "channels", req.Channels)
	}
}

// writeLoop drains the outbox, one JSON document per frame, and keeps the
// connection alive with pings.
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	write := func(kind int, payload []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(kind, payload)
	}

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugw("ws_upgrade_failed", "err", err)
		return
	}

	c := &Client{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		id:       conn.RemoteAddr().String(),
		channels: make(map[string]struct{}),
	}

	select {
	case s.hub.join <- c:
	case <-s.hub.done:
		conn.Close()
		return
	}
	go c.writeLoop()
	go c.readLoop()
}
