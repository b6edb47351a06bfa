// Package ws pushes scan and opportunity events to websocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Channels relayed from the bus. New clients start subscribed to all of them.
var Channels = []string{domain.ChannelScan, domain.ChannelArb, domain.ChannelStatus}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// envelope wraps every frame sent to clients.
type envelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// controlMsg is what clients send to change their subscriptions.
type controlMsg struct {
	Action   string   `json:"action"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]bool
}

// StatusFunc produces the status snapshot sent to each new client.
type StatusFunc func() domain.Status

// Hub relays SignalBus messages to connected clients.
type Hub struct {
	bus    domain.SignalBus
	status StatusFunc
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(bus domain.SignalBus, status StatusFunc, logger *slog.Logger) *Hub {
	return &Hub{
		bus:     bus,
		status:  status,
		logger:  logger.With(slog.String("component", "ws_hub")),
		clients: make(map[*client]struct{}),
	}
}

// Run subscribes to every relayed channel and blocks until ctx is done, then
// disconnects all clients.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, ch := range Channels {
		msgs, err := h.bus.Subscribe(ctx, ch)
		if err != nil {
			h.logger.ErrorContext(ctx, "subscribe failed",
				slog.String("channel", ch),
				slog.String("error", err.Error()),
			)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for data := range msgs {
				h.Broadcast(ch, data)
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()

	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	return ctx.Err()
}

// Broadcast sends payload to every client subscribed to channel. Slow
// clients whose buffer is full miss the message.
func (h *Hub) Broadcast(channel string, payload []byte) {
	frame, err := json.Marshal(envelope{Channel: channel, Payload: payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.subscribed(channel) {
			continue
		}
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("dropping message for slow client", slog.String("channel", channel))
		}
	}
}

// HandleWS upgrades the connection and registers the client.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "upgrade failed", slog.String("error", err.Error()))
		return
	}
	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool, len(Channels)),
	}
	for _, ch := range Channels {
		c.subs[ch] = true
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client connected", slog.Int("clients", n))

	if h.status != nil {
		if payload, err := json.Marshal(h.status()); err == nil {
			if frame, err := json.Marshal(envelope{Channel: domain.ChannelStatus, Payload: payload}); err == nil {
				c.send <- frame
			}
		}
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client disconnected", slog.Int("clients", n))
}

func (c *client) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel]
}

func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}
		var msg controlMsg
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		c.mu.Lock()
		for _, ch := range msg.Channels {
			switch msg.Action {
			case "subscribe":
				c.subs[ch] = true
			case "unsubscribe":
				delete(c.subs, ch)
			}
		}
		c.mu.Unlock()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
