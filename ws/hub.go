// Package ws streams live market data to presentation clients. A
// client connects, subscribes to an asset, and receives every tick
// for it as a JSON frame.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"options_venue/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	heartbeatInterval = 10 * time.Second
	writeTimeout      = 5 * time.Second
	sendBuffer        = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is one outbound stream message.
type Frame struct {
	Type  string       `json:"type"`
	Asset string       `json:"asset"`
	Tick  *models.Tick `json:"tick,omitempty"`
}

// subscribeMsg is the only inbound message clients send.
type subscribeMsg struct {
	Type  string `json:"type"`
	Asset string `json:"asset"`
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	asset string
	mtx   sync.RWMutex
}

func (c *client) subscribedTo(asset string) bool {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.asset == "" || c.asset == asset
}

// Hub fans ticks out to every connected client. Slow clients have
// frames dropped rather than stalling the feed loop.
type Hub struct {
	mtx     sync.RWMutex
	clients map[*client]struct{}
	log     *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     log,
	}
}

// Handler upgrades the HTTP request and serves the client until it
// disconnects.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mtx.Lock()
	h.clients[c] = struct{}{}
	h.mtx.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// BroadcastTick queues one tick frame for every subscribed client.
func (h *Hub) BroadcastTick(asset string, tick models.Tick) {
	frame := Frame{Type: "tick", Asset: asset, Tick: &tick}
	raw, err := json.Marshal(frame)
	if err != nil {
		return
	}

	h.mtx.RLock()
	defer h.mtx.RUnlock()
	for c := range h.clients {
		if !c.subscribedTo(asset) {
			continue
		}
		select {
		case c.send <- raw:
		default:
			// Client is not keeping up; drop the frame.
		}
	}
}

// ClientCount reports connected clients, for the stats endpoint.
func (h *Hub) ClientCount() int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return len(h.clients)
}

func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg subscribeMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "subscribe" {
			c.mtx.Lock()
			c.asset = msg.Asset
			c.mtx.Unlock()
		}
	}
}

func (h *Hub) writePump(c *client) {
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case raw, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				h.drop(c)
				return
			}
		case <-heartbeat.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mtx.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mtx.Unlock()
	c.conn.Close()
}
