package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kjannette/rate-tracker/internal/models"
	"github.com/kjannette/rate-tracker/internal/tracker"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	clientBuffer = 64
)

// Event types sent on /v1/events.
const (
	EventSnapshot = "snapshot"
	EventProgress = "progress"
	EventEntry    = "entry"
	EventComplete = "complete"
	EventRemoved  = "removed"
)

type eventMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type entryEvent struct {
	PassID   string             `json:"passId"`
	Index    int                `json:"index"`
	Entry    currencyJSON       `json:"entry"`
	Strategy string             `json:"strategy"`
	History  []priceJSON        `json:"history"`
	Sample   models.PriceSample `json:"sample"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans tracker events out to websocket clients. It is a tracker
// observer; a client whose buffer fills is dropped rather than slowing
// the pass.
type Hub struct {
	snapshot func() []models.CurrencyEntry
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]bool
	closed  bool
}

// NewHub takes the source of the snapshot sent to each new client.
func NewHub(snapshot func() []models.CurrencyEntry) *Hub {
	return &Hub{
		snapshot: snapshot,
		clients:  make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	if msg, err := encodeEvent(EventSnapshot, h.currencies()); err == nil {
		c.send <- msg
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()
	log.Infof("websocket client connected, total clients: %d", total)

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
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
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	log.Infof("websocket client disconnected, total clients: %d", total)
}

func (h *Hub) broadcast(eventType string, data any) {
	msg, err := encodeEvent(eventType, data)
	if err != nil {
		log.Errorf("encode %s event: %v", eventType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Warn("websocket client too slow, dropping")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) OnProgress(p tracker.Progress) {
	h.broadcast(EventProgress, p)
}

func (h *Hub) OnEntryUpdated(u tracker.EntryUpdate) {
	h.broadcast(EventEntry, entryEvent{
		PassID:   u.PassID,
		Index:    u.Index,
		Entry:    toCurrencyJSON(u.Entry),
		Strategy: u.Strategy,
		History:  toPriceJSON(u.History),
		Sample:   u.Sample,
	})
}

func (h *Hub) OnPassComplete(s tracker.PassSummary) {
	h.broadcast(EventComplete, s)
}

// BroadcastRemoved tells clients to drop code from their views.
func (h *Hub) BroadcastRemoved(code string) {
	h.broadcast(EventRemoved, map[string]string{"code": code})
}

func (h *Hub) currencies() []currencyJSON {
	if h.snapshot == nil {
		return []currencyJSON{}
	}
	entries := h.snapshot()
	out := make([]currencyJSON, len(entries))
	for i, e := range entries {
		out[i] = toCurrencyJSON(e)
	}
	return out
}

func encodeEvent(eventType string, data any) ([]byte, error) {
	return json.Marshal(eventMessage{Type: eventType, Data: data})
}
