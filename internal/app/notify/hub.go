package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 8
)

// client is one subscribed WebSocket session belonging to a landlord.
type client struct {
	id      string
	ownerID primitive.ObjectID
	conn    *websocket.Conn
	send    chan []byte
}

// Hub tracks analytics subscribers keyed by owner so pushes only fan out to
// the landlord whose portfolio changed. Slow clients get dropped rather than
// ever blocking a push.
type Hub struct {
	mu      sync.RWMutex
	clients map[primitive.ObjectID]map[*client]bool
	log     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[primitive.ObjectID]map[*client]bool),
		log:     logger,
	}
}

// Subscribe registers a WebSocket connection for ownerID and services it
// until the peer disconnects. The hub takes over the connection.
func (h *Hub) Subscribe(ownerID primitive.ObjectID, conn *websocket.Conn) {
	c := &client{
		id:      uuid.NewString(),
		ownerID: ownerID,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	if h.clients[ownerID] == nil {
		h.clients[ownerID] = make(map[*client]bool)
	}
	h.clients[ownerID][c] = true
	h.mu.Unlock()

	h.log.Debug("analytics subscriber connected",
		zap.String("client_id", c.id),
		zap.String("owner_id", ownerID.Hex()))

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast pushes a JSON-encoded payload to every session subscribed for
// ownerID. Sessions whose send buffer is full are dropped.
func (h *Hub) Broadcast(ownerID primitive.ObjectID, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("analytics broadcast marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients[ownerID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow analytics subscriber", zap.String("client_id", c.id))
		h.remove(c)
	}
}

// SubscriberCount reports how many sessions are subscribed for ownerID.
func (h *Hub) SubscriberCount(ownerID primitive.ObjectID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ownerID])
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if set, ok := h.clients[c.ownerID]; ok && set[c] {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.ownerID)
		}
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

// readPump discards inbound frames; its job is noticing disconnects and
// answering pings.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
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
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
