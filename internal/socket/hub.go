// internal/socket/hub.go
package socket

import (
	"encoding/json"
	"sync"
	"time"

	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// Longest silence tolerated from a client before the connection is dropped.
	pongWait = 60 * time.Second
	// Must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Events queued per client before it counts as too slow and is dropped.
	sendBuffer = 64
	// Admin panels only listen; anything bigger than this is a misbehaving client.
	maxMessageSize = 512
)

// Event is the message pushed to admin panels for every route transition.
type Event struct {
	Type  string                 `json:"type"`
	Route *models.Route          `json:"route"`
	Log   *models.RouteUpdateLog `json:"log"`
}

const EventRouteUpdated = "route.updated"

type client struct {
	userID string
	conn   *websocket.Conn
	// send is closed by the hub only, under its write lock.
	send chan []byte
}

// Hub keeps the live admin connections. An admin may have several tabs open,
// so clients are grouped by admin id. Every client has its own write
// goroutine, and Broadcast never blocks on a connection.
type Hub struct {
	clients map[string]map[*client]struct{}
	mu      sync.RWMutex
	log     logger.Logger

	pongWait   time.Duration
	pingPeriod time.Duration
	sendBuffer int
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*client]struct{}),
		log:        log,
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
		sendBuffer: sendBuffer,
	}
}

// Serve registers conn for userID and pumps events to it until either side
// closes the connection. It blocks for the lifetime of the connection.
func (h *Hub) Serve(userID string, conn *websocket.Conn) {
	c := &client{userID: userID, conn: conn, send: make(chan []byte, h.sendBuffer)}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.log.Info("websocket client registered", logger.String("user_id", c.userID))
}

// unregister removes c and closes its send channel, which stops its write
// pump. Calling it twice is a no-op.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.log.Info("websocket client unregistered", logger.String("user_id", c.userID))
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

// Broadcast queues message for every connection. A client whose queue is
// full is dropped instead of holding up the caller.
func (h *Hub) Broadcast(message []byte) {
	var slow []*client

	h.mu.RLock()
	for _, conns := range h.clients {
		for c := range conns {
			select {
			case c.send <- message:
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warning("websocket client too slow, dropping it", logger.String("user_id", c.userID))
		h.unregister(c)
	}
}

// PublishRouteUpdate pushes a committed route transition to every admin.
func (h *Hub) PublishRouteUpdate(route *models.Route, entry *models.RouteUpdateLog) {
	msg, err := json.Marshal(Event{Type: EventRouteUpdated, Route: route, Log: entry})
	if err != nil {
		h.log.Error("encode route event", logger.Error(err))
		return
	}
	h.Broadcast(msg)
}

// readPump keeps the read deadline alive on pongs and client pings and
// unregisters the client once reading fails.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	// A custom ping handler must send the pong itself.
	c.conn.SetPingHandler(func(appData string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
		return c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warning("websocket closed unexpectedly", logger.String("user_id", c.userID), logger.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	}
}

// writePump is the only writer of data frames on c.conn.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.log.Warning("websocket write failed", logger.String("user_id", c.userID), logger.Error(err))
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
