// Package conduit implements the out-of-band streaming channel named in
// the GLOSSARY: a websocket side channel a Router routes seq=="-1"
// Results through instead of the webview's own message loop, grounded on
// _examples/teranos-QNTX/server/client.go's Client read/write pumps and
// server/util.go's origin-checked upgrader.
package conduit

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
	"github.com/teranos/qntx-runtime/rtlog"
)

// Timeouts mirror client.go's writeWait/pongWait/pingPeriod exactly; they
// keep a conduit connection alive without depending on webview traffic.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 10 * 1024 * 1024
)

// Hub owns every connected conduit client and implements
// bridge.ConduitSink, so a Router can stream Results to whichever client
// id originated the request.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	upgrader websocket.Upgrader

	port      int
	active    bool
	sharedKey string
}

// AllowedOrigins gates which Origin headers may open a conduit
// connection. An empty slice allows any origin with no Origin header
// (direct clients, tests) but rejects every browser-supplied one.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{clients: make(map[string]*client)}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     h.checkOrigin(allowedOrigins),
	}
	return h
}

// SetPort records the port the HTTP listener carrying /conduit is bound
// to, reported back by internal.conduit.status/start.
func (h *Hub) SetPort(port int) {
	h.mu.Lock()
	h.port = port
	h.mu.Unlock()
}

// Start implements internal.conduit.start: marks the hub active. The
// listener itself is already running (cmd/qntx-runtime's run command
// starts it unconditionally), so this only sets the active flag that
// internal.conduit.status reports; Upgrade does not consult it.
func (h *Hub) Start() (port int, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = true
	return h.port, true
}

// Stop implements internal.conduit.stop.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.active = false
	h.mu.Unlock()
}

// IsActive implements the isActive field of internal.conduit.status.
func (h *Hub) IsActive() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}

// Port implements the port field of internal.conduit.status.
func (h *Hub) Port() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.port
}

// SetSharedKey implements internal.conduit.setSharedKey; keys under 8
// bytes are rejected, matching the original's length guard.
func (h *Hub) SetSharedKey(key string) error {
	if len(key) < 8 {
		return rterr.BadRequest("invalid shared key length, must be at least 8 bytes")
	}
	h.mu.Lock()
	h.sharedKey = key
	h.mu.Unlock()
	return nil
}

// SharedKey implements internal.conduit.getSharedKey.
func (h *Hub) SharedKey() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sharedKey
}

func (h *Hub) checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if strings.HasPrefix(origin, a) {
				return true
			}
		}
		return false
	}
}

// client is one conduit connection, pumping Results out and discarding
// whatever it reads (a conduit is outbound-only; inbound route calls
// still travel the webview's own message channel).
type client struct {
	id   string
	conn *websocket.Conn
	send chan *bridge.Result
	once sync.Once
}

// Upgrade accepts a new conduit connection for clientID, registering it
// with the Hub and starting its pumps. clientID correlates this
// connection with the Message.clientID a Router dispatch carries, so a
// stream started over the webview channel can be continued here.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, clientID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}

	c := &client{id: clientID, conn: conn, send: make(chan *bridge.Result, 64)}
	h.mu.Lock()
	if existing, ok := h.clients[clientID]; ok {
		existing.close()
	}
	h.clients[clientID] = c
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// Send implements bridge.ConduitSink: deliver result to whichever
// conduit connection is registered under clientID, dropping it if none
// is connected (a stream route with no conduit attached falls back to
// inline delivery at the Router, so this is not an error here).
func (h *Hub) Send(clientID string, result *bridge.Result) error {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	select {
	case c.send <- result:
	default:
		rtlog.Logger.Warnw("conduit send channel full, dropping result", "client_id", clientID, "route", result.Message.Name)
	}
	return nil
}

// Close disconnects and forgets clientID, if connected.
func (h *Hub) Close(clientID string) {
	h.mu.Lock()
	c, ok := h.clients[clientID]
	if ok {
		delete(h.clients, clientID)
	}
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.Close(c.id)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
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
		case res, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(res); err != nil {
				rtlog.Logger.Debugw("conduit write error", "client_id", c.id, "error", err.Error())
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
