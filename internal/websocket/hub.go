package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"taxengine/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	OwnerRef string
	Send     chan []byte
}

// Envelope is one message pushed to an owner's connections
type Envelope struct {
	OwnerRef string
	Payload  []byte
}

// UnreadCountEvent is the payload sent when an owner's unread reminder count changes
type UnreadCountEvent struct {
	Type        string `json:"type"`
	UnreadCount int64  `json:"unread_count"`
}

// Hub maintains the active clients grouped by owner and routes messages to them
type Hub struct {
	clients    map[string]map[*Client]bool
	Send       chan Envelope
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		Send:       make(chan Envelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]map[*Client]bool),
	}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.OwnerRef] == nil {
				h.clients[client.OwnerRef] = make(map[*Client]bool)
			}
			h.clients[client.OwnerRef][client] = true
			h.mu.Unlock()
			logger.L.Debug("websocket client connected", "owner", client.OwnerRef)
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			logger.L.Debug("websocket client disconnected", "owner", client.OwnerRef)
		case env := <-h.Send:
			h.mu.Lock()
			for client := range h.clients[env.OwnerRef] {
				select {
				case client.Send <- env.Payload:
				default:
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held
func (h *Hub) remove(client *Client) {
	owned, ok := h.clients[client.OwnerRef]
	if !ok || !owned[client] {
		return
	}
	delete(owned, client)
	close(client.Send)
	if len(owned) == 0 {
		delete(h.clients, client.OwnerRef)
	}
}

// NotifyUnreadCount queues an unread-count event for the owner. It never blocks the caller;
// the event is dropped when the queue is full.
func (h *Hub) NotifyUnreadCount(ownerRef string, count int64) {
	payload, err := json.Marshal(UnreadCountEvent{Type: "reminders.unread_count", UnreadCount: count})
	if err != nil {
		return
	}
	select {
	case h.Send <- Envelope{OwnerRef: ownerRef, Payload: payload}:
	default:
		logger.L.Warn("websocket queue full, dropping unread count", "owner", ownerRef)
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// Fast track writing queued messages
		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump keeps the connection open until the peer goes away
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L.Warn("websocket read failed", "owner", c.OwnerRef, "error", err)
			}
			break
		}
	}
}

// ServeWs authenticates the token query param and attaches the connection to its owner
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	tokenString := c.Query("token")
	if tokenString == "" {
		logger.L.Info("websocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		logger.L.Info("websocket connection rejected: invalid token", "error", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	owner, _ := claims.GetSubject()
	if owner == "" {
		logger.L.Info("websocket connection rejected: token has no subject")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := &Client{Hub: hub, Conn: conn, OwnerRef: owner, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
