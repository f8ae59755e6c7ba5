package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
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

// Event is a record-change notification pushed to company members.
type Event struct {
	Type     string      `json:"type"` // e.g. "contact.created", "voucher.redeemed"
	EntityID string      `json:"entity_id"`
	Payload  interface{} `json:"payload,omitempty"`
}

// Client represents a single connected WebSocket client, pinned to the
// company it authenticated under.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	CompanyID uuid.UUID
}

type companyMessage struct {
	companyID uuid.UUID
	data      []byte
}

// Hub maintains the set of active clients grouped by company and delivers
// events only to members of the matching tenant.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	broadcast  chan companyMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan companyMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID]map[*Client]bool),
	}
}

// Publish sends an event to every connected member of one company.
func (h *Hub) Publish(companyID uuid.UUID, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Println("websocket: failed to marshal event:", err)
		return
	}
	h.broadcast <- companyMessage{companyID: companyID, data: data}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.CompanyID] == nil {
				h.clients[client.CompanyID] = make(map[*Client]bool)
			}
			h.clients[client.CompanyID][client] = true
			h.mu.Unlock()
			log.Println("New WebSocket client connected for company", client.CompanyID)
		case client := <-h.unregister:
			h.mu.Lock()
			if members, ok := h.clients[client.CompanyID]; ok {
				if _, ok := members[client]; ok {
					delete(members, client)
					close(client.Send)
					if len(members) == 0 {
						delete(h.clients, client.CompanyID)
					}
					log.Println("WebSocket client disconnected")
				}
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[message.companyID] {
				select {
				case client.Send <- message.data:
				default:
					close(client.Send)
					delete(h.clients[message.companyID], client)
				}
			}
			h.mu.Unlock()
		}
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

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		// Just reading to keep connection alive or handle client messages if necessary
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}
	}
}

// CompanyResolver maps an authenticated user to their company. The hub needs
// it to pin the connection to the right tenant channel.
type CompanyResolver func(userID uuid.UUID) (uuid.UUID, error)

// ServeWs handles websocket requests from the peer
func ServeWs(hub *Hub, c *gin.Context, secret []byte, resolve CompanyResolver) {
	// 1. Authenticate via token query param
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Println("WebSocket connection rejected: missing token")
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
		log.Println("WebSocket connection rejected: invalid token:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		log.Println("WebSocket connection rejected: invalid claims")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		log.Println("WebSocket connection rejected: invalid subject")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	companyID, err := resolve(userID)
	if err != nil {
		log.Println("WebSocket connection rejected: unknown profile")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), CompanyID: companyID}
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
