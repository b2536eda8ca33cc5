package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/openlobby/lobby-service/internal/lobby"
	"github.com/openlobby/lobby-service/internal/middleware"
	"github.com/openlobby/lobby-service/internal/models"
	"github.com/openlobby/lobby-service/internal/presence"
)

const joinChannelType = "JOIN_LOBBY_ROOM"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// client is one live socket. A client may be admitted to several room
// channels over its lifetime, though in practice it holds one.
type client struct {
	id    string
	ident models.Identity
	conn  *websocket.Conn
	send  chan []byte

	closeOnce sync.Once
	rooms     map[string]bool // guarded by Hub.mu
}

// shut closes the send channel; the write pump then drains any queued
// events and closes the connection.
func (c *client) shut() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Printf("ws: dropping event for %s, buffer full", c.ident.ID)
	}
}

// Hub owns the per-room sets of admitted sockets. The sets are
// ephemeral presence, rebuilt from admission checks against the store;
// the store's player list stays the source of truth for authorization.
type Hub struct {
	store    lobby.Store
	presence *presence.Tracker

	mu       sync.RWMutex
	channels map[string]map[*client]bool
}

func NewHub(store lobby.Store, tracker *presence.Tracker) *Hub {
	return &Hub{
		store:    store,
		presence: tracker,
		channels: make(map[string]map[*client]bool),
	}
}

// Broadcast delivers an event to every socket on the room's channel.
func (h *Hub) Broadcast(roomID string, ev models.RoomEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws: failed to marshal %s event: %v", ev.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.channels[roomID] {
		c.enqueue(data)
	}
}

// CloseChannel force-disconnects every socket on the channel. Queued
// events (the ROOM_DELETED just broadcast) are flushed first.
func (h *Hub) CloseChannel(roomID string) {
	h.mu.Lock()
	members := h.channels[roomID]
	delete(h.channels, roomID)
	for c := range members {
		delete(c.rooms, roomID)
	}
	h.mu.Unlock()

	for c := range members {
		c.shut()
	}
	if h.presence != nil {
		h.presence.Clear(context.Background(), roomID)
	}
}

// HandleSocket upgrades the connection after handshake authentication.
// The socket then sends a single admission request naming its room.
func (h *Hub) HandleSocket(verifier *middleware.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.TokenFromRequest(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}
		ident, err := verifier.Verify(token)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("ws: failed to upgrade connection: %v", err)
			return
		}

		cl := &client{
			id:    uuid.New().String(),
			ident: ident,
			conn:  conn,
			send:  make(chan []byte, 256),
			rooms: make(map[string]bool),
		}
		log.Printf("ws: connected %s (%s)", ident.Name, ident.ID)

		go cl.writePump()
		go h.readPump(cl)
	}
}

// admit verifies channel membership against the store at join time, not
// merely at handshake, so stale or forged room ids get nowhere.
func (h *Hub) admit(cl *client, roomID string) {
	room, err := h.store.FindByID(context.Background(), roomID)
	if err != nil || room.FindPlayer(cl.ident.ID) == nil {
		log.Printf("ws: user %s denied channel %s", cl.ident.ID, roomID)
		cl.sendEvent(models.RoomEvent{
			Type: models.EventError,
			Data: gin.H{"message": "Unauthorized to join this room"},
		})
		return
	}

	h.mu.Lock()
	if h.channels[roomID] == nil {
		h.channels[roomID] = make(map[*client]bool)
	}
	h.channels[roomID][cl] = true
	cl.rooms[roomID] = true
	h.mu.Unlock()

	if h.presence != nil {
		h.presence.Join(context.Background(), roomID, cl.ident.ID)
	}
	log.Printf("ws: %s joined channel %s", cl.ident.Name, roomID)

	// A reconnecting client whose game is already running needs the
	// session payload again to resynchronize.
	if room.Status == models.StatusPlaying {
		cl.sendEvent(models.RoomEvent{
			Type: models.EventGameStarted,
			Data: models.GameStartedData{Payload: room.GameData},
		})
	}
}

// drop detaches the client from every channel and tells the remaining
// members. Disconnection is a presence signal only; room membership in
// the store is untouched.
func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	var left []string
	for roomID := range cl.rooms {
		delete(h.channels[roomID], cl)
		if len(h.channels[roomID]) == 0 {
			delete(h.channels, roomID)
		}
		left = append(left, roomID)
	}
	cl.rooms = make(map[string]bool)
	h.mu.Unlock()

	for _, roomID := range left {
		if h.presence != nil {
			h.presence.Leave(context.Background(), roomID, cl.ident.ID)
		}
		h.Broadcast(roomID, models.RoomEvent{
			Type: models.EventPlayerLeft,
			Data: models.PlayerLeftData{UserID: cl.ident.ID},
		})
	}
	log.Printf("ws: disconnected %s (%s)", cl.ident.Name, cl.ident.ID)
}

func (h *Hub) readPump(cl *client) {
	defer func() {
		h.drop(cl)
		cl.shut()
		cl.conn.Close()
	}()

	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: read error: %v", err)
			}
			return
		}

		var req models.JoinChannelRequest
		if err := json.Unmarshal(message, &req); err != nil {
			log.Printf("ws: failed to parse message: %v", err)
			continue
		}
		if req.Type == joinChannelType && req.RoomID != "" {
			h.admit(cl, req.RoomID)
		}
	}
}

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

func (c *client) sendEvent(ev models.RoomEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws: failed to marshal %s event: %v", ev.Type, err)
		return
	}
	c.enqueue(data)
}
