// Package viewer manages the websocket clients attached to the screen: the
// audience-facing display windows and the player bridge page that hosts the
// embedded media players.
package viewer

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dmscreen/logger"
	"dmscreen/model"
)

// MessageType names a websocket message.
type MessageType string

const (
	// System messages.
	MsgTypePing MessageType = "ping"
	MsgTypePong MessageType = "pong"

	// Display channel.
	MsgTypeShowImage   MessageType = "showImage"
	MsgTypeClear       MessageType = "clear"
	MsgTypeViewerReady MessageType = "viewerReady"

	// Player bridge channel.
	MsgTypePlayerCommand MessageType = "player"
	MsgTypeBridgeReady   MessageType = "bridgeReady"
	MsgTypePlayerState   MessageType = "playerState"
	MsgTypePlayerVolume  MessageType = "playerVolume"
)

// Client roles.
const (
	RoleViewer = "viewer"
	RolePlayer = "player"
)

// WSMessage is the wire format shared by both channels.
type WSMessage struct {
	Type      MessageType      `json:"type"`
	Index     int              `json:"index,omitempty"`
	Data      *model.MediaItem `json:"data,omitempty"`
	Action    string           `json:"action,omitempty"`
	MediaID   string           `json:"mediaId,omitempty"`
	Volume    int              `json:"volume"`
	State     string           `json:"state,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// Client is one websocket connection with a role.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
	Role string
}

// Hub tracks connected clients and routes messages between the screen, the
// displays and the player bridge.
type Hub struct {
	mu      sync.RWMutex
	viewers map[*Client]bool
	players map[*Client]bool

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// last showImage payload, resent to a display that announces readiness
	// so a reopened window resumes showing the prior image
	lastShown []byte

	// callbacks into the mixer, wired at startup
	onPlatformReady func()
	onPlayerState   func(index int, state string)
	onPlayerVolume  func(index, volume int)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		viewers:    make(map[*Client]bool),
		players:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// OnPlatformReady registers the callback fired when a player bridge connects
// and reports ready.
func (h *Hub) OnPlatformReady(fn func()) { h.onPlatformReady = fn }

// OnPlayerState registers the callback for player state notifications.
func (h *Hub) OnPlayerState(fn func(index int, state string)) { h.onPlayerState = fn }

// OnPlayerVolume registers the callback for player volume reports.
func (h *Hub) OnPlayerVolume(fn func(index, volume int)) { h.onPlayerVolume = fn }

// Run drives registration and teardown until Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop shuts the hub down and closes every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Register queues a client for registration.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister queues a client for removal.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch client.Role {
	case RolePlayer:
		h.players[client] = true
	default:
		h.viewers[client] = true
	}
	logger.Info("client connected", logger.String("role", client.Role))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.viewers
	if client.Role == RolePlayer {
		set = h.players
	}
	if _, ok := set[client]; ok {
		delete(set, client)
		close(client.Send)
		logger.Info("client disconnected", logger.String("role", client.Role))
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.viewers {
		close(c.Send)
		delete(h.viewers, c)
	}
	for c := range h.players {
		close(c.Send)
		delete(h.players, c)
	}
}

// ShowImage pushes one media item to every display and remembers it for
// late-joining viewers. Implements gallery.Display.
func (h *Hub) ShowImage(index int, item model.MediaItem) {
	msg := &WSMessage{Type: MsgTypeShowImage, Index: index, Data: &item}
	data, err := json.Marshal(withTimestamp(msg))
	if err != nil {
		logger.Error("failed to marshal showImage", logger.ErrorField(err))
		return
	}

	h.mu.Lock()
	h.lastShown = data
	h.mu.Unlock()

	h.broadcast(h.viewerList(), data)
}

// Clear blanks every display. Implements gallery.Display.
func (h *Hub) Clear() {
	data, _ := json.Marshal(withTimestamp(&WSMessage{Type: MsgTypeClear}))

	h.mu.Lock()
	h.lastShown = nil
	h.mu.Unlock()

	h.broadcast(h.viewerList(), data)
}

// SendPlayerCommand pushes a command to the player bridge. Reports
// ErrNoBridge when no bridge page is connected, which callers treat as a
// transient, swallowed failure.
func (h *Hub) SendPlayerCommand(msg *WSMessage) error {
	players := h.playerList()
	if len(players) == 0 {
		return ErrNoBridge
	}
	data, err := json.Marshal(withTimestamp(msg))
	if err != nil {
		return err
	}
	h.broadcast(players, data)
	return nil
}

// HasBridge reports whether a player bridge is connected.
func (h *Hub) HasBridge() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.players) > 0
}

func (h *Hub) viewerList() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := make([]*Client, 0, len(h.viewers))
	for c := range h.viewers {
		list = append(list, c)
	}
	return list
}

func (h *Hub) playerList() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := make([]*Client, 0, len(h.players))
	for c := range h.players {
		list = append(list, c)
	}
	return list
}

func (h *Hub) broadcast(clients []*Client, data []byte) {
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
			// Slow consumer; drop rather than block the screen.
		}
	}
}

// handleMessage dispatches one inbound client message.
func (h *Hub) handleMessage(client *Client, msg *WSMessage) {
	switch msg.Type {
	case MsgTypeViewerReady:
		h.mu.RLock()
		last := h.lastShown
		h.mu.RUnlock()
		if last != nil {
			select {
			case client.Send <- last:
			default:
			}
		}
	case MsgTypeBridgeReady:
		if h.onPlatformReady != nil {
			h.onPlatformReady()
		}
	case MsgTypePlayerState:
		if h.onPlayerState != nil {
			h.onPlayerState(msg.Index, msg.State)
		}
	case MsgTypePlayerVolume:
		if h.onPlayerVolume != nil {
			h.onPlayerVolume(msg.Index, msg.Volume)
		}
	}
}

// ReadPump reads client messages until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.String("role", c.Role))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("invalid message format", logger.ErrorField(err))
			continue
		}

		if msg.Type == MsgTypePing {
			pong, _ := json.Marshal(withTimestamp(&WSMessage{Type: MsgTypePong}))
			select {
			case c.Send <- pong:
			default:
			}
			continue
		}

		c.Hub.handleMessage(c, &msg)
	}
}

// WritePump writes queued messages and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func withTimestamp(msg *WSMessage) *WSMessage {
	msg.Timestamp = time.Now().UnixMilli()
	return msg
}
