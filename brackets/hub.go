package brackets

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bracketforge/bracketforge/events"
	"github.com/bracketforge/bracketforge/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one viewer session attached to a tournament room.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	IsClosed bool
	Mu       sync.Mutex
}

// WebSocketMessage is the envelope relayed to viewers: Type carries the
// event topic, Payload the event payload as published.
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Hub fans events out to viewer sessions grouped into one room per
// tournament.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

// RoomID names the hub room for a tournament.
func RoomID(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}

// RelayEvents subscribes the hub to every topic on the channel and relays
// each payload to the owning tournament's room. Returns a detach func.
func (h *Hub) RelayEvents(ch *events.Channel) func() {
	topics := []events.Topic{
		events.TopicTournamentCreated,
		events.TopicTournamentStarted,
		events.TopicTournamentStateChanged,
		events.TopicTournamentDeleted,
		events.TopicRegistrationOpened,
		events.TopicRegistrationClosed,
		events.TopicRegistrationCreated,
		events.TopicRegistrationChanged,
		events.TopicMatchUpdated,
		events.TopicMatchStarted,
		events.TopicMatchMetadataUpdated,
		events.TopicTeamCreated,
		events.TopicTeamSeedAssigned,
	}

	detach := make([]func(), 0, len(topics))
	for _, topic := range topics {
		t := topic
		detach = append(detach, ch.Subscribe(t, func(payload interface{}) {
			tid, ok := payloadTournamentID(payload)
			if !ok {
				return
			}
			h.BroadcastToRoom(RoomID(tid), WebSocketMessage{
				Type:    string(t),
				Payload: payload,
			})
		}))
	}
	return func() {
		for _, d := range detach {
			d()
		}
	}
}

func payloadTournamentID(payload interface{}) (int, bool) {
	switch p := payload.(type) {
	case *models.Tournament:
		return p.ID, true
	case *models.Registration:
		return p.TournamentID, true
	case *models.Team:
		return p.TournamentID, true
	case *models.Match:
		return p.TournamentID, true
	case *models.MatchMetadata:
		return p.TournamentID, true
	case int:
		return p, true
	default:
		return 0, false
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if roomClients, ok := h.rooms[client.Room]; ok {
				if _, okClient := roomClients[client]; okClient {
					client.Mu.Lock()
					if !client.IsClosed {
						close(client.Send)
						client.IsClosed = true
					}
					client.Mu.Unlock()
					delete(roomClients, client)
					if len(roomClients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom sends a message to every client in the room. Clients
// whose send buffer is full are skipped rather than blocking delivery.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomClients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("error marshalling message for room %s: %v", roomID, err)
		return
	}

	for client := range roomClients {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("client send channel full for room %s, skipping", roomID)
		}
		client.Mu.Unlock()
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Viewers are read-only; inbound messages are drained and ignored.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error in room %s: %v", c.Room, err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
