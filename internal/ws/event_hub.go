package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Event is one submission-pipeline lifecycle notification pushed to ops
// dashboards: received, graded, stored, mirror failures, rejections.
type Event struct {
	Type            string    `json:"type"`
	PlatformUserID  string    `json:"platform_user_id,omitempty"`
	Group           string    `json:"group,omitempty"`
	AssignmentTitle string    `json:"assignment_title,omitempty"`
	Attempt         int       `json:"attempt,omitempty"`
	Detail          string    `json:"detail,omitempty"`
	At              time.Time `json:"at"`
}

const (
	EventSubmissionReceived = "submission_received"
	EventSubmissionGraded   = "submission_graded"
	EventSubmissionStored   = "submission_stored"
	EventSubmissionRejected = "submission_rejected"
	EventMirrorFailed       = "mirror_failed"
	EventIdentityBound      = "identity_bound"
)

// EventHub fans submission lifecycle events out to connected ops clients.
type EventHub struct {
	register   chan *eventClient
	unregister chan *eventClient
	broadcast  chan []byte
	clients    map[*eventClient]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		register:   make(chan *eventClient),
		unregister: make(chan *eventClient),
		broadcast:  make(chan []byte, sendBufferSize),
		clients:    make(map[*eventClient]struct{}),
	}
}

func (h *EventHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				client.conn.Close()
			}
		case payload := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					delete(h.clients, client)
					close(client.send)
					client.conn.Close()
				}
			}
		}
	}
}

// Broadcast pushes the event to all connected clients. Safe on a nil hub so
// the pipeline can run without the ops server.
func (h *EventHub) Broadcast(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws: failed to marshal event: %v", err)
		return
	}
	h.broadcast <- data
}

type eventClient struct {
	hub  *EventHub
	conn *websocket.Conn
	send chan []byte
}

func newEventClient(hub *EventHub, conn *websocket.Conn) *eventClient {
	return &eventClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 64),
	}
}

func (c *eventClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
