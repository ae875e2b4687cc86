package handlers

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"statusboard/app/internal/board"
)

// Message is one websocket frame pushed to browsers
type Message struct {
	Type      string          `json:"type"` // "board" or "countdown"
	Board     *board.Snapshot `json:"board,omitempty"`
	Countdown *int            `json:"countdown,omitempty"`
}

// Hub fans board patches and countdown ticks out to connected browsers
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	board   *board.Board
}

// NewHub creates a hub that greets new clients with the current board
func NewHub(b *board.Board) *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool), board: b}
}

// BroadcastBoard pushes a board snapshot to every client
func (h *Hub) BroadcastBoard(s board.Snapshot) {
	h.broadcast(Message{Type: "board", Board: &s})
}

// BroadcastCountdown pushes the seconds left until the next poll
func (h *Hub) BroadcastCountdown(left int) {
	h.broadcast(Message{Type: "countdown", Countdown: &left})
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Printf("Error marshaling %s message: %v", m.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := websocket.Message.Send(c, string(data)); err != nil {
			c.Close()
			delete(h.clients, c)
		}
	}
}

// Handler serves the websocket endpoint
func (h *Hub) Handler() websocket.Handler {
	return func(ws *websocket.Conn) {
		if h.board != nil {
			snap := h.board.Snapshot()
			if data, err := json.Marshal(Message{Type: "board", Board: &snap}); err == nil {
				if err := websocket.Message.Send(ws, string(data)); err != nil {
					ws.Close()
					return
				}
			}
		}

		h.mu.Lock()
		h.clients[ws] = true
		h.mu.Unlock()
		defer func() {
			h.mu.Lock()
			delete(h.clients, ws)
			h.mu.Unlock()
			ws.Close()
		}()

		// block until the browser goes away; clients never send anything we use
		var discard string
		for {
			if err := websocket.Message.Receive(ws, &discard); err != nil {
				return
			}
		}
	}
}
