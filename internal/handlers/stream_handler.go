package handlers

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"workshop-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler pushes every vehicle record updated by a vehicle-check
// write to connected dashboards over websocket, replacing the
// poll-and-rerender loops each dashboard used to carry.
type StreamHandler struct {
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
}

func NewStreamHandler() *StreamHandler {
	return &StreamHandler{
		clients: make(map[*websocket.Conn]bool),
	}
}

// Stream handles GET /api/vehicles/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Stream] upgrade failed: %v", err)
		return
	}

	h.clientsMux.Lock()
	h.clients[conn] = true
	h.clientsMux.Unlock()

	// Drain reads so close frames and pings are processed; the stream
	// is one-way.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish implements services.VehicleNotifier.
func (h *StreamHandler) Publish(vehicle *models.Vehicle) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(vehicle); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *StreamHandler) drop(conn *websocket.Conn) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	conn.Close()
	delete(h.clients, conn)
}
