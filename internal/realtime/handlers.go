// internal/realtime/handlers.go

package realtime

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Configure CORS as needed
		return true
	},
}

type Handler struct {
	hub        *Hub
	sendBuffer int
}

func NewHandler(hub *Hub, sendBuffer int) *Handler {
	return &Handler{
		hub:        hub,
		sendBuffer: sendBuffer,
	}
}

// HandleWebSocket upgrades the connection and attaches the user's
// live connection to the hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get user ID from context (set by auth middleware)
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := NewClient(h.hub, conn, userID, h.sendBuffer)
	h.hub.Register(client)
	client.Start()
}

// AuthMiddleware type for the authentication middleware function
type AuthMiddleware func(http.Handler) http.Handler

// RegisterRoutes registers the websocket attach endpoint
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware AuthMiddleware) {
	router.Handle("/ws", authMiddleware(http.HandlerFunc(handler.HandleWebSocket))).Methods("GET")
}
