// internal/conversations/routes.go

package conversations

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the conversation endpoints under
// /api/v1/conversations. Every route requires authentication.
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware func(http.Handler) http.Handler) {
	conv := router.PathPrefix("/api/v1/conversations").Subrouter()
	conv.Use(authMiddleware)

	conv.HandleFunc("", handler.ListConversations).Methods("GET")
	conv.HandleFunc("", handler.CreateConversation).Methods("POST")

	// Literal segments before the {id} wildcard
	conv.HandleFunc("/messages", handler.DeleteMessages).Methods("DELETE")
	conv.HandleFunc("/messages/read", handler.MarkMessagesRead).Methods("POST")

	conv.HandleFunc("/{id}", handler.GetConversation).Methods("GET")
	conv.HandleFunc("/{id}", handler.SendMessage).Methods("POST")
	conv.HandleFunc("/{id}", handler.DeleteConversation).Methods("DELETE")
}
