// internal/relationships/routes.go

package relationships

import (
	"net/http"

	"github.com/gorilla/mux"
)

// AuthMiddleware type for the authentication middleware function
type AuthMiddleware func(http.Handler) http.Handler

// RegisterRoutes registers all relationship routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware AuthMiddleware) {
	api := router.PathPrefix("/api/v1/relationships").Subrouter()
	api.Use(mux.MiddlewareFunc(authMiddleware))

	api.HandleFunc("/friends", handler.GetFriends).Methods("GET")
	api.HandleFunc("/add/{username}", handler.AddFriend).Methods("POST")
	api.HandleFunc("/block/{username}", handler.BlockUser).Methods("POST")
	api.HandleFunc("/unblock/{username}", handler.UnblockUser).Methods("POST")
	api.HandleFunc("/{username}", handler.RemoveFriend).Methods("DELETE")
}
