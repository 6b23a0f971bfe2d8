// internal/users/routes.go

package users

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the auth, profile and search endpoints
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware func(http.Handler) http.Handler) {
	auth := router.PathPrefix("/api/v1/auth").Subrouter()
	auth.HandleFunc("/register", handler.Register).Methods("POST")
	auth.HandleFunc("/login", handler.Login).Methods("POST")
	auth.HandleFunc("/logout", handler.Logout).Methods("POST")
	auth.HandleFunc("/refresh", handler.Refresh).Methods("POST")
	auth.HandleFunc("/confirm/resend", handler.ResendConfirmation).Methods("POST")
	auth.HandleFunc("/confirm/{token}", handler.ConfirmAccount).Methods("POST")
	auth.HandleFunc("/forgot-password", handler.ForgotPassword).Methods("POST")
	auth.HandleFunc("/reset-password", handler.ResetPassword).Methods("POST")

	u := router.PathPrefix("/api/v1/users").Subrouter()
	u.Use(authMiddleware)
	u.HandleFunc("/me", handler.WhoAmI).Methods("GET")
	u.HandleFunc("/me", handler.UpdateProfile).Methods("PUT")
	u.HandleFunc("/me", handler.DeleteAccount).Methods("DELETE")
	u.HandleFunc("/me/password", handler.ChangePassword).Methods("PUT")
	u.HandleFunc("/{username}", handler.GetProfile).Methods("GET")

	search := router.PathPrefix("/api/v1/search").Subrouter()
	search.Use(authMiddleware)
	search.HandleFunc("/users", handler.SearchUsers).Methods("GET")
}
