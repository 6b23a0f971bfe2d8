// internal/relationships/handlers.go

package relationships

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ojpierre/mutuals-backend/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetFriends lists the requester's friends, incoming requests, and
// conversation counterparts
func (h *Handler) GetFriends(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	friends, err := h.service.ListFriends(r.Context(), userID, true)
	if err != nil {
		utils.ErrorResponse(w, http.StatusInternalServerError, "Failed to load friends")
		return
	}

	utils.SuccessResponse(w, http.StatusOK, "Friends retrieved", friends)
}

// AddFriend sends (or reciprocates) a friend request
func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	username := mux.Vars(r)["username"]

	if err := h.service.AddFriend(r.Context(), userID, username); err != nil {
		respondRelationshipError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, fmt.Sprintf("Added %s", username))
}

// BlockUser blocks another user, removing any friendship first
func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	username := mux.Vars(r)["username"]

	if err := h.service.Block(r.Context(), userID, username); err != nil {
		respondRelationshipError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, fmt.Sprintf("Blocked %s", username))
}

// UnblockUser lifts the requester's own block
func (h *Handler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	username := mux.Vars(r)["username"]

	if err := h.service.Unblock(r.Context(), userID, username); err != nil {
		respondRelationshipError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, fmt.Sprintf("Unblocked %s", username))
}

// RemoveFriend deletes the friendship in both directions
func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	username := mux.Vars(r)["username"]

	if err := h.service.RemoveFriend(r.Context(), userID, username); err != nil {
		respondRelationshipError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, fmt.Sprintf("Deleted friend %s", username))
}

func respondRelationshipError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrBlockedByUser):
		utils.ErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSelfAction), errors.Is(err, ErrAlreadyAdded), errors.Is(err, ErrUserBlocked):
		utils.ErrorResponse(w, http.StatusConflict, err.Error())
	default:
		utils.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}
