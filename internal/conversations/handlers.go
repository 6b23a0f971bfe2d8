// internal/conversations/handlers.go

package conversations

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ojpierre/mutuals-backend/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListConversations handles GET /api/v1/conversations
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	convs, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		utils.ErrorResponse(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}

	utils.SuccessResponse(w, http.StatusOK, "Conversations retrieved", convs)
}

// CreateConversation handles POST /api/v1/conversations
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	conv, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		respondConversationError(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusCreated, "Conversation created", conv)
}

// GetConversation handles GET /api/v1/conversations/{id}
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	convID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	limit, before, err := pageParams(r)
	if err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Get(r.Context(), convID, userID, limit, before)
	if err != nil {
		respondConversationError(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, "Conversation retrieved", conv)
}

// SendMessage handles POST /api/v1/conversations/{id}
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	convID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	msg, err := h.service.SendMessage(r.Context(), convID, userID, req.Body)
	if err != nil {
		respondConversationError(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusCreated, "Message sent", msg)
}

// DeleteConversation handles DELETE /api/v1/conversations/{id}
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	convID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	if err := h.service.DeleteConversation(r.Context(), convID, userID); err != nil {
		respondConversationError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Conversation deleted")
}

// DeleteMessages handles DELETE /api/v1/conversations/messages
func (h *Handler) DeleteMessages(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req MessageIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	if err := h.service.DeleteMessages(r.Context(), userID, req.IDs); err != nil {
		respondConversationError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Messages deleted")
}

// MarkMessagesRead handles POST /api/v1/conversations/messages/read
func (h *Handler) MarkMessagesRead(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req MessageIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	if err := h.service.MarkRead(r.Context(), userID, req.IDs); err != nil {
		respondConversationError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Messages marked as read")
}

func pageParams(r *http.Request) (int, *time.Time, error) {
	limit := DefaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return 0, nil, errors.New("limit must be a positive integer")
		}
		limit = n
	}

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return 0, nil, errors.New("before must be an RFC3339 timestamp")
		}
		before = &ts
	}

	return limit, before, nil
}

func respondConversationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrConversationNotFound), errors.Is(err, ErrMessagesNotFound):
		utils.ErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConversationExists), errors.Is(err, ErrMessagesDeleted), errors.Is(err, ErrMessagesRead):
		utils.ErrorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFriends), errors.Is(err, ErrNotAllowed):
		utils.ErrorResponse(w, http.StatusForbidden, err.Error())
	default:
		utils.ErrorResponse(w, http.StatusInternalServerError, "Something went wrong")
	}
}
