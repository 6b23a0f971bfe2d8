// internal/users/handlers.go

package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/ojpierre/mutuals-backend/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register handles POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	user, err := h.service.Register(r.Context(), &req)
	if err != nil {
		respondUserError(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusCreated, "Account created, confirmation email sent", user)
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	user, tokens, err := h.service.Login(r.Context(), &req)
	if err != nil {
		respondUserError(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, "Login successful", map[string]interface{}{
		"user":   user,
		"tokens": tokens,
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		utils.ErrorResponse(w, http.StatusUnauthorized, "Missing or invalid authorization header")
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		respondUserError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Logged out")
}

// Refresh handles POST /api/v1/auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	tokens, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondUserError(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, "Token refreshed", tokens)
}

// ConfirmAccount handles POST /api/v1/auth/confirm/{token}
func (h *Handler) ConfirmAccount(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	if err := h.service.ConfirmAccount(r.Context(), token); err != nil {
		respondUserError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Account confirmed")
}

// ResendConfirmation handles POST /api/v1/auth/confirm/resend
func (h *Handler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req ResendConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	if err := h.service.ResendConfirmation(r.Context(), req.Email); err != nil {
		respondUserError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Confirmation email sent if the address is registered")
}

// ForgotPassword handles POST /api/v1/auth/forgot-password
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		utils.ErrorResponse(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Reset email sent if the address is registered")
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	if err := h.service.ResetPassword(r.Context(), &req); err != nil {
		respondUserError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Password reset")
}

// WhoAmI handles GET /api/v1/users/me
func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	user, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		respondUserError(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, "User retrieved", user)
}

// GetProfile handles GET /api/v1/users/{username}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	requester := r.Context().Value("username").(string)
	username := mux.Vars(r)["username"]

	profile, err := h.service.GetProfile(r.Context(), username, requester == username)
	if err != nil {
		respondUserError(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, "Profile retrieved", profile)
}

// UpdateProfile handles PUT /api/v1/users/me
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		respondUserError(w, err)
		return
	}

	utils.SuccessResponse(w, http.StatusOK, "Profile updated", user)
}

// ChangePassword handles PUT /api/v1/users/me/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, &req); err != nil {
		respondUserError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Password changed")
}

// DeleteAccount handles DELETE /api/v1/users/me
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := utils.ValidateStruct(&req); fields != nil {
		utils.ValidationErrorResponse(w, fields)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID, &req); err != nil {
		respondUserError(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Account deleted")
}

// SearchUsers handles GET /api/v1/search/users
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	results, err := h.service.SearchUsers(r.Context(), query, limit)
	if err != nil {
		utils.ErrorResponse(w, http.StatusInternalServerError, "Search failed")
		return
	}

	utils.SuccessResponse(w, http.StatusOK, "Search results", results)
}

func respondUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		utils.ErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		utils.ErrorResponse(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrEmailAlreadyExists), errors.Is(err, ErrUsernameAlreadyExists), errors.Is(err, ErrAlreadyConfirmed):
		utils.ErrorResponse(w, http.StatusConflict, err.Error())
	default:
		utils.ErrorResponse(w, http.StatusInternalServerError, "Something went wrong")
	}
}
