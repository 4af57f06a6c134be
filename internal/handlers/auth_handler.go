package handlers

import (
	"net/http"

	"learnpath/internal/service"
)

// AuthHandler handles account requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"mensaje"`
}

// Register creates an account and signs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Error registering user", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}

// Login signs in by email or username
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Error logging in", err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	respondWithJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req service.ProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.authService.UpdateProfile(r.Context(), user.ID, req)
	if err != nil {
		writeServiceError(w, "Error updating profile", err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req service.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), user.ID, req); err != nil {
		writeServiceError(w, "Error changing password", err)
		return
	}
	respondWithJSON(w, http.StatusOK, messageResponse{Message: MsgPasswordChanged})
}

// ForgotPassword always answers with the same message so that registered
// addresses cannot be discovered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, "Error requesting password reset", err)
		return
	}
	respondWithJSON(w, http.StatusOK, messageResponse{Message: MsgPasswordResetSent})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req); err != nil {
		writeServiceError(w, "Error resetting password", err)
		return
	}
	respondWithJSON(w, http.StatusOK, messageResponse{Message: MsgPasswordResetDone})
}
