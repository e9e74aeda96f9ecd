package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"fluent-messenger/domain"
	"fluent-messenger/services"
)

type AuthHandler struct {
	log     *slog.Logger
	service services.IAuthService
}

// AuthResponse carries the sanitized user plus their session token.
type AuthResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "email, name, and password are required")
		return
	}

	user, token, err := h.service.Register(req.Email, req.Name, req.Password)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondOK(w, h.log, AuthResponse{User: user, Token: string(token)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "email and password are required")
		return
	}

	user, token, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondOK(w, h.log, AuthResponse{User: user, Token: string(token)})
}
