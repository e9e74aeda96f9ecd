package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fluent-messenger/services"
)

type UserHandler struct {
	log     *slog.Logger
	service services.IUserService
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers()
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondOK(w, h.log, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondOK(w, h.log, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   *string `json:"name"`
		Avatar *string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "malformed request body")
		return
	}

	user, err := h.service.UpdateProfile(chi.URLParam(r, "id"), req.Name, req.Avatar)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondOK(w, h.log, user)
}
