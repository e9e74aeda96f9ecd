package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fluent-messenger/domain"
	"fluent-messenger/services"
)

type ChatHandler struct {
	log     *slog.Logger
	service services.IChatService
}

// List serves chat summaries for a user; message bodies are omitted so the
// global poll stays cheap.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListChatSummaries(r.URL.Query().Get("userId"))
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	if summaries == nil {
		summaries = []domain.Chat{}
	}
	respondOK(w, h.log, summaries)
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type           string   `json:"type"`
		Name           string   `json:"name"`
		ParticipantIDs []string `json:"participantIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "malformed request body")
		return
	}

	chat, err := h.service.CreateChat(services.CreateChatRequest{
		Type:           domain.ChatType(req.Type),
		Name:           req.Name,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondOK(w, h.log, chat)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chat, err := h.service.GetChat(chi.URLParam(r, "chatID"))
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondOK(w, h.log, chat)
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "userId is required")
		return
	}

	if err := h.service.MarkRead(chi.URLParam(r, "chatID"), req.UserID); err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondOK(w, h.log, map[string]bool{"success": true})
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListMessages(chi.URLParam(r, "chatID"))
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	respondOK(w, h.log, messages)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderID string          `json:"senderId"`
		Content  json.RawMessage `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "senderId and content are required")
		return
	}
	if req.SenderID == "" || len(req.Content) == 0 {
		respondError(w, h.log, http.StatusBadRequest, "senderId and content are required")
		return
	}

	content, err := domain.DecodeContent(req.Content)
	if err != nil {
		respondError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}

	message, err := h.service.SendMessage(chi.URLParam(r, "chatID"), req.SenderID, content)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondOK(w, h.log, message)
}
