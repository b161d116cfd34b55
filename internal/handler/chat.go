package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dwaite/trimpool/internal/model"
	"github.com/dwaite/trimpool/internal/store"
	"github.com/dwaite/trimpool/internal/websocket"
)

type ChatHandler struct {
	chatStore *store.ChatStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewChatHandler(cs *store.ChatStore, hub *websocket.Hub, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chatStore: cs, hub: hub, logger: logger}
}

type chatRequest struct {
	UserID int64  `json:"user_id"`
	Body   string `json:"body"`
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	challengeID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	msg, err := h.chatStore.Create(challengeID, req.UserID, req.Body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Publish(websocket.NewEvent(websocket.KindChatCreated, challengeID, map[string]any{
		"message_id": msg.ID,
		"user_id":    msg.UserID,
	}))

	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	challengeID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	messages, err := h.chatStore.ListByChallenge(challengeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) Update(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.getMessage(w, r)
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	updated, err := h.chatStore.UpdateBody(msg.ID, req.Body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Publish(websocket.NewEvent(websocket.KindChatUpdated, updated.ChallengeID, map[string]any{
		"message_id": updated.ID,
	}))

	writeJSON(w, http.StatusOK, updated)
}

func (h *ChatHandler) TogglePinned(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.getMessage(w, r)
	if !ok {
		return
	}

	updated, err := h.chatStore.TogglePinned(msg.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	kind := websocket.KindChatUnpinned
	if updated.Pinned {
		kind = websocket.KindChatPinned
	}
	h.hub.Publish(websocket.NewEvent(kind, updated.ChallengeID, map[string]any{
		"message_id": updated.ID,
	}))

	writeJSON(w, http.StatusOK, updated)
}

// Hide is the moderation action: the message disappears from the feed but
// the row is retained.
func (h *ChatHandler) Hide(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.getMessage(w, r)
	if !ok {
		return
	}

	if err := h.chatStore.Hide(msg.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Publish(websocket.NewEvent(websocket.KindChatHidden, msg.ChallengeID, map[string]any{
		"message_id": msg.ID,
	}))

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.getMessage(w, r)
	if !ok {
		return
	}

	if err := h.chatStore.Delete(msg.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Publish(websocket.NewEvent(websocket.KindChatDeleted, msg.ChallengeID, map[string]any{
		"message_id": msg.ID,
	}))

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) getMessage(w http.ResponseWriter, r *http.Request) (*model.ChatMessage, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	msg, err := h.chatStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	if msg == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "message not found"})
		return nil, false
	}
	return msg, true
}
