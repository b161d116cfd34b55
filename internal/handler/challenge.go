package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dwaite/trimpool/internal/model"
	"github.com/dwaite/trimpool/internal/payment"
	"github.com/dwaite/trimpool/internal/store"
	"github.com/dwaite/trimpool/internal/websocket"
)

type ChallengeHandler struct {
	challengeStore   *store.ChallengeStore
	participantStore *store.ParticipantStore
	payments         *payment.Client
	hub              *websocket.Hub
	logger           *slog.Logger
}

func NewChallengeHandler(cs *store.ChallengeStore, ps *store.ParticipantStore, payments *payment.Client, hub *websocket.Hub, logger *slog.Logger) *ChallengeHandler {
	return &ChallengeHandler{
		challengeStore:   cs,
		participantStore: ps,
		payments:         payments,
		hub:              hub,
		logger:           logger,
	}
}

type challengeRequest struct {
	HostUserID  int64     `json:"host_user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	EntryFee    int64     `json:"entry_fee"`
	GoalPercent float64   `json:"goal_percent"`
}

func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	challenge, err := h.challengeStore.Create(
		req.HostUserID, req.Title, req.Description,
		req.StartAt, req.EndAt, req.EntryFee, req.GoalPercent,
	)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, challenge)
}

func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	challenge, err := h.challengeStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if challenge == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "challenge not found"})
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.challengeStore.List()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if challenges == nil {
		challenges = []model.Challenge{}
	}
	writeJSON(w, http.StatusOK, challenges)
}

// Transition moves a challenge to a new lifecycle status and publishes a
// challenge_status event on success.
func (h *ChallengeHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Status model.ChallengeStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	challenge, err := h.challengeStore.Transition(id, req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Publish(websocket.NewEvent(websocket.KindChallengeStatus, id, map[string]any{
		"status": string(challenge.Status),
	}))

	writeJSON(w, http.StatusOK, challenge)
}

type joinRequest struct {
	UserID      int64   `json:"user_id"`
	DisplayName string  `json:"display_name"`
	StartWeight float64 `json:"start_weight"`
}

// Join enrolls a user and, when a payment client is configured, returns a
// checkout URL for the entry fee alongside the participant record.
func (h *ChallengeHandler) Join(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	challenge, err := h.challengeStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if challenge == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "challenge not found"})
		return
	}
	if challenge.Status != model.StatusOpen {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "challenge is not open for joining"})
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	participant, err := h.participantStore.Join(id, req.UserID, req.DisplayName, req.StartWeight)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := map[string]any{"participant": participant}
	if h.payments != nil {
		checkoutURL, err := h.payments.CreateEntryCheckout(challenge, req.UserID)
		if err != nil {
			// Enrollment stands; payment can be retried through the external flow.
			h.logger.Error("create entry checkout", "challenge_id", id, "user_id", req.UserID, "error", err)
		} else {
			resp["checkout_url"] = checkoutURL
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *ChallengeHandler) Participants(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	participants, err := h.participantStore.ListByChallenge(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if participants == nil {
		participants = []model.Participant{}
	}
	writeJSON(w, http.StatusOK, participants)
}
