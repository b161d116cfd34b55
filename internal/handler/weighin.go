package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dwaite/trimpool/internal/store"
	"github.com/dwaite/trimpool/internal/websocket"
)

type WeighInHandler struct {
	weightStore *store.WeightStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewWeighInHandler(ws *store.WeightStore, hub *websocket.Hub, logger *slog.Logger) *WeighInHandler {
	return &WeighInHandler{weightStore: ws, hub: hub, logger: logger}
}

type weighInRequest struct {
	UserID     int64      `json:"user_id"`
	Weight     float64    `json:"weight"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
	ImageRef   *string    `json:"image_ref,omitempty"`
}

// Submit appends one weight observation. A missing recorded_at defaults to
// now; a back-dated one is accepted and retroactively reorders the
// leaderboard, since ranking is always recomputed from the ledger.
func (h *WeighInHandler) Submit(w http.ResponseWriter, r *http.Request) {
	challengeID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req weighInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	recordedAt := time.Now().UTC()
	if req.RecordedAt != nil {
		recordedAt = req.RecordedAt.UTC()
	}

	record, err := h.weightStore.Append(challengeID, req.UserID, req.Weight, recordedAt, req.ImageRef)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Publish(websocket.NewEvent(websocket.KindWeightRecorded, challengeID, map[string]any{
		"record_id": record.ID,
		"user_id":   record.UserID,
	}))

	writeJSON(w, http.StatusCreated, record)
}

// History returns a participant's full weigh-in ledger, oldest first.
func (h *WeighInHandler) History(w http.ResponseWriter, r *http.Request) {
	challengeID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
		return
	}

	records, err := h.weightStore.ListFor(challengeID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
