package handler

import (
	"log/slog"
	"net/http"

	"github.com/dwaite/trimpool/internal/leaderboard"
	"github.com/dwaite/trimpool/internal/model"
	"github.com/dwaite/trimpool/internal/store"
)

type LeaderboardHandler struct {
	participantStore *store.ParticipantStore
	weightStore      *store.WeightStore
	logger           *slog.Logger
}

func NewLeaderboardHandler(ps *store.ParticipantStore, ws *store.WeightStore, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{participantStore: ps, weightStore: ws, logger: logger}
}

// Get recomputes the challenge leaderboard from the current ledger. Nothing
// is cached: a weigh-in that landed a moment ago, even back-dated, is
// reflected immediately.
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	challengeID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	participants, err := h.participantStore.ListByChallenge(challengeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	entries, err := leaderboard.Build(participants, func(userID int64) ([]model.WeightRecord, error) {
		return h.weightStore.ListFor(challengeID, userID)
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
