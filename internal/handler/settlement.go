package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dwaite/trimpool/internal/archive"
	"github.com/dwaite/trimpool/internal/errs"
	"github.com/dwaite/trimpool/internal/payment"
	"github.com/dwaite/trimpool/internal/settlement"
	"github.com/dwaite/trimpool/internal/store"
	"github.com/dwaite/trimpool/internal/websocket"
)

type SettlementHandler struct {
	engine          *settlement.Engine
	settlementStore *store.SettlementStore
	payments        *payment.Client
	archiver        *archive.Archiver
	hub             *websocket.Hub
	logger          *slog.Logger
}

func NewSettlementHandler(engine *settlement.Engine, ss *store.SettlementStore, payments *payment.Client, archiver *archive.Archiver, hub *websocket.Hub, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		engine:          engine,
		settlementStore: ss,
		payments:        payments,
		archiver:        archiver,
		hub:             hub,
		logger:          logger,
	}
}

// Settle runs settlement for a completed challenge. NoWinners is a
// structured outcome, not a failure: the caller gets a 200 with the
// no_winners flag set and must handle it explicitly.
func (h *SettlementHandler) Settle(w http.ResponseWriter, r *http.Request) {
	challengeID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	result, err := h.engine.Settle(challengeID)
	if err != nil {
		var noWinners *errs.NoWinnersError
		if errors.As(err, &noWinners) {
			writeJSON(w, http.StatusOK, map[string]any{
				"challenge_id": challengeID,
				"no_winners":   true,
			})
			return
		}
		writeError(w, h.logger, err)
		return
	}

	h.hub.Publish(websocket.NewEvent(websocket.KindSettlementCompleted, challengeID, map[string]any{
		"settlement_id": result.Settlement.ID,
		"winners":       len(result.Instructions),
	}))

	writeJSON(w, http.StatusOK, result)
}

// Payouts returns the stored settlement and its instructions.
func (h *SettlementHandler) Payouts(w http.ResponseWriter, r *http.Request) {
	challengeID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	stored, err := h.settlementStore.GetByChallenge(challengeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if stored == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "challenge not settled"})
		return
	}

	instructions, err := h.settlementStore.ListInstructions(stored.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, settlement.Result{Settlement: *stored, Instructions: instructions})
}

// ExecutePayouts hands every unblocked instruction of a settled challenge to
// the payment collaborator. Blocked instructions are reported back untouched;
// resolving their destinations is an external concern.
func (h *SettlementHandler) ExecutePayouts(w http.ResponseWriter, r *http.Request) {
	challengeID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if h.payments == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "payment client not configured"})
		return
	}

	stored, err := h.settlementStore.GetByChallenge(challengeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if stored == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "challenge not settled"})
		return
	}

	instructions, err := h.settlementStore.ListInstructions(stored.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	executed := make([]map[string]any, 0, len(instructions))
	var blocked int
	for _, ins := range instructions {
		if ins.Blocked {
			blocked++
			continue
		}
		transferID, err := h.payments.ExecutePayout(ins)
		if err != nil {
			h.logger.Error("execute payout", "instruction_id", ins.ID, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payout execution failed"})
			return
		}
		executed = append(executed, map[string]any{
			"instruction_id": ins.ID,
			"transfer_id":    transferID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"executed": executed,
		"blocked":  blocked,
	})
}

// Archive exports the challenge's encrypted ledger snapshot.
func (h *SettlementHandler) Archive(w http.ResponseWriter, r *http.Request) {
	challengeID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	path, err := h.archiver.Export(challengeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}
