package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/dwaite/trimpool/internal/payment"
	"github.com/dwaite/trimpool/internal/store"
)

// WebhookHandler receives the payment collaborator's confirmations. Stripe's
// word is authoritative: a confirmed checkout flips the participant's paid
// flag, and nothing in this process ever flips it back.
type WebhookHandler struct {
	payments         *payment.Client
	participantStore *store.ParticipantStore
	logger           *slog.Logger
}

func NewWebhookHandler(payments *payment.Client, ps *store.ParticipantStore, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{payments: payments, participantStore: ps, logger: logger}
}

func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	event, err := h.payments.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(event)
	case "account.updated":
		h.handleAccountUpdated(event)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleCheckoutCompleted(event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("webhook: unmarshal checkout session", "error", err)
		return
	}

	challengeID, err1 := strconv.ParseInt(sess.Metadata["challenge_id"], 10, 64)
	userID, err2 := strconv.ParseInt(sess.Metadata["user_id"], 10, 64)
	if err1 != nil || err2 != nil {
		h.logger.Error("webhook: checkout session missing challenge metadata", "session", sess.ID)
		return
	}

	if err := h.participantStore.MarkPaid(challengeID, userID); err != nil {
		h.logger.Error("webhook: mark paid", "challenge_id", challengeID, "user_id", userID, "error", err)
		return
	}

	h.logger.Info("entry fee confirmed", "challenge_id", challengeID, "user_id", userID)
}

// handleAccountUpdated stores a participant's payout destination once their
// connected account becomes ready for transfers.
func (h *WebhookHandler) handleAccountUpdated(event stripe.Event) {
	var account stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
		h.logger.Error("webhook: unmarshal account", "error", err)
		return
	}
	if !account.PayoutsEnabled {
		return
	}

	challengeID, err1 := strconv.ParseInt(account.Metadata["challenge_id"], 10, 64)
	userID, err2 := strconv.ParseInt(account.Metadata["user_id"], 10, 64)
	if err1 != nil || err2 != nil {
		return
	}

	if err := h.participantStore.SetPayoutAccount(challengeID, userID, account.ID); err != nil {
		h.logger.Error("webhook: set payout account", "challenge_id", challengeID, "user_id", userID, "error", err)
	}
}
