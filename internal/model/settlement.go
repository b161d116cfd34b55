package model

import "time"

// Settlement is the persisted result of the one-time payout computation for
// a completed challenge. Exactly one row may exist per challenge; re-running
// settlement returns this row rather than recomputing. The row records the
// arithmetic, not money movement — the payment collaborator's confirmation
// is the source of truth for whether funds actually moved.
type Settlement struct {
	ID            string    `json:"id"`
	ChallengeID   int64     `json:"challenge_id"`
	Pool          int64     `json:"pool"`
	PlatformFee   int64     `json:"platform_fee"`
	Distributable int64     `json:"distributable"`
	NoWinners     bool      `json:"no_winners"`
	SettledAt     time.Time `json:"settled_at"`
}

// PayoutInstruction directs one winner's share to their external payout
// destination. Blocked instructions had no usable destination at settlement
// time; they are emitted anyway so no winner is silently dropped.
type PayoutInstruction struct {
	ID           string  `json:"id"`
	SettlementID string  `json:"settlement_id"`
	Rank         int     `json:"rank"`
	UserID       int64   `json:"user_id"`
	Amount       int64   `json:"amount"`
	Destination  *string `json:"destination,omitempty"`
	Blocked      bool    `json:"blocked"`
}
