package model

import "time"

// Participant links a user to a challenge. StartWeight is captured at join
// time and is the fixed baseline for all progress computation; the first
// weigh-in never replaces it. Paid flips false→true exactly once, when the
// payment collaborator confirms the entry fee.
type Participant struct {
	ID            int64     `json:"id"`
	ChallengeID   int64     `json:"challenge_id"`
	UserID        int64     `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	StartWeight   float64   `json:"start_weight"`
	Paid          bool      `json:"paid"`
	PayoutAccount *string   `json:"payout_account,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
}
