package model

import "time"

// ChatMessage is a message in a challenge's feed. Hidden marks a message
// removed by moderation; the row is kept so the feed history stays auditable.
type ChatMessage struct {
	ID          int64      `json:"id"`
	ChallengeID int64      `json:"challenge_id"`
	UserID      int64      `json:"user_id"`
	Body        string     `json:"body"`
	Pinned      bool       `json:"pinned"`
	Hidden      bool       `json:"hidden"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
