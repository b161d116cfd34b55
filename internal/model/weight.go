package model

import "time"

// WeightRecord is one timestamped weight observation. Records are append-only:
// corrections are new records, never edits, so the full history stays
// available for audit and dispute resolution. Ordering is by RecordedAt with
// ties broken by insertion ID.
type WeightRecord struct {
	ID          int64     `json:"id"`
	ChallengeID int64     `json:"challenge_id"`
	UserID      int64     `json:"user_id"`
	Weight      float64   `json:"weight"`
	RecordedAt  time.Time `json:"recorded_at"`
	ImageRef    *string   `json:"image_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
