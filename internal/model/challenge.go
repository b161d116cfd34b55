package model

import "time"

type ChallengeStatus string

const (
	StatusOpen       ChallengeStatus = "open"
	StatusInProgress ChallengeStatus = "in_progress"
	StatusCompleted  ChallengeStatus = "completed"
	StatusCancelled  ChallengeStatus = "cancelled"
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s ChallengeStatus) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a challenge may move from one status to
// another. Transitions are monotonic: open → in_progress → completed, with
// cancellation allowed only from open or in_progress.
func CanTransition(from, to ChallengeStatus) bool {
	switch from {
	case StatusOpen:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

type Challenge struct {
	ID          int64           `json:"id"`
	HostUserID  int64           `json:"host_user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartAt     time.Time       `json:"start_at"`
	EndAt       time.Time       `json:"end_at"`
	EntryFee    int64           `json:"entry_fee"`
	GoalPercent float64         `json:"goal_percent"`
	Status      ChallengeStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
