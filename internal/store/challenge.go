package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dwaite/trimpool/internal/errs"
	"github.com/dwaite/trimpool/internal/model"
)

type ChallengeStore struct {
	db *sql.DB
}

func NewChallengeStore(db *sql.DB) *ChallengeStore {
	return &ChallengeStore{db: db}
}

func scanChallenge(scanner interface{ Scan(...any) error }) (*model.Challenge, error) {
	var c model.Challenge
	err := scanner.Scan(
		&c.ID, &c.HostUserID, &c.Title, &c.Description,
		&c.StartAt, &c.EndAt, &c.EntryFee, &c.GoalPercent,
		&c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const challengeCols = `id, host_user_id, title, description, start_at, end_at, entry_fee, goal_percent, status, created_at, updated_at`

func (s *ChallengeStore) Create(hostUserID int64, title, description string, startAt, endAt time.Time, entryFee int64, goalPercent float64) (*model.Challenge, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errs.Validation("title is required")
	}
	if entryFee <= 0 {
		return nil, errs.Validation("entry fee must be positive, got %d", entryFee)
	}
	if goalPercent <= 0 {
		return nil, errs.Validation("goal percent must be positive, got %g", goalPercent)
	}
	if endAt.Before(startAt) {
		return nil, errs.Validation("challenge end precedes start")
	}

	result, err := s.db.Exec(
		`INSERT INTO challenges (host_user_id, title, description, start_at, end_at, entry_fee, goal_percent, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		hostUserID, title, description, startAt.UTC(), endAt.UTC(), entryFee, goalPercent, model.StatusOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("insert challenge: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChallengeStore) GetByID(id int64) (*model.Challenge, error) {
	row := s.db.QueryRow(`SELECT `+challengeCols+` FROM challenges WHERE id = ?`, id)
	c, err := scanChallenge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	return c, nil
}

func (s *ChallengeStore) List() ([]model.Challenge, error) {
	rows, err := s.db.Query(`SELECT ` + challengeCols + ` FROM challenges ORDER BY start_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	var challenges []model.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

// Transition moves a challenge to a new lifecycle status. The transition must
// be legal per model.CanTransition; anything else is an IllegalStateError.
// The check and the update run in one transaction so a concurrent transition
// cannot slip between them.
func (s *ChallengeStore) Transition(id int64, to model.ChallengeStatus) (*model.Challenge, error) {
	if !model.ValidStatus(to) {
		return nil, errs.Validation("unknown status %q", to)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var from model.ChallengeStatus
	err = tx.QueryRow(`SELECT status FROM challenges WHERE id = ?`, id).Scan(&from)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("challenge", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge status: %w", err)
	}

	if !model.CanTransition(from, to) {
		return nil, errs.IllegalState("challenge %d cannot transition from %s to %s", id, from, to)
	}

	_, err = tx.Exec(
		`UPDATE challenges SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		to, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update challenge status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return s.GetByID(id)
}
