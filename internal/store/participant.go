package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dwaite/trimpool/internal/errs"
	"github.com/dwaite/trimpool/internal/model"
)

type ParticipantStore struct {
	db *sql.DB
}

func NewParticipantStore(db *sql.DB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

func scanParticipant(scanner interface{ Scan(...any) error }) (*model.Participant, error) {
	var p model.Participant
	var paid int
	var payoutAccount sql.NullString

	err := scanner.Scan(
		&p.ID, &p.ChallengeID, &p.UserID, &p.DisplayName,
		&p.StartWeight, &paid, &payoutAccount, &p.JoinedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Paid = paid != 0
	if payoutAccount.Valid {
		p.PayoutAccount = &payoutAccount.String
	}
	return &p, nil
}

const participantCols = `id, challenge_id, user_id, display_name, start_weight, paid, payout_account, joined_at`

// Join enrolls a user in a challenge, capturing their baseline weight. The
// baseline is immutable afterward; a user joins each challenge at most once.
func (s *ParticipantStore) Join(challengeID, userID int64, displayName string, startWeight float64) (*model.Participant, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, errs.Validation("display name is required")
	}
	if startWeight <= 0 {
		return nil, errs.Validation("start weight must be positive, got %g", startWeight)
	}

	existing, err := s.Get(challengeID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.IllegalState("user %d already joined challenge %d", userID, challengeID)
	}

	result, err := s.db.Exec(
		`INSERT INTO participants (challenge_id, user_id, display_name, start_weight) VALUES (?, ?, ?, ?)`,
		challengeID, userID, displayName, startWeight,
	)
	if err != nil {
		return nil, fmt.Errorf("insert participant: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+participantCols+` FROM participants WHERE id = ?`, id)
	return scanParticipant(row)
}

func (s *ParticipantStore) Get(challengeID, userID int64) (*model.Participant, error) {
	row := s.db.QueryRow(
		`SELECT `+participantCols+` FROM participants WHERE challenge_id = ? AND user_id = ?`,
		challengeID, userID,
	)
	p, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

func (s *ParticipantStore) ListByChallenge(challengeID int64) ([]model.Participant, error) {
	rows, err := s.db.Query(
		`SELECT `+participantCols+` FROM participants WHERE challenge_id = ? ORDER BY joined_at ASC, id ASC`,
		challengeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, *p)
	}
	return participants, rows.Err()
}

// MarkPaid records the payment collaborator's confirmation of the entry fee.
// The flag only ever moves false→true; confirming twice is a no-op.
func (s *ParticipantStore) MarkPaid(challengeID, userID int64) error {
	result, err := s.db.Exec(
		`UPDATE participants SET paid = 1 WHERE challenge_id = ? AND user_id = ?`,
		challengeID, userID,
	)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return errs.NotFound("participant", userID)
	}
	return nil
}

// SetPayoutAccount stores the winner's external payout destination reference,
// as resolved by the payment collaborator.
func (s *ParticipantStore) SetPayoutAccount(challengeID, userID int64, account string) error {
	result, err := s.db.Exec(
		`UPDATE participants SET payout_account = ? WHERE challenge_id = ? AND user_id = ?`,
		account, challengeID, userID,
	)
	if err != nil {
		return fmt.Errorf("set payout account: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return errs.NotFound("participant", userID)
	}
	return nil
}
