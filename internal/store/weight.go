package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dwaite/trimpool/internal/errs"
	"github.com/dwaite/trimpool/internal/model"
)

// WeightStore is the append-only ledger of weight observations. There are no
// update or delete methods: corrections are modeled as new records so the
// full history survives for audit and dispute resolution.
type WeightStore struct {
	db *sql.DB
}

func NewWeightStore(db *sql.DB) *WeightStore {
	return &WeightStore{db: db}
}

func scanWeightRecord(scanner interface{ Scan(...any) error }) (*model.WeightRecord, error) {
	var r model.WeightRecord
	var imageRef sql.NullString

	err := scanner.Scan(
		&r.ID, &r.ChallengeID, &r.UserID, &r.Weight,
		&r.RecordedAt, &imageRef, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if imageRef.Valid {
		r.ImageRef = &imageRef.String
	}
	return &r, nil
}

const weightCols = `id, challenge_id, user_id, weight, recorded_at, image_ref, created_at`

// Append adds one observation to the ledger. The weight must be positive and
// the user must be a joined participant of the challenge.
func (s *WeightStore) Append(challengeID, userID int64, weight float64, recordedAt time.Time, imageRef *string) (*model.WeightRecord, error) {
	if weight <= 0 {
		return nil, errs.Validation("weight must be positive, got %g", weight)
	}

	var participantID int64
	err := s.db.QueryRow(
		`SELECT id FROM participants WHERE challenge_id = ? AND user_id = ?`,
		challengeID, userID,
	).Scan(&participantID)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("participant", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}

	var ref sql.NullString
	if imageRef != nil {
		ref = sql.NullString{String: *imageRef, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO weight_records (challenge_id, user_id, weight, recorded_at, image_ref) VALUES (?, ?, ?, ?, ?)`,
		challengeID, userID, weight, recordedAt.UTC(), ref,
	)
	if err != nil {
		return nil, fmt.Errorf("insert weight record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+weightCols+` FROM weight_records WHERE id = ?`, id)
	return scanWeightRecord(row)
}

// ListFor returns every record for a participant, ascending by recorded_at
// with ties broken by insertion order.
func (s *WeightStore) ListFor(challengeID, userID int64) ([]model.WeightRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+weightCols+` FROM weight_records WHERE challenge_id = ? AND user_id = ? ORDER BY recorded_at ASC, id ASC`,
		challengeID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list weight records: %w", err)
	}
	defer rows.Close()

	return collectWeightRecords(rows)
}

// ListForUntil is ListFor restricted to records dated at or before cutoff.
// Settlement uses it so weigh-ins dated after the challenge end never count.
func (s *WeightStore) ListForUntil(challengeID, userID int64, cutoff time.Time) ([]model.WeightRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+weightCols+` FROM weight_records WHERE challenge_id = ? AND user_id = ? AND recorded_at <= ? ORDER BY recorded_at ASC, id ASC`,
		challengeID, userID, cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list weight records until: %w", err)
	}
	defer rows.Close()

	return collectWeightRecords(rows)
}

func collectWeightRecords(rows *sql.Rows) ([]model.WeightRecord, error) {
	var records []model.WeightRecord
	for rows.Next() {
		r, err := scanWeightRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan weight record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}
