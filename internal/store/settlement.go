package store

import (
	"database/sql"
	"fmt"

	"github.com/dwaite/trimpool/internal/model"
)

type SettlementStore struct {
	db *sql.DB
}

func NewSettlementStore(db *sql.DB) *SettlementStore {
	return &SettlementStore{db: db}
}

func scanSettlement(scanner interface{ Scan(...any) error }) (*model.Settlement, error) {
	var s model.Settlement
	var noWinners int

	err := scanner.Scan(
		&s.ID, &s.ChallengeID, &s.Pool, &s.PlatformFee,
		&s.Distributable, &noWinners, &s.SettledAt,
	)
	if err != nil {
		return nil, err
	}

	s.NoWinners = noWinners != 0
	return &s, nil
}

const settlementCols = `id, challenge_id, pool, platform_fee, distributable, no_winners, settled_at`

// Create persists a settlement run and its payout instructions in one
// transaction. The UNIQUE constraint on challenge_id is the durable half of
// the run-once guarantee: a second insert for the same challenge fails
// instead of silently overwriting the authoritative result.
func (s *SettlementStore) Create(settlement *model.Settlement, instructions []model.PayoutInstruction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	noWinners := 0
	if settlement.NoWinners {
		noWinners = 1
	}

	_, err = tx.Exec(
		`INSERT INTO settlements (id, challenge_id, pool, platform_fee, distributable, no_winners) VALUES (?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.ChallengeID, settlement.Pool,
		settlement.PlatformFee, settlement.Distributable, noWinners,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}

	for _, ins := range instructions {
		var dest sql.NullString
		if ins.Destination != nil {
			dest = sql.NullString{String: *ins.Destination, Valid: true}
		}
		blocked := 0
		if ins.Blocked {
			blocked = 1
		}
		_, err = tx.Exec(
			`INSERT INTO payout_instructions (id, settlement_id, rank, user_id, amount, destination, blocked) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ins.ID, settlement.ID, ins.Rank, ins.UserID, ins.Amount, dest, blocked,
		)
		if err != nil {
			return fmt.Errorf("insert payout instruction: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SettlementStore) GetByChallenge(challengeID int64) (*model.Settlement, error) {
	row := s.db.QueryRow(
		`SELECT `+settlementCols+` FROM settlements WHERE challenge_id = ?`,
		challengeID,
	)
	settlement, err := scanSettlement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settlement: %w", err)
	}
	return settlement, nil
}

// ListInstructions returns a settlement's payout instructions in rank order.
func (s *SettlementStore) ListInstructions(settlementID string) ([]model.PayoutInstruction, error) {
	rows, err := s.db.Query(
		`SELECT id, settlement_id, rank, user_id, amount, destination, blocked
		 FROM payout_instructions WHERE settlement_id = ? ORDER BY rank ASC`,
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payout instructions: %w", err)
	}
	defer rows.Close()

	var instructions []model.PayoutInstruction
	for rows.Next() {
		var ins model.PayoutInstruction
		var dest sql.NullString
		var blocked int
		err := rows.Scan(&ins.ID, &ins.SettlementID, &ins.Rank, &ins.UserID, &ins.Amount, &dest, &blocked)
		if err != nil {
			return nil, fmt.Errorf("scan payout instruction: %w", err)
		}
		if dest.Valid {
			ins.Destination = &dest.String
		}
		ins.Blocked = blocked != 0
		instructions = append(instructions, ins)
	}
	return instructions, rows.Err()
}
