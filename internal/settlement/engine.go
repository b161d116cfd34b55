// Package settlement computes winners and payout amounts for a completed
// challenge. Settlement is a single authoritative run per challenge:
// re-invocation returns the stored result, and concurrent invocations cannot
// both produce payout instructions.
package settlement

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dwaite/trimpool/internal/errs"
	"github.com/dwaite/trimpool/internal/leaderboard"
	"github.com/dwaite/trimpool/internal/model"
	"github.com/dwaite/trimpool/internal/store"
)

// platformFeePercent of the pool is retained by the operator before
// distribution to winners.
const platformFeePercent = 35

// Result is the outcome of one settlement run.
type Result struct {
	Settlement   model.Settlement          `json:"settlement"`
	Instructions []model.PayoutInstruction `json:"instructions"`
}

type Engine struct {
	challenges   *store.ChallengeStore
	participants *store.ParticipantStore
	weights      *store.WeightStore
	settlements  *store.SettlementStore
	logger       *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewEngine(cs *store.ChallengeStore, ps *store.ParticipantStore, ws *store.WeightStore, ss *store.SettlementStore, logger *slog.Logger) *Engine {
	return &Engine{
		challenges:   cs,
		participants: ps,
		weights:      ws,
		settlements:  ss,
		logger:       logger,
		locks:        make(map[int64]*sync.Mutex),
	}
}

// challengeLock returns the mutex serializing settlement for one challenge.
func (e *Engine) challengeLock(challengeID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[challengeID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[challengeID] = l
	}
	return l
}

// Settle runs settlement for a completed challenge. It is idempotent: a
// repeat call returns the previously stored result, including the NoWinners
// outcome. The challenge must already be in completed status; this engine
// does not own the status field.
//
// Winners are the paid participants whose percentage lost meets the goal,
// ranked over weigh-ins dated at or before the challenge end. Unpaid
// participants are excluded from both the pool and the payout: only
// confirmed entry fees fund the pool.
func (e *Engine) Settle(challengeID int64) (*Result, error) {
	lock := e.challengeLock(challengeID)
	lock.Lock()
	defer lock.Unlock()

	challenge, err := e.challenges.GetByID(challengeID)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, errs.NotFound("challenge", challengeID)
	}
	if challenge.Status != model.StatusCompleted {
		return nil, errs.IllegalState("challenge %d is %s, settlement requires completed", challengeID, challenge.Status)
	}

	if existing, err := e.settlements.GetByChallenge(challengeID); err != nil {
		return nil, err
	} else if existing != nil {
		return e.storedResult(existing)
	}

	participants, err := e.participants.ListByChallenge(challengeID)
	if err != nil {
		return nil, err
	}

	entries, err := leaderboard.Build(participants, func(userID int64) ([]model.WeightRecord, error) {
		return e.weights.ListForUntil(challengeID, userID, challenge.EndAt)
	})
	if err != nil {
		return nil, err
	}

	var paidCount int64
	var winners []leaderboard.Entry
	for _, entry := range entries {
		if !entry.Participant.Paid {
			continue
		}
		paidCount++
		if entry.PercentageLost >= challenge.GoalPercent {
			winners = append(winners, entry)
		}
	}

	pool := challenge.EntryFee * paidCount
	fee := pool * platformFeePercent / 100
	distributable := pool - fee

	settlement := model.Settlement{
		ID:            uuid.NewString(),
		ChallengeID:   challengeID,
		Pool:          pool,
		PlatformFee:   fee,
		Distributable: distributable,
		NoWinners:     len(winners) == 0,
	}

	if len(winners) == 0 {
		// Persist the run so re-invocation stays idempotent. The pool is not
		// distributed; refund or rollover is an external decision.
		if err := e.settlements.Create(&settlement, nil); err != nil {
			return nil, fmt.Errorf("persist settlement: %w", err)
		}
		e.logger.Info("settled with no winners", "challenge_id", challengeID, "pool", pool)
		return nil, &errs.NoWinnersError{ChallengeID: challengeID}
	}

	instructions := e.split(settlement, winners)

	if err := e.settlements.Create(&settlement, instructions); err != nil {
		return nil, fmt.Errorf("persist settlement: %w", err)
	}

	e.logger.Info("challenge settled",
		"challenge_id", challengeID,
		"pool", pool,
		"platform_fee", fee,
		"winners", len(winners),
	)

	stored, err := e.settlements.GetByChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	return e.storedResult(stored)
}

// split divides the distributable amount among winners in rank order: equal
// integer shares, with the remainder handed out one unit at a time from the
// best performer down. The sum of all amounts plus the platform fee must
// equal the pool exactly.
func (e *Engine) split(settlement model.Settlement, winners []leaderboard.Entry) []model.PayoutInstruction {
	n := int64(len(winners))
	share := settlement.Distributable / n
	remainder := settlement.Distributable % n

	instructions := make([]model.PayoutInstruction, 0, n)
	var sum int64
	for i, w := range winners {
		amount := share
		if int64(i) < remainder {
			amount++
		}
		sum += amount

		ins := model.PayoutInstruction{
			ID:           uuid.NewString(),
			SettlementID: settlement.ID,
			Rank:         i + 1,
			UserID:       w.Participant.UserID,
			Amount:       amount,
		}
		if w.Participant.PayoutAccount != nil && *w.Participant.PayoutAccount != "" {
			ins.Destination = w.Participant.PayoutAccount
		} else {
			// No usable destination: emit anyway, flagged, never dropped.
			ins.Blocked = true
		}
		instructions = append(instructions, ins)
	}

	if sum+settlement.PlatformFee != settlement.Pool {
		panic(fmt.Sprintf(
			"settlement: pool conservation violated for challenge %d: %d payouts + %d fee != %d pool",
			settlement.ChallengeID, sum, settlement.PlatformFee, settlement.Pool,
		))
	}

	return instructions
}

// storedResult rebuilds a Result from persisted rows. A stored NoWinners run
// reproduces the original NoWinnersError.
func (e *Engine) storedResult(settlement *model.Settlement) (*Result, error) {
	if settlement.NoWinners {
		return nil, &errs.NoWinnersError{ChallengeID: settlement.ChallengeID}
	}
	instructions, err := e.settlements.ListInstructions(settlement.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Settlement: *settlement, Instructions: instructions}, nil
}
