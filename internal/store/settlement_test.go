package store

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/dwaite/trimpool/internal/database"
	"github.com/dwaite/trimpool/internal/model"
)

func setupSettlementTestDB(t *testing.T) (*SettlementStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c, err := NewChallengeStore(db).Create(1, "Shred", "", testStart, testEnd, 4000, 4.0)
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	return NewSettlementStore(db), c.ID
}

func TestSettlementCreateAndGet(t *testing.T) {
	ss, challengeID := setupSettlementTestDB(t)

	dest := "acct_123"
	settlement := &model.Settlement{
		ID:            uuid.NewString(),
		ChallengeID:   challengeID,
		Pool:          20000,
		PlatformFee:   7000,
		Distributable: 13000,
	}
	instructions := []model.PayoutInstruction{
		{ID: uuid.NewString(), SettlementID: settlement.ID, Rank: 1, UserID: 2, Amount: 4400, Destination: &dest},
		{ID: uuid.NewString(), SettlementID: settlement.ID, Rank: 2, UserID: 5, Amount: 4300, Blocked: true},
		{ID: uuid.NewString(), SettlementID: settlement.ID, Rank: 3, UserID: 9, Amount: 4300, Destination: &dest},
	}
	if err := ss.Create(settlement, instructions); err != nil {
		t.Fatalf("create settlement: %v", err)
	}

	got, err := ss.GetByChallenge(challengeID)
	if err != nil {
		t.Fatalf("get settlement: %v", err)
	}
	if got == nil {
		t.Fatal("settlement not found")
	}
	if got.Pool != 20000 || got.PlatformFee != 7000 || got.Distributable != 13000 {
		t.Errorf("amounts = %d/%d/%d, want 20000/7000/13000", got.Pool, got.PlatformFee, got.Distributable)
	}
	if got.NoWinners {
		t.Error("no_winners should be false")
	}

	stored, err := ss.ListInstructions(settlement.ID)
	if err != nil {
		t.Fatalf("list instructions: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("len = %d, want 3", len(stored))
	}
	for i, ins := range stored {
		if ins.Rank != i+1 {
			t.Errorf("instructions[%d].Rank = %d, want %d (rank order)", i, ins.Rank, i+1)
		}
	}
	if !stored[1].Blocked {
		t.Error("rank 2 should be blocked")
	}
	if stored[1].Destination != nil {
		t.Errorf("blocked destination = %v, want nil", stored[1].Destination)
	}
}

func TestSettlementCreateTwiceFails(t *testing.T) {
	ss, challengeID := setupSettlementTestDB(t)

	first := &model.Settlement{ID: uuid.NewString(), ChallengeID: challengeID, NoWinners: true}
	if err := ss.Create(first, nil); err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := &model.Settlement{ID: uuid.NewString(), ChallengeID: challengeID}
	err := ss.Create(second, nil)
	if err == nil {
		t.Fatal("second create should violate the unique challenge constraint")
	}
	if !strings.Contains(err.Error(), "insert settlement") {
		t.Errorf("err = %v, want insert settlement failure", err)
	}
}

func TestSettlementGetByChallengeMissing(t *testing.T) {
	ss, challengeID := setupSettlementTestDB(t)

	got, err := ss.GetByChallenge(challengeID)
	if err != nil {
		t.Fatalf("get settlement: %v", err)
	}
	if got != nil {
		t.Error("expected nil before settlement runs")
	}
}

func TestSettlementNoWinnersPersisted(t *testing.T) {
	ss, challengeID := setupSettlementTestDB(t)

	settlement := &model.Settlement{
		ID:          uuid.NewString(),
		ChallengeID: challengeID,
		Pool:        20000,
		PlatformFee: 7000,
		NoWinners:   true,
	}
	if err := ss.Create(settlement, nil); err != nil {
		t.Fatalf("create settlement: %v", err)
	}

	got, err := ss.GetByChallenge(challengeID)
	if err != nil {
		t.Fatalf("get settlement: %v", err)
	}
	if !got.NoWinners {
		t.Error("no_winners flag should survive the round trip")
	}

	instructions, err := ss.ListInstructions(settlement.ID)
	if err != nil {
		t.Fatalf("list instructions: %v", err)
	}
	if len(instructions) != 0 {
		t.Errorf("len = %d, want 0 instructions for a no-winners settlement", len(instructions))
	}
}
