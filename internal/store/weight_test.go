package store

import (
	"errors"
	"testing"
	"time"

	"github.com/dwaite/trimpool/internal/database"
	"github.com/dwaite/trimpool/internal/errs"
)

func setupWeightTestDB(t *testing.T) (*WeightStore, int64) {
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
	if _, err := NewParticipantStore(db).Join(c.ID, 42, "alice", 200); err != nil {
		t.Fatalf("join: %v", err)
	}
	return NewWeightStore(db), c.ID
}

func TestWeightAppend(t *testing.T) {
	ws, challengeID := setupWeightTestDB(t)

	ref := "proofs/day1.jpg"
	r, err := ws.Append(challengeID, 42, 198.5, testStart.Add(24*time.Hour), &ref)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if r.Weight != 198.5 {
		t.Errorf("weight = %g, want 198.5", r.Weight)
	}
	if r.ImageRef == nil || *r.ImageRef != ref {
		t.Errorf("image_ref = %v, want %q", r.ImageRef, ref)
	}
	if !r.RecordedAt.Equal(testStart.Add(24 * time.Hour)) {
		t.Errorf("recorded_at = %v, want %v", r.RecordedAt, testStart.Add(24*time.Hour))
	}
}

func TestWeightAppendValidation(t *testing.T) {
	ws, challengeID := setupWeightTestDB(t)

	var verr *errs.ValidationError
	if _, err := ws.Append(challengeID, 42, 0, testStart, nil); !errors.As(err, &verr) {
		t.Errorf("zero weight err = %v, want ValidationError", err)
	}
	if _, err := ws.Append(challengeID, 42, -5, testStart, nil); !errors.As(err, &verr) {
		t.Errorf("negative weight err = %v, want ValidationError", err)
	}
}

func TestWeightAppendUnknownParticipant(t *testing.T) {
	ws, challengeID := setupWeightTestDB(t)

	_, err := ws.Append(challengeID, 9999, 198, testStart, nil)
	var nerr *errs.NotFoundError
	if !errors.As(err, &nerr) {
		t.Errorf("err = %v, want NotFoundError", err)
	}
}

func TestWeightListForOrdering(t *testing.T) {
	ws, challengeID := setupWeightTestDB(t)

	// Insert out of order; a back-dated record must sort by recorded_at.
	times := []time.Time{
		testStart.Add(48 * time.Hour),
		testStart.Add(24 * time.Hour),
		testStart.Add(72 * time.Hour),
	}
	weights := []float64{197, 199, 196}
	for i := range times {
		if _, err := ws.Append(challengeID, 42, weights[i], times[i], nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	records, err := ws.ListFor(challengeID, 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}
	want := []float64{199, 197, 196}
	for i := range want {
		if records[i].Weight != want[i] {
			t.Errorf("records[%d].Weight = %g, want %g", i, records[i].Weight, want[i])
		}
	}
}

func TestWeightListForTiesByInsertion(t *testing.T) {
	ws, challengeID := setupWeightTestDB(t)

	at := testStart.Add(24 * time.Hour)
	for _, w := range []float64{199, 198.5} {
		if _, err := ws.Append(challengeID, 42, w, at, nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	records, err := ws.ListFor(challengeID, 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if records[0].Weight != 199 || records[1].Weight != 198.5 {
		t.Errorf("tie order = %g, %g, want insertion order 199, 198.5", records[0].Weight, records[1].Weight)
	}
}

func TestWeightListForUntil(t *testing.T) {
	ws, challengeID := setupWeightTestDB(t)

	cutoff := testStart.Add(5 * 24 * time.Hour)
	for _, tc := range []struct {
		weight float64
		at     time.Time
	}{
		{199, testStart.Add(24 * time.Hour)},
		{198, cutoff}, // exactly at the cutoff: included
		{190, cutoff.Add(time.Second)},
	} {
		if _, err := ws.Append(challengeID, 42, tc.weight, tc.at, nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	records, err := ws.ListForUntil(challengeID, 42, cutoff)
	if err != nil {
		t.Fatalf("list until: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[len(records)-1].Weight != 198 {
		t.Errorf("last = %g, want 198 (record after cutoff excluded)", records[len(records)-1].Weight)
	}
}

func TestWeightListForEmpty(t *testing.T) {
	ws, challengeID := setupWeightTestDB(t)

	records, err := ws.ListFor(challengeID, 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len = %d, want 0", len(records))
	}
}
