package archive

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dwaite/trimpool/internal/database"
	"github.com/dwaite/trimpool/internal/errs"
	"github.com/dwaite/trimpool/internal/model"
	"github.com/dwaite/trimpool/internal/store"
)

func TestSealOpenRoundTrip(t *testing.T) {
	plaintext := []byte(`{"hello":"ledger"}`)

	sealed, err := Seal(plaintext, "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if len(sealed) <= len(plaintext) {
		t.Errorf("sealed length %d should exceed plaintext length %d", len(sealed), len(plaintext))
	}

	opened, err := Open(sealed, "correct horse")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(opened) != string(plaintext) {
		t.Errorf("opened = %q, want %q", opened, plaintext)
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, err := Seal([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := Open(sealed, "wrong"); err == nil {
		t.Fatal("expected decryption failure with wrong passphrase")
	}
}

func TestOpenTruncatedData(t *testing.T) {
	if _, err := Open([]byte("short"), "any"); err == nil {
		t.Fatal("expected failure on truncated data")
	}
}

func TestSealUniquePerCall(t *testing.T) {
	a, err := Seal([]byte("same"), "pass")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := Seal([]byte("same"), "pass")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if string(a) == string(b) {
		t.Error("two seals of the same plaintext should differ (fresh salt and nonce)")
	}
}

type archiveFixture struct {
	archiver     *Archiver
	challenges   *store.ChallengeStore
	participants *store.ParticipantStore
	weights      *store.WeightStore
}

func setupArchiver(t *testing.T) *archiveFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &archiveFixture{
		challenges:   store.NewChallengeStore(db),
		participants: store.NewParticipantStore(db),
		weights:      store.NewWeightStore(db),
	}
	cfg := Config{Dir: t.TempDir(), Passphrase: "test passphrase"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.archiver = NewArchiver(cfg, f.challenges, f.participants, f.weights, logger)
	return f
}

func TestExportReadRoundTrip(t *testing.T) {
	f := setupArchiver(t)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c, err := f.challenges.Create(1, "Shred", "", start, start.Add(28*24*time.Hour), 4000, 4.0)
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	if _, err := f.participants.Join(c.ID, 42, "alice", 200); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := f.weights.Append(c.ID, 42, 195, start.Add(24*time.Hour), nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := f.challenges.Transition(c.ID, model.StatusInProgress); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.challenges.Transition(c.ID, model.StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	path, err := f.archiver.Export(c.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	snapshot, err := Read(path, "test passphrase")
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if snapshot.Challenge.ID != c.ID {
		t.Errorf("challenge ID = %d, want %d", snapshot.Challenge.ID, c.ID)
	}
	if len(snapshot.Participants) != 1 {
		t.Fatalf("participants = %d, want 1", len(snapshot.Participants))
	}
	records := snapshot.Records[42]
	if len(records) != 1 || records[0].Weight != 195 {
		t.Errorf("records = %+v, want one 195 record", records)
	}
}

func TestExportWrongPassphraseFailsRead(t *testing.T) {
	f := setupArchiver(t)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c, err := f.challenges.Create(1, "Shred", "", start, start.Add(28*24*time.Hour), 4000, 4.0)
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	if _, err := f.challenges.Transition(c.ID, model.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	path, err := f.archiver.Export(c.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := Read(path, "not the passphrase"); err == nil {
		t.Fatal("expected read failure with wrong passphrase")
	}
}

func TestExportRequiresFinishedChallenge(t *testing.T) {
	f := setupArchiver(t)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c, err := f.challenges.Create(1, "Shred", "", start, start.Add(28*24*time.Hour), 4000, 4.0)
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}

	_, err = f.archiver.Export(c.ID)
	var serr *errs.IllegalStateError
	if !errors.As(err, &serr) {
		t.Errorf("err = %v, want IllegalStateError for an open challenge", err)
	}
}

func TestExportChallengeNotFound(t *testing.T) {
	f := setupArchiver(t)

	_, err := f.archiver.Export(9999)
	var nerr *errs.NotFoundError
	if !errors.As(err, &nerr) {
		t.Errorf("err = %v, want NotFoundError", err)
	}
}
