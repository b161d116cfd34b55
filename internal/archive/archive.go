// Package archive exports a finished challenge's full weigh-in ledger as an
// encrypted snapshot, preserving the append-only history for audit and
// dispute resolution after the challenge itself is long gone.
package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dwaite/trimpool/internal/errs"
	"github.com/dwaite/trimpool/internal/model"
	"github.com/dwaite/trimpool/internal/store"
)

type Config struct {
	Dir        string
	Passphrase string
}

// Snapshot is the plaintext layout of an archive file.
type Snapshot struct {
	Challenge    model.Challenge                `json:"challenge"`
	Participants []model.Participant            `json:"participants"`
	Records      map[int64][]model.WeightRecord `json:"records"` // keyed by user ID
	ExportedAt   time.Time                      `json:"exported_at"`
}

type Archiver struct {
	cfg          Config
	challenges   *store.ChallengeStore
	participants *store.ParticipantStore
	weights      *store.WeightStore
	logger       *slog.Logger
}

func NewArchiver(cfg Config, cs *store.ChallengeStore, ps *store.ParticipantStore, ws *store.WeightStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		cfg:          cfg,
		challenges:   cs,
		participants: ps,
		weights:      ws,
		logger:       logger,
	}
}

// Export writes an encrypted snapshot of the challenge's ledger and returns
// the file path. Only finished challenges (completed or cancelled) may be
// archived; a live ledger is still growing.
func (a *Archiver) Export(challengeID int64) (string, error) {
	challenge, err := a.challenges.GetByID(challengeID)
	if err != nil {
		return "", err
	}
	if challenge == nil {
		return "", errs.NotFound("challenge", challengeID)
	}
	if challenge.Status != model.StatusCompleted && challenge.Status != model.StatusCancelled {
		return "", errs.IllegalState("challenge %d is %s, archive requires a finished challenge", challengeID, challenge.Status)
	}

	participants, err := a.participants.ListByChallenge(challengeID)
	if err != nil {
		return "", err
	}

	snapshot := Snapshot{
		Challenge:    *challenge,
		Participants: participants,
		Records:      make(map[int64][]model.WeightRecord, len(participants)),
		ExportedAt:   time.Now().UTC(),
	}
	for _, p := range participants {
		records, err := a.weights.ListFor(challengeID, p.UserID)
		if err != nil {
			return "", err
		}
		snapshot.Records[p.UserID] = records
	}

	plaintext, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	sealed, err := Seal(plaintext, a.cfg.Passphrase)
	if err != nil {
		return "", fmt.Errorf("seal snapshot: %w", err)
	}

	if err := os.MkdirAll(a.cfg.Dir, 0700); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	name := fmt.Sprintf("challenge_%d_%s.ledger", challengeID, snapshot.ExportedAt.Format("20060102T150405Z"))
	path := filepath.Join(a.cfg.Dir, name)
	if err := os.WriteFile(path, sealed, 0600); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}

	a.logger.Info("challenge ledger archived", "challenge_id", challengeID, "path", path)
	return path, nil
}

// Read decrypts an archive file back into a Snapshot.
func Read(path, passphrase string) (*Snapshot, error) {
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	plaintext, err := Open(sealed, passphrase)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(plaintext, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}
