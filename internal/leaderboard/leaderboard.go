// Package leaderboard orders challenge participants by progress. The ranking
// is a view, recomputed on every read, never stored: a late-arriving but
// earlier-dated correction must retroactively change rank.
package leaderboard

import (
	"sort"

	"github.com/dwaite/trimpool/internal/model"
	"github.com/dwaite/trimpool/internal/progress"
)

// Entry pairs a participant with their derived progress.
type Entry struct {
	Participant model.Participant `json:"participant"`
	progress.Summary
	Rank int `json:"rank"`
}

// Build computes a ranked leaderboard for the given participants. recordsFor
// fetches one participant's ordered weigh-in history; live reads pass the
// full ledger, settlement passes the ledger cut off at the challenge end.
func Build(participants []model.Participant, recordsFor func(userID int64) ([]model.WeightRecord, error)) ([]Entry, error) {
	entries := make([]Entry, 0, len(participants))
	for _, p := range participants {
		records, err := recordsFor(p.UserID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			Participant: p,
			Summary:     progress.Compute(p.StartWeight, records),
		})
	}
	return Rank(entries), nil
}

// Rank orders entries by percentage lost descending. Ties go to the earliest
// last weigh-in, rewarding consistent early trackers. Participants with no
// weigh-ins sort last regardless of their nominal zero percentage, ordered
// among themselves by user ID for a deterministic total order. Rank fields
// are assigned 1-based on the result.
func Rank(entries []Entry) []Entry {
	ranked := make([]Entry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]

		aEmpty := a.TotalWeighIns == 0
		bEmpty := b.TotalWeighIns == 0
		if aEmpty != bEmpty {
			return bEmpty
		}
		if aEmpty && bEmpty {
			return a.Participant.UserID < b.Participant.UserID
		}

		if a.PercentageLost != b.PercentageLost {
			return a.PercentageLost > b.PercentageLost
		}
		if !a.LastWeighIn.Equal(*b.LastWeighIn) {
			return a.LastWeighIn.Before(*b.LastWeighIn)
		}
		return a.Participant.UserID < b.Participant.UserID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
