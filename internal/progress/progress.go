// Package progress derives a participant's standing from their baseline
// weight and ordered weigh-in history. Everything here is a pure function of
// its inputs: no caching, no side effects. Callers must recompute from
// current data on every read, since records can arrive out of order relative
// to wall-clock time.
package progress

import (
	"math"
	"time"

	"github.com/dwaite/trimpool/internal/model"
)

// trendWindow is how far back the weekly trend looks from the latest record.
const trendWindow = 7 * 24 * time.Hour

// Summary is the derived view of one participant's progress. It is never
// persisted.
type Summary struct {
	LatestWeight   float64    `json:"latest_weight"`
	PercentageLost float64    `json:"percentage_lost"`
	WeeklyTrend    float64    `json:"weekly_trend"`
	LastWeighIn    *time.Time `json:"last_weigh_in,omitempty"`
	TotalWeighIns  int        `json:"total_weigh_ins"`
}

// Compute derives a Summary from the participant's baseline and their
// records, which must be ordered ascending by recorded time (ties by
// insertion order), as the weight store returns them.
//
// PercentageLost is relative to startWeight, not the first record: a
// participant whose first submission is delayed must not have their baseline
// drift. Positive means weight lost.
func Compute(startWeight float64, records []model.WeightRecord) Summary {
	s := Summary{
		LatestWeight:  startWeight,
		TotalWeighIns: len(records),
	}

	if len(records) == 0 {
		return s
	}

	latest := records[len(records)-1]
	s.LatestWeight = latest.Weight
	t := latest.RecordedAt
	s.LastWeighIn = &t

	s.PercentageLost = roundTenth((startWeight - latest.Weight) / startWeight * 100)
	s.WeeklyTrend = weeklyTrend(records)

	return s
}

// weeklyTrend is the latest weight minus the weight of the nearest record at
// or before seven calendar days prior to the latest. Negative means the
// participant is losing weight week over week. With fewer than two records,
// or no record old enough to anchor the window, the trend is zero.
func weeklyTrend(records []model.WeightRecord) float64 {
	if len(records) < 2 {
		return 0
	}

	latest := records[len(records)-1]
	boundary := latest.RecordedAt.Add(-trendWindow)

	var anchor *model.WeightRecord
	for i := len(records) - 2; i >= 0; i-- {
		if !records[i].RecordedAt.After(boundary) {
			anchor = &records[i]
			break
		}
	}
	if anchor == nil {
		return 0
	}

	return latest.Weight - anchor.Weight
}

// roundTenth rounds to one decimal place, half away from zero. An unchanged
// weight yields exactly 0, never a near-zero float artifact.
//
// The value is snapped to nine decimal places before the final rounding, so
// a decimal half-case whose float64 form sits just under the boundary (6.05
// arriving as 6.04999...) still rounds up.
func roundTenth(v float64) float64 {
	return math.Round(math.Round(v*1e9)/1e8) / 10
}
