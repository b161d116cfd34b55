package progress

import (
	"testing"
	"time"

	"github.com/dwaite/trimpool/internal/model"
)

func record(weight float64, at time.Time) model.WeightRecord {
	return model.WeightRecord{Weight: weight, RecordedAt: at}
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestComputeNoRecords(t *testing.T) {
	s := Compute(200, nil)

	if s.LatestWeight != 200 {
		t.Errorf("latest = %g, want start weight 200", s.LatestWeight)
	}
	if s.PercentageLost != 0 {
		t.Errorf("percentage lost = %g, want 0", s.PercentageLost)
	}
	if s.WeeklyTrend != 0 {
		t.Errorf("weekly trend = %g, want 0", s.WeeklyTrend)
	}
	if s.LastWeighIn != nil {
		t.Errorf("last weigh-in = %v, want nil", s.LastWeighIn)
	}
	if s.TotalWeighIns != 0 {
		t.Errorf("total weigh-ins = %d, want 0", s.TotalWeighIns)
	}
}

func TestComputeUnchangedWeightIsExactlyZero(t *testing.T) {
	// 198.7 is not exactly representable in binary; the division must still
	// come out as exactly zero, not a near-zero artifact.
	records := []model.WeightRecord{
		record(198.7, base),
		record(198.7, base.Add(48*time.Hour)),
	}
	s := Compute(198.7, records)

	if s.PercentageLost != 0 {
		t.Errorf("percentage lost = %v, want exactly 0", s.PercentageLost)
	}
}

func TestComputePercentageLost(t *testing.T) {
	tests := []struct {
		name   string
		start  float64
		latest float64
		want   float64
	}{
		{"six percent", 200, 188, 6.0},
		{"four percent", 200, 192, 4.0},
		{"gained weight", 200, 210, -5.0},
		{"rounds half away from zero", 200, 187.9, 6.1},        // 6.05 → 6.1
		{"half case landing under in binary", 160, 150.8, 5.8}, // 5.75 → 5.8
		{"negative half away from zero", 200, 210.1, -5.1},     // -5.05 → -5.1
		{"rounds down below half", 150, 143.8, 4.1},            // 4.133… → 4.1
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.start, []model.WeightRecord{record(tt.latest, base)})
			if s.PercentageLost != tt.want {
				t.Errorf("percentage lost = %g, want %g", s.PercentageLost, tt.want)
			}
		})
	}
}

func TestComputeLatestFromLastRecord(t *testing.T) {
	records := []model.WeightRecord{
		record(200, base),
		record(195, base.Add(10*24*time.Hour)),
	}
	s := Compute(200, records)

	if s.LatestWeight != 195 {
		t.Errorf("latest = %g, want 195", s.LatestWeight)
	}
	if s.LastWeighIn == nil || !s.LastWeighIn.Equal(base.Add(10*24*time.Hour)) {
		t.Errorf("last weigh-in = %v, want %v", s.LastWeighIn, base.Add(10*24*time.Hour))
	}
	if s.TotalWeighIns != 2 {
		t.Errorf("total weigh-ins = %d, want 2", s.TotalWeighIns)
	}
}

func TestWeeklyTrendUsesCalendarBoundary(t *testing.T) {
	// Records at day 0, day 6, day 14. The trend anchor for the day-14
	// record is day 6 (nearest at or before day 7), not day 0.
	records := []model.WeightRecord{
		record(200, base),
		record(197, base.Add(6*24*time.Hour)),
		record(193, base.Add(14*24*time.Hour)),
	}
	s := Compute(200, records)

	if s.WeeklyTrend != 193-197 {
		t.Errorf("weekly trend = %g, want %g", s.WeeklyTrend, float64(193-197))
	}
}

func TestWeeklyTrendBoundaryInclusive(t *testing.T) {
	// A record exactly 7 days before the latest anchors the trend.
	records := []model.WeightRecord{
		record(199, base),
		record(196, base.Add(7*24*time.Hour)),
	}
	s := Compute(200, records)

	if s.WeeklyTrend != 196-199 {
		t.Errorf("weekly trend = %g, want %g", s.WeeklyTrend, float64(196-199))
	}
}

func TestWeeklyTrendFewerThanTwoRecords(t *testing.T) {
	s := Compute(200, []model.WeightRecord{record(190, base)})
	if s.WeeklyTrend != 0 {
		t.Errorf("weekly trend = %g, want 0", s.WeeklyTrend)
	}
}

func TestWeeklyTrendNoRecordOldEnough(t *testing.T) {
	// All records cluster inside one week: no anchor, trend is 0.
	records := []model.WeightRecord{
		record(200, base),
		record(198, base.Add(2*24*time.Hour)),
		record(196, base.Add(5*24*time.Hour)),
	}
	s := Compute(200, records)

	if s.WeeklyTrend != 0 {
		t.Errorf("weekly trend = %g, want 0", s.WeeklyTrend)
	}
}

func TestComputeBaselineIsStartWeightNotFirstRecord(t *testing.T) {
	// The participant's captured baseline is 200 even though their first
	// submission was 205; percentage lost is measured from 200.
	records := []model.WeightRecord{
		record(205, base),
		record(190, base.Add(20*24*time.Hour)),
	}
	s := Compute(200, records)

	if s.PercentageLost != 5.0 {
		t.Errorf("percentage lost = %g, want 5.0", s.PercentageLost)
	}
}
