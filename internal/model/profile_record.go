package model

import "time"

// ValueRange tracks the minimum and maximum of a metric as snapshots
// arrive. A zero minimum doubles as the unset sentinel: until a nonzero
// minimum is established the next observation re-seeds both bounds, so
// a legitimate zero minimum stays untracked until a nonzero value
// arrives. The seeded flag makes that boundary condition explicit.
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`

	seeded bool
}

// Observe widens the range to include value.
func (r *ValueRange) Observe(value float64) {
	if !r.seeded {
		r.Min = value
		r.Max = value
	} else {
		if value < r.Min {
			r.Min = value
		}
		if value > r.Max {
			r.Max = value
		}
	}
	r.seeded = r.Min != 0
}

// Reseed restores the sentinel flag after deserialization.
func (r *ValueRange) Reseed() {
	r.seeded = r.Min != 0
}

// PatternStat is an incremental-mean accumulator for one hour-of-day or
// weekday bucket. It never stores raw samples.
type PatternStat struct {
	AvgAPR    float64 `json:"avg_apr"`
	AvgVolume float64 `json:"avg_volume"`
	Count     int     `json:"count"`
}

// Fold incorporates one sample into the running means.
func (s *PatternStat) Fold(apr, volume float64) {
	s.Count++
	n := float64(s.Count)
	s.AvgAPR = (s.AvgAPR*(n-1) + apr) / n
	s.AvgVolume = (s.AvgVolume*(n-1) + volume) / n
}

// ProfileRecord is the persisted form of a pool profile. The recent
// metrics window is deliberately absent: it is derived state, rebuilt
// from live observation after a restart.
type ProfileRecord struct {
	Address            string                 `json:"address"`
	Pair               string                 `json:"pair"`
	Stable             bool                   `json:"stable"`
	CreatedAt          time.Time              `json:"created_at"`
	APRRange           ValueRange             `json:"apr_range"`
	TVLRange           ValueRange             `json:"tvl_range"`
	VolumeRange        ValueRange             `json:"volume_range"`
	HourlyPatterns     map[int]PatternStat    `json:"hourly_patterns,omitempty"`
	DailyPatterns      map[string]PatternStat `json:"daily_patterns,omitempty"`
	TypicalVolumeToTVL float64                `json:"typical_volume_to_tvl"`
	VolatilityScore    float64                `json:"volatility_score"`
	CorrelationWithGas float64                `json:"correlation_with_gas"`
	ObservationsCount  int64                  `json:"observations_count"`
	LastUpdated        time.Time              `json:"last_updated"`
	ConfidenceScore    float64                `json:"confidence_score"`
}
