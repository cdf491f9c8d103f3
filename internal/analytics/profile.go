package analytics

import (
	"math"
	"sync"
	"time"

	"github.com/sonu96/project-athena-sub001/internal/model"
)

const (
	maxRecentMetrics   = 100
	minScoreSamples    = 10
	gasWindow          = 20
	anomalyWindow      = 20
	anomalyRecentCount = 5
)

// Confidence tiers attached to forecasts.
const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// Anomaly kinds and severities.
const (
	AnomalyAPR    = "apr_anomaly"
	AnomalyVolume = "volume_anomaly"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Prediction is a short-horizon forecast for one pool at one instant.
type Prediction struct {
	APR          float64   `json:"apr"`
	Volume       float64   `json:"volume"`
	Tier         string    `json:"tier"`
	Observations int64     `json:"observations"`
	Target       time.Time `json:"target"`
}

// Anomaly flags a recent observation that deviates from the window
// baseline by more than two standard deviations.
type Anomaly struct {
	Kind        string    `json:"kind"`
	Severity    string    `json:"severity"`
	Value       float64   `json:"value"`
	Deviation   float64   `json:"deviation"`
	ExpectedMin float64   `json:"expected_min"`
	ExpectedMax float64   `json:"expected_max"`
	Timestamp   time.Time `json:"timestamp"`
}

// PoolProfile accumulates rolling state and derived statistics for one
// pool. UpdateWithMetrics is the only mutator; every other method is a
// read over current state. The registry serializes writers per pool,
// and the internal lock keeps concurrent readers safe alongside them.
type PoolProfile struct {
	mu sync.RWMutex

	address   string
	pair      string
	stable    bool
	createdAt time.Time

	aprRange    model.ValueRange
	tvlRange    model.ValueRange
	volumeRange model.ValueRange

	hourlyPatterns map[int]*model.PatternStat
	dailyPatterns  map[string]*model.PatternStat

	typicalVolumeToTVL float64
	volatilityScore    float64
	correlationWithGas float64

	observationsCount int64
	lastUpdated       time.Time
	confidenceScore   float64

	recentMetrics []model.MetricSnapshot
}

// NewPoolProfile creates an empty profile for a pool.
func NewPoolProfile(address, pair string, stable bool) *PoolProfile {
	return &PoolProfile{
		address:        address,
		pair:           pair,
		stable:         stable,
		createdAt:      time.Now(),
		hourlyPatterns: make(map[int]*model.PatternStat),
		dailyPatterns:  make(map[string]*model.PatternStat),
	}
}

// ProfileFromRecord reconstructs a profile from its persisted form. The
// recent metrics window starts empty and refills from live observation.
func ProfileFromRecord(rec model.ProfileRecord) *PoolProfile {
	p := NewPoolProfile(rec.Address, rec.Pair, rec.Stable)
	if !rec.CreatedAt.IsZero() {
		p.createdAt = rec.CreatedAt
	}

	p.aprRange = rec.APRRange
	p.tvlRange = rec.TVLRange
	p.volumeRange = rec.VolumeRange
	p.aprRange.Reseed()
	p.tvlRange.Reseed()
	p.volumeRange.Reseed()

	for hour, stat := range rec.HourlyPatterns {
		s := stat
		p.hourlyPatterns[hour] = &s
	}
	for day, stat := range rec.DailyPatterns {
		s := stat
		p.dailyPatterns[day] = &s
	}

	p.typicalVolumeToTVL = rec.TypicalVolumeToTVL
	p.volatilityScore = rec.VolatilityScore
	p.correlationWithGas = rec.CorrelationWithGas
	p.observationsCount = rec.ObservationsCount
	p.lastUpdated = rec.LastUpdated
	p.confidenceScore = rec.ConfidenceScore
	return p
}

// UpdateWithMetrics folds one snapshot into the rolling state.
func (p *PoolProfile) UpdateWithMetrics(snap model.MetricSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.observationsCount++
	p.lastUpdated = time.Now()

	p.aprRange.Observe(snap.APR)
	p.tvlRange.Observe(snap.TVL)
	p.volumeRange.Observe(snap.Volume24h)

	p.recentMetrics = append(p.recentMetrics, snap)
	if len(p.recentMetrics) > maxRecentMetrics {
		p.recentMetrics = p.recentMetrics[1:]
	}

	hour := snap.Timestamp.Hour()
	hourly := p.hourlyPatterns[hour]
	if hourly == nil {
		hourly = &model.PatternStat{}
		p.hourlyPatterns[hour] = hourly
	}
	hourly.Fold(snap.APR, snap.Volume24h)

	day := snap.Timestamp.Weekday().String()
	daily := p.dailyPatterns[day]
	if daily == nil {
		daily = &model.PatternStat{}
		p.dailyPatterns[day] = daily
	}
	daily.Fold(snap.APR, snap.Volume24h)

	p.recomputeScores()
	p.confidenceScore = p.confidence()
}

// recomputeScores refreshes the behavioral scores from the window.
// Scores below their sample threshold keep their previous value.
func (p *PoolProfile) recomputeScores() {
	if len(p.recentMetrics) >= minScoreSamples {
		ratios := make([]float64, 0, len(p.recentMetrics))
		aprs := make([]float64, 0, len(p.recentMetrics))
		for _, snap := range p.recentMetrics {
			if snap.TVL > 0 {
				ratios = append(ratios, snap.Volume24h/snap.TVL)
			}
			aprs = append(aprs, snap.APR)
		}
		p.typicalVolumeToTVL = mean(ratios)
		p.volatilityScore = populationStddev(aprs)
	}

	// Gas correlation needs a gas price on every one of the last 20
	// snapshots; a single gap leaves the previous value in place.
	if len(p.recentMetrics) >= gasWindow {
		tail := p.recentMetrics[len(p.recentMetrics)-gasWindow:]
		gas := make([]float64, 0, gasWindow)
		volume := make([]float64, 0, gasWindow)
		for _, snap := range tail {
			if snap.GasPrice == nil {
				return
			}
			gas = append(gas, *snap.GasPrice)
			volume = append(volume, snap.Volume24h)
		}
		p.correlationWithGas = pearson(gas, volume)
	}
}

// confidence blends observation depth, recency, and pattern coverage.
func (p *PoolProfile) confidence() float64 {
	observationFactor := math.Min(float64(p.observationsCount)/100, 1.0)

	recencyFactor := 0.0
	if n := len(p.recentMetrics); n > 0 {
		hours := time.Since(p.recentMetrics[n-1].Timestamp).Hours()
		recencyFactor = math.Max(0, 1-hours/24)
	}

	patternFactor := 0.5
	if len(p.hourlyPatterns) >= 12 {
		patternFactor = 0.8
		if len(p.dailyPatterns) >= 4 {
			patternFactor = 1.0
		}
	}

	return observationFactor*0.4 + recencyFactor*0.3 + patternFactor*0.3
}

// PredictMetrics forecasts apr and volume for the target instant, or
// returns nil when confidence is below 0.5 or no pattern applies.
// Sources are tried in order: hourly bucket, daily bucket, window mean.
func (p *PoolProfile) PredictMetrics(target time.Time) *Prediction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.confidenceScore < 0.5 {
		return nil
	}

	if stat := p.hourlyPatterns[target.Hour()]; stat != nil && stat.Count > 5 {
		tier := TierMedium
		if stat.Count > 20 {
			tier = TierHigh
		}
		return &Prediction{
			APR:          stat.AvgAPR,
			Volume:       stat.AvgVolume,
			Tier:         tier,
			Observations: p.observationsCount,
			Target:       target,
		}
	}

	if stat := p.dailyPatterns[target.Weekday().String()]; stat != nil && stat.Count > 2 {
		return &Prediction{
			APR:          stat.AvgAPR,
			Volume:       stat.AvgVolume,
			Tier:         TierMedium,
			Observations: p.observationsCount,
			Target:       target,
		}
	}

	if len(p.recentMetrics) > 0 {
		aprs := make([]float64, len(p.recentMetrics))
		volumes := make([]float64, len(p.recentMetrics))
		for i, snap := range p.recentMetrics {
			aprs[i] = snap.APR
			volumes[i] = snap.Volume24h
		}
		return &Prediction{
			APR:          mean(aprs),
			Volume:       mean(volumes),
			Tier:         TierLow,
			Observations: p.observationsCount,
			Target:       target,
		}
	}

	return nil
}

// Anomalies compares the most recent snapshots against the rest of the
// window and flags apr or volume readings more than two baseline
// standard deviations from the baseline mean.
func (p *PoolProfile) Anomalies() []Anomaly {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.recentMetrics) < anomalyWindow {
		return nil
	}

	split := len(p.recentMetrics) - anomalyRecentCount
	baseline := p.recentMetrics[:split]
	recent := p.recentMetrics[split:]

	baseAPR := make([]float64, len(baseline))
	baseVolume := make([]float64, len(baseline))
	for i, snap := range baseline {
		baseAPR[i] = snap.APR
		baseVolume[i] = snap.Volume24h
	}

	meanAPR := mean(baseAPR)
	stdAPR := populationStddev(baseAPR)
	meanVolume := mean(baseVolume)
	stdVolume := populationStddev(baseVolume)

	var anomalies []Anomaly
	for _, snap := range recent {
		if a := detect(AnomalyAPR, snap.APR, meanAPR, stdAPR, snap.Timestamp); a != nil {
			anomalies = append(anomalies, *a)
		}
		if a := detect(AnomalyVolume, snap.Volume24h, meanVolume, stdVolume, snap.Timestamp); a != nil {
			anomalies = append(anomalies, *a)
		}
	}
	return anomalies
}

func detect(kind string, value, baseMean, baseStd float64, ts time.Time) *Anomaly {
	deviation := 0.0
	if baseStd > 0 {
		deviation = math.Abs(value-baseMean) / baseStd
	}
	if deviation <= 2 {
		return nil
	}

	severity := SeverityMedium
	if deviation > 3 {
		severity = SeverityHigh
	}
	return &Anomaly{
		Kind:        kind,
		Severity:    severity,
		Value:       value,
		Deviation:   deviation,
		ExpectedMin: baseMean - 2*baseStd,
		ExpectedMax: baseMean + 2*baseStd,
		Timestamp:   ts,
	}
}

// Record returns the persisted form of the profile.
func (p *PoolProfile) Record() model.ProfileRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec := model.ProfileRecord{
		Address:            p.address,
		Pair:               p.pair,
		Stable:             p.stable,
		CreatedAt:          p.createdAt,
		APRRange:           p.aprRange,
		TVLRange:           p.tvlRange,
		VolumeRange:        p.volumeRange,
		TypicalVolumeToTVL: p.typicalVolumeToTVL,
		VolatilityScore:    p.volatilityScore,
		CorrelationWithGas: p.correlationWithGas,
		ObservationsCount:  p.observationsCount,
		LastUpdated:        p.lastUpdated,
		ConfidenceScore:    p.confidenceScore,
	}

	if len(p.hourlyPatterns) > 0 {
		rec.HourlyPatterns = make(map[int]model.PatternStat, len(p.hourlyPatterns))
		for hour, stat := range p.hourlyPatterns {
			rec.HourlyPatterns[hour] = *stat
		}
	}
	if len(p.dailyPatterns) > 0 {
		rec.DailyPatterns = make(map[string]model.PatternStat, len(p.dailyPatterns))
		for day, stat := range p.dailyPatterns {
			rec.DailyPatterns[day] = *stat
		}
	}
	return rec
}

// Address returns the pool address the profile was created for.
func (p *PoolProfile) Address() string { return p.address }

// Pair returns the pool's pair label.
func (p *PoolProfile) Pair() string { return p.pair }

// Stable reports whether the pool is a stable pool.
func (p *PoolProfile) Stable() bool { return p.stable }

// Confidence returns the current confidence score.
func (p *PoolProfile) Confidence() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.confidenceScore
}

// Correlation returns the current volume-to-gas correlation.
func (p *PoolProfile) Correlation() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.correlationWithGas
}

// Volatility returns the population standard deviation of apr across
// the recent window.
func (p *PoolProfile) Volatility() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volatilityScore
}

// TypicalVolumeToTVL returns the mean volume/tvl ratio across the
// recent window.
func (p *PoolProfile) TypicalVolumeToTVL() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.typicalVolumeToTVL
}

// Observations returns the total number of snapshots ever folded in.
func (p *PoolProfile) Observations() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.observationsCount
}

// HourlyCoverage returns how many distinct hours of day have pattern data.
func (p *PoolProfile) HourlyCoverage() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.hourlyPatterns)
}

// WindowLen returns the current size of the recent metrics window.
func (p *PoolProfile) WindowLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.recentMetrics)
}

// OldestInWindow returns the oldest snapshot still in the window.
func (p *PoolProfile) OldestInWindow() (model.MetricSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.recentMetrics) == 0 {
		return model.MetricSnapshot{}, false
	}
	return p.recentMetrics[0], true
}
