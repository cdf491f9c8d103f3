package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/sonu96/project-athena-sub001/internal/model"
	"github.com/sonu96/project-athena-sub001/internal/storage"
)

const (
	opportunityMinConfidence = 0.6

	summaryHighConfidence = 0.7
	summaryMinCorrelation = 0.5
	summaryHourlyCoverage = 12

	saveMaxRetries = 2
	saveBaseDelay  = 250 * time.Millisecond
	saveTimeout    = 5 * time.Second
)

// Opportunity is one ranked forecast produced by PredictOpportunities.
type Opportunity struct {
	Pair       string  `json:"pair"`
	Address    string  `json:"address"`
	APR        float64 `json:"apr"`
	Volume     float64 `json:"volume"`
	Tier       string  `json:"tier"`
	Confidence float64 `json:"confidence"`
}

// Summary aggregates counts across all profiles.
type Summary struct {
	TotalProfiles      int     `json:"total_profiles"`
	HighConfidence     int     `json:"high_confidence"`
	GasCorrelated      int     `json:"gas_correlated"`
	AvgObservations    float64 `json:"avg_observations"`
	WithHourlyCoverage int     `json:"with_hourly_coverage"`
}

// Registry owns every pool profile, keyed by normalized pool address.
// Lookup-or-create is atomic under the registry lock; folds for
// different pools run concurrently because each profile carries its
// own lock. Persistence is fire-and-forget and never blocks a fold.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*PoolProfile

	store  storage.ProfileStore
	logger *zap.Logger
	saves  sync.WaitGroup
}

// NewRegistry creates a registry. store may be nil to disable
// persistence.
func NewRegistry(store storage.ProfileStore, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		profiles: make(map[string]*PoolProfile),
		store:    store,
		logger:   logger,
	}
}

// UpdatePool folds one collector measurement into the matching
// profile, creating the profile on first sight of the address. A
// missing address drops the measurement with a warning.
func (r *Registry) UpdatePool(data model.PoolData, gasPrice *float64) {
	if strings.TrimSpace(data.Address) == "" {
		r.logger.Warn("pool update missing address", zap.String("pair", data.Pair))
		return
	}

	key := poolKey(data.Address)

	r.mu.Lock()
	profile := r.profiles[key]
	if profile == nil {
		profile = NewPoolProfile(key, data.Pair, data.Stable)
		r.profiles[key] = profile
	}
	r.mu.Unlock()

	profile.UpdateWithMetrics(data.Snapshot(gasPrice))

	if r.store == nil {
		return
	}

	payload, err := json.Marshal(profile.Record())
	if err != nil {
		r.logger.Warn("encode profile", zap.String("pool", key), zap.Error(err))
		return
	}

	r.saves.Add(1)
	go r.persist(key, payload)
}

func (r *Registry) persist(address string, payload []byte) {
	defer r.saves.Done()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	err := withRetry(ctx, saveMaxRetries, saveBaseDelay, func(ctx context.Context) error {
		return r.store.SaveProfile(ctx, address, payload)
	})
	if err != nil {
		r.logger.Warn("persist profile", zap.String("pool", address), zap.Error(err))
	}
}

// Close waits for in-flight profile saves to finish.
func (r *Registry) Close() {
	r.saves.Wait()
}

// LoadProfiles restores profiles from the configured store. A payload
// that fails to decode is logged and skipped; the rest still load.
func (r *Registry) LoadProfiles(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	payloads, err := r.store.LoadProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	loaded := 0
	for address, payload := range payloads {
		var rec model.ProfileRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			r.logger.Warn("decode profile", zap.String("pool", address), zap.Error(err))
			continue
		}
		if rec.Address == "" {
			rec.Address = address
		}

		key := poolKey(rec.Address)
		r.mu.Lock()
		r.profiles[key] = ProfileFromRecord(rec)
		r.mu.Unlock()
		loaded++
	}

	r.logger.Info("profiles loaded", zap.Int("count", loaded), zap.Int("skipped", len(payloads)-loaded))
	return nil
}

// GetProfile returns the profile for an address, or nil if absent.
func (r *Registry) GetProfile(address string) *PoolProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[poolKey(address)]
}

// HighConfidencePools returns every profile at or above the given
// confidence score.
func (r *Registry) HighConfidencePools(minConfidence float64) []*PoolProfile {
	var out []*PoolProfile
	for _, profile := range r.snapshot() {
		if profile.Confidence() >= minConfidence {
			out = append(out, profile)
		}
	}
	return out
}

// CorrelatedPools returns the profiles whose absolute volume-to-gas
// correlation meets the threshold, keyed by address.
func (r *Registry) CorrelatedPools(minCorrelation float64) map[string]*PoolProfile {
	out := make(map[string]*PoolProfile)
	for _, profile := range r.snapshot() {
		if math.Abs(profile.Correlation()) >= minCorrelation {
			out[profile.Address()] = profile
		}
	}
	return out
}

// PredictOpportunities forecasts every sufficiently confident pool for
// the target instant and returns the high and medium tier results
// sorted by predicted apr, best first.
func (r *Registry) PredictOpportunities(target time.Time) []Opportunity {
	var out []Opportunity
	for _, profile := range r.snapshot() {
		confidence := profile.Confidence()
		if confidence < opportunityMinConfidence {
			continue
		}

		pred := profile.PredictMetrics(target)
		if pred == nil || pred.Tier == TierLow {
			continue
		}

		out = append(out, Opportunity{
			Pair:       profile.Pair(),
			Address:    profile.Address(),
			APR:        pred.APR,
			Volume:     pred.Volume,
			Tier:       pred.Tier,
			Confidence: confidence,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].APR > out[j].APR })
	return out
}

// Summary returns aggregate counts across all profiles.
func (r *Registry) Summary() Summary {
	profiles := r.snapshot()

	sum := Summary{TotalProfiles: len(profiles)}
	var totalObservations int64
	for _, profile := range profiles {
		if profile.Confidence() >= summaryHighConfidence {
			sum.HighConfidence++
		}
		if math.Abs(profile.Correlation()) >= summaryMinCorrelation {
			sum.GasCorrelated++
		}
		if profile.HourlyCoverage() > summaryHourlyCoverage {
			sum.WithHourlyCoverage++
		}
		totalObservations += profile.Observations()
	}
	if len(profiles) > 0 {
		sum.AvgObservations = float64(totalObservations) / float64(len(profiles))
	}
	return sum
}

func (r *Registry) snapshot() []*PoolProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*PoolProfile, 0, len(r.profiles))
	for _, profile := range r.profiles {
		out = append(out, profile)
	}
	return out
}

func poolKey(address string) string {
	if common.IsHexAddress(address) {
		address = common.HexToAddress(address).Hex()
	}
	return strings.ToLower(address)
}
