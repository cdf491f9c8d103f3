package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sonu96/project-athena-sub001/internal/model"
)

type stubStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	stored  map[string][]byte
	saveErr error
}

func newStubStore() *stubStore {
	return &stubStore{saved: make(map[string][]byte), stored: make(map[string][]byte)}
}

func (s *stubStore) SaveProfile(ctx context.Context, address string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[address] = payload
	return nil
}

func (s *stubStore) LoadProfiles(ctx context.Context) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte, len(s.stored))
	for k, v := range s.stored {
		out[k] = v
	}
	return out, nil
}

func poolData(address string, apr float64, ts time.Time) model.PoolData {
	return model.PoolData{
		Address:   address,
		Pair:      "WETH/USDC",
		Timestamp: ts,
		APR:       apr,
		TVL:       1_000_000,
		Volume24h: 500_000,
	}
}

func TestUpdatePoolMissingAddressIsDropped(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.UpdatePool(model.PoolData{Pair: "WETH/USDC", APR: 10}, nil)

	if got := r.Summary().TotalProfiles; got != 0 {
		t.Fatalf("expected no profiles, got %d", got)
	}
}

func TestUpdatePoolCreatesAndFolds(t *testing.T) {
	r := NewRegistry(nil, nil)
	now := time.Now()

	r.UpdatePool(poolData("0xAAA", 10, now), nil)
	r.UpdatePool(poolData("0xaaa", 20, now), nil)

	profile := r.GetProfile("0xAaA")
	if profile == nil {
		t.Fatalf("expected profile for normalized address")
	}
	if got := profile.Observations(); got != 2 {
		t.Fatalf("expected 2 observations, got %d", got)
	}
	if r.Summary().TotalProfiles != 1 {
		t.Fatalf("expected a single profile, case variants must share a key")
	}
}

func TestGetProfileAbsent(t *testing.T) {
	r := NewRegistry(nil, nil)
	if p := r.GetProfile("0xmissing"); p != nil {
		t.Fatalf("expected nil for unknown address")
	}
}

func TestPredictOpportunitiesRanking(t *testing.T) {
	r := NewRegistry(nil, nil)
	now := time.Now()

	aprs := map[string]float64{"0xlow": 5, "0xtop": 50, "0xmid": 20}
	for address, apr := range aprs {
		for i := 0; i < 100; i++ {
			r.UpdatePool(poolData(address, apr, now), nil)
		}
	}

	opportunities := r.PredictOpportunities(now)
	if len(opportunities) != 3 {
		t.Fatalf("expected 3 opportunities, got %d", len(opportunities))
	}

	want := []float64{50, 20, 5}
	for i, opp := range opportunities {
		if opp.APR != want[i] {
			t.Fatalf("rank %d: expected apr %v, got %v", i, want[i], opp.APR)
		}
		if opp.Tier != TierHigh {
			t.Errorf("rank %d: expected high tier, got %s", i, opp.Tier)
		}
		if opp.Confidence < 0.6 {
			t.Errorf("rank %d: confidence below gate: %v", i, opp.Confidence)
		}
	}
}

func TestCorrelatedPools(t *testing.T) {
	r := NewRegistry(nil, nil)
	now := time.Now()

	for i := 0; i < 20; i++ {
		gas := float64(i + 1)
		data := poolData("0xcorr", 10, now)
		data.Volume24h = 2*gas + 5
		r.UpdatePool(data, &gas)
	}
	for i := 0; i < 20; i++ {
		r.UpdatePool(poolData("0xflat", 10, now), nil)
	}

	correlated := r.CorrelatedPools(0.9)
	if len(correlated) != 1 {
		t.Fatalf("expected one correlated pool, got %d", len(correlated))
	}
	if _, ok := correlated["0xcorr"]; !ok {
		t.Fatalf("expected 0xcorr, got %v", correlated)
	}
}

func TestHighConfidencePools(t *testing.T) {
	r := NewRegistry(nil, nil)
	now := time.Now()

	for i := 0; i < 100; i++ {
		r.UpdatePool(poolData("0xdeep", 10, now), nil)
	}
	r.UpdatePool(poolData("0xshallow", 10, now), nil)

	pools := r.HighConfidencePools(0.6)
	if len(pools) != 1 {
		t.Fatalf("expected one high confidence pool, got %d", len(pools))
	}
	if pools[0].Address() != "0xdeep" {
		t.Fatalf("expected 0xdeep, got %s", pools[0].Address())
	}
}

func TestSummaryCounts(t *testing.T) {
	r := NewRegistry(nil, nil)
	now := time.Now()

	for i := 0; i < 100; i++ {
		r.UpdatePool(poolData("0xdeep", 10, now), nil)
	}
	for i := 0; i < 20; i++ {
		r.UpdatePool(poolData("0xshallow", 10, now), nil)
	}

	sum := r.Summary()
	if sum.TotalProfiles != 2 {
		t.Fatalf("expected 2 profiles, got %d", sum.TotalProfiles)
	}
	if sum.AvgObservations != 60 {
		t.Errorf("expected mean of 60 observations, got %v", sum.AvgObservations)
	}
	if sum.HighConfidence != 1 {
		t.Errorf("expected one high confidence profile, got %d", sum.HighConfidence)
	}
}

func TestAsyncPersistence(t *testing.T) {
	store := newStubStore()
	r := NewRegistry(store, nil)

	r.UpdatePool(poolData("0xpool", 10, time.Now()), nil)
	r.Close()

	store.mu.Lock()
	payload, ok := store.saved["0xpool"]
	store.mu.Unlock()
	if !ok {
		t.Fatalf("expected profile saved")
	}

	var rec model.ProfileRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		t.Fatalf("payload not decodable: %v", err)
	}
	if rec.Address != "0xpool" || rec.ObservationsCount != 1 {
		t.Fatalf("payload mismatch: %+v", rec)
	}
}

func TestPersistFailureDoesNotAffectMemory(t *testing.T) {
	store := newStubStore()
	store.saveErr = fmt.Errorf("boom")
	r := NewRegistry(store, nil)

	r.UpdatePool(poolData("0xpool", 10, time.Now()), nil)
	r.Close()

	profile := r.GetProfile("0xpool")
	if profile == nil || profile.Observations() != 1 {
		t.Fatalf("in-memory state must stay authoritative")
	}
}

func TestLoadProfilesSkipsBadPayload(t *testing.T) {
	store := newStubStore()

	good, err := json.Marshal(model.ProfileRecord{
		Address:           "0xgood",
		Pair:              "WETH/USDC",
		ObservationsCount: 7,
		ConfidenceScore:   0.42,
	})
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	store.stored["0xgood"] = good
	store.stored["0xbad"] = []byte("{not json")

	r := NewRegistry(store, nil)
	if err := r.LoadProfiles(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := r.Summary().TotalProfiles; got != 1 {
		t.Fatalf("expected one loaded profile, got %d", got)
	}
	profile := r.GetProfile("0xgood")
	if profile == nil || profile.Observations() != 7 {
		t.Fatalf("expected restored profile with 7 observations")
	}
}

func TestConcurrentUpdatesDisjointPools(t *testing.T) {
	r := NewRegistry(nil, nil)
	now := time.Now()

	const workers = 8
	const updates = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			address := fmt.Sprintf("0xpool%d", w%4)
			for i := 0; i < updates; i++ {
				r.UpdatePool(poolData(address, 10, now), nil)
			}
		}(w)
	}
	wg.Wait()

	sum := r.Summary()
	if sum.TotalProfiles != 4 {
		t.Fatalf("expected 4 profiles, got %d", sum.TotalProfiles)
	}
	for i := 0; i < 4; i++ {
		profile := r.GetProfile(fmt.Sprintf("0xpool%d", i))
		if profile == nil || profile.Observations() != workers/4*updates {
			t.Fatalf("pool %d: expected %d observations", i, workers/4*updates)
		}
	}
}
