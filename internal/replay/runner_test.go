package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sonu96/project-athena-sub001/internal/analytics"
)

func TestRunnerFoldsRecords(t *testing.T) {
	ts := time.Now().Format(time.RFC3339Nano)
	input := `{"address":"0xaaa","pair":"WETH/USDC","apr":12,"tvl":1000,"volume_24h":500,"timestamp":"` + ts + `","gas_price":0.4}
{"address":"0xbbb","pair":"AERO/USDC","apr":30,"tvl":2000,"volume_24h":900,"timestamp":"` + ts + `"}

not json
{"address":"0xaaa","pair":"WETH/USDC","apr":14,"tvl":1000,"volume_24h":600,"timestamp":"` + ts + `"}
`

	path := filepath.Join(t.TempDir(), "scan.jsonl")
	if err := os.WriteFile(path, []byte(input), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	registry := analytics.NewRegistry(nil, nil)
	runner := NewRunner(registry, nil)
	if err := runner.Run(context.Background(), path); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got := registry.Summary().TotalProfiles; got != 2 {
		t.Fatalf("expected 2 profiles, got %d", got)
	}

	profile := registry.GetProfile("0xaaa")
	if profile == nil || profile.Observations() != 2 {
		t.Fatalf("expected 2 observations for 0xaaa")
	}
	rec := profile.Record()
	if rec.APRRange.Min != 12 || rec.APRRange.Max != 14 {
		t.Fatalf("apr range mismatch: [%v, %v]", rec.APRRange.Min, rec.APRRange.Max)
	}
}

func TestRunnerMissingInput(t *testing.T) {
	registry := analytics.NewRegistry(nil, nil)
	runner := NewRunner(registry, nil)

	if err := runner.Run(context.Background(), filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatalf("expected error for missing input")
	}
}
