package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sonu96/project-athena-sub001/internal/analytics"
	"github.com/sonu96/project-athena-sub001/internal/model"
)

// Runner feeds scan records from a JSONL file into a registry, one
// line per pool measurement. It stands in for a live collector when
// replaying captured scan cycles.
type Runner struct {
	registry *analytics.Registry
	logger   *zap.Logger
}

func NewRunner(registry *analytics.Registry, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{registry: registry, logger: logger}
}

// Run replays every record in the input file. Undecodable lines are
// logged and skipped.
func (r *Runner) Run(ctx context.Context, inputPath string) error {
	if r.registry == nil {
		return fmt.Errorf("registry is nil")
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, folded, failed int
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.ScanRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			r.logger.Warn("decode scan record", zap.Error(err))
			continue
		}

		r.registry.UpdatePool(record.PoolData, record.GasPrice)
		folded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	r.logger.Info("replay complete",
		zap.Int("total", total),
		zap.Int("folded", folded),
		zap.Int("failed", failed),
	)
	return nil
}
