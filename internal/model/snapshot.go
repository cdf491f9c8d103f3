package model

import "time"

// MetricSnapshot is one immutable point-in-time observation of a pool.
type MetricSnapshot struct {
	Timestamp    time.Time          `json:"timestamp"`
	APR          float64            `json:"apr"`
	FeeAPR       float64            `json:"fee_apr"`
	IncentiveAPR float64            `json:"incentive_apr"`
	TVL          float64            `json:"tvl"`
	Volume24h    float64            `json:"volume_24h"`
	Reserves     map[string]float64 `json:"reserves,omitempty"`
	Ratio        float64            `json:"ratio"`
	GasPrice     *float64           `json:"gas_price,omitempty"`
}

// PoolData is the raw per-pool measurement handed in by a collector.
// Numeric fields absent from the source payload decode to zero.
type PoolData struct {
	Address      string             `json:"address"`
	Pair         string             `json:"pair"`
	Stable       bool               `json:"stable"`
	Timestamp    time.Time          `json:"timestamp"`
	APR          float64            `json:"apr"`
	TVL          float64            `json:"tvl"`
	Volume24h    float64            `json:"volume_24h"`
	FeeAPR       float64            `json:"fee_apr"`
	IncentiveAPR float64            `json:"incentive_apr"`
	Reserves     map[string]float64 `json:"reserves,omitempty"`
	Ratio        float64            `json:"ratio"`
}

// Snapshot converts pool data into an immutable snapshot. A zero
// timestamp defaults to now; reserves are copied so later mutation of
// the input cannot leak into stored history.
func (d PoolData) Snapshot(gasPrice *float64) MetricSnapshot {
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var reserves map[string]float64
	if len(d.Reserves) > 0 {
		reserves = make(map[string]float64, len(d.Reserves))
		for token, amount := range d.Reserves {
			reserves[token] = amount
		}
	}

	var gas *float64
	if gasPrice != nil {
		val := *gasPrice
		gas = &val
	}

	return MetricSnapshot{
		Timestamp:    ts,
		APR:          d.APR,
		FeeAPR:       d.FeeAPR,
		IncentiveAPR: d.IncentiveAPR,
		TVL:          d.TVL,
		Volume24h:    d.Volume24h,
		Reserves:     reserves,
		Ratio:        d.Ratio,
		GasPrice:     gas,
	}
}

// ScanRecord is one line of a replay input file: a pool measurement
// plus the gas price sampled during the same scan cycle, if any.
type ScanRecord struct {
	PoolData
	GasPrice *float64 `json:"gas_price,omitempty"`
}
