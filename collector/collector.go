// Package collector samples treasury/e-bill-payment-processor/e-iou
// balances on a cadence and keeps an OHLC candle history per series,
// the Go analogue of bcr-wdc-balance-collector's Service/BalanceRepository
// split.
package collector

import (
	"sort"
	"sync"
	"time"
)

// Candle is one sampled point. Since a sample is taken once per
// cadence tick rather than aggregated from sub-samples, Open/High/Low/Close
// all equal the balance observed at Timestamp.
type Candle struct {
	Timestamp time.Time `json:"tstamp"`
	Open      uint64    `json:"open"`
	High      uint64    `json:"high"`
	Low       uint64    `json:"low"`
	Close     uint64    `json:"close"`
}

func candleAt(ts time.Time, balance uint64) Candle {
	return Candle{Timestamp: ts, Open: balance, High: balance, Low: balance, Close: balance}
}

// Repository is the collector's persistence collaborator: one append-only
// series per balance kind, queryable by time range.
type Repository interface {
	StoreCrsat(ts time.Time, balance uint64) error
	StoreSat(ts time.Time, balance uint64) error
	StoreOnchain(ts time.Time, balance uint64) error
	StoreEIOU(ts time.Time, balance uint64) error

	CrsatChart(from, to time.Time) ([]Candle, error)
	SatChart(from, to time.Time) ([]Candle, error)
	OnchainChart(from, to time.Time) ([]Candle, error)
	EIOUChart(from, to time.Time) ([]Candle, error)
}

// TreasuryClient is the subset of TreasuryCore's balance query this
// package needs.
type TreasuryClient interface {
	CrsatBalance() (uint64, error)
	SatBalance() (uint64, error)
}

// EBPPClient reports the e-bill-payment-processor's on-chain balance.
// The processor itself is an external collaborator (out of core scope);
// this interface only names the contract the collector calls.
type EBPPClient interface {
	Balance() (uint64, error)
}

// EIOUClient reports the e-iou collaborator's treasury-facing balance.
type EIOUClient interface {
	Balance() (uint64, error)
}

// memRepository is an in-memory Repository, the pattern every other
// package's memstore variant already follows; a sqlite-backed Repository
// is out of scope here (persistence to a specific embedded database is
// explicitly named as external to this core).
type memRepository struct {
	mu      sync.Mutex
	crsat   []Candle
	sat     []Candle
	onchain []Candle
	eiou    []Candle
}

// NewMemRepository returns an in-memory Repository.
func NewMemRepository() Repository {
	return &memRepository{}
}

func (m *memRepository) StoreCrsat(ts time.Time, balance uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crsat = append(m.crsat, candleAt(ts, balance))
	return nil
}

func (m *memRepository) StoreSat(ts time.Time, balance uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sat = append(m.sat, candleAt(ts, balance))
	return nil
}

func (m *memRepository) StoreOnchain(ts time.Time, balance uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onchain = append(m.onchain, candleAt(ts, balance))
	return nil
}

func (m *memRepository) StoreEIOU(ts time.Time, balance uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eiou = append(m.eiou, candleAt(ts, balance))
	return nil
}

func chartRange(series []Candle, from, to time.Time) []Candle {
	out := make([]Candle, 0, len(series))
	for _, c := range series {
		if c.Timestamp.Before(from) || c.Timestamp.After(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (m *memRepository) CrsatChart(from, to time.Time) ([]Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return chartRange(m.crsat, from, to), nil
}

func (m *memRepository) SatChart(from, to time.Time) ([]Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return chartRange(m.sat, from, to), nil
}

func (m *memRepository) OnchainChart(from, to time.Time) ([]Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return chartRange(m.onchain, from, to), nil
}

func (m *memRepository) EIOUChart(from, to time.Time) ([]Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return chartRange(m.eiou, from, to), nil
}
