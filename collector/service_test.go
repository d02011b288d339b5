package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcat-ecash/backoffice/internal/obs"
)

type stubTreasury struct {
	crsat, sat uint64
}

func (s stubTreasury) CrsatBalance() (uint64, error) { return s.crsat, nil }
func (s stubTreasury) SatBalance() (uint64, error)   { return s.sat, nil }

func TestCollectAllStoresOneCandlePerSeries(t *testing.T) {
	logger, err := obs.New("", obs.Disable)
	require.NoError(t, err)
	lf := &obs.Logf{Logger: logger}

	repo := NewMemRepository()
	svc := NewService(stubTreasury{crsat: 1000, sat: 500}, NewStaticBalanceClient(200), NewStaticBalanceClient(50), repo, lf)

	now := time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC)
	svc.CollectAll(now)

	crsat, err := svc.CrsatChart(now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, crsat, 1)
	assert.Equal(t, uint64(1000), crsat[0].Close)
	assert.Equal(t, uint64(1000), crsat[0].Open)

	sat, err := svc.SatChart(now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, sat, 1)
	assert.Equal(t, uint64(500), sat[0].Close)

	onchain, err := svc.OnchainChart(now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, onchain, 1)
	assert.Equal(t, uint64(200), onchain[0].Close)

	eiou, err := svc.EIOUChart(now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, eiou, 1)
	assert.Equal(t, uint64(50), eiou[0].Close)
}

func TestChartRangeExcludesOutOfWindowSamples(t *testing.T) {
	logger, err := obs.New("", obs.Disable)
	require.NoError(t, err)
	lf := &obs.Logf{Logger: logger}

	repo := NewMemRepository()
	svc := NewService(stubTreasury{crsat: 1000, sat: 500}, NewStaticBalanceClient(0), NewStaticBalanceClient(0), repo, lf)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.CollectAll(base)
	svc.CollectAll(base.Add(5 * time.Minute))
	svc.CollectAll(base.Add(10 * time.Minute))

	chart, err := svc.CrsatChart(base.Add(time.Minute), base.Add(6*time.Minute))
	require.NoError(t, err)
	require.Len(t, chart, 1)
	assert.Equal(t, base.Add(5*time.Minute), chart[0].Timestamp)
}
