package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lazyPool returns a pool that never dials; Stat() still works on it.
func lazyPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	cfg, err := pgxpool.ParseConfig("postgres://u:p@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)
	cfg.MinConns = 0
	cfg.MaxConns = 7
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "marketplace")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	require.Len(t, names, 8)
	assert.Contains(t, names[0], "db_pool_acquired_connections")
}

func TestPoolStatsCollector_Collect(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, lazyPool(t), "marketplace"))

	assert.Equal(t, 8, testutil.CollectAndCount(NewPoolStatsCollector(lazyPool(t), "marketplace")))

	families, err := reg.Gather()
	require.NoError(t, err)

	var maxConns float64
	for _, f := range families {
		if f.GetName() == "db_pool_max_connections" {
			maxConns = f.GetMetric()[0].GetGauge().GetValue()
			assert.Equal(t, "marketplace", f.GetMetric()[0].GetLabel()[0].GetValue())
		}
	}
	assert.Equal(t, float64(7), maxConns)
}

func TestRegisterPoolMetrics_Duplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	pool := lazyPool(t)
	require.NoError(t, RegisterPoolMetrics(reg, pool, "marketplace"))
	assert.Error(t, RegisterPoolMetrics(reg, pool, "marketplace"))
}
