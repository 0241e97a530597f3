package cache

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegisterAndInit(t *testing.T) {
	m := GetMetrics()
	assert.Same(t, m, GetMetrics())

	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { m.MustRegister(reg) })
	m.Init()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_MemoryHitsCounted(t *testing.T) {
	m := GetMetrics()
	c := NewMemory(4, 0, nil)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	hitsBefore := testutil.ToFloat64(m.hitsTotal.WithLabelValues(BackendMemory))
	missesBefore := testutil.ToFloat64(m.missesTotal.WithLabelValues(BackendMemory))

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "absent")

	assert.Equal(t, hitsBefore+1, testutil.ToFloat64(m.hitsTotal.WithLabelValues(BackendMemory)))
	assert.Equal(t, missesBefore+1, testutil.ToFloat64(m.missesTotal.WithLabelValues(BackendMemory)))
}
