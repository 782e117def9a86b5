package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Revisions.WithLabelValues("written").Add(3)
	m.SentencePairs.WithLabelValues("R").Inc()

	assert.InDelta(t, 3, testutil.ToFloat64(m.Revisions.WithLabelValues("written")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SentencePairs.WithLabelValues("R")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Revisions))
}

func TestMetrics_ObserveStage(t *testing.T) {
	m := New()

	m.ObserveStage("filter", time.Now().Add(-2*time.Second), nil)
	m.ObserveStage("differ", time.Now(), errors.New("boom"))

	assert.GreaterOrEqual(t, testutil.ToFloat64(m.StageDuration.WithLabelValues("filter")), 2.0)
	assert.Positive(t, testutil.ToFloat64(m.LastSuccess.WithLabelValues("filter")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.LastSuccess))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.DiffPairs.WithLabelValues("generated").Inc()

	path := filepath.Join(t.TempDir(), "metrics", "differ.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `wikiedits_differ_pairs_total{outcome="generated"} 1`)
}
