package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkloadStats(t *testing.T) {
	ws := NewWorkloadStats()
	assert.Equal(t, 0.0, ws.GetMaintenanceRatio())

	ws.RecordInsert()
	ws.RecordDelete(true)
	ws.RecordDelete(false)
	assert.Equal(t, 100.0, ws.GetMaintenanceRatio())

	ws.RecordRecompute()
	ws.RecordQuery()
	ws.RecordDivergence()
	assert.Equal(t, 3.0, ws.GetMaintenanceRatio())

	snap := ws.Snapshot()
	assert.Equal(t, uint64(1), snap["inserts"])
	assert.Equal(t, uint64(2), snap["deletes"])
	assert.Equal(t, uint64(1), snap["noop_deletes"])
	assert.Equal(t, uint64(1), snap["recomputes"])
	assert.Equal(t, uint64(1), snap["queries"])
	assert.Equal(t, uint64(1), snap["divergences"])
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveInsert()
	m.ObserveDelete(true, 12)
	m.ObserveDelete(false, 0)
	m.ObserveRecompute(4, 7)
	m.SetSizes(100, 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.inserts))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.pruned))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.skylineSize))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"skylinedb_inserts_total",
		`skylinedb_deletes_total{member="true"}`,
		`skylinedb_deletes_total{member="false"}`,
		"skylinedb_recomputes_total",
		"skylinedb_points",
		"skylinedb_skyline_size",
		"skylinedb_region_points_bucket",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}
