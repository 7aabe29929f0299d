package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncMetricsRecord(t *testing.T) {
	m := New()

	m.AddRows("D_CONNECTION", "inserted", 3)
	m.AddRows("D_CONNECTION", "inserted", 2)
	m.AddRows("D_CONNECTION", "deleted", 0)
	m.AddConflicts(1)
	m.IncDiagnostic("too_complex")
	m.SetCodecFailures(4)
	m.SetRunResult(true, time.Unix(1700000000, 0))
	m.SetPoolStats(2, 1)
	m.ObservePhase("connections", 150*time.Millisecond)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.Rows.WithLabelValues("D_CONNECTION", "inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Diagnostics.WithLabelValues("too_complex")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CodecFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LastRunSuccess))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastRunTime))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionPoolOpen))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PhaseDuration))

	// zero-valued adds do not create a series
	assert.Equal(t, 1, testutil.CollectAndCount(m.Rows))
}

func TestNilSyncMetricsIsNoop(t *testing.T) {
	var m *SyncMetrics
	m.AddRows("t", "inserted", 1)
	m.AddConflicts(1)
	m.IncDiagnostic("k")
	m.ObservePhase("p", time.Second)
	m.SetCodecFailures(1)
	m.SetRunResult(false, time.Now())
	m.SetPoolStats(1, 1)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.Push(context.Background(), "http://localhost:9091", "job"))
}

func TestPush(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		path = r.URL.Path
		body = string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.AddRows("D_DB_2_HDFS_CONFIG", "inserted", 7)

	require.NoError(t, m.Push(context.Background(), srv.URL, "catalog_sync"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/metrics/job/catalog_sync", path)
	assert.Contains(t, body, "catalog_sync_rows_total")
}

func TestPushSkippedWithoutURL(t *testing.T) {
	assert.NoError(t, New().Push(context.Background(), "", "job"))
}
