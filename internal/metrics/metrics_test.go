package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodGet, "/api/plants", 200, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/plants", 200, 10*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", 404, time.Millisecond)
	m.Upload("jpeg")
	m.ImportRow(RowSuccess)
	m.ImportRow(RowError)
	m.ImportRow(RowSuccess)
	m.OrphansRemoved(3)
	m.OrphansRemoved(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/plants", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("jpeg")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.importRows.WithLabelValues(RowSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importRows.WithLabelValues(RowError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.orphansRemoved))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/", 200, time.Second)
		m.Upload("png")
		m.ImportRow(RowSuccess)
		m.OrphansRemoved(1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Upload("png")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `plantdiaries_uploads_total{format="png"} 1`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
