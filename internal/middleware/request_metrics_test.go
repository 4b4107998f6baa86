package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/2beens/gymlog/internal/telemetry/metrics"
)

func TestRequestMetrics(t *testing.T) {
	metricsManager := metrics.NewTestManager()

	r := mux.NewRouter()
	r.HandleFunc("/api/delDate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods("POST").Name("delete-timestamp")
	r.HandleFunc("/api/getDates", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}).Methods("POST")
	r.Use(RequestMetrics(metricsManager))

	for _, path := range []string{"/api/delDate", "/api/delDate", "/api/getDates"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(metricsManager.CounterRequests.WithLabelValues("POST", "204")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterRequests.WithLabelValues("POST", "200")))
	assert.Equal(t, 2, testutil.CollectAndCount(metricsManager.HistogramRequestDuration))
}
