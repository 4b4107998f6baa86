package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// ClientManager holds the metrics of the store clients: the log book
// submitting entries and the aggregation engine reconstructing the history.
type ClientManager struct {
	// counters
	CounterSubmissions        *prometheus.CounterVec
	CounterQueries            *prometheus.CounterVec
	CounterRetrievalAnomalies *prometheus.CounterVec

	// histograms
	HistFetchAllDuration prometheus.Histogram
}

func NewTestClientManager() *ClientManager {
	return NewClientManager("gymlog", "test", prometheus.NewRegistry())
}

func NewClientManager(namespace, subsystem string, reg prometheus.Registerer) *ClientManager {
	factory := promauto.With(reg)

	counterSubmissions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "log_entry_submissions",
		Help:      "Log entry submissions, by outcome",
	}, []string{"outcome"})
	counterQueries := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "aggregation_queries",
		Help:      "Aggregation queries, by query and result status",
	}, []string{"query", "status"})
	counterRetrievalAnomalies := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "retrieval_anomalies",
		Help:      "Timestamps found in the index with no (or conflicting) workout records",
	}, []string{"anomaly"})

	histFetchAllDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "fetch_all_duration_seconds",
		Help:      "Duration of a full workout history reconstruction in seconds",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	})

	return &ClientManager{
		CounterSubmissions:        counterSubmissions,
		CounterQueries:            counterQueries,
		CounterRetrievalAnomalies: counterRetrievalAnomalies,
		HistFetchAllDuration:      histFetchAllDuration,
	}
}

// WriteSummary prints one line per gathered series: counters and gauges
// with their value, histograms with their sample count and sum.
func WriteSummary(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, family := range families {
		for _, m := range family.GetMetric() {
			name := family.GetName() + formatLabels(m.GetLabel())
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				_, err = fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				_, err = fmt.Fprintf(w, "%s %g\n", name, m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				_, err = fmt.Fprintf(w, "%s count=%d sum=%.3fs\n", name, h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(labels))
	for _, l := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}
