package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Render outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics are the collectors updated by ReportService.
type Metrics struct {
	renders     *prometheus.CounterVec
	duration    prometheus.Histogram
	rowsFetched *prometheus.CounterVec
}

// NewMetrics creates the report collectors and registers them on reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablereport_renders_total",
				Help: "Number of workbook renders by status.",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tablereport_render_duration_seconds",
			Help:    "Time spent fetching rows and rendering a workbook.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		rowsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablereport_rows_fetched_total",
				Help: "Number of top level rows fetched by source type.",
			},
			[]string{"source"},
		),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.renders, m.duration, m.rowsFetched} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeRender(status string, seconds float64) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(status).Inc()
	m.duration.Observe(seconds)
}

func (m *Metrics) addRows(source string, n int) {
	if m == nil {
		return
	}
	m.rowsFetched.WithLabelValues(source).Add(float64(n))
}
