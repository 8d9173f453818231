package sqlstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors a Store reports to.
type Metrics struct {
	// Statements counts executed statements by verb and status.
	Statements *prometheus.CounterVec
	// Duration is the latency of statements by verb.
	Duration *prometheus.HistogramVec
	// Rows counts rows read by selects and affected by writes.
	Rows *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Statements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoql_sql_statements_total",
				Help: "Total number of SQL statements executed",
			},
			[]string{"verb", "status"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "repoql_sql_statement_duration_seconds",
				Help:    "SQL statement latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"verb"},
		),
		Rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoql_sql_rows_total",
				Help: "Total number of rows read or affected",
			},
			[]string{"verb"},
		),
	}
}

func (m *Metrics) observe(verb string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Statements.WithLabelValues(verb, status).Inc()
	m.Duration.WithLabelValues(verb).Observe(time.Since(start).Seconds())
}

func (m *Metrics) rows(verb string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.Rows.WithLabelValues(verb).Add(float64(n))
}
