// Package metrics registers the Prometheus instruments of the audit
// pipeline. Registration happens once; helpers are nil-safe so call sites
// never have to care whether Init ran (tests usually skip it).
package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "freight_audit_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec

	rowsParsed    *prometheus.CounterVec
	parseWarnings prometheus.Counter

	exceptionsTotal *prometheus.CounterVec
	reportsTotal    *prometheus.CounterVec

	queueDepth prometheus.GaugeFunc
)

// Init registers audit metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total reconciliation runs by result",
			},
			[]string{"result"},
		)
		runDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "run_duration_seconds",
				Help:    "Reconciliation run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		rowsParsed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_parsed_total",
				Help: "Total spreadsheet rows parsed by source",
			},
			[]string{"source"},
		)
		parseWarnings = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "parse_warnings_total",
				Help: "Total non-fatal parse findings",
			},
		)

		exceptionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "exceptions_total",
				Help: "Total reconciliation exceptions by kind",
			},
			[]string{"kind"},
		)
		reportsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reports_total",
				Help: "Total report artifacts rendered by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			runsTotal,
			runDuration,
			rowsParsed,
			parseWarnings,
			exceptionsTotal,
			reportsTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	queueDepth = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "queued_jobs",
			Help: "Jobs currently waiting for a worker",
		},
		func() float64 {
			var n int
			err := db.QueryRow(`SELECT COUNT(*) FROM audit_jobs WHERE state = 'QUEUED'`).Scan(&n)
			if err != nil {
				if logger != nil {
					logger.Printf("metrics: queued jobs gauge: %v", err)
				}
				return 0
			}
			return float64(n)
		},
	)
	prometheus.MustRegister(queueDepth)
}

// ObserveRun records a run's duration and result.
func ObserveRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if runsTotal != nil {
		runsTotal.WithLabelValues(result).Inc()
	}
	if runDuration != nil {
		runDuration.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddRowsParsed adds parsed row counts per source file ("ledger", "carrier").
func AddRowsParsed(source string, count int) {
	if count <= 0 {
		return
	}
	if source == "" {
		source = "unknown"
	}
	if rowsParsed != nil {
		rowsParsed.WithLabelValues(source).Add(float64(count))
	}
}

// AddParseWarnings adds non-fatal parse findings.
func AddParseWarnings(count int) {
	if count <= 0 {
		return
	}
	if parseWarnings != nil {
		parseWarnings.Add(float64(count))
	}
}

// IncException increments the exception counter for a taxonomy kind.
func IncException(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if exceptionsTotal != nil {
		exceptionsTotal.WithLabelValues(kind).Inc()
	}
}

// ObserveReport records a rendered artifact by format.
func ObserveReport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportsTotal != nil {
		reportsTotal.WithLabelValues(format, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
