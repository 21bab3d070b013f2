package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all Prometheus metrics for the decision engine service
type Metrics struct {
	AnalysisRuns      *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	TasksGenerated    *prometheus.CounterVec
	TaskTransitions   *prometheus.CounterVec
	TrendFetches      *prometheus.CounterVec
	BriefGenerations  *prometheus.CounterVec
	PostgresQueries   *prometheus.CounterVec
	ClickHouseQueries *prometheus.CounterVec
	DBDuration        *prometheus.HistogramVec
}
