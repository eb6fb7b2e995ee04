package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "tributa_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	agentRuns       *prometheus.CounterVec
	agentRunLatency *prometheus.HistogramVec
	agentEntities   *prometheus.CounterVec

	alertOutcomes *prometheus.CounterVec

	ledgerOperations *prometheus.CounterVec
	ledgerLatency    *prometheus.HistogramVec

	aggregateCacheHits *prometheus.CounterVec
)

// InitMetrics registers the platform's Prometheus collectors. Safe to call
// more than once; registration happens only on the first call.
func InitMetrics() {
	registerOnce.Do(func() {
		agentRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "agent_runs_total",
				Help: "Total agent runs by agent and result",
			},
			[]string{"agent", "result"},
		)
		agentRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "agent_run_duration_seconds",
				Help:    "Agent run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		)
		agentEntities = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "agent_entities_total",
				Help: "Entities handled per agent by outcome (processed or failed)",
			},
			[]string{"agent", "outcome"},
		)

		alertOutcomes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_total",
				Help: "Alert insert outcomes by agent (created or skipped)",
			},
			[]string{"agent", "outcome"},
		)

		ledgerOperations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_operations_total",
				Help: "Credit ledger operations by type and result",
			},
			[]string{"operation", "result"},
		)
		ledgerLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ledger_operation_duration_seconds",
				Help:    "Credit ledger operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		)

		aggregateCacheHits = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aggregate_cache_requests_total",
				Help: "Monthly aggregate cache lookups by result (hit or miss)",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			agentRuns,
			agentRunLatency,
			agentEntities,
			alertOutcomes,
			ledgerOperations,
			ledgerLatency,
			aggregateCacheHits,
		)
	})
}

// ObserveAgentRun records one completed agent run.
func ObserveAgentRun(agent, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if agentRuns != nil {
		agentRuns.WithLabelValues(agent, result).Inc()
	}
	if agentRunLatency != nil {
		agentRunLatency.WithLabelValues(agent).Observe(duration.Seconds())
	}
}

// AddAgentEntities adds per-entity counts for one run.
func AddAgentEntities(agent string, processed, failed int) {
	if agentEntities == nil {
		return
	}
	if processed > 0 {
		agentEntities.WithLabelValues(agent, "processed").Add(float64(processed))
	}
	if failed > 0 {
		agentEntities.WithLabelValues(agent, "failed").Add(float64(failed))
	}
}

// IncAlertOutcome increments the alert insert counter.
func IncAlertOutcome(agent, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if alertOutcomes != nil {
		alertOutcomes.WithLabelValues(agent, outcome).Inc()
	}
}

// ObserveLedgerOperation records one ledger operation's result and duration.
func ObserveLedgerOperation(operation, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ledgerOperations != nil {
		ledgerOperations.WithLabelValues(operation, result).Inc()
	}
	if ledgerLatency != nil {
		ledgerLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// IncAggregateCache increments cache lookup counters.
func IncAggregateCache(result string) {
	if aggregateCacheHits != nil {
		aggregateCacheHits.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	CacheHit  = "hit"
	CacheMiss = "miss"
)
