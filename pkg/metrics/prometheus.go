// Package metrics provides Prometheus metrics for the wallet points service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	// HTTP boundary
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Upstream fetching
	explorerFetches   prometheus.Counter
	explorerFailovers prometheus.Counter
	explorerErrors    prometheus.Counter
	subgraphQueries   prometheus.Counter
	subgraphErrors    prometheus.Counter
	retryAttempts     prometheus.Counter

	// Scoring and ledger sync
	scoringDuration     *prometheus.HistogramVec
	ledgerReads         prometheus.Counter
	ledgerWrites        prometheus.Counter
	ledgerErrors        prometheus.Counter
	ledgerPointsAwarded *prometheus.CounterVec

	// Gates and best-effort calls
	whitelistRejections prometheus.Counter
	rankingFailures     prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager()
}

// NewManager creates a metrics manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "walletpoints",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code.",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"endpoint", "method"})

	m.explorerFetches = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "explorer_fetches_total",
		Help:      "Log fetch attempts against explorer mirrors.",
	})

	m.explorerFailovers = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "explorer_failovers_total",
		Help:      "Times a mirror failed and the next one was tried.",
	})

	m.explorerErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "explorer_errors_total",
		Help:      "Explorer fetches that failed on all mirrors.",
	})

	m.subgraphQueries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "subgraph_queries_total",
		Help:      "GraphQL queries sent to the subgraph.",
	})

	m.subgraphErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "subgraph_errors_total",
		Help:      "Subgraph queries that failed after retries.",
	})

	m.retryAttempts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "retry_attempts_total",
		Help:      "Individual attempts made by the retry combinator.",
	})

	m.scoringDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "scoring_duration_ms",
		Help:      "Wall time of a scorer run by event kind.",
		Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"kind"})

	m.ledgerReads = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ledger_reads_total",
		Help:      "Point reads from the external ledger.",
	})

	m.ledgerWrites = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ledger_writes_total",
		Help:      "Delta writes submitted to the external ledger.",
	})

	m.ledgerErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ledger_errors_total",
		Help:      "Failed ledger reads or writes.",
	})

	m.ledgerPointsAwarded = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ledger_points_awarded_total",
		Help:      "Sum of point deltas written, by event kind.",
	}, []string{"kind"})

	m.whitelistRejections = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "whitelist_rejections_total",
		Help:      "Requests rejected by the identity whitelist gate.",
	})

	m.rankingFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ranking_failures_total",
		Help:      "Top-wallet ranking lookups degraded to the sentinel value.",
	})
}

// Handler returns an http.Handler serving the manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Handler exposes the global manager's metrics endpoint.
func Handler() http.Handler { return globalManager.Handler() }

// Package-level helpers recording on the global manager.

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}

func RecordExplorerFetch()    { globalManager.explorerFetches.Inc() }
func RecordExplorerFailover() { globalManager.explorerFailovers.Inc() }
func RecordExplorerError()    { globalManager.explorerErrors.Inc() }
func RecordSubgraphQuery()    { globalManager.subgraphQueries.Inc() }
func RecordSubgraphError()    { globalManager.subgraphErrors.Inc() }
func RecordRetryAttempt()     { globalManager.retryAttempts.Inc() }

func RecordScoringDuration(kind string, ms float64) {
	globalManager.scoringDuration.WithLabelValues(kind).Observe(ms)
}

func RecordLedgerRead()  { globalManager.ledgerReads.Inc() }
func RecordLedgerWrite() { globalManager.ledgerWrites.Inc() }
func RecordLedgerError() { globalManager.ledgerErrors.Inc() }

func RecordPointsAwarded(kind string, points float64) {
	globalManager.ledgerPointsAwarded.WithLabelValues(kind).Add(points)
}

func RecordWhitelistRejection() { globalManager.whitelistRejections.Inc() }
func RecordRankingFailure()     { globalManager.rankingFailures.Inc() }
