package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_session_transitions_total",
			Help: "Total number of session state transitions",
		},
		[]string{"from", "to"},
	)

	SessionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: Namespace + "_session_state",
			Help: "1 for the current session state, 0 otherwise",
		},
		[]string{"state"},
	)

	TokenExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_token_exchanges_total",
			Help: "Total number of token endpoint calls",
		},
		[]string{"kind", "outcome"},
	)

	TokenExchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_token_exchange_duration_seconds",
			Help:    "Time to complete a token endpoint call",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	Renewals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_silent_renewals_total",
			Help: "Total number of silent renewal attempts by outcome",
		},
		[]string{"outcome"},
	)

	LoginLaunches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: Namespace + "_interactive_logins_total",
			Help: "Total number of interactive login navigations",
		},
	)

	DuplicateCodes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: Namespace + "_duplicate_codes_total",
			Help: "Authorization codes ignored because they were already processed",
		},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_store_operation_duration_seconds",
			Help:    "Time to complete credential store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_store_errors_total",
			Help: "Total number of credential store backend errors",
		},
		[]string{"store", "operation"},
	)

	CorruptedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_store_corrupted_records_total",
			Help: "Persisted records discarded because they could not be parsed",
		},
		[]string{"key"},
	)
)
