package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)
)

// Extraction Metrics
var (
	ExtractionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameExtractionAttempts,
			Help: HelpTextExtractionAttempts,
		},
		[]string{LabelInput, LabelOutcome},
	)

	ProxyAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameProxyAttempts,
			Help: HelpTextProxyAttempts,
		},
		[]string{LabelRoute, LabelOutcome},
	)

	PageCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePageCacheLookups,
			Help: HelpTextPageCacheLookups,
		},
		[]string{LabelResult},
	)

	ModelRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameModelRequestDuration,
			Help:    HelpTextModelRequestDuration,
			Buckets: ModelLatencyBuckets,
		},
		[]string{LabelInput},
	)
)

// Store Metrics
var (
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameStoreErrors,
			Help: HelpTextStoreErrors,
		},
		[]string{LabelOperation},
	)

	RecipesImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRecipesImported,
			Help: HelpTextRecipesImported,
		},
		[]string{LabelResult},
	)
)
