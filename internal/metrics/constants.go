package metrics

// Metric names
const (
	MetricNameHTTPRequestsTotal    = "recipebox_http_requests_total"
	MetricNameHTTPRequestDuration  = "recipebox_http_request_duration_seconds"
	MetricNameExtractionAttempts   = "recipebox_extraction_attempts_total"
	MetricNameProxyAttempts        = "recipebox_proxy_attempts_total"
	MetricNamePageCacheLookups     = "recipebox_page_cache_lookups_total"
	MetricNameModelRequestDuration = "recipebox_model_request_duration_seconds"
	MetricNameStoreErrors          = "recipebox_store_errors_total"
	MetricNameRecipesImported      = "recipebox_recipes_imported_total"
)

// Help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextExtractionAttempts   = "Recipe extraction attempts by input path and outcome"
	HelpTextProxyAttempts        = "Page fetch attempts by route and outcome"
	HelpTextPageCacheLookups     = "Page cache lookups by result"
	HelpTextModelRequestDuration = "Latency of generative model calls in seconds"
	HelpTextStoreErrors          = "Recipe store failures by operation"
	HelpTextRecipesImported      = "Recipes processed by import, by result"
)

// Labels
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelInput     = "input"
	LabelOutcome   = "outcome"
	LabelRoute     = "route"
	LabelResult    = "result"
	LabelOperation = "operation"
)

// Label values
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeFallback = "fallback"
	ResultHit       = "hit"
	ResultMiss      = "miss"
	ResultAdded     = "added"
	ResultSkipped   = "skipped"
)

// Buckets
var (
	HTTPLatencyBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	ModelLatencyBuckets = []float64{.25, .5, 1, 2, 4, 8, 16, 32, 64}
)
