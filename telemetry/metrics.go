package telemetry

// ResolutionBuckets for in-memory template resolution (regex work on short strings)
var ResolutionBuckets = []float64{0.000005, 0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005}

// Resolution Metrics
var (
	// ResolutionsTotal counts resolutions by result (ok, not_found, invalid)
	ResolutionsTotal CounterVec = noopCounterVec{}

	// ResolutionSeconds measures time spent resolving one template
	ResolutionSeconds Histogram = NoopStat{}

	// CacheRequestsTotal counts resolved-definition cache lookups by result (hit, miss)
	CacheRequestsTotal CounterVec = noopCounterVec{}

	// CacheEntries tracks the number of cached resolved definitions
	CacheEntries Gauge = NoopStat{}

	// BuildsTotal counts statement builds by result (ok, failed)
	BuildsTotal CounterVec = noopCounterVec{}
)

// Store Metrics
var (
	// StoreReloadsTotal counts store reloads by result (success, failed)
	StoreReloadsTotal CounterVec = noopCounterVec{}

	// StoreDefinitions tracks the number of template ids in the store
	StoreDefinitions Gauge = NoopStat{}

	// CheckReportsTotal counts syntax check reports by outcome (ok, error, mismatch)
	CheckReportsTotal CounterVec = noopCounterVec{}
)

// InitMetrics initializes all Prometheus metrics.
// Must be called after InitializeTelemetry().
func InitMetrics() {
	ResolutionsTotal = NewCounterVec(
		"resolutions_total",
		"Template resolutions by result",
		[]string{"result"},
	)
	ResolutionSeconds = NewHistogramWithBuckets(
		"resolution_seconds",
		"Template resolution duration in seconds",
		ResolutionBuckets,
	)
	CacheRequestsTotal = NewCounterVec(
		"cache_requests_total",
		"Resolved definition cache lookups by result",
		[]string{"result"},
	)
	CacheEntries = NewGauge(
		"cache_entries",
		"Number of cached resolved definitions",
	)
	BuildsTotal = NewCounterVec(
		"builds_total",
		"Statement builds by result",
		[]string{"result"},
	)
	StoreReloadsTotal = NewCounterVec(
		"store_reloads_total",
		"Template store reloads by result",
		[]string{"result"},
	)
	StoreDefinitions = NewGauge(
		"store_definitions",
		"Number of template ids in the store",
	)
	CheckReportsTotal = NewCounterVec(
		"check_reports_total",
		"Template syntax check reports by outcome",
		[]string{"outcome"},
	)
}
