// Package metrics defines the Prometheus instrumentation shared by the
// service. All collectors are registered at init and exported through
// package-level helpers so callers never touch collector types directly.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ephemeris_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ephemeris_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	propagationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ephemeris_propagation_duration_seconds",
			Help:    "Duration of a full-catalog propagation batch in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	propagationSatellitesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ephemeris_propagation_satellites_total",
			Help: "Per-satellite propagation outcomes.",
		},
		[]string{"result"},
	)

	propagationWorkersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ephemeris_propagation_workers_active",
			Help: "Configured propagation worker pool size.",
		},
	)

	passPredictionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ephemeris_pass_prediction_duration_seconds",
			Help:    "Duration of a pass-prediction request in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	passesFoundTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ephemeris_passes_found_total",
			Help: "Total number of passes returned by the predictor.",
		},
	)

	tleDatasetSatellites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ephemeris_tle_dataset_satellites",
			Help: "Number of satellites in the current element dataset.",
		},
	)

	tleDatasetAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ephemeris_tle_dataset_age_seconds",
			Help: "Age of the current element dataset in seconds.",
		},
	)

	tleFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ephemeris_tle_fetches_total",
			Help: "Element set fetch attempts by outcome.",
		},
		[]string{"result"},
	)

	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ephemeris_cache_hits_total",
			Help: "Keyframe cache hits.",
		},
	)

	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ephemeris_cache_misses_total",
			Help: "Keyframe cache misses.",
		},
	)

	cacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ephemeris_cache_evictions_total",
			Help: "Keyframes evicted from the rolling window.",
		},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ephemeris_cache_entries",
			Help: "Keyframes currently cached.",
		},
	)

	cacheSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ephemeris_cache_size_bytes",
			Help: "Approximate keyframe cache size in bytes.",
		},
	)

	cacheRegenerationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ephemeris_cache_regeneration_errors_total",
			Help: "Keyframe cache regeneration failures.",
		},
	)

	cacheRegenerationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ephemeris_cache_regeneration_duration_seconds",
			Help:    "Duration of keyframe cache regeneration in seconds.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
		},
	)

	cacheGracePeriodActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ephemeris_cache_grace_period_active",
			Help: "1 while the cache serves stale keyframes during a dataset cutover.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ephemeris_stream_connections_total",
			Help: "SSE stream connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ephemeris_streams_active",
			Help: "Currently connected SSE streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ephemeris_stream_messages_total",
			Help: "SSE messages sent across all streams.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ephemeris_stream_bytes_total",
			Help: "SSE payload bytes sent across all streams.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ephemeris_stream_errors_total",
			Help: "SSE stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		propagationDurationSeconds,
		propagationSatellitesTotal,
		propagationWorkersActive,
		passPredictionDurationSeconds,
		passesFoundTotal,
		tleDatasetSatellites,
		tleDatasetAgeSeconds,
		tleFetchesTotal,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		cacheEntries,
		cacheSizeBytes,
		cacheRegenerationErrorsTotal,
		cacheRegenerationDurationSeconds,
		cacheGracePeriodActive,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPropagation records a completed propagation batch.
func RecordPropagation(duration time.Duration, success, errors int) {
	propagationDurationSeconds.Observe(duration.Seconds())
	propagationSatellitesTotal.WithLabelValues("success").Add(float64(success))
	propagationSatellitesTotal.WithLabelValues("error").Add(float64(errors))
}

// RecordPassPrediction records a completed pass-prediction request.
func RecordPassPrediction(duration time.Duration, passes int) {
	passPredictionDurationSeconds.Observe(duration.Seconds())
	passesFoundTotal.Add(float64(passes))
}

// SetPropagationWorkersActive records the configured worker pool size.
func SetPropagationWorkersActive(n int) {
	propagationWorkersActive.Set(float64(n))
}

// SetTLEDatasetCount records the satellite count of the current dataset.
func SetTLEDatasetCount(n int) {
	tleDatasetSatellites.Set(float64(n))
}

// SetTLEDatasetAge records the age of the current dataset.
func SetTLEDatasetAge(seconds float64) {
	tleDatasetAgeSeconds.Set(seconds)
}

// RecordTLEFetch records a fetch attempt outcome ("success" or "error").
func RecordTLEFetch(result string) {
	tleFetchesTotal.WithLabelValues(result).Inc()
}

// Keyframe cache instrumentation.

func IncCacheHits()               { cacheHitsTotal.Inc() }
func IncCacheMisses()             { cacheMissesTotal.Inc() }
func AddCacheEvictions(n int)     { cacheEvictionsTotal.Add(float64(n)) }
func SetCacheEntries(n int)       { cacheEntries.Set(float64(n)) }
func SetCacheSizeBytes(n int64)   { cacheSizeBytes.Set(float64(n)) }
func IncCacheRegenerationErrors() { cacheRegenerationErrorsTotal.Inc() }

// ObserveCacheRegenerationDuration records one regeneration cycle.
func ObserveCacheRegenerationDuration(d time.Duration) {
	cacheRegenerationDurationSeconds.Observe(d.Seconds())
}

// SetCacheGracePeriodActive flags whether stale keyframes are being served.
func SetCacheGracePeriodActive(active bool) {
	if active {
		cacheGracePeriodActive.Set(1)
	} else {
		cacheGracePeriodActive.Set(0)
	}
}

// SSE stream instrumentation.

func IncStreamConnections(event string) { streamConnectionsTotal.WithLabelValues(event).Inc() }
func IncStreamsActive()                 { streamsActive.Inc() }
func DecStreamsActive()                 { streamsActive.Dec() }
func IncStreamMessages()                { streamMessagesTotal.Inc() }
func AddStreamBytes(n int64)            { streamBytesTotal.Add(float64(n)) }
func IncStreamErrors(reason string)     { streamErrorsTotal.WithLabelValues(reason).Inc() }

// knownRoutes are exact paths that keep their own label.
var knownRoutes = map[string]struct{}{
	"/":                              {},
	"/healthz":                       {},
	"/readyz":                        {},
	"/metrics":                       {},
	"/api/v1/tle/metadata":           {},
	"/api/v1/tle/refresh":            {},
	"/api/v1/passes":                 {},
	"/api/v1/cache/keyframes/latest": {},
	"/api/v1/cache/keyframes/at":     {},
	"/api/v1/cache/stats":            {},
	"/api/v1/stream/keyframes":       {},
}

// normalizeRoute collapses request paths into a bounded label set. The
// per-satellite position route would otherwise mint a label per catalog
// number, and crawler probes would mint one per probe.
func normalizeRoute(path string) string {
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/position/") {
		return "/api/v1/position/{catalog_number}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
