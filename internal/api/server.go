// Package api assembles the HTTP surface: route registration, the
// middleware chain, and the JSON handlers for positions, passes, element
// metadata, and the keyframe cache.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/auth"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/cache"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/health"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/metrics"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/orbit"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/stream"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/tle"
)

// TLEConfig holds element-set source configuration.
type TLEConfig struct {
	EnableFetch     bool
	SourceURL       string
	ExtraSourceURLs []string
	CacheDir        string
	MaxFiles        int
	MaxAge          time.Duration
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	store    *tle.Store
	tleCfg   TLEConfig
	tleCache *tle.Cache
	prop     *orbit.Propagator
	kfCache  *cache.KeyframeCache
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, store *tle.Store, tleCfg TLEConfig, prop *orbit.Propagator, kfCache *cache.KeyframeCache, streamHandler *stream.Handler) *Server {
	s := &Server{
		logger:   logger,
		store:    store,
		tleCfg:   tleCfg,
		tleCache: tle.NewCache(tleCfg.CacheDir, tleCfg.MaxFiles),
		prop:     prop,
		kfCache:  kfCache,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool {
		return store.Get() != nil
	}))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/tle/metadata", s.handleTLEMetadata)
	mux.HandleFunc("POST /api/v1/tle/refresh", s.handleTLERefresh)
	mux.HandleFunc("GET /api/v1/position/{catalog_number}", s.handlePosition)
	mux.HandleFunc("GET /api/v1/passes", s.handlePasses)
	mux.HandleFunc("GET /api/v1/cache/keyframes/latest", s.handleCacheLatest)
	mux.HandleFunc("GET /api/v1/cache/keyframes/at", s.handleCacheAt)
	mux.HandleFunc("GET /api/v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("GET /api/v1/stream/keyframes", streamHandler.HandleKeyframes)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
