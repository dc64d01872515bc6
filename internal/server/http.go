package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robertlancer/supershare/internal/instrumentation"
	"github.com/robertlancer/supershare/internal/logging"
	"github.com/robertlancer/supershare/internal/viewer"
)

const (
	// DefaultAddr is the default address for the viewer server.
	DefaultAddr = ":8080"

	// DefaultMount is the default mount point for the viewer handler.
	DefaultMount = "/view/"

	// DefaultReadHeaderTimeout bounds how long reading request headers may take.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultIdleTimeout is the keep-alive idle timeout.
	DefaultIdleTimeout = 120 * time.Second

	// requestIDHeader carries the per-request correlation ID.
	requestIDHeader = "X-Request-Id"
)

// HTTPServerConfig holds configuration for the viewer HTTP server.
type HTTPServerConfig struct {
	// Addr is the address to bind to (e.g., ":8080").
	Addr string

	// Mount is the path prefix the viewer handler is served under.
	// The document title is the path segment after it.
	Mount string
}

// HTTPServer is the public-facing viewer server.
type HTTPServer struct {
	httpServer *http.Server
	addr       string
	mount      string
	health     *HealthChecker
	logger     *slog.Logger
}

// NewHTTPServer wires the viewer handler, health endpoints and middleware
// into an HTTP server.
func NewHTTPServer(config HTTPServerConfig, sc *ServerContext, logger *slog.Logger) (*HTTPServer, error) {
	if sc == nil {
		return nil, fmt.Errorf("server context is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}

	mount, err := normalizeMount(config.Mount)
	if err != nil {
		return nil, err
	}

	handler := viewer.NewHandler(sc.ViewerConfig(), sc, logger, sc.Metrics())

	mux := http.NewServeMux()
	mux.Handle(mount, http.StripPrefix(strings.TrimSuffix(mount, "/"), handler))

	health := NewHealthChecker(sc)
	health.RegisterHealthEndpoints(mux)

	return &HTTPServer{
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           withRequestID(withAccessLog(logger, sc.Metrics(), mux)),
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
		addr:   config.Addr,
		mount:  mount,
		health: health,
		logger: logger,
	}, nil
}

// normalizeMount ensures the mount point has a leading and trailing slash.
func normalizeMount(mount string) (string, error) {
	if mount == "" {
		return DefaultMount, nil
	}
	if !strings.HasPrefix(mount, "/") {
		return "", fmt.Errorf("mount point must start with /, got %q", mount)
	}
	if mount == "/" {
		return "", fmt.Errorf("mount point must not be the root path")
	}
	if !strings.HasSuffix(mount, "/") {
		mount += "/"
	}
	return mount, nil
}

// Start starts the viewer server in a blocking manner.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting viewer server", "addr", s.addr, "mount", s.mount)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the viewer server, marking it not ready
// first so readiness probes fail before in-flight requests are drained.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.logger.Info("shutting down viewer server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured address for the viewer server.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// Mount returns the normalized mount point of the viewer handler.
func (s *HTTPServer) Mount() string {
	return s.mount
}

// Health returns the health checker, for tests and operational tooling.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestID assigns each request a UUID, echoed in the response header,
// unless the caller already supplied one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// withAccessLog logs one line per request and records HTTP metrics.
func withAccessLog(logger *slog.Logger, metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		metrics.RecordHTTPRequest(r.Context(), r.Method, recorder.status, duration)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", recorder.status),
			slog.Duration(logging.KeyDuration, duration),
			slog.String("request_id", w.Header().Get(requestIDHeader)),
		)
	})
}
