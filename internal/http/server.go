package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"riepilogo/internal/charts"
	"riepilogo/internal/clock"
	"riepilogo/internal/log"
	"riepilogo/internal/middleware/ratelimit"
	"riepilogo/internal/middleware/security"
	"riepilogo/internal/middleware/trace"
	"riepilogo/internal/services"
	"riepilogo/internal/store"
	"riepilogo/internal/summary"
)

// Deps are the collaborators the API serves from.
type Deps struct {
	Service  *services.TransactionService
	Reader   store.Reader
	Registry *summary.Registry
	Charts   *charts.Generator
	Clock    clock.Clock
	Location *time.Location
	Logger   *log.Logger
	// Ready reports whether the backing store answers. Nil means always ready.
	Ready func(context.Context) error
}

// Options tune request handling.
type Options struct {
	DefaultOwner       string
	RateLimitPerMinute int
	// SummaryWait bounds how long a summary request waits for an in-flight
	// recompute before answering with the current state.
	SummaryWait time.Duration
}

type Server struct {
	http.Server
	svc          *services.TransactionService
	reader       store.Reader
	registry     *summary.Registry
	charts       *charts.Generator
	clock        clock.Clock
	loc          *time.Location
	logger       *log.Logger
	ready        func(context.Context) error
	defaultOwner string
	summaryWait  time.Duration

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shuttingDown atomic.Bool
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if deps.Clock == nil {
		deps.Clock = clock.NewReal()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Charts == nil {
		deps.Charts = charts.NewGenerator()
	}
	if opts.SummaryWait <= 0 {
		opts.SummaryWait = 5 * time.Second
	}
	logger := log.OrDiscard(deps.Logger).WithComponent(log.ComponentHTTP)

	clientIP := security.NewClientIP()

	s := &Server{
		svc:          deps.Service,
		reader:       deps.Reader,
		registry:     deps.Registry,
		charts:       deps.Charts,
		clock:        deps.Clock,
		loc:          deps.Location,
		logger:       logger,
		ready:        deps.Ready,
		defaultOwner: opts.DefaultOwner,
		summaryWait:  opts.SummaryWait,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Now:               deps.Clock.Now,
		}),
		tracer: trace.NewMiddleware(logger, clientIP.Extract),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/lookups", s.handleListLookups)
	mux.HandleFunc("POST /api/lookups/{kind}", s.handleSaveLookup)
	mux.HandleFunc("DELETE /api/lookups/{kind}/{id}", s.handleDeleteLookup)

	mux.HandleFunc("GET /api/summaries/{kind}", s.handleSummary)
	mux.HandleFunc("POST /api/summaries/{kind}/refresh", s.handleRefreshSummary)
	mux.HandleFunc("GET /api/summaries/{kind}/chart.png", s.handleSummaryChart)

	limited := s.limiter.Middleware(clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, clientIP.Extract(r))
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	}, http.MethodPost, http.MethodPut, http.MethodDelete)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(limited(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.shuttingDown.Store(true)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics reports request counters.
func (s *Server) Metrics() (trace.Metrics, ratelimit.Metrics) {
	return s.tracer.GetMetrics(), s.limiter.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
