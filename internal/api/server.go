package api

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"antroute/internal/auth"
	"antroute/internal/config"
	"antroute/internal/metrics"
	"antroute/internal/store"
	"antroute/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Pub    *webhooks.Publisher
	Broker EventBroker
	Auth   *auth.Verifier
	Config config.Config

	limiter *rateLimiter

	mu      sync.Mutex
	running map[string]context.CancelFunc // run id -> cancel of its solve
	wg      sync.WaitGroup
}

// NewServer creates a Server. If DatabaseURL is empty, uses the in-memory store; if RedisURL is set
// and reachable, progress events go through Redis.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sp.Migrate(ctx); err != nil {
			_ = sp.Close()
			return nil, err
		}
		s = sp
	}
	var broker EventBroker = NewBroker()
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err = rb.Ping(ctx)
			cancel()
		}
		if err != nil {
			log.Printf("redis broker unavailable, using in-process broker: %v", err)
		} else {
			broker = rb
		}
	}
	return NewServerWith(cfg, s, broker)
}

// NewServerWith wires a Server around an existing store and broker.
func NewServerWith(cfg config.Config, s store.Store, broker EventBroker) (*Server, error) {
	v, err := auth.NewVerifier(auth.Config{
		Mode:        cfg.Auth.Mode,
		HMACSecret:  cfg.Auth.HMACSecret,
		JWKSURL:     cfg.Auth.JWKSURL,
		ClientClaim: cfg.Auth.ClientClaim,
		RoleClaim:   cfg.Auth.RoleClaim,
	})
	if err != nil {
		return nil, err
	}
	metrics.RegisterDefault()
	if broker == nil {
		broker = NewBroker()
	}
	return &Server{
		Store:   s,
		Pub:     webhooks.NewPublisher(s),
		Broker:  broker,
		Auth:    v,
		Config:  cfg,
		limiter: newRateLimiter(cfg.RateRPS, cfg.RateBurst),
		running: map[string]context.CancelFunc{},
	}, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.Config.WebhookMaxAttempts)
}

// Handler returns the routed API with per-route Prometheus instrumentation, behind bearer auth
// when enabled.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, h))
	}

	// Solving
	handle("POST /v1/solve", s.SolveHandler)
	handle("GET /v1/optimizer/config", s.OptimizerConfigHandler)

	// Runs
	handle("GET /v1/runs", s.RunsIndexHandler)
	handle("GET /v1/runs/{id}", s.RunByIDHandler)
	handle("GET /v1/runs/{id}/iterations", s.RunIterationsHandler)
	handle("GET /v1/runs/{id}/events/stream", s.RunEventsStreamHandler)
	handle("GET /v1/runs/{id}/ws", s.RunWSHandler)
	handle("POST /v1/runs/{id}/cancel", s.RunCancelHandler)

	// Admin
	handle("GET /v1/admin/run-metrics", s.RunMetricsHandler)
	handle("GET /v1/admin/webhook-deliveries", s.WebhookDeliveriesHandler)
	handle("POST /v1/admin/webhook-deliveries/{id}/retry", s.WebhookDeliveryRetryHandler)

	// Health and debug
	handle("GET /healthz", s.HealthHandler)
	handle("GET /readyz", s.ReadyHandler)
	handle("GET /debug/vars", s.DebugJSON)
	handle("GET /openapi.yaml", s.OpenAPIHandler)
	handle("GET /openapi.json", s.OpenAPIJSONHandler)
	handle("GET /docs", s.DocsHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	return s.authenticate(mux)
}

// instrument counts and times requests under the route pattern so that run ids do not explode the
// label space. promhttp's delegator keeps Flusher and Hijacker working for SSE and WebSocket.
func instrument(pattern string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"path": pattern}
	return promhttp.InstrumentHandlerDuration(metrics.HTTPDuration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(metrics.HTTPRequests.MustCurryWith(labels), h))
}

// track registers the cancel func of a running solve.
func (s *Server) track(runID string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.running[runID] = cancel
	s.mu.Unlock()
}

func (s *Server) untrack(runID string) {
	s.mu.Lock()
	delete(s.running, runID)
	s.mu.Unlock()
}

// cancelRun stops a running solve; it reports false when the run is not executing here.
func (s *Server) cancelRun(runID string) bool {
	s.mu.Lock()
	cancel, ok := s.running[runID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Shutdown cancels in-flight background solves and waits for them to persist their outcome.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, cancel := range s.running {
		cancel()
	}
	s.mu.Unlock()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
