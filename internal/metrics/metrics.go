package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by route pattern, method, and status code
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"path", "method", "code"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"path", "method", "code"},
	)
	// RateLimited counts solve requests rejected by the rate limiter
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solve_rate_limited_total", Help: "Solve requests rejected with 429."},
	)

	// SolveRuns counts finished runs by algorithm and terminal status
	SolveRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cvrp_solve_runs_total", Help: "Finished solver runs by algorithm and status."},
		[]string{"algorithm", "status"},
	)
	// SolveDuration records wall time per run
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "cvrp_solve_duration_seconds", Help: "Solver run duration in seconds.", Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30, 60, 120}},
		[]string{"algorithm"},
	)
	// ActiveRuns is the number of runs currently executing
	ActiveRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "cvrp_active_runs", Help: "Solver runs in progress."},
	)
	// ColonyIterations counts colony iterations, by whether any ant was feasible
	ColonyIterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cvrp_colony_iterations_total", Help: "Colony iterations by outcome (feasible|empty)."},
		[]string{"outcome"},
	)
	// BestCost is the best cost of the latest completed run per algorithm
	BestCost = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "cvrp_last_best_cost", Help: "Best cost of the most recent completed run."},
		[]string{"algorithm"},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration, RateLimited)
		Registry.MustRegister(SolveRuns, SolveDuration, ActiveRuns, ColonyIterations, BestCost)
		Registry.MustRegister(WebhookDeliveries, WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
