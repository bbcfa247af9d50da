package api

import (
	"net/http"
	"time"

	"antroute/internal/buildinfo"
)

// DebugJSON reports build info and the effective, secret-free configuration.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	c := s.Config
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                 c.Port,
			"RATE_RPS":             c.RateRPS,
			"RATE_BURST":           c.RateBurst,
			"WEBHOOK_MAX_ATTEMPTS": c.WebhookMaxAttempts,
			"MAX_NODES":            c.MaxNodes,
			"MAX_ITERATIONS":       c.MaxIterations,
			"SOLVE_TIMEOUT":        c.SolveTimeout.String(),
			"HAS_DATABASE_URL":     c.DatabaseURL != "",
			"HAS_REDIS_URL":        c.RedisURL != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
