package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"antroute/internal/metrics"
	"antroute/internal/model"
	"antroute/internal/opt"
	"antroute/internal/store"
	"antroute/internal/vrpfile"
)

// maxSolveBody caps POST /v1/solve bodies (instances arrive inline).
const maxSolveBody = 16 << 20

// SolveHandler handles POST /v1/solve. Runs are synchronous unless async is set, in which case the
// run is returned with 202 and solved in the background.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !s.limiter.Allow(p.Client) {
		metrics.RateLimited.Inc()
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "solve rate limit exceeded", r.URL.Path)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSolveBody)
	var req model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req, s.Config); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error(), r.URL.Path)
		return
	}
	in, err := buildInstance(&req, s.Config.MaxNodes)
	if err != nil {
		title := "Invalid instance"
		if errors.Is(err, vrpfile.ErrSyntax) {
			title = "Invalid VRP file"
		}
		writeProblem(w, http.StatusBadRequest, title, err.Error(), r.URL.Path)
		return
	}
	cfg := colonyConfig(s.Config.ACO.Opt(), req.ACO)
	if req.Algorithm == opt.AlgoACO {
		if err := cfg.Validate(); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid optimizer config", err.Error(), r.URL.Path)
			return
		}
	}

	run, err := s.Store.CreateRun(r.Context(), model.Run{
		Algorithm:   req.Algorithm,
		Instance:    in.Name,
		Status:      model.RunRunning,
		Seed:        req.Seed,
		SkipDepot:   req.SkipDepot,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
		return
	}
	job := solveJob{run: run, in: in, cfg: cfg, secret: req.CallbackSecret}

	if req.Async {
		ctx, cancel := s.solveContext(context.Background())
		s.track(run.ID, cancel)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(run.ID)
			defer cancel()
			s.execute(ctx, job)
		}()
		w.Header().Set("Location", "/v1/runs/"+run.ID)
		writeJSON(w, http.StatusAccepted, run)
		return
	}
	ctx, cancel := s.solveContext(r.Context())
	defer cancel()
	s.track(run.ID, cancel)
	defer s.untrack(run.ID)
	writeJSON(w, http.StatusOK, s.execute(ctx, job))
}

// OptimizerConfigHandler returns the effective colony defaults and request limits.
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	a := s.Config.ACO
	writeJSON(w, http.StatusOK, model.OptimizerConfig{
		Ants:               a.Ants,
		Alpha:              a.Alpha,
		Beta:               a.Beta,
		Evaporation:        a.Evaporation,
		Deposit:            a.Deposit,
		InitialPheromone:   a.InitialPheromone,
		Iterations:         a.Iterations,
		EliteAnts:          a.EliteAnts,
		EliteReinforcement: a.EliteReinforcement,
		LocalSearch:        a.LocalSearch,
		SnapshotEvery:      a.SnapshotEvery,
		MaxNodes:           s.Config.MaxNodes,
		MaxIterations:      s.Config.MaxIterations,
	})
}

// RunsIndexHandler handles GET /v1/runs?status=&cursor=&limit=
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", err.Error(), r.URL.Path)
		return
	}
	q := r.URL.Query()
	items, next, err := s.Store.ListRuns(r.Context(), q.Get("status"), q.Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, model.RunList{Items: items, NextCursor: next})
}

func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// RunIterationsHandler returns the sampled cost curve of a colony run.
func (s *Server) RunIterationsHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	items, err := s.Store.ListIterations(r.Context(), run.ID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List iterations failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runId": run.ID, "items": items})
}

// RunCancelHandler stops a run executing on this instance.
func (s *Server) RunCancelHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	if run.Done() || !s.cancelRun(run.ID) {
		writeProblem(w, http.StatusConflict, "Run not cancellable", fmt.Sprintf("run is %s", run.Status), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": run.ID, "status": "cancelling"})
}

// RunEventsStreamHandler streams run progress as SSE until the run ends or the client leaves.
func (s *Server) RunEventsStreamHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	// subscribe before reading the run so a completion in between is not lost
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().UTC().Format(time.RFC3339))
		flusher.Flush()
	}
	send := func(evt model.RunEvent) {
		b, _ := json.Marshal(evt)
		fmt.Fprintf(w, "event: %s\n", evt.Type)
		fmt.Fprintf(w, "data: %s\n\n", string(b))
		flusher.Flush()
	}
	heartbeat()
	if run.Done() {
		send(terminalRunEvent(run))
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			send(evt)
			if evt.Type != model.EventRunIteration {
				return
			}
		case <-ticker.C:
			heartbeat()
			// a terminal event dropped by a full buffer is recovered from the store
			if cur, err := s.Store.GetRun(r.Context(), id); err == nil && cur.Done() {
				send(terminalRunEvent(cur))
				return
			}
		}
	}
}

// RunMetricsHandler returns the latest solver metrics recorded per algorithm for ?instance=.
func (s *Server) RunMetricsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	name := r.URL.Query().Get("instance")
	if name == "" {
		writeProblem(w, http.StatusBadRequest, "Missing instance", "", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"instance": name, "items": opt.GetMetrics(name)})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Admin: webhook deliveries list and retry
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", err.Error(), r.URL.Path)
		return
	}
	q := r.URL.Query()
	items, next, err := s.Store.ListWebhookDeliveries(r.Context(), q.Get("status"), q.Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

func (s *Server) WebhookDeliveryRetryHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	id := r.PathValue("id")
	if err := s.Store.RetryWebhookDelivery(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Delivery not found", id, r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Retry delivery failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": 1})
}

// lookupRun loads {id} or writes a 404/500 problem.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (model.Run, bool) {
	id := r.PathValue("id")
	run, err := s.Store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Run not found", id, r.URL.Path)
		} else {
			writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
		}
		return model.Run{}, false
	}
	return run, true
}
