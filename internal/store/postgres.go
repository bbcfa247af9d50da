package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"antroute/internal/model"
)

//go:embed schema.sql
var schemaSQL string

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate applies the embedded schema. Every statement is idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	created := time.Now().UTC()
	if run.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, run.CreatedAt); err == nil {
			created = t
		}
	}
	run.CreatedAt = created.Format(time.RFC3339)
	routes, err := routesJSON(run.Routes)
	if err != nil {
		return model.Run{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, algorithm, instance, status, seed, skip_depot, cost, routes, iterations, best_iteration, feasible_ants, error, callback_url, duration_ms, created_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		run.ID, run.Algorithm, nullIfEmpty(run.Instance), run.Status, run.Seed, run.SkipDepot, run.Cost, routes,
		run.Iterations, run.BestIteration, run.FeasibleAnts, nullIfEmpty(run.Error), nullIfEmpty(run.CallbackURL), run.DurationMs,
		created, nullTime(run.CompletedAt))
	if err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func (p *Postgres) UpdateRun(ctx context.Context, run model.Run) error {
	routes, err := routesJSON(run.Routes)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE runs SET status=$2, cost=$3, routes=$4, iterations=$5, best_iteration=$6, feasible_ants=$7, error=$8, duration_ms=$9, completed_at=$10 WHERE id=$1`,
		run.ID, run.Status, run.Cost, routes, run.Iterations, run.BestIteration, run.FeasibleAnts, nullIfEmpty(run.Error), run.DurationMs, nullTime(run.CompletedAt))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id::text, algorithm, COALESCE(instance,''), status, seed, skip_depot, cost, routes, iterations, best_iteration, feasible_ants, COALESCE(error,''), COALESCE(callback_url,''), duration_ms, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var r model.Run
	var cost sql.NullFloat64
	var routes []byte
	var created time.Time
	var completed sql.NullTime
	if err := row.Scan(&r.ID, &r.Algorithm, &r.Instance, &r.Status, &r.Seed, &r.SkipDepot, &cost, &routes, &r.Iterations, &r.BestIteration, &r.FeasibleAnts, &r.Error, &r.CallbackURL, &r.DurationMs, &created, &completed); err != nil {
		return r, err
	}
	if cost.Valid {
		c := cost.Float64
		r.Cost = &c
	}
	if len(routes) > 0 {
		if err := json.Unmarshal(routes, &r.Routes); err != nil {
			return r, fmt.Errorf("decode routes of run %s: %w", r.ID, err)
		}
	}
	r.CreatedAt = created.UTC().Format(time.RFC3339)
	if completed.Valid {
		r.CompletedAt = completed.Time.UTC().Format(time.RFC3339)
	}
	return r, nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Run{}, ErrNotFound
	}
	r, err := scanRun(p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

// ListRuns pages by insertion order. The cursor is the id of the last run of the previous page.
func (p *Postgres) ListRuns(ctx context.Context, status, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	q := `SELECT ` + runColumns + ` FROM runs WHERE ($1::text = '' OR status = $1)`
	args := []any{status}
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
		q += ` AND seq > (SELECT seq FROM runs WHERE id = $2)`
		args = append(args, cursor)
	}
	q += fmt.Sprintf(` ORDER BY seq LIMIT %d`, limit)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (p *Postgres) SaveIterations(ctx context.Context, runID string, snaps []model.IterationSnapshot) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, s := range snaps {
		_, err := tx.ExecContext(ctx, `INSERT INTO run_iterations (run_id, iteration, feasible, iteration_best, best_cost) VALUES ($1,$2,$3,$4,$5)
            ON CONFLICT (run_id, iteration) DO UPDATE SET feasible=$3, iteration_best=$4, best_cost=$5`,
			runID, s.Iteration, s.Feasible, s.IterationBest, s.BestCost)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) ListIterations(ctx context.Context, runID string) ([]model.IterationSnapshot, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT iteration, feasible, COALESCE(iteration_best,0), COALESCE(best_cost,0) FROM run_iterations WHERE run_id=$1 ORDER BY iteration`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.IterationSnapshot{}
	for rows.Next() {
		var s model.IterationSnapshot
		if err := rows.Scan(&s.Iteration, &s.Feasible, &s.IterationBest, &s.BestCost); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, runID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	dk := computeDedupKey(payload)
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, run_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,$6,'pending',0,now(),$7)
        ON CONFLICT (event_type, url, dedup_key) DO NOTHING`, id, nullIfEmpty(runID), eventType, url, nullIfEmpty(secret), string(payload), dk)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, COALESCE(run_id,''), event_type, url, COALESCE(secret,''), payload::text, status, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		var payload string
		if err := rows.Scan(&d.ID, &d.RunID, &d.EventType, &d.URL, &d.Secret, &payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		d.Payload = []byte(payload)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if !success {
		if nextAttemptAt == nil {
			t := time.Now().Add(time.Minute)
			nextAttemptAt = &t
		}
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`,
			id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, status, cursor string, limit int) ([]map[string]any, string, error) {
	limit = clampLimit(limit)
	q := `SELECT id::text, COALESCE(run_id,''), event_type, status, attempts, next_attempt_at, COALESCE(last_error,''), url, COALESCE(response_code,0) FROM webhook_deliveries WHERE ($1::text = '' OR status = $1)`
	args := []any{status}
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
		q += ` AND seq > (SELECT seq FROM webhook_deliveries WHERE id = $2)`
		args = append(args, cursor)
	}
	q += fmt.Sprintf(` ORDER BY seq LIMIT %d`, limit)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []map[string]any{}
	var last string
	for rows.Next() {
		var id, runID, typ, st, lastErr, url string
		var attempts, code int
		var nextAt time.Time
		if err := rows.Scan(&id, &runID, &typ, &st, &attempts, &nextAt, &lastErr, &url, &code); err != nil {
			return nil, "", err
		}
		m := map[string]any{"id": id, "runId": runID, "eventType": typ, "status": st, "attempts": attempts, "url": url}
		if st == DeliveryPending || st == DeliveryRetry {
			m["nextAttemptAt"] = nextAt
		}
		if lastErr != "" {
			m["lastError"] = lastErr
		}
		if code != 0 {
			m["responseCode"] = code
		}
		out = append(out, m)
		last = id
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, nil
}

func (p *Postgres) RetryWebhookDelivery(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='pending', next_attempt_at=now(), updated_at=now() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// computeDedupKey uses the event id when the payload carries one, else a short content hash.
func computeDedupKey(payload []byte) string {
	var m map[string]any
	if json.Unmarshal(payload, &m) == nil {
		if v, ok := m["id"].(string); ok && v != "" {
			return v
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

func routesJSON(routes []model.RouteOut) (any, error) {
	if routes == nil {
		return nil, nil
	}
	b, err := json.Marshal(routes)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(rfc3339 string) any {
	if rfc3339 == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return nil
	}
	return t
}
