// Package audit records who did what to a reconciliation. Recording is best-effort:
// a failed write is logged and dropped, never surfaced to the caller.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is one audit trail entry.
type Event struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID int64          `json:"organization_id"`
	ActorID        int64          `json:"actor_id"`
	Action         string         `json:"action"`
	Entity         string         `json:"entity"`
	EntityID       int64          `json:"entity_id"`
	Details        map[string]any `json:"details,omitempty"`
	At             time.Time      `json:"at"`
}

// Logger accepts events. Record must not block the caller on I/O.
type Logger interface {
	Record(ctx context.Context, e Event)
}

// Discard drops every event.
var Discard Logger = discard{}

type discard struct{}

func (discard) Record(context.Context, Event) {}

// PostgresLogger writes events to the audit_log table in the background.
type PostgresLogger struct {
	db      *pgxpool.Pool
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewPostgresLogger(db *pgxpool.Pool, log *slog.Logger) *PostgresLogger {
	return &PostgresLogger{db: db, log: log, timeout: 5 * time.Second}
}

func (l *PostgresLogger) Record(ctx context.Context, e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	// Detach from the request so the write outlives it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()

		details, err := json.Marshal(e.Details)
		if err != nil {
			details = []byte("{}")
		}
		_, err = l.db.Exec(ctx,
			`INSERT INTO audit_log (id, organization_id, actor_id, action, entity, entity_id, details, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, e.OrganizationID, e.ActorID, e.Action, e.Entity, e.EntityID, details, e.At)
		if err != nil {
			l.log.Warn("audit write failed", "action", e.Action, "entity", e.Entity, "entity_id", e.EntityID, "error", err)
		}
	}()
}

// Wait blocks until in-flight writes finish. Call before closing the pool.
func (l *PostgresLogger) Wait() {
	l.wg.Wait()
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Record(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
