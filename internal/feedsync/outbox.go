// Package feedsync retries failed writes to the external availability
// ledger. Post-commit ledger syncs must not fail the booking action, so a
// failed write lands here and a background deliverer replays it.
package feedsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

// Pending operation kinds.
const (
	KindReserve         = "reserve"
	KindClear           = "clear"
	KindLogCancellation = "log_cancellation"
	KindLogTransfer     = "log_transfer"
)

// Entry is one pending ledger write.
type Entry struct {
	ID        uuid.UUID
	ProjectID string
	Kind      string
	Payload   json.RawMessage
	Attempts  int
	CreatedAt time.Time
}

// Handler replays a pending entry against the ledger.
type Handler interface {
	Handle(ctx context.Context, entry Entry) error
}

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store persists pending ledger writes.
type Store struct {
	db db
}

// Queue is the narrow enqueue surface the booking service depends on.
type Queue interface {
	Enqueue(ctx context.Context, projectID, kind string, payload any) (uuid.UUID, error)
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("feedsync: pgx pool required")
	}
	return &Store{db: pool}
}

func newStoreWithDB(d db) *Store {
	return &Store{db: d}
}

func (s *Store) Enqueue(ctx context.Context, projectID, kind string, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("feedsync: marshal payload: %w", err)
	}
	id := uuid.New()
	query := `
		INSERT INTO feed_sync_outbox (id, project_id, kind, payload)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.Exec(ctx, query, id, projectID, kind, data); err != nil {
		return uuid.Nil, fmt.Errorf("feedsync: insert outbox: %w", err)
	}
	return id, nil
}

func (s *Store) FetchPending(ctx context.Context, limit int32) ([]Entry, error) {
	query := `
		SELECT id, project_id, kind, payload, attempts, created_at
		FROM feed_sync_outbox
		WHERE delivered_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("feedsync: fetch pending: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.ProjectID, &entry.Kind, &payload, &entry.Attempts, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("feedsync: scan outbox: %w", err)
		}
		entry.Payload = append([]byte(nil), payload...)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE feed_sync_outbox
		SET delivered_at = now()
		WHERE id = $1 AND delivered_at IS NULL
	`
	ct, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("feedsync: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE feed_sync_outbox
		SET attempts = attempts + 1
		WHERE id = $1
	`
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("feedsync: mark failed: %w", err)
	}
	return nil
}

// Deliverer polls the outbox and replays entries through the handler.
type Deliverer struct {
	store     *Store
	handler   Handler
	logger    *logging.Logger
	batchSize int32
	interval  time.Duration
}

func NewDeliverer(store *Store, handler Handler, logger *logging.Logger) *Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deliverer{
		store:     store,
		handler:   handler,
		logger:    logger,
		batchSize: 25,
		interval:  30 * time.Second,
	}
}

func (d *Deliverer) WithBatchSize(size int32) *Deliverer {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

func (d *Deliverer) WithInterval(interval time.Duration) *Deliverer {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Deliverer) Start(ctx context.Context) {
	if d.store == nil || d.handler == nil {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *Deliverer) drain(ctx context.Context) {
	entries, err := d.store.FetchPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("feed sync fetch failed", "error", err)
		return
	}
	for _, entry := range entries {
		if err := d.handler.Handle(ctx, entry); err != nil {
			d.logger.Error("feed sync replay failed",
				"error", err, "entry_id", entry.ID, "kind", entry.Kind, "attempts", entry.Attempts)
			if err := d.store.MarkFailed(ctx, entry.ID); err != nil {
				d.logger.Error("failed to record sync attempt", "error", err, "entry_id", entry.ID)
			}
			continue
		}
		if ok, err := d.store.MarkDelivered(ctx, entry.ID); err != nil {
			d.logger.Error("failed to mark sync delivered", "error", err, "entry_id", entry.ID)
		} else if ok {
			d.logger.Debug("feed sync delivered", "entry_id", entry.ID, "kind", entry.Kind)
		}
	}
}
