package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ds0903/cosmetology-bot-backend/internal/availability"
	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
)

// Store is the persistence contract the handlers depend on.
type Store interface {
	Insert(ctx context.Context, a *Appointment) error
	InsertPair(ctx context.Context, first, second *Appointment) error
	FindActiveAt(ctx context.Context, projectID, clientID string, date time.Time, start timeparse.TimeOfDay) (*Appointment, error)
	FindActiveBySpecialistAt(ctx context.Context, projectID, clientID, specialist string, date time.Time, start timeparse.TimeOfDay) (*Appointment, error)
	FindActiveBySpecialistOn(ctx context.Context, projectID, clientID, specialist string, date time.Time) (*Appointment, error)
	LatestActiveBySpecialist(ctx context.Context, projectID, clientID, specialist string) (*Appointment, error)
	ListActive(ctx context.Context, projectID, clientID string) ([]Appointment, error)
	ListActiveOn(ctx context.Context, projectID, clientID string, date time.Time) ([]Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	UpdateSchedule(ctx context.Context, a *Appointment) error
	CountByStatus(ctx context.Context, projectID string) (total, active, cancelled int, err error)
	ActiveIntervals(ctx context.Context, projectID, specialist string, date time.Time) ([]availability.Interval, error)
}

// db is the subset of pgxpool.Pool the repository uses; pgxmock satisfies it
// in tests.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository stores appointments in the relational database.
type Repository struct {
	db db
}

var _ Store = (*Repository)(nil)
var _ availability.LocalLedger = (*Repository)(nil)

// NewRepository initializes a repo backed by a pgx pool (or mock).
func NewRepository(pool db) *Repository {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &Repository{db: pool}
}

const appointmentColumns = `id, project_id, client_id, specialist_name, appointment_date, appointment_time,
		duration_minutes, COALESCE(service_name, ''), COALESCE(client_name, ''), COALESCE(client_phone, ''),
		status, created_at, updated_at`

// Insert persists a new appointment row.
func (r *Repository) Insert(ctx context.Context, a *Appointment) error {
	return r.insert(ctx, r.db, a)
}

// InsertPair persists both rows of a double booking in one transaction so a
// failure on either side leaves zero rows behind.
func (r *Repository) InsertPair(ctx context.Context, first, second *Appointment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("booking: begin pair insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.insert(ctx, tx, first); err != nil {
		return err
	}
	if err := r.insert(ctx, tx, second); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("booking: commit pair insert: %w", err)
	}
	return nil
}

type execer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) insert(ctx context.Context, q execer, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	query := `
		INSERT INTO bookings (id, project_id, client_id, specialist_name, appointment_date, appointment_time,
			duration_minutes, service_name, client_name, client_phone, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	if err := q.QueryRow(ctx, query,
		a.ID,
		a.ProjectID,
		a.ClientID,
		a.Specialist,
		a.Date,
		toPGTime(a.Start),
		a.DurationMinutes,
		a.Service,
		a.ClientName,
		a.ClientPhone,
		StatusActive,
	).Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("booking: insert failed: %w", err)
	}
	a.Status = StatusActive
	return nil
}

// FindActiveAt locates the unique active booking at (client, date, time).
func (r *Repository) FindActiveAt(ctx context.Context, projectID, clientID string, date time.Time, start timeparse.TimeOfDay) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM bookings
		WHERE project_id = $1 AND client_id = $2 AND appointment_date = $3 AND appointment_time = $4 AND status = 'active'
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, projectID, clientID, date, toPGTime(start)))
}

// FindActiveBySpecialistAt narrows FindActiveAt to one specialist.
func (r *Repository) FindActiveBySpecialistAt(ctx context.Context, projectID, clientID, specialist string, date time.Time, start timeparse.TimeOfDay) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM bookings
		WHERE project_id = $1 AND client_id = $2 AND specialist_name = $3
			AND appointment_date = $4 AND appointment_time = $5 AND status = 'active'
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, projectID, clientID, specialist, date, toPGTime(start)))
}

// FindActiveBySpecialistOn finds any active booking for the specialist on a
// date, regardless of time.
func (r *Repository) FindActiveBySpecialistOn(ctx context.Context, projectID, clientID, specialist string, date time.Time) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM bookings
		WHERE project_id = $1 AND client_id = $2 AND specialist_name = $3
			AND appointment_date = $4 AND status = 'active'
		ORDER BY appointment_time
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, projectID, clientID, specialist, date))
}

// LatestActiveBySpecialist returns the client's most recent active booking
// with the specialist.
func (r *Repository) LatestActiveBySpecialist(ctx context.Context, projectID, clientID, specialist string) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM bookings
		WHERE project_id = $1 AND client_id = $2 AND specialist_name = $3 AND status = 'active'
		ORDER BY appointment_date DESC, appointment_time DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, projectID, clientID, specialist))
}

// ListActive returns all of a client's active bookings.
func (r *Repository) ListActive(ctx context.Context, projectID, clientID string) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM bookings
		WHERE project_id = $1 AND client_id = $2 AND status = 'active'
		ORDER BY appointment_date, appointment_time
	`
	rows, err := r.db.Query(ctx, query, projectID, clientID)
	if err != nil {
		return nil, fmt.Errorf("booking: list active: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListActiveOn returns a client's active bookings on one date.
func (r *Repository) ListActiveOn(ctx context.Context, projectID, clientID string, date time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM bookings
		WHERE project_id = $1 AND client_id = $2 AND appointment_date = $3 AND status = 'active'
		ORDER BY appointment_time
	`
	rows, err := r.db.Query(ctx, query, projectID, clientID, date)
	if err != nil {
		return nil, fmt.Errorf("booking: list active on date: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// Cancel flips an active booking to cancelled.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status = 'active'
	`
	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("booking: cancel: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSchedule rewrites the scheduling and contact fields of an existing
// row in place; reschedules never create a second row.
func (r *Repository) UpdateSchedule(ctx context.Context, a *Appointment) error {
	query := `
		UPDATE bookings
		SET specialist_name = $2, appointment_date = $3, appointment_time = $4,
			duration_minutes = $5, service_name = $6, client_name = $7, client_phone = $8,
			updated_at = now()
		WHERE id = $1 AND status = 'active'
	`
	ct, err := r.db.Exec(ctx, query,
		a.ID,
		a.Specialist,
		a.Date,
		toPGTime(a.Start),
		a.DurationMinutes,
		a.Service,
		a.ClientName,
		a.ClientPhone,
	)
	if err != nil {
		return fmt.Errorf("booking: update schedule: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus returns booking totals for a project.
func (r *Repository) CountByStatus(ctx context.Context, projectID string) (total, active, cancelled int, err error) {
	query := `
		SELECT count(*),
			count(*) FILTER (WHERE status = 'active'),
			count(*) FILTER (WHERE status = 'cancelled')
		FROM bookings
		WHERE project_id = $1
	`
	if err = r.db.QueryRow(ctx, query, projectID).Scan(&total, &active, &cancelled); err != nil {
		return 0, 0, 0, fmt.Errorf("booking: count by status: %w", err)
	}
	return total, active, cancelled, nil
}

// ActiveIntervals exposes the local store's occupied stretches for the
// advisory availability cross-check.
func (r *Repository) ActiveIntervals(ctx context.Context, projectID, specialist string, date time.Time) ([]availability.Interval, error) {
	query := `
		SELECT appointment_time, duration_minutes
		FROM bookings
		WHERE project_id = $1 AND specialist_name = $2 AND appointment_date = $3 AND status = 'active'
	`
	rows, err := r.db.Query(ctx, query, projectID, specialist, date)
	if err != nil {
		return nil, fmt.Errorf("booking: active intervals: %w", err)
	}
	defer rows.Close()

	var intervals []availability.Interval
	for rows.Next() {
		var start pgtype.Time
		var durationMinutes int
		if err := rows.Scan(&start, &durationMinutes); err != nil {
			return nil, fmt.Errorf("booking: scan interval: %w", err)
		}
		intervals = append(intervals, availability.Interval{
			Start:           fromPGTime(start),
			DurationMinutes: durationMinutes,
		})
	}
	return intervals, rows.Err()
}

func (r *Repository) scanOne(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start pgtype.Time
	if err := row.Scan(
		&a.ID,
		&a.ProjectID,
		&a.ClientID,
		&a.Specialist,
		&a.Date,
		&start,
		&a.DurationMinutes,
		&a.Service,
		&a.ClientName,
		&a.ClientPhone,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("booking: select failed: %w", err)
	}
	a.Start = fromPGTime(start)
	return &a, nil
}

func (r *Repository) scanAll(rows pgx.Rows) ([]Appointment, error) {
	var out []Appointment
	for rows.Next() {
		var a Appointment
		var start pgtype.Time
		if err := rows.Scan(
			&a.ID,
			&a.ProjectID,
			&a.ClientID,
			&a.Specialist,
			&a.Date,
			&start,
			&a.DurationMinutes,
			&a.Service,
			&a.ClientName,
			&a.ClientPhone,
			&a.Status,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("booking: scan row: %w", err)
		}
		a.Start = fromPGTime(start)
		out = append(out, a)
	}
	return out, rows.Err()
}

func toPGTime(t timeparse.TimeOfDay) pgtype.Time {
	return pgtype.Time{
		Microseconds: int64(t.Minutes()) * 60 * 1_000_000,
		Valid:        true,
	}
}

func fromPGTime(t pgtype.Time) timeparse.TimeOfDay {
	if !t.Valid {
		return timeparse.TimeOfDay{}
	}
	return timeparse.FromMinutes(int(t.Microseconds / (60 * 1_000_000)))
}
