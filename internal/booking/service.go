package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ds0903/cosmetology-bot-backend/internal/availability"
	"github.com/ds0903/cosmetology-bot-backend/internal/feedsync"
	"github.com/ds0903/cosmetology-bot-backend/internal/nlu"
	"github.com/ds0903/cosmetology-bot-backend/internal/observability/metrics"
	"github.com/ds0903/cosmetology-bot-backend/internal/projects"
	"github.com/ds0903/cosmetology-bot-backend/internal/reminders"
	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
	"github.com/ds0903/cosmetology-bot-backend/internal/transcripts"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

// FeedbackStore persists free-form feedback captured alongside an action.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, projectID, clientID, text string) error
}

// Service executes booking actions. It owns the ordering guarantees: the
// external ledger is checked before any write, the relational store commits
// first, and ledger/reminder syncs happen after the commit and never fail
// the action.
type Service struct {
	repo        Store
	feedback    FeedbackStore
	checker     *availability.Checker
	feed        availability.Feed
	reminders   reminders.Sink
	transcripts transcripts.Exporter
	resolver    nlu.ServiceNameResolver
	syncQueue   feedsync.Queue
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
	now         func() time.Time
}

// ServiceDeps carries the collaborators for NewService. Reminders,
// transcripts, resolver, sync queue and metrics are optional.
type ServiceDeps struct {
	Repo        Store
	Feedback    FeedbackStore
	Checker     *availability.Checker
	Feed        availability.Feed
	Reminders   reminders.Sink
	Transcripts transcripts.Exporter
	Resolver    nlu.ServiceNameResolver
	SyncQueue   feedsync.Queue
	Metrics     *metrics.BookingMetrics
	Logger      *logging.Logger
}

func NewService(deps ServiceDeps) *Service {
	if deps.Repo == nil {
		panic("booking: repo required")
	}
	if deps.Checker == nil {
		panic("booking: availability checker required")
	}
	if deps.Feed == nil {
		panic("booking: availability feed required")
	}
	if deps.Resolver == nil {
		deps.Resolver = nlu.StaticResolver{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &Service{
		repo:        deps.Repo,
		feedback:    deps.Feedback,
		checker:     deps.Checker,
		feed:        deps.Feed,
		reminders:   deps.Reminders,
		transcripts: deps.Transcripts,
		resolver:    deps.Resolver,
		syncQueue:   deps.SyncQueue,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// ClientBookings lists a client's active appointments.
func (s *Service) ClientBookings(ctx context.Context, projectID, clientID string) ([]Appointment, error) {
	return s.repo.ListActive(ctx, projectID, clientID)
}

// Stats summarizes a project's booking volumes.
type Stats struct {
	ProjectID string `json:"project_id"`
	Total     int    `json:"total"`
	Active    int    `json:"active"`
	Cancelled int    `json:"cancelled"`
}

// ProjectStats returns booking totals for the admin surface.
func (s *Service) ProjectStats(ctx context.Context, projectID string) (*Stats, error) {
	total, active, cancelled, err := s.repo.CountByStatus(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Stats{ProjectID: projectID, Total: total, Active: active, Cancelled: cancelled}, nil
}

// SaveFeedback persists feedback text. Missing store or empty text is a
// no-op.
func (s *Service) SaveFeedback(ctx context.Context, projectID, clientID, text string) error {
	if s.feedback == nil || text == "" {
		return nil
	}
	return s.feedback.SaveFeedback(ctx, projectID, clientID, text)
}

// resolveService maps the free-form procedure phrase to a configured service
// and its duration in slots. When nothing matches, the client's own wording
// is kept and the booking takes a single slot.
func (s *Service) resolveService(ctx context.Context, cfg *projects.Config, phrase string, log *logging.Logger) (name string, slots int) {
	slots = 1
	if phrase == "" || len(cfg.Services) == 0 {
		return phrase, slots
	}
	resolved, err := s.resolver.Resolve(ctx, phrase, serviceNames(cfg))
	if err != nil {
		log.Warn("service name resolution failed", "phrase", phrase, "error", err)
		return phrase, slots
	}
	if resolved == "" {
		return phrase, slots
	}
	if n, ok := cfg.ServiceSlots(resolved); ok && n > 0 {
		return resolved, n
	}
	return resolved, slots
}

func serviceNames(cfg *projects.Config) []string {
	names := make([]string, 0, len(cfg.Services))
	for name := range cfg.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkSlot runs the two-pass availability check and the pre-commit
// collision re-read. A nil error with ok=false means the slot is taken; a
// non-nil error means the feed could not be consulted.
func (s *Service) checkSlot(ctx context.Context, req availability.CheckRequest) (bool, error) {
	started := s.now()
	free, err := s.checker.IsAvailable(ctx, req)
	s.metrics.ObserveFeedCheck("is_available", s.now().Sub(started).Seconds())
	if err != nil {
		return false, err
	}
	return free, nil
}

func (s *Service) finalCheck(ctx context.Context, specialist string, date time.Time, start timeparse.TimeOfDay, slots, unit int) error {
	started := s.now()
	snap, err := s.checker.Snapshot(ctx, date, slots)
	s.metrics.ObserveFeedCheck("snapshot", s.now().Sub(started).Seconds())
	if err != nil {
		return err
	}
	return s.checker.FinalCollisionCheck(snap, specialist, start, slots, unit)
}

// syncReserve pushes a reservation to the ledger after the local commit.
// Failures are queued for replay instead of failing the action.
func (s *Service) syncReserve(ctx context.Context, projectID string, res availability.Reservation, log *logging.Logger) {
	if err := s.feed.Reserve(ctx, res); err != nil {
		log.Warn("ledger reserve failed, queued for retry", "specialist", res.Specialist, "error", err)
		s.enqueueSync(ctx, projectID, feedsync.KindReserve, res, log)
	}
}

func (s *Service) syncClear(ctx context.Context, projectID, specialist string, date time.Time, start timeparse.TimeOfDay, slots int, log *logging.Logger) {
	if err := s.feed.Clear(ctx, specialist, date, start, slots); err != nil {
		log.Warn("ledger clear failed, queued for retry", "specialist", specialist, "error", err)
		s.enqueueSync(ctx, projectID, feedsync.KindClear, feedsync.ClearOp{
			Specialist:    specialist,
			Date:          date,
			Start:         start,
			DurationSlots: slots,
		}, log)
	}
}

func (s *Service) syncLogCancellation(ctx context.Context, projectID string, rec availability.CancellationRecord, log *logging.Logger) {
	if err := s.feed.LogCancellation(ctx, rec); err != nil {
		log.Warn("cancellation log failed, queued for retry", "error", err)
		s.enqueueSync(ctx, projectID, feedsync.KindLogCancellation, rec, log)
	}
}

func (s *Service) syncLogTransfer(ctx context.Context, projectID string, rec availability.TransferRecord, log *logging.Logger) {
	if err := s.feed.LogTransfer(ctx, rec); err != nil {
		log.Warn("transfer log failed, queued for retry", "error", err)
		s.enqueueSync(ctx, projectID, feedsync.KindLogTransfer, rec, log)
	}
}

func (s *Service) enqueueSync(ctx context.Context, projectID, kind string, payload any, log *logging.Logger) {
	s.metrics.ObserveSyncFallback()
	if s.syncQueue == nil {
		return
	}
	if _, err := s.syncQueue.Enqueue(ctx, projectID, kind, payload); err != nil {
		log.Error("failed to queue ledger sync", "kind", kind, "error", err)
	}
}

// enqueueReminder schedules the pre-appointment notification. Best-effort.
func (s *Service) enqueueReminder(ctx context.Context, a *Appointment, log *logging.Logger) {
	if s.reminders == nil {
		return
	}
	err := s.reminders.Enqueue(ctx, reminders.Reminder{
		ProjectID:   a.ProjectID,
		ClientID:    a.ClientID,
		BookingID:   a.ID.String(),
		Specialist:  a.Specialist,
		Date:        timeparse.FormatDate(a.Date),
		Time:        a.Start.String(),
		Service:     a.Service,
		ClientName:  a.ClientName,
		ClientPhone: a.ClientPhone,
	})
	if err != nil {
		log.Warn("reminder enqueue failed", "booking_id", a.ID, "error", err)
	}
}

func feedUnavailableResult() Result {
	return Result{
		Success: false,
		Reason:  ReasonError,
		Message: "the schedule is temporarily unreachable, please try again in a moment",
	}
}

func slotTakenMessage(specialist string, date time.Time, start timeparse.TimeOfDay) string {
	return fmt.Sprintf("%s is already booked on %s at %s, please choose another time",
		specialist, timeparse.FormatDate(date), start)
}

// FormatBookings renders appointments as the one-line-per-booking summary
// the dialogue layer feeds back into the conversation context.
func FormatBookings(appts []Appointment) string {
	if len(appts) == 0 {
		return "no active bookings"
	}
	lines := make([]string, 0, len(appts))
	for _, a := range appts {
		line := fmt.Sprintf("%s at %s with %s", timeparse.FormatDate(a.Date), a.Start, a.Specialist)
		if a.Service != "" {
			line += fmt.Sprintf(" (%s)", a.Service)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "; ")
}
