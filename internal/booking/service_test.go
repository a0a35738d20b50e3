package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ds0903/cosmetology-bot-backend/internal/availability"
	"github.com/ds0903/cosmetology-bot-backend/internal/projects"
	"github.com/ds0903/cosmetology-bot-backend/internal/reminders"
	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	appts         []*Appointment
	feedback      []string
	insertErr     error
	failOnInsert  int // fail the nth insert (1-based), 0 = never
	inserts       int
	panicOnInsert bool
}

func (m *memStore) Insert(_ context.Context, a *Appointment) error {
	if m.panicOnInsert {
		panic("store exploded")
	}
	m.inserts++
	if m.insertErr != nil || (m.failOnInsert > 0 && m.inserts == m.failOnInsert) {
		if m.insertErr != nil {
			return m.insertErr
		}
		return errors.New("insert refused")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = StatusActive
	m.appts = append(m.appts, a)
	return nil
}

func (m *memStore) InsertPair(ctx context.Context, first, second *Appointment) error {
	before := len(m.appts)
	if err := m.Insert(ctx, first); err != nil {
		return err
	}
	if err := m.Insert(ctx, second); err != nil {
		m.appts = m.appts[:before]
		return err
	}
	return nil
}

func (m *memStore) find(match func(*Appointment) bool) (*Appointment, error) {
	var found []*Appointment
	for _, a := range m.appts {
		if a.Status == StatusActive && match(a) {
			found = append(found, a)
		}
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].Date.Equal(found[j].Date) {
			return found[i].Date.Before(found[j].Date)
		}
		return found[i].Start.Minutes() < found[j].Start.Minutes()
	})
	return found[0], nil
}

func (m *memStore) FindActiveAt(_ context.Context, projectID, clientID string, date time.Time, start timeparse.TimeOfDay) (*Appointment, error) {
	return m.find(func(a *Appointment) bool {
		return a.ProjectID == projectID && a.ClientID == clientID && a.Date.Equal(date) && a.Start == start
	})
}

func (m *memStore) FindActiveBySpecialistAt(_ context.Context, projectID, clientID, specialist string, date time.Time, start timeparse.TimeOfDay) (*Appointment, error) {
	return m.find(func(a *Appointment) bool {
		return a.ProjectID == projectID && a.ClientID == clientID && a.Specialist == specialist &&
			a.Date.Equal(date) && a.Start == start
	})
}

func (m *memStore) FindActiveBySpecialistOn(_ context.Context, projectID, clientID, specialist string, date time.Time) (*Appointment, error) {
	return m.find(func(a *Appointment) bool {
		return a.ProjectID == projectID && a.ClientID == clientID && a.Specialist == specialist && a.Date.Equal(date)
	})
}

func (m *memStore) LatestActiveBySpecialist(_ context.Context, projectID, clientID, specialist string) (*Appointment, error) {
	var latest *Appointment
	for _, a := range m.appts {
		if a.Status != StatusActive || a.ProjectID != projectID || a.ClientID != clientID || a.Specialist != specialist {
			continue
		}
		if latest == nil || a.Date.After(latest.Date) ||
			(a.Date.Equal(latest.Date) && a.Start.Minutes() > latest.Start.Minutes()) {
			latest = a
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (m *memStore) ListActive(_ context.Context, projectID, clientID string) ([]Appointment, error) {
	var out []Appointment
	for _, a := range m.appts {
		if a.Status == StatusActive && a.ProjectID == projectID && a.ClientID == clientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveOn(_ context.Context, projectID, clientID string, date time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range m.appts {
		if a.Status == StatusActive && a.ProjectID == projectID && a.ClientID == clientID && a.Date.Equal(date) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Minutes() < out[j].Start.Minutes() })
	return out, nil
}

func (m *memStore) Cancel(_ context.Context, id uuid.UUID) error {
	for _, a := range m.appts {
		if a.ID == id && a.Status == StatusActive {
			a.Status = StatusCancelled
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) UpdateSchedule(_ context.Context, updated *Appointment) error {
	for _, a := range m.appts {
		if a.ID == updated.ID && a.Status == StatusActive {
			*a = *updated
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) CountByStatus(_ context.Context, projectID string) (total, active, cancelled int, err error) {
	for _, a := range m.appts {
		if a.ProjectID != projectID {
			continue
		}
		total++
		switch a.Status {
		case StatusActive:
			active++
		case StatusCancelled:
			cancelled++
		}
	}
	return total, active, cancelled, nil
}

func (m *memStore) ActiveIntervals(_ context.Context, projectID, specialist string, date time.Time) ([]availability.Interval, error) {
	var out []availability.Interval
	for _, a := range m.appts {
		if a.Status == StatusActive && a.ProjectID == projectID && a.Specialist == specialist && a.Date.Equal(date) {
			out = append(out, availability.Interval{Start: a.Start, DurationMinutes: a.DurationMinutes})
		}
	}
	return out, nil
}

func (m *memStore) SaveFeedback(_ context.Context, _, _, text string) error {
	m.feedback = append(m.feedback, text)
	return nil
}

func (m *memStore) activeCount() int {
	n := 0
	for _, a := range m.appts {
		if a.Status == StatusActive {
			n++
		}
	}
	return n
}

// fakeFeed is a scriptable availability ledger.
type fakeFeed struct {
	// reserved maps "DD.MM.YYYY/specialist" to reserved slot starts.
	reserved map[string][]string

	checkErr   error
	reserveErr error

	snapshotCalls int
	// mutate runs once after mutateAfter snapshot reads, simulating a
	// concurrent writer.
	mutateAfter int
	mutate      func(f *fakeFeed)

	reserveCalls []availability.Reservation
	clearCalls   []string
	cancelLogs   []availability.CancellationRecord
	transferLogs []availability.TransferRecord
}

func feedKey(date time.Time, specialist string) string {
	return timeparse.FormatDate(date) + "/" + specialist
}

func (f *fakeFeed) markReserved(date time.Time, specialist string, slots ...string) {
	if f.reserved == nil {
		f.reserved = make(map[string][]string)
	}
	key := feedKey(date, specialist)
	f.reserved[key] = append(f.reserved[key], slots...)
}

func (f *fakeFeed) GetAvailableSlots(_ context.Context, date time.Time, _ int) (*availability.Snapshot, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	f.snapshotCalls++
	if f.mutate != nil && f.snapshotCalls > f.mutateAfter {
		f.mutate(f)
		f.mutate = nil
	}
	snap := &availability.Snapshot{
		Date:      date,
		Available: make(map[string][]string),
		Reserved:  make(map[string][]string),
	}
	prefix := timeparse.FormatDate(date) + "/"
	for key, slots := range f.reserved {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			snap.Reserved[key[len(prefix):]] = append([]string(nil), slots...)
		}
	}
	return snap, nil
}

func (f *fakeFeed) IsSlotAvailable(ctx context.Context, specialist string, date time.Time, start timeparse.TimeOfDay) (bool, error) {
	snap, err := f.GetAvailableSlots(ctx, date, 1)
	if err != nil {
		return false, err
	}
	return snap.SlotFree(specialist, start), nil
}

func (f *fakeFeed) Reserve(_ context.Context, res availability.Reservation) error {
	if f.reserveErr != nil {
		return f.reserveErr
	}
	f.reserveCalls = append(f.reserveCalls, res)
	for _, slot := range timeparse.SlotStarts(res.Start, res.DurationSlots, 30) {
		f.markReserved(res.Date, res.Specialist, slot.String())
	}
	return nil
}

func (f *fakeFeed) Clear(_ context.Context, specialist string, date time.Time, start timeparse.TimeOfDay, durationSlots int) error {
	f.clearCalls = append(f.clearCalls, fmt.Sprintf("%s/%s/%s", timeparse.FormatDate(date), specialist, start))
	if f.reserved == nil {
		f.reserved = make(map[string][]string)
	}
	key := feedKey(date, specialist)
	cleared := make(map[string]bool)
	for _, slot := range timeparse.SlotStarts(start, durationSlots, 30) {
		cleared[slot.String()] = true
	}
	var kept []string
	for _, slot := range f.reserved[key] {
		if !cleared[slot] {
			kept = append(kept, slot)
		}
	}
	f.reserved[key] = kept
	return nil
}

func (f *fakeFeed) LogCancellation(_ context.Context, rec availability.CancellationRecord) error {
	f.cancelLogs = append(f.cancelLogs, rec)
	return nil
}

func (f *fakeFeed) LogTransfer(_ context.Context, rec availability.TransferRecord) error {
	f.transferLogs = append(f.transferLogs, rec)
	return nil
}

// memQueue records sync fallbacks.
type memQueue struct {
	kinds []string
}

func (q *memQueue) Enqueue(_ context.Context, _ string, kind string, _ any) (uuid.UUID, error) {
	q.kinds = append(q.kinds, kind)
	return uuid.New(), nil
}

type testEnv struct {
	svc   *Service
	store *memStore
	feed  *fakeFeed
	sink  *reminders.MemorySink
	queue *memQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := &memStore{}
	feed := &fakeFeed{}
	sink := &reminders.MemorySink{}
	queue := &memQueue{}
	logger := logging.New("error")
	svc := NewService(ServiceDeps{
		Repo:      store,
		Feedback:  store,
		Checker:   availability.NewChecker(feed, store, logger),
		Feed:      feed,
		Reminders: sink,
		SyncQueue: queue,
		Logger:    logger,
	})
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }
	return &testEnv{svc: svc, store: store, feed: feed, sink: sink, queue: queue}
}

func testConfig() *projects.Config {
	return &projects.Config{
		ProjectID:       "proj-1",
		Specialists:     []string{"Olga", "Anna"},
		Services:        map[string]int{"manicure": 2, "pedicure": 3},
		SlotUnitMinutes: 30,
	}
}

func request(intent Intent) Request {
	return Request{
		ProjectID: "proj-1",
		ClientID:  "client-1",
		MessageID: "msg-1",
		Intent:    intent,
		Config:    testConfig(),
	}
}

var sept14 = time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

func seedAppointment(store *memStore, specialist string, date time.Time, start timeparse.TimeOfDay, durationMinutes int) *Appointment {
	a := &Appointment{
		ID:              uuid.New(),
		ProjectID:       "proj-1",
		ClientID:        "client-1",
		Specialist:      specialist,
		Date:            date,
		Start:           start,
		DurationMinutes: durationMinutes,
		Status:          StatusActive,
	}
	store.appts = append(store.appts, a)
	return a
}

func TestCreateSingle(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Process(context.Background(), request(Intent{
		Activate:   true,
		Specialist: "olga",
		TargetDate: "14.09",
		TargetTime: "11:00",
		Service:    "manicure",
		ClientName: "Iryna",
	}))

	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.Action != ActionActivate {
		t.Errorf("action = %q", res.Action)
	}
	if len(env.store.appts) != 1 {
		t.Fatalf("stored %d appointments", len(env.store.appts))
	}
	a := env.store.appts[0]
	if a.Specialist != "Olga" {
		t.Errorf("specialist = %q, want canonical Olga", a.Specialist)
	}
	if !a.Date.Equal(sept14) {
		t.Errorf("date = %v, want %v (current-year fill-in)", a.Date, sept14)
	}
	if a.DurationMinutes != 60 {
		t.Errorf("duration = %d, want 60 (two slots)", a.DurationMinutes)
	}
	if len(env.feed.reserveCalls) != 1 || env.feed.reserveCalls[0].DurationSlots != 2 {
		t.Errorf("reserve calls = %+v", env.feed.reserveCalls)
	}
	if len(env.sink.Sent) != 1 || env.sink.Sent[0].Time != "11:00" {
		t.Errorf("reminders = %+v", env.sink.Sent)
	}
}

func TestCreateSingleSlotTaken(t *testing.T) {
	env := newTestEnv(t)
	env.feed.markReserved(sept14, "Olga", "11:00")

	res := env.svc.Process(context.Background(), request(Intent{
		Activate: true, Specialist: "Olga", TargetDate: "14.09.2026", TargetTime: "11:00",
	}))

	if res.Success || res.Reason != ReasonConflict {
		t.Fatalf("result = %+v", res)
	}
	if len(env.store.appts) != 0 {
		t.Error("appointment stored despite conflict")
	}
}

func TestCreateSingleFeedDownFailsClosed(t *testing.T) {
	env := newTestEnv(t)
	env.feed.checkErr = errors.New("sheets 503")

	res := env.svc.Process(context.Background(), request(Intent{
		Activate: true, Specialist: "Olga", TargetDate: "14.09.2026", TargetTime: "11:00",
	}))

	if res.Success {
		t.Fatal("booked with the feed unreachable")
	}
	if res.Reason != ReasonError {
		t.Errorf("reason = %q", res.Reason)
	}
	if len(env.store.appts) != 0 {
		t.Error("appointment stored despite feed outage")
	}
}

func TestCreateSingleCollisionBetweenCheckAndWrite(t *testing.T) {
	env := newTestEnv(t)
	// A concurrent writer reserves the slot after the primary check.
	env.feed.mutateAfter = 1
	env.feed.mutate = func(f *fakeFeed) { f.markReserved(sept14, "Olga", "11:00") }

	res := env.svc.Process(context.Background(), request(Intent{
		Activate: true, Specialist: "Olga", TargetDate: "14.09.2026", TargetTime: "11:00",
	}))

	if res.Success || res.Reason != ReasonConflict {
		t.Fatalf("result = %+v", res)
	}
	if len(env.store.appts) != 0 {
		t.Error("appointment stored despite collision")
	}
}

func TestCreateSingleUnknownSpecialist(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Process(context.Background(), request(Intent{
		Activate: true, Specialist: "Kateryna", TargetDate: "14.09.2026", TargetTime: "11:00",
	}))

	if res.Success || res.Reason != ReasonValidation {
		t.Fatalf("result = %+v", res)
	}
}

func TestCreateSingleUnknownServiceKeepsPhrase(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Process(context.Background(), request(Intent{
		Activate:   true,
		Specialist: "Olga",
		TargetDate: "14.09.2026",
		TargetTime: "11:00",
		Service:    "gold facial ritual",
	}))

	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	a := env.store.appts[0]
	if a.Service != "gold facial ritual" {
		t.Errorf("service = %q, the client's wording must survive a failed match", a.Service)
	}
	if a.DurationMinutes != 30 {
		t.Errorf("duration = %d, want the one-slot fallback", a.DurationMinutes)
	}
}

func TestCreateSingleReserveFailureQueuesRetry(t *testing.T) {
	env := newTestEnv(t)
	env.feed.reserveErr = errors.New("append quota")

	res := env.svc.Process(context.Background(), request(Intent{
		Activate: true, Specialist: "Olga", TargetDate: "14.09.2026", TargetTime: "11:00",
	}))

	if !res.Success {
		t.Fatalf("post-commit ledger failure must not fail the action: %+v", res)
	}
	if len(env.queue.kinds) != 1 || env.queue.kinds[0] != "reserve" {
		t.Errorf("queued kinds = %v", env.queue.kinds)
	}
}

func TestCreateDoubleAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	env.feed.markReserved(sept14, "Anna", "14:00")

	res := env.svc.Process(context.Background(), request(Intent{
		Activate:    true,
		Double:      true,
		Specialists: []string{"Olga", "Anna"},
		TargetDate:  "14.09.2026",
		TargetTime:  "11:00",
	}))

	if res.Success || res.Reason != ReasonConflict {
		t.Fatalf("result = %+v", res)
	}
	if len(env.store.appts) != 0 {
		t.Errorf("stored %d appointments, want 0", len(env.store.appts))
	}
}

func TestCreateDoubleOffsetFallback(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Process(context.Background(), request(Intent{
		Activate:    true,
		Double:      true,
		Specialists: []string{"Olga", "Anna"},
		TargetDate:  "14.09.2026",
		TargetTime:  "11:00",
	}))

	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if len(env.store.appts) != 2 {
		t.Fatalf("stored %d appointments, want 2", len(env.store.appts))
	}
	if env.store.appts[0].Start.String() != "11:00" {
		t.Errorf("first leg at %s", env.store.appts[0].Start)
	}
	if env.store.appts[1].Start.String() != "14:00" {
		t.Errorf("second leg at %s, want the three-hour offset", env.store.appts[1].Start)
	}
}

func TestCreateDoubleTimesFromResponseText(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Process(context.Background(), request(Intent{
		Activate:     true,
		Double:       true,
		Specialists:  []string{"Olga", "Anna"},
		TargetDate:   "14.09.2026",
		ResponseText: "Чудово! 13.30 to Anna, 11:00 to Olga.",
	}))

	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	byName := map[string]string{}
	for _, a := range env.store.appts {
		byName[a.Specialist] = a.Start.String()
	}
	if byName["Olga"] != "11:00" || byName["Anna"] != "13:30" {
		t.Errorf("times = %v", byName)
	}
}

func TestCancelSingle(t *testing.T) {
	env := newTestEnv(t)
	appt := seedAppointment(env.store, "Olga", sept14, timeparse.TimeOfDay{Hour: 11}, 60)
	env.feed.markReserved(sept14, "Olga", "11:00", "11:30")

	res := env.svc.Process(context.Background(), request(Intent{
		Reject:     true,
		Specialist: "Olga",
		SourceDate: "14.09.2026",
		SourceTime: "11:00",
	}))

	if !res.Success || res.Action != ActionReject {
		t.Fatalf("result = %+v", res)
	}
	if appt.Status != StatusCancelled {
		t.Errorf("status = %q", appt.Status)
	}
	if len(env.feed.clearCalls) != 1 {
		t.Errorf("clear calls = %v", env.feed.clearCalls)
	}
	if len(env.feed.cancelLogs) != 1 || env.feed.cancelLogs[0].Specialist != "Olga" {
		t.Errorf("cancel logs = %+v", env.feed.cancelLogs)
	}
	if len(env.feed.reserved[feedKey(sept14, "Olga")]) != 0 {
		t.Errorf("slots still reserved: %v", env.feed.reserved)
	}
}

func TestCancelSingleNotFound(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Process(context.Background(), request(Intent{
		Reject:     true,
		SourceDate: "14.09.2026",
		SourceTime: "11:00",
	}))

	if res.Success || res.Reason != ReasonNotFound {
		t.Fatalf("result = %+v", res)
	}
}

func TestRescheduleSingle(t *testing.T) {
	env := newTestEnv(t)
	appt := seedAppointment(env.store, "Olga", sept14, timeparse.TimeOfDay{Hour: 11}, 60)
	env.feed.markReserved(sept14, "Olga", "11:00", "11:30")

	res := env.svc.Process(context.Background(), request(Intent{
		Change:     true,
		Specialist: "Olga",
		SourceDate: "14.09.2026",
		SourceTime: "11:00",
		TargetDate: "14.09.2026",
		TargetTime: "15:00",
	}))

	if !res.Success || res.Action != ActionChange {
		t.Fatalf("result = %+v", res)
	}
	if appt.Start.String() != "15:00" {
		t.Errorf("start = %s", appt.Start)
	}
	if appt.Status != StatusActive {
		t.Errorf("status = %q, reschedule must not create or cancel rows", appt.Status)
	}
	if len(env.store.appts) != 1 {
		t.Errorf("rows = %d, want 1", len(env.store.appts))
	}
	if len(env.feed.transferLogs) != 1 {
		t.Fatalf("transfer logs = %+v", env.feed.transferLogs)
	}
	rec := env.feed.transferLogs[0]
	if rec.OldStart.String() != "11:00" || rec.NewStart.String() != "15:00" {
		t.Errorf("transfer record = %+v", rec)
	}
}

func TestRescheduleBulkTransfer(t *testing.T) {
	env := newTestEnv(t)
	seedAppointment(env.store, "Olga", sept14, timeparse.TimeOfDay{Hour: 11}, 30)
	seedAppointment(env.store, "Anna", sept14, timeparse.TimeOfDay{Hour: 14}, 30)
	target := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	// Anna's slot is taken on the target date; only Olga's leg moves.
	env.feed.markReserved(target, "Anna", "14:00")

	res := env.svc.Process(context.Background(), request(Intent{
		Change:     true,
		SourceDate: "14.09.2026",
		TargetDate: "20.09.2026",
	}))

	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if !res.Partial {
		t.Error("expected a partial transfer")
	}
	if len(res.BookingIDs) != 1 {
		t.Errorf("moved %d bookings, want 1", len(res.BookingIDs))
	}
	if len(res.Details) != 2 {
		t.Errorf("details = %v", res.Details)
	}

	moved, err := env.store.FindActiveBySpecialistOn(context.Background(), "proj-1", "client-1", "Olga", target)
	if err != nil {
		t.Fatalf("Olga's booking not on target date: %v", err)
	}
	if moved.Start.String() != "11:00" {
		t.Errorf("moved start = %s, times are kept on transfer", moved.Start)
	}
	if _, err := env.store.FindActiveBySpecialistOn(context.Background(), "proj-1", "client-1", "Anna", sept14); err != nil {
		t.Errorf("Anna's booking should stay on the source date: %v", err)
	}
}

func TestRescheduleConflictKeepsOriginal(t *testing.T) {
	env := newTestEnv(t)
	appt := seedAppointment(env.store, "Olga", sept14, timeparse.TimeOfDay{Hour: 11}, 60)
	env.feed.markReserved(sept14, "Olga", "11:00", "11:30", "15:00")

	res := env.svc.Process(context.Background(), request(Intent{
		Change:     true,
		Specialist: "Olga",
		SourceDate: "14.09.2026",
		SourceTime: "11:00",
		TargetDate: "14.09.2026",
		TargetTime: "15:00",
	}))

	if res.Success || res.Reason != ReasonConflict {
		t.Fatalf("result = %+v", res)
	}
	if appt.Start.String() != "11:00" || appt.Status != StatusActive {
		t.Errorf("original booking touched: %+v", appt)
	}
	if len(env.feed.clearCalls) != 0 || len(env.feed.reserveCalls) != 0 {
		t.Errorf("ledger writes on a failed move: clears=%v reserves=%v",
			env.feed.clearCalls, env.feed.reserveCalls)
	}
	if len(env.feed.transferLogs) != 0 {
		t.Errorf("transfer logged on a failed move: %+v", env.feed.transferLogs)
	}
}

func TestRescheduleDoubleNoSourceDateUsesLatest(t *testing.T) {
	env := newTestEnv(t)
	olga := seedAppointment(env.store, "Olga", sept14, timeparse.TimeOfDay{Hour: 11}, 30)
	anna := seedAppointment(env.store, "Anna", sept14, timeparse.TimeOfDay{Hour: 14, Minute: 30}, 30)
	target := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)

	res := env.svc.Process(context.Background(), request(Intent{
		Change:      true,
		Double:      true,
		Specialists: []string{"Olga", "Anna"},
		TargetDate:  "20.09.2026",
		Times:       []string{"12:00", "13:00"},
	}))

	if !res.Success || res.Partial {
		t.Fatalf("result = %+v", res)
	}
	if !olga.Date.Equal(target) || olga.Start.String() != "12:00" {
		t.Errorf("Olga's leg = %s %s", timeparse.FormatDate(olga.Date), olga.Start)
	}
	if !anna.Date.Equal(target) || anna.Start.String() != "13:00" {
		t.Errorf("Anna's leg = %s %s", timeparse.FormatDate(anna.Date), anna.Start)
	}
}

func TestRescheduleDoubleSharedTargetTime(t *testing.T) {
	env := newTestEnv(t)
	olga := seedAppointment(env.store, "Olga", sept14, timeparse.TimeOfDay{Hour: 11}, 30)
	anna := seedAppointment(env.store, "Anna", sept14, timeparse.TimeOfDay{Hour: 14, Minute: 30}, 30)

	res := env.svc.Process(context.Background(), request(Intent{
		Change:      true,
		Double:      true,
		Specialists: []string{"Olga", "Anna"},
		SourceDate:  "14.09.2026",
		TargetDate:  "20.09.2026",
		TargetTime:  "15:00",
	}))

	if !res.Success || res.Partial {
		t.Fatalf("result = %+v", res)
	}
	if olga.Start.String() != "15:00" {
		t.Errorf("Olga's leg at %s", olga.Start)
	}
	if anna.Start.String() != "15:00" {
		t.Errorf("Anna's leg at %s, a shared time moves both legs as given", anna.Start)
	}
}

func TestRescheduleDoubleKeepsOwnTimes(t *testing.T) {
	env := newTestEnv(t)
	olga := seedAppointment(env.store, "Olga", sept14, timeparse.TimeOfDay{Hour: 11}, 30)
	anna := seedAppointment(env.store, "Anna", sept14, timeparse.TimeOfDay{Hour: 14, Minute: 30}, 30)
	target := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)

	res := env.svc.Process(context.Background(), request(Intent{
		Change:      true,
		Double:      true,
		Specialists: []string{"Olga", "Anna"},
		SourceDate:  "14.09.2026",
		TargetDate:  "20.09.2026",
	}))

	if !res.Success || res.Partial {
		t.Fatalf("result = %+v", res)
	}
	if !olga.Date.Equal(target) || olga.Start.String() != "11:00" {
		t.Errorf("Olga's leg = %s %s", timeparse.FormatDate(olga.Date), olga.Start)
	}
	if !anna.Date.Equal(target) || anna.Start.String() != "14:30" {
		t.Errorf("Anna's leg = %s %s", timeparse.FormatDate(anna.Date), anna.Start)
	}
}

func TestCancelDoublePartial(t *testing.T) {
	env := newTestEnv(t)
	seedAppointment(env.store, "Olga", sept14, timeparse.TimeOfDay{Hour: 11}, 30)
	// No booking with Anna.

	res := env.svc.Process(context.Background(), request(Intent{
		Reject:      true,
		Double:      true,
		Specialists: []string{"Olga", "Anna"},
		SourceDate:  "14.09.2026",
		SourceTimes: []string{"11:00", "14:00"},
	}))

	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if !res.Partial {
		t.Error("expected partial")
	}
	if len(res.BookingIDs) != 1 || len(res.Details) != 2 {
		t.Errorf("ids = %v, details = %v", res.BookingIDs, res.Details)
	}
	if env.store.activeCount() != 0 {
		t.Errorf("active = %d, want 0", env.store.activeCount())
	}
}

func TestProcessNoOpIntent(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Process(context.Background(), request(Intent{ResponseText: "just chatting"}))
	if !res.Success || res.Action != ActionNone {
		t.Fatalf("result = %+v", res)
	}
}

func TestProcessSavesFeedback(t *testing.T) {
	env := newTestEnv(t)

	env.svc.Process(context.Background(), request(Intent{Feedback: "the bot is lovely"}))
	if len(env.store.feedback) != 1 || env.store.feedback[0] != "the bot is lovely" {
		t.Errorf("feedback = %v", env.store.feedback)
	}
}

func TestProcessRecoversFromPanic(t *testing.T) {
	env := newTestEnv(t)
	env.store.panicOnInsert = true

	res := env.svc.Process(context.Background(), request(Intent{
		Activate: true, Specialist: "Olga", TargetDate: "14.09.2026", TargetTime: "11:00",
	}))

	if res.Success || res.Action != ActionError || res.Reason != ReasonError {
		t.Fatalf("result = %+v", res)
	}
}

func TestFormatBookings(t *testing.T) {
	if got := FormatBookings(nil); got != "no active bookings" {
		t.Errorf("empty summary = %q", got)
	}

	got := FormatBookings([]Appointment{
		{Specialist: "Olga", Date: sept14, Start: timeparse.TimeOfDay{Hour: 11}, Service: "manicure"},
		{Specialist: "Anna", Date: sept14, Start: timeparse.TimeOfDay{Hour: 14, Minute: 30}},
	})
	want := "14.09.2026 at 11:00 with Olga (manicure); 14.09.2026 at 14:30 with Anna"
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestProjectStats(t *testing.T) {
	env := newTestEnv(t)
	seedAppointment(env.store, "Olga", sept14, timeparse.TimeOfDay{Hour: 11}, 30)
	cancelled := seedAppointment(env.store, "Anna", sept14, timeparse.TimeOfDay{Hour: 12}, 30)
	cancelled.Status = StatusCancelled

	stats, err := env.svc.ProjectStats(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ProjectStats: %v", err)
	}
	if stats.Total != 2 || stats.Active != 1 || stats.Cancelled != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
