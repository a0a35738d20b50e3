package feedsync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/ds0903/cosmetology-bot-backend/internal/availability"
	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return newStoreWithDB(mock), mock
}

func TestStoreEnqueue(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO feed_sync_outbox").
		WithArgs(pgxmock.AnyArg(), "proj-1", KindReserve, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.Enqueue(context.Background(), "proj-1", KindReserve, availability.Reservation{
		Specialist: "Olga",
		Start:      timeparse.TimeOfDay{Hour: 11},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id == uuid.Nil {
		t.Error("expected non-nil id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStoreFetchPending(t *testing.T) {
	store, mock := newMockStore(t)

	id := uuid.New()
	payload := []byte(`{"specialist":"Olga"}`)
	mock.ExpectQuery("SELECT id, project_id, kind, payload, attempts, created_at").
		WithArgs(int32(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "project_id", "kind", "payload", "attempts", "created_at"}).
			AddRow(id, "proj-1", KindReserve, payload, 2, time.Now()))

	entries, err := store.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchPending: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || entries[0].Attempts != 2 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestStoreMarkDelivered(t *testing.T) {
	store, mock := newMockStore(t)

	id := uuid.New()
	mock.ExpectExec("UPDATE feed_sync_outbox").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if !ok {
		t.Error("expected delivered=true")
	}
}

type recordingFeed struct {
	reserved  []availability.Reservation
	cleared   []ClearOp
	transfers []availability.TransferRecord
	err       error
}

func (f *recordingFeed) GetAvailableSlots(context.Context, time.Time, int) (*availability.Snapshot, error) {
	return &availability.Snapshot{}, nil
}

func (f *recordingFeed) IsSlotAvailable(context.Context, string, time.Time, timeparse.TimeOfDay) (bool, error) {
	return true, nil
}

func (f *recordingFeed) Reserve(_ context.Context, res availability.Reservation) error {
	if f.err != nil {
		return f.err
	}
	f.reserved = append(f.reserved, res)
	return nil
}

func (f *recordingFeed) Clear(_ context.Context, specialist string, date time.Time, start timeparse.TimeOfDay, durationSlots int) error {
	f.cleared = append(f.cleared, ClearOp{Specialist: specialist, Date: date, Start: start, DurationSlots: durationSlots})
	return nil
}

func (f *recordingFeed) LogCancellation(context.Context, availability.CancellationRecord) error {
	return nil
}

func (f *recordingFeed) LogTransfer(_ context.Context, rec availability.TransferRecord) error {
	f.transfers = append(f.transfers, rec)
	return nil
}

func TestApplierReplaysReserve(t *testing.T) {
	feed := &recordingFeed{}
	applier := NewApplier(feed)

	payload, _ := json.Marshal(availability.Reservation{
		Specialist:    "Olga",
		Start:         timeparse.TimeOfDay{Hour: 11},
		DurationSlots: 2,
	})
	err := applier.Handle(context.Background(), Entry{Kind: KindReserve, Payload: payload})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(feed.reserved) != 1 || feed.reserved[0].Specialist != "Olga" {
		t.Errorf("reserved = %+v", feed.reserved)
	}
}

func TestApplierReplaysClear(t *testing.T) {
	feed := &recordingFeed{}
	applier := NewApplier(feed)

	payload, _ := json.Marshal(ClearOp{
		Specialist:    "Anna",
		Start:         timeparse.TimeOfDay{Hour: 14, Minute: 30},
		DurationSlots: 1,
	})
	if err := applier.Handle(context.Background(), Entry{Kind: KindClear, Payload: payload}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(feed.cleared) != 1 || feed.cleared[0].Start.String() != "14:30" {
		t.Errorf("cleared = %+v", feed.cleared)
	}
}

func TestApplierUnknownKind(t *testing.T) {
	applier := NewApplier(&recordingFeed{})
	if err := applier.Handle(context.Background(), Entry{Kind: "nonsense"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestApplierPropagatesFeedError(t *testing.T) {
	feed := &recordingFeed{err: errors.New("quota exceeded")}
	applier := NewApplier(feed)

	payload, _ := json.Marshal(availability.Reservation{Specialist: "Olga"})
	if err := applier.Handle(context.Background(), Entry{Kind: KindReserve, Payload: payload}); err == nil {
		t.Fatal("expected feed error to propagate")
	}
}
