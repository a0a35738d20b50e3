// Package availability decides whether a specialist's time slot can be
// booked. The external schedule ledger is authoritative; the local store is
// consulted only as an advisory cross-check.
package availability

import (
	"context"
	"time"

	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
)

// Snapshot is a point-in-time read of the external ledger for one date. It
// can be stale by the time a write happens, which is why creates re-check the
// reserved sets immediately before committing.
type Snapshot struct {
	Date time.Time
	// Available maps specialist name to the slot start-times currently free.
	Available map[string][]string
	// Reserved maps specialist name to the slot start-times currently taken.
	Reserved map[string][]string
}

// IsReserved reports whether the start-time appears in the specialist's
// reserved set.
func (s *Snapshot) IsReserved(specialist string, start timeparse.TimeOfDay) bool {
	if s == nil {
		return false
	}
	want := start.String()
	for _, slot := range s.Reserved[specialist] {
		if slot == want {
			return true
		}
	}
	return false
}

// ListsAvailable reports whether the specialist has a non-empty available
// set. Providers populate the two sets inconsistently; an empty available set
// means "no data", not "nothing free".
func (s *Snapshot) ListsAvailable(specialist string) bool {
	return s != nil && len(s.Available[specialist]) > 0
}

// IsListedAvailable reports whether the start-time appears in the
// specialist's available set.
func (s *Snapshot) IsListedAvailable(specialist string, start timeparse.TimeOfDay) bool {
	if s == nil {
		return false
	}
	want := start.String()
	for _, slot := range s.Available[specialist] {
		if slot == want {
			return true
		}
	}
	return false
}

// SlotFree applies the booking policy to a snapshot: a slot is taken when it
// appears in the reserved set, or when the available set is populated but
// does not list it. An empty available set with no reservation counts as
// free, tolerating ledgers that only maintain the reserved side.
func (s *Snapshot) SlotFree(specialist string, start timeparse.TimeOfDay) bool {
	if s == nil {
		return false
	}
	if s.IsReserved(specialist, start) {
		return false
	}
	if s.ListsAvailable(specialist) && !s.IsListedAvailable(specialist, start) {
		return false
	}
	return true
}

// Reservation describes a slot write to the external ledger.
type Reservation struct {
	Specialist    string
	Date          time.Time
	Start         timeparse.TimeOfDay
	DurationSlots int
	ClientID      string
	ClientName    string
	ClientPhone   string
	Service       string
}

// CancellationRecord is appended to the ledger's cancellation log.
type CancellationRecord struct {
	Date       time.Time
	Start      timeparse.TimeOfDay
	ClientID   string
	ClientName string
	Service    string
	Specialist string
}

// TransferRecord is appended to the ledger's transfer log.
type TransferRecord struct {
	OldDate       time.Time
	OldStart      timeparse.TimeOfDay
	NewDate       time.Time
	NewStart      timeparse.TimeOfDay
	ClientID      string
	ClientName    string
	Service       string
	OldSpecialist string
	NewSpecialist string
}

// Feed is the externally owned availability ledger. Every method is fallible;
// callers must treat errors as "unknown", never as "available".
type Feed interface {
	// GetAvailableSlots fetches the snapshot for a date and duration window.
	GetAvailableSlots(ctx context.Context, date time.Time, durationSlots int) (*Snapshot, error)
	// IsSlotAvailable checks a single start-time for a specialist.
	IsSlotAvailable(ctx context.Context, specialist string, date time.Time, start timeparse.TimeOfDay) (bool, error)
	// Reserve writes a booking into the ledger's schedule grid.
	Reserve(ctx context.Context, res Reservation) error
	// Clear frees previously reserved slots.
	Clear(ctx context.Context, specialist string, date time.Time, start timeparse.TimeOfDay, durationSlots int) error
	// LogCancellation appends to the cancellation log sheet.
	LogCancellation(ctx context.Context, rec CancellationRecord) error
	// LogTransfer appends to the transfer log sheet.
	LogTransfer(ctx context.Context, rec TransferRecord) error
}
