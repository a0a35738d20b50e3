package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

var (
	// ErrFeedUnavailable marks a failed read of the external ledger. The
	// check fails closed: an unreachable ledger is never treated as free.
	ErrFeedUnavailable = errors.New("availability: external feed unavailable")

	// ErrSlotCollision is returned by the final re-check when a slot became
	// reserved between the primary check and the write.
	ErrSlotCollision = errors.New("availability: slot became reserved")
)

// Interval is an occupied stretch of a specialist's day in the local store.
// Durations stay in minutes so the checker can quantize them with whatever
// slot unit the project runs on.
type Interval struct {
	Start           timeparse.TimeOfDay
	DurationMinutes int
}

// LocalLedger is the advisory view over locally persisted bookings.
type LocalLedger interface {
	ActiveIntervals(ctx context.Context, projectID, specialist string, date time.Time) ([]Interval, error)
}

// CheckRequest identifies the slot being validated.
type CheckRequest struct {
	ProjectID       string
	Specialist      string
	Date            time.Time
	Start           timeparse.TimeOfDay
	DurationSlots   int
	SlotUnitMinutes int
}

// Checker validates slots against the external feed first and the local
// store second.
type Checker struct {
	feed   Feed
	local  LocalLedger
	logger *logging.Logger
}

// NewChecker wires a checker around the feed and the local ledger.
func NewChecker(feed Feed, local LocalLedger, logger *logging.Logger) *Checker {
	if feed == nil {
		panic("availability: feed required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Checker{feed: feed, local: local, logger: logger}
}

// IsAvailable runs the two-pass check. The external feed is authoritative:
// when the local store disagrees (feed says free, store says busy) the feed
// wins and the disagreement is logged. A feed error fails the check closed.
func (c *Checker) IsAvailable(ctx context.Context, req CheckRequest) (bool, error) {
	free, err := c.feed.IsSlotAvailable(ctx, req.Specialist, req.Date, req.Start)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	if !free {
		return false, nil
	}

	if c.local == nil {
		return true, nil
	}

	busy, err := c.localConflict(ctx, req)
	if err != nil {
		// The local store is advisory only; a failed read does not block.
		c.logger.Warn("local availability cross-check failed",
			"specialist", req.Specialist, "date", timeparse.FormatDate(req.Date), "error", err)
		return true, nil
	}
	if busy {
		c.logger.Info("local store disagrees with feed, feed wins",
			"specialist", req.Specialist,
			"date", timeparse.FormatDate(req.Date),
			"time", req.Start.String())
	}
	return true, nil
}

// Snapshot fetches the feed's view for a date and duration window.
func (c *Checker) Snapshot(ctx context.Context, date time.Time, durationSlots int) (*Snapshot, error) {
	snap, err := c.feed.GetAvailableSlots(ctx, date, durationSlots)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	return snap, nil
}

// FinalCollisionCheck re-reads a snapshot's reserved set for every slot the
// new booking would occupy. Taken slots abort the write. This is best-effort
// optimism, not a lock: two concurrent requests can still both pass.
func (c *Checker) FinalCollisionCheck(snap *Snapshot, specialist string, start timeparse.TimeOfDay, durationSlots, slotUnitMinutes int) error {
	for _, slot := range timeparse.SlotStarts(start, durationSlots, slotUnitMinutes) {
		if snap.IsReserved(specialist, slot) {
			return fmt.Errorf("%w: %s at %s", ErrSlotCollision, specialist, slot)
		}
	}
	return nil
}

func (c *Checker) localConflict(ctx context.Context, req CheckRequest) (bool, error) {
	intervals, err := c.local.ActiveIntervals(ctx, req.ProjectID, req.Specialist, req.Date)
	if err != nil {
		return false, err
	}

	wanted := make(map[timeparse.TimeOfDay]struct{})
	for _, slot := range timeparse.SlotStarts(req.Start, req.DurationSlots, req.SlotUnitMinutes) {
		wanted[slot] = struct{}{}
	}

	for _, iv := range intervals {
		slots := iv.DurationMinutes / req.SlotUnitMinutes
		if slots < 1 {
			slots = 1
		}
		for _, slot := range timeparse.SlotStarts(iv.Start, slots, req.SlotUnitMinutes) {
			if _, taken := wanted[slot]; taken {
				return true, nil
			}
		}
	}
	return false, nil
}
