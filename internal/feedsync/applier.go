package feedsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ds0903/cosmetology-bot-backend/internal/availability"
	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
)

// ClearOp is the payload for KindClear entries; the other kinds reuse the
// availability record types directly.
type ClearOp struct {
	Specialist    string              `json:"specialist"`
	Date          time.Time           `json:"date"`
	Start         timeparse.TimeOfDay `json:"start"`
	DurationSlots int                 `json:"duration_slots"`
}

// Applier replays outbox entries against the live ledger.
type Applier struct {
	feed availability.Feed
}

var _ Handler = (*Applier)(nil)

func NewApplier(feed availability.Feed) *Applier {
	if feed == nil {
		panic("feedsync: feed required")
	}
	return &Applier{feed: feed}
}

func (a *Applier) Handle(ctx context.Context, entry Entry) error {
	switch entry.Kind {
	case KindReserve:
		var res availability.Reservation
		if err := json.Unmarshal(entry.Payload, &res); err != nil {
			return fmt.Errorf("feedsync: decode reserve payload: %w", err)
		}
		return a.feed.Reserve(ctx, res)
	case KindClear:
		var op ClearOp
		if err := json.Unmarshal(entry.Payload, &op); err != nil {
			return fmt.Errorf("feedsync: decode clear payload: %w", err)
		}
		return a.feed.Clear(ctx, op.Specialist, op.Date, op.Start, op.DurationSlots)
	case KindLogCancellation:
		var rec availability.CancellationRecord
		if err := json.Unmarshal(entry.Payload, &rec); err != nil {
			return fmt.Errorf("feedsync: decode cancellation payload: %w", err)
		}
		return a.feed.LogCancellation(ctx, rec)
	case KindLogTransfer:
		var rec availability.TransferRecord
		if err := json.Unmarshal(entry.Payload, &rec); err != nil {
			return fmt.Errorf("feedsync: decode transfer payload: %w", err)
		}
		return a.feed.LogTransfer(ctx, rec)
	default:
		return fmt.Errorf("feedsync: unknown entry kind %q", entry.Kind)
	}
}
