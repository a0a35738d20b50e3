// Package sheets implements the availability feed on top of a Google
// Sheets spreadsheet. The spreadsheet is the scheduling source of truth;
// the relational store only mirrors it.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/ds0903/cosmetology-bot-backend/internal/availability"
	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

// Row statuses recorded in the schedule range. The range is append-only;
// the last row for a (date, specialist, time) key wins.
const (
	statusAvailable = "available"
	statusReserved  = "reserved"
	statusFree      = "free"
)

const (
	cancellationsRange = "Cancellations!A:G"
	transfersRange     = "Transfers!A:I"
)

// Client reads and writes the scheduling spreadsheet.
type Client struct {
	svc             *sheetsapi.Service
	spreadsheetID   string
	scheduleRange   string
	slotUnitMinutes int
	timeout         time.Duration
	logger          *logging.Logger
}

var _ availability.Feed = (*Client)(nil)

// NewClient wraps an authenticated Sheets service.
func NewClient(svc *sheetsapi.Service, spreadsheetID, scheduleRange string, slotUnitMinutes int, timeout time.Duration, logger *logging.Logger) *Client {
	if svc == nil {
		panic("sheets: service cannot be nil")
	}
	if spreadsheetID == "" {
		panic("sheets: spreadsheet ID cannot be empty")
	}
	if scheduleRange == "" {
		scheduleRange = "Schedule!A:E"
	}
	if slotUnitMinutes <= 0 {
		slotUnitMinutes = 30
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		svc:             svc,
		spreadsheetID:   spreadsheetID,
		scheduleRange:   scheduleRange,
		slotUnitMinutes: slotUnitMinutes,
		timeout:         timeout,
		logger:          logger,
	}
}

// GetAvailableSlots builds the availability snapshot for one date across
// all specialists. The duration window only matters to callers; the full
// per-date grid is returned either way.
func (c *Client) GetAvailableSlots(ctx context.Context, date time.Time, _ int) (*availability.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.scheduleRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read schedule range: %w", err)
	}

	dateKey := timeparse.FormatDate(date)
	snap := &availability.Snapshot{
		Date:      date,
		Available: make(map[string][]string),
		Reserved:  make(map[string][]string),
	}

	type slotKey struct{ specialist, slot string }
	state := make(map[slotKey]string)
	var order []slotKey
	for _, row := range resp.Values {
		rec, ok := parseScheduleRow(row)
		if !ok || rec.date != dateKey {
			continue
		}
		k := slotKey{rec.specialist, rec.slot}
		if _, seen := state[k]; !seen {
			order = append(order, k)
		}
		state[k] = rec.status
	}

	for _, k := range order {
		switch state[k] {
		case statusAvailable, statusFree:
			snap.Available[k.specialist] = append(snap.Available[k.specialist], k.slot)
		case statusReserved:
			snap.Reserved[k.specialist] = append(snap.Reserved[k.specialist], k.slot)
		}
	}
	return snap, nil
}

// IsSlotAvailable applies the snapshot slot policy for one (specialist,
// time) pair.
func (c *Client) IsSlotAvailable(ctx context.Context, specialist string, date time.Time, start timeparse.TimeOfDay) (bool, error) {
	snap, err := c.GetAvailableSlots(ctx, date, 1)
	if err != nil {
		return false, err
	}
	return snap.SlotFree(specialist, start), nil
}

// Reserve marks every slot start the booking occupies as taken.
func (c *Client) Reserve(ctx context.Context, res availability.Reservation) error {
	slots := timeparse.SlotStarts(res.Start, res.DurationSlots, c.slotUnitMinutes)
	rows := make([][]any, 0, len(slots))
	for _, slot := range slots {
		rows = append(rows, []any{
			timeparse.FormatDate(res.Date),
			res.Specialist,
			slot.String(),
			statusReserved,
			res.ClientID,
		})
	}
	if err := c.appendRows(ctx, c.scheduleRange, rows); err != nil {
		return fmt.Errorf("sheets: reserve slots: %w", err)
	}
	c.logger.Debug("reserved slots in feed",
		"specialist", res.Specialist, "date", timeparse.FormatDate(res.Date), "slots", len(rows))
	return nil
}

// Clear releases previously reserved slot starts.
func (c *Client) Clear(ctx context.Context, specialist string, date time.Time, start timeparse.TimeOfDay, durationSlots int) error {
	slots := timeparse.SlotStarts(start, durationSlots, c.slotUnitMinutes)
	rows := make([][]any, 0, len(slots))
	for _, slot := range slots {
		rows = append(rows, []any{
			timeparse.FormatDate(date),
			specialist,
			slot.String(),
			statusFree,
			"",
		})
	}
	if err := c.appendRows(ctx, c.scheduleRange, rows); err != nil {
		return fmt.Errorf("sheets: clear slots: %w", err)
	}
	return nil
}

// LogCancellation appends an audit row for a cancelled appointment.
func (c *Client) LogCancellation(ctx context.Context, rec availability.CancellationRecord) error {
	row := []any{
		timeparse.FormatDateShort(rec.Date),
		timeparse.FormatDate(rec.Date),
		rec.Start.String(),
		rec.Specialist,
		rec.Service,
		rec.ClientID,
		rec.ClientName,
	}
	if err := c.appendRows(ctx, cancellationsRange, [][]any{row}); err != nil {
		return fmt.Errorf("sheets: log cancellation: %w", err)
	}
	return nil
}

// LogTransfer appends an audit row for a rescheduled appointment.
func (c *Client) LogTransfer(ctx context.Context, rec availability.TransferRecord) error {
	row := []any{
		timeparse.FormatDateShort(rec.OldDate),
		rec.OldStart.String(),
		timeparse.FormatDateShort(rec.NewDate),
		timeparse.FormatDate(rec.NewDate),
		rec.NewStart.String(),
		rec.OldSpecialist,
		rec.NewSpecialist,
		rec.ClientID,
		rec.ClientName,
	}
	if err := c.appendRows(ctx, transfersRange, [][]any{row}); err != nil {
		return fmt.Errorf("sheets: log transfer: %w", err)
	}
	return nil
}

func (c *Client) appendRows(ctx context.Context, rang string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vr := &sheetsapi.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rang, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

type scheduleRow struct {
	date       string
	specialist string
	slot       string
	status     string
}

func parseScheduleRow(row []any) (scheduleRow, bool) {
	if len(row) < 4 {
		return scheduleRow{}, false
	}
	rec := scheduleRow{
		date:       cellString(row[0]),
		specialist: cellString(row[1]),
		slot:       cellString(row[2]),
		status:     strings.ToLower(cellString(row[3])),
	}
	if rec.date == "" || rec.specialist == "" || rec.slot == "" {
		return scheduleRow{}, false
	}
	if t, ok := timeparse.ParseTime(rec.slot); ok {
		rec.slot = t.String()
	}
	return rec, true
}

func cellString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
