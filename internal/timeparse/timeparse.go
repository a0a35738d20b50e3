// Package timeparse normalizes the date and time strings that arrive from the
// NLU layer. Parsers never panic and never return errors; an unparsable input
// yields ok=false and callers treat it as a validation failure.
package timeparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time with minute precision, the granularity the
// schedule ledger works in.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String renders the canonical HH:MM form used in the availability feed.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Add returns the time shifted forward by the given number of minutes.
// Results are clamped within a single day; the schedule never crosses
// midnight.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	total := t.Minutes() + minutes
	if total < 0 {
		total = 0
	}
	if total > 23*60+59 {
		total = 23*60 + 59
	}
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

// FromMinutes builds a TimeOfDay from minutes since midnight.
func FromMinutes(minutes int) TimeOfDay {
	if minutes < 0 {
		minutes = 0
	}
	return TimeOfDay{Hour: (minutes / 60) % 24, Minute: minutes % 60}
}

// ParseDate accepts DD.MM.YYYY, DD.MM (current calendar year), YYYY-MM-DD and
// DD/MM/YYYY. The returned date is midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	return ParseDateAt(s, time.Now().UTC())
}

// ParseDateAt is ParseDate with an explicit reference time for the DD.MM
// year default. Two-part dates always resolve to the reference's calendar
// year, never to the nearest upcoming occurrence.
func ParseDateAt(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	switch {
	case strings.Contains(s, "."):
		parts := strings.Split(s, ".")
		switch len(parts) {
		case 3:
			return parseDMY(parts[0], parts[1], parts[2])
		case 2:
			return parseDMY(parts[0], parts[1], strconv.Itoa(now.Year()))
		}
	case strings.Contains(s, "-"):
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t.UTC(), true
		}
	case strings.Contains(s, "/"):
		parts := strings.Split(s, "/")
		if len(parts) == 3 {
			return parseDMY(parts[0], parts[1], parts[2])
		}
	}
	return time.Time{}, false
}

func parseDMY(dayStr, monthStr, yearStr string) (time.Time, bool) {
	day, err := strconv.Atoi(strings.TrimSpace(dayStr))
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(strings.TrimSpace(monthStr))
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflows like 31.02; reject those.
	if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// ParseTime accepts HH:MM, with HH.MM tolerated as an alias.
func ParseTime(s string) (TimeOfDay, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeOfDay{}, false
	}
	s = strings.Replace(s, ".", ":", 1)

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, false
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return TimeOfDay{}, false
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return TimeOfDay{}, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, false
	}
	return TimeOfDay{Hour: hour, Minute: minute}, true
}

// SlotStarts expands a booking of durationSlots units starting at start into
// the list of slot start-times it occupies on the schedule grid.
func SlotStarts(start TimeOfDay, durationSlots, slotUnitMinutes int) []TimeOfDay {
	if durationSlots < 1 {
		durationSlots = 1
	}
	starts := make([]TimeOfDay, 0, durationSlots)
	for i := 0; i < durationSlots; i++ {
		starts = append(starts, start.Add(i*slotUnitMinutes))
	}
	return starts
}

// FormatDate renders the DD.MM.YYYY form used by the availability feed.
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatDateShort renders the DD.MM form used in the feed's log sheets.
func FormatDateShort(t time.Time) string {
	return t.Format("02.01")
}
