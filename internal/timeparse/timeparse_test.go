package timeparse

import (
	"testing"
	"time"
)

func TestParseDateFormats(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	want := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in string
		ok bool
	}{
		{"05.03.2025", true},
		{"05.03", true},
		{"2025-03-05", true},
		{"05/03/2025", true},
		{"13/13/2025", false},
		{"31.02.2025", false},
		{"not-a-date", false},
		{"", false},
	}

	for _, tt := range tests {
		got, ok := ParseDateAt(tt.in, now)
		if ok != tt.ok {
			t.Fatalf("ParseDateAt(%q) ok=%v, want %v", tt.in, ok, tt.ok)
		}
		if ok && !got.Equal(want) {
			t.Fatalf("ParseDateAt(%q) = %s, want %s", tt.in, got, want)
		}
	}
}

func TestParseDateUsesReferenceYearNotNearest(t *testing.T) {
	// Even in December, "05.03" resolves to the current year, not the next
	// occurrence of March 5.
	now := time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC)
	got, ok := ParseDateAt("05.03", now)
	if !ok {
		t.Fatal("expected 05.03 to parse")
	}
	if got.Year() != 2025 {
		t.Fatalf("expected year 2025, got %d", got.Year())
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
		ok   bool
	}{
		{"11:00", TimeOfDay{11, 0}, true},
		{"09:30", TimeOfDay{9, 30}, true},
		{"11.00", TimeOfDay{11, 0}, true},
		{"24:00", TimeOfDay{}, false},
		{"11:60", TimeOfDay{}, false},
		{"eleven", TimeOfDay{}, false},
		{"", TimeOfDay{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseTime(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParseTime(%q) ok=%v, want %v", tt.in, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Fatalf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	if got := (TimeOfDay{9, 5}).String(); got != "09:05" {
		t.Fatalf("expected 09:05, got %s", got)
	}
}

func TestSlotStarts(t *testing.T) {
	starts := SlotStarts(TimeOfDay{11, 0}, 3, 30)
	want := []TimeOfDay{{11, 0}, {11, 30}, {12, 0}}
	if len(starts) != len(want) {
		t.Fatalf("expected %d starts, got %d", len(want), len(starts))
	}
	for i := range want {
		if starts[i] != want[i] {
			t.Fatalf("slot %d: expected %v, got %v", i, want[i], starts[i])
		}
	}

	// Zero duration still occupies one slot unit.
	if got := SlotStarts(TimeOfDay{11, 0}, 0, 30); len(got) != 1 {
		t.Fatalf("expected 1 start for zero duration, got %d", len(got))
	}
}

func TestAddClampsWithinDay(t *testing.T) {
	late := TimeOfDay{23, 30}.Add(60)
	if late.Hour != 23 || late.Minute != 59 {
		t.Fatalf("expected clamp at 23:59, got %v", late)
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "05.03.2025" {
		t.Fatalf("expected 05.03.2025, got %s", got)
	}
	if got := FormatDateShort(d); got != "05.03" {
		t.Fatalf("expected 05.03, got %s", got)
	}
}
