package booking

import (
	"testing"

	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
)

func TestExtractScheduleTimes(t *testing.T) {
	specialists := []string{"Olga", "Anna"}

	got := extractScheduleTimes("Записала вас: 11:00 to Olga та 14.30 to Anna", specialists)
	if len(got) != 2 {
		t.Fatalf("extracted %d times: %v", len(got), got)
	}
	if got["Olga"].String() != "11:00" || got["Anna"].String() != "14:30" {
		t.Errorf("times = %v", got)
	}
}

func TestExtractScheduleTimesCaseInsensitive(t *testing.T) {
	got := extractScheduleTimes("12:00 to olga", []string{"Olga"})
	if got["Olga"].String() != "12:00" {
		t.Errorf("times = %v", got)
	}
}

func TestExtractScheduleTimesIgnoresUnknownNames(t *testing.T) {
	got := extractScheduleTimes("11:00 to Sveta", []string{"Olga", "Anna"})
	if len(got) != 0 {
		t.Errorf("times = %v", got)
	}
}

func TestExtractScheduleTimesFirstMentionWins(t *testing.T) {
	got := extractScheduleTimes("11:00 to Olga, потім 15:00 to Olga", []string{"Olga"})
	if got["Olga"].String() != "11:00" {
		t.Errorf("times = %v", got)
	}
}

func TestDoubleTimesPrefersExplicitList(t *testing.T) {
	times, ok := doubleTimes(Intent{
		Times:        []string{"09:00", "12:30"},
		ResponseText: "11:00 to Olga, 14:00 to Anna",
		TargetTime:   "10:00",
	}, []string{"Olga", "Anna"})
	if !ok {
		t.Fatal("doubleTimes failed")
	}
	if times[0].String() != "09:00" || times[1].String() != "12:30" {
		t.Errorf("times = %v", times)
	}
}

func TestDoubleTimesOffsetFallback(t *testing.T) {
	times, ok := doubleTimes(Intent{TargetTime: "11:00"}, []string{"Olga", "Anna"})
	if !ok {
		t.Fatal("doubleTimes failed")
	}
	if times[0].String() != "11:00" || times[1].String() != "14:00" {
		t.Errorf("times = %v", times)
	}
}

func TestDoubleTimesNoSignal(t *testing.T) {
	if _, ok := doubleTimes(Intent{}, []string{"Olga", "Anna"}); ok {
		t.Fatal("expected failure with no time signal")
	}
}

func TestDoubleTimesOffsetClampsAtMidnight(t *testing.T) {
	times, ok := doubleTimes(Intent{TargetTime: "22:00"}, []string{"Olga", "Anna"})
	if !ok {
		t.Fatal("doubleTimes failed")
	}
	if times[1] != (timeparse.TimeOfDay{Hour: 23, Minute: 59}) {
		t.Errorf("second leg = %v", times[1])
	}
}

func TestDoubleTargetTimes(t *testing.T) {
	times := doubleTargetTimes(Intent{Times: []string{"09:00"}, TargetTime: "15:00"}, 2)
	if times[0] != "09:00" || times[1] != "15:00" {
		t.Errorf("times = %v", times)
	}

	// No offset and no failure: the shared time covers both legs, and
	// nothing at all leaves each leg on its own time.
	times = doubleTargetTimes(Intent{TargetTime: "15:00"}, 2)
	if times[0] != "15:00" || times[1] != "15:00" {
		t.Errorf("times = %v", times)
	}
	times = doubleTargetTimes(Intent{}, 2)
	if times[0] != "" || times[1] != "" {
		t.Errorf("times = %v", times)
	}
}

func TestDoubleServicesFallback(t *testing.T) {
	services := doubleServices(Intent{Service: "manicure", Services: []string{"pedicure"}}, 2)
	if services[0] != "pedicure" || services[1] != "manicure" {
		t.Errorf("services = %v", services)
	}
}
