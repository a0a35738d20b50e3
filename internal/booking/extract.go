package booking

import (
	"regexp"
	"strings"

	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
)

// doubleOffsetMinutes separates the two legs of a double booking when only
// one time is known.
const doubleOffsetMinutes = 180

// timeToNameRe matches "<time> to <Name>" fragments in the provider's reply,
// e.g. "11:00 to Olga, 14.30 to Anna".
var timeToNameRe = regexp.MustCompile(`(\d{1,2}[:.]\d{2})\s+(?:to|до)\s+([\p{L}'’-]+)`)

// extractScheduleTimes pulls per-specialist times out of the free-form reply
// text. Matching on specialist names is case-insensitive; unmatched
// specialists are absent from the map.
func extractScheduleTimes(text string, specialists []string) map[string]timeparse.TimeOfDay {
	out := make(map[string]timeparse.TimeOfDay)
	if text == "" {
		return out
	}
	for _, m := range timeToNameRe.FindAllStringSubmatch(text, -1) {
		t, ok := timeparse.ParseTime(m[1])
		if !ok {
			continue
		}
		name := m[2]
		for _, spec := range specialists {
			if strings.EqualFold(spec, name) {
				if _, seen := out[spec]; !seen {
					out[spec] = t
				}
				break
			}
		}
	}
	return out
}

// doubleTimes decides the start time for each of the two specialists, in
// order of preference: the explicit per-specialist list, times extracted
// from the reply text, and finally the scalar time with the second leg
// offset by three hours.
func doubleTimes(intent Intent, specialists []string) ([]timeparse.TimeOfDay, bool) {
	if len(intent.Times) >= len(specialists) {
		times := make([]timeparse.TimeOfDay, 0, len(specialists))
		for i := range specialists {
			t, ok := timeparse.ParseTime(intent.Times[i])
			if !ok {
				return nil, false
			}
			times = append(times, t)
		}
		return times, true
	}

	extracted := extractScheduleTimes(intent.ResponseText, specialists)
	if len(extracted) == len(specialists) {
		times := make([]timeparse.TimeOfDay, 0, len(specialists))
		for _, spec := range specialists {
			times = append(times, extracted[spec])
		}
		return times, true
	}

	base, ok := timeparse.ParseTime(intent.TargetTime)
	if !ok {
		return nil, false
	}
	times := make([]timeparse.TimeOfDay, 0, len(specialists))
	for i := range specialists {
		times = append(times, base.Add(i*doubleOffsetMinutes))
	}
	return times, true
}

// doubleTargetTimes resolves per-leg target times for a double reschedule.
// Unlike the create path there is no extraction or offset fallback: a shared
// scalar time moves both legs to the same hour, and an empty entry means the
// leg keeps the booking's own time.
func doubleTargetTimes(intent Intent, count int) []string {
	times := make([]string, count)
	for i := 0; i < count; i++ {
		if i < len(intent.Times) {
			times[i] = intent.Times[i]
		} else {
			times[i] = intent.TargetTime
		}
	}
	return times
}

// doubleServices picks the per-leg service phrase, falling back to the
// scalar one for both legs.
func doubleServices(intent Intent, count int) []string {
	services := make([]string, count)
	for i := 0; i < count; i++ {
		if i < len(intent.Services) {
			services[i] = intent.Services[i]
		} else {
			services[i] = intent.Service
		}
	}
	return services
}

// doubleSourceTimes resolves the per-leg source times for double cancel and
// reschedule, falling back to the scalar source time.
func doubleSourceTimes(intent Intent, count int) []string {
	times := make([]string, count)
	for i := 0; i < count; i++ {
		if i < len(intent.SourceTimes) {
			times[i] = intent.SourceTimes[i]
		} else {
			times[i] = intent.SourceTime
		}
	}
	return times
}
