package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"absence-visualizer-backend/internal/engine"
)

var (
	hoursRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::\d{2})?$`)
	dateRe  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:[T ].*)?$`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseHours converts an "HH:MM" schedule entry into a duration. Empty means zero.
func ParseHours(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	m := hoursRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unable to parse hours: %q", raw)
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	if h > 24 || mins > 59 || (h == 24 && mins > 0) {
		return 0, fmt.Errorf("hours out of range: %q", raw)
	}
	return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute, nil
}

// Schedule builds a weekly schedule from weekday-name keys ("monday": "08:00").
// Unknown keys are ignored; a malformed entry fails the whole schedule.
func Schedule(days map[string]string) (*engine.WorkSchedule, error) {
	if len(days) == 0 {
		return nil, nil
	}
	var ws engine.WorkSchedule
	for name, raw := range days {
		wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		d, err := ParseHours(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		ws[wd] = d
	}
	return &ws, nil
}

// Date strips any time-of-day suffix from an upstream date, leaving YYYY-MM-DD.
func Date(raw string) (string, error) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", fmt.Errorf("unable to parse date: %q", raw)
	}
	if _, err := time.Parse("2006-01-02", m[1]); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return m[1], nil
}
