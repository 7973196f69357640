package engine

import "fmt"

// Mode selects the subordinate set and weighting of a summary.
type Mode string

const (
	ModeDirectCount Mode = "direct-count"
	ModeDirectHours Mode = "direct-hours"
	ModeAllCount    Mode = "all-count"
	ModeAllHours    Mode = "all-hours"
)

// Modes lists every aggregation mode.
var Modes = []Mode{ModeDirectCount, ModeDirectHours, ModeAllCount, ModeAllHours}

// ParseMode validates a mode string. Empty selects direct-count.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeDirectCount, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown aggregation mode %q", s)}
}

// Summary buckets subordinates by resolved status.
type Summary struct {
	Available  float64 `json:"available"`
	Absent     float64 `json:"absent"`
	Sick       float64 `json:"sick"`
	NonWorking float64 `json:"nonWorking"`
}

// Total is always the sum of the four buckets.
func (s Summary) Total() float64 {
	return s.Available + s.Absent + s.Sick + s.NonWorking
}

func (s *Summary) add(status Status, weight float64) {
	switch status {
	case StatusAvailable:
		s.Available += weight
	case StatusAbsent:
		s.Absent += weight
	case StatusSick:
		s.Sick += weight
	case StatusNonWorkingDay:
		s.NonWorking += weight
	}
}

// Summaries holds one Summary per mode.
type Summaries map[Mode]Summary

// Aggregate computes the four summaries for every employee with at least one direct report.
// Subordinates without a resolved status are skipped; unknown weekly hours weigh zero.
func Aggregate(h *Hierarchy, statuses map[int64]Status) map[int64]Summaries {
	weeklyHours := make([]float64, h.Len())
	for i, e := range h.employees {
		weeklyHours[i] = e.Schedule.WeeklyHours()
	}

	out := make(map[int64]Summaries)
	for i, e := range h.employees {
		if len(h.children[i]) == 0 {
			continue
		}
		var directCount, directHours, allCount, allHours Summary
		for _, c := range h.children[i] {
			st, ok := statuses[h.employees[c].ID]
			if !ok {
				continue
			}
			directCount.add(st, 1)
			directHours.add(st, weeklyHours[c])
		}
		h.walk(i, func(c int) {
			st, ok := statuses[h.employees[c].ID]
			if !ok {
				return
			}
			allCount.add(st, 1)
			allHours.add(st, weeklyHours[c])
		})
		out[e.ID] = Summaries{
			ModeDirectCount: directCount,
			ModeDirectHours: directHours,
			ModeAllCount:    allCount,
			ModeAllHours:    allHours,
		}
	}
	return out
}
