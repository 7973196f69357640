package engine

import (
	"fmt"
	"strings"
	"time"
)

const (
	labelAvailable = "Available"
	labelWeekend   = "Weekend"
	labelOffDay    = "Off Day"
)

// Resolve computes the AM/PM status of emp on date. absences may contain records of other
// employees; only emp's records are considered. The function has no side effects.
//
// Half-day convention: half_day_start on the start day limits the record to the morning;
// half_day_end on the end day limits it to the afternoon.
func Resolve(emp Employee, date time.Time, holidays []PublicHoliday, absences []AbsenceRecord) DailyStatus {
	day := FormatDate(date)
	base, baseLabel := baseStatus(emp, date, day, holidays)
	am, pm := base, base

	var first *AbsenceRecord
	for i := range absences {
		abs := &absences[i]
		if abs.EmployeeID != emp.ID || !covers(abs, day) {
			continue
		}
		if first == nil {
			first = abs
		}

		incoming := classify(abs)
		affectsAM, affectsPM := segments(abs, day)
		if affectsAM && incoming.precedence() < am.precedence() {
			am = incoming
		}
		if affectsPM && incoming.precedence() < pm.precedence() {
			pm = incoming
		}
	}

	ds := DailyStatus{AM: am, PM: pm, Label: baseLabel, HalfDay: am != pm}
	ds.Status = am
	if pm.precedence() < am.precedence() {
		ds.Status = pm
	}

	switch {
	case am == pm && am != base:
		ds.Label = fmt.Sprintf("%s (%s)", word(am), spanLabel(first))
	case am != pm:
		w := "Sick"
		if am == StatusAbsent || pm == StatusAbsent {
			w = "Absent"
		}
		ds.Label = "½ " + w
	}
	return ds
}

// baseStatus applies holidays first, then the work schedule.
func baseStatus(emp Employee, date time.Time, day string, holidays []PublicHoliday) (Status, string) {
	region := RegionCode(emp.HolidayState)
	for _, h := range holidays {
		if h.Date != day {
			continue
		}
		if h.Global || (region != "" && containsString(h.Counties, region)) {
			return StatusNonWorkingDay, h.Name
		}
	}

	if emp.Schedule != nil && emp.Schedule[date.Weekday()] <= 0 {
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return StatusNonWorkingDay, labelWeekend
		}
		return StatusNonWorkingDay, labelOffDay
	}
	return StatusAvailable, labelAvailable
}

// covers compares YYYY-MM-DD strings lexicographically. Records without dates never match.
func covers(abs *AbsenceRecord, day string) bool {
	if abs.StartDate == "" || abs.EndDate == "" {
		return false
	}
	return abs.StartDate <= day && day <= abs.EndDate
}

func classify(abs *AbsenceRecord) Status {
	if abs.Category == CategorySickLeave {
		return StatusSick
	}
	name := strings.ToLower(abs.TypeName)
	if strings.Contains(name, "sick") || strings.Contains(name, "illness") {
		return StatusSick
	}
	return StatusAbsent
}

// segments reports which halves of day the record affects. A single-day record flagged on both
// ends is a morning half day rather than an empty range.
func segments(abs *AbsenceRecord, day string) (am, pm bool) {
	am, pm = true, true
	if day == abs.StartDate && abs.HalfDayStart {
		pm = false
	}
	if day == abs.EndDate && abs.HalfDayEnd {
		am = false
	}
	if !am && !pm {
		am = true
	}
	return am, pm
}

func word(s Status) string {
	if s == StatusSick {
		return "Sick"
	}
	return "Absent"
}

// spanLabel renders "dd.MM." or "dd.MM.-dd.MM." for the record's range.
func spanLabel(abs *AbsenceRecord) string {
	start, end := shortDate(abs.StartDate), shortDate(abs.EndDate)
	if start == end {
		return start
	}
	return start + "-" + end
}

func shortDate(day string) string {
	t, err := time.Parse(dateLayout, day)
	if err != nil {
		return day
	}
	return t.Format("02.01.")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
