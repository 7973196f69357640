package engine

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmployeeNotFound is returned when a status is requested for an unknown or non-participating employee.
var ErrEmployeeNotFound = errors.New("employee not found")

// ValidationError reports a violated input contract. Data-quality problems never produce one.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// EmploymentStatus is the lifecycle category of an employee record.
type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "active"
	EmploymentOnboarding EmploymentStatus = "onboarding"
	EmploymentPaused     EmploymentStatus = "paused"
	EmploymentFormer     EmploymentStatus = "former"
)

// Participates reports whether employees with this status appear in the chart.
func (s EmploymentStatus) Participates() bool {
	return s == EmploymentActive || s == EmploymentOnboarding
}

// WorkSchedule holds the scheduled duration per weekday, indexed by time.Weekday.
// A zero entry means "not working" or "unspecified"; both are treated alike.
type WorkSchedule [7]time.Duration

// WeeklyHours sums the non-zero scheduled durations.
func (w *WorkSchedule) WeeklyHours() float64 {
	if w == nil {
		return 0
	}
	var total time.Duration
	for _, d := range w {
		if d > 0 {
			total += d
		}
	}
	return total.Hours()
}

// Employee is the normalized employee record consumed by the engine.
type Employee struct {
	ID            int64            `json:"id"`
	FirstName     string           `json:"firstName"`
	LastName      string           `json:"lastName"`
	PreferredName string           `json:"preferredName,omitempty"`
	Email         string           `json:"email,omitempty"`
	Position      string           `json:"position"`
	Department    string           `json:"department,omitempty"`
	Status        EmploymentStatus `json:"status"`
	SupervisorID  *int64           `json:"supervisorId,omitempty"`
	Schedule      *WorkSchedule    `json:"schedule,omitempty"`
	HolidayState  string           `json:"holidayState,omitempty"`
}

// DisplayName is "First Last", falling back to the preferred name.
func (e Employee) DisplayName() string {
	switch {
	case e.FirstName != "" && e.LastName != "":
		return e.FirstName + " " + e.LastName
	case e.PreferredName != "":
		return e.PreferredName
	default:
		return e.FirstName + e.LastName
	}
}

// AbsenceCategory is the upstream time-off category.
type AbsenceCategory string

const (
	CategoryVacation       AbsenceCategory = "vacation"
	CategorySickLeave      AbsenceCategory = "sick_leave"
	CategoryUnpaidVacation AbsenceCategory = "unpaid_vacation"
)

// AbsenceRecord is one time-off period. Dates are inclusive YYYY-MM-DD strings.
type AbsenceRecord struct {
	ID           int64           `json:"id,omitempty"`
	EmployeeID   int64           `json:"employeeId"`
	StartDate    string          `json:"startDate"`
	EndDate      string          `json:"endDate"`
	Category     AbsenceCategory `json:"category"`
	TypeName     string          `json:"typeName,omitempty"`
	HalfDayStart bool            `json:"halfDayStart"`
	HalfDayEnd   bool            `json:"halfDayEnd"`
}

// PublicHoliday is a single holiday. Counties holds ISO 3166-2 region codes.
type PublicHoliday struct {
	Date     string   `json:"date"`
	Name     string   `json:"name"`
	Global   bool     `json:"global"`
	Counties []string `json:"counties,omitempty"`
}

// Status is the resolved availability of one day segment.
type Status string

const (
	StatusAvailable     Status = "available"
	StatusAbsent        Status = "absent"
	StatusSick          Status = "sick"
	StatusNonWorkingDay Status = "non-working-day"
)

// precedence ranks statuses; lower wins.
func (s Status) precedence() int {
	switch s {
	case StatusAbsent:
		return 1
	case StatusSick:
		return 2
	case StatusNonWorkingDay:
		return 3
	default:
		return 4
	}
}

// DailyStatus is the resolved status of one employee on one date.
type DailyStatus struct {
	Status  Status `json:"status"`
	AM      Status `json:"amStatus"`
	PM      Status `json:"pmStatus"`
	Label   string `json:"label"`
	HalfDay bool   `json:"isHalfDay"`
}

const dateLayout = "2006-01-02"

// FormatDate renders t as YYYY-MM-DD in its own location.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: fmt.Sprintf("%q is not YYYY-MM-DD", s)}
	}
	return t, nil
}
