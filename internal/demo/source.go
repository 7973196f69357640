// Package demo provides a fixed six-person organization used when no Personio credentials are configured.
package demo

import (
	"context"
	"time"

	"absence-visualizer-backend/internal/engine"
	"absence-visualizer-backend/internal/personio"
)

// Source serves demo employees and month-relative absences.
type Source struct{}

// NewSource returns the demo source.
func NewSource() *Source { return &Source{} }

func sup(id int64) *int64 { return &id }

func fullTime() *engine.WorkSchedule {
	return &engine.WorkSchedule{
		time.Monday:    8 * time.Hour,
		time.Tuesday:   8 * time.Hour,
		time.Wednesday: 8 * time.Hour,
		time.Thursday:  8 * time.Hour,
		time.Friday:    8 * time.Hour,
	}
}

// Employees returns the demo organization.
func (s *Source) Employees(context.Context) ([]engine.Employee, error) {
	partTime := &engine.WorkSchedule{time.Monday: 6 * time.Hour, time.Tuesday: 6 * time.Hour, time.Wednesday: 6 * time.Hour}
	return []engine.Employee{
		{ID: 101, FirstName: "Alice", LastName: "CEO", PreferredName: "Alice CEO", Email: "alice@example.com",
			Position: "Chief Executive Officer", Department: "Leadership", Status: engine.EmploymentActive,
			Schedule: fullTime(), HolidayState: "Bayern"},
		{ID: 201, FirstName: "Bob", LastName: "Manager", PreferredName: "Bob Manager",
			Position: "Engineering Manager", Department: "Engineering", Status: engine.EmploymentActive,
			SupervisorID: sup(101), Schedule: fullTime(), HolidayState: "Bayern"},
		{ID: 202, FirstName: "Charlie", LastName: "Manager", PreferredName: "Charlie Manager",
			Position: "Product Manager", Department: "Product", Status: engine.EmploymentActive,
			SupervisorID: sup(101), Schedule: fullTime(), HolidayState: "Berlin"},
		{ID: 301, FirstName: "Dave", LastName: "Developer", PreferredName: "Dave Dev",
			Position: "Frontend Developer", Department: "Engineering", Status: engine.EmploymentActive,
			SupervisorID: sup(201), Schedule: fullTime(), HolidayState: "Bayern"},
		{ID: 302, FirstName: "Eve", LastName: "Developer", PreferredName: "Eve Dev",
			Position: "Backend Developer", Department: "Engineering", Status: engine.EmploymentActive,
			SupervisorID: sup(201), Schedule: partTime, HolidayState: "Bayern"},
		{ID: 303, FirstName: "Frank", LastName: "Designer", PreferredName: "Frank Design", Email: "frank@example.com",
			Position: "UX Designer", Department: "Product", Status: engine.EmploymentActive,
			SupervisorID: sup(202), Schedule: fullTime(), HolidayState: "Berlin"},
	}, nil
}

// Absences returns the same absence pattern for every month touched by [from, to].
func (s *Source) Absences(_ context.Context, from, to time.Time) ([]engine.AbsenceRecord, error) {
	var out []engine.AbsenceRecord
	id := int64(1)
	month := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for ; !month.After(last); month = month.AddDate(0, 1, 0) {
		day := func(d int) string { return engine.FormatDate(month.AddDate(0, 0, d-1)) }
		for _, a := range []engine.AbsenceRecord{
			{EmployeeID: 301, StartDate: day(10), EndDate: day(12), Category: engine.CategoryVacation, TypeName: "Paid Vacation"},
			{EmployeeID: 302, StartDate: day(15), EndDate: day(15), Category: engine.CategorySickLeave, TypeName: "Sick Leave"},
			{EmployeeID: 303, StartDate: day(20), EndDate: day(21), Category: engine.CategoryVacation, TypeName: "Paid Vacation", HalfDayStart: true},
			{EmployeeID: 201, StartDate: day(5), EndDate: day(5), Category: engine.CategoryVacation, TypeName: "Paid Vacation", HalfDayEnd: true},
		} {
			a.ID = id
			id++
			out = append(out, a)
		}
	}
	return out, nil
}

// ProfilePicture always reports a missing picture.
func (s *Source) ProfilePicture(context.Context, int64, int) ([]byte, string, error) {
	return nil, "", personio.ErrNotFound
}
