package store

import (
	"strings"
	"time"

	"absence-visualizer-backend/internal/engine"
	"absence-visualizer-backend/internal/model"
)

func toModelEmployee(e engine.Employee, order int) model.Employee {
	m := model.Employee{
		ID:            e.ID,
		FirstName:     e.FirstName,
		LastName:      e.LastName,
		PreferredName: e.PreferredName,
		Email:         e.Email,
		Position:      e.Position,
		Department:    e.Department,
		Status:        string(e.Status),
		SupervisorID:  e.SupervisorID,
		HolidayState:  e.HolidayState,
		SortOrder:     order,
	}
	if e.Schedule != nil {
		ws := e.Schedule
		m.HasSchedule = true
		m.Schedule = model.WeekSchedule{
			Sunday:    minutes(ws[time.Sunday]),
			Monday:    minutes(ws[time.Monday]),
			Tuesday:   minutes(ws[time.Tuesday]),
			Wednesday: minutes(ws[time.Wednesday]),
			Thursday:  minutes(ws[time.Thursday]),
			Friday:    minutes(ws[time.Friday]),
			Saturday:  minutes(ws[time.Saturday]),
		}
	}
	return m
}

func toEngineEmployee(m model.Employee) engine.Employee {
	e := engine.Employee{
		ID:            m.ID,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		PreferredName: m.PreferredName,
		Email:         m.Email,
		Position:      m.Position,
		Department:    m.Department,
		Status:        engine.EmploymentStatus(m.Status),
		SupervisorID:  m.SupervisorID,
		HolidayState:  m.HolidayState,
	}
	if m.HasSchedule {
		s := m.Schedule
		e.Schedule = &engine.WorkSchedule{
			time.Sunday:    duration(s.Sunday),
			time.Monday:    duration(s.Monday),
			time.Tuesday:   duration(s.Tuesday),
			time.Wednesday: duration(s.Wednesday),
			time.Thursday:  duration(s.Thursday),
			time.Friday:    duration(s.Friday),
			time.Saturday:  duration(s.Saturday),
		}
	}
	return e
}

func minutes(d time.Duration) int        { return int(d / time.Minute) }
func duration(minutes int) time.Duration { return time.Duration(minutes) * time.Minute }

func toModelAbsence(a engine.AbsenceRecord) model.Absence {
	return model.Absence{
		ExternalID:   a.ID,
		EmployeeID:   a.EmployeeID,
		StartDate:    a.StartDate,
		EndDate:      a.EndDate,
		Category:     string(a.Category),
		TypeName:     a.TypeName,
		HalfDayStart: a.HalfDayStart,
		HalfDayEnd:   a.HalfDayEnd,
	}
}

func toEngineAbsence(m model.Absence) engine.AbsenceRecord {
	return engine.AbsenceRecord{
		ID:           m.ExternalID,
		EmployeeID:   m.EmployeeID,
		StartDate:    m.StartDate,
		EndDate:      m.EndDate,
		Category:     engine.AbsenceCategory(m.Category),
		TypeName:     m.TypeName,
		HalfDayStart: m.HalfDayStart,
		HalfDayEnd:   m.HalfDayEnd,
	}
}

func toModelHoliday(h engine.PublicHoliday) model.PublicHoliday {
	return model.PublicHoliday{
		Date:     h.Date,
		Name:     h.Name,
		Global:   h.Global,
		Counties: strings.Join(h.Counties, ","),
	}
}

func toEngineHoliday(m model.PublicHoliday) engine.PublicHoliday {
	h := engine.PublicHoliday{Date: m.Date, Name: m.Name, Global: m.Global}
	if m.Counties != "" {
		h.Counties = strings.Split(m.Counties, ",")
	}
	return h
}
