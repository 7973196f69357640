package personio

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"absence-visualizer-backend/internal/engine"
	"absence-visualizer-backend/internal/parse"
)

// normalizeEmployee maps one upstream employee record onto engine.Employee.
// Only the identifier is mandatory; every nested object degrades to "unknown" when malformed.
func normalizeEmployee(raw json.RawMessage) (engine.Employee, error) {
	var item employeeItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return engine.Employee{}, fmt.Errorf("failed to unmarshal employee: %w", err)
	}
	a := item.Attributes
	if a.ID.Value == 0 {
		return engine.Employee{}, fmt.Errorf("employee without id")
	}

	e := engine.Employee{
		ID:            a.ID.Value,
		FirstName:     strings.TrimSpace(a.FirstName.Value),
		LastName:      strings.TrimSpace(a.LastName.Value),
		PreferredName: strings.TrimSpace(a.PreferredName.Value),
		Email:         a.Email.Value,
		Position:      a.Position.Value,
		Status:        engine.EmploymentStatus(strings.ToLower(strings.TrimSpace(a.Status.Value))),
	}
	fields := logrus.Fields{"employee_id": e.ID}

	var dept departmentRef
	if decodeOptional(a.Department.Value, &dept) {
		e.Department = dept.Attributes.Name
	}

	var sup employeeRef
	if decodeOptional(a.Supervisor.Value, &sup) && sup.Attributes.ID.Value != 0 {
		id := sup.Attributes.ID.Value
		e.SupervisorID = &id
	}

	var ws workScheduleRef
	if decodeOptional(a.WorkSchedule.Value, &ws) {
		days := make(map[string]string, 7)
		for k, v := range ws.Attributes {
			if s, ok := v.(string); ok {
				days[k] = s
			}
		}
		schedule, err := parse.Schedule(days)
		if err != nil {
			logrus.WithFields(fields).WithError(err).Warn("ignoring malformed work schedule")
		} else {
			e.Schedule = schedule
		}
	}

	var cal holidayCalendarRef
	if decodeOptional(a.HolidayCalendar.Value, &cal) {
		e.HolidayState = cal.Attributes.State
	}

	return e, nil
}

// normalizeAbsence maps one upstream time-off period onto engine.AbsenceRecord.
// ok is false for records that must not be shown at all.
func normalizeAbsence(raw json.RawMessage) (rec engine.AbsenceRecord, ok bool, err error) {
	var item timeOffItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return engine.AbsenceRecord{}, false, fmt.Errorf("failed to unmarshal time-off: %w", err)
	}
	a := item.Attributes
	if strings.EqualFold(a.Status, "rejected") || strings.EqualFold(a.Status, "canceled") {
		return engine.AbsenceRecord{}, false, nil
	}

	start, err := parse.Date(a.StartDate)
	if err != nil {
		return engine.AbsenceRecord{}, false, err
	}
	end, err := parse.Date(a.EndDate)
	if err != nil {
		return engine.AbsenceRecord{}, false, err
	}

	return engine.AbsenceRecord{
		ID:           a.ID,
		EmployeeID:   a.Employee.Attributes.ID.Value,
		StartDate:    start,
		EndDate:      end,
		Category:     engine.AbsenceCategory(a.TimeOffType.Attributes.Category),
		TypeName:     a.TimeOffType.Attributes.Name,
		HalfDayStart: bool(a.HalfDayStart),
		HalfDayEnd:   bool(a.HalfDayEnd),
	}, true, nil
}

func decodeOptional(raw json.RawMessage, dst any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
