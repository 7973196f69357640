package personio

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// listResponse models the top-level structure of a paged Personio v1 response.
type listResponse struct {
	Success  bool `json:"success"`
	Metadata struct {
		TotalElements int `json:"total_elements"`
		CurrentPage   int `json:"current_page"`
		TotalPages    int `json:"total_pages"`
	} `json:"metadata"`
	Data  []json.RawMessage `json:"data"`
	Error *apiError         `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type authResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Token string `json:"token"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

// attribute is the {"label": ..., "value": ...} wrapper around every employee field.
type attribute[T any] struct {
	Value T `json:"value"`
}

type employeeRef struct {
	Attributes struct {
		ID attribute[int64] `json:"id"`
	} `json:"attributes"`
}

type departmentRef struct {
	Attributes struct {
		Name string `json:"name"`
	} `json:"attributes"`
}

type workScheduleRef struct {
	Attributes map[string]any `json:"attributes"`
}

type holidayCalendarRef struct {
	Attributes struct {
		Country string `json:"country"`
		State   string `json:"state"`
	} `json:"attributes"`
}

type employeeItem struct {
	Attributes struct {
		ID              attribute[int64]           `json:"id"`
		FirstName       attribute[string]          `json:"first_name"`
		LastName        attribute[string]          `json:"last_name"`
		PreferredName   attribute[string]          `json:"preferred_name"`
		Email           attribute[string]          `json:"email"`
		Position        attribute[string]          `json:"position"`
		Status          attribute[string]          `json:"status"`
		Department      attribute[json.RawMessage] `json:"department"`
		Supervisor      attribute[json.RawMessage] `json:"supervisor"`
		WorkSchedule    attribute[json.RawMessage] `json:"work_schedule"`
		HolidayCalendar attribute[json.RawMessage] `json:"holiday_calendar"`
	} `json:"attributes"`
}

type timeOffItem struct {
	Attributes struct {
		ID           int64  `json:"id"`
		Status       string `json:"status"`
		StartDate    string `json:"start_date"`
		EndDate      string `json:"end_date"`
		HalfDayStart flag   `json:"half_day_start"`
		HalfDayEnd   flag   `json:"half_day_end"`
		TimeOffType  struct {
			Attributes struct {
				Name     string `json:"name"`
				Category string `json:"category"`
			} `json:"attributes"`
		} `json:"time_off_type"`
		Employee employeeRef `json:"employee"`
	} `json:"attributes"`
}

// flag accepts both JSON booleans and the 0/1 integers Personio emits for half-day markers.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "true", "1", `"1"`, `"true"`:
		*f = true
	case "false", "0", `"0"`, `"false"`, "null", `""`:
		*f = false
	default:
		return fmt.Errorf("invalid half-day flag %s", b)
	}
	return nil
}
