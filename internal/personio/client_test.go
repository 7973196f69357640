package personio

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"absence-visualizer-backend/config"
	"absence-visualizer-backend/internal/engine"
)

const employeesPage = `[
  {"type": "Employee", "attributes": {
    "id": {"label": "ID", "value": 101},
    "first_name": {"value": "Alice"},
    "last_name": {"value": "CEO"},
    "position": {"value": "Chief Executive Officer"},
    "status": {"value": "Active"},
    "department": {"value": {"type": "Department", "attributes": {"name": "Leadership"}}},
    "supervisor": {"value": null},
    "work_schedule": {"value": {"type": "WorkSchedule", "attributes": {"id": 7, "name": "Full time", "monday": "08:00", "tuesday": "08:00", "wednesday": "08:00", "thursday": "08:00", "friday": "08:00", "saturday": "00:00", "sunday": "00:00"}}},
    "holiday_calendar": {"value": {"type": "HolidayCalendar", "attributes": {"country": "DE", "state": "Bayern"}}}
  }},
  {"type": "Employee", "attributes": {
    "id": {"value": 201},
    "first_name": {"value": "Bob"},
    "last_name": {"value": "Manager"},
    "status": {"value": "onboarding"},
    "supervisor": {"value": {"type": "Employee", "attributes": {"id": {"value": 101}}}},
    "work_schedule": {"value": []}
  }}
]`

const employeesPage2 = `[
  {"type": "Employee", "attributes": {"id": {"value": 301}, "first_name": {"value": "Dave"}, "status": {"value": "former"}, "supervisor": {"value": {"attributes": {"id": {"value": 201}}}}}},
  {"type": "Employee", "attributes": {"id": {"value": "not-a-number"}}}
]`

const timeOffsPage = `[
  {"type": "TimeOffPeriod", "attributes": {"id": 1, "status": "approved",
    "start_date": "2026-01-10T00:00:00+01:00", "end_date": "2026-01-12T00:00:00+01:00",
    "half_day_start": 0, "half_day_end": 1,
    "time_off_type": {"type": "TimeOffType", "attributes": {"name": "Paid Vacation", "category": "vacation"}},
    "employee": {"type": "Employee", "attributes": {"id": {"value": 301}}}}},
  {"type": "TimeOffPeriod", "attributes": {"id": 2, "status": "approved",
    "start_date": "2026-01-15", "end_date": "2026-01-15", "half_day_start": true, "half_day_end": false,
    "time_off_type": {"attributes": {"name": "Sick Leave", "category": "sick_leave"}},
    "employee": {"attributes": {"id": {"value": 302}}}}},
  {"type": "TimeOffPeriod", "attributes": {"id": 3, "status": "rejected",
    "start_date": "2026-01-20", "end_date": "2026-01-20",
    "employee": {"attributes": {"id": {"value": 302}}}}},
  {"type": "TimeOffPeriod", "attributes": {"id": 4, "status": "approved",
    "start_date": "someday", "end_date": "2026-01-20",
    "employee": {"attributes": {"id": {"value": 302}}}}}
]`

type fakePersonio struct {
	*httptest.Server
	authCalls  atomic.Int32
	dataCalls  atomic.Int32
	dataStatus atomic.Int32
	retryAfter string
}

func newFakePersonio(t *testing.T) *fakePersonio {
	t.Helper()
	f := &fakePersonio{}
	f.dataStatus.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
		f.authCalls.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["client_secret"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success": true, "data": {"token": "tok-` + strconv.Itoa(int(f.authCalls.Load())) + `"}}`))
	})
	mux.HandleFunc("GET /company/employees", func(w http.ResponseWriter, r *http.Request) {
		if !f.gate(w, r) {
			return
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		data := employeesPage
		if offset > 0 {
			data = employeesPage2
		}
		_, _ = w.Write([]byte(`{"success": true, "metadata": {"total_elements": 4}, "data": ` + data + `}`))
	})
	mux.HandleFunc("GET /company/time-offs", func(w http.ResponseWriter, r *http.Request) {
		if !f.gate(w, r) {
			return
		}
		if r.URL.Query().Get("start_date") != "2026-01-01" || r.URL.Query().Get("end_date") != "2026-01-31" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"success": true, "metadata": {"total_elements": 4}, "data": ` + timeOffsPage + `}`))
	})
	mux.HandleFunc("GET /company/employees/{id}/profile-picture/{width}", func(w http.ResponseWriter, r *http.Request) {
		if !f.gate(w, r) {
			return
		}
		if r.PathValue("id") != "101" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-" + r.PathValue("width")))
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakePersonio) gate(w http.ResponseWriter, r *http.Request) bool {
	f.dataCalls.Add(1)
	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	if status := int(f.dataStatus.Load()); status != http.StatusOK {
		if f.retryAfter != "" {
			w.Header().Set("Retry-After", f.retryAfter)
		}
		w.WriteHeader(status)
		return false
	}
	return true
}

func newTestClient(url, secret string) *Client {
	return NewClient(&config.PersonioConfig{
		BaseURL:      url,
		ClientID:     "id",
		ClientSecret: secret,
		PageSize:     2,
		Timeout:      5 * time.Second,
		Cooldown:     time.Minute,
	})
}

func TestClient_Employees(t *testing.T) {
	f := newFakePersonio(t)
	c := newTestClient(f.URL, "secret")

	employees, err := c.Employees(t.Context())
	require.NoError(t, err)
	require.Len(t, employees, 3, "the malformed record is skipped")

	alice := employees[0]
	assert.Equal(t, int64(101), alice.ID)
	assert.Equal(t, "Alice CEO", alice.DisplayName())
	assert.Equal(t, engine.EmploymentActive, alice.Status)
	assert.Equal(t, "Leadership", alice.Department)
	assert.Nil(t, alice.SupervisorID)
	require.NotNil(t, alice.Schedule)
	assert.Equal(t, 40.0, alice.Schedule.WeeklyHours())
	assert.Equal(t, "Bayern", alice.HolidayState)

	bob := employees[1]
	require.NotNil(t, bob.SupervisorID)
	assert.Equal(t, int64(101), *bob.SupervisorID)
	assert.Nil(t, bob.Schedule, "an empty schedule array means no data")
	assert.Equal(t, engine.EmploymentOnboarding, bob.Status)

	assert.Equal(t, engine.EmploymentFormer, employees[2].Status)
	assert.Equal(t, int32(1), f.authCalls.Load(), "token is reused across pages")
}

func TestClient_Absences(t *testing.T) {
	f := newFakePersonio(t)
	c := newTestClient(f.URL, "secret")

	from, _ := engine.ParseDate("2026-01-01")
	to, _ := engine.ParseDate("2026-01-31")
	absences, err := c.Absences(t.Context(), from, to)
	require.NoError(t, err)

	assert.Equal(t, []engine.AbsenceRecord{
		{ID: 1, EmployeeID: 301, StartDate: "2026-01-10", EndDate: "2026-01-12", Category: engine.CategoryVacation, TypeName: "Paid Vacation", HalfDayEnd: true},
		{ID: 2, EmployeeID: 302, StartDate: "2026-01-15", EndDate: "2026-01-15", Category: engine.CategorySickLeave, TypeName: "Sick Leave", HalfDayStart: true},
	}, absences)
}

func TestClient_ProfilePicture(t *testing.T) {
	f := newFakePersonio(t)
	c := newTestClient(f.URL, "secret")

	body, contentType, err := c.ProfilePicture(t.Context(), 101, 75)
	require.NoError(t, err)
	assert.Equal(t, "png-75", string(body))
	assert.Equal(t, "image/png", contentType)

	_, _, err = c.ProfilePicture(t.Context(), 999, 75)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_RateLimitCooldown(t *testing.T) {
	f := newFakePersonio(t)
	f.dataStatus.Store(http.StatusTooManyRequests)
	f.retryAfter = "120"
	c := newTestClient(f.URL, "secret")

	_, err := c.Employees(t.Context())
	assert.ErrorIs(t, err, ErrRateLimited)
	calls := f.dataCalls.Load()

	f.dataStatus.Store(http.StatusOK)
	_, err = c.Employees(t.Context())
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, calls, f.dataCalls.Load(), "no request is sent during the cooldown")

	c.negative.Flush()
	employees, err := c.Employees(t.Context())
	require.NoError(t, err)
	assert.Len(t, employees, 3)
}

func TestClient_Unauthorized(t *testing.T) {
	f := newFakePersonio(t)

	_, err := newTestClient(f.URL, "wrong").Employees(t.Context())
	assert.ErrorIs(t, err, ErrUnauthorized)

	c := newTestClient(f.URL, "secret")
	f.dataStatus.Store(http.StatusUnauthorized)
	_, err = c.Employees(t.Context())
	assert.ErrorIs(t, err, ErrUnauthorized)

	f.dataStatus.Store(http.StatusOK)
	_, err = c.Employees(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.authCalls.Load(), "a rejected token is dropped and renewed")
}

func TestClient_TokenExpiry(t *testing.T) {
	f := newFakePersonio(t)
	c := newTestClient(f.URL, "secret")
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Employees(t.Context())
	require.NoError(t, err)
	now = now.Add(54 * time.Minute)
	_, err = c.Employees(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.authCalls.Load())

	now = now.Add(2 * time.Minute)
	_, err = c.Employees(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.authCalls.Load())
}

func TestFlag(t *testing.T) {
	for raw, expected := range map[string]bool{"true": true, "1": true, "false": false, "0": false, "null": false} {
		var f flag
		require.NoError(t, json.Unmarshal([]byte(raw), &f), raw)
		assert.Equal(t, expected, bool(f), raw)
	}
	var f flag
	assert.Error(t, json.Unmarshal([]byte(`"maybe"`), &f))
}
