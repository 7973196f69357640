package scraper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"absence-visualizer-backend/config"
	"absence-visualizer-backend/internal/engine"
	"absence-visualizer-backend/internal/model"
	"absence-visualizer-backend/internal/notification"
)

// mockStore is an in-memory implementation of the store.Store interface that records writes.
type mockStore struct {
	employees []engine.Employee
	absences  []engine.AbsenceRecord
	holidays  []engine.PublicHoliday

	calls    []string
	statuses map[int64]engine.DailyStatus

	UpdateAvailabilityFunc func(ctx context.Context, now time.Time, statuses map[int64]engine.DailyStatus) ([]int64, error)
}

func (m *mockStore) DB() *gorm.DB { return nil }

func (m *mockStore) ReplaceEmployees(_ context.Context, employees []engine.Employee) error {
	m.calls = append(m.calls, "ReplaceEmployees")
	m.employees = employees
	return nil
}

func (m *mockStore) UpsertEmployees(_ context.Context, employees []engine.Employee) error {
	m.calls = append(m.calls, "UpsertEmployees")
	m.employees = append(m.employees, employees...)
	return nil
}

func (m *mockStore) Employees(context.Context) ([]engine.Employee, error) {
	return m.employees, nil
}

func (m *mockStore) ReplaceAbsences(_ context.Context, _, _ time.Time, absences []engine.AbsenceRecord) error {
	m.calls = append(m.calls, "ReplaceAbsences")
	m.absences = absences
	return nil
}

func (m *mockStore) Absences(context.Context, time.Time, time.Time) ([]engine.AbsenceRecord, error) {
	return m.absences, nil
}

func (m *mockStore) UpsertHolidays(_ context.Context, holidays []engine.PublicHoliday) error {
	m.calls = append(m.calls, "UpsertHolidays")
	m.holidays = append(m.holidays, holidays...)
	return nil
}

func (m *mockStore) Holidays(context.Context, time.Time, time.Time) ([]engine.PublicHoliday, error) {
	return m.holidays, nil
}

func (m *mockStore) UpdateAvailability(ctx context.Context, now time.Time, statuses map[int64]engine.DailyStatus) ([]int64, error) {
	m.calls = append(m.calls, "UpdateAvailability")
	m.statuses = statuses
	if m.UpdateAvailabilityFunc != nil {
		return m.UpdateAvailabilityFunc(ctx, now, statuses)
	}
	return nil, nil
}

func (m *mockStore) AvailabilityHistory(context.Context, int64, int) ([]model.AvailabilityHistory, error) {
	return nil, nil
}

type fakeSource struct {
	employees    []engine.Employee
	employeesErr error
	absences     []engine.AbsenceRecord
	absencesErr  error
	from, to     time.Time
}

func (f *fakeSource) Employees(context.Context) ([]engine.Employee, error) {
	return f.employees, f.employeesErr
}

func (f *fakeSource) Absences(_ context.Context, from, to time.Time) ([]engine.AbsenceRecord, error) {
	f.from, f.to = from, to
	return f.absences, f.absencesErr
}

type fakeHolidays struct {
	holidays []engine.PublicHoliday
	err      error
}

func (f *fakeHolidays) Range(context.Context, time.Time, time.Time) ([]engine.PublicHoliday, error) {
	return f.holidays, f.err
}

func sup(id int64) *int64 { return &id }

func testEmployees() []engine.Employee {
	week := &engine.WorkSchedule{
		time.Monday: 8 * time.Hour, time.Tuesday: 8 * time.Hour, time.Wednesday: 8 * time.Hour,
		time.Thursday: 8 * time.Hour, time.Friday: 8 * time.Hour,
	}
	return []engine.Employee{
		{ID: 1, FirstName: "Alice", LastName: "CEO", Status: engine.EmploymentActive, Schedule: week},
		{ID: 2, FirstName: "Bob", LastName: "Dev", Status: engine.EmploymentActive, SupervisorID: sup(1), Schedule: week},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Organization: config.OrganizationConfig{Timezone: "Europe/Berlin"},
		Scraper:      config.ScraperConfig{Enabled: true, Interval: time.Minute},
		WorkerPool:   config.WorkerPoolConfig{Size: 1},
	}
}

// Monday 2026-01-12, 23:30 UTC is already Tuesday in Berlin.
var fixedNow = time.Date(2026, 1, 12, 23, 30, 0, 0, time.UTC)

func newTestService(s *mockStore, src *fakeSource, hol *fakeHolidays) *Service {
	var holidays HolidaySource
	if hol != nil {
		holidays = hol
	}
	svc := NewService(testConfig(), s, src, holidays)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestWindow(t *testing.T) {
	testCases := []struct {
		now      time.Time
		from, to string
	}{
		{time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), "2025-12-01", "2026-02-28"},
		{time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), "2026-11-01", "2027-01-31"},
		{time.Date(2028, 3, 1, 0, 0, 0, 0, time.UTC), "2028-02-01", "2028-04-30"},
	}
	for _, tc := range testCases {
		from, to := Window(tc.now)
		assert.Equal(t, tc.from, engine.FormatDate(from))
		assert.Equal(t, tc.to, engine.FormatDate(to))
	}
}

func TestService_Today(t *testing.T) {
	svc := newTestService(&mockStore{}, &fakeSource{}, nil)
	assert.Equal(t, "2026-01-13", engine.FormatDate(svc.Today()))
}

func TestService_SyncOnce(t *testing.T) {
	s := &mockStore{}
	src := &fakeSource{
		employees: testEmployees(),
		absences: []engine.AbsenceRecord{
			{ID: 9, EmployeeID: 2, StartDate: "2026-01-13", EndDate: "2026-01-14", Category: engine.CategoryVacation},
		},
	}
	hol := &fakeHolidays{holidays: []engine.PublicHoliday{{Date: "2026-01-01", Name: "New Year's Day", Global: true}}}
	svc := newTestService(s, src, hol)

	require.NoError(t, svc.SyncOnce(context.Background()))

	assert.Equal(t, []string{"ReplaceEmployees", "ReplaceAbsences", "UpsertHolidays", "UpdateAvailability"}, s.calls)
	assert.Equal(t, "2025-12-01", engine.FormatDate(src.from))
	assert.Equal(t, "2026-02-28", engine.FormatDate(src.to))

	require.Len(t, s.statuses, 2)
	assert.Equal(t, engine.StatusAvailable, s.statuses[1].Status)
	assert.Equal(t, engine.StatusAbsent, s.statuses[2].Status)
}

func TestService_SyncOnce_AbortsWithoutEmployees(t *testing.T) {
	s := &mockStore{employees: testEmployees()}
	svc := newTestService(s, &fakeSource{employeesErr: errors.New("upstream down")}, nil)

	err := svc.SyncOnce(context.Background())
	assert.Error(t, err)
	assert.Empty(t, s.calls, "stored state is left untouched")
	assert.Len(t, s.employees, 2)
}

func TestService_SyncOnce_PartialFetches(t *testing.T) {
	s := &mockStore{
		absences: []engine.AbsenceRecord{{ID: 1, EmployeeID: 2, StartDate: "2026-01-13", EndDate: "2026-01-13", Category: engine.CategorySickLeave}},
		holidays: []engine.PublicHoliday{{Date: "2026-01-13", Name: "Stored Holiday", Global: true}},
	}
	src := &fakeSource{
		employees:    testEmployees()[:1],
		employeesErr: errors.New("page 2 failed"),
		absencesErr:  errors.New("time-offs failed"),
	}
	svc := newTestService(s, src, &fakeHolidays{err: errors.New("holidays failed")})

	require.NoError(t, svc.SyncOnce(context.Background()))
	assert.Equal(t, []string{"UpsertEmployees", "UpsertHolidays", "UpdateAvailability"}, s.calls)
	assert.Len(t, s.absences, 1, "stored absences are kept")
	assert.Equal(t, engine.StatusNonWorkingDay, s.statuses[1].Status, "stored holidays still apply")
}

func TestService_SyncOnce_DispatchesReturnedEmployees(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	s := &mockStore{
		UpdateAvailabilityFunc: func(context.Context, time.Time, map[int64]engine.DailyStatus) ([]int64, error) {
			// Simulate that employee 2 came back from an absence
			return []int64{2}, nil
		},
	}
	svc := newTestService(s, &fakeSource{employees: testEmployees()}, nil)

	// Replace the real worker pool with a mock one
	mockWorkerPool := notification.NewWorkerPool(1, nil, nil)
	svc.workerPool = mockWorkerPool

	var dispatchedID int64
	go func() {
		for id := range mockWorkerPool.Jobs() {
			dispatchedID = id
			wg.Done()
		}
	}()

	require.NoError(t, svc.SyncOnce(context.Background()))

	wg.Wait()
	assert.Equal(t, int64(2), dispatchedID, "The employee ID returned by UpdateAvailability should be dispatched to the worker pool")
}

func TestService_SyncOnce_StoreFailure(t *testing.T) {
	s := &mockStore{
		UpdateAvailabilityFunc: func(context.Context, time.Time, map[int64]engine.DailyStatus) ([]int64, error) {
			return nil, errors.New("db gone")
		},
	}
	svc := newTestService(s, &fakeSource{employees: testEmployees()}, nil)
	assert.ErrorContains(t, svc.SyncOnce(context.Background()), "db gone")
}

func TestService_RunDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Scraper.Enabled = false
	svc := NewService(cfg, &mockStore{}, &fakeSource{employeesErr: errors.New("must not be called")}, nil)

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for a disabled service")
	}
}
