package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"absence-visualizer-backend/internal/engine"
	"absence-visualizer-backend/internal/model"
)

const batchSize = 200

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	ReplaceEmployees(ctx context.Context, employees []engine.Employee) error
	UpsertEmployees(ctx context.Context, employees []engine.Employee) error
	Employees(ctx context.Context) ([]engine.Employee, error)

	ReplaceAbsences(ctx context.Context, from, to time.Time, absences []engine.AbsenceRecord) error
	Absences(ctx context.Context, from, to time.Time) ([]engine.AbsenceRecord, error)

	UpsertHolidays(ctx context.Context, holidays []engine.PublicHoliday) error
	Holidays(ctx context.Context, from, to time.Time) ([]engine.PublicHoliday, error)

	UpdateAvailability(ctx context.Context, now time.Time, statuses map[int64]engine.DailyStatus) ([]int64, error)
	AvailabilityHistory(ctx context.Context, employeeID int64, limit int) ([]model.AvailabilityHistory, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// ReplaceEmployees upserts the snapshot and removes every employee missing from it.
func (s *gormStore) ReplaceEmployees(ctx context.Context, employees []engine.Employee) error {
	rows := make([]model.Employee, len(employees))
	ids := make([]int64, len(employees))
	for i, e := range employees {
		rows[i] = toModelEmployee(e, i)
		ids[i] = e.ID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertEmployees(tx, rows); err != nil {
			return err
		}
		del := tx.Model(&model.Employee{})
		if len(ids) > 0 {
			del = del.Where("id NOT IN ?", ids)
		} else {
			del = del.Where("1 = 1")
		}
		res := del.Delete(&model.Employee{})
		if res.Error != nil {
			return fmt.Errorf("failed to prune employees: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			logrus.WithField("removed", res.RowsAffected).Info("pruned employees missing upstream")
		}
		return nil
	})
}

// UpsertEmployees writes the given employees without removing any others.
func (s *gormStore) UpsertEmployees(ctx context.Context, employees []engine.Employee) error {
	rows := make([]model.Employee, len(employees))
	for i, e := range employees {
		rows[i] = toModelEmployee(e, i)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertEmployees(tx, rows)
	})
}

func upsertEmployees(tx *gorm.DB, rows []model.Employee) error {
	if len(rows) == 0 {
		return nil
	}
	logrus.Debugf("Batch upserting %d employees...", len(rows))
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(&rows, batchSize).Error; err != nil {
		return fmt.Errorf("batch upsert employees failed: %w", err)
	}
	return nil
}

// Employees returns every stored employee in upstream order.
func (s *gormStore) Employees(ctx context.Context) ([]engine.Employee, error) {
	var rows []model.Employee
	if err := s.db.WithContext(ctx).Order("sort_order, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]engine.Employee, len(rows))
	for i, r := range rows {
		out[i] = toEngineEmployee(r)
	}
	return out, nil
}

// ReplaceAbsences swaps every stored absence overlapping [from, to] for the given records.
func (s *gormStore) ReplaceAbsences(ctx context.Context, from, to time.Time, absences []engine.AbsenceRecord) error {
	rows := make([]model.Absence, len(absences))
	for i, a := range absences {
		rows[i] = toModelAbsence(a)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := overlapping(tx, from, to).Delete(&model.Absence{}).Error; err != nil {
			return fmt.Errorf("failed to clear absences: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&rows, batchSize).Error; err != nil {
			return fmt.Errorf("batch insert absences failed: %w", err)
		}
		return nil
	})
}

// Absences returns every stored absence overlapping [from, to].
func (s *gormStore) Absences(ctx context.Context, from, to time.Time) ([]engine.AbsenceRecord, error) {
	var rows []model.Absence
	if err := overlapping(s.db.WithContext(ctx), from, to).Order("start_date, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]engine.AbsenceRecord, len(rows))
	for i, r := range rows {
		out[i] = toEngineAbsence(r)
	}
	return out, nil
}

func overlapping(tx *gorm.DB, from, to time.Time) *gorm.DB {
	return tx.Where("start_date <= ? AND end_date >= ?", engine.FormatDate(to), engine.FormatDate(from))
}

// UpsertHolidays stores holidays keyed by date and name.
func (s *gormStore) UpsertHolidays(ctx context.Context, holidays []engine.PublicHoliday) error {
	if len(holidays) == 0 {
		return nil
	}
	rows := make([]model.PublicHoliday, len(holidays))
	for i, h := range holidays {
		rows[i] = toModelHoliday(h)
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"global", "counties"}),
	}).CreateInBatches(&rows, batchSize).Error
}

// Holidays returns the stored holidays within [from, to].
func (s *gormStore) Holidays(ctx context.Context, from, to time.Time) ([]engine.PublicHoliday, error) {
	var rows []model.PublicHoliday
	if err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", engine.FormatDate(from), engine.FormatDate(to)).
		Order("date, name").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]engine.PublicHoliday, len(rows))
	for i, r := range rows {
		out[i] = toEngineHoliday(r)
	}
	return out, nil
}

// UpdateAvailability records today's statuses. A changed status closes the previous period into
// the history table. It returns the employees who came back from an absence or sick leave.
func (s *gormStore) UpdateAvailability(ctx context.Context, now time.Time, statuses map[int64]engine.DailyStatus) ([]int64, error) {
	currentOpen, err := s.fetchAllOpenAvailability(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open availability records: %w", err)
	}

	ids := make([]int64, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var returned []int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			ds := statuses[id]
			old, exists := currentOpen[id]
			delete(currentOpen, id)

			if !exists {
				record := model.AvailabilityOpen{EmployeeID: id, ObservedAt: now, Status: string(ds.Status), Label: ds.Label}
				if err := tx.Create(&record).Error; err != nil {
					return fmt.Errorf("failed to create availability record for employee %d: %w", id, err)
				}
				continue
			}
			if old.Status == string(ds.Status) {
				continue
			}

			if err := archiveRecord(tx, old, now); err != nil {
				return err
			}
			updated := model.AvailabilityOpen{EmployeeID: id, ObservedAt: now, Status: string(ds.Status), Label: ds.Label}
			if err := tx.Save(&updated).Error; err != nil {
				return fmt.Errorf("failed to update availability record for employee %d: %w", id, err)
			}
			if ds.Status == engine.StatusAvailable && wasAway(old.Status) {
				returned = append(returned, id)
			}
		}

		// Employees that are no longer part of the chart.
		for _, remaining := range currentOpen {
			if err := archiveRecord(tx, remaining, now); err != nil {
				return err
			}
			if err := tx.Delete(&model.AvailabilityOpen{}, remaining.EmployeeID).Error; err != nil {
				return fmt.Errorf("failed to delete availability record for employee %d: %w", remaining.EmployeeID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}

func wasAway(status string) bool {
	return status == string(engine.StatusAbsent) || status == string(engine.StatusSick)
}

// archiveRecord creates a historical record of a closed status period.
func archiveRecord(tx *gorm.DB, open model.AvailabilityOpen, observationTime time.Time) error {
	historyRecord := model.AvailabilityHistory{
		EmployeeID:  open.EmployeeID,
		ObservedAt:  observationTime,
		Status:      open.Status,
		Label:       open.Label,
		PeriodStart: open.ObservedAt,
		PeriodEnd:   observationTime,
	}
	if err := tx.Create(&historyRecord).Error; err != nil {
		return fmt.Errorf("failed to archive availability record for employee %d: %w", open.EmployeeID, err)
	}
	return nil
}

// AvailabilityHistory returns the most recent closed periods of an employee, newest first.
func (s *gormStore) AvailabilityHistory(ctx context.Context, employeeID int64, limit int) ([]model.AvailabilityHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []model.AvailabilityHistory
	err := s.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("observed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (s *gormStore) fetchAllOpenAvailability(ctx context.Context) (map[int64]model.AvailabilityOpen, error) {
	var openRecords []model.AvailabilityOpen
	if err := s.db.WithContext(ctx).Find(&openRecords).Error; err != nil {
		return nil, err
	}
	recordMap := make(map[int64]model.AvailabilityOpen, len(openRecords))
	for _, r := range openRecords {
		recordMap[r.EmployeeID] = r
	}
	return recordMap, nil
}
