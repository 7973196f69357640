package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"absence-visualizer-backend/config"
	"absence-visualizer-backend/internal/engine"
	"absence-visualizer-backend/internal/notification"
	"absence-visualizer-backend/internal/store"
)

var (
	syncCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgchart",
		Subsystem: "sync",
		Name:      "cycles_total",
		Help:      "Sync cycles broken down by result.",
	}, []string{"result"})

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "orgchart",
		Subsystem: "sync",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last sync cycle that completed.",
	})
)

// Source supplies the organization's employees and time-off periods.
type Source interface {
	Employees(ctx context.Context) ([]engine.Employee, error)
	Absences(ctx context.Context, from, to time.Time) ([]engine.AbsenceRecord, error)
}

// HolidaySource supplies public holidays for a date range.
type HolidaySource interface {
	Range(ctx context.Context, from, to time.Time) ([]engine.PublicHoliday, error)
}

// Service keeps the stored snapshot in sync with the upstream HR system.
type Service struct {
	cfg        *config.Config
	store      store.Store
	source     Source
	holidays   HolidaySource
	loc        *time.Location
	workerPool *notification.WorkerPool
	now        func() time.Time

	mu sync.Mutex // serializes cycles
}

// NewService creates and initializes a new sync service. Push notifications are only sent
// when both VAPID keys are configured.
func NewService(cfg *config.Config, s store.Store, source Source, holidays HolidaySource) *Service {
	loc, err := time.LoadLocation(cfg.Organization.Timezone)
	if err != nil {
		logrus.WithError(err).Warnf("unknown timezone %q; using UTC", cfg.Organization.Timezone)
		loc = time.UTC
	}

	svc := &Service{
		cfg:      cfg,
		store:    s,
		source:   source,
		holidays: holidays,
		loc:      loc,
		now:      time.Now,
	}

	if cfg.Push.Enabled() {
		webpushOptions := webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		svc.workerPool = notification.NewWorkerPool(cfg.WorkerPool.Size, s.DB(), &webpushOptions)
	} else {
		logrus.Info("VAPID keys are not configured; availability notifications are disabled")
	}
	return svc
}

// Run starts the sync loop. It blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Scraper.Enabled {
		logrus.Info("Sync is disabled. Not starting.")
		return
	}
	logrus.WithField("interval", s.cfg.Scraper.Interval).Info("Starting sync service...")

	if s.workerPool != nil {
		s.workerPool.Start(ctx)
	}

	if err := s.SyncOnce(ctx); err != nil {
		logrus.WithError(err).Error("sync cycle failed")
	}

	timer := time.NewTimer(s.cfg.Scraper.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Sync service shutting down.")
			return
		case <-timer.C:
			if err := s.SyncOnce(ctx); err != nil {
				logrus.WithError(err).Error("sync cycle failed")
			}
			timer.Reset(s.cfg.Scraper.Interval)
		}
	}
}

// Window returns the synced absence range around now: the first day of the previous month
// through the last day of the next month, as UTC calendar dates.
func Window(now time.Time) (from, to time.Time) {
	y, m, _ := now.Date()
	from = time.Date(y, m-1, 1, 0, 0, 0, 0, time.UTC)
	to = time.Date(y, m+2, 0, 0, 0, 0, 0, time.UTC)
	return from, to
}

// Today returns the calendar date of now in the organization's timezone.
func (s *Service) Today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SyncOnce performs a single sync cycle. Upstream failures never clear stored data: a failed
// employee fetch with nothing retrieved aborts the cycle, a partial one is merged without pruning,
// and failed absence or holiday fetches keep the stored records.
func (s *Service) SyncOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	today := s.Today()
	from, to := Window(today)
	log := logrus.WithFields(logrus.Fields{"date": engine.FormatDate(today), "from": engine.FormatDate(from), "to": engine.FormatDate(to)})
	log.Info("Executing sync cycle...")

	result := "success"

	// Step 1: employees
	employees, fetchErr := s.source.Employees(ctx)
	switch {
	case fetchErr != nil && len(employees) == 0:
		syncCycles.WithLabelValues("aborted").Inc()
		return fmt.Errorf("employee fetch returned nothing, keeping stored snapshot: %w", fetchErr)
	case fetchErr != nil:
		log.WithError(fetchErr).Warnf("employee fetch incomplete; merging %d records without pruning", len(employees))
		result = "partial"
		if err := s.store.UpsertEmployees(ctx, employees); err != nil {
			syncCycles.WithLabelValues("failed").Inc()
			return fmt.Errorf("failed to store employees: %w", err)
		}
	default:
		if err := s.store.ReplaceEmployees(ctx, employees); err != nil {
			syncCycles.WithLabelValues("failed").Inc()
			return fmt.Errorf("failed to store employees: %w", err)
		}
	}

	// Step 2: absences
	absences, fetchErr := s.source.Absences(ctx, from, to)
	if fetchErr != nil {
		log.WithError(fetchErr).Warn("absence fetch failed; keeping stored absences")
		result = "partial"
	} else if err := s.store.ReplaceAbsences(ctx, from, to, absences); err != nil {
		syncCycles.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to store absences: %w", err)
	}

	// Step 3: public holidays
	if s.holidays != nil {
		holidays, fetchErr := s.holidays.Range(ctx, from, to)
		if fetchErr != nil {
			log.WithError(fetchErr).Warn("holiday fetch failed; keeping stored holidays")
			result = "partial"
		}
		if err := s.store.UpsertHolidays(ctx, holidays); err != nil {
			syncCycles.WithLabelValues("failed").Inc()
			return fmt.Errorf("failed to store holidays: %w", err)
		}
	}

	// Step 4: resolve today from what is stored and record transitions
	returned, err := s.recordAvailability(ctx, today, from, to)
	if err != nil {
		syncCycles.WithLabelValues("failed").Inc()
		return err
	}

	if len(returned) > 0 {
		if s.workerPool == nil {
			log.Debugf("%d employees are available again; notifications are disabled", len(returned))
		} else {
			log.Infof("Dispatching notifications for %d employees", len(returned))
			for _, id := range returned {
				if err := s.workerPool.Dispatch(ctx, id); err != nil {
					log.WithError(err).Warn("notification dispatch interrupted")
					break
				}
			}
		}
	}

	syncCycles.WithLabelValues(result).Inc()
	lastSuccess.SetToCurrentTime()
	log.WithFields(logrus.Fields{"result": result, "took": s.now().Sub(started)}).Info("Sync cycle finished.")
	return nil
}

func (s *Service) recordAvailability(ctx context.Context, today, from, to time.Time) ([]int64, error) {
	employees, err := s.store.Employees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load employees: %w", err)
	}
	absences, err := s.store.Absences(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load absences: %w", err)
	}
	holidays, err := s.store.Holidays(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}

	snapshot, err := engine.NewSnapshot(employees, absences, holidays)
	if err != nil {
		return nil, fmt.Errorf("failed to index snapshot: %w", err)
	}

	returned, err := s.store.UpdateAvailability(ctx, s.now(), snapshot.ResolveAll(today))
	if err != nil {
		return nil, fmt.Errorf("failed to record availability: %w", err)
	}
	return returned, nil
}
