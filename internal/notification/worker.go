package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"absence-visualizer-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size), // Buffered channel
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := logrus.WithField("worker", id)
	log.Debug("Worker started")
	for {
		select {
		case employeeID := <-wp.jobs:
			log.WithField("employee_id", employeeID).Debug("Processing availability notification")
			wp.sendNotificationsForEmployee(ctx, employeeID)
		case <-ctx.Done():
			log.Debug("Worker shutting down")
			return
		}
	}
}

// Dispatch queues a notification job. It blocks while the queue is full and gives up when ctx ends.
func (wp *WorkerPool) Dispatch(ctx context.Context, employeeID int64) error {
	select {
	case wp.jobs <- employeeID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

// sendNotificationsForEmployee notifies every subscription following the given employee.
func (wp *WorkerPool) sendNotificationsForEmployee(ctx context.Context, employeeID int64) {
	log := logrus.WithField("employee_id", employeeID)

	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_employee_mapping sem ON sem.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sem.employee_id = ?", employeeID).
		Find(&subscriptions).Error
	if err != nil {
		log.WithError(err).Error("Error fetching subscriptions")
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	log.Infof("Sending %d notifications", len(subscriptions))

	var employee model.Employee
	name := fmt.Sprintf("Employee %d", employeeID)
	if err := wp.db.WithContext(ctx).
		Select("first_name", "last_name", "preferred_name").
		First(&employee, employeeID).Error; err != nil {
		log.WithError(err).Warn("Error fetching employee name")
	} else if n := displayName(employee); n != "" {
		name = n
	}

	message := fmt.Sprintf("%s is available again", name)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func displayName(e model.Employee) string {
	if e.FirstName != "" && e.LastName != "" {
		return e.FirstName + " " + e.LastName
	}
	if e.PreferredName != "" {
		return e.PreferredName
	}
	return strings.TrimSpace(e.FirstName + e.LastName)
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		logrus.WithError(err).WithField("endpoint", sub.Endpoint).Warn("Error sending notification")
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		logrus.WithField("endpoint", sub.Endpoint).Info("Subscription is expired. Deleting.")
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			logrus.WithError(err).WithField("endpoint", sub.Endpoint).Error("Failed to delete expired subscription")
		}
	}
}
