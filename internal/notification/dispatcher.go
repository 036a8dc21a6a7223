package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/notification"
)

// Notifier is the fire-and-forget side effect surface of the booking flow.
// Delivery failures never bubble into payment results.
type Notifier interface {
	Notify(notificationType string, userID, bookingID int64, payload map[string]interface{})
}

type Repository interface {
	Create(n *datamodel.Notification) error
	ListByUser(userID int64, limit, offset int) ([]*datamodel.Notification, error)
}

type Job struct {
	Type      string
	UserID    int64
	BookingID int64
	Payload   map[string]interface{}
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing notification", "worker_id", w.ID, "type", job.Type)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Dispatcher runs a bounded worker pool that records and delivers
// notifications off the request path.
type Dispatcher struct {
	repo   Repository
	logger *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type Config struct {
	MaxWorkers   int
	JobQueueSize int
}

func NewDispatcher(cfg Config, repo Repository, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 5
	}

	jobQueueSize := cfg.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	d := &Dispatcher{
		repo:   repo,
		logger: logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	d.startWorkerPool()

	return d
}

func (d *Dispatcher) startWorkerPool() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.processJob)
		}

		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	d.wg.Add(1)
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.logger.Info("notification dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.logger.Info("notification dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notification dispatcher shutting down")
			return
		}
	}
}

// Notify enqueues without blocking. A full queue drops the notification
// with a warning: notifications are best-effort and must never stall a
// payment flow.
func (d *Dispatcher) Notify(notificationType string, userID, bookingID int64, payload map[string]interface{}) {
	job := Job{
		Type:      notificationType,
		UserID:    userID,
		BookingID: bookingID,
		Payload:   payload,
	}

	select {
	case d.jobQueue <- job:
		d.logger.Debug("notification queued",
			"type", notificationType,
			"user_id", userID,
			"queue_length", len(d.jobQueue))
	default:
		d.logger.Warn("notification queue full, dropping notification",
			"type", notificationType,
			"user_id", userID,
			"booking_id", bookingID,
			"queue_capacity", cap(d.jobQueue))
	}
}

func (d *Dispatcher) processJob(job Job) {
	title, body := composeMessage(job)
	n := &datamodel.Notification{
		UserID:    job.UserID,
		BookingID: job.BookingID,
		Type:      job.Type,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := d.repo.Create(n); err != nil {
		d.logger.Error("failed to persist notification",
			"error", err,
			"type", job.Type,
			"user_id", job.UserID,
			"booking_id", job.BookingID)
		return
	}

	d.logger.Info("notification delivered",
		"type", job.Type,
		"user_id", job.UserID,
		"booking_id", job.BookingID)
}

func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down notification dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("notification dispatcher shutdown complete")
}

func composeMessage(job Job) (title, body string) {
	switch job.Type {
	case datamodel.TypeServiceCompleted:
		return "Service completed", fmt.Sprintf("Booking #%d has been marked complete.", job.BookingID)
	case datamodel.TypePaymentReleased:
		amount, _ := job.Payload["amount"].(string)
		if amount != "" {
			return "Payment released", fmt.Sprintf("Your payout of %s for booking #%d is on its way.", amount, job.BookingID)
		}
		return "Payment released", fmt.Sprintf("Your payout for booking #%d is on its way.", job.BookingID)
	case datamodel.TypeBookingDeclined:
		reason, _ := job.Payload["reason"].(string)
		if reason != "" {
			return "Booking declined", fmt.Sprintf("Booking #%d was declined: %s. Your payment has been refunded.", job.BookingID, reason)
		}
		return "Booking declined", fmt.Sprintf("Booking #%d was declined. Your payment has been refunded.", job.BookingID)
	default:
		return job.Type, fmt.Sprintf("Update on booking #%d.", job.BookingID)
	}
}
