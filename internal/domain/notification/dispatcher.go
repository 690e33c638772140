// internal/domain/notification/dispatcher.go
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
)

const (
	QueueKey = "notifications:queue"
	DeadKey  = "notifications:dead"
)

// Kind identifies what a job sends
type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindOrderStatusUpdate Kind = "order_status_update"
)

// Job is one queued notification. Payloads are rendered from the order at
// enqueue time so the worker never reads the database.
type Job struct {
	ID           string                       `json:"id"`
	Kind         Kind                         `json:"kind"`
	OrderNumber  string                       `json:"order_number"`
	Confirmation *email.OrderConfirmationData `json:"confirmation,omitempty"`
	StatusUpdate *email.OrderStatusUpdateData `json:"status_update,omitempty"`
	EnqueuedAt   time.Time                    `json:"enqueued_at"`
	Attempts     int                          `json:"attempts,omitempty"`
	LastError    string                       `json:"last_error,omitempty"`
}

// Sender delivers rendered notifications
type Sender interface {
	SendOrderConfirmationEmail(ctx context.Context, data email.OrderConfirmationData) error
	SendOrderStatusUpdateEmail(ctx context.Context, data email.OrderStatusUpdateData) error
}

// Dispatcher queues order notifications in Redis and delivers them from a
// background worker
type Dispatcher struct {
	rdb    *redis.Client
	sender Sender
	config *config.Config
	log    *logrus.Logger

	newBackOff func() backoff.BackOff
}

// NewDispatcher creates a notification dispatcher
func NewDispatcher(rdb *redis.Client, sender Sender, cfg *config.Config, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		rdb:    rdb,
		sender: sender,
		config: cfg,
		log:    log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 30 * time.Second
			return b
		},
	}
}

// OrderConfirmed queues the order confirmation email
func (d *Dispatcher) OrderConfirmed(ctx context.Context, o *order.Order) {
	if o.CustomerEmail() == "" {
		d.log.WithField("order_number", o.OrderNumber).Debug("No customer email, skipping confirmation")
		return
	}
	data := d.confirmationData(o)
	d.enqueueLogged(ctx, &Job{Kind: KindOrderConfirmation, OrderNumber: o.OrderNumber, Confirmation: &data})
}

// OrderStatusChanged queues a status update email
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, o *order.Order) {
	if o.CustomerEmail() == "" {
		return
	}
	data := d.statusUpdateData(o)
	d.enqueueLogged(ctx, &Job{Kind: KindOrderStatusUpdate, OrderNumber: o.OrderNumber, StatusUpdate: &data})
}

func (d *Dispatcher) enqueueLogged(ctx context.Context, job *Job) {
	if err := d.Enqueue(ctx, job); err != nil {
		metrics.NotificationsSent.WithLabelValues(string(job.Kind), "enqueue_failed").Inc()
		d.log.WithError(err).WithFields(logrus.Fields{
			"kind":         job.Kind,
			"order_number": job.OrderNumber,
		}).Error("Failed to enqueue notification")
	}
}

// Enqueue pushes a job onto the queue. It is bounded by the enqueue timeout
// and survives cancellation of the request that triggered it.
func (d *Dispatcher) Enqueue(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.Notification.EnqueueTimeout)
	defer cancel()

	return d.rdb.LPush(ctx, QueueKey, data).Err()
}

// Run consumes the queue until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("Notification worker started")
	defer d.log.Info("Notification worker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		_, err := d.processNext(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		d.log.WithError(err).Warn("Notification queue poll failed")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

// processNext waits up to the poll timeout for a job and handles it.
// It reports whether a job was taken off the queue.
func (d *Dispatcher) processNext(ctx context.Context) (bool, error) {
	result, err := d.rdb.BRPop(ctx, d.config.Notification.PollTimeout, QueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		d.log.WithError(err).Error("Dropping malformed notification job")
		return true, d.rdb.LPush(context.WithoutCancel(ctx), DeadKey, result[1]).Err()
	}

	d.handle(ctx, &job)
	return true, nil
}

func (d *Dispatcher) handle(ctx context.Context, job *Job) {
	logger := d.log.WithFields(logrus.Fields{
		"job_id":       job.ID,
		"kind":         job.Kind,
		"order_number": job.OrderNumber,
	})

	maxAttempts := d.config.Notification.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	operation := func() error {
		job.Attempts++
		err := d.deliver(ctx, job)
		if err != nil {
			logger.WithError(err).WithField("attempt", job.Attempts).Warn("Notification delivery failed")
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(d.newBackOff(), uint64(maxAttempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		job.LastError = err.Error()
		metrics.NotificationsSent.WithLabelValues(string(job.Kind), "dead").Inc()
		d.deadLetter(ctx, job)
		logger.WithError(err).Error("Notification moved to dead-letter list")
		return
	}

	metrics.NotificationsSent.WithLabelValues(string(job.Kind), "sent").Inc()
	logger.Info("Notification sent")
}

func (d *Dispatcher) deliver(ctx context.Context, job *Job) error {
	switch {
	case job.Kind == KindOrderConfirmation && job.Confirmation != nil:
		return d.sender.SendOrderConfirmationEmail(ctx, *job.Confirmation)
	case job.Kind == KindOrderStatusUpdate && job.StatusUpdate != nil:
		return d.sender.SendOrderStatusUpdateEmail(ctx, *job.StatusUpdate)
	default:
		return backoff.Permanent(fmt.Errorf("unknown notification kind %q", job.Kind))
	}
}

func (d *Dispatcher) deadLetter(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		d.log.WithError(err).Error("Failed to encode dead notification")
		return
	}
	if err := d.rdb.LPush(context.WithoutCancel(ctx), DeadKey, data).Err(); err != nil {
		d.log.WithError(err).Error("Failed to store dead notification")
	}
}

func (d *Dispatcher) orderURL(orderNumber string) string {
	return d.config.Notification.BaseURL + "/orders/" + orderNumber
}

func (d *Dispatcher) confirmationData(o *order.Order) email.OrderConfirmationData {
	items := make([]email.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, email.OrderItem{
			Name:     item.Name,
			Size:     item.Size,
			Quantity: item.Quantity,
			Price:    item.Price.StringFixed(2),
			Total:    item.Subtotal.StringFixed(2),
		})
	}

	return email.OrderConfirmationData{
		EmailTemplateData: email.EmailTemplateData{
			UserName:  o.Shipping.Name,
			UserEmail: o.CustomerEmail(),
		},
		OrderNumber:   o.OrderNumber,
		OrderDate:     o.CreatedAt.Format("02 Jan 2006"),
		Subtotal:      o.Subtotal.StringFixed(2),
		ShippingFee:   o.ShippingFee.StringFixed(2),
		OrderTotal:    o.OrderTotal.StringFixed(2),
		Currency:      o.Currency,
		OrderURL:      d.orderURL(o.OrderNumber),
		Items:         items,
		PaymentMethod: o.Payment.Gateway,
		ShippingAddress: email.Address{
			Name:       o.Shipping.Name,
			Line:       o.Shipping.Address,
			City:       o.Shipping.City,
			State:      o.Shipping.State,
			PostalCode: o.Shipping.Pincode,
			Country:    o.Shipping.Country,
			Phone:      o.Shipping.Phone,
		},
	}
}

func (d *Dispatcher) statusUpdateData(o *order.Order) email.OrderStatusUpdateData {
	var message string
	if n := len(o.Tracking); n > 0 {
		message = o.Tracking[n-1].Message
	}
	return email.OrderStatusUpdateData{
		EmailTemplateData: email.EmailTemplateData{
			UserName:  o.Shipping.Name,
			UserEmail: o.CustomerEmail(),
		},
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		StatusMessage: message,
		OrderURL:      d.orderURL(o.OrderNumber),
	}
}
