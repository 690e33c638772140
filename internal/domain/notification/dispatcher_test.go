package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/testutil"
)

type fakeSender struct {
	mu            sync.Mutex
	failures      int
	confirmations []email.OrderConfirmationData
	updates       []email.OrderStatusUpdateData
	calls         int
}

func (f *fakeSender) SendOrderConfirmationEmail(_ context.Context, data email.OrderConfirmationData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("smtp unavailable")
	}
	f.confirmations = append(f.confirmations, data)
	return nil
}

func (f *fakeSender) SendOrderStatusUpdateEmail(_ context.Context, data email.OrderStatusUpdateData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("smtp unavailable")
	}
	f.updates = append(f.updates, data)
	return nil
}

func newDispatcher(t *testing.T, sender Sender) (*Dispatcher, *miniredis.Miniredis) {
	t.Helper()
	rdb, mr := testutil.NewRedis(t)
	d := NewDispatcher(rdb, sender, testutil.Config(), logger.Discard())
	d.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return d, mr
}

func sampleOrder() *order.Order {
	return &order.Order{
		OrderNumber: "ORD-KX2P9Q-1A2B3C",
		Status:      order.OrderStatusConfirmed,
		Subtotal:    decimal.RequireFromString("1000"),
		ShippingFee: decimal.Zero,
		OrderTotal:  decimal.RequireFromString("1000"),
		Currency:    "INR",
		CreatedAt:   time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		Shipping: order.ShippingDetails{
			Name:    "Asha Rao",
			Email:   "asha@example.com",
			Address: "12 MG Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			Pincode: "560001",
			Country: "India",
			Phone:   "9876543210",
		},
		Payment: order.PaymentDetails{Gateway: "razorpay"},
		Items: []order.OrderItem{{
			Name:     "Kurta",
			Size:     "M",
			Quantity: 2,
			Price:    decimal.RequireFromString("500"),
			Subtotal: decimal.RequireFromString("1000"),
		}},
	}
}

func TestOrderConfirmedIsDelivered(t *testing.T) {
	sender := &fakeSender{}
	d, mr := newDispatcher(t, sender)
	ctx := context.Background()

	d.OrderConfirmed(ctx, sampleOrder())
	queued, err := mr.List(QueueKey)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	took, err := d.processNext(ctx)
	require.NoError(t, err)
	assert.True(t, took)

	require.Len(t, sender.confirmations, 1)
	got := sender.confirmations[0]
	assert.Equal(t, "asha@example.com", got.UserEmail)
	assert.Equal(t, "1000.00", got.OrderTotal)
	assert.Equal(t, "19 Oct 2026", got.OrderDate)
	assert.Equal(t, "http://localhost:3000/orders/ORD-KX2P9Q-1A2B3C", got.OrderURL)
	assert.Equal(t, "500.00", got.Items[0].Price)
	assert.False(t, mr.Exists(DeadKey))
}

func TestEnqueueSurvivesCancelledRequest(t *testing.T) {
	d, mr := newDispatcher(t, &fakeSender{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, d.Enqueue(ctx, &Job{Kind: KindOrderConfirmation, OrderNumber: "ORD-1"}))
	queued, err := mr.List(QueueKey)
	require.NoError(t, err)
	assert.Len(t, queued, 1)
}

func TestEnqueueFailureIsSwallowed(t *testing.T) {
	d, mr := newDispatcher(t, &fakeSender{})
	mr.Close()

	assert.NotPanics(t, func() { d.OrderConfirmed(context.Background(), sampleOrder()) })
}

func TestNoEmailSkipsNotification(t *testing.T) {
	d, mr := newDispatcher(t, &fakeSender{})
	o := sampleOrder()
	o.Shipping.Email = ""

	d.OrderConfirmed(context.Background(), o)
	assert.False(t, mr.Exists(QueueKey))
}

func TestRetriesThenDelivers(t *testing.T) {
	sender := &fakeSender{failures: 2}
	d, mr := newDispatcher(t, sender)
	ctx := context.Background()

	o := sampleOrder()
	o.Status = order.OrderStatusShipped
	o.Tracking = []order.TrackingEvent{{Status: order.OrderStatusShipped, Message: "Handed to courier"}}
	d.OrderStatusChanged(ctx, o)

	_, err := d.processNext(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, sender.calls)
	require.Len(t, sender.updates, 1)
	assert.Equal(t, "shipped", sender.updates[0].Status)
	assert.Equal(t, "Handed to courier", sender.updates[0].StatusMessage)
	assert.False(t, mr.Exists(DeadKey))
}

func TestExhaustedJobGoesToDeadLetter(t *testing.T) {
	sender := &fakeSender{failures: 10}
	d, mr := newDispatcher(t, sender)
	ctx := context.Background()

	d.OrderConfirmed(ctx, sampleOrder())
	_, err := d.processNext(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, sender.calls)
	dead, err := mr.List(DeadKey)
	require.NoError(t, err)
	require.Len(t, dead, 1)

	var job Job
	require.NoError(t, json.Unmarshal([]byte(dead[0]), &job))
	assert.Equal(t, 3, job.Attempts)
	assert.Equal(t, "smtp unavailable", job.LastError)
	assert.Equal(t, "ORD-KX2P9Q-1A2B3C", job.OrderNumber)
}

func TestUnknownKindIsNotRetried(t *testing.T) {
	sender := &fakeSender{}
	d, mr := newDispatcher(t, sender)
	ctx := context.Background()

	require.NoError(t, d.Enqueue(ctx, &Job{Kind: "sms"}))
	_, err := d.processNext(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, sender.calls)
	dead, err := mr.List(DeadKey)
	require.NoError(t, err)
	assert.Len(t, dead, 1)
}

func TestEmptyPollReturnsWithoutJob(t *testing.T) {
	d, _ := newDispatcher(t, &fakeSender{})

	took, err := d.processNext(context.Background())
	require.NoError(t, err)
	assert.False(t, took)
}

func TestRunStopsOnCancel(t *testing.T) {
	sender := &fakeSender{}
	d, _ := newDispatcher(t, sender)
	ctx, cancel := context.WithCancel(context.Background())

	d.OrderConfirmed(ctx, sampleOrder())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.confirmations) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
