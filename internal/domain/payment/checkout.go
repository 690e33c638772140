// internal/domain/payment/checkout.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
)

const verifyLockTTL = time.Minute

// OrderCreator is the part of the order service checkout depends on
type OrderCreator interface {
	Quote(ctx context.Context, items []order.ItemInput, adj order.Adjustments) (*order.Quote, error)
	CreateOrder(ctx context.Context, in *order.CreateOrderInput) (*order.Order, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*order.Order, error)
}

// CheckoutService runs the verify-then-create payment flow: an intent is
// created against a priced snapshot, and the order only exists once the
// gateway proves the payment.
type CheckoutService struct {
	gateways map[string]Gateway
	orders   OrderCreator
	sessions *SessionStore
	config   *config.Config
	log      *logrus.Logger
}

// NewCheckoutService creates a checkout service over the given gateways
func NewCheckoutService(orders OrderCreator, sessions *SessionStore, cfg *config.Config, log *logrus.Logger, gateways ...Gateway) *CheckoutService {
	byName := make(map[string]Gateway, len(gateways))
	for _, gw := range gateways {
		byName[gw.Name()] = gw
	}
	return &CheckoutService{
		gateways: byName,
		orders:   orders,
		sessions: sessions,
		config:   cfg,
		log:      log,
	}
}

// StartCheckoutRequest is the priced-cart input for a new payment
type StartCheckoutRequest struct {
	Gateway        string
	UserID         *uint
	GuestSessionID string
	Items          []order.ItemInput
	Shipping       order.ShippingDetails
	ProductInfo    string
	// Customer overrides the payer derived from Shipping, field by field
	Customer *Customer
}

// CheckoutResponse is returned to the client to open the gateway checkout
type CheckoutResponse struct {
	CheckoutID     string            `json:"order_id"`
	Gateway        string            `json:"gateway"`
	GatewayOrderID string            `json:"gateway_order_id"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	KeyID          string            `json:"key_id,omitempty"`
	Action         string            `json:"action,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
	Totals         order.Totals      `json:"totals"`
}

// Gateway returns a registered gateway by name
func (s *CheckoutService) Gateway(name string) (Gateway, error) {
	gw, ok := s.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, name)
	}
	return gw, nil
}

// StartCheckout prices the items, creates a gateway intent and stores the
// session that verification will reconcile against.
func (s *CheckoutService) StartCheckout(ctx context.Context, req *StartCheckoutRequest) (*CheckoutResponse, error) {
	gw, err := s.Gateway(req.Gateway)
	if err != nil {
		return nil, err
	}

	if err := order.ValidateShipping(req.Shipping); err != nil {
		return nil, err
	}

	quote, err := s.orders.Quote(ctx, req.Items, order.Adjustments{})
	if err != nil {
		return nil, err
	}

	checkoutID := uuid.NewString()
	description := req.ProductInfo
	if description == "" {
		description = describeItems(quote.Items)
	}

	intent, err := gw.CreateIntent(ctx, IntentRequest{
		Amount:      quote.Totals.OrderTotal,
		Currency:    s.config.Payment.Currency,
		Reference:   checkoutID,
		Description: description,
		Customer:    payer(req),
	})
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:             checkoutID,
		Gateway:        gw.Name(),
		GatewayOrderID: intent.GatewayOrderID,
		UserID:         req.UserID,
		GuestSessionID: req.GuestSessionID,
		Items:          quotedItems(req.Items, quote),
		Shipping:       req.Shipping,
		Totals:         quote.Totals,
		AmountMinor:    intent.Amount,
		Currency:       intent.Currency,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"checkout_id":      checkoutID,
		"gateway":          gw.Name(),
		"gateway_order_id": intent.GatewayOrderID,
		"amount":           quote.Totals.OrderTotal.StringFixed(2),
	}).Info("Checkout started")

	return &CheckoutResponse{
		CheckoutID:     checkoutID,
		Gateway:        gw.Name(),
		GatewayOrderID: intent.GatewayOrderID,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		KeyID:          intent.KeyID,
		Action:         intent.Action,
		Params:         intent.Params,
		Totals:         quote.Totals,
	}, nil
}

// CompleteCheckout verifies the gateway callback and creates the order.
// checkoutID may be empty when the gateway posts back without it; the
// session is then resolved through the gateway order id.
func (s *CheckoutService) CompleteCheckout(ctx context.Context, gatewayName, checkoutID string, cb *Callback) (*order.Order, error) {
	gw, err := s.Gateway(gatewayName)
	if err != nil {
		return nil, err
	}

	if !gw.Verify(cb) {
		metrics.PaymentVerifications.WithLabelValues(gatewayName, "mismatch").Inc()
		s.log.WithFields(logrus.Fields{
			"gateway":          gatewayName,
			"gateway_order_id": cb.GatewayOrderID,
			"checkout_id":      checkoutID,
		}).Warn("Payment signature verification failed")
		return nil, ErrSignatureMismatch
	}
	metrics.PaymentVerifications.WithLabelValues(gatewayName, "verified").Inc()

	// a retried verify after success finds the order instead of the session
	if existing, err := s.orders.GetOrderByPaymentID(ctx, cb.GatewayPaymentID); err == nil {
		return existing, nil
	} else if !errors.Is(err, order.ErrOrderNotFound) {
		return nil, err
	}

	var session *Session
	if checkoutID != "" {
		session, err = s.sessions.Get(ctx, checkoutID)
	} else {
		session, err = s.sessions.GetByGatewayOrder(ctx, cb.GatewayOrderID)
	}
	if err != nil {
		return nil, err
	}
	if session.Gateway != gatewayName || session.GatewayOrderID != cb.GatewayOrderID {
		return nil, ErrCheckoutMismatch
	}

	locked, err := s.sessions.TryLock(ctx, cb.GatewayPaymentID, verifyLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}
	if !locked {
		return nil, ErrCheckoutInProgress
	}
	defer func() {
		if err := s.sessions.Unlock(context.WithoutCancel(ctx), cb.GatewayPaymentID); err != nil {
			s.log.WithError(err).Warn("Failed to release payment lock")
		}
	}()

	expected := session.Totals.OrderTotal
	created, err := s.orders.CreateOrder(ctx, &order.CreateOrderInput{
		UserID:         session.UserID,
		GuestSessionID: session.GuestSessionID,
		Items:          session.Items,
		Shipping:       session.Shipping,
		Payment: order.PaymentDetails{
			Gateway:          gatewayName,
			GatewayOrderID:   cb.GatewayOrderID,
			GatewayPaymentID: cb.GatewayPaymentID,
			Status:           order.PaymentStatusPaid,
			PaidBy:           session.Shipping.Email,
		},
		Adjustments: order.Adjustments{
			ShippingFee: &session.Totals.ShippingFee,
			Tax:         &session.Totals.Tax,
			Discount:    &session.Totals.Discount,
		},
		ExpectedTotal: &expected,
		QuotedPrices:  true,
	})
	if err != nil {
		// the customer has been charged; someone has to refund or fulfil by hand
		metrics.PaymentVerifications.WithLabelValues(gatewayName, "unreconciled").Inc()
		s.log.WithError(err).WithFields(logrus.Fields{
			"reconciliation":   "paid_unreconciled",
			"checkout_id":      session.ID,
			"gateway":          gatewayName,
			"gateway_order_id": cb.GatewayOrderID,
			"payment_id":       cb.GatewayPaymentID,
			"amount":           session.Totals.OrderTotal.StringFixed(2),
		}).Error("Payment captured but no order created, refund required")
		return nil, err
	}

	if err := s.sessions.Delete(context.WithoutCancel(ctx), session); err != nil {
		s.log.WithError(err).WithField("checkout_id", session.ID).Warn("Failed to delete checkout session")
	}

	return created, nil
}

// quotedItems pins every line to the price the intent was created for, so a
// catalogue edit during payment cannot turn a captured payment into a mismatch.
func quotedItems(items []order.ItemInput, quote *order.Quote) []order.ItemInput {
	out := make([]order.ItemInput, len(items))
	for i, item := range items {
		price := quote.Items[i].Price
		item.Price = &price
		out[i] = item
	}
	return out
}

func payer(req *StartCheckoutRequest) Customer {
	c := Customer{
		Name:  req.Shipping.Name,
		Email: req.Shipping.Email,
		Phone: req.Shipping.Phone,
	}
	if o := req.Customer; o != nil {
		if o.Name != "" {
			c.Name = o.Name
		}
		if o.Email != "" {
			c.Email = o.Email
		}
		if o.Phone != "" {
			c.Phone = o.Phone
		}
	}
	return c
}

func describeItems(items []order.OrderItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	desc := []rune(strings.Join(names, ", "))
	if len(desc) > 100 {
		desc = desc[:100]
	}
	return string(desc)
}
