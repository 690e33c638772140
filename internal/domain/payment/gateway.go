// internal/domain/payment/gateway.go
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

const (
	GatewayRazorpay = "razorpay"
	GatewayPayU     = "payu"
)

var (
	// ErrGatewayNotConfigured means credentials are missing; never retried
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
	// ErrGatewayUnavailable covers network failures, timeouts and 5xx answers
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected is a 4xx answer from the gateway
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")
	ErrUnknownGateway     = errors.New("unknown payment gateway")
	ErrSignatureMismatch  = errors.New("payment signature verification failed")
	ErrCheckoutNotFound   = errors.New("checkout session not found or expired")
	ErrCheckoutMismatch   = errors.New("payment does not belong to this checkout")
	ErrCheckoutInProgress = errors.New("payment is already being processed")
)

// Customer is the payer as the gateway sees them
type Customer struct {
	Name  string
	Email string
	Phone string
}

// IntentRequest asks a gateway to prepare a charge
type IntentRequest struct {
	Amount      decimal.Decimal // major units
	Currency    string
	Reference   string // checkout session id
	Description string
	Customer    Customer
}

// Intent is the client-facing result of CreateIntent
type Intent struct {
	Gateway        string            `json:"gateway"`
	GatewayOrderID string            `json:"gateway_order_id"`
	Amount         int64             `json:"amount"` // minor units
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt,omitempty"`
	KeyID          string            `json:"key_id,omitempty"`
	Action         string            `json:"action,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
}

// Callback is the proof of payment sent back by the client or the gateway
type Callback struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	// Fields holds the raw form fields for gateways that sign them all
	Fields map[string]string
}

// Gateway abstracts a payment provider
type Gateway interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	Verify(cb *Callback) bool
}

// ToMinorUnits converts rupees to paise
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
