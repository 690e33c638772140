// internal/domain/payment/razorpay.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
)

// RazorpayGateway talks to the Razorpay Orders API
type RazorpayGateway struct {
	keyID      string
	keySecret  string
	baseURL    string
	retries    int
	httpClient *http.Client
	log        *logrus.Logger
}

// CreateOrderRequest is the Razorpay order creation payload
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"` // paise
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// RazorpayOrder represents an order on the Razorpay side
type RazorpayOrder struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	Amount     int64             `json:"amount"`
	AmountPaid int64             `json:"amount_paid"`
	AmountDue  int64             `json:"amount_due"`
	Currency   string            `json:"currency"`
	Receipt    string            `json:"receipt"`
	Status     string            `json:"status"`
	Attempts   int               `json:"attempts"`
	Notes      map[string]string `json:"notes"`
	CreatedAt  int64             `json:"created_at"`
}

// RazorpayError is the error envelope returned by the API
type RazorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Field       string `json:"field"`
	} `json:"error"`
}

// NewRazorpayGateway creates a Razorpay adapter
func NewRazorpayGateway(cfg *config.Config, log *logrus.Logger) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:     cfg.Payment.Razorpay.KeyID,
		keySecret: cfg.Payment.Razorpay.KeySecret,
		baseURL:   strings.TrimRight(cfg.Payment.Razorpay.BaseURL, "/"),
		retries:   cfg.Payment.IntentRetries,
		httpClient: &http.Client{
			Timeout: cfg.Payment.GatewayTimeout,
		},
		log: log,
	}
}

// Name returns the gateway identifier
func (r *RazorpayGateway) Name() string { return GatewayRazorpay }

// KeyID is the publishable key handed to the checkout widget
func (r *RazorpayGateway) KeyID() string { return r.keyID }

func (r *RazorpayGateway) configured() bool {
	return r.keyID != "" && r.keySecret != ""
}

// CreateIntent creates a Razorpay order for the amount in paise
func (r *RazorpayGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if !r.configured() {
		return nil, ErrGatewayNotConfigured
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	createReq := CreateOrderRequest{
		Amount:   ToMinorUnits(req.Amount),
		Currency: req.Currency,
		Receipt:  fmt.Sprintf("rcpt_%d", time.Now().UnixNano()),
		Notes: map[string]string{
			"checkout_id": req.Reference,
		},
	}

	response, err := r.makeAPICall(ctx, http.MethodPost, "/orders", createReq)
	if err != nil {
		return nil, err
	}

	var razorpayOrder RazorpayOrder
	if err := json.Unmarshal(response, &razorpayOrder); err != nil {
		return nil, fmt.Errorf("failed to parse Razorpay order response: %w", err)
	}
	if razorpayOrder.ID == "" {
		return nil, fmt.Errorf("%w: response without order id", ErrGatewayUnavailable)
	}

	r.log.WithFields(logrus.Fields{
		"gateway_order_id": razorpayOrder.ID,
		"checkout_id":      req.Reference,
		"amount":           razorpayOrder.Amount,
	}).Info("Razorpay order created")

	return &Intent{
		Gateway:        GatewayRazorpay,
		GatewayOrderID: razorpayOrder.ID,
		Amount:         razorpayOrder.Amount,
		Currency:       razorpayOrder.Currency,
		Receipt:        razorpayOrder.Receipt,
		KeyID:          r.keyID,
	}, nil
}

// Verify checks razorpay_signature = HMAC-SHA256(order_id|payment_id, key_secret)
func (r *RazorpayGateway) Verify(cb *Callback) bool {
	if cb == nil || !r.configured() || cb.GatewayOrderID == "" || cb.GatewayPaymentID == "" {
		return false
	}
	expected := r.Sign(cb.GatewayOrderID, cb.GatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(cb.Signature))
}

// Sign returns the hex signature Razorpay produces for a payment
func (r *RazorpayGateway) Sign(gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(r.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// makeAPICall makes HTTP calls to Razorpay API. Network errors and 5xx
// answers are retried with exponential backoff; 4xx answers are final.
func (r *RazorpayGateway) makeAPICall(ctx context.Context, method, endpoint string, data interface{}) ([]byte, error) {
	var payload []byte
	if data != nil {
		var err error
		payload, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	var body []byte
	attempt := 0
	operation := func() error {
		attempt++

		req, err := http.NewRequestWithContext(ctx, method, r.baseURL+endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.SetBasicAuth(r.keyID, r.keySecret)
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			r.log.WithError(err).WithField("attempt", attempt).Warn("Razorpay request failed")
			return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: failed to read response: %v", ErrGatewayUnavailable, err)
		}

		switch {
		case resp.StatusCode >= 500:
			r.log.WithFields(logrus.Fields{"status": resp.StatusCode, "attempt": attempt}).
				Warn("Razorpay returned server error")
			return fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
		case resp.StatusCode >= 400:
			var apiErr RazorpayError
			_ = json.Unmarshal(respBody, &apiErr)
			return backoff.Permanent(fmt.Errorf("%w: status %d: %s",
				ErrGatewayRejected, resp.StatusCode, apiErr.Error.Description))
		}

		body = respBody
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	retries := r.retries
	if retries < 0 {
		retries = 0
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ErrGatewayRejected) {
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctxErr)
		}
		return nil, err
	}
	return body, nil
}
