// internal/domain/payment/payu.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/your-org/storefront-backend/internal/config"
)

// PayUGateway signs hosted-checkout form posts. PayU has no server-side
// order creation; the transaction id is generated locally.
type PayUGateway struct {
	key        string
	salt       string
	actionURL  string
	successURL string
	failureURL string
}

// NewPayUGateway creates a PayU adapter
func NewPayUGateway(cfg *config.Config) *PayUGateway {
	return &PayUGateway{
		key:        cfg.Payment.PayU.Key,
		salt:       cfg.Payment.PayU.Salt,
		actionURL:  cfg.Payment.PayU.BaseURL,
		successURL: cfg.Payment.PayU.SuccessURL,
		failureURL: cfg.Payment.PayU.FailureURL,
	}
}

// Name returns the gateway identifier
func (p *PayUGateway) Name() string { return GatewayPayU }

// Key is the merchant key posted with the form
func (p *PayUGateway) Key() string { return p.key }

// Configured reports whether merchant key and salt are set
func (p *PayUGateway) Configured() bool {
	return p.key != "" && p.salt != ""
}

// ComputeHash returns sha512(key|txnid|amount|productinfo|firstname|email|udf1..udf5||||||salt)
// with every udf slot empty.
func (p *PayUGateway) ComputeHash(txnid, amount, productinfo, firstname, email string) string {
	fields := []string{p.key, txnid, amount, productinfo, firstname, email}
	fields = append(fields, make([]string, 10)...) // udf1-udf5 and five reserved slots
	fields = append(fields, p.salt)
	return sha512Hex(strings.Join(fields, "|"))
}

// CreateIntent builds the signed form parameters for PayU hosted checkout
func (p *PayUGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	if !p.Configured() {
		return nil, ErrGatewayNotConfigured
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	txnid := "txn_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	amount := req.Amount.StringFixed(2)
	productinfo := req.Description
	if productinfo == "" {
		productinfo = "Order"
	}
	firstname := firstName(req.Customer.Name)

	return &Intent{
		Gateway:        GatewayPayU,
		GatewayOrderID: txnid,
		Amount:         ToMinorUnits(req.Amount),
		Currency:       req.Currency,
		Action:         p.actionURL,
		Params: map[string]string{
			"key":         p.key,
			"txnid":       txnid,
			"amount":      amount,
			"productinfo": productinfo,
			"firstname":   firstname,
			"email":       req.Customer.Email,
			"phone":       req.Customer.Phone,
			"surl":        p.successURL,
			"furl":        p.failureURL,
			"hash":        p.ComputeHash(txnid, amount, productinfo, firstname, req.Customer.Email),
		},
	}, nil
}

// Verify checks the response hash PayU posts back:
// sha512(salt|status||||||udf5|udf4|udf3|udf2|udf1|email|firstname|productinfo|amount|txnid|key).
// Only successful payments verify.
func (p *PayUGateway) Verify(cb *Callback) bool {
	if cb == nil || !p.Configured() || cb.Fields == nil {
		return false
	}
	f := cb.Fields
	if f["status"] != "success" || f["txnid"] == "" {
		return false
	}
	if cb.GatewayOrderID != "" && cb.GatewayOrderID != f["txnid"] {
		return false
	}

	expected := p.ResponseHash(f)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(f["hash"])))
}

// ResponseHash computes the reverse hash over posted response fields
func (p *PayUGateway) ResponseHash(f map[string]string) string {
	fields := []string{p.salt, f["status"]}
	fields = append(fields, make([]string, 5)...)
	fields = append(fields,
		f["udf5"], f["udf4"], f["udf3"], f["udf2"], f["udf1"],
		f["email"], f["firstname"], f["productinfo"], f["amount"], f["txnid"], p.key,
	)
	return sha512Hex(strings.Join(fields, "|"))
}

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

func firstName(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "Customer"
	}
	return parts[0]
}
