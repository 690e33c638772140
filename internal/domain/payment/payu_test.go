package payment

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/testutil"
)

func TestPayUHashIsDeterministic(t *testing.T) {
	gw := NewPayUGateway(testutil.Config())

	first := gw.ComputeHash("txn_1", "100.00", "Test", "A", "a@b.com")
	second := gw.ComputeHash("txn_1", "100.00", "Test", "A", "a@b.com")
	assert.Equal(t, first, second)
	assert.Len(t, first, 128)

	sum := sha512.Sum512([]byte("payu_key|txn_1|100.00|Test|A|a@b.com|||||||||||payu_salt"))
	assert.Equal(t, hex.EncodeToString(sum[:]), first)
}

func TestPayUHashChangesWithEveryField(t *testing.T) {
	gw := NewPayUGateway(testutil.Config())
	base := gw.ComputeHash("txn_1", "100.00", "Test", "A", "a@b.com")

	variants := []string{
		gw.ComputeHash("txn_2", "100.00", "Test", "A", "a@b.com"),
		gw.ComputeHash("txn_1", "100.01", "Test", "A", "a@b.com"),
		gw.ComputeHash("txn_1", "100.00", "Test2", "A", "a@b.com"),
		gw.ComputeHash("txn_1", "100.00", "Test", "B", "a@b.com"),
		gw.ComputeHash("txn_1", "100.00", "Test", "A", "b@b.com"),
	}
	for i, v := range variants {
		assert.NotEqual(t, base, v, "variant %d", i)
	}

	cfg := testutil.Config()
	cfg.Payment.PayU.Salt = "other_salt"
	assert.NotEqual(t, base, NewPayUGateway(cfg).ComputeHash("txn_1", "100.00", "Test", "A", "a@b.com"))

	cfg = testutil.Config()
	cfg.Payment.PayU.Key = "other_key"
	assert.NotEqual(t, base, NewPayUGateway(cfg).ComputeHash("txn_1", "100.00", "Test", "A", "a@b.com"))
}

func TestPayUCreateIntent(t *testing.T) {
	gw := NewPayUGateway(testutil.Config())

	intent, err := gw.CreateIntent(context.Background(), IntentRequest{
		Amount:      decimal.RequireFromString("250"),
		Currency:    "INR",
		Description: "Linen Shirt",
		Customer:    Customer{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210"},
	})
	require.NoError(t, err)

	p := intent.Params
	assert.Equal(t, intent.GatewayOrderID, p["txnid"])
	assert.Equal(t, "250.00", p["amount"])
	assert.Equal(t, "Asha", p["firstname"])
	assert.Equal(t, int64(25000), intent.Amount)
	assert.Equal(t, "https://test.payu.in/_payment", intent.Action)
	assert.Equal(t, gw.ComputeHash(p["txnid"], "250.00", "Linen Shirt", "Asha", "asha@example.com"), p["hash"])
}

func TestPayUNotConfigured(t *testing.T) {
	cfg := testutil.Config()
	cfg.Payment.PayU.Salt = ""
	_, err := NewPayUGateway(cfg).CreateIntent(context.Background(), IntentRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrGatewayNotConfigured)
}

func payuResponse(gw *PayUGateway, status string) map[string]string {
	fields := map[string]string{
		"status":      status,
		"txnid":       "txn_abc",
		"amount":      "250.00",
		"productinfo": "Linen Shirt",
		"firstname":   "Asha",
		"email":       "asha@example.com",
		"mihpayid":    "403993715523",
	}
	fields["hash"] = gw.ResponseHash(fields)
	return fields
}

func TestPayUVerify(t *testing.T) {
	gw := NewPayUGateway(testutil.Config())

	fields := payuResponse(gw, "success")
	sum := sha512.Sum512([]byte("payu_salt|success||||||||||asha@example.com|Asha|Linen Shirt|250.00|txn_abc|payu_key"))
	require.Equal(t, hex.EncodeToString(sum[:]), fields["hash"])

	assert.True(t, gw.Verify(&Callback{GatewayOrderID: "txn_abc", Fields: fields}))

	tampered := payuResponse(gw, "success")
	tampered["amount"] = "1.00"
	assert.False(t, gw.Verify(&Callback{GatewayOrderID: "txn_abc", Fields: tampered}))

	assert.False(t, gw.Verify(&Callback{GatewayOrderID: "txn_other", Fields: fields}))
	assert.False(t, gw.Verify(&Callback{GatewayOrderID: "txn_abc", Fields: payuResponse(gw, "failure")}))
	assert.False(t, gw.Verify(&Callback{GatewayOrderID: "txn_abc"}))
}
