package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/testutil"
)

func confirmationData() OrderConfirmationData {
	return OrderConfirmationData{
		EmailTemplateData: EmailTemplateData{UserName: "Asha <Rao>", UserEmail: "asha@example.com"},
		OrderNumber:       "ORD-KX2P9Q-1A2B3C",
		OrderDate:         "19 Oct 2026",
		Subtotal:          "1000.00",
		ShippingFee:       "0.00",
		OrderTotal:        "1000.00",
		Currency:          "INR",
		Items: []OrderItem{
			{Name: "Kurta", Size: "M", Quantity: 2, Price: "500.00", Total: "1000.00"},
		},
		ShippingAddress: Address{Name: "Asha Rao", City: "Bengaluru", PostalCode: "560001"},
	}
}

func TestRenderOrderConfirmation(t *testing.T) {
	svc, err := NewEmailService(testutil.Config(), logger.Discard())
	require.NoError(t, err)

	data := confirmationData()
	data.EmailTemplateData = svc.baseData(data.UserName, data.UserEmail)
	html, err := svc.renderTemplate(EmailTypeOrderConfirmation, data)
	require.NoError(t, err)

	assert.Contains(t, html, "ORD-KX2P9Q-1A2B3C")
	assert.Contains(t, html, "Kurta")
	assert.Contains(t, html, "INR 1000.00")
	assert.Contains(t, html, "Asha &lt;Rao&gt;")
	assert.Contains(t, html, "http://localhost:3000/support")
}

func TestRenderStatusUpdate(t *testing.T) {
	svc, err := NewEmailService(testutil.Config(), logger.Discard())
	require.NoError(t, err)

	html, err := svc.renderTemplate(EmailTypeOrderStatusUpdate, OrderStatusUpdateData{
		OrderNumber:   "ORD-1",
		Status:        "shipped",
		StatusMessage: "Handed to courier",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>shipped</strong>")
	assert.Contains(t, html, "Handed to courier")
}

func TestLogProviderSendsNothing(t *testing.T) {
	svc, err := NewEmailService(testutil.Config(), logger.Discard())
	require.NoError(t, err)

	assert.NoError(t, svc.SendOrderConfirmationEmail(context.Background(), confirmationData()))
}

func TestMissingRecipient(t *testing.T) {
	svc, err := NewEmailService(testutil.Config(), logger.Discard())
	require.NoError(t, err)

	data := confirmationData()
	data.UserEmail = ""
	assert.Error(t, svc.SendOrderConfirmationEmail(context.Background(), data))
}

func TestResendProvider(t *testing.T) {
	var got ResendEmailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testutil.Config()
	cfg.Email.Provider = "resend"
	cfg.Email.APIKey = "re_test"
	svc, err := NewEmailService(cfg, logger.Discard())
	require.NoError(t, err)
	svc.endpoints["resend"] = server.URL

	require.NoError(t, svc.SendOrderConfirmationEmail(context.Background(), confirmationData()))
	assert.Equal(t, []string{"asha@example.com"}, got.To)
	assert.Equal(t, "Storefront <noreply@example.com>", got.From)
	assert.True(t, strings.HasPrefix(got.Subject, "Order Confirmation"))
}

func TestSendGridUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testutil.Config()
	cfg.Email.Provider = "sendgrid"
	cfg.Email.APIKey = "sg_test"
	svc, err := NewEmailService(cfg, logger.Discard())
	require.NoError(t, err)
	svc.endpoints["sendgrid"] = server.URL

	err = svc.SendOrderStatusUpdateEmail(context.Background(), OrderStatusUpdateData{
		EmailTemplateData: EmailTemplateData{UserEmail: "asha@example.com"},
		OrderNumber:       "ORD-1",
		Status:            "shipped",
	})
	assert.ErrorContains(t, err, "status 429")
}

func TestUnsupportedProvider(t *testing.T) {
	cfg := testutil.Config()
	cfg.Email.Provider = "pigeon"
	svc, err := NewEmailService(cfg, logger.Discard())
	require.NoError(t, err)

	err = svc.SendEmail(context.Background(), &Email{To: []string{"a@b.com"}})
	assert.ErrorContains(t, err, "unsupported email provider")
}

func TestBuildMIMEMessage(t *testing.T) {
	msg := string(buildMIMEMessage("Shop <shop@example.com>", "help@example.com", &Email{
		To:          []string{"a@b.com", "c@d.com"},
		Subject:     "Hi",
		HTMLContent: "<p>x</p>",
	}))
	assert.Contains(t, msg, "To: a@b.com, c@d.com\r\n")
	assert.Contains(t, msg, "Reply-To: help@example.com\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>x</p>"))
}
