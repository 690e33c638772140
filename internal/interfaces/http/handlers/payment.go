// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// PaymentHandler handles checkout and gateway callback endpoints
type PaymentHandler struct {
	checkout *payment.CheckoutService
	payu     *payment.PayUGateway
	config   *config.Config
	log      *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(checkout *payment.CheckoutService, payu *payment.PayUGateway, cfg *config.Config, log *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		checkout: checkout,
		payu:     payu,
		config:   cfg,
		log:      log,
	}
}

// CreatePaymentOrderRequest starts a Razorpay checkout
type CreatePaymentOrderRequest struct {
	Items           []order.ItemInput     `json:"items" binding:"required,min=1,dive"`
	ShippingAddress order.ShippingDetails `json:"shipping_address"`
}

// VerifyPaymentRequest is the Razorpay checkout handler payload. The
// razorpay_* names are what the checkout widget returns and are accepted as-is.
type VerifyPaymentRequest struct {
	OrderID          string `json:"order_id" binding:"max=64"`
	GatewayOrderID   string `json:"gateway_order_id" binding:"max=100"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"max=100"`
	Signature        string `json:"signature" binding:"max=256"`

	RazorpayOrderID   string `json:"razorpay_order_id" binding:"max=100"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"max=100"`
	RazorpaySignature string `json:"razorpay_signature" binding:"max=256"`
}

func (r *VerifyPaymentRequest) callback() *payment.Callback {
	return &payment.Callback{
		GatewayOrderID:   firstNonEmpty(r.GatewayOrderID, r.RazorpayOrderID),
		GatewayPaymentID: firstNonEmpty(r.GatewayPaymentID, r.RazorpayPaymentID),
		Signature:        firstNonEmpty(r.Signature, r.RazorpaySignature),
	}
}

// PayUHashRequest asks the server to sign a PayU form
type PayUHashRequest struct {
	TxnID       string `json:"txnid" binding:"required,max=64"`
	Amount      string `json:"amount" binding:"required"`
	ProductInfo string `json:"productinfo" binding:"required,max=100"`
	FirstName   string `json:"firstname" binding:"required,max=60"`
	Email       string `json:"email" binding:"required,email"`
}

// PayUCheckoutRequest starts a PayU checkout
type PayUCheckoutRequest struct {
	Items           []order.ItemInput     `json:"items" binding:"required,min=1,dive"`
	ShippingAddress order.ShippingDetails `json:"shipping_address"`
	FirstName       string                `json:"firstname" binding:"max=60"`
	Email           string                `json:"email" binding:"omitempty,email"`
	ProductInfo     string                `json:"productinfo" binding:"max=100"`
}

// CreateOrder handles POST /payment/create-order. No order row exists until
// the payment is verified; the returned order_id is the checkout reference.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req CreatePaymentOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	start := h.startRequest(c, payment.GatewayRazorpay, req.Items, req.ShippingAddress)
	resp, err := h.checkout.StartCheckout(c.Request.Context(), start)
	if err != nil {
		respondCheckoutError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyPayment handles POST /payment/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	cb := req.callback()
	if cb.GatewayOrderID == "" || cb.GatewayPaymentID == "" || cb.Signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "gateway_order_id, gateway_payment_id and signature are required",
		})
		return
	}

	created, err := h.checkout.CompleteCheckout(c.Request.Context(), payment.GatewayRazorpay, req.OrderID, cb)
	if err != nil {
		respondCheckoutError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment verified successfully",
		"order":   created,
	})
}

// PayUHash handles POST /payu/hash
func (h *PaymentHandler) PayUHash(c *gin.Context) {
	var req PayUHashRequest
	if !bindJSON(c, &req) {
		return
	}

	if !h.payu.Configured() {
		respondError(c, h.log, payment.ErrGatewayNotConfigured)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "amount must be a positive number",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hash": h.payu.ComputeHash(req.TxnID, req.Amount, req.ProductInfo, req.FirstName, req.Email),
		"key":  h.payu.Key(),
	})
}

// PayUCheckout handles POST /payu/checkout and returns the signed form
func (h *PaymentHandler) PayUCheckout(c *gin.Context) {
	var req PayUCheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	start := h.startRequest(c, payment.GatewayPayU, req.Items, req.ShippingAddress)
	start.ProductInfo = req.ProductInfo
	if req.FirstName != "" || req.Email != "" {
		start.Customer = &payment.Customer{Name: req.FirstName, Email: req.Email}
	}

	resp, err := h.checkout.StartCheckout(c.Request.Context(), start)
	if err != nil {
		respondCheckoutError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// PayUCallback handles POST /payu/callback, the browser form post PayU sends
// to surl/furl. The customer is redirected to the storefront either way.
func (h *PaymentHandler) PayUCallback(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data"})
		return
	}

	fields := make(map[string]string, len(c.Request.PostForm))
	for key := range c.Request.PostForm {
		fields[key] = c.Request.PostForm.Get(key)
	}
	txnid := fields["txnid"]

	created, err := h.checkout.CompleteCheckout(c.Request.Context(), payment.GatewayPayU, "", &payment.Callback{
		GatewayOrderID:   txnid,
		GatewayPaymentID: fields["mihpayid"],
		Fields:           fields,
	})
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"txnid":  txnid,
			"status": fields["status"],
		}).Warn("PayU callback not reconciled")
		c.Redirect(http.StatusSeeOther, h.storefrontURL("/checkout/failed?txnid="+url.QueryEscape(txnid)))
		return
	}

	c.Redirect(http.StatusSeeOther, h.storefrontURL("/orders/"+url.PathEscape(created.OrderNumber)))
}

func (h *PaymentHandler) startRequest(c *gin.Context, gateway string, items []order.ItemInput, shipping order.ShippingDetails) *payment.StartCheckoutRequest {
	req := &payment.StartCheckoutRequest{
		Gateway:  gateway,
		Items:    items,
		Shipping: shipping,
	}
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		req.UserID = &userID
		if req.Shipping.Email == "" {
			req.Shipping.Email, _ = middleware.GetUserEmailFromContext(c)
		}
	} else {
		req.GuestSessionID = existingSessionID(c)
	}
	return req
}

func (h *PaymentHandler) storefrontURL(path string) string {
	return strings.TrimRight(h.config.Notification.BaseURL, "/") + path
}

// respondCheckoutError reports unknown products as a bad checkout request
// rather than a missing resource.
func respondCheckoutError(c *gin.Context, log *logrus.Logger, err error) {
	if statusFor(err) == http.StatusNotFound {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	respondError(c, log, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
