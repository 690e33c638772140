package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// statusFor maps domain errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	var validationErr *order.ValidationError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, product.ErrInvalidPrice),
		errors.Is(err, product.ErrInvalidStock),
		errors.Is(err, product.ErrProductUnavailable),
		errors.Is(err, product.ErrSizeNotFound),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrSessionRequired),
		errors.Is(err, inventory.ErrInvalidThreshold),
		errors.Is(err, order.ErrPaymentNotVerified),
		errors.Is(err, payment.ErrUnknownGateway),
		errors.Is(err, payment.ErrSignatureMismatch),
		errors.Is(err, payment.ErrCheckoutNotFound),
		errors.Is(err, payment.ErrCheckoutMismatch):
		return http.StatusBadRequest
	case errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, product.ErrInsufficientStock),
		errors.Is(err, order.ErrPriceMismatch),
		errors.Is(err, order.ErrTotalMismatch),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, payment.ErrCheckoutInProgress):
		return http.StatusConflict
	case errors.Is(err, payment.ErrGatewayUnavailable),
		errors.Is(err, payment.ErrGatewayRejected):
		return http.StatusBadGateway
	case errors.Is(err, payment.ErrGatewayNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Client errors carry the domain
// message; server errors are logged and answered generically.
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"path":       c.FullPath(),
		}).Error("Request failed")
		_ = c.Error(err)
	}

	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		message = "Internal server error"
	case http.StatusBadGateway:
		message = "Payment gateway error, please retry"
	case http.StatusServiceUnavailable:
		message = "Payment method is not available"
	case http.StatusGatewayTimeout:
		message = "Request timed out"
	}

	c.JSON(status, gin.H{"error": message})
}

// bindJSON binds and validates the body, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return uint(id), true
}
