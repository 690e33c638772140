package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrPaymentNotVerified   = errors.New("payment has not been verified")
	ErrPriceMismatch        = errors.New("price has changed")
	ErrTotalMismatch        = errors.New("order total does not match computed total")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")
)

// ValidationError reports a request field that failed business validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
