// Package validation holds field rules shared by request binding and domain checks.
package validation

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// IsPincode reports whether s is a six digit Indian postal code.
func IsPincode(s string) bool {
	return pincodePattern.MatchString(s)
}

// Register installs the custom rules on a validator instance.
func Register(v *validator.Validate) error {
	return v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return IsPincode(fl.Field().String())
	})
}

var (
	ginOnce sync.Once
	ginErr  error
)

// RegisterWithGin installs the custom rules on gin's binding validator.
func RegisterWithGin() error {
	ginOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			ginErr = fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
			return
		}
		ginErr = Register(v)
	})
	return ginErr
}
