package product

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrSizeNotFound       = errors.New("size not offered for product")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidStock       = errors.New("stock cannot be negative")
	ErrInvalidPrice       = errors.New("price must be greater than zero")
)

// InsufficientStockError names the item that could not be fulfilled.
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Size        string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for '%s' (size %s): available %d, requested %d",
		e.ProductName, e.Size, e.Available, e.Requested)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
