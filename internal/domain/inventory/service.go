// internal/domain/inventory/service.go
package inventory

import (
	"context"
		"fmt"

	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
)

const (
	DefaultLowStockThreshold = 5
	MaxLowStockThreshold     = 1000
)

var ErrInvalidThreshold = fmt.Errorf("threshold must be between 0 and %d", MaxLowStockThreshold)

// Alert types
const (
	AlertLowStock   = "low_stock"
	AlertOutOfStock = "out_of_stock"
)

// StockAlert is one size of a live product that is at or below the threshold
type StockAlert struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Category    string `json:"category"`
	Size        string `json:"size"`
	Stock       int    `json:"stock"`
	AlertType   string `json:"alert_type"`
	IsVisible   bool   `json:"is_visible"`
}

// LowStockReport groups the alerts of one run
type LowStockReport struct {
	Threshold  int          `json:"threshold"`
	OutOfStock int          `json:"out_of_stock"`
	LowStock   int          `json:"low_stock"`
	Items      []StockAlert `json:"items"`
}

// StockLevel is the stock of a product broken down by size
type StockLevel struct {
	ProductID uint           `json:"product_id"`
	Total     int            `json:"total"`
	Sizes     map[string]int `json:"sizes"`
}

// Service reads stock across the catalogue
type Service struct {
	db       *gorm.DB
	products *product.Service
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, products *product.Service) *Service {
	return &Service{db: db, products: products}
}

// LowStock lists every size of a non-deleted product whose stock is at or
// below threshold, emptiest first.
func (s *Service) LowStock(ctx context.Context, threshold int) (*LowStockReport, error) {
	if threshold < 0 || threshold > MaxLowStockThreshold {
		return nil, ErrInvalidThreshold
	}

	var rows []StockAlert
	err := s.db.WithContext(ctx).
		Table("product_sizes AS ps").
		Select("p.id AS product_id, p.name AS product_name, p.category, ps.size, ps.stock, p.is_visible").
		Joins("JOIN products AS p ON p.id = ps.product_id").
		Where("p.deleted_at IS NULL AND ps.stock <= ?", threshold).
		Order("ps.stock ASC, p.name ASC, ps.size ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock: %w", err)
	}

	report := &LowStockReport{Threshold: threshold, Items: make([]StockAlert, 0, len(rows))}
	for _, row := range rows {
		if row.Stock == 0 {
			row.AlertType = AlertOutOfStock
			report.OutOfStock++
		} else {
			row.AlertType = AlertLowStock
			report.LowStock++
		}
		report.Items = append(report.Items, row)
	}

	return report, nil
}

// GetStockLevel returns the per-size stock of a product
func (s *Service) GetStockLevel(ctx context.Context, productID uint) (*StockLevel, error) {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	level := &StockLevel{ProductID: p.ID, Sizes: p.SizeStock()}
	for _, qty := range level.Sizes {
		level.Total += qty
	}
	return level, nil
}
