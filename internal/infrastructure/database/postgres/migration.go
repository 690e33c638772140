// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log *logrus.Logger) *Migration {
	return &Migration{
		db:  db,
		log: log,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&product.Product{},
		&product.ProductSize{},
		&cart.CartItem{},
		&order.Order{},
		&order.OrderItem{},
		&order.TrackingEvent{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the composite indexes the query paths rely on
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_category_visible ON products(category, is_visible)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_tracking_order_time ON order_tracking_events(order_id, occurred_at)",
	}

	failed := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.log.WithError(err).Warn("Failed to create index")
			failed++
		}
	}

	m.log.WithFields(logrus.Fields{
		"created": len(indexes) - failed,
		"failed":  failed,
	}).Info("Database indexes ensured")
	return nil
}

// SeedInitialData adds a small catalogue to an empty development database
func (m *Migration) SeedInitialData(ctx context.Context, products *product.Service) error {
	var count int64
	if err := m.db.WithContext(ctx).Model(&product.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := []product.ProductCreateRequest{
		{
			Name:        "Block Print Cotton Kurta",
			Category:    "kurtas",
			Description: "Hand block printed cotton kurta",
			Price:       decimal.RequireFromString("1299"),
			SizeStock:   map[string]int{"S": 10, "M": 15, "L": 8},
		},
		{
			Name:        "Linen Straight Pants",
			Category:    "bottoms",
			Description: "Relaxed fit linen pants",
			Price:       decimal.RequireFromString("999"),
			SizeStock:   map[string]int{"M": 12, "L": 6, "XL": 0},
		},
		{
			Name:        "Chanderi Dupatta",
			Category:    "accessories",
			Description: "Lightweight chanderi silk dupatta",
			Price:       decimal.RequireFromString("749.50"),
			SizeStock:   map[string]int{"FREE": 20},
		},
	}

	for i := range seed {
		if _, err := products.CreateProduct(ctx, &seed[i]); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", seed[i].Name, err)
		}
	}

	m.log.WithField("products", len(seed)).Info("Seeded development catalogue")
	return nil
}
