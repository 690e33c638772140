// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles product business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Category  string `form:"category"`
	Search    string `form:"search"`
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
	InStock   *bool  `form:"in_stock"`
	// VisibleOnly is set by public handlers, never bound from the query
	VisibleOnly bool `form:"-"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	Name        string          `json:"name" binding:"required,max=255"`
	Category    string          `json:"category" binding:"required,max=100"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	SizeStock   map[string]int  `json:"size_stock" binding:"required,min=1,dive,keys,required,max=20,endkeys,min=0"`
	IsVisible   *bool           `json:"is_visible"`
}

// ProductUpdateRequest represents product update data
type ProductUpdateRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=255"`
	Category    *string          `json:"category" binding:"omitempty,max=100"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	IsVisible   *bool            `json:"is_visible"`
}

// ProductResponse represents product response with pagination
type ProductResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// GetProducts retrieves products with filtering and pagination
func (s *Service) GetProducts(ctx context.Context, req *ProductListRequest) (*ProductResponse, error) {
	var products []Product
	var total int64

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Product{})

	if req.VisibleOnly {
		query = query.Where("is_visible = ?", true)
	}

	if req.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(req.Category))
	}

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", search, search)
	}

	if req.InStock != nil {
		query = query.Where("in_stock = ?", *req.InStock)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	err := query.
		Preload("Sizes", func(db *gorm.DB) *gorm.DB { return db.Order("size ASC") }).
		Order(s.buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).Limit(req.Limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ProductResponse{
		Products: products,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	return loadProduct(s.db.WithContext(ctx), id)
}

// CreateProduct creates a product together with its size stock
func (s *Service) CreateProduct(ctx context.Context, req *ProductCreateRequest) (*Product, error) {
	if !req.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	product := Product{
		Name:        strings.TrimSpace(req.Name),
		Slug:        generateSlug(req.Name),
		Category:    strings.TrimSpace(req.Category),
		Description: req.Description,
		Price:       req.Price.Round(2),
		IsVisible:   true,
	}
	if req.IsVisible != nil {
		product.IsVisible = *req.IsVisible
	}

	sizes := make([]string, 0, len(req.SizeStock))
	for size := range req.SizeStock {
		sizes = append(sizes, size)
	}
	sort.Strings(sizes)
	for _, size := range sizes {
		stock := req.SizeStock[size]
		if stock < 0 {
			return nil, ErrInvalidStock
		}
		product.Sizes = append(product.Sizes, ProductSize{Size: size, Stock: stock})
	}
	product.RecomputeStock()

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return &product, nil
}

// UpdateProduct updates descriptive fields, price and visibility
func (s *Service) UpdateProduct(ctx context.Context, id uint, req *ProductUpdateRequest) (*Product, error) {
	db := s.db.WithContext(ctx)

	product, err := loadProduct(db, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
		updates["slug"] = generateSlug(*req.Name)
	}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, ErrInvalidPrice
		}
		updates["price"] = req.Price.Round(2)
	}
	if req.IsVisible != nil {
		updates["is_visible"] = *req.IsVisible
	}

	if len(updates) > 0 {
		if err := db.Model(product).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}

	return loadProduct(db, id)
}

// SetVisibility hides or shows a product
func (s *Service) SetVisibility(ctx context.Context, id uint, visible bool) error {
	result := s.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Update("is_visible", visible)
	if result.Error != nil {
		return fmt.Errorf("failed to update visibility: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SetSizeStock overwrites the stock of the given sizes, creating sizes that
// do not exist yet, and refreshes the aggregate stock fields.
func (s *Service) SetSizeStock(ctx context.Context, id uint, sizeStock map[string]int) (*Product, error) {
	for _, stock := range sizeStock {
		if stock < 0 {
			return nil, ErrInvalidStock
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrProductNotFound
		}

		for size, stock := range sizeStock {
			result := tx.Model(&ProductSize{}).
				Where("product_id = ? AND size = ?", id, size).
				Update("stock", stock)
			if result.Error != nil {
				return fmt.Errorf("failed to update size %s: %w", size, result.Error)
			}
			if result.RowsAffected == 0 {
				if err := tx.Create(&ProductSize{ProductID: id, Size: size, Stock: stock}).Error; err != nil {
					return fmt.Errorf("failed to add size %s: %w", size, err)
				}
			}
		}

		return refreshAggregates(tx, id, 0)
	})
	if err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, id)
}

// DeleteProduct soft deletes a product; historical orders keep their snapshots
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Product{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// LoadForOrder loads a purchasable product inside the caller's transaction.
func LoadForOrder(tx *gorm.DB, id uint) (*Product, error) {
	product, err := loadProduct(tx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsPurchasable() {
		return nil, fmt.Errorf("%w: '%s'", ErrProductUnavailable, product.Name)
	}
	return product, nil
}

// DecrementStock atomically removes quantity units of a size and counts them
// as bought. The update only applies while enough stock remains, so two
// concurrent callers can never drive the size below zero.
func DecrementStock(tx *gorm.DB, productID uint, name, size string, quantity int) error {
	result := tx.Model(&ProductSize{}).
		Where("product_id = ? AND size = ? AND stock >= ?", productID, size, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to decrement stock: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var current ProductSize
		err := tx.Where("product_id = ? AND size = ?", productID, size).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: '%s' size %s", ErrSizeNotFound, name, size)
		}
		if err != nil {
			return fmt.Errorf("failed to read stock: %w", err)
		}
		return &InsufficientStockError{
			ProductID:   productID,
			ProductName: name,
			Size:        size,
			Available:   current.Stock,
			Requested:   quantity,
		}
	}

	return refreshAggregates(tx, productID, quantity)
}

// RestoreStock returns units to a size, e.g. when an order is cancelled.
func RestoreStock(tx *gorm.DB, productID uint, size string, quantity int) error {
	result := tx.Model(&ProductSize{}).
		Where("product_id = ? AND size = ?", productID, size).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to restore stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if err := tx.Create(&ProductSize{ProductID: productID, Size: size, Stock: quantity}).Error; err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}
	return refreshAggregates(tx, productID, -quantity)
}

// refreshAggregates recomputes current_stock and in_stock from the size rows
// and moves the buys counter by boughtDelta.
func refreshAggregates(tx *gorm.DB, productID uint, boughtDelta int) error {
	sum := gorm.Expr("(SELECT COALESCE(SUM(stock), 0) FROM product_sizes WHERE product_id = ?)", productID)

	err := tx.Model(&Product{}).Unscoped().Where("id = ?", productID).UpdateColumns(map[string]interface{}{
		"current_stock": sum,
		"buys":          gorm.Expr("CASE WHEN buys + ? < 0 THEN 0 ELSE buys + ? END", boughtDelta, boughtDelta),
		"updated_at":    time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to refresh stock totals: %w", err)
	}

	err = tx.Model(&Product{}).Unscoped().Where("id = ?", productID).
		UpdateColumn("in_stock", gorm.Expr("current_stock > 0")).Error
	if err != nil {
		return fmt.Errorf("failed to refresh stock flag: %w", err)
	}
	return nil
}

func loadProduct(db *gorm.DB, id uint) (*Product, error) {
	var product Product
	err := db.Preload("Sizes", func(db *gorm.DB) *gorm.DB { return db.Order("size ASC") }).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// buildOrderClause builds ORDER BY clause for sorting
func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"name":          true,
		"price":         true,
		"created_at":    true,
		"buys":          true,
		"current_stock": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}

// generateSlug generates URL-friendly slug from name
func generateSlug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	return slug + "-" + uuid.NewString()[:8]
}
