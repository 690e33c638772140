package product

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/your-org/storefront-backend/internal/pkg/testutil"
	"gorm.io/gorm"
)

type ProductServiceSuite struct {
	suite.Suite
	db  *gorm.DB
	svc *Service
	ctx context.Context
}

func TestProductServiceSuite(t *testing.T) {
	suite.Run(t, new(ProductServiceSuite))
}

func (s *ProductServiceSuite) SetupTest() {
	s.db = testutil.NewDB(s.T(), &Product{}, &ProductSize{})
	s.svc = NewService(s.db, testutil.Config())
	s.ctx = context.Background()
}

func (s *ProductServiceSuite) create(name string, price string, sizes map[string]int) *Product {
	p, err := s.svc.CreateProduct(s.ctx, &ProductCreateRequest{
		Name:      name,
		Category:  "shirts",
		Price:     decimal.RequireFromString(price),
		SizeStock: sizes,
	})
	s.Require().NoError(err)
	return p
}

func (s *ProductServiceSuite) TestCreateProductComputesAggregates() {
	p := s.create("Linen Shirt", "1499.00", map[string]int{"M": 3, "L": 2, "S": 0})

	s.Equal(5, p.CurrentStock)
	s.True(p.InStock)
	s.True(p.IsVisible)
	s.Contains(p.Slug, "linen-shirt-")

	loaded, err := s.svc.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(map[string]int{"S": 0, "M": 3, "L": 2}, loaded.SizeStock())
	s.True(decimal.RequireFromString("1499").Equal(loaded.Price))
}

func (s *ProductServiceSuite) TestCreateProductRejectsNonPositivePrice() {
	_, err := s.svc.CreateProduct(s.ctx, &ProductCreateRequest{
		Name:      "Free Thing",
		Category:  "misc",
		Price:     decimal.Zero,
		SizeStock: map[string]int{"M": 1},
	})
	s.Error(err)
}

func (s *ProductServiceSuite) TestDecrementStockUpdatesSizeAndBuys() {
	p := s.create("Tee", "500", map[string]int{"M": 3, "L": 1})

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return DecrementStock(tx, p.ID, p.Name, "M", 2)
	})
	s.Require().NoError(err)

	loaded, err := s.svc.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	stock, ok := loaded.StockFor("M")
	s.True(ok)
	s.Equal(1, stock)
	s.Equal(2, loaded.CurrentStock)
	s.Equal(2, loaded.Buys)
	s.True(loaded.InStock)
}

func (s *ProductServiceSuite) TestDecrementStockInsufficient() {
	p := s.create("Tee", "500", map[string]int{"M": 1})

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return DecrementStock(tx, p.ID, p.Name, "M", 2)
	})

	var stockErr *InsufficientStockError
	s.Require().True(errors.As(err, &stockErr))
	s.Equal("M", stockErr.Size)
	s.Equal(1, stockErr.Available)
	s.Equal(2, stockErr.Requested)
	s.True(errors.Is(err, ErrInsufficientStock))

	loaded, err := s.svc.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(1, loaded.CurrentStock)
	s.Equal(0, loaded.Buys)
}

// sellBeforeNextStockUpdate makes another buyer take units of a size right
// before the next UPDATE on product_sizes executes, after any read the caller
// has already done.
func (s *ProductServiceSuite) sellBeforeNextStockUpdate(productID uint, size string, quantity int) *atomic.Bool {
	var fired atomic.Bool
	err := s.db.Callback().Update().Before("gorm:begin_transaction").Register("test:competing_sale", func(db *gorm.DB) {
		if db.Statement.Table != "product_sizes" || !fired.CompareAndSwap(false, true) {
			return
		}
		err := s.db.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE product_sizes SET stock = stock - ? WHERE product_id = ? AND size = ?", quantity, productID, size).Error
		s.Require().NoError(err)
	})
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = s.db.Callback().Update().Remove("test:competing_sale") })
	return &fired
}

func (s *ProductServiceSuite) TestDecrementStockLosesToInterleavedSale() {
	p := s.create("Tee", "500", map[string]int{"M": 1})
	fired := s.sellBeforeNextStockUpdate(p.ID, "M", 1)

	err := DecrementStock(s.db, p.ID, p.Name, "M", 1)
	s.Require().True(fired.Load())

	var stockErr *InsufficientStockError
	s.Require().True(errors.As(err, &stockErr), "decrement must not apply to stock sold in between: %v", err)
	s.Equal(0, stockErr.Available)

	var size ProductSize
	s.Require().NoError(s.db.Where("product_id = ? AND size = ?", p.ID, "M").First(&size).Error)
	s.Equal(0, size.Stock)

	loaded, err := s.svc.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(0, loaded.Buys)
}

func (s *ProductServiceSuite) TestDecrementStockSeesPartialInterleavedSale() {
	p := s.create("Tee", "500", map[string]int{"M": 3})
	s.sellBeforeNextStockUpdate(p.ID, "M", 2)

	err := DecrementStock(s.db, p.ID, p.Name, "M", 2)

	var stockErr *InsufficientStockError
	s.Require().True(errors.As(err, &stockErr))
	s.Equal(1, stockErr.Available)
	s.Equal(2, stockErr.Requested)

	s.Require().NoError(DecrementStock(s.db, p.ID, p.Name, "M", 1))
	loaded, err := s.svc.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	stock, _ := loaded.StockFor("M")
	s.Equal(0, stock)
}

func (s *ProductServiceSuite) TestDecrementStockUnknownSize() {
	p := s.create("Tee", "500", map[string]int{"M": 1})

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return DecrementStock(tx, p.ID, p.Name, "XXL", 1)
	})
	s.True(errors.Is(err, ErrSizeNotFound))
}

func (s *ProductServiceSuite) TestLastUnitFlipsInStock() {
	p := s.create("Cap", "250", map[string]int{"Free": 1})

	s.Require().NoError(s.db.Transaction(func(tx *gorm.DB) error {
		return DecrementStock(tx, p.ID, p.Name, "Free", 1)
	}))

	loaded, err := s.svc.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(0, loaded.CurrentStock)
	s.False(loaded.InStock)

	s.Require().NoError(s.db.Transaction(func(tx *gorm.DB) error {
		return RestoreStock(tx, p.ID, "Free", 1)
	}))

	loaded, err = s.svc.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(1, loaded.CurrentStock)
	s.True(loaded.InStock)
	s.Equal(0, loaded.Buys)
}

func (s *ProductServiceSuite) TestSetSizeStockAddsAndOverwrites() {
	p := s.create("Hoodie", "1999", map[string]int{"M": 1})

	updated, err := s.svc.SetSizeStock(s.ctx, p.ID, map[string]int{"M": 4, "XL": 2})
	s.Require().NoError(err)
	s.Equal(map[string]int{"M": 4, "XL": 2}, updated.SizeStock())
	s.Equal(6, updated.CurrentStock)

	_, err = s.svc.SetSizeStock(s.ctx, p.ID, map[string]int{"M": -1})
	s.ErrorIs(err, ErrInvalidStock)

	_, err = s.svc.SetSizeStock(s.ctx, 9999, map[string]int{"M": 1})
	s.ErrorIs(err, ErrProductNotFound)
}

func (s *ProductServiceSuite) TestVisibilityAndSoftDelete() {
	visible := s.create("Visible", "100", map[string]int{"M": 1})
	hidden := s.create("Hidden", "100", map[string]int{"M": 1})
	s.Require().NoError(s.svc.SetVisibility(s.ctx, hidden.ID, false))

	public, err := s.svc.GetProducts(s.ctx, &ProductListRequest{VisibleOnly: true})
	s.Require().NoError(err)
	s.Require().Len(public.Products, 1)
	s.Equal(visible.ID, public.Products[0].ID)

	all, err := s.svc.GetProducts(s.ctx, &ProductListRequest{})
	s.Require().NoError(err)
	s.Len(all.Products, 2)

	_, err = LoadForOrder(s.db, hidden.ID)
	s.ErrorIs(err, ErrProductUnavailable)

	s.Require().NoError(s.svc.DeleteProduct(s.ctx, visible.ID))
	_, err = s.svc.GetProduct(s.ctx, visible.ID)
	s.ErrorIs(err, ErrProductNotFound)
	s.ErrorIs(s.svc.DeleteProduct(s.ctx, visible.ID), ErrProductNotFound)
}

func (s *ProductServiceSuite) TestUpdateProduct() {
	p := s.create("Old Name", "100", map[string]int{"M": 1})

	name := "New Name"
	price := decimal.RequireFromString("149.50")
	updated, err := s.svc.UpdateProduct(s.ctx, p.ID, &ProductUpdateRequest{Name: &name, Price: &price})
	s.Require().NoError(err)
	s.Equal("New Name", updated.Name)
	s.True(price.Equal(updated.Price))
}

func (s *ProductServiceSuite) TestSearchAndPagination() {
	for _, name := range []string{"Blue Jeans", "Black Jeans", "Red Scarf"} {
		s.create(name, "999", map[string]int{"M": 1})
	}

	res, err := s.svc.GetProducts(s.ctx, &ProductListRequest{Search: "jeans", Limit: 1, Page: 1})
	s.Require().NoError(err)
	s.Len(res.Products, 1)
	s.Equal(int64(2), res.Pagination.Total)
	s.Equal(2, res.Pagination.TotalPages)
	s.True(res.Pagination.HasNext)
}

func TestProductJSONIncludesSizeStock(t *testing.T) {
	p := Product{
		Name:  "Tee",
		Price: decimal.RequireFromString("10.00"),
		Sizes: []ProductSize{{Size: "M", Stock: 2}},
	}

	raw, err := p.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"size_stock":{"M":2}`)
	assert.Contains(t, string(raw), `"name":"Tee"`)
}

func TestBuildOrderClauseFallsBack(t *testing.T) {
	svc := &Service{}
	assert.Equal(t, "created_at desc, id desc", svc.buildOrderClause("drop table", "sideways"))
	assert.Equal(t, "price asc, id asc", svc.buildOrderClause("price", "asc"))
}
