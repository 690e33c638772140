package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/testutil"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []string
	changed   []OrderStatus
}

func (n *recordingNotifier) OrderConfirmed(_ context.Context, o *Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, o.OrderNumber)
}

func (n *recordingNotifier) OrderStatusChanged(_ context.Context, o *Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, o.Status)
}

type recordingCart struct {
	mu      sync.Mutex
	removed []cart.Line
	fail    bool
}

func (c *recordingCart) RemoveLines(_ context.Context, _ *uint, _ string, lines []cart.Line) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("redis down")
	}
	c.removed = append(c.removed, lines...)
	return nil
}

type OrderServiceSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	cfg      *config.Config
	products *product.Service
	notifier *recordingNotifier
	carts    *recordingCart
	svc      *Service
	payments int64
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T(),
		&product.Product{}, &product.ProductSize{},
		&Order{}, &OrderItem{}, &TrackingEvent{},
	)
	s.cfg = testutil.Config()
	s.products = product.NewService(s.db, s.cfg)
	s.notifier = &recordingNotifier{}
	s.carts = &recordingCart{}
	s.svc = NewService(s.db, s.cfg, s.carts, s.notifier, logger.Discard())
}

func (s *OrderServiceSuite) newProduct(name, price string, sizes map[string]int) *product.Product {
	p, err := s.products.CreateProduct(s.ctx, &product.ProductCreateRequest{
		Name:      name,
		Category:  "apparel",
		Price:     decimal.RequireFromString(price),
		SizeStock: sizes,
	})
	s.Require().NoError(err)
	return p
}

func (s *OrderServiceSuite) input(userID *uint, items ...ItemInput) *CreateOrderInput {
	n := atomic.AddInt64(&s.payments, 1)
	return &CreateOrderInput{
		UserID: userID,
		Items:  items,
		Shipping: ShippingDetails{
			Name:    "Asha Rao",
			Email:   "asha@example.com",
			Address: "12 MG Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			Pincode: "560001",
			Country: "India",
			Phone:   "9876543210",
		},
		Payment: PaymentDetails{
			Gateway:          "razorpay",
			GatewayOrderID:   fmt.Sprintf("order_%d", n),
			GatewayPaymentID: fmt.Sprintf("pay_%d", n),
			Status:           PaymentStatusPaid,
		},
	}
}

func (s *OrderServiceSuite) sizeStock(id uint, size string) int {
	p, err := s.products.GetProduct(s.ctx, id)
	s.Require().NoError(err)
	stock, _ := p.StockFor(size)
	return stock
}

func uintPtr(v uint) *uint { return &v }

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func (s *OrderServiceSuite) TestCreateOrderTotalExample() {
	p := s.newProduct("Kurta", "500", map[string]int{"M": 5})

	in := s.input(uintPtr(1), ItemInput{ProductID: p.ID, Size: "M", Quantity: 2, Price: dec("500")})
	in.ExpectedTotal = dec("1000")

	order, err := s.svc.CreateOrder(s.ctx, in)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("1000").Equal(order.OrderTotal))
	s.Equal(OrderStatusConfirmed, order.Status)
	s.Regexp(`^ORD-[0-9A-Z]+-[0-9A-F]{6}$`, order.OrderNumber)
	s.Require().Len(order.Tracking, 1)
	s.Equal(OrderStatusConfirmed, order.Tracking[0].Status)

	loaded, err := s.svc.GetOrderByNumber(s.ctx, order.OrderNumber)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("1000").Equal(loaded.OrderTotal))
	s.Require().Len(loaded.Items, 1)
	s.Equal(2, loaded.Items[0].Quantity)

	after, err := s.products.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(3, after.CurrentStock)
	s.Equal(2, after.Buys)
}

func (s *OrderServiceSuite) TestCreateOrderAppliesAdjustments() {
	s.cfg.Checkout.ShippingFee = decimal.RequireFromString("50")
	p := s.newProduct("Scarf", "250", map[string]int{"Free": 5})

	in := s.input(nil, ItemInput{ProductID: p.ID, Size: "Free", Quantity: 2})
	in.Adjustments = Adjustments{Tax: dec("45"), Discount: dec("20")}
	in.ExpectedTotal = dec("575")

	order, err := s.svc.CreateOrder(s.ctx, in)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("500").Equal(order.Subtotal))
	s.True(decimal.RequireFromString("50").Equal(order.ShippingFee))
	s.True(decimal.RequireFromString("575").Equal(order.OrderTotal))
	s.Nil(order.UserID)
}

func (s *OrderServiceSuite) TestConcurrentCheckoutForLastUnit() {
	p := s.newProduct("Limited Tee", "999", map[string]int{"M": 1})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		in := s.input(uintPtr(uint(i+1)), ItemInput{ProductID: p.ID, Size: "M", Quantity: 1})
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.svc.CreateOrder(s.ctx, in)
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, product.ErrInsufficientStock):
			rejected++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, rejected)
	s.Equal(0, s.sizeStock(p.ID, "M"))

	var orders int64
	s.Require().NoError(s.db.Model(&Order{}).Count(&orders).Error)
	s.Equal(int64(1), orders)
}

func (s *OrderServiceSuite) TestConcurrentCheckoutsNeverOversell() {
	p := s.newProduct("Sneaker", "2999", map[string]int{"9": 5})

	const attempts = 12
	var wg sync.WaitGroup
	var created int64
	for i := 0; i < attempts; i++ {
		in := s.input(nil, ItemInput{ProductID: p.ID, Size: "9", Quantity: 1})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.svc.CreateOrder(s.ctx, in); err == nil {
				atomic.AddInt64(&created, 1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int64(5), created)
	s.Equal(0, s.sizeStock(p.ID, "9"))

	after, err := s.products.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	s.False(after.InStock)
	s.Equal(5, after.Buys)
}

func (s *OrderServiceSuite) TestInsufficientStockRollsBackEverything() {
	plenty := s.newProduct("Socks", "99", map[string]int{"M": 10})
	scarce := s.newProduct("Jacket", "4999", map[string]int{"L": 1})

	in := s.input(uintPtr(1),
		ItemInput{ProductID: plenty.ID, Size: "M", Quantity: 3},
		ItemInput{ProductID: scarce.ID, Size: "L", Quantity: 2},
	)

	_, err := s.svc.CreateOrder(s.ctx, in)
	var stockErr *product.InsufficientStockError
	s.Require().True(errors.As(err, &stockErr))
	s.Equal("Jacket", stockErr.ProductName)
	s.Contains(err.Error(), "Jacket")

	s.Equal(10, s.sizeStock(plenty.ID, "M"))
	s.Equal(1, s.sizeStock(scarce.ID, "L"))

	var orders int64
	s.Require().NoError(s.db.Model(&Order{}).Count(&orders).Error)
	s.Zero(orders)
	s.Empty(s.notifier.confirmed)
	s.Empty(s.carts.removed)
}

func (s *OrderServiceSuite) TestDuplicateLinesAreCheckedTogether() {
	p := s.newProduct("Belt", "300", map[string]int{"M": 3})

	in := s.input(nil,
		ItemInput{ProductID: p.ID, Size: "M", Quantity: 2},
		ItemInput{ProductID: p.ID, Size: "M", Quantity: 2},
	)
	_, err := s.svc.CreateOrder(s.ctx, in)
	s.ErrorIs(err, product.ErrInsufficientStock)
	s.Equal(3, s.sizeStock(p.ID, "M"))
}

func (s *OrderServiceSuite) TestSamePaymentIsReconciledOnce() {
	p := s.newProduct("Cap", "199", map[string]int{"Free": 5})
	in := s.input(uintPtr(4), ItemInput{ProductID: p.ID, Size: "Free", Quantity: 1})

	first, err := s.svc.CreateOrder(s.ctx, in)
	s.Require().NoError(err)
	second, err := s.svc.CreateOrder(s.ctx, in)
	s.Require().NoError(err)

	s.Equal(first.OrderNumber, second.OrderNumber)
	s.Equal(4, s.sizeStock(p.ID, "Free"))
	s.Len(s.notifier.confirmed, 1)
}

func (s *OrderServiceSuite) TestSnapshotSurvivesProductEdits() {
	p := s.newProduct("Original Name", "750", map[string]int{"S": 2})

	order, err := s.svc.CreateOrder(s.ctx, s.input(uintPtr(1), ItemInput{ProductID: p.ID, Size: "S", Quantity: 1}))
	s.Require().NoError(err)

	name := "Renamed"
	price := decimal.RequireFromString("1200")
	_, err = s.products.UpdateProduct(s.ctx, p.ID, &product.ProductUpdateRequest{Name: &name, Price: &price})
	s.Require().NoError(err)
	s.Require().NoError(s.products.DeleteProduct(s.ctx, p.ID))

	loaded, err := s.svc.GetOrderByNumber(s.ctx, order.OrderNumber)
	s.Require().NoError(err)
	s.Equal("Original Name", loaded.Items[0].Name)
	s.True(decimal.RequireFromString("750").Equal(loaded.Items[0].Price))
	s.True(decimal.RequireFromString("750").Equal(loaded.OrderTotal))
}

func (s *OrderServiceSuite) TestGetUserOrdersNewestFirstAndIsolated() {
	p := s.newProduct("Mug", "150", map[string]int{"Std": 20})
	item := ItemInput{ProductID: p.ID, Size: "Std", Quantity: 1}

	var mine []string
	for i := 0; i < 3; i++ {
		o, err := s.svc.CreateOrder(s.ctx, s.input(uintPtr(7), item))
		s.Require().NoError(err)
		mine = append(mine, o.OrderNumber)
	}
	_, err := s.svc.CreateOrder(s.ctx, s.input(uintPtr(8), item))
	s.Require().NoError(err)
	_, err = s.svc.CreateOrder(s.ctx, s.input(nil, item))
	s.Require().NoError(err)

	orders, err := s.svc.GetUserOrders(s.ctx, 7)
	s.Require().NoError(err)
	s.Require().Len(orders, 3)
	s.Equal([]string{mine[2], mine[1], mine[0]},
		[]string{orders[0].OrderNumber, orders[1].OrderNumber, orders[2].OrderNumber})
	for i := 1; i < len(orders); i++ {
		s.False(orders[i].CreatedAt.After(orders[i-1].CreatedAt))
		s.Equal(uint(7), *orders[i].UserID)
	}

	none, err := s.svc.GetUserOrders(s.ctx, 99)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *OrderServiceSuite) TestRejectsBeforePersistence() {
	p := s.newProduct("Bag", "899", map[string]int{"Free": 2})
	item := ItemInput{ProductID: p.ID, Size: "Free", Quantity: 1}

	unpaid := s.input(nil, item)
	unpaid.Payment.Status = PaymentStatusPending
	_, err := s.svc.CreateOrder(s.ctx, unpaid)
	s.ErrorIs(err, ErrPaymentNotVerified)

	noCity := s.input(nil, item)
	noCity.Shipping.City = " "
	_, err = s.svc.CreateOrder(s.ctx, noCity)
	var vErr *ValidationError
	s.Require().True(errors.As(err, &vErr))
	s.Equal("shipping_details.city", vErr.Field)

	badPin := s.input(nil, item)
	badPin.Shipping.Pincode = "12"
	_, err = s.svc.CreateOrder(s.ctx, badPin)
	s.True(errors.As(err, &vErr))

	_, err = s.svc.CreateOrder(s.ctx, s.input(nil))
	s.True(errors.As(err, &vErr))

	zeroQty := s.input(nil, ItemInput{ProductID: p.ID, Size: "Free", Quantity: 0})
	_, err = s.svc.CreateOrder(s.ctx, zeroQty)
	s.True(errors.As(err, &vErr))

	badStatus := s.input(nil, item)
	badStatus.Status = OrderStatusShipped
	_, err = s.svc.CreateOrder(s.ctx, badStatus)
	s.True(errors.As(err, &vErr))

	s.Equal(2, s.sizeStock(p.ID, "Free"))
}

func (s *OrderServiceSuite) TestPriceAndTotalMismatch() {
	p := s.newProduct("Watch", "1500", map[string]int{"Free": 2})

	stale := s.input(nil, ItemInput{ProductID: p.ID, Size: "Free", Quantity: 1, Price: dec("1400")})
	_, err := s.svc.CreateOrder(s.ctx, stale)
	s.ErrorIs(err, ErrPriceMismatch)

	wrongTotal := s.input(nil, ItemInput{ProductID: p.ID, Size: "Free", Quantity: 1})
	wrongTotal.ExpectedTotal = dec("1")
	_, err = s.svc.CreateOrder(s.ctx, wrongTotal)
	s.ErrorIs(err, ErrTotalMismatch)

	s.Equal(2, s.sizeStock(p.ID, "Free"))
}

func (s *OrderServiceSuite) TestQuotedPricesChargeTheQuote() {
	p := s.newProduct("Watch", "1500", map[string]int{"Free": 2})

	in := s.input(nil, ItemInput{ProductID: p.ID, Size: "Free", Quantity: 1, Price: dec("1400")})
	in.QuotedPrices = true
	created, err := s.svc.CreateOrder(s.ctx, in)
	s.Require().NoError(err)

	s.True(dec("1400").Equal(created.Items[0].Price))
	s.True(dec("1400").Equal(created.Subtotal))
	s.Equal(1, s.sizeStock(p.ID, "Free"))
}

func (s *OrderServiceSuite) TestHiddenOrUnknownProductRejected() {
	p := s.newProduct("Hidden", "100", map[string]int{"M": 2})
	s.Require().NoError(s.products.SetVisibility(s.ctx, p.ID, false))

	_, err := s.svc.CreateOrder(s.ctx, s.input(nil, ItemInput{ProductID: p.ID, Size: "M", Quantity: 1}))
	s.ErrorIs(err, product.ErrProductUnavailable)

	_, err = s.svc.CreateOrder(s.ctx, s.input(nil, ItemInput{ProductID: 4242, Size: "M", Quantity: 1}))
	s.ErrorIs(err, product.ErrProductNotFound)
}

func (s *OrderServiceSuite) TestOrderNumberCollisionRegenerates() {
	p := s.newProduct("Ring", "100", map[string]int{"7": 5})
	item := ItemInput{ProductID: p.ID, Size: "7", Quantity: 1}

	numbers := []string{"ORD-A-000001", "ORD-A-000001", "ORD-A-000002"}
	var calls int
	s.svc.newOrderNumber = func() string {
		n := numbers[calls%len(numbers)]
		calls++
		return n
	}

	first, err := s.svc.CreateOrder(s.ctx, s.input(nil, item))
	s.Require().NoError(err)
	second, err := s.svc.CreateOrder(s.ctx, s.input(nil, item))
	s.Require().NoError(err)

	s.Equal("ORD-A-000001", first.OrderNumber)
	s.Equal("ORD-A-000002", second.OrderNumber)

	s.svc.newOrderNumber = func() string { return "ORD-A-000001" }
	_, err = s.svc.CreateOrder(s.ctx, s.input(nil, item))
	s.ErrorIs(err, ErrOrderNumberExhausted)
	s.Equal(3, s.sizeStock(p.ID, "7"))
}

func (s *OrderServiceSuite) TestSideEffectsAfterCommit() {
	p := s.newProduct("Tote", "350", map[string]int{"Free": 3})

	in := s.input(uintPtr(3), ItemInput{ProductID: p.ID, Size: "Free", Quantity: 1})
	order, err := s.svc.CreateOrder(s.ctx, in)
	s.Require().NoError(err)

	s.Equal([]cart.Line{{ProductID: p.ID, Size: "Free"}}, s.carts.removed)
	s.Equal([]string{order.OrderNumber}, s.notifier.confirmed)

	// a failing cart cleanup never fails the order
	s.carts.fail = true
	_, err = s.svc.CreateOrder(s.ctx, s.input(uintPtr(3), ItemInput{ProductID: p.ID, Size: "Free", Quantity: 1}))
	s.NoError(err)
}

func (s *OrderServiceSuite) TestStatusLifecycle() {
	p := s.newProduct("Lamp", "1200", map[string]int{"Std": 2})
	order, err := s.svc.CreateOrder(s.ctx, s.input(uintPtr(1), ItemInput{ProductID: p.ID, Size: "Std", Quantity: 1}))
	s.Require().NoError(err)

	_, err = s.svc.UpdateStatus(s.ctx, order.OrderNumber, OrderStatusDelivered, TrackingUpdate{})
	s.ErrorIs(err, ErrInvalidTransition)

	for _, status := range []OrderStatus{OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered} {
		order, err = s.svc.UpdateStatus(s.ctx, order.OrderNumber, status, TrackingUpdate{Location: "Hub"})
		s.Require().NoError(err)
		s.Equal(status, order.Status)
	}

	s.NotNil(order.ShippedAt)
	s.NotNil(order.DeliveredAt)
	s.Len(order.Tracking, 4)
	s.Equal("Hub", order.Tracking[3].Location)
	s.Equal([]OrderStatus{OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered}, s.notifier.changed)

	_, err = s.svc.CancelOrder(s.ctx, order.OrderNumber, "too late")
	s.ErrorIs(err, ErrInvalidTransition)

	_, err = s.svc.UpdateStatus(s.ctx, "ORD-MISSING", OrderStatusShipped, TrackingUpdate{})
	s.ErrorIs(err, ErrOrderNotFound)
}

func (s *OrderServiceSuite) TestCancelRestoresStock() {
	p := s.newProduct("Vase", "800", map[string]int{"Std": 1})
	order, err := s.svc.CreateOrder(s.ctx, s.input(uintPtr(1), ItemInput{ProductID: p.ID, Size: "Std", Quantity: 1}))
	s.Require().NoError(err)
	s.Equal(0, s.sizeStock(p.ID, "Std"))

	cancelled, err := s.svc.UpdateStatus(s.ctx, order.OrderNumber, OrderStatusCancelled, TrackingUpdate{Message: "customer request"})
	s.Require().NoError(err)
	s.Equal(OrderStatusCancelled, cancelled.Status)
	s.Equal("customer request", cancelled.CancelReason)
	s.NotNil(cancelled.CancelledAt)

	after, err := s.products.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(1, after.CurrentStock)
	s.True(after.InStock)
	s.Equal(0, after.Buys)
}

func (s *OrderServiceSuite) TestQuoteChecksStockWithoutPersisting() {
	s.cfg.Checkout.ShippingFee = decimal.RequireFromString("40")
	s.cfg.Checkout.FreeShippingAbove = decimal.RequireFromString("1000")
	p := s.newProduct("Notebook", "120", map[string]int{"A5": 2})

	quote, err := s.svc.Quote(s.ctx, []ItemInput{{ProductID: p.ID, Size: "A5", Quantity: 2}}, Adjustments{})
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("280").Equal(quote.Totals.OrderTotal))
	s.Equal("Notebook", quote.Items[0].Name)

	_, err = s.svc.Quote(s.ctx, []ItemInput{{ProductID: p.ID, Size: "A5", Quantity: 3}}, Adjustments{})
	s.ErrorIs(err, product.ErrInsufficientStock)
	s.Equal(2, s.sizeStock(p.ID, "A5"))
}

func (s *OrderServiceSuite) TestListOrdersFiltersByStatus() {
	p := s.newProduct("Pen", "20", map[string]int{"Std": 10})
	item := ItemInput{ProductID: p.ID, Size: "Std", Quantity: 1}

	first, err := s.svc.CreateOrder(s.ctx, s.input(nil, item))
	s.Require().NoError(err)
	_, err = s.svc.CreateOrder(s.ctx, s.input(nil, item))
	s.Require().NoError(err)
	_, err = s.svc.UpdateStatus(s.ctx, first.OrderNumber, OrderStatusProcessing, TrackingUpdate{})
	s.Require().NoError(err)

	res, err := s.svc.ListOrders(s.ctx, &OrderListRequest{Status: OrderStatusProcessing})
	s.Require().NoError(err)
	s.Equal(int64(1), res.Pagination.Total)
	s.Equal(first.OrderNumber, res.Orders[0].OrderNumber)
}

func TestComputeTotals(t *testing.T) {
	cfg := config.CheckoutConfig{
		ShippingFee:       decimal.RequireFromString("49"),
		FreeShippingAbove: decimal.RequireFromString("999"),
	}

	totals, err := ComputeTotals(decimal.RequireFromString("500"), Adjustments{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "549.00", totals.OrderTotal.StringFixed(2))

	totals, err = ComputeTotals(decimal.RequireFromString("999"), Adjustments{}, cfg)
	require.NoError(t, err)
	assert.True(t, totals.ShippingFee.IsZero())
	assert.Equal(t, "999.00", totals.OrderTotal.StringFixed(2))

	_, err = ComputeTotals(decimal.RequireFromString("100"), Adjustments{Discount: dec("500")}, cfg)
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = ComputeTotals(decimal.RequireFromString("100"), Adjustments{Tax: dec("-1")}, cfg)
	assert.True(t, errors.As(err, &vErr))
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusConfirmed, OrderStatusDelivered, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, isValidStatusTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := generateOrderNumber()
		assert.Regexp(t, `^ORD-[0-9A-Z]+-[0-9A-F]{6}$`, n)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 90)
}
