// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartCleaner removes purchased lines from a cart
type CartCleaner interface {
	RemoveLines(ctx context.Context, userID *uint, sessionID string, lines []cart.Line) error
}

// Notifier receives order events after they are committed
type Notifier interface {
	OrderConfirmed(ctx context.Context, o *Order)
	OrderStatusChanged(ctx context.Context, o *Order)
}

// Service handles order business logic
type Service struct {
	db       *gorm.DB
	config   *config.Config
	carts    CartCleaner
	notifier Notifier
	log      *logrus.Logger

	newOrderNumber func() string
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, carts CartCleaner, notifier Notifier, log *logrus.Logger) *Service {
	return &Service{
		db:             db,
		config:         cfg,
		carts:          carts,
		notifier:       notifier,
		log:            log,
		newOrderNumber: generateOrderNumber,
	}
}

// ItemInput is one requested line
type ItemInput struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size" binding:"required,max=20"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	// Price, when set, must equal the current product price
	Price *decimal.Decimal `json:"price,omitempty"`
}

// CreateOrderInput carries everything needed to persist a paid order
type CreateOrderInput struct {
	UserID         *uint
	GuestSessionID string
	Items          []ItemInput
	Shipping       ShippingDetails
	Payment        PaymentDetails
	Adjustments    Adjustments
	// ExpectedTotal, when set, must equal the computed order total
	ExpectedTotal *decimal.Decimal
	// QuotedPrices charges each item at its Price instead of checking it
	// against the catalogue. Set for payments captured against a quote.
	QuotedPrices bool
	// Status defaults to confirmed; processing is the only other accepted value
	Status OrderStatus
}

// Quote is a priced cart snapshot
type Quote struct {
	Items  []OrderItem `json:"items"`
	Totals Totals      `json:"totals"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int         `form:"page,default=1"`
	Limit     int         `form:"limit,default=20"`
	Status    OrderStatus `form:"status"`
	UserID    uint        `form:"user_id"`
	SortBy    string      `form:"sort_by,default=created_at"`
	SortOrder string      `form:"sort_order,default=desc"`
	DateFrom  string      `form:"date_from"`
	DateTo    string      `form:"date_to"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
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

// TrackingUpdate describes a status change made by staff or a courier hook
type TrackingUpdate struct {
	Message  string `json:"message" binding:"max=500"`
	Location string `json:"location" binding:"max=255"`
}

// Quote prices the requested lines at current product prices without
// persisting anything. Stock is checked so checkout can fail early; the
// authoritative check happens again when the order is created.
func (s *Service) Quote(ctx context.Context, items []ItemInput, adj Adjustments) (*Quote, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	var quote *Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := snapshotLines(tx, items, false)
		if err != nil {
			return err
		}
		for _, line := range aggregateLines(lines) {
			available, _ := line.product.StockFor(line.size)
			if available < line.quantity {
				return &product.InsufficientStockError{
					ProductID:   line.product.ID,
					ProductName: line.product.Name,
					Size:        line.size,
					Available:   available,
					Requested:   line.quantity,
				}
			}
		}

		totals, err := ComputeTotals(sumLines(lines), adj, s.config.Checkout)
		if err != nil {
			return err
		}

		quote = &Quote{Items: make([]OrderItem, len(lines)), Totals: totals}
		for i, line := range lines {
			quote.Items[i] = line.item
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// CreateOrder turns a verified payment into a persisted order. Validation,
// price snapshot, order insert and every stock decrement share one
// transaction: an insufficient size rolls back the whole order.
//
// A second call with the same gateway payment id returns the existing order.
func (s *Service) CreateOrder(ctx context.Context, in *CreateOrderInput) (*Order, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	if existing, err := s.GetOrderByPaymentID(ctx, in.Payment.GatewayPaymentID); err == nil {
		s.log.WithFields(logrus.Fields{
			"order_number": existing.OrderNumber,
			"payment_id":   in.Payment.GatewayPaymentID,
		}).Info("Payment already reconciled, returning existing order")
		return existing, nil
	} else if !errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = OrderStatusConfirmed
	}

	var order Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := snapshotLines(tx, in.Items, in.QuotedPrices)
		if err != nil {
			return err
		}

		totals, err := ComputeTotals(sumLines(lines), in.Adjustments, s.config.Checkout)
		if err != nil {
			return err
		}
		if in.ExpectedTotal != nil && !in.ExpectedTotal.Round(2).Equal(totals.OrderTotal) {
			return fmt.Errorf("%w: expected %s, computed %s",
				ErrTotalMismatch, in.ExpectedTotal.StringFixed(2), totals.OrderTotal.StringFixed(2))
		}

		number, err := s.allocateOrderNumber(tx)
		if err != nil {
			return err
		}

		order = Order{
			OrderNumber: number,
			UserID:      in.UserID,
			Status:      status,
			Subtotal:    totals.Subtotal,
			ShippingFee: totals.ShippingFee,
			Tax:         totals.Tax,
			Discount:    totals.Discount,
			OrderTotal:  totals.OrderTotal,
			Currency:    s.config.Payment.Currency,
			Shipping:    normalizeShipping(in.Shipping),
			Payment:     in.Payment,
		}
		for _, line := range lines {
			order.Items = append(order.Items, line.item)
		}
		order.AddTrackingEvent(status, "Order placed and payment received", "")

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, line := range aggregateLines(lines) {
			if err := product.DecrementStock(tx, line.product.ID, line.product.Name, line.size, line.quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, product.ErrInsufficientStock) {
			metrics.StockConflicts.Inc()
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a concurrent reconciliation of the same payment
			if existing, findErr := s.GetOrderByPaymentID(ctx, in.Payment.GatewayPaymentID); findErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	metrics.OrdersCreated.WithLabelValues(in.Payment.Gateway).Inc()
	s.log.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"gateway":      in.Payment.Gateway,
		"total":        order.OrderTotal.StringFixed(2),
	}).Info("Order created")

	s.afterCreate(ctx, in, &order)

	return s.GetOrderByNumber(ctx, order.OrderNumber)
}

// afterCreate runs the best-effort side effects of a committed order
func (s *Service) afterCreate(ctx context.Context, in *CreateOrderInput, order *Order) {
	if s.carts != nil && (in.UserID != nil || in.GuestSessionID != "") {
		lines := make([]cart.Line, 0, len(order.Items))
		for _, item := range order.Items {
			lines = append(lines, cart.Line{ProductID: item.ProductID, Size: item.Size})
		}
		if err := s.carts.RemoveLines(ctx, in.UserID, in.GuestSessionID, lines); err != nil {
			s.log.WithError(err).WithField("order_number", order.OrderNumber).
				Warn("Failed to clear purchased items from cart")
		}
	}

	if s.notifier != nil {
		s.notifier.OrderConfirmed(ctx, order)
	}
}

// GetOrderByNumber retrieves a single order by order number
func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	var order Order
	result := withDetails(s.db.WithContext(ctx)).
		Where("order_number = ?", orderNumber).
		First(&order)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &order, nil
}

// GetUserOrders returns a user's orders, newest first. Guest orders never match.
func (s *Service) GetUserOrders(ctx context.Context, userID uint) ([]Order, error) {
	orders := []Order{}
	err := withDetails(s.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user orders: %w", err)
	}
	return orders, nil
}

// ListOrders retrieves orders with filtering and pagination
func (s *Service) ListOrders(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	var orders []Order
	var total int64

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Order{})

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}

	if req.DateFrom != "" {
		query = query.Where("created_at >= ?", req.DateFrom)
	}

	if req.DateTo != "" {
		query = query.Where("created_at <= ?", req.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	err := withDetails(query).
		Order(s.buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderResponse{
		Orders: orders,
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

// UpdateStatus moves an order along its lifecycle and records a tracking
// event. Cancellation goes through CancelOrder so stock is restored.
func (s *Service) UpdateStatus(ctx context.Context, orderNumber string, status OrderStatus, update TrackingUpdate) (*Order, error) {
	if status == OrderStatusCancelled {
		return s.CancelOrder(ctx, orderNumber, update.Message)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderNumber)
		if err != nil {
			return err
		}

		if !isValidStatusTransition(order.Status, status) {
			return fmt.Errorf("%w from %s to %s", ErrInvalidTransition, order.Status, status)
		}

		updates := map[string]interface{}{"status": status}
		now := time.Now().UTC()
		switch status {
		case OrderStatusShipped:
			updates["shipped_at"] = now
		case OrderStatusDelivered:
			updates["delivered_at"] = now
		}

		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		message := update.Message
		if message == "" {
			message = defaultStatusMessage(status)
		}
		event := order.AddTrackingEvent(status, message, update.Location)
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create tracking event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reloadAndNotify(ctx, orderNumber)
}

// CancelOrder cancels an order and puts its units back on the shelf
func (s *Service) CancelOrder(ctx context.Context, orderNumber, reason string) (*Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderNumber)
		if err != nil {
			return err
		}

		if !order.CanBeCancelled() {
			return fmt.Errorf("%w: order cannot be cancelled in status %s", ErrInvalidTransition, order.Status)
		}

		var items []OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to get order items: %w", err)
		}
		for _, item := range items {
			if err := product.RestoreStock(tx, item.ProductID, item.Size, item.Quantity); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		err = tx.Model(order).Updates(map[string]interface{}{
			"status":        OrderStatusCancelled,
			"cancel_reason": reason,
			"cancelled_at":  now,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		message := "Order cancelled"
		if reason != "" {
			message = fmt.Sprintf("Order cancelled: %s", reason)
		}
		event := order.AddTrackingEvent(OrderStatusCancelled, message, "")
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create tracking event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reloadAndNotify(ctx, orderNumber)
}

func (s *Service) reloadAndNotify(ctx context.Context, orderNumber string) (*Order, error) {
	order, err := s.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.OrderStatusChanged(ctx, order)
	}
	return order, nil
}

// Private helper methods

type pricedLine struct {
	product *product.Product
	item    OrderItem
}

type stockLine struct {
	product  *product.Product
	size     string
	quantity int
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return invalid("items", "at least one item is required")
	}
	for i, item := range items {
		if item.ProductID == 0 {
			return invalid(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if strings.TrimSpace(item.Size) == "" {
			return invalid(fmt.Sprintf("items[%d].size", i), "is required")
		}
		if item.Quantity < 1 {
			return invalid(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}
	return nil
}

// ValidateShipping checks the delivery fields an order cannot be created
// without. Checkout runs it before any payment is requested.
func ValidateShipping(d ShippingDetails) error {
	required := []struct {
		field string
		value string
	}{
		{"name", d.Name},
		{"address", d.Address},
		{"city", d.City},
		{"state", d.State},
		{"pincode", d.Pincode},
		{"country", d.Country},
		{"phone", d.Phone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid("shipping_details."+r.field, "is required")
		}
	}
	if !validation.IsPincode(strings.TrimSpace(d.Pincode)) {
		return invalid("shipping_details.pincode", "must be a 6 digit postal code")
	}
	return nil
}

func validateCreateInput(in *CreateOrderInput) error {
	if err := validateItems(in.Items); err != nil {
		return err
	}
	if err := ValidateShipping(in.Shipping); err != nil {
		return err
	}
	if in.Payment.Status != PaymentStatusPaid {
		return ErrPaymentNotVerified
	}
	if in.Payment.GatewayPaymentID == "" {
		return invalid("payment_details.gateway_payment_id", "is required")
	}
	if in.Payment.Gateway == "" {
		return invalid("payment_details.gateway", "is required")
	}
	switch in.Status {
	case "", OrderStatusConfirmed, OrderStatusProcessing:
	default:
		return invalid("status", "must be confirmed or processing")
	}
	return nil
}

func normalizeShipping(d ShippingDetails) ShippingDetails {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(strings.ToLower(d.Email))
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.State = strings.TrimSpace(d.State)
	d.Pincode = strings.TrimSpace(d.Pincode)
	d.Country = strings.TrimSpace(d.Country)
	d.Phone = strings.TrimSpace(d.Phone)
	return d
}

// snapshotLines loads each product and freezes its name and price. With
// quoted set, an item's own Price wins over the catalogue price.
func snapshotLines(tx *gorm.DB, items []ItemInput, quoted bool) ([]pricedLine, error) {
	cache := make(map[uint]*product.Product, len(items))
	lines := make([]pricedLine, 0, len(items))

	for _, item := range items {
		prod, ok := cache[item.ProductID]
		if !ok {
			var err error
			prod, err = product.LoadForOrder(tx, item.ProductID)
			if err != nil {
				return nil, err
			}
			cache[item.ProductID] = prod
		}

		if _, ok := prod.StockFor(item.Size); !ok {
			return nil, fmt.Errorf("%w: '%s' size %s", product.ErrSizeNotFound, prod.Name, item.Size)
		}

		price := prod.Price.Round(2)
		if quoted && item.Price != nil {
			price = item.Price.Round(2)
		} else if item.Price != nil && !item.Price.Round(2).Equal(price) {
			return nil, fmt.Errorf("%w for '%s': expected %s, current %s",
				ErrPriceMismatch, prod.Name, item.Price.StringFixed(2), price.StringFixed(2))
		}

		lines = append(lines, pricedLine{
			product: prod,
			item: OrderItem{
				ProductID: prod.ID,
				Name:      prod.Name,
				Size:      item.Size,
				Quantity:  item.Quantity,
				Price:     price,
				Subtotal:  price.Mul(decimal.NewFromInt(int64(item.Quantity))),
			},
		})
	}
	return lines, nil
}

func sumLines(lines []pricedLine) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.item.Subtotal)
	}
	return subtotal
}

// aggregateLines merges repeated product+size lines and sorts them so
// concurrent orders touch size rows in the same order.
func aggregateLines(lines []pricedLine) []stockLine {
	type key struct {
		id   uint
		size string
	}
	index := make(map[key]int)
	var out []stockLine
	for _, line := range lines {
		k := key{line.product.ID, line.item.Size}
		if i, ok := index[k]; ok {
			out[i].quantity += line.item.Quantity
			continue
		}
		index[k] = len(out)
		out = append(out, stockLine{product: line.product, size: line.item.Size, quantity: line.item.Quantity})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].product.ID != out[j].product.ID {
			return out[i].product.ID < out[j].product.ID
		}
		return out[i].size < out[j].size
	})
	return out
}

func (s *Service) allocateOrderNumber(tx *gorm.DB) (string, error) {
	tries := s.config.Checkout.MaxOrderNumberTries
	if tries <= 0 {
		tries = 5
	}
	for i := 0; i < tries; i++ {
		number := s.newOrderNumber()
		var count int64
		if err := tx.Model(&Order{}).Where("order_number = ?", number).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if count == 0 {
			return number, nil
		}
		s.log.WithField("order_number", number).Warn("Order number collision, regenerating")
	}
	return "", ErrOrderNumberExhausted
}

// GetOrderByPaymentID finds the order reconciled from a gateway payment
func (s *Service) GetOrderByPaymentID(ctx context.Context, paymentID string) (*Order, error) {
	var order Order
	err := withDetails(s.db.WithContext(ctx)).
		Where("payment_gateway_payment_id = ?", paymentID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to look up payment: %w", err)
	}
	return &order, nil
}

func lockOrder(tx *gorm.DB, orderNumber string) (*Order, error) {
	var order Order
	err := tx.Clauses(forUpdate(tx)...).Where("order_number = ?", orderNumber).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// forUpdate row-locks on Postgres; SQLite serialises writers on its own
func forUpdate(tx *gorm.DB) []clause.Expression {
	if tx.Dialector.Name() == "postgres" {
		return []clause.Expression{clause.Locking{Strength: "UPDATE"}}
	}
	return nil
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Tracking", func(db *gorm.DB) *gorm.DB {
			return db.Order("occurred_at ASC, id ASC")
		})
}

// generateOrderNumber returns ORD-<base36 unix millis>-<6 hex>
func generateOrderNumber() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", ts, suffix)
}

func defaultStatusMessage(status OrderStatus) string {
	switch status {
	case OrderStatusConfirmed:
		return "Order confirmed"
	case OrderStatusProcessing:
		return "Order is being prepared"
	case OrderStatusShipped:
		return "Order shipped"
	case OrderStatusDelivered:
		return "Order delivered"
	default:
		return fmt.Sprintf("Order %s", status)
	}
}

func isValidStatusTransition(from, to OrderStatus) bool {
	validTransitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending: {
			OrderStatusConfirmed,
			OrderStatusCancelled,
		},
		OrderStatusConfirmed: {
			OrderStatusProcessing,
			OrderStatusCancelled,
		},
		OrderStatusProcessing: {
			OrderStatusShipped,
			OrderStatusCancelled,
		},
		OrderStatusShipped: {
			OrderStatusDelivered,
		},
	}

	allowedStatuses, exists := validTransitions[from]
	if !exists {
		return false
	}

	for _, status := range allowedStatuses {
		if status == to {
			return true
		}
	}
	return false
}

func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"order_total":  true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}
