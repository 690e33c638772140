// internal/domain/cart/service.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const guestCartTTL = 24 * time.Hour

// Service handles cart business logic
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
	}
}

// CartItemResponse represents a cart line with product details
type CartItemResponse struct {
	ProductID uint             `json:"product_id"`
	Size      string           `json:"size"`
	Quantity  int              `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
	Available bool             `json:"available"`
	Product   *product.Product `json:"product,omitempty"`
	AddedAt   time.Time        `json:"added_at"`
}

// CartResponse represents a shopping cart with items and summary
type CartResponse struct {
	SessionID string             `json:"session_id,omitempty"`
	UserID    *uint              `json:"user_id,omitempty"`
	Items     []CartItemResponse `json:"items"`
	Totals    CartTotals         `json:"totals"`
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size" binding:"required,max=20"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest sets the quantity of a line; zero removes it
type UpdateCartItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size" binding:"required,max=20"`
	Quantity  int    `json:"quantity" binding:"min=0"`
}

// RemoveCartItemRequest identifies the line to delete
type RemoveCartItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size" binding:"required,max=20"`
}

// GetCart retrieves cart for user or session
func (s *Service) GetCart(ctx context.Context, userID *uint, sessionID string) (*CartResponse, error) {
	var cartItems []CartItemResponse

	if userID != nil {
		var dbItems []CartItem
		err := s.db.WithContext(ctx).Where("user_id = ?", *userID).Order("created_at ASC, id ASC").Find(&dbItems).Error
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve user cart: %w", err)
		}

		cartItems = make([]CartItemResponse, len(dbItems))
		for i, item := range dbItems {
			cartItems[i] = CartItemResponse{
				ProductID: item.ProductID,
				Size:      item.Size,
				Quantity:  item.Quantity,
				AddedAt:   item.CreatedAt,
			}
		}
	} else {
		sessionCart, err := s.getGuestCart(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		cartItems = make([]CartItemResponse, len(sessionCart.Items))
		for i, item := range sessionCart.Items {
			cartItems[i] = CartItemResponse{
				ProductID: item.ProductID,
				Size:      item.Size,
				Quantity:  item.Quantity,
				AddedAt:   item.AddedAt,
			}
		}
	}

	if err := s.loadProductDetails(ctx, cartItems); err != nil {
		return nil, err
	}

	return &CartResponse{
		SessionID: sessionID,
		UserID:    userID,
		Items:     cartItems,
		Totals:    calculateTotals(cartItems),
	}, nil
}

// AddToCart adds a product+size line, incrementing the quantity of an existing line.
// Stock is checked at checkout, not here.
func (s *Service) AddToCart(ctx context.Context, userID *uint, sessionID string, req *AddToCartRequest) (*CartResponse, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&product.Product{}).
		Where("id = ? AND is_visible = ?", req.ProductID, true).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	if count == 0 {
		return nil, product.ErrProductNotFound
	}

	if userID != nil {
		err = s.addToUserCart(ctx, *userID, req.ProductID, req.Size, req.Quantity)
	} else {
		err = s.addToGuestCart(ctx, sessionID, req.ProductID, req.Size, req.Quantity)
	}
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID, sessionID)
}

// UpdateCartItem sets the quantity of a line; zero deletes it
func (s *Service) UpdateCartItem(ctx context.Context, userID *uint, sessionID string, req *UpdateCartItemRequest) (*CartResponse, error) {
	if req.Quantity < 0 {
		return nil, fmt.Errorf("quantity cannot be negative")
	}

	var err error
	if userID != nil {
		err = s.updateUserCartItem(ctx, *userID, req.ProductID, req.Size, req.Quantity)
	} else {
		err = s.updateGuestCartItem(ctx, sessionID, req.ProductID, req.Size, req.Quantity)
	}
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID, sessionID)
}

// RemoveFromCart removes a line from the cart
func (s *Service) RemoveFromCart(ctx context.Context, userID *uint, sessionID string, req *RemoveCartItemRequest) (*CartResponse, error) {
	return s.UpdateCartItem(ctx, userID, sessionID, &UpdateCartItemRequest{
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  0,
	})
}

// ClearCart removes all items from the cart
func (s *Service) ClearCart(ctx context.Context, userID *uint, sessionID string) error {
	if userID != nil {
		return s.db.WithContext(ctx).Where("user_id = ?", *userID).Delete(&CartItem{}).Error
	}
	if sessionID == "" {
		return ErrSessionRequired
	}
	return s.redisClient.Del(ctx, guestCartKey(sessionID)).Err()
}

// RemoveLines deletes the given product+size lines and leaves the rest of the
// cart untouched. Lines that are not in the cart are ignored.
func (s *Service) RemoveLines(ctx context.Context, userID *uint, sessionID string, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}

	if userID != nil {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, line := range lines {
				err := tx.Where("user_id = ? AND product_id = ? AND size = ?", *userID, line.ProductID, line.Size).
					Delete(&CartItem{}).Error
				if err != nil {
					return fmt.Errorf("failed to remove cart line: %w", err)
				}
			}
			return nil
		})
	}

	if sessionID == "" {
		return nil
	}

	sessionCart, err := s.getGuestCart(ctx, sessionID)
	if err != nil {
		return err
	}

	purchased := make(map[Line]bool, len(lines))
	for _, line := range lines {
		purchased[line] = true
	}

	kept := sessionCart.Items[:0]
	for _, item := range sessionCart.Items {
		if !purchased[Line{ProductID: item.ProductID, Size: item.Size}] {
			kept = append(kept, item)
		}
	}
	sessionCart.Items = kept

	if len(kept) == 0 {
		return s.redisClient.Del(ctx, guestCartKey(sessionID)).Err()
	}
	sessionCart.UpdatedAt = time.Now().UTC()
	return s.saveGuestCart(ctx, sessionID, sessionCart)
}

// GetCartItemCount returns the number of units in cart
func (s *Service) GetCartItemCount(ctx context.Context, userID *uint, sessionID string) (int, error) {
	cartResponse, err := s.GetCart(ctx, userID, sessionID)
	if err != nil {
		return 0, err
	}
	return cartResponse.Totals.TotalQuantity, nil
}

// MergeGuestCartToUser merges a guest cart into the user cart once the guest signs in
func (s *Service) MergeGuestCartToUser(ctx context.Context, userID uint, sessionID string) error {
	guestCart, err := s.getGuestCart(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(guestCart.Items) == 0 {
		return nil
	}

	for _, guestItem := range guestCart.Items {
		if err := s.addToUserCart(ctx, userID, guestItem.ProductID, guestItem.Size, guestItem.Quantity); err != nil {
			return err
		}
	}

	return s.ClearCart(ctx, nil, sessionID)
}

// Private helper methods

func (s *Service) addToUserCart(ctx context.Context, userID, productID uint, size string, quantity int) error {
	item := CartItem{
		UserID:    userID,
		ProductID: productID,
		Size:      size,
		Quantity:  quantity,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "size"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&item).Error
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (s *Service) addToGuestCart(ctx context.Context, sessionID string, productID uint, size string, quantity int) error {
	sessionCart, err := s.getGuestCart(ctx, sessionID)
	if err != nil {
		return err
	}

	itemExists := false
	for i := range sessionCart.Items {
		if sessionCart.Items[i].ProductID == productID && sessionCart.Items[i].Size == size {
			sessionCart.Items[i].Quantity += quantity
			itemExists = true
			break
		}
	}

	if !itemExists {
		sessionCart.Items = append(sessionCart.Items, SessionCartItem{
			ProductID: productID,
			Size:      size,
			Quantity:  quantity,
			AddedAt:   time.Now().UTC(),
		})
	}

	sessionCart.UpdatedAt = time.Now().UTC()
	return s.saveGuestCart(ctx, sessionID, sessionCart)
}

func (s *Service) updateUserCartItem(ctx context.Context, userID, productID uint, size string, quantity int) error {
	query := s.db.WithContext(ctx).Model(&CartItem{}).
		Where("user_id = ? AND product_id = ? AND size = ?", userID, productID, size)

	var result *gorm.DB
	if quantity == 0 {
		result = query.Delete(&CartItem{})
	} else {
		result = query.Update("quantity", quantity)
	}
	if result.Error != nil {
		return fmt.Errorf("failed to update cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *Service) updateGuestCartItem(ctx context.Context, sessionID string, productID uint, size string, quantity int) error {
	sessionCart, err := s.getGuestCart(ctx, sessionID)
	if err != nil {
		return err
	}

	itemFound := false
	for i := range sessionCart.Items {
		if sessionCart.Items[i].ProductID == productID && sessionCart.Items[i].Size == size {
			if quantity == 0 {
				sessionCart.Items = append(sessionCart.Items[:i], sessionCart.Items[i+1:]...)
			} else {
				sessionCart.Items[i].Quantity = quantity
			}
			itemFound = true
			break
		}
	}

	if !itemFound {
		return ErrItemNotFound
	}

	sessionCart.UpdatedAt = time.Now().UTC()
	return s.saveGuestCart(ctx, sessionID, sessionCart)
}

func guestCartKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

func (s *Service) getGuestCart(ctx context.Context, sessionID string) (*SessionCart, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	cartData, err := s.redisClient.Get(ctx, guestCartKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		now := time.Now().UTC()
		return &SessionCart{
			SessionID: sessionID,
			Items:     []SessionCartItem{},
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: now.Add(guestCartTTL),
		}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}

	var sessionCart SessionCart
	if err := json.Unmarshal([]byte(cartData), &sessionCart); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}

	return &sessionCart, nil
}

func (s *Service) saveGuestCart(ctx context.Context, sessionID string, cart *SessionCart) error {
	cart.ExpiresAt = time.Now().UTC().Add(guestCartTTL)

	cartData, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	return s.redisClient.Set(ctx, guestCartKey(sessionID), cartData, guestCartTTL).Err()
}

// loadProductDetails attaches current product data and prices. Lines whose
// product was hidden or deleted stay in the cart but are marked unavailable.
func (s *Service) loadProductDetails(ctx context.Context, cartItems []CartItemResponse) error {
	if len(cartItems) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(cartItems))
	for _, item := range cartItems {
		ids = append(ids, item.ProductID)
	}

	var products []product.Product
	err := s.db.WithContext(ctx).Preload("Sizes").Where("id IN ?", ids).Find(&products).Error
	if err != nil {
		return fmt.Errorf("failed to load cart products: %w", err)
	}

	byID := make(map[uint]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for i := range cartItems {
		prod, ok := byID[cartItems[i].ProductID]
		if !ok {
			continue
		}
		_, hasSize := prod.StockFor(cartItems[i].Size)
		cartItems[i].Product = prod
		cartItems[i].Price = prod.Price
		cartItems[i].Subtotal = prod.Price.Mul(decimal.NewFromInt(int64(cartItems[i].Quantity)))
		cartItems[i].Available = prod.IsPurchasable() && hasSize
	}

	return nil
}

func calculateTotals(cartItems []CartItemResponse) CartTotals {
	totals := CartTotals{
		ItemCount: len(cartItems),
		SubTotal:  decimal.Zero,
	}

	for _, item := range cartItems {
		totals.TotalQuantity += item.Quantity
		if item.Available {
			totals.SubTotal = totals.SubTotal.Add(item.Subtotal)
		}
	}

	return totals
}
