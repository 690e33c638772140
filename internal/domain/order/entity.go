// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order represents the order entity
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      *uint       `gorm:"index" json:"user_id"` // Nullable for guest orders
	Status      OrderStatus `gorm:"not null;default:'pending';size:20;index" json:"status"`

	// Financial Information (INR)
	Subtotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	ShippingFee decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shipping_fee"`
	Tax         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tax"`
	Discount    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	OrderTotal  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"order_total"`
	Currency    string          `gorm:"size:3;not null;default:'INR'" json:"currency"`

	Shipping ShippingDetails `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_details"`
	Payment  PaymentDetails  `gorm:"embedded;embeddedPrefix:payment_" json:"payment_details"`

	CancelReason string     `gorm:"type:text" json:"cancel_reason,omitempty"`
	ShippedAt    *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relationships
	Items    []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	Tracking []TrackingEvent `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"tracking,omitempty"`
}

// OrderItem is a line frozen at order time; later product edits never touch it
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Size      string          `gorm:"not null;size:20" json:"size"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`    // Unit price
	Subtotal  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"` // Quantity * Price
	CreatedAt time.Time       `json:"created_at"`
}

// TrackingEvent records a delivery or status milestone
type TrackingEvent struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"-"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Message   string      `gorm:"type:text" json:"message"`
	Location  string      `gorm:"size:255" json:"location,omitempty"`
	Timestamp time.Time   `gorm:"column:occurred_at;not null" json:"timestamp"`
}

// ShippingDetails represents the delivery address (embedded in Order)
type ShippingDetails struct {
	Name    string `gorm:"size:255" json:"name" binding:"required,max=255"`
	Email   string `gorm:"size:255" json:"email" binding:"omitempty,email"`
	Address string `gorm:"type:text" json:"address" binding:"required"`
	City    string `gorm:"size:100" json:"city" binding:"required,max=100"`
	State   string `gorm:"size:100" json:"state" binding:"required,max=100"`
	Pincode string `gorm:"size:20" json:"pincode" binding:"required,pincode"`
	Country string `gorm:"size:100" json:"country" binding:"required,max=100"`
	Phone   string `gorm:"size:20" json:"phone" binding:"required,max=20"`
}

// PaymentDetails records how the order was paid (embedded in Order)
type PaymentDetails struct {
	Gateway          string        `gorm:"size:20" json:"gateway" binding:"required,oneof=razorpay payu"`
	GatewayOrderID   string        `gorm:"size:100;index" json:"gateway_order_id" binding:"required,max=100"`
	GatewayPaymentID string        `gorm:"size:100;uniqueIndex" json:"gateway_payment_id" binding:"required,max=100"`
	Status           PaymentStatus `gorm:"size:20;not null" json:"status" binding:"required"`
	PaidBy           string        `gorm:"size:255" json:"paid_by,omitempty"`
}

// TableName overrides
func (Order) TableName() string         { return "orders" }
func (OrderItem) TableName() string     { return "order_items" }
func (TrackingEvent) TableName() string { return "order_tracking_events" }

// Business methods for Order

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return isValidStatusTransition(o.Status, OrderStatusCancelled)
}

// IsCompleted checks if order reached the customer
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusDelivered
}

// CustomerEmail returns the address notifications should go to
func (o *Order) CustomerEmail() string {
	if o.Shipping.Email != "" {
		return o.Shipping.Email
	}
	return o.Payment.PaidBy
}

// AddTrackingEvent appends a new tracking event
func (o *Order) AddTrackingEvent(status OrderStatus, message, location string) TrackingEvent {
	event := TrackingEvent{
		OrderID:   o.ID,
		Status:    status,
		Message:   message,
		Location:  location,
		Timestamp: time.Now().UTC(),
	}
	o.Tracking = append(o.Tracking, event)
	return event
}
