// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	log          *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, log *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// CreateOrderRequest is the body of the internal order creation call, made
// by a trusted service after it verified the payment itself.
type CreateOrderRequest struct {
	UserID          *uint                 `json:"user_id"`
	Items           []order.ItemInput     `json:"items" binding:"required,min=1,dive"`
	ShippingDetails order.ShippingDetails `json:"shipping_details"`
	PaymentDetails  order.PaymentDetails  `json:"payment_details"`
	ShippingFee     *decimal.Decimal      `json:"shipping_fee"`
	Tax             *decimal.Decimal      `json:"tax"`
	Discount        *decimal.Decimal      `json:"discount"`
	OrderTotal      *decimal.Decimal      `json:"order_total"`
	Status          order.OrderStatus     `json:"status" binding:"omitempty,oneof=confirmed processing"`
}

// StatusUpdateRequest moves an order along its lifecycle
type StatusUpdateRequest struct {
	Status   order.OrderStatus `json:"status" binding:"required,oneof=pending confirmed processing shipped delivered cancelled"`
	Message  string            `json:"message" binding:"max=500"`
	Location string            `json:"location" binding:"max=255"`
}

// CancelRequest carries the optional cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CreateOrder handles POST /orders (internal secret required)
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.orderService.CreateOrder(c.Request.Context(), &order.CreateOrderInput{
		UserID:   req.UserID,
		Items:    req.Items,
		Shipping: req.ShippingDetails,
		Payment:  req.PaymentDetails,
		Adjustments: order.Adjustments{
			ShippingFee: req.ShippingFee,
			Tax:         req.Tax,
			Discount:    req.Discount,
		},
		ExpectedTotal: req.OrderTotal,
		Status:        req.Status,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"order_number": created.OrderNumber,
		"order_id":     created.ID,
	})
}

// GetOrderByNumber handles GET /orders/by-number/:orderNumber
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	o, ok := h.loadAuthorized(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// GetUserOrders handles GET /orders/user/:userId
func (h *OrderHandler) GetUserOrders(c *gin.Context) {
	userID, ok := parseUintParam(c, "userId")
	if !ok {
		return
	}

	if !middleware.IsInternalCaller(c) && !middleware.IsAdminFromContext(c) {
		callerID, _ := middleware.GetUserIDFromContext(c)
		if callerID != userID {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Access denied",
			})
			return
		}
	}

	orders, err := h.orderService.GetUserOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    orders,
	})
}

// AdminGetOrders handles GET /admin/orders
func (h *OrderHandler) AdminGetOrders(c *gin.Context) {
	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.orderService.ListOrders(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// AdminUpdateOrderStatus handles PUT /admin/orders/:orderNumber/status
func (h *OrderHandler) AdminUpdateOrderStatus(c *gin.Context) {
	var req StatusUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("orderNumber"), req.Status, order.TrackingUpdate{
		Message:  req.Message,
		Location: req.Location,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	adminID, _ := middleware.GetUserIDFromContext(c)
	h.log.WithFields(logrus.Fields{
		"order_number": updated.OrderNumber,
		"status":       updated.Status,
		"admin_id":     strconv.FormatUint(uint64(adminID), 10),
	}).Info("Order status updated")

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"data":    updated,
	})
}

// AdminCancelOrder handles PUT /admin/orders/:orderNumber/cancel
func (h *OrderHandler) AdminCancelOrder(c *gin.Context) {
	var req CancelRequest
	// the body is optional
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	cancelled, err := h.orderService.CancelOrder(c.Request.Context(), c.Param("orderNumber"), req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    cancelled,
	})
}

func (h *OrderHandler) loadAuthorized(c *gin.Context) (*order.Order, bool) {
	return loadOrderForCaller(c, h.orderService, h.log)
}

// loadOrderForCaller fetches the order named in the path and checks the
// caller may read it: internal callers and admins see every order, customers
// only their own. Guest orders have no owner to match.
func loadOrderForCaller(c *gin.Context, orders *order.Service, log *logrus.Logger) (*order.Order, bool) {
	o, err := orders.GetOrderByNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		respondError(c, log, err)
		return nil, false
	}

	if middleware.IsInternalCaller(c) || middleware.IsAdminFromContext(c) {
		return o, true
	}

	callerID, ok := middleware.GetUserIDFromContext(c)
	if !ok || o.UserID == nil || *o.UserID != callerID {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Access denied",
		})
		return nil, false
	}
	return o, true
}
