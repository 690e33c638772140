// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

// Dependencies are the services the API is built on
type Dependencies struct {
	Products  *product.Service
	Inventory *inventory.Service
	Carts     *cart.Service
	Orders    *order.Service
	Checkout  *payment.CheckoutService
	PayU      *payment.PayUGateway
	Invoices  handlers.InvoiceRenderer
	JWT       *auth.JWTManager
}

// SetupRoutes registers every API route on the /api/v1 group
func SetupRoutes(rg *gin.RouterGroup, deps Dependencies, cfg *config.Config, log *logrus.Logger) {
	SetupProductRoutes(rg, deps, log)
	SetupCartRoutes(rg, deps, log)
	SetupPaymentRoutes(rg, deps, cfg, log)
	SetupOrderRoutes(rg, deps, cfg, log)
	SetupAdminRoutes(rg, deps, log)
}

// SetupProductRoutes sets up the public catalogue
func SetupProductRoutes(rg *gin.RouterGroup, deps Dependencies, log *logrus.Logger) {
	productHandler := handlers.NewProductHandler(deps.Products, log)

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
	}
}

// SetupCartRoutes sets up cart routes for users and guests
func SetupCartRoutes(rg *gin.RouterGroup, deps Dependencies, log *logrus.Logger) {
	cartHandler := handlers.NewCartHandler(deps.Carts, log)

	carts := rg.Group("/cart")
	carts.Use(middleware.OptionalAuthMiddleware(deps.JWT))
	{
		carts.GET("", cartHandler.GetCart)
		carts.GET("/count", cartHandler.GetCartCount)
		carts.POST("/items", cartHandler.AddToCart)
		carts.PUT("/items", cartHandler.UpdateCartItem)
		carts.DELETE("/items", cartHandler.RemoveFromCart)
		carts.DELETE("", cartHandler.ClearCart)
	}

	merge := rg.Group("/cart")
	merge.Use(middleware.AuthMiddleware(deps.JWT))
	{
		merge.POST("/merge", cartHandler.MergeGuestCart)
	}
}

// SetupPaymentRoutes sets up checkout and gateway callback routes
func SetupPaymentRoutes(rg *gin.RouterGroup, deps Dependencies, cfg *config.Config, log *logrus.Logger) {
	paymentHandler := handlers.NewPaymentHandler(deps.Checkout, deps.PayU, cfg, log)

	payments := rg.Group("/payment")
	payments.Use(middleware.OptionalAuthMiddleware(deps.JWT))
	{
		payments.POST("/create-order", paymentHandler.CreateOrder)
		payments.POST("/verify", paymentHandler.VerifyPayment)
	}

	payu := rg.Group("/payu")
	{
		payu.POST("/hash", paymentHandler.PayUHash)
		payu.POST("/checkout", middleware.OptionalAuthMiddleware(deps.JWT), paymentHandler.PayUCheckout)
		// posted by the customer's browser from the PayU page
		payu.POST("/callback", paymentHandler.PayUCallback)
	}
}

// SetupOrderRoutes sets up order creation and reads
func SetupOrderRoutes(rg *gin.RouterGroup, deps Dependencies, cfg *config.Config, log *logrus.Logger) {
	orderHandler := handlers.NewOrderHandler(deps.Orders, log)
	invoiceHandler := handlers.NewInvoiceHandler(deps.Orders, deps.Invoices, log)

	orders := rg.Group("/orders")
	{
		orders.POST("", middleware.RequireInternal(cfg), orderHandler.CreateOrder)

		reads := orders.Group("")
		reads.Use(middleware.InternalOrAuth(deps.JWT, cfg))
		{
			reads.GET("/by-number/:orderNumber", orderHandler.GetOrderByNumber)
			reads.GET("/by-number/:orderNumber/invoice", invoiceHandler.GenerateInvoice)
			reads.GET("/user/:userId", orderHandler.GetUserOrders)
		}
	}
}

// SetupAdminRoutes sets up admin routes
func SetupAdminRoutes(rg *gin.RouterGroup, deps Dependencies, log *logrus.Logger) {
	productHandler := handlers.NewProductHandler(deps.Products, log)
	orderHandler := handlers.NewOrderHandler(deps.Orders, log)
	inventoryHandler := handlers.NewInventoryHandler(deps.Inventory, log)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(deps.JWT))
	admin.Use(middleware.AdminMiddleware())
	{
		products := admin.Group("/products")
		{
			products.GET("", productHandler.AdminGetProducts)
			products.GET("/:id", productHandler.AdminGetProduct)
			products.POST("", productHandler.AdminCreateProduct)
			products.PUT("/:id", productHandler.AdminUpdateProduct)
			products.DELETE("/:id", productHandler.AdminDeleteProduct)
			products.PUT("/:id/stock", productHandler.AdminSetStock)
			products.PUT("/:id/visibility", productHandler.AdminSetVisibility)
		}

		orders := admin.Group("/orders")
		{
			orders.GET("", orderHandler.AdminGetOrders)
			orders.PUT("/:orderNumber/status", orderHandler.AdminUpdateOrderStatus)
			orders.PUT("/:orderNumber/cancel", orderHandler.AdminCancelOrder)
		}

		stock := admin.Group("/inventory")
		{
			stock.GET("/low-stock", inventoryHandler.GetLowStock)
			stock.GET("/products/:id", inventoryHandler.GetStockLevel)
		}
	}
}
