// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
)

// InventoryHandler serves stock reports to admins
type InventoryHandler struct {
	inventoryService *inventory.Service
	log              *logrus.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service, log *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		log:              log,
	}
}

// GetLowStock handles GET /admin/inventory/low-stock?threshold=N
func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	threshold := inventory.DefaultLowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid query parameters",
				"details": "threshold must be an integer",
			})
			return
		}
		threshold = n
	}

	report, err := h.inventoryService.LowStock(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Low stock report generated",
		"data":    report,
	})
}

// GetStockLevel handles GET /admin/inventory/products/:id
func (h *InventoryHandler) GetStockLevel(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	level, err := h.inventoryService.GetStockLevel(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock level retrieved successfully",
		"data":    level,
	})
}
