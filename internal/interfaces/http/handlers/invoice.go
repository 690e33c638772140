// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// InvoiceRenderer produces invoices for an order
type InvoiceRenderer interface {
	GenerateInvoice(o *order.Order) (*bytes.Buffer, error)
	RenderInvoiceHTML(o *order.Order) (string, error)
}

// InvoiceHandler handles invoice-related endpoints
type InvoiceHandler struct {
	orderService *order.Service
	invoices     InvoiceRenderer
	log          *logrus.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService *order.Service, invoices InvoiceRenderer, log *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		invoices:     invoices,
		log:          log,
	}
}

// GenerateInvoice handles GET /orders/by-number/:orderNumber/invoice.
// ?format=html returns the printable page instead of the PDF.
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	o, ok := loadOrderForCaller(c, h.orderService, h.log)
	if !ok {
		return
	}

	if c.Query("format") == "html" {
		page, err := h.invoices.RenderInvoiceHTML(o)
		if err != nil {
			respondError(c, h.log, fmt.Errorf("failed to render invoice: %w", err))
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
		return
	}

	pdfBuffer, err := h.invoices.GenerateInvoice(o)
	if err != nil {
		respondError(c, h.log, fmt.Errorf("failed to generate invoice: %w", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", o.OrderNumber))
	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}
