package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	invoicedomain "github.com/shopforge/invoicepress/internal/invoice/domain"
	invoiceservice "github.com/shopforge/invoicepress/internal/invoice/service"
	"github.com/shopforge/invoicepress/internal/money"
)

type generateRequest struct {
	Layout    string `json:"layout"`
	SendEmail bool   `json:"sendEmail"`
}

type invoiceResponse struct {
	InvoiceNumber string `json:"invoiceNumber"`
	OrderID       string `json:"orderId"`
	OrderNumber   string `json:"orderNumber"`
	Subtotal      string `json:"subtotal"`
	Tax           string `json:"tax"`
	Total         string `json:"total"`
	GSTType       string `json:"gstType"`
	Status        string `json:"status"`
	DownloadURL   string `json:"downloadUrl"`
	CreatedAt     string `json:"createdAt"`
}

func toInvoiceResponse(inv *invoicedomain.Invoice) invoiceResponse {
	return invoiceResponse{
		InvoiceNumber: inv.InvoiceNumber,
		OrderID:       inv.OrderID,
		OrderNumber:   inv.OrderNumber,
		Subtotal:      money.Paise(inv.SubtotalPaise).String(),
		Tax:           money.Paise(inv.TaxPaise).String(),
		Total:         money.Paise(inv.TotalPaise).String(),
		GSTType:       inv.GSTType,
		Status:        string(inv.Status),
		DownloadURL:   invoiceservice.DownloadURL(inv.ArtifactKey),
		CreatedAt:     inv.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// GenerateInvoice runs the full pipeline for one order synchronously.
func (s *Server) GenerateInvoice(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	job, result, err := s.jobs.GenerateSingle(c.Request.Context(), shopFrom(c), c.Param("orderID"), invoicedomain.GenerateOptions{
		Layout:    req.Layout,
		SendEmail: req.SendEmail,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobId":         job.ID.String(),
		"invoiceNumber": result.InvoiceNumber,
		"artifactKey":   result.ArtifactKey,
		"downloadUrl":   result.DownloadURL,
		"size":          result.Size,
	})
}

// GetInvoice returns the stored invoice record for an order.
func (s *Server) GetInvoice(c *gin.Context) {
	inv, err := s.invoices.GetByOrder(c.Request.Context(), shopFrom(c), c.Param("orderID"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInvoiceResponse(inv))
}
