package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/shopforge/invoicepress/internal/apperr"
	printjobdomain "github.com/shopforge/invoicepress/internal/printjob/domain"
	printjobservice "github.com/shopforge/invoicepress/internal/printjob/service"
)

type bulkRequest struct {
	OrderIDs []string `json:"orderIds"`
	Layout   string   `json:"layout"`
}

type jobResponse struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Status         string  `json:"status"`
	Progress       int     `json:"progress"`
	TotalOrders    int     `json:"totalOrders"`
	CompletedCount int     `json:"completedCount"`
	FailedCount    int     `json:"failedCount"`
	DownloadURL    string  `json:"downloadUrl,omitempty"`
	Error          string  `json:"error,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	CompletedAt    *string `json:"completedAt,omitempty"`
}

func toJobResponse(job *printjobdomain.PrintJob) jobResponse {
	resp := jobResponse{
		ID:             job.ID.String(),
		Type:           string(job.Type),
		Status:         string(job.Status),
		Progress:       job.Progress,
		TotalOrders:    len(job.OrderIDs),
		CompletedCount: job.CompletedCount,
		FailedCount:    job.FailedCount,
		DownloadURL:    printjobservice.DownloadURL(job),
		Error:          job.Error,
		CreatedAt:      job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &completedAt
	}
	return resp
}

// CreateBulkJob queues asynchronous generation for a batch of orders.
func (s *Server) CreateBulkJob(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	job, err := s.jobs.CreateBulk(c.Request.Context(), shopFrom(c), req.OrderIDs, req.Layout)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toJobResponse(job))
}

// GetJob reports job progress and, once complete, the archive link.
func (s *Server) GetJob(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}

	job, err := s.jobs.Get(c.Request.Context(), shopFrom(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

// CancelJob requests cooperative cancellation of a running job.
func (s *Server) CancelJob(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}

	if err := s.jobs.Cancel(c.Request.Context(), shopFrom(c), id); err != nil {
		AbortWithError(c, err)
		return
	}

	job, err := s.jobs.Get(c.Request.Context(), shopFrom(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func parseJobID(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param("jobID"))
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: job %s", apperr.ErrNotFound, c.Param("jobID")))
		return 0, false
	}
	return id, true
}
