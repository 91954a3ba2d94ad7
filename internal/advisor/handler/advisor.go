// Package handler provides HTTP handlers for the course advisor service.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/course-advisor/internal/advisor/biz"
	"github.com/kart-io/course-advisor/internal/advisor/metrics"
)

// AdvisorHandler handles advisor HTTP requests.
type AdvisorHandler struct {
	service    biz.Service
	checker    HealthChecker
	collection string
}

// HealthChecker reports whether the vector backend is reachable.
type HealthChecker interface {
	GetCollectionStats(ctx context.Context, collection string) (int64, error)
}

// NewAdvisorHandler creates a new AdvisorHandler.
func NewAdvisorHandler(service biz.Service, checker HealthChecker, collection string) *AdvisorHandler {
	return &AdvisorHandler{
		service:    service,
		checker:    checker,
		collection: collection,
	}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ChatRequest represents a chat request.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query" binding:"required"`
}

// ChatResponse represents a chat response.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// Chat answers a single query within a session. A missing session_id
// starts a new conversation and the assigned id is echoed back.
func (h *AdvisorHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	conv := h.service.Sessions().GetOrCreate(req.SessionID)
	answer := h.service.HandleQuery(ctx, conv, req.Query)

	c.JSON(http.StatusOK, SuccessResponse{
		Code:    0,
		Message: "success",
		Data: ChatResponse{
			SessionID: conv.ID(),
			Answer:    answer,
		},
	})
}

// IndexRequest represents a catalog index request.
type IndexRequest struct {
	Courses []biz.CatalogRecord `json:"courses" binding:"required"`
}

// Index adds catalog records to the vector index.
func (h *AdvisorHandler) Index(c *gin.Context) {
	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	indexed, err := h.service.IndexCatalog(c.Request.Context(), req.Courses)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Code:    0,
		Message: "Catalog indexed successfully",
		Data:    gin.H{"indexed": indexed},
	})
}

// Reindex drops the collection and rebuilds it from the given records.
func (h *AdvisorHandler) Reindex(c *gin.Context) {
	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	indexed, err := h.service.ReindexCatalog(c.Request.Context(), req.Courses)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Code:    0,
		Message: "Catalog reindexed successfully",
		Data:    gin.H{"indexed": indexed},
	})
}

// Stats returns service statistics.
func (h *AdvisorHandler) Stats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}

// Healthz reports service health including vector backend reachability.
func (h *AdvisorHandler) Healthz(c *gin.Context) {
	status := gin.H{"status": "ok"}

	if h.checker != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if _, err := h.checker.GetCollectionStats(ctx, h.collection); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"milvus": err.Error(),
			})
			return
		}
		status["milvus"] = "ok"
	}

	c.JSON(http.StatusOK, status)
}

// Metrics exposes counters in Prometheus text format.
func (h *AdvisorHandler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8",
		[]byte(metrics.GetAdvisorMetrics().Export("advisor", "")))
}
