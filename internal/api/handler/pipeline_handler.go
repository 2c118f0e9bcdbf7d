package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crosscasthq/crosscast-be/internal/api/dto"
	"github.com/crosscasthq/crosscast-be/internal/domain"
)

// RunScan handles POST /api/v1/pipeline/scan
// Runs the ingestion scan across all active workflows.
func (h *PipelineHandler) RunScan(c *gin.Context) {
	h.logger.Info("RunScan called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	report, err := h.scanner.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("Scan failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to run scan",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// DrainQueue handles POST /api/v1/pipeline/drain
// Processes up to one batch of pending items, or one named item.
func (h *PipelineHandler) DrainQueue(c *gin.Context) {
	var req dto.DrainRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Invalid request body", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}
	}

	h.logger.Info("DrainQueue called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("item_id", req.ItemID),
	)

	if req.ItemID != "" {
		if _, err := uuid.Parse(req.ItemID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "item_id must be a valid UUID",
			})
			return
		}
	}

	report, err := h.processor.Drain(c.Request.Context(), req.ItemID)
	if err != nil {
		h.logger.Error("Drain failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to drain queue",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// PublishItem handles POST /api/v1/queue/:item_id/publish
// Accepts a manual publish-now trigger and hands the item to the worker via
// RabbitMQ. Returns immediately; completion is observable by polling the
// item's status.
func (h *PipelineHandler) PublishItem(c *gin.Context) {
	itemID := c.Param("item_id")

	h.logger.Info("PublishItem called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("item_id", itemID),
	)

	if _, err := uuid.Parse(itemID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "item_id must be a valid UUID",
		})
		return
	}

	if _, err := h.storage.GetItem(c.Request.Context(), itemID); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Queue item not found",
			})
			return
		}
		h.logger.Error("Failed to load queue item", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load queue item",
		})
		return
	}

	body, err := json.Marshal(domain.ItemMessage{ItemID: itemID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to encode message",
		})
		return
	}

	if err := h.rabbitClient.PublishWithRetry(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to publish item message", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to accept publish request",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.PublishAcceptedResponse{
		Accepted: true,
		ItemID:   itemID,
	})
}

// RetryItem handles POST /api/v1/queue/:item_id/retry
// Resets a FAILED item to PENDING, clearing error state.
func (h *PipelineHandler) RetryItem(c *gin.Context) {
	itemID := c.Param("item_id")

	h.logger.Info("RetryItem called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("item_id", itemID),
	)

	if _, err := uuid.Parse(itemID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "item_id must be a valid UUID",
		})
		return
	}

	if err := h.storage.RetryItem(c.Request.Context(), itemID); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Item is not in FAILED status",
			})
			return
		}
		h.logger.Error("Failed to retry item", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retry item",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item_id": itemID,
		"status":  domain.ItemStatusPending,
	})
}

// PauseItem handles POST /api/v1/queue/:item_id/pause
// Returns a PROCESSING item to PENDING.
func (h *PipelineHandler) PauseItem(c *gin.Context) {
	itemID := c.Param("item_id")

	h.logger.Info("PauseItem called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("item_id", itemID),
	)

	if _, err := uuid.Parse(itemID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "item_id must be a valid UUID",
		})
		return
	}

	if err := h.storage.ReleaseItem(c.Request.Context(), itemID); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Item is not in PROCESSING status",
			})
			return
		}
		h.logger.Error("Failed to pause item", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to pause item",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item_id": itemID,
		"status":  domain.ItemStatusPending,
	})
}
