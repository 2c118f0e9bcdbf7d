package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crosscasthq/crosscast-be/internal/api/dto"
	"github.com/crosscasthq/crosscast-be/internal/domain"
	"github.com/crosscasthq/crosscast-be/internal/storage"
)

// GetItem handles GET /api/v1/queue/:item_id
// Retrieves one queue item.
func (h *PipelineHandler) GetItem(c *gin.Context) {
	itemID := c.Param("item_id")

	if _, err := uuid.Parse(itemID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "item_id must be a valid UUID",
		})
		return
	}

	item, err := h.storage.GetItem(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Queue item not found",
			})
			return
		}
		h.logger.Error("Failed to get queue item", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get queue item",
		})
		return
	}

	c.JSON(http.StatusOK, toItemDTO(item))
}

// ListItems handles GET /api/v1/queue
// Lists queue items with filtering and cursor pagination.
func (h *PipelineHandler) ListItems(c *gin.Context) {
	var req dto.ListItemsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeItemCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.ItemFilter{
		WorkflowID: req.WorkflowID,
		Status:     req.Status,
		PageSize:   req.PageSize,
		Cursor:     cursor,
	}

	items, err := h.storage.ListItems(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list queue items", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list queue items",
		})
		return
	}

	hasMore := len(items) > req.PageSize
	if hasMore {
		items = items[:req.PageSize]
	}

	response := dto.ListItemsResponse{
		Items: make([]dto.QueueItemDTO, len(items)),
	}
	for i := range items {
		response.Items[i] = *toItemDTO(&items[i])
	}

	if hasMore {
		last := items[len(items)-1]
		response.NextCursor, err = EncodeItemCursor(&storage.ItemCursor{
			CreatedAt: last.CreatedAt,
			ItemID:    last.ID,
		})
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, response)
}

// ListRepublished handles GET /api/v1/workflows/:workflow_id/republished
// Returns a workflow's republish history, newest first.
func (h *PipelineHandler) ListRepublished(c *gin.Context) {
	workflowID := c.Param("workflow_id")

	if _, err := uuid.Parse(workflowID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "workflow_id must be a valid UUID",
		})
		return
	}

	records, err := h.storage.ListRepublished(c.Request.Context(), workflowID, 100)
	if err != nil {
		h.logger.Error("Failed to list republished records", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list republished records",
		})
		return
	}

	response := dto.ListRepublishedResponse{
		Records: make([]dto.RepublishedRecordDTO, len(records)),
	}
	for i, record := range records {
		response.Records[i] = dto.RepublishedRecordDTO{
			RecordID:       record.ID,
			WorkflowID:     record.WorkflowID,
			SourcePlatform: record.SourcePlatform,
			TargetPlatform: record.TargetPlatform,
			SourceItemID:   record.SourceItemID,
			TargetItemID:   record.TargetItemID,
			Title:          record.Title,
			Status:         record.Status,
			CreatedAt:      record.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, response)
}

func toItemDTO(item *domain.QueueItem) *dto.QueueItemDTO {
	return &dto.QueueItemDTO{
		ItemID:           item.ID,
		WorkflowID:       item.WorkflowID,
		SourcePlatform:   item.SourcePlatform,
		PlatformItemID:   item.PlatformItemID,
		Title:            item.Title,
		Description:      item.Description,
		Thumbnail:        item.Thumbnail,
		DurationSeconds:  item.DurationSeconds,
		Status:           item.Status,
		TargetPlatformID: item.TargetPlatformID,
		ErrorMessage:     item.ErrorMessage,
		CreatedAt:        item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        item.UpdatedAt.Format(time.RFC3339),
	}
}
