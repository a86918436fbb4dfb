package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"speedguard/models"
	"speedguard/services"
)

type ReadingsHandler struct {
	db    *gorm.DB
	cache *services.CacheService
}

func NewReadingsHandler(db *gorm.DB, cache *services.CacheService) *ReadingsHandler {
	return &ReadingsHandler{db: db, cache: cache}
}

// GetReadings lists persisted readings newest first, cursor-paginated on ts.
func (h *ReadingsHandler) GetReadings(c *gin.Context) {
	q := parseFeedQuery(c)
	vehicleID := c.Query("vehicle_id")

	beforeStr := ""
	if q.Before != nil {
		beforeStr = cursorOf(*q.Before)
	}
	cacheKey := fmt.Sprintf("readings:%s:%d:%s", vehicleID, q.PageSize, beforeStr)

	var cached feedPage
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Data != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	query := h.db.Model(&models.SpeedReading{}).Order("ts DESC").Limit(q.PageSize + 1)
	if q.Before != nil {
		query = query.Where("ts < ?", *q.Before)
	}
	if vehicleID != "" {
		query = query.Where("vehicle_id = ?", vehicleID)
	}

	var rows []models.SpeedReading
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	hasMore := len(rows) > q.PageSize
	if hasMore {
		rows = rows[:q.PageSize]
	}

	var nextCursor string
	if hasMore && len(rows) > 0 {
		nextCursor = cursorOf(rows[len(rows)-1].TS)
	}

	resp := feedPage{Data: rows, NextCursor: nextCursor, HasMore: hasMore}
	go h.cache.Set(context.Background(), cacheKey, resp, 5*time.Second)

	c.JSON(http.StatusOK, resp)
}
