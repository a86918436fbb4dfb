package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"speedguard/models"
	"speedguard/services"
)

type AlertsHandler struct {
	db    *gorm.DB
	cache *services.CacheService
}

func NewAlertsHandler(db *gorm.DB, cache *services.CacheService) *AlertsHandler {
	return &AlertsHandler{db: db, cache: cache}
}

// GetAlerts lists persisted alerts newest first, filterable by vehicle,
// status and severity.
func (h *AlertsHandler) GetAlerts(c *gin.Context) {
	q := parseFeedQuery(c)
	vehicleID := c.Query("vehicle_id")
	status := c.Query("status")
	severity := c.Query("severity")

	beforeStr := ""
	if q.Before != nil {
		beforeStr = cursorOf(*q.Before)
	}
	cacheKey := fmt.Sprintf("alerts:%s:%s:%s:%d:%s", vehicleID, status, severity, q.PageSize, beforeStr)

	var cached feedPage
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Data != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	query := h.db.Model(&models.SpeedAlert{}).Order("violation_ts DESC").Limit(q.PageSize + 1)
	if q.Before != nil {
		query = query.Where("violation_ts < ?", *q.Before)
	}
	if vehicleID != "" {
		query = query.Where("vehicle_id = ?", vehicleID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}

	var rows []models.SpeedAlert
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
		nextCursor = cursorOf(rows[len(rows)-1].ViolationTS)
	}

	resp := feedPage{Data: rows, NextCursor: nextCursor, HasMore: hasMore}
	go h.cache.Set(context.Background(), cacheKey, resp, 5*time.Second)

	c.JSON(http.StatusOK, resp)
}

// ResolveAlert transitions an ACTIVE alert to RESOLVED.
func (h *AlertsHandler) ResolveAlert(c *gin.Context) {
	h.transition(c, models.AlertStatusResolved)
}

// DismissAlert transitions an ACTIVE alert to DISMISSED.
func (h *AlertsHandler) DismissAlert(c *gin.Context) {
	h.transition(c, models.AlertStatusDismissed)
}

func (h *AlertsHandler) transition(c *gin.Context, target string) {
	alertID := c.Param("id")

	var alert models.SpeedAlert
	if err := h.db.Where("alert_id = ?", alertID).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	if alert.Status != models.AlertStatusActive {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("alert is %s, only ACTIVE alerts can transition", alert.Status)})
		return
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      target,
		"resolved_at": now,
	}
	if err := h.db.Model(&alert).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	alert.Status = target
	alert.ResolvedAt = &now

	// Cached list responses self-heal after their TTL; drop the default
	// page eagerly so dashboards see the transition sooner.
	go h.cache.Delete(context.Background(), fmt.Sprintf("alerts::::%d:", defaultPageSize))

	c.JSON(http.StatusOK, gin.H{"data": alert})
}
