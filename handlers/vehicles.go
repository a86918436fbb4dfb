package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gonum.org/v1/gonum/stat"
	"gorm.io/gorm"

	"speedguard/models"
)

type VehiclesHandler struct {
	db *gorm.DB
}

func NewVehiclesHandler(db *gorm.DB) *VehiclesHandler {
	return &VehiclesHandler{db: db}
}

type VehicleStats struct {
	VehicleID   string  `json:"vehicle_id"`
	WindowMin   int     `json:"window_min"`
	SampleCount int     `json:"sample_count"`
	MeanSpeed   float64 `json:"mean_speed"`
	StdDevSpeed float64 `json:"stddev_speed"`
	MaxSpeed    float64 `json:"max_speed"`
	AlertCount  int64   `json:"alert_count"`
}

// GetStats summarizes a vehicle's recent speeds over a lookback window.
func (h *VehiclesHandler) GetStats(c *gin.Context) {
	vehicleID := c.Param("id")

	windowMin := 60
	if w := c.Query("window_min"); w != "" {
		if parsed, err := strconv.Atoi(w); err == nil && parsed > 0 {
			windowMin = parsed
		}
	}
	since := time.Now().UTC().Add(-time.Duration(windowMin) * time.Minute)

	var speeds []float64
	err := h.db.Model(&models.SpeedReading{}).
		Where("vehicle_id = ? AND ts >= ?", vehicleID, since).
		Pluck("speed_kmh", &speeds).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	if len(speeds) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no readings for vehicle in window"})
		return
	}

	var alertCount int64
	if err := h.db.Model(&models.SpeedAlert{}).
		Where("vehicle_id = ? AND violation_ts >= ?", vehicleID, since).
		Count(&alertCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	maxSpeed := speeds[0]
	for _, s := range speeds[1:] {
		if s > maxSpeed {
			maxSpeed = s
		}
	}

	// StdDev needs at least two samples; NaN does not survive JSON encoding.
	stddev := 0.0
	if len(speeds) > 1 {
		stddev = stat.StdDev(speeds, nil)
	}

	stats := VehicleStats{
		VehicleID:   vehicleID,
		WindowMin:   windowMin,
		SampleCount: len(speeds),
		MeanSpeed:   stat.Mean(speeds, nil),
		StdDevSpeed: stddev,
		MaxSpeed:    maxSpeed,
		AlertCount:  alertCount,
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
