package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	logger "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Logger"
	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
	interfaces "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Repository/Interfaces"
)

// defaultPoints is the chart window used when the points query parameter is
// absent or not a positive number.
const defaultPoints = 7

// SensorController serves the readings consumed by the dashboard, history
// and chart screens.
type SensorController struct {
	readings interfaces.ReadingRepository
	log      *logger.Logger
}

func NewSensorController(readings interfaces.ReadingRepository, log *logger.Logger) *SensorController {
	return &SensorController{
		readings: readings,
		log:      log.WithComponent("sensor_controller"),
	}
}

// RegisterRoutes wires the sensor endpoints under /api
func (c *SensorController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/sensors", c.GetSensors)
		api.GET("/sensors/area/:area", c.GetSensorsByArea)
	}
}

// GetSensors returns every reading, newest first.
func (c *SensorController) GetSensors(ctx *gin.Context) {
	readings, err := c.readings.FindAll(ctx.Request.Context())
	if err != nil {
		c.log.ErrorWithError(err, "failed to fetch readings")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching sensors"})
		return
	}
	ctx.JSON(http.StatusOK, readings)
}

// GetSensorsByArea returns the most recent N readings for one area in
// chronological order, ready for direct chart consumption.
func (c *SensorController) GetSensorsByArea(ctx *gin.Context) {
	areaLabel := dmtmodels.AreaLabel(ctx.Param("area"))

	points, err := strconv.Atoi(ctx.Query("points"))
	if err != nil || points <= 0 {
		points = defaultPoints
	}

	readings, err := c.readings.FindLatestByArea(ctx.Request.Context(), areaLabel, points)
	if err != nil {
		c.log.ErrorWithError(err, "failed to fetch readings by area")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching sensors"})
		return
	}
	ctx.JSON(http.StatusOK, readings)
}
