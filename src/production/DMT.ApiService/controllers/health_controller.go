package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MQTTStatus reports whether the bus adapter currently holds a broker
// connection.
type MQTTStatus interface {
	IsConnected() bool
}

// HealthController exposes liveness and readiness probes.
type HealthController struct {
	client *mongo.Client
	mqtt   MQTTStatus
}

func NewHealthController(client *mongo.Client, mqtt MQTTStatus) *HealthController {
	return &HealthController{client: client, mqtt: mqtt}
}

func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health/live", c.Live)
	router.GET("/health/ready", c.Ready)
}

func (c *HealthController) Live(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (c *HealthController) Ready(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	dbOK := c.client.Ping(pingCtx, readpref.Primary()) == nil
	mqttOK := c.mqtt != nil && c.mqtt.IsConnected()

	status := http.StatusOK
	state := "ready"
	if !dbOK {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	ctx.JSON(status, gin.H{
		"status": state,
		"db":     dbOK,
		"mqtt":   mqttOK,
	})
}
