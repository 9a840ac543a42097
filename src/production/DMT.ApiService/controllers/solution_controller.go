package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	logger "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Logger"
	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
	interfaces "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Repository/Interfaces"
)

// SolutionController serves the manually logged nutrient and pH-correction
// events.
type SolutionController struct {
	solutions   interfaces.SolutionRepository
	maxQuantity float64
	log         *logger.Logger
}

func NewSolutionController(solutions interfaces.SolutionRepository, maxQuantity float64, log *logger.Logger) *SolutionController {
	return &SolutionController{
		solutions:   solutions,
		maxQuantity: maxQuantity,
		log:         log.WithComponent("solution_controller"),
	}
}

// RegisterRoutes wires the solution endpoints under /api. The mixed-case
// path matches what the mobile app calls.
func (c *SolutionController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/Solutions", c.CreateSolution)
		api.GET("/Solutions", c.GetSolutions)
	}
}

type CreateSolutionRequest struct {
	Area          string    `json:"area" binding:"required"`
	Type          string    `json:"type" binding:"required"`
	Concentration string    `json:"concentration" binding:"required"`
	Quantity      float64   `json:"quantity" binding:"required"`
	Date          time.Time `json:"date" binding:"required"`
	Notes         string    `json:"notes"`
}

// CreateSolution validates and stores a solution application. The request
// check here is advisory; the collection schema enforces the same
// constraints on write.
func (c *SolutionController) CreateSolution(ctx *gin.Context) {
	var req CreateSolutionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sol := dmtmodels.SolutionApplication{
		Area:          req.Area,
		Type:          req.Type,
		Concentration: req.Concentration,
		Quantity:      req.Quantity,
		Date:          req.Date,
		CreatedAt:     time.Now().UTC(),
		Notes:         req.Notes,
	}

	if err := sol.Validate(c.maxQuantity); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := c.solutions.InsertSolution(ctx.Request.Context(), sol)
	if err != nil {
		if errors.Is(err, dmtmodels.ErrValidation) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.log.ErrorWithError(err, "failed to insert solution")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving solution"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Saved", "data": saved})
}

// GetSolutions returns every solution application, newest application date
// first.
func (c *SolutionController) GetSolutions(ctx *gin.Context) {
	solutions, err := c.solutions.FindAllSolutions(ctx.Request.Context())
	if err != nil {
		c.log.ErrorWithError(err, "failed to fetch solutions")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching solutions"})
		return
	}
	ctx.JSON(http.StatusOK, solutions)
}
