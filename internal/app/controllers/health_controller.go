package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Pinger is anything whose reachability the health check reports
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController reports whether the database answers
type HealthController struct {
	db     Pinger
	logger zerolog.Logger
}

// NewHealthController creates a new HealthController
func NewHealthController(db Pinger, logger zerolog.Logger) *HealthController {
	return &HealthController{db: db, logger: logger}
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.APIResponse "ok"
// @Failure 503 {object} dto.APIResponse "database unavailable"
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	pctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()
	if err := c.db.Ping(pctx); err != nil {
		c.logger.Error().Err(err).Msg("Health check failed")
		ctx.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(gin.H{"status": "unavailable", "database": "down"}))
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok", "database": "up"}))
}
