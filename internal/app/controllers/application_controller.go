package controllers

import (
	"net/http"

	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/services"
	"github.com/communitylink/communitylink/internal/middleware"
	"github.com/communitylink/communitylink/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ApplicationController handles the volunteer side of the application ledger
type ApplicationController struct {
	applicationService services.ApplicationService
	logger             zerolog.Logger
}

// NewApplicationController creates a new ApplicationController
func NewApplicationController(applicationService services.ApplicationService, logger zerolog.Logger) *ApplicationController {
	return &ApplicationController{
		applicationService: applicationService,
		logger:             logger,
	}
}

// ListMyApplications godoc
// @Summary My applications
// @Description The caller's applications, soonest action first
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category filter"
// @Param location query string false "Location substring"
// @Param dateFrom query string false "Only on or after this date (YYYY-MM-DD)"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationListResponse} "Applications"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /applications [get]
func (c *ApplicationController) ListMyApplications(ctx *gin.Context) {
	filter, ok := listFilter(ctx)
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)
	resp, err := c.applicationService.ListMine(ctx.Request.Context(), middleware.ActorFrom(ctx), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// CreateApplication godoc
// @Summary Apply to an action
// @Description Same as POST /actions/{id}/apply with the action in the body
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateApplicationRequest true "Action to apply to"
// @Success 201 {object} dto.APIResponse{data=dto.TransitionResponse} "Applied"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResponse} "Already applied"
// @Failure 404 {object} dto.APIResponse "Action not found"
// @Failure 409 {object} dto.APIResponse "Own action, full or already took place"
// @Router /applications [post]
func (c *ApplicationController) CreateApplication(ctx *gin.Context) {
	var req dto.CreateApplicationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	respondApply(ctx, c.applicationService, req.ActionID)
}

// GetApplication godoc
// @Summary Get an application
// @Description Visible to its volunteer and to admins; 404 for anyone else
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationResponse} "Application"
// @Failure 404 {object} dto.APIResponse "Application not found"
// @Router /applications/{id} [get]
func (c *ApplicationController) GetApplication(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.applicationService.Get(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// UpdateComment godoc
// @Summary Comment on an application
// @Description The volunteer's comment, only once the action has taken place
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body dto.CommentRequest true "Comment"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationResponse} "Saved"
// @Failure 404 {object} dto.APIResponse "Application not found"
// @Failure 409 {object} dto.APIResponse "Action has not taken place yet"
// @Router /applications/{id} [put]
func (c *ApplicationController) UpdateComment(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.applicationService.UpdateComment(ctx.Request.Context(), middleware.ActorFrom(ctx), id, req.Comment)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// CancelApplication godoc
// @Summary Cancel my application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResponse} "Cancelled or unchanged"
// @Failure 404 {object} dto.APIResponse "Application not found"
// @Failure 409 {object} dto.APIResponse "Action already took place"
// @Router /applications/{id}/cancel [post]
func (c *ApplicationController) CancelApplication(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.applicationService.Cancel(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}
