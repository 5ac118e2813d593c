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

// UserController handles the per-user views: profile, history and my actions
type UserController struct {
	profileService services.ProfileService
	historyService services.HistoryService
	actionService  services.ActionService
	logger         zerolog.Logger
}

// NewUserController creates a new UserController
func NewUserController(
	profileService services.ProfileService,
	historyService services.HistoryService,
	actionService services.ActionService,
	logger zerolog.Logger,
) *UserController {
	return &UserController{
		profileService: profileService,
		historyService: historyService,
		actionService:  actionService,
		logger:         logger,
	}
}

// GetProfile godoc
// @Summary Get my profile
// @Description Returns the current user's name, e-mail, address and category preferences
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse} "Profile"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /me/profile [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	resp, err := c.profileService.Get(ctx.Request.Context(), middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// UpdateProfile godoc
// @Summary Update my profile
// @Description Updates name, e-mail (unique, case-insensitive), address and preferences
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Profile data"
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse} "Updated profile"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /me/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	var req dto.UpdateProfileRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.profileService.Update(ctx.Request.Context(), middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// History godoc
// @Summary My history
// @Description Past participations (accepted or cancelled) and, for organizers, past organized actions. Each list pages independently.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category filter"
// @Param location query string false "Location substring"
// @Param dateFrom query string false "Only on or after this date (YYYY-MM-DD)"
// @Param pagePart query int false "Participations page" default(1)
// @Param pageOrg query int false "Organized actions page" default(1)
// @Success 200 {object} dto.APIResponse{data=dto.HistoryResponse} "History"
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /me/history [get]
func (c *UserController) History(ctx *gin.Context) {
	filter, ok := listFilter(ctx)
	if !ok {
		return
	}
	resp, err := c.historyService.Get(ctx.Request.Context(), middleware.ActorFrom(ctx), filter,
		helpers.ParsePageParam(ctx, "pagePart"), helpers.ParsePageParam(ctx, "pageOrg"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// MyActions godoc
// @Summary My actions
// @Description Actions organized by the current user, newest first
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category filter"
// @Param location query string false "Location substring"
// @Param dateFrom query string false "Only on or after this date (YYYY-MM-DD)"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.ActionListResponse} "Actions"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /me/actions [get]
func (c *UserController) MyActions(ctx *gin.Context) {
	filter, ok := listFilter(ctx)
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)
	resp, err := c.actionService.ListMine(ctx.Request.Context(), middleware.ActorFrom(ctx), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}
