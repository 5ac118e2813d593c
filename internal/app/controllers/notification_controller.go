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

// NotificationController handles the current user's outbox
type NotificationController struct {
	notificationService services.NotificationService
	pageSize            int
	logger              zerolog.Logger
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notificationService services.NotificationService, pageSize int, logger zerolog.Logger) *NotificationController {
	if pageSize <= 0 {
		pageSize = helpers.DefaultPageSize
	}
	return &NotificationController{
		notificationService: notificationService,
		pageSize:            pageSize,
		logger:              logger,
	}
}

// ListNotifications godoc
// @Summary List my notifications
// @Description Newest first. Listing through the API does not mark anything read.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Success 200 {object} dto.APIResponse{data=dto.NotificationListResponse} "Notifications"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	page := helpers.ParsePageParam(ctx, "page")
	resp, err := c.notificationService.List(ctx.Request.Context(), middleware.ActorFrom(ctx), page, c.pageSize, false)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// UnreadCount godoc
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UnreadCountResponse} "Unread count"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	n, err := c.notificationService.UnreadCount(ctx.Request.Context(), middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.UnreadCountResponse{Unread: n}))
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Marked read"
// @Failure 404 {object} dto.APIResponse "Notification not found"
// @Router /notifications/{id}/read [post]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.notificationService.MarkRead(ctx.Request.Context(), middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Notification marked as read"}))
}

// ClearRead godoc
// @Summary Delete read notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ClearReadResponse} "Deleted"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /notifications/read [delete]
func (c *NotificationController) ClearRead(ctx *gin.Context) {
	deleted, err := c.notificationService.ClearRead(ctx.Request.Context(), middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ClearReadResponse{Deleted: deleted}))
}
