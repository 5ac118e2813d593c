package controllers

import (
	"net/http"

	"github.com/communitylink/communitylink/internal/app/ledger"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/services"
	"github.com/communitylink/communitylink/internal/middleware"
	"github.com/communitylink/communitylink/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ActionController handles the action registry and the organizer's decisions
type ActionController struct {
	actionService      services.ActionService
	applicationService services.ApplicationService
	logger             zerolog.Logger
}

// NewActionController creates a new ActionController
func NewActionController(actionService services.ActionService, applicationService services.ApplicationService, logger zerolog.Logger) *ActionController {
	return &ActionController{
		actionService:      actionService,
		applicationService: applicationService,
		logger:             logger,
	}
}

// ListActions godoc
// @Summary List upcoming actions
// @Description Actions scheduled from today on, soonest first, with optional filters
// @Tags actions
// @Produce json
// @Param category query string false "Category filter" Enums(HEALTH, EDUCATION, ENVIRONMENT, ANIMALS, OTHER)
// @Param location query string false "Location substring (case-insensitive)"
// @Param dateFrom query string false "Only on or after this date (YYYY-MM-DD)"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.ActionListResponse} "Actions"
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Router /actions [get]
func (c *ActionController) ListActions(ctx *gin.Context) {
	filter, ok := listFilter(ctx)
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)
	resp, err := c.actionService.ListUpcoming(ctx.Request.Context(), middleware.ActorFrom(ctx), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// GetAction godoc
// @Summary Get an action
// @Description Action detail with occupancy; managers also see the organizer notes
// @Tags actions
// @Produce json
// @Param id path int true "Action ID"
// @Success 200 {object} dto.APIResponse{data=dto.ActionResponse} "Action"
// @Failure 404 {object} dto.APIResponse "Action not found"
// @Router /actions/{id} [get]
func (c *ActionController) GetAction(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.actionService.Get(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// CreateAction godoc
// @Summary Create an action
// @Description Organizers and admins publish a new action scheduled in the future
// @Tags actions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ActionRequest true "Action data"
// @Success 201 {object} dto.APIResponse{data=dto.ActionResponse} "Created"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Only organizers can create actions"
// @Router /actions [post]
func (c *ActionController) CreateAction(ctx *gin.Context) {
	var req dto.ActionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.actionService.Create(ctx.Request.Context(), middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp))
}

// UpdateAction godoc
// @Summary Update an action
// @Description Edits an upcoming action and notifies its pending and accepted volunteers
// @Tags actions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Action ID"
// @Param request body dto.ActionRequest true "Action data"
// @Success 200 {object} dto.APIResponse{data=dto.ActionMutationResponse} "Updated"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 403 {object} dto.APIResponse "Not the organizer"
// @Failure 404 {object} dto.APIResponse "Action not found"
// @Failure 409 {object} dto.APIResponse "Action already took place"
// @Router /actions/{id} [put]
func (c *ActionController) UpdateAction(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ActionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.actionService.Update(ctx.Request.Context(), middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// DeleteAction godoc
// @Summary Delete an action
// @Description Deletes an upcoming action with its applications and notifies pending and accepted volunteers
// @Tags actions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Action ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteActionResponse} "Deleted"
// @Failure 403 {object} dto.APIResponse "Not the organizer"
// @Failure 404 {object} dto.APIResponse "Action not found"
// @Failure 409 {object} dto.APIResponse "Action already took place"
// @Router /actions/{id} [delete]
func (c *ActionController) DeleteAction(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.actionService.Delete(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// UpdateNotes godoc
// @Summary Save organizer notes
// @Description Notes can only be written once the action has taken place
// @Tags actions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Action ID"
// @Param request body dto.NotesRequest true "Notes"
// @Success 200 {object} dto.APIResponse{data=dto.ActionResponse} "Saved"
// @Failure 403 {object} dto.APIResponse "Not the organizer"
// @Failure 409 {object} dto.APIResponse "Action has not taken place yet"
// @Router /actions/{id}/notes [put]
func (c *ActionController) UpdateNotes(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.NotesRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.actionService.UpdateNotes(ctx.Request.Context(), middleware.ActorFrom(ctx), id, req.Notes)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// Apply godoc
// @Summary Apply to an action
// @Description Creates or reopens the caller's application. Re-applying while pending or accepted answers UNCHANGED.
// @Tags actions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Action ID"
// @Success 201 {object} dto.APIResponse{data=dto.TransitionResponse} "Applied"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResponse} "Already applied"
// @Failure 404 {object} dto.APIResponse "Action not found"
// @Failure 409 {object} dto.APIResponse "Own action, full or already took place"
// @Router /actions/{id}/apply [post]
func (c *ActionController) Apply(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	respondApply(ctx, c.applicationService, id)
}

func respondApply(ctx *gin.Context, svc services.ApplicationService, actionID int64) {
	resp, err := svc.Apply(ctx.Request.Context(), middleware.ActorFrom(ctx), actionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	status := http.StatusOK
	if resp.Changed() {
		status = http.StatusCreated
	}
	ctx.JSON(status, dto.NewSuccessResponse(resp))
}

// ManageApplications godoc
// @Summary Manage an action's applications
// @Description Applications grouped by status for the organizer
// @Tags actions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Action ID"
// @Success 200 {object} dto.APIResponse{data=dto.ManageViewResponse} "Applications"
// @Failure 403 {object} dto.APIResponse "Not the organizer"
// @Failure 404 {object} dto.APIResponse "Action not found"
// @Router /actions/{id}/applications [get]
func (c *ActionController) ManageApplications(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.applicationService.ManageView(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// AcceptApplication godoc
// @Summary Accept an application
// @Tags actions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Action ID"
// @Param applicationId path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResponse} "Decision recorded"
// @Failure 403 {object} dto.APIResponse "Not the organizer"
// @Failure 404 {object} dto.APIResponse "Application not found"
// @Failure 409 {object} dto.APIResponse "Full, already took place or invalid transition"
// @Router /actions/{id}/applications/{applicationId}/accept [post]
func (c *ActionController) AcceptApplication(ctx *gin.Context) {
	c.decide(ctx, ledger.EventAccept)
}

// RejectApplication godoc
// @Summary Reject an application
// @Tags actions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Action ID"
// @Param applicationId path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResponse} "Decision recorded"
// @Failure 403 {object} dto.APIResponse "Not the organizer"
// @Failure 404 {object} dto.APIResponse "Application not found"
// @Failure 409 {object} dto.APIResponse "Already took place or invalid transition"
// @Router /actions/{id}/applications/{applicationId}/reject [post]
func (c *ActionController) RejectApplication(ctx *gin.Context) {
	c.decide(ctx, ledger.EventReject)
}

// RemoveApplication godoc
// @Summary Remove an accepted volunteer
// @Tags actions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Action ID"
// @Param applicationId path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResponse} "Decision recorded"
// @Failure 403 {object} dto.APIResponse "Not the organizer"
// @Failure 404 {object} dto.APIResponse "Application not found"
// @Failure 409 {object} dto.APIResponse "Already took place or invalid transition"
// @Router /actions/{id}/applications/{applicationId}/remove [post]
func (c *ActionController) RemoveApplication(ctx *gin.Context) {
	c.decide(ctx, ledger.EventRemove)
}

func (c *ActionController) decide(ctx *gin.Context, event ledger.Event) {
	actionID, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	applicationID, ok := middleware.ParseIDParam(ctx, "applicationId")
	if !ok {
		return
	}
	resp, err := c.applicationService.Decide(ctx.Request.Context(), middleware.ActorFrom(ctx), actionID, applicationID, event)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}
