package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/communitylink/communitylink/internal/app/ledger"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/services"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/communitylink/communitylink/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

// Page size of the personal lists (my applications, my actions)
const myListPageSize = 5

// decisions maps the manage form's decision field to ledger events
var decisions = map[string]ledger.Event{
	"accept": ledger.EventAccept,
	"reject": ledger.EventReject,
	"remove": ledger.EventRemove,
}

// filter reads the list filters leniently: unknown categories and bad dates are ignored
func (h *Handler) filter(c *gin.Context) dto.ListFilter {
	var q dto.ListFilterQuery
	_ = c.ShouldBindQuery(&q)
	f, _ := helpers.ParseListFilter(q, false, time.Local)
	return f
}

// idParam reads the :id segment; anything malformed cannot exist
func (h *Handler) idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.notFound(c)
		return 0, false
	}
	return id, true
}

func (h *Handler) actionList(c *gin.Context) {
	page := helpers.ParsePageParam(c, "page")
	list, err := h.actions.ListUpcoming(c.Request.Context(), actorOf(c), h.filter(c), page, services.ActionListPageSize)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.page(c, http.StatusOK, "action_list.html", "Actions", gin.H{
		"List":  list,
		"Query": c.Request.URL.Query(),
	})
}

func (h *Handler) actionDetail(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	action, err := h.actions.Get(c.Request.Context(), actorOf(c), id)
	if err != nil {
		h.fail(c, err, "/actions")
		return
	}
	h.page(c, http.StatusOK, "action_detail.html", action.Title, gin.H{"Action": action})
}

func (h *Handler) actionCreateForm(c *gin.Context) {
	if !actorOf(c).CanOrganize() {
		h.setFlash(c, flashError, "Only organizers can create actions.")
		c.Redirect(http.StatusFound, "/actions")
		return
	}
	h.renderActionForm(c, http.StatusOK, 0, &dto.ActionRequest{Category: models.CategoryOther}, nil)
}

func (h *Handler) actionCreate(c *gin.Context) {
	if !actorOf(c).CanOrganize() {
		h.setFlash(c, flashError, "Only organizers can create actions.")
		c.Redirect(http.StatusFound, "/actions")
		return
	}
	var req dto.ActionRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderActionForm(c, http.StatusBadRequest, 0, &req, formErrors(err))
		return
	}
	created, err := h.actions.Create(c.Request.Context(), actorOf(c), &req)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidationFailed) {
			h.renderActionForm(c, http.StatusBadRequest, 0, &req, formErrors(err))
			return
		}
		h.fail(c, err, "/actions")
		return
	}
	h.setFlash(c, flashSuccess, "Action created.")
	c.Redirect(http.StatusFound, models.DetailLink(created.ID))
}

// editable loads an action the actor may still change, redirecting with a message otherwise
func (h *Handler) editable(c *gin.Context, verb string) (*dto.ActionResponse, bool) {
	id, ok := h.idParam(c)
	if !ok {
		return nil, false
	}
	action, err := h.actions.Get(c.Request.Context(), actorOf(c), id)
	if err != nil {
		h.fail(c, err, "/actions")
		return nil, false
	}
	switch {
	case !action.CanManage:
		h.setFlash(c, flashError, fmt.Sprintf("You are not allowed to %s this action.", verb))
	case action.HasOccurred:
		h.setFlash(c, flashError, "This action has already taken place and can no longer be changed.")
	default:
		return action, true
	}
	c.Redirect(http.StatusFound, models.DetailLink(id))
	return nil, false
}

func (h *Handler) actionEditForm(c *gin.Context) {
	action, ok := h.editable(c, "edit")
	if !ok {
		return
	}
	req := &dto.ActionRequest{
		Title:       action.Title,
		Description: action.Description,
		ScheduledAt: action.ScheduledAt,
		Location:    action.Location,
		Capacity:    action.Capacity,
		Category:    action.Category,
	}
	h.renderActionForm(c, http.StatusOK, action.ID, req, nil)
}

func (h *Handler) actionEdit(c *gin.Context) {
	action, ok := h.editable(c, "edit")
	if !ok {
		return
	}
	var req dto.ActionRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderActionForm(c, http.StatusBadRequest, action.ID, &req, formErrors(err))
		return
	}
	res, err := h.actions.Update(c.Request.Context(), actorOf(c), action.ID, &req)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidationFailed) {
			h.renderActionForm(c, http.StatusBadRequest, action.ID, &req, formErrors(err))
			return
		}
		h.fail(c, err, models.DetailLink(action.ID))
		return
	}
	h.setFlash(c, flashSuccess, fmt.Sprintf("Action updated. %d volunteer(s) notified.", res.NotifiedVolunteers))
	c.Redirect(http.StatusFound, models.DetailLink(action.ID))
}

func (h *Handler) renderActionForm(c *gin.Context, status int, actionID int64, req *dto.ActionRequest, errs map[string]string) {
	title := "New action"
	if actionID > 0 {
		title = "Edit action"
	}
	h.page(c, status, "action_form.html", title, gin.H{
		"ActionID": actionID,
		"Form":     req,
		"Errors":   errs,
	})
}

func (h *Handler) actionDeleteConfirm(c *gin.Context) {
	action, ok := h.editable(c, "delete")
	if !ok {
		return
	}
	h.page(c, http.StatusOK, "action_delete.html", "Delete action", gin.H{"Action": action})
}

func (h *Handler) actionDelete(c *gin.Context) {
	action, ok := h.editable(c, "delete")
	if !ok {
		return
	}
	res, err := h.actions.Delete(c.Request.Context(), actorOf(c), action.ID)
	if err != nil {
		h.fail(c, err, models.DetailLink(action.ID))
		return
	}
	h.setFlash(c, flashSuccess, fmt.Sprintf("Action deleted. %d volunteer(s) notified.", res.NotifiedVolunteers))
	c.Redirect(http.StatusFound, "/actions")
}

func (h *Handler) actionApply(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	res, err := h.applications.Apply(c.Request.Context(), actorOf(c), id)
	if err != nil {
		h.fail(c, err, models.DetailLink(id))
		return
	}
	level := flashInfo
	if res.Changed() {
		level = flashSuccess
	}
	h.setFlash(c, level, res.Message)
	c.Redirect(http.StatusFound, models.DetailLink(id))
}

func (h *Handler) actionManage(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	view, err := h.applications.ManageView(c.Request.Context(), actorOf(c), id)
	if err != nil {
		h.fail(c, err, models.DetailLink(id))
		return
	}
	h.page(c, http.StatusOK, "action_manage.html", "Manage "+view.Action.Title, gin.H{"View": view})
}

func (h *Handler) actionDecide(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	manage := models.ManageLink(id)
	event, known := decisions[c.PostForm("decision")]
	applicationID, err := strconv.ParseInt(c.PostForm("applicationId"), 10, 64)
	if !known || err != nil {
		h.setFlash(c, flashError, "Invalid decision.")
		c.Redirect(http.StatusFound, manage)
		return
	}
	res, err := h.applications.Decide(c.Request.Context(), actorOf(c), id, applicationID, event)
	if err != nil {
		h.fail(c, err, manage)
		return
	}
	h.setFlash(c, flashSuccess, res.Message)
	c.Redirect(http.StatusFound, manage)
}

func (h *Handler) myActions(c *gin.Context) {
	page := helpers.ParsePageParam(c, "page")
	list, err := h.actions.ListMine(c.Request.Context(), actorOf(c), h.filter(c), page, myListPageSize)
	if err != nil {
		h.fail(c, err, "/actions")
		return
	}
	h.page(c, http.StatusOK, "my_actions.html", "My actions", gin.H{
		"List":  list,
		"Query": c.Request.URL.Query(),
	})
}

func (h *Handler) myApplications(c *gin.Context) {
	page := helpers.ParsePageParam(c, "page")
	list, err := h.applications.ListMine(c.Request.Context(), actorOf(c), h.filter(c), page, myListPageSize)
	if err != nil {
		h.fail(c, err, "/actions")
		return
	}
	h.page(c, http.StatusOK, "my_applications.html", "My applications", gin.H{
		"List":  list,
		"Query": c.Request.URL.Query(),
	})
}

func (h *Handler) applicationCancel(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	res, err := h.applications.Cancel(c.Request.Context(), actorOf(c), id)
	if err != nil {
		h.fail(c, err, "/my/applications")
		return
	}
	h.setFlash(c, flashSuccess, res.Message)
	c.Redirect(http.StatusFound, "/my/applications")
}
