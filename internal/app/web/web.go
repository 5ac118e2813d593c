// Package web serves the server-rendered HTML pages. Pages share the services of the
// JSON API; the session is the same JWT carried in an HttpOnly cookie.
package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/services"
	"github.com/communitylink/communitylink/internal/middleware"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Options configures the HTML surface
type Options struct {
	SessionCookie string
	CookieSecure  bool
	// NotificationPageSize defaults to 10
	NotificationPageSize int
}

// Handler renders the HTML pages
type Handler struct {
	actions       services.ActionService
	applications  services.ApplicationService
	notifications services.NotificationService
	history       services.HistoryService
	profiles      services.ProfileService
	authService   *services.AuthService
	opts          Options
	logger        zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(
	actions services.ActionService,
	applications services.ApplicationService,
	notifications services.NotificationService,
	history services.HistoryService,
	profiles services.ProfileService,
	authService *services.AuthService,
	opts Options,
	logger zerolog.Logger,
) *Handler {
	if opts.SessionCookie == "" {
		opts.SessionCookie = "communitylink_session"
	}
	if opts.NotificationPageSize <= 0 {
		opts.NotificationPageSize = 10
	}
	return &Handler{
		actions:       actions,
		applications:  applications,
		notifications: notifications,
		history:       history,
		profiles:      profiles,
		authService:   authService,
		opts:          opts,
		logger:        logger,
	}
}

// Register mounts the pages. The engine must already carry the templates (see Templates)
// and authMiddleware.ResolveActor must run before these routes.
func (h *Handler) Register(router *gin.Engine, authMiddleware *middleware.AuthMiddleware) {
	pages := router.Group("/")
	pages.Use(authMiddleware.ResolveActor())

	pages.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/actions") })
	pages.GET("/actions", h.actionList)
	pages.GET("/actions/:id", h.actionDetail)

	pages.GET("/signup", h.signupForm)
	pages.POST("/signup", h.signup)
	pages.GET("/signin", h.signinForm)
	pages.POST("/signin", h.signin)
	pages.POST("/logout", h.logout)

	member := pages.Group("")
	member.Use(h.requireLogin())
	{
		member.GET("/actions/new", h.actionCreateForm)
		member.POST("/actions/new", h.actionCreate)
		member.GET("/actions/:id/edit", h.actionEditForm)
		member.POST("/actions/:id/edit", h.actionEdit)
		member.GET("/actions/:id/delete", h.actionDeleteConfirm)
		member.POST("/actions/:id/delete", h.actionDelete)
		member.POST("/actions/:id/apply", h.actionApply)
		member.GET("/actions/:id/manage", h.actionManage)
		member.POST("/actions/:id/manage", h.actionDecide)

		member.GET("/my/applications", h.myApplications)
		member.POST("/applications/:id/cancel", h.applicationCancel)
		member.GET("/my/actions", h.myActions)

		member.GET("/notifications", h.notificationList)
		member.POST("/notifications/clear", h.notificationClear)

		member.GET("/history", h.historyPage)
		member.POST("/history", h.historySave)

		member.GET("/profile", h.profileForm)
		member.POST("/profile", h.profileSave)
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Resource not found")))
			return
		}
		h.notFound(c)
	})
}

// requireLogin sends anonymous visitors to the sign-in page and back afterwards
func (h *Handler) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if middleware.ActorFrom(c).Authenticated() {
			c.Next()
			return
		}
		c.Redirect(http.StatusFound, "/signin?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// page renders name inside the layout with the common data
func (h *Handler) page(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	actor := middleware.ActorFrom(c)
	data["Title"] = title
	data["Actor"] = actor
	data["Flash"] = h.popFlash(c)
	data["Path"] = c.Request.URL.Path
	if actor.Authenticated() {
		unread, err := h.notifications.UnreadCount(c.Request.Context(), actor)
		if err != nil {
			h.logger.Warn().Err(err).Int64("userID", actor.UserID).Msg("Could not load unread count")
		}
		data["Unread"] = unread
	}
	c.HTML(status, name, data)
}

func (h *Handler) notFound(c *gin.Context) {
	h.page(c, http.StatusNotFound, "not_found.html", "Not found", nil)
	c.Abort()
}

// fail turns a service error into the page outcome: not-found renders 404, an expired
// session goes to sign-in, forbidden and conflict outcomes go back with a message
func (h *Handler) fail(c *gin.Context, err error, back string) {
	status, detail := middleware.StatusFor(err)
	switch {
	case status == http.StatusNotFound:
		h.notFound(c)
	case status == http.StatusUnauthorized:
		c.Redirect(http.StatusFound, "/signin?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	case status == http.StatusForbidden:
		h.setFlash(c, flashError, messageFor(err, detail.Message))
		c.Redirect(http.StatusFound, back)
	case status < http.StatusInternalServerError:
		h.setFlash(c, flashWarning, messageFor(err, detail.Message))
		c.Redirect(http.StatusFound, back)
	default:
		h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Page failed")
		h.page(c, http.StatusInternalServerError, "error.html", "Something went wrong", nil)
	}
	c.Abort()
}

// messageFor prefers the message the service attached to the error
func messageFor(err error, fallback string) string {
	var ce *apperrors.CustomError
	if errors.As(err, &ce) && ce.Message != "" && !errors.Is(err, apperrors.ErrValidationFailed) {
		return ce.Message
	}
	return fallback
}

// formErrors extracts per-field messages from binding or service validation errors
func formErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		return fields
	}
	if fields := apperrors.FieldErrors(err); len(fields) > 0 {
		return fields
	}
	return map[string]string{"_": "Please check the form"}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required."
	case "min":
		return "Must be at least " + fe.Param() + "."
	case "max":
		return "Must be at most " + fe.Param() + " characters."
	case "email":
		return "Enter a valid e-mail address."
	default:
		return "Invalid value."
	}
}

// actorOf returns the caller; behind requireLogin it is always authenticated
func actorOf(c *gin.Context) auth.Actor {
	return middleware.ActorFrom(c)
}
