package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/communitylink/communitylink/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

func (h *Handler) signupForm(c *gin.Context) {
	h.page(c, http.StatusOK, "signup.html", "Sign up", gin.H{"Form": &dto.RegisterRequest{RoleType: models.RoleVolunteer}})
}

func (h *Handler) signup(c *gin.Context) {
	var req dto.RegisterRequest
	render := func(errs map[string]string) {
		req.Password = ""
		h.page(c, http.StatusBadRequest, "signup.html", "Sign up", gin.H{"Form": &req, "Errors": errs})
	}
	if err := c.ShouldBind(&req); err != nil {
		render(formErrors(err))
		return
	}
	if req.Password != c.PostForm("passwordConfirm") {
		render(map[string]string{"passwordConfirm": "The two passwords do not match."})
		return
	}
	res, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidationFailed) {
			render(formErrors(err))
			return
		}
		h.fail(c, err, "/signup")
		return
	}
	h.startSession(c, res.Token)
	if res.User.Capabilities.IsOrganizer {
		c.Redirect(http.StatusFound, "/my/actions")
		return
	}
	c.Redirect(http.StatusFound, "/actions")
}

func (h *Handler) signinForm(c *gin.Context) {
	h.page(c, http.StatusOK, "signin.html", "Sign in", gin.H{"Next": c.Query("next")})
}

func (h *Handler) signin(c *gin.Context) {
	next := c.PostForm("next")
	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.page(c, http.StatusBadRequest, "signin.html", "Sign in", gin.H{"Next": next, "Login": req.Login, "Error": "Enter your username and password."})
		return
	}
	res, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		msg := "Invalid username or password."
		switch {
		case errors.Is(err, apperrors.ErrAccountDisabled):
			msg = "This account is disabled."
		case !errors.Is(err, apperrors.ErrInvalidCredentials):
			h.fail(c, err, "/signin")
			return
		}
		h.page(c, http.StatusUnauthorized, "signin.html", "Sign in", gin.H{"Next": next, "Login": req.Login, "Error": msg})
		return
	}
	h.startSession(c, res.Token)
	c.Redirect(http.StatusFound, safeNext(next))
}

func (h *Handler) logout(c *gin.Context) {
	if refresh, err := c.Cookie(h.refreshCookie()); err == nil {
		if err := h.authService.Logout(c.Request.Context(), refresh); err != nil {
			h.logger.Warn().Err(err).Msg("Could not revoke refresh token on logout")
		}
	}
	h.endSession(c)
	c.Redirect(http.StatusFound, "/signin")
}

func (h *Handler) profileForm(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), actorOf(c))
	if err != nil {
		h.fail(c, err, "/actions")
		return
	}
	form := &dto.UpdateProfileRequest{
		FirstName:   profile.User.FirstName,
		LastName:    profile.User.LastName,
		Email:       profile.User.Email,
		Address:     profile.Address,
		Preferences: profile.Preferences,
	}
	h.page(c, http.StatusOK, "profile.html", "My profile", gin.H{"Profile": profile, "Form": form})
}

func (h *Handler) profileSave(c *gin.Context) {
	var req dto.UpdateProfileRequest
	render := func(errs map[string]string) {
		profile, err := h.profiles.Get(c.Request.Context(), actorOf(c))
		if err != nil {
			h.fail(c, err, "/actions")
			return
		}
		h.page(c, http.StatusBadRequest, "profile.html", "My profile", gin.H{"Profile": profile, "Form": &req, "Errors": errs})
	}
	if err := c.ShouldBind(&req); err != nil {
		render(formErrors(err))
		return
	}
	if _, err := h.profiles.Update(c.Request.Context(), actorOf(c), &req); err != nil {
		if errors.Is(err, apperrors.ErrValidationFailed) {
			render(formErrors(err))
			return
		}
		h.fail(c, err, "/profile")
		return
	}
	h.setFlash(c, flashSuccess, "Your profile was updated.")
	c.Redirect(http.StatusFound, "/profile")
}

func (h *Handler) notificationList(c *gin.Context) {
	page := helpers.ParsePageParam(c, "page")
	list, err := h.notifications.List(c.Request.Context(), actorOf(c), page, h.opts.NotificationPageSize, true)
	if err != nil {
		h.fail(c, err, "/actions")
		return
	}
	h.page(c, http.StatusOK, "notifications.html", "Notifications", gin.H{
		"List":  list,
		"Query": c.Request.URL.Query(),
	})
}

func (h *Handler) notificationClear(c *gin.Context) {
	deleted, err := h.notifications.ClearRead(c.Request.Context(), actorOf(c))
	if err != nil {
		h.fail(c, err, "/notifications")
		return
	}
	h.setFlash(c, flashSuccess, strconv.FormatInt(deleted, 10)+" read notification(s) deleted.")
	c.Redirect(http.StatusFound, "/notifications")
}

func (h *Handler) historyPage(c *gin.Context) {
	res, err := h.history.Get(c.Request.Context(), actorOf(c), h.filter(c),
		helpers.ParsePageParam(c, "pagePart"), helpers.ParsePageParam(c, "pageOrg"))
	if err != nil {
		h.fail(c, err, "/actions")
		return
	}
	h.page(c, http.StatusOK, "history.html", "My history", gin.H{
		"History": res,
		"Query":   c.Request.URL.Query(),
	})
}

// historySave stores either the organizer notes of an action or the volunteer's comment
func (h *Handler) historySave(c *gin.Context) {
	ctx := c.Request.Context()
	back := "/history"
	if raw := c.PostForm("actionId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.notFound(c)
			return
		}
		notes := strings.TrimSpace(c.PostForm("notes"))
		if _, err := h.actions.UpdateNotes(ctx, actorOf(c), id, &notes); err != nil {
			h.fail(c, err, back)
			return
		}
		h.setFlash(c, flashSuccess, "Your notes on the action were saved.")
		c.Redirect(http.StatusFound, back)
		return
	}
	id, err := strconv.ParseInt(c.PostForm("applicationId"), 10, 64)
	if err != nil {
		h.notFound(c)
		return
	}
	comment := c.PostForm("comment")
	if _, err := h.applications.UpdateComment(ctx, actorOf(c), id, &comment); err != nil {
		h.fail(c, err, back)
		return
	}
	h.setFlash(c, flashSuccess, "Your comment was saved.")
	c.Redirect(http.StatusFound, back)
}
