package web

import (
	"net/http"
	"strings"

	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/gin-gonic/gin"
)

// Flash levels, used as CSS classes by the layout
const (
	flashSuccess = "success"
	flashInfo    = "info"
	flashWarning = "warning"
	flashError   = "error"
)

const flashCookie = "communitylink_flash"

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Level   string
	Message string
}

func (h *Handler) refreshCookie() string {
	return h.opts.SessionCookie + "_refresh"
}

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.opts.CookieSecure, true)
}

// startSession stores the access token as the session and keeps the refresh token for logout
func (h *Handler) startSession(c *gin.Context, token dto.TokenResponse) {
	h.setCookie(c, h.opts.SessionCookie, token.AccessToken, int(token.ExpiresIn))
	h.setCookie(c, h.refreshCookie(), token.RefreshToken, int(token.RefreshTokenExpiresIn))
}

func (h *Handler) endSession(c *gin.Context) {
	h.setCookie(c, h.opts.SessionCookie, "", -1)
	h.setCookie(c, h.refreshCookie(), "", -1)
}

func (h *Handler) setFlash(c *gin.Context, level, message string) {
	h.setCookie(c, flashCookie, level+"|"+message, 60)
}

// popFlash reads and clears the pending flash message
func (h *Handler) popFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	h.setCookie(c, flashCookie, "", -1)
	level, message, ok := strings.Cut(raw, "|")
	if !ok {
		return nil
	}
	return &Flash{Level: level, Message: message}
}

// safeNext only follows local paths after sign-in
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/actions"
	}
	return next
}
