package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/actions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/actions/3", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/actions/:id", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "communitylink_http_requests_total"))
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveTransition("accept", "changed")
	m.ObserveTransition("accept", "changed")
	m.NotificationsCreated(3)
	m.NotificationsCreated(0)
	m.WebsocketConnected(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("accept", "changed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.notifications))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsClients))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTransition("apply", "changed")
		m.NotificationsCreated(2)
		m.WebsocketConnected(-1)
	})
}
