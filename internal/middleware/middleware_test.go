package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestAdminAuth_RejectsWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/admin/config", nil)
	AdminAuth("secret")(c)
	require.True(t, c.IsAborted())
}

func TestAdminAuth_RejectsWrongToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/admin/config", nil)
	c.Request.Header.Set("X-Admin-Token", "wrong")
	AdminAuth("secret")(c)
	require.True(t, c.IsAborted())
}

func TestAdminAuth_AcceptsMatchingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/admin/config", nil)
	c.Request.Header.Set("X-Admin-Token", "secret")
	AdminAuth("secret")(c)
	require.False(t, c.IsAborted())
}

func TestAdminAuth_ClosedWhenUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/admin/config", nil)
	c.Request.Header.Set("X-Admin-Token", "")
	AdminAuth("")(c)
	require.True(t, c.IsAborted())
}

func TestRateLimiterHandle_BlocksWithinWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := &rateLimiter{
		window: 10 * time.Second,
		last:   make(map[string]time.Time),
	}

	c1, _ := gin.CreateTestContext(httptest.NewRecorder())
	c1.Request = httptest.NewRequest("POST", "/api/chat", nil)
	limiter.handle(c1)
	require.False(t, c1.IsAborted())

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = httptest.NewRequest("POST", "/api/chat", nil)
	limiter.handle(c2)
	require.True(t, c2.IsAborted())
}

func TestRateLimiterHandle_ZeroWindowDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := &rateLimiter{window: 0, last: make(map[string]time.Time)}
	for i := 0; i < 3; i++ {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("POST", "/api/chat", nil)
		limiter.handle(c)
		require.False(t, c.IsAborted())
	}
}

func TestSession_ReadsCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/chat/history", nil)
	c.Request.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "abc-123"})
	Session()(c)
	value, ok := c.Get(ContextSessionIDKey)
	require.True(t, ok)
	require.Equal(t, "abc-123", value)
}

func TestSession_NoCookieLeavesContextEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/chat/history", nil)
	Session()(c)
	_, ok := c.Get(ContextSessionIDKey)
	require.False(t, ok)
}
