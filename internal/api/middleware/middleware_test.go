package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"academic-mesh/backend/config"
	"academic-mesh/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
}

func protectedEngine(mgr *jwt.Manager, roles ...string) *gin.Engine {
	r := gin.New()
	r.GET("/p", JWTAuth(mgr), RoleAuth(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("subject"))
	})
	return r
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	w := httptest.NewRecorder()
	protectedEngine(newJWT(), jwt.RoleAnalyst).ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_BadScheme(t *testing.T) {
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Token abc")

	w := httptest.NewRecorder()
	protectedEngine(newJWT(), jwt.RoleAnalyst).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_ForeignSecret(t *testing.T) {
	other := jwt.NewManager(&config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour})
	token, err := other.GenerateToken("mallory", jwt.RoleOperator, 0)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	protectedEngine(newJWT(), jwt.RoleOperator).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleAuth(t *testing.T) {
	mgr := newJWT()
	analyst, err := mgr.GenerateToken("ana", jwt.RoleAnalyst, 0)
	require.NoError(t, err)
	operator, err := mgr.GenerateToken("ops", jwt.RoleOperator, 0)
	require.NoError(t, err)

	r := protectedEngine(mgr, jwt.RoleOperator)

	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+analyst)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code, "分析人员不能访问写接口")

	req = httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+operator)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops", w.Body.String())
}

// ── RateLimit ──

type fakeLimiter struct {
	calls int
	allow int
	err   error
	keys  []string
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.calls++
	f.keys = append(f.keys, key)
	if f.err != nil {
		return false, f.err
	}
	return f.calls <= f.allow, nil
}

func limitedEngine(limiter RateLimiter) *gin.Engine {
	r := gin.New()
	r.GET("/export/x", func(c *gin.Context) {
		c.Set("subject", "ana")
		c.Next()
	}, RateLimit(limiter, 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimit_BlocksOverLimit(t *testing.T) {
	limiter := &fakeLimiter{allow: 2}
	r := limitedEngine(limiter)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/export/x", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "rate_limit:ana:/export/x", limiter.keys[0])
}

func TestRateLimit_DegradesOpen(t *testing.T) {
	w := httptest.NewRecorder()
	limitedEngine(&fakeLimiter{err: errors.New("redis down")}).ServeHTTP(w, httptest.NewRequest("GET", "/export/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	limitedEngine(nil).ServeHTTP(w, httptest.NewRequest("GET", "/export/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// ── RequestID / Logger ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", w.Body.String())

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", requestIDMaxLen+1))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get("X-Request-ID"), 36, "超长 ID 应被替换为 UUID")
}

func TestLogger_LevelsByStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	for _, p := range []string{"/ok", "/bad", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", p, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}
