package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/admin/ratelimit/invalidate/evaluator/:userID", rl.HandleAdminInvalidateEvaluator())
	r.POST("/admin/ratelimit/invalidate/ip/:ip", rl.HandleAdminInvalidateIP())
	r.POST("/admin/ratelimit/invalidate", rl.HandleAdminInvalidateAll())
	return r
}

func drainIP(t *testing.T, rl *RateLimiter, ip string) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := rl.AllowIP(ctx, ip)
		require.NoError(t, err)
	}
	blocked, err := rl.AllowIP(ctx, ip)
	require.NoError(t, err)
	require.False(t, blocked.Allowed, "bucket should be drained before the reset")
}

func TestAdminInvalidateIP(t *testing.T) {
	rl := newFallbackLimiter(Config{IPLimitPerMin: 1, EvaluationLimitPerHour: 1, BurstMultiplier: 1})
	drainIP(t, rl, "10.0.0.9")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/ratelimit/invalidate/ip/10.0.0.9", nil)
	adminRouter(rl).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	fresh, err := rl.AllowIP(context.Background(), "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, fresh.Allowed)
}

func TestAdminInvalidateAll(t *testing.T) {
	rl := newFallbackLimiter(Config{IPLimitPerMin: 1, EvaluationLimitPerHour: 1, BurstMultiplier: 1})
	drainIP(t, rl, "10.0.0.10")
	drainIP(t, rl, "10.0.0.11")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/ratelimit/invalidate", nil)
	adminRouter(rl).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	for _, ip := range []string{"10.0.0.10", "10.0.0.11"} {
		fresh, err := rl.AllowIP(context.Background(), ip)
		require.NoError(t, err)
		assert.True(t, fresh.Allowed, "bucket for %s should be reset", ip)
	}
}

func TestAdminInvalidateEvaluatorHandler(t *testing.T) {
	rl := newFallbackLimiter(Config{IPLimitPerMin: 60, EvaluationLimitPerHour: 1, BurstMultiplier: 1})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := rl.AllowEvaluator(ctx, "head1")
		require.NoError(t, err)
	}
	drained, err := rl.AllowEvaluator(ctx, "head1")
	require.NoError(t, err)
	require.False(t, drained.Allowed)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/ratelimit/invalidate/evaluator/head1", nil)
	adminRouter(rl).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	fresh, err := rl.AllowEvaluator(ctx, "head1")
	require.NoError(t, err)
	assert.True(t, fresh.Allowed)
}
