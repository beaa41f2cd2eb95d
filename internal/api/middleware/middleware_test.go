package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-stamp-market/internal/adapter"
	"github.com/feral-file/ff-stamp-market/internal/mocks"
	"github.com/feral-file/ff-stamp-market/internal/ratelimit"
)

func newRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), Recovery(), Logger(), SetupCORS(origins))
	router.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return router
}

func TestRequestID(t *testing.T) {
	router := newRouter(nil)

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

		require.Equal(t, http.StatusOK, w.Code)
		id := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-123", w.Body.String())
	})
}

func TestRecovery(t *testing.T) {
	router := newRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Error.Code)
}

func TestSetupCORS(t *testing.T) {
	tests := []struct {
		name     string
		origins  []string
		origin   string
		expected string
	}{
		{"open", nil, "https://anywhere.example.com", "*"},
		{"allowed origin", []string{"https://market.example.com"}, "https://market.example.com", "https://market.example.com"},
		{"rejected origin", []string{"https://market.example.com"}, "https://evil.example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(tt.origins)
			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func newThrottledRouter(limiter ratelimit.Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/stamps/:id/views", Throttle(limiter), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestThrottle(t *testing.T) {
	limiter, err := ratelimit.NewLimiter(ratelimit.Config{PerMinute: 1, Burst: 1}, nil, adapter.NewClock())
	require.NoError(t, err)
	router := newThrottledRouter(limiter)

	post := func(id string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stamps/"+id+"/views", nil))
		return w
	}

	first := post("s1")
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := post("s1")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), `"code":"rate_limited"`)

	// A different stamp has its own budget
	assert.Equal(t, http.StatusNoContent, post("s2").Code)
}

func TestThrottle_Decisions(t *testing.T) {
	ctrl := gomock.NewController(t)
	limiter := mocks.NewMockLimiter(ctrl)
	router := newThrottledRouter(limiter)
	// httptest requests come from 192.0.2.1
	key := "192.0.2.1:/stamps/:id/views:s1"

	t.Run("allowed", func(t *testing.T) {
		limiter.EXPECT().Allow(gomock.Any(), key).Return(ratelimit.Decision{Allowed: true, Remaining: 4}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stamps/s1/views", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("denied rounds retry up", func(t *testing.T) {
		limiter.EXPECT().Allow(gomock.Any(), key).Return(ratelimit.Decision{RetryAfter: 1500 * time.Millisecond}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stamps/s1/views", nil))
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "2", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), `"code":"rate_limited"`)
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		limiter.EXPECT().Allow(gomock.Any(), key).Return(ratelimit.Decision{}, errors.New("redis down"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stamps/s1/views", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
	})
}
