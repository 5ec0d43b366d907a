package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/powdertracker/powdertracker/internal/api/middleware"
)

func sendFrom(handler http.Handler, remoteAddr, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 3,
		WindowLength: time.Minute,
	})(okHandler)

	for i := 0; i < 3; i++ {
		rec := sendFrom(handler, "10.0.0.1:12345", "/api/mountains")
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := sendFrom(handler, "10.0.0.1:12345", "/api/mountains")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Rate limit exceeded. Please try again later."}`, rec.Body.String())
}

func TestRateLimitByIP_SeparateClients(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 1,
		WindowLength: time.Minute,
	})(okHandler)

	assert.Equal(t, http.StatusOK, sendFrom(handler, "172.16.0.1:1000", "/api/mountains").Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "172.16.0.1:1000", "/api/mountains").Code)
	assert.Equal(t, http.StatusOK, sendFrom(handler, "172.16.0.2:1000", "/api/mountains").Code)
}

func TestRateLimitByIP_SharedAcrossPaths(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 1,
		WindowLength: time.Minute,
	})(okHandler)

	assert.Equal(t, http.StatusOK, sendFrom(handler, "192.168.7.1:1000", "/api/mountains").Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "192.168.7.1:1000", "/api/mountains/baker").Code)
}

func TestRateLimitByIP_PerEndpoint(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 1,
		WindowLength: time.Minute,
		PerEndpoint:  true,
	})(okHandler)

	assert.Equal(t, http.StatusOK, sendFrom(handler, "192.168.8.1:1000", "/api/mountains/batch/conditions").Code)
	assert.Equal(t, http.StatusOK, sendFrom(handler, "192.168.8.1:1000", "/api/mountains/batch/powder-scores").Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "192.168.8.1:1000", "/api/mountains/batch/conditions").Code)
}

func TestRateLimitDefaults(t *testing.T) {
	assert.Equal(t, 60, middleware.BatchRateLimit.RequestLimit)
	assert.True(t, middleware.BatchRateLimit.PerEndpoint)
	assert.Equal(t, 100, middleware.StandardRateLimit.RequestLimit)
	assert.Equal(t, time.Minute, middleware.StandardRateLimit.WindowLength)
}
