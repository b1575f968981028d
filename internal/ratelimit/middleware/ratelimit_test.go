package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitties/internal/ratelimit/models"
	id "kitties/pkg/domain"
	"kitties/pkg/testutil"
)

type stubLimiter struct {
	result *models.Result
	err    error
	calls  []models.Class
}

func (l *stubLimiter) Check(_ context.Context, _ id.AccountID, class models.Class) (*models.Result, error) {
	l.calls = append(l.calls, class)
	return l.result, l.err
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, account id.AccountID) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})
	req := httptest.NewRequest(http.MethodPost, "/kitties", nil)
	if !account.IsNil() {
		req = testutil.WithAccount(req, account)
	}
	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, req)
	return rr, called
}

func TestRateLimitAccount(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	account := id.NewAccountID()
	resetAt := time.Unix(1700000000, 0)

	t.Run("allowed request carries budget headers", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.Result{Allowed: true, Limit: 5, Remaining: 4, ResetAt: resetAt}}
		rr, called := serve(t, New(limiter, logger).ForOperation("mint"), account)

		assert.True(t, called)
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "5", rr.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", rr.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "1700000000", rr.Header().Get("X-RateLimit-Reset"))
		assert.Empty(t, rr.Header().Get(HeaderStatus))
		assert.Equal(t, []models.Class{models.ClassMint}, limiter.calls)
	})

	t.Run("exhausted budget answers 429", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.Result{Allowed: false, Limit: 5, ResetAt: resetAt, RetryAfter: 12}}
		rr, called := serve(t, New(limiter, logger).RateLimitAccount(models.ClassBreed), account)

		assert.False(t, called)
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "12", rr.Header().Get("Retry-After"))
		var body models.ExceededResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "rate_limit_exceeded", body.Error)
		assert.Equal(t, 12, body.RetryAfter)
	})

	t.Run("degraded results are flagged", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.Result{Allowed: true, Limit: 5, Remaining: 1, Degraded: true}}
		rr, _ := serve(t, New(limiter, logger).RateLimitAccount(models.ClassTransfer), account)
		assert.Equal(t, "degraded", rr.Header().Get(HeaderStatus))
	})

	t.Run("unlimited class sets no headers", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.Result{Allowed: true}}
		rr, called := serve(t, New(limiter, logger).RateLimitAccount(models.ClassTransfer), account)
		assert.True(t, called)
		assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("limiter errors fail open", func(t *testing.T) {
		limiter := &stubLimiter{err: errors.New("redis down")}
		rr, called := serve(t, New(limiter, logger).RateLimitAccount(models.ClassMint), account)
		assert.True(t, called)
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("disabled middleware skips the limiter", func(t *testing.T) {
		limiter := &stubLimiter{}
		_, called := serve(t, New(limiter, logger, WithDisabled(true)).RateLimitAccount(models.ClassMint), account)
		assert.True(t, called)
		assert.Empty(t, limiter.calls)
	})

	t.Run("anonymous requests are not charged", func(t *testing.T) {
		limiter := &stubLimiter{}
		_, called := serve(t, New(limiter, logger).RateLimitAccount(models.ClassMint), id.AccountID{})
		assert.True(t, called)
		assert.Empty(t, limiter.calls)
	})
}
