// Package middleware enforces per-account budgets on authenticated routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"kitties/internal/ratelimit/models"
	id "kitties/pkg/domain"
	"kitties/pkg/platform/httputil"
	"kitties/pkg/requestcontext"
)

// HeaderStatus is set to "degraded" while checks run against the fallback store.
const HeaderStatus = "X-RateLimit-Status"

type Limiter interface {
	Check(ctx context.Context, account id.AccountID, class models.Class) (*models.Result, error)
}

type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// ForOperation adapts RateLimitAccount to the registry handler's throttle hook.
func (m *Middleware) ForOperation(operation string) func(http.Handler) http.Handler {
	return m.RateLimitAccount(models.Class(operation))
}

// RateLimitAccount charges the authenticated caller one request of class.
// It must run after authentication. Limiter errors fail open.
func (m *Middleware) RateLimitAccount(class models.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			account := requestcontext.AccountID(ctx)
			if m.disabled || account.IsNil() {
				next.ServeHTTP(w, r)
				return
			}

			result, err := m.limiter.Check(ctx, account, class)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check account rate limit",
					"error", err,
					"account_id", account,
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result.Degraded {
		w.Header().Set(HeaderStatus, "degraded")
	}
	if result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:            "rate_limit_exceeded",
		ErrorDescription: "Too many registry operations for this account. Please try again later.",
		RetryAfter:       result.RetryAfter,
	})
}
