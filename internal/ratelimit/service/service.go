// Package service decides whether an account may perform another registry
// mutation inside the configured window.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kitties/internal/ratelimit/metrics"
	"kitties/internal/ratelimit/models"
	id "kitties/pkg/domain"
	"kitties/pkg/platform/circuit"
)

// BucketStore admits or rejects one request against a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

type Service struct {
	buckets  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limits   map[models.Class]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLimit sets the budget for class. Classes without a limit are not limited.
func WithLimit(class models.Class, limit models.Limit) Option {
	return func(s *Service) {
		s.limits[class] = limit
	}
}

// WithFallback answers checks from fallback while breaker is open.
func WithFallback(fallback BucketStore, breaker *circuit.Breaker) Option {
	return func(s *Service) {
		s.fallback = fallback
		s.breaker = breaker
	}
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("bucket store is required")
	}
	s := &Service{
		buckets: buckets,
		limits:  make(map[models.Class]models.Limit),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.fallback != nil && s.breaker == nil {
		s.breaker = circuit.New("ratelimit")
	}
	for class, limit := range s.limits {
		if limit.Requests <= 0 || limit.Window <= 0 {
			return nil, fmt.Errorf("limit for %s must have positive requests and window", class)
		}
	}
	return s, nil
}

// Check consumes one request from the account's budget for class.
func (s *Service) Check(ctx context.Context, account id.AccountID, class models.Class) (*models.Result, error) {
	limit, ok := s.limits[class]
	if !ok {
		return &models.Result{Allowed: true}, nil
	}
	key := models.Key(account, class)

	result, err := s.allow(ctx, key, limit)
	if err != nil {
		s.observe(class, "error")
		return nil, err
	}
	if result.Allowed {
		s.observe(class, "allowed")
	} else {
		s.observe(class, "limited")
		s.logger.WarnContext(ctx, "rate limit exceeded",
			"account_id", account,
			"class", class,
			"retry_after", result.RetryAfter,
		)
	}
	return result, nil
}

func (s *Service) allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	if s.breaker == nil {
		return s.buckets.Allow(ctx, key, limit)
	}
	if !s.breaker.Allow() {
		return s.allowFallback(ctx, key, limit)
	}

	result, err := s.buckets.Allow(ctx, key, limit)
	if err != nil {
		useFallback, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.WarnContext(ctx, "rate limit store unavailable, using fallback", "error", err)
			s.setDegraded(true)
		}
		if useFallback {
			return s.allowFallback(ctx, key, limit)
		}
		return nil, err
	}

	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "rate limit store recovered")
		s.setDegraded(false)
	}
	return result, nil
}

func (s *Service) allowFallback(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	if s.metrics != nil {
		s.metrics.IncFallback()
	}
	result, err := s.fallback.Allow(ctx, key, limit)
	if err != nil {
		return nil, err
	}
	result.Degraded = true
	return result, nil
}

func (s *Service) observe(class models.Class, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveDecision(string(class), outcome)
	}
}

func (s *Service) setDegraded(degraded bool) {
	if s.metrics != nil {
		s.metrics.SetDegraded(degraded)
	}
}
