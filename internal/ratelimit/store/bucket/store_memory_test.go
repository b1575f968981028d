package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kitties/internal/ratelimit/models"
)

var testLimit = models.Limit{Requests: 3, Window: time.Minute}

type InMemoryBucketStoreSuite struct {
	suite.Suite
	store *InMemoryBucketStore
	now   time.Time
	ctx   context.Context
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.store = New(WithClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *InMemoryBucketStoreSuite) TestAllow() {
	s.Run("requests up to the limit are admitted", func() {
		for i := range testLimit.Requests {
			result, err := s.store.Allow(s.ctx, "allow:limit", testLimit)
			s.Require().NoError(err)
			s.True(result.Allowed)
			s.Equal(testLimit.Requests, result.Limit)
			s.Equal(testLimit.Requests-i-1, result.Remaining)
			s.Equal(s.now.Add(testLimit.Window), result.ResetAt)
		}
	})

	s.Run("request over the limit is rejected with retry hint", func() {
		for range testLimit.Requests {
			_, err := s.store.Allow(s.ctx, "allow:over", testLimit)
			s.Require().NoError(err)
		}
		s.now = s.now.Add(20 * time.Second)
		result, err := s.store.Allow(s.ctx, "allow:over", testLimit)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.Equal(40, result.RetryAfter)
	})

	s.Run("keys are independent", func() {
		for range testLimit.Requests {
			_, err := s.store.Allow(s.ctx, "allow:a", testLimit)
			s.Require().NoError(err)
		}
		result, err := s.store.Allow(s.ctx, "allow:b", testLimit)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}

func (s *InMemoryBucketStoreSuite) TestSlidingWindow() {
	for range testLimit.Requests {
		_, err := s.store.Allow(s.ctx, "slide", testLimit)
		s.Require().NoError(err)
		s.now = s.now.Add(10 * time.Second)
	}

	result, err := s.store.Allow(s.ctx, "slide", testLimit)
	s.Require().NoError(err)
	s.False(result.Allowed)

	// first entry leaves the window
	s.now = s.now.Add(31 * time.Second)
	result, err = s.store.Allow(s.ctx, "slide", testLimit)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(0, result.Remaining)
}

func (s *InMemoryBucketStoreSuite) TestReset() {
	for range testLimit.Requests {
		_, err := s.store.Allow(s.ctx, "reset", testLimit)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(s.ctx, "reset"))
	result, err := s.store.Allow(s.ctx, "reset", testLimit)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *InMemoryBucketStoreSuite) TestConcurrentAllow() {
	store := New()
	limit := models.Limit{Requests: 50, Window: time.Minute}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 200 {
		wg.Go(func() {
			result, err := store.Allow(s.ctx, "concurrent", limit)
			if err != nil || !result.Allowed {
				return
			}
			mu.Lock()
			allowed++
			mu.Unlock()
		})
	}
	wg.Wait()
	s.Equal(limit.Requests, allowed)
}
