package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POSTAs(name, path string, body any) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers per-account rate limit steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^"([^"]*)" mints kitties until rate limited$`, steps.mintUntilLimited)
	ctx.Step(`^the response should ask to retry later$`, steps.shouldAskToRetry)
	ctx.Step(`^the remaining budget header should be present$`, steps.remainingHeaderPresent)
}

type ratelimitSteps struct {
	tc TestContext
}

// mintUntilLimited mints until the server answers 429, giving up after a
// bound well above any sane per-minute budget.
func (s *ratelimitSteps) mintUntilLimited(owner string) error {
	for range 500 {
		if err := s.tc.POSTAs(owner, "/kitties", nil); err != nil {
			return err
		}
		switch s.tc.GetLastResponseStatus() {
		case 201:
			continue
		case 429:
			return nil
		default:
			return fmt.Errorf("unexpected status %d: %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
		}
	}
	return fmt.Errorf("never rate limited")
}

func (s *ratelimitSteps) shouldAskToRetry() error {
	retry, err := strconv.Atoi(s.tc.GetLastResponseHeader("Retry-After"))
	if err != nil || retry < 1 {
		return fmt.Errorf("missing or invalid Retry-After header %q", s.tc.GetLastResponseHeader("Retry-After"))
	}
	return nil
}

func (s *ratelimitSteps) remainingHeaderPresent() error {
	if s.tc.GetLastResponseHeader("X-RateLimit-Remaining") == "" {
		return fmt.Errorf("missing X-RateLimit-Remaining header")
	}
	return nil
}
