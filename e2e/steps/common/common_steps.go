package common

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Account(name string) string
	POSTAdmin(path string, body any) error
	GET(path string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers background, funding and generic assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the registry is running$`, steps.registryIsRunning)
	ctx.Step(`^"([^"]*)" has been funded with (\d+) tokens$`, steps.accountFunded)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
	ctx.Step(`^"([^"]*)" should have (\d+) free and (\d+) reserved tokens$`, steps.balanceShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) registryIsRunning() error {
	if err := s.tc.GET("/health"); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return fmt.Errorf("health returned %d: %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) accountFunded(name string, amount int) error {
	path := "/admin/accounts/" + s.tc.Account(name) + "/deposits"
	if err := s.tc.POSTAdmin(path, map[string]any{"amount": amount}); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return fmt.Errorf("deposit returned %d: %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) responseStatusShouldBe(status int) error {
	if got := s.tc.GetLastResponseStatus(); got != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(code string) error {
	got, err := s.tc.GetResponseField("error")
	if err != nil {
		return err
	}
	if got != code {
		return fmt.Errorf("expected error code %q, got %v", code, got)
	}
	return nil
}

func (s *commonSteps) balanceShouldBe(name string, free, reserved int) error {
	if err := s.tc.GET("/accounts/" + s.tc.Account(name) + "/balance"); err != nil {
		return err
	}
	gotFree, err := s.tc.GetResponseField("free")
	if err != nil {
		return err
	}
	gotReserved, err := s.tc.GetResponseField("reserved")
	if err != nil {
		return err
	}
	if gotFree != float64(free) || gotReserved != float64(reserved) {
		return fmt.Errorf("expected %d free / %d reserved, got %v / %v", free, reserved, gotFree, gotReserved)
	}
	return nil
}
