package kitties

import (
	"encoding/hex"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Account(name string) string
	RememberKitty(name string, kittyID uint64)
	Kitty(name string) (uint64, error)
	POSTAs(name, path string, body any) error
	GET(path string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers mint, breed and transfer steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &kittySteps{tc: tc}

	ctx.Step(`^"([^"]*)" mints a kitty$`, steps.mints)
	ctx.Step(`^"([^"]*)" mints a kitty called "([^"]*)"$`, steps.mintsCalled)
	ctx.Step(`^"([^"]*)" breeds "([^"]*)" with "([^"]*)" into "([^"]*)"$`, steps.breedsInto)
	ctx.Step(`^"([^"]*)" breeds "([^"]*)" with itself$`, steps.breedsWithItself)
	ctx.Step(`^"([^"]*)" transfers "([^"]*)" to "([^"]*)"$`, steps.transfers)
	ctx.Step(`^"([^"]*)" should own "([^"]*)"$`, steps.shouldOwn)
	ctx.Step(`^"([^"]*)" should own (\d+) kitties$`, steps.shouldOwnCount)
	ctx.Step(`^"([^"]*)" should have a genome mixed from "([^"]*)" and "([^"]*)"$`, steps.genomeMixed)
}

type kittySteps struct {
	tc TestContext
}

func (s *kittySteps) mints(owner string) error {
	return s.tc.POSTAs(owner, "/kitties", nil)
}

func (s *kittySteps) mintsCalled(owner, name string) error {
	if err := s.mints(owner); err != nil {
		return err
	}
	return s.rememberCreated(name)
}

func (s *kittySteps) breedsInto(owner, parent1, parent2, child string) error {
	p1, err := s.tc.Kitty(parent1)
	if err != nil {
		return err
	}
	p2, err := s.tc.Kitty(parent2)
	if err != nil {
		return err
	}
	if err := s.tc.POSTAs(owner, "/kitties/breed", map[string]any{"parent_1": p1, "parent_2": p2}); err != nil {
		return err
	}
	return s.rememberCreated(child)
}

func (s *kittySteps) breedsWithItself(owner, parent string) error {
	p, err := s.tc.Kitty(parent)
	if err != nil {
		return err
	}
	return s.tc.POSTAs(owner, "/kitties/breed", map[string]any{"parent_1": p, "parent_2": p})
}

func (s *kittySteps) transfers(owner, kitty, newOwner string) error {
	kittyID, err := s.tc.Kitty(kitty)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/kitties/%d/transfer", kittyID)
	return s.tc.POSTAs(owner, path, map[string]any{"new_owner": s.tc.Account(newOwner)})
}

func (s *kittySteps) shouldOwn(owner, kitty string) error {
	kittyID, err := s.tc.Kitty(kitty)
	if err != nil {
		return err
	}
	if err := s.tc.GET(fmt.Sprintf("/kitties/%d", kittyID)); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("owner")
	if err != nil {
		return err
	}
	if got != s.tc.Account(owner) {
		return fmt.Errorf("kitty %d is owned by %v, expected %s", kittyID, got, owner)
	}
	return nil
}

func (s *kittySteps) shouldOwnCount(owner string, count int) error {
	if err := s.tc.GET("/accounts/" + s.tc.Account(owner) + "/kitties"); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("kitties")
	if err != nil {
		return err
	}
	list, ok := got.([]any)
	if !ok || len(list) != count {
		return fmt.Errorf("expected %d kitties for %s, got %v", count, owner, got)
	}
	return nil
}

// genomeMixed checks every bit of the child comes from one of the parents.
func (s *kittySteps) genomeMixed(child, parent1, parent2 string) error {
	c, err := s.genome(child)
	if err != nil {
		return err
	}
	p1, err := s.genome(parent1)
	if err != nil {
		return err
	}
	p2, err := s.genome(parent2)
	if err != nil {
		return err
	}
	for i := range c {
		if c[i] & ^(p1[i]|p2[i]) != 0 || ^c[i]&(p1[i]&p2[i]) != 0 {
			return fmt.Errorf("byte %d of %s (%02x) is not a mix of %02x and %02x", i, child, c[i], p1[i], p2[i])
		}
	}
	return nil
}

func (s *kittySteps) genome(name string) ([]byte, error) {
	kittyID, err := s.tc.Kitty(name)
	if err != nil {
		return nil, err
	}
	if err := s.tc.GET(fmt.Sprintf("/kitties/%d", kittyID)); err != nil {
		return nil, err
	}
	raw, err := s.tc.GetResponseField("genome")
	if err != nil {
		return nil, err
	}
	text, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected genome %v", raw)
	}
	out, err := hex.DecodeString(text)
	if err != nil || len(out) != 16 {
		return nil, fmt.Errorf("unexpected genome %q", text)
	}
	return out, nil
}

func (s *kittySteps) rememberCreated(name string) error {
	if s.tc.GetLastResponseStatus() != 201 {
		return fmt.Errorf("expected 201, got %d: %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	raw, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	kittyID, ok := raw.(float64)
	if !ok {
		return fmt.Errorf("unexpected kitty id %v", raw)
	}
	s.tc.RememberKitty(name, uint64(kittyID))
	return nil
}
