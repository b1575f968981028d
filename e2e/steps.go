package e2e

import (
	"github.com/cucumber/godog"

	"kitties/e2e/steps/common"
	"kitties/e2e/steps/kitties"
	"kitties/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	kitties.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
