package plan

import "errors"

// Domain errors for plan catalog operations
var (
	// ErrUnknownPlan is returned alongside the free-tier fallback when a plan
	// ID does not resolve. Callers should log it and keep the fallback rather
	// than deny service on a data error.
	ErrUnknownPlan = errors.New("plan.errors.unknown_plan")

	// ErrNoFreePlan indicates the loaded catalog is missing the free tier,
	// which is required as the fallback for unknown plan IDs.
	ErrNoFreePlan = errors.New("plan.errors.no_free_plan")

	// ErrInvalidPlanConfiguration indicates a plan failed validation at load.
	ErrInvalidPlanConfiguration = errors.New("plan.errors.invalid_plan_configuration")

	// ErrFailedToLoadPlans wraps source errors during catalog construction.
	ErrFailedToLoadPlans = errors.New("plan.errors.failed_to_load_plans")
)
