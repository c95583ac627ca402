package plan

import (
	"context"
	"errors"
	"fmt"
)

// Source defines how plans are loaded into a Catalog.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// Catalog is a read-only lookup table from plan ID to Plan.
//
// The plans map is treated as immutable after construction; thread-safety
// depends on this immutability assumption (no runtime modifications).
type Catalog struct {
	plans    map[string]Plan
	fallback Plan
}

// NewCatalog loads plans from the given Source and validates them.
// The catalog must contain the free tier: it serves as the fallback for
// unknown plan identifiers.
func NewCatalog(ctx context.Context, src Source) (*Catalog, error) {
	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	fallback, ok := plans[PlanFree]
	if !ok {
		return nil, ErrNoFreePlan
	}

	return &Catalog{
		plans:    plans,
		fallback: fallback,
	}, nil
}

// LimitsFor returns the plan for the given identifier, resolving legacy
// aliases first. Unknown identifiers return the free plan together with
// ErrUnknownPlan: callers should treat the result as usable and the error
// as a logging signal, not a denial.
func (c *Catalog) LimitsFor(planID string) (Plan, error) {
	p, ok := c.plans[Canonical(planID)]
	if !ok {
		return c.fallback, ErrUnknownPlan
	}
	return p, nil
}

// VerifyPlan checks if a plan ID resolves to a known plan.
func (c *Catalog) VerifyPlan(planID string) error {
	if _, ok := c.plans[Canonical(planID)]; !ok {
		return ErrUnknownPlan
	}
	return nil
}

// Plans returns a copy of the catalog keyed by canonical ID.
func (c *Catalog) Plans() map[string]Plan {
	out := make(map[string]Plan, len(c.plans))
	for id, p := range c.plans {
		out[id] = p
	}
	return out
}

// validatePlans checks plan configurations for validity.
func validatePlans(plans map[string]Plan) error {
	for planID, p := range plans {
		if p.DailyLimit < Unlimited {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has invalid daily limit: %d", planID, p.DailyLimit))
		}
		if p.MonthlyLimit < Unlimited {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has invalid monthly limit: %d", planID, p.MonthlyLimit))
		}
		if p.UpgradeTo != "" {
			if _, ok := plans[p.UpgradeTo]; !ok {
				return errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("plan %s upgrades to unknown plan %s", planID, p.UpgradeTo))
			}
		}
	}
	return nil
}
