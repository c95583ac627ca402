// Package plan provides the subscription plan catalog consumed by the AI
// usage throttle. A Plan pairs daily/monthly usage caps with feature flags
// for the tutoring agent types (chat, hints, quizzes, reflections).
//
// The catalog is a pure lookup table loaded once at startup from a Source
// (in-memory defaults or a YAML file) and never mutated afterwards. Unknown
// plan identifiers resolve to the free tier rather than failing, so a data
// error in a user record degrades service instead of denying it:
//
//	catalog, err := plan.NewCatalog(ctx, plan.NewInMemSource(plan.DefaultPlans()))
//	if err != nil {
//	    // handle startup error
//	}
//
//	p, err := catalog.LimitsFor("mystery")
//	// err == plan.ErrUnknownPlan, p is the free plan
//
// Limits use an explicit -1 sentinel for unlimited. Zero always means
// blocked, never unlimited.
package plan
