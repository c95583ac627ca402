package plan

import "slices"

// Plan describes a subscription tier and its AI usage constraints.
// Plans are immutable after catalog load; never mutate one at runtime.
type Plan struct {
	ID           string
	Name         string
	Description  string
	DailyLimit   Limit
	MonthlyLimit Limit
	Features     []Feature // agent types enabled for this plan
	Public       bool      // available for self-service signup
	UpgradeTo    string    // suggested next tier, empty for the top tier
}

// HasFeature reports whether the plan enables the given agent type.
func (p Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

// legacyAliases maps plan identifiers found in old stored records to the
// canonical set. The source data drifted between "premium"/"pro" and
// "student"/"learner" before the naming was unified.
var legacyAliases = map[string]string{
	"premium": PlanPro,
	"student": PlanFree,
	"learner": PlanFree,
	"starter": PlanBasic,
}

// Canonical resolves legacy plan identifiers to their canonical form.
// Unknown identifiers are returned unchanged.
func Canonical(id string) string {
	if canonical, ok := legacyAliases[id]; ok {
		return canonical
	}
	return id
}
