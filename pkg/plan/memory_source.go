package plan

import (
	"context"
	"slices"
	"sync"
)

// inMemSource implements the Source interface using an in-memory plan map.
type inMemSource struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemSource returns an in-memory Source with a deep copy of the given plans.
func NewInMemSource(plans map[string]Plan) Source {
	return &inMemSource{plans: copyPlans(plans)}
}

// Load returns a copy of all available plans from memory.
func (s *inMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyPlans(s.plans), nil
}

func copyPlans(plans map[string]Plan) map[string]Plan {
	out := make(map[string]Plan, len(plans))
	for id, p := range plans {
		p.Features = slices.Clone(p.Features)
		out[id] = p
	}
	return out
}

// DefaultPlans returns the built-in catalog used when no plan file is
// configured. Quotas count AI interactions per user; all agent types share
// the same daily and monthly counters.
func DefaultPlans() map[string]Plan {
	return map[string]Plan{
		PlanFree: {
			ID:           PlanFree,
			Name:         "Free",
			Description:  "Trial access to the AI tutor",
			DailyLimit:   10,
			MonthlyLimit: 100,
			Features:     []Feature{FeatureChat, FeatureHints},
			Public:       true,
			UpgradeTo:    PlanBasic,
		},
		PlanBasic: {
			ID:           PlanBasic,
			Name:         "Basic",
			Description:  "Individual learners",
			DailyLimit:   50,
			MonthlyLimit: 1000,
			Features:     []Feature{FeatureChat, FeatureHints, FeatureQuiz, FeatureReflections},
			Public:       true,
			UpgradeTo:    PlanPro,
		},
		PlanPro: {
			ID:           PlanPro,
			Name:         "Pro",
			Description:  "Power users and course authors",
			DailyLimit:   Unlimited,
			MonthlyLimit: 5000,
			Features:     []Feature{FeatureChat, FeatureHints, FeatureQuiz, FeatureReflections, FeatureLearningPath},
			Public:       true,
			UpgradeTo:    PlanTeam,
		},
		PlanTeam: {
			ID:           PlanTeam,
			Name:         "Team",
			Description:  "Organizations and cohorts",
			DailyLimit:   Unlimited,
			MonthlyLimit: Unlimited,
			Features:     []Feature{FeatureChat, FeatureHints, FeatureQuiz, FeatureReflections, FeatureLearningPath},
			Public:       false,
		},
	}
}
