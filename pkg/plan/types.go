package plan

// Limit is a per-period usage cap.
//
// A Limit has three meaningful states: Blocked (0) always denies,
// Limited (n > 0) allows up to n uses per period, and Unlimited (-1)
// never denies. Zero is never used to mean "unlimited"; code that needs
// an uncapped plan must use the Unlimited sentinel.
type Limit int64

const (
	// Unlimited indicates no cap for a period (-1 chosen for SQL compatibility).
	Unlimited Limit = -1

	// Blocked indicates the period is fully disabled: every request is denied.
	Blocked Limit = 0
)

// IsUnlimited reports whether the limit never denies.
func (l Limit) IsUnlimited() bool {
	return l < 0
}

// Allows reports whether one more use is permitted given the current count.
// Blocked (0) denies regardless of the count.
func (l Limit) Allows(current int64) bool {
	if l.IsUnlimited() {
		return true
	}
	return current < int64(l)
}

// Int64 returns the raw cap value, -1 for unlimited.
func (l Limit) Int64() int64 {
	return int64(l)
}

// Feature is a plan-specific capability flag for an AI agent type.
type Feature string

// Predefined feature flags. Each maps to one tutoring agent type.
const (
	FeatureChat         Feature = "chat"
	FeatureHints        Feature = "hints"
	FeatureQuiz         Feature = "quiz"
	FeatureReflections  Feature = "reflections"
	FeatureLearningPath Feature = "learning_path"
)

// Canonical plan identifiers.
const (
	PlanFree  = "free"
	PlanBasic = "basic"
	PlanPro   = "pro"
	PlanTeam  = "team"
)
