package plan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unpuzzle-ai/usagekit/pkg/plan"
)

func newTestCatalog(t *testing.T) *plan.Catalog {
	t.Helper()

	catalog, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(plan.DefaultPlans()))
	require.NoError(t, err)
	return catalog
}

func TestNewCatalog(t *testing.T) {
	t.Parallel()

	t.Run("loads default plans", func(t *testing.T) {
		t.Parallel()

		catalog := newTestCatalog(t)
		assert.Len(t, catalog.Plans(), 4)
	})

	t.Run("requires free plan", func(t *testing.T) {
		t.Parallel()

		src := plan.NewInMemSource(map[string]plan.Plan{
			plan.PlanPro: {ID: plan.PlanPro, Name: "Pro", DailyLimit: plan.Unlimited, MonthlyLimit: plan.Unlimited},
		})
		catalog, err := plan.NewCatalog(context.Background(), src)

		assert.ErrorIs(t, err, plan.ErrNoFreePlan)
		assert.Nil(t, catalog)
	})

	t.Run("rejects limits below the unlimited sentinel", func(t *testing.T) {
		t.Parallel()

		src := plan.NewInMemSource(map[string]plan.Plan{
			plan.PlanFree: {ID: plan.PlanFree, DailyLimit: -2, MonthlyLimit: 10},
		})
		_, err := plan.NewCatalog(context.Background(), src)

		assert.ErrorIs(t, err, plan.ErrInvalidPlanConfiguration)
	})

	t.Run("rejects dangling upgrade target", func(t *testing.T) {
		t.Parallel()

		src := plan.NewInMemSource(map[string]plan.Plan{
			plan.PlanFree: {ID: plan.PlanFree, DailyLimit: 10, MonthlyLimit: 100, UpgradeTo: "enterprise"},
		})
		_, err := plan.NewCatalog(context.Background(), src)

		assert.ErrorIs(t, err, plan.ErrInvalidPlanConfiguration)
	})
}

func TestCatalogLimitsFor(t *testing.T) {
	t.Parallel()

	catalog := newTestCatalog(t)

	t.Run("known plan", func(t *testing.T) {
		t.Parallel()

		p, err := catalog.LimitsFor(plan.PlanBasic)
		require.NoError(t, err)
		assert.Equal(t, plan.PlanBasic, p.ID)
		assert.Equal(t, plan.Limit(50), p.DailyLimit)
	})

	t.Run("unknown plan falls back to free", func(t *testing.T) {
		t.Parallel()

		p, err := catalog.LimitsFor("mystery")
		assert.ErrorIs(t, err, plan.ErrUnknownPlan)

		free, ferr := catalog.LimitsFor(plan.PlanFree)
		require.NoError(t, ferr)
		assert.Equal(t, free, p)
	})

	t.Run("legacy aliases resolve", func(t *testing.T) {
		t.Parallel()

		p, err := catalog.LimitsFor("premium")
		require.NoError(t, err)
		assert.Equal(t, plan.PlanPro, p.ID)

		p, err = catalog.LimitsFor("learner")
		require.NoError(t, err)
		assert.Equal(t, plan.PlanFree, p.ID)
	})
}

func TestCatalogVerifyPlan(t *testing.T) {
	t.Parallel()

	catalog := newTestCatalog(t)

	assert.NoError(t, catalog.VerifyPlan(plan.PlanTeam))
	assert.NoError(t, catalog.VerifyPlan("premium"))
	assert.ErrorIs(t, catalog.VerifyPlan("mystery"), plan.ErrUnknownPlan)
}

func TestLimit(t *testing.T) {
	t.Parallel()

	t.Run("blocked always denies", func(t *testing.T) {
		t.Parallel()

		assert.False(t, plan.Blocked.Allows(0))
		assert.False(t, plan.Blocked.Allows(100))
		assert.False(t, plan.Blocked.IsUnlimited())
	})

	t.Run("unlimited never denies", func(t *testing.T) {
		t.Parallel()

		assert.True(t, plan.Unlimited.Allows(0))
		assert.True(t, plan.Unlimited.Allows(1<<40))
		assert.True(t, plan.Unlimited.IsUnlimited())
	})

	t.Run("limited compares against current", func(t *testing.T) {
		t.Parallel()

		l := plan.Limit(3)
		assert.True(t, l.Allows(2))
		assert.False(t, l.Allows(3))
		assert.False(t, l.Allows(4))
	})
}

func TestHasFeature(t *testing.T) {
	t.Parallel()

	catalog := newTestCatalog(t)

	free, err := catalog.LimitsFor(plan.PlanFree)
	require.NoError(t, err)
	assert.True(t, free.HasFeature(plan.FeatureChat))
	assert.False(t, free.HasFeature(plan.FeatureQuiz))

	team, err := catalog.LimitsFor(plan.PlanTeam)
	require.NoError(t, err)
	assert.True(t, team.HasFeature(plan.FeatureLearningPath))
}
