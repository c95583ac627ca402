// Package throttle enforces per-user AI usage quotas derived from
// subscription plans. Every interaction passes through Service.Admit, which
// lazily rolls expired counters over, checks the plan's feature flag for the
// requested agent type, and atomically counts the interaction against the
// daily and monthly caps.
//
// Counters live in a Store. MemoryStore serves a single process, RedisStore
// and PGStore share counters across processes; all three make the
// rollover + check + increment sequence atomic so concurrent admits can
// never overshoot a cap.
//
// Resets are lazy: there is no background timer. Each access compares the
// current UTC date and month against the stored window boundaries and zeroes
// whatever expired. Crossing a day boundary keeps the monthly count.
//
// Denied requests never mutate counters. An admit whose downstream work is
// cancelled can be returned via Service.Refund so cancelled requests leave
// no trace.
//
//	svc, err := throttle.NewService(catalog, throttle.NewMemoryStore())
//	if err != nil { ... }
//
//	d, err := svc.Admit(ctx, userID, planID, plan.FeatureChat)
//	if err != nil { ... }
//	if !d.Allowed {
//	    // d.Reason, d.ResetAt, d.UpgradeMessage
//	}
package throttle
