package resilience

import "context"

type policyKey struct{}

type callPolicy struct {
	singleAttempt bool
	unguarded     bool
}

func policyFrom(ctx context.Context) callPolicy {
	p, _ := ctx.Value(policyKey{}).(callPolicy)
	return p
}

// NoRetry marks requests issued with ctx as single-attempt. Non-idempotent calls such as
// registration use it so a lost response is never replayed upstream.
func NoRetry(ctx context.Context) context.Context {
	p := policyFrom(ctx)
	p.singleAttempt = true
	return context.WithValue(ctx, policyKey{}, p)
}

// Unguarded marks requests issued with ctx as invisible to the breaker: they are neither
// refused by it nor counted. Readiness checks use it.
func Unguarded(ctx context.Context) context.Context {
	p := policyFrom(ctx)
	p.unguarded = true
	return context.WithValue(ctx, policyKey{}, p)
}
