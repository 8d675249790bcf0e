// Package ratelimit throttles calls per client and route category with a
// fixed window counter. Over-budget calls are rejected immediately; nothing
// is queued or delayed.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tendant/simple-platform/pkg/platform"
)

// Backend stores window counters. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Increment counts one call for key. A key whose window has ended
	// starts a new window of the given length at now.
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)

	// Decrement gives back one call for key if its window is still open.
	Decrement(ctx context.Context, key string, now time.Time) error
}

// Decision describes the outcome of a single Allow call.
type Decision struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is set only when the call was rejected.
	RetryAfter int
}

// Limiter applies per-category policies on top of a Backend.
type Limiter struct {
	backend  Backend
	policies map[Category]Policy
	now      func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithPolicy overrides the policy of one category
func WithPolicy(category Category, policy Policy) Option {
	return func(l *Limiter) {
		l.policies[category] = policy
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter with DefaultPolicies and the given options
func New(backend Backend, options ...Option) (*Limiter, error) {
	if backend == nil {
		return nil, fmt.Errorf("rate limit backend is required")
	}
	l := &Limiter{
		backend:  backend,
		policies: DefaultPolicies(),
		now:      time.Now,
	}
	for _, option := range options {
		option(l)
	}
	for category, policy := range l.policies {
		if err := policy.Validate(); err != nil {
			return nil, fmt.Errorf("policy %s: %w", category, err)
		}
	}
	return l, nil
}

// Policy returns the policy applied to category. Unknown categories fall
// back to the general policy.
func (l *Limiter) Policy(category Category) Policy {
	if policy, ok := l.policies[category]; ok {
		return policy
	}
	return l.policies[CategoryGeneral]
}

// Allow counts one call from client in category. When the budget is spent
// it returns a rate_limited *platform.Error carrying the seconds until the
// window resets.
func (l *Limiter) Allow(ctx context.Context, client string, category Category) (Decision, error) {
	policy := l.Policy(category)
	now := l.now()

	count, resetAt, err := l.backend.Increment(ctx, Key(client, category), policy.Window, now)
	if err != nil {
		return Decision{}, platform.InternalError("count request", err)
	}

	decision := Decision{
		Limit:     policy.Capacity,
		Remaining: policy.Capacity - count,
		ResetAt:   resetAt,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if count > policy.Capacity {
		decision.RetryAfter = retryAfter(resetAt, now)
		return decision, platform.RateLimitedError(decision.RetryAfter)
	}
	return decision, nil
}

// Refund returns the slot taken by a successful call when the category's
// policy only counts failures. It is a no-op otherwise.
func (l *Limiter) Refund(ctx context.Context, client string, category Category) error {
	if !l.Policy(category).RefundSuccess {
		return nil
	}
	if err := l.backend.Decrement(ctx, Key(client, category), l.now()); err != nil {
		return platform.InternalError("refund request", err)
	}
	return nil
}

// Key builds the bucket key for client and category.
func Key(client string, category Category) string {
	return client + "|" + string(category)
}

func retryAfter(resetAt, now time.Time) int {
	seconds := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
