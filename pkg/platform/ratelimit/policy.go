package ratelimit

import (
	"fmt"
	"time"
)

// Category groups routes that share a throttling budget.
type Category string

const (
	CategoryAuth       Category = "auth"
	CategoryPublicRead Category = "public_read"
	CategoryAdmin      Category = "admin"
	CategoryContact    Category = "contact"
	CategoryEmail      Category = "email"
	CategorySearch     Category = "search"
	CategoryGeneral    Category = "general"
)

// Policy is the budget for one category.
type Policy struct {
	Capacity int
	Window   time.Duration
	// RefundSuccess gives the slot back when the call succeeded, so only
	// failed attempts count against the budget.
	RefundSuccess bool
}

// Validate checks that the policy can admit at least one call.
func (p Policy) Validate() error {
	if p.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", p.Capacity)
	}
	if p.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", p.Window)
	}
	return nil
}

// DefaultPolicies returns the stock budget for every category.
func DefaultPolicies() map[Category]Policy {
	return map[Category]Policy{
		CategoryAuth:       {Capacity: 5, Window: 15 * time.Minute, RefundSuccess: true},
		CategoryPublicRead: {Capacity: 500, Window: time.Hour},
		CategoryAdmin:      {Capacity: 200, Window: time.Hour},
		CategoryContact:    {Capacity: 3, Window: time.Hour},
		CategoryEmail:      {Capacity: 10, Window: time.Hour},
		CategorySearch:     {Capacity: 100, Window: 15 * time.Minute},
		CategoryGeneral:    {Capacity: 100, Window: 15 * time.Minute},
	}
}
