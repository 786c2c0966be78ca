package domain

import (
	"fmt"
	"time"
)

// ExpirationPolicy is a named retention rule for files kept by the storage service.
type ExpirationPolicy string

const (
	ExpirationOneDay  ExpirationPolicy = "oneDay"
	ExpirationTenDays ExpirationPolicy = "tenDays"
	ExpirationMonth   ExpirationPolicy = "month"
	ExpirationNever   ExpirationPolicy = "never"

	DefaultExpiration = ExpirationTenDays
)

var expirationDays = map[ExpirationPolicy]int{
	ExpirationOneDay:  1,
	ExpirationTenDays: 10,
	ExpirationMonth:   30,
}

// ExpirationPolicies lists every accepted label.
func ExpirationPolicies() []ExpirationPolicy {
	return []ExpirationPolicy{ExpirationOneDay, ExpirationTenDays, ExpirationMonth, ExpirationNever}
}

// Valid reports whether p is a known label.
func (p ExpirationPolicy) Valid() bool {
	if p == ExpirationNever {
		return true
	}
	_, ok := expirationDays[p]
	return ok
}

// ParseExpirationPolicy validates a label coming from config or a request.
func ParseExpirationPolicy(s string) (ExpirationPolicy, error) {
	p := ExpirationPolicy(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid expiration %q, expected one of %v", s, ExpirationPolicies())
	}
	return p, nil
}

// SelectExpiration applies the precedence rule: deployment override first,
// then the value requested by the caller, then DefaultExpiration.
func SelectExpiration(override, requested ExpirationPolicy) ExpirationPolicy {
	if override != "" {
		return override
	}
	if requested != "" {
		return requested
	}
	return DefaultExpiration
}

// ResolveExpiration turns the selected policy into a concrete instant.
// It returns nil when the policy is ExpirationNever, in which case the
// expiration attribute must be left out entirely.
func ResolveExpiration(override, requested ExpirationPolicy, now time.Time) *time.Time {
	policy := SelectExpiration(override, requested)
	days, ok := expirationDays[policy]
	if !ok {
		return nil
	}
	at := now.Add(time.Duration(days) * 24 * time.Hour)
	return &at
}
