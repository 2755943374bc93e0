package source

import (
	"time"

	"github.com/agritox/agritox/internal/core"
)

// CachePolicy controls cache TTLs for source records.
type CachePolicy struct {
	OKTTL          time.Duration
	UnavailableTTL time.Duration
}

func cachePolicyWithDefaults(policy CachePolicy) CachePolicy {
	if policy.OKTTL == 0 {
		policy.OKTTL = time.Hour
	}
	if policy.UnavailableTTL == 0 {
		policy.UnavailableTTL = 30 * time.Second
	}
	return policy
}

func cacheTTL(policy CachePolicy, status core.SourceStatus) time.Duration {
	policy = cachePolicyWithDefaults(policy)

	switch status {
	case core.SourceStatusOK:
		return policy.OKTTL
	default:
		return policy.UnavailableTTL
	}
}
