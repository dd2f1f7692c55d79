package quota

import "github.com/prodigy2/autoRiaClone/internal/domain"

// Enforcer decides whether an account may create another listing based on
// its tier and its total listing count across every status.
type Enforcer struct {
	baseLimit int
}

func NewEnforcer(baseLimit int) *Enforcer {
	return &Enforcer{baseLimit: baseLimit}
}

// CanCreate reports whether a seller on the given tier, who already owns
// count listings, may create one more. Premium and internal accounts are
// unlimited; base accounts are capped at the configured limit.
func (e *Enforcer) CanCreate(tier string, count int) bool {
	switch tier {
	case domain.TierPremium, domain.TierInternal:
		return true
	default:
		return count < e.baseLimit
	}
}

// BaseLimit returns the cap applied to base-tier accounts.
func (e *Enforcer) BaseLimit() int {
	return e.baseLimit
}
