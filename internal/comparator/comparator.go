// Package comparator checks a canonical intent against provider policy. It
// produces a decision, never an error: a hard mismatch is a normal terminal
// outcome, not an exception, and is never converted into an auto-approval.
package comparator

import (
	"fmt"

	"intentgate/internal/config"
	"intentgate/internal/domain"
)

// Comparator validates canonical intents against an immutable policy.
type Comparator struct {
	policy *config.Policy
}

// New creates a Comparator bound to the given policy for the life of the
// process.
func New(policy *config.Policy) *Comparator {
	return &Comparator{policy: policy}
}

// Compare checks the canonical intent against the policy. Every violated
// rule is collected, not just the first, so the audit trail shows the full
// picture.
//
// Decision rules:
//   - action outside the allowed set, or any forbidden expertise, or a
//     budget beyond ceiling+margin: hard mismatch, unconditionally blocking.
//   - budget over the ceiling but within the tolerance margin: soft
//     mismatch, may proceed after human approval.
//   - otherwise approved.
func (c *Comparator) Compare(canonical *domain.ParsedIntent) domain.ComparisonResult {
	var hard, soft []string

	if !c.policy.ActionAllowed(canonical.Action) {
		hard = append(hard, fmt.Sprintf("action %q is not in the allowed actions list", canonical.Action))
	}

	for _, area := range canonical.Expertise {
		if !c.policy.ExpertiseAllowed(area) {
			hard = append(hard, fmt.Sprintf("expertise %q is not permitted", area))
		}
	}

	if budget, ok := canonical.Budget(); ok && budget > c.policy.BudgetCeiling {
		over := budget - c.policy.BudgetCeiling
		if over <= c.policy.ToleranceMargin {
			soft = append(soft, fmt.Sprintf("budget %d exceeds ceiling %d by %d (within tolerance %d)",
				budget, c.policy.BudgetCeiling, over, c.policy.ToleranceMargin))
		} else {
			hard = append(hard, fmt.Sprintf("budget %d exceeds ceiling %d beyond tolerance %d",
				budget, c.policy.BudgetCeiling, c.policy.ToleranceMargin))
		}
	}

	mismatches := append(append([]string{}, hard...), soft...)

	switch {
	case len(hard) > 0:
		return domain.ComparisonResult{
			Decision:          domain.DecisionHardMismatch,
			Mismatches:        mismatches,
			RequiresElevation: false,
			Explanation:       fmt.Sprintf("intent denied: %d violation(s) found", len(mismatches)),
		}
	case len(soft) > 0:
		return domain.ComparisonResult{
			Decision:          domain.DecisionSoftMismatch,
			Mismatches:        mismatches,
			RequiresElevation: true,
			Explanation:       fmt.Sprintf("intent requires review: %d issue(s) within tolerance", len(soft)),
		}
	default:
		return domain.ComparisonResult{
			Decision:    domain.DecisionApproved,
			Explanation: "intent approved: all policy checks passed",
		}
	}
}
