package comparator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"intentgate/internal/config"
	"intentgate/internal/domain"
)

func testPolicy() *config.Policy {
	return &config.Policy{
		AllowedActions:   []string{"find_experts", "summarize"},
		AllowedExpertise: []string{"ml", "security", "cloud"},
		BudgetCeiling:    900,
		ToleranceMargin:  150,
	}
}

func intent(action string, expertise []string, budget *int64) *domain.ParsedIntent {
	return &domain.ParsedIntent{
		ParserID:  "deterministic_v1",
		Action:    action,
		Topic:     "supply chain",
		Expertise: expertise,
		Constraints: domain.Constraints{
			MaxBudget: budget,
		},
		Confidence: 1.0,
	}
}

func i64(v int64) *int64 { return &v }

func TestCompare_Approved(t *testing.T) {
	c := New(testPolicy())

	res := c.Compare(intent("find_experts", []string{"ml"}, i64(500)))

	assert.Equal(t, domain.DecisionApproved, res.Decision)
	assert.False(t, res.RequiresElevation)
	assert.Empty(t, res.Mismatches)
}

func TestCompare_ActionNotAllowedIsHard(t *testing.T) {
	c := New(testPolicy())

	res := c.Compare(intent("delete_database", nil, nil))

	assert.Equal(t, domain.DecisionHardMismatch, res.Decision)
	assert.False(t, res.RequiresElevation, "hard mismatches are never elevatable")
	assert.Len(t, res.Mismatches, 1)
}

func TestCompare_ForbiddenExpertiseIsHard(t *testing.T) {
	c := New(testPolicy())

	res := c.Compare(intent("find_experts", []string{"ml", "quantum"}, nil))

	assert.Equal(t, domain.DecisionHardMismatch, res.Decision)
	assert.Contains(t, res.Mismatches[0], "quantum")
}

func TestCompare_BudgetWithinToleranceIsSoft(t *testing.T) {
	c := New(testPolicy())

	// 1000 over a 900 ceiling, margin 150: soft, elevatable.
	res := c.Compare(intent("find_experts", []string{"ml"}, i64(1000)))

	assert.Equal(t, domain.DecisionSoftMismatch, res.Decision)
	assert.True(t, res.RequiresElevation)
	assert.Len(t, res.Mismatches, 1)
}

func TestCompare_BudgetBeyondToleranceIsHard(t *testing.T) {
	c := New(testPolicy())

	res := c.Compare(intent("find_experts", []string{"ml"}, i64(2000)))

	assert.Equal(t, domain.DecisionHardMismatch, res.Decision)
	assert.False(t, res.RequiresElevation)
}

func TestCompare_CollectsEveryViolation(t *testing.T) {
	c := New(testPolicy())

	res := c.Compare(intent("execute_code", []string{"quantum"}, i64(5000)))

	assert.Equal(t, domain.DecisionHardMismatch, res.Decision)
	assert.Len(t, res.Mismatches, 3, "all violated rules must be listed, not just the first")
}

func TestCompare_HardWinsOverSoft(t *testing.T) {
	c := New(testPolicy())

	// Forbidden action plus a budget only softly over: still hard overall.
	res := c.Compare(intent("execute_code", nil, i64(1000)))

	assert.Equal(t, domain.DecisionHardMismatch, res.Decision)
	assert.False(t, res.RequiresElevation)
	assert.Len(t, res.Mismatches, 2)
}

func TestCompare_EmptyExpertisePolicyUnrestricted(t *testing.T) {
	p := testPolicy()
	p.AllowedExpertise = nil
	c := New(p)

	res := c.Compare(intent("summarize", []string{"anything"}, nil))
	assert.Equal(t, domain.DecisionApproved, res.Decision)
}

func TestCompare_NoBudgetConstraintPasses(t *testing.T) {
	c := New(testPolicy())

	res := c.Compare(intent("summarize", nil, nil))
	assert.Equal(t, domain.DecisionApproved, res.Decision)
}
