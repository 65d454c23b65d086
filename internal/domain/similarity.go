package domain

import (
	"math"
	"strings"
)

// Similarity term weights. The action carries the most weight because two
// intents that disagree on the action are different requests no matter how
// close the rest looks.
const (
	actionWeight     = 3.0
	topicWeight      = 2.0
	expertiseWeight  = 2.0
	constraintWeight = 1.5
	totalWeight      = actionWeight + topicWeight + expertiseWeight + constraintWeight

	// constraintTolerance is the relative difference under which two numeric
	// constraint values are treated as equal.
	constraintTolerance = 0.05
)

// Similarity scores how closely two parsed intents agree, from 0 (unrelated)
// to 1 (identical). Each term is normalized to 0..1 and the weighted sum is
// normalized by the total weight.
func (p *ParsedIntent) Similarity(other *ParsedIntent) float64 {
	score := actionSimilarity(p.Action, other.Action) * actionWeight
	score += topicSimilarity(p.Topic, other.Topic) * topicWeight
	score += setSimilarity(p.Expertise, other.Expertise) * expertiseWeight
	score += constraintSimilarity(p.Constraints, other.Constraints) * constraintWeight
	return score / totalWeight
}

// actionSimilarity is exact-match only: a renamed action is a different action.
func actionSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return 0.0
}

// topicSimilarity computes the token-overlap ratio (Dice coefficient) over
// normalized word sets.
func topicSimilarity(a, b string) float64 {
	aWords := topicTokens(a)
	bWords := topicTokens(b)
	if len(aWords) == 0 && len(bWords) == 0 {
		return 1.0
	}
	if len(aWords) == 0 || len(bWords) == 0 {
		return 0.0
	}
	common := 0
	for w := range aWords {
		if bWords[w] {
			common++
		}
	}
	return 2.0 * float64(common) / float64(len(aWords)+len(bWords))
}

func topicTokens(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t' || r == '\n'
	}) {
		if w != "" {
			tokens[w] = true
		}
	}
	return tokens
}

// setSimilarity is the Jaccard index over case-folded string sets. Two empty
// sets agree perfectly; one empty set against a non-empty one does not agree
// at all.
func setSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	aSet := make(map[string]bool, len(a))
	for _, s := range a {
		aSet[strings.ToLower(s)] = true
	}
	bSet := make(map[string]bool, len(b))
	for _, s := range b {
		bSet[strings.ToLower(s)] = true
	}
	intersection := 0
	for s := range aSet {
		if bSet[s] {
			intersection++
		}
	}
	union := len(aSet) + len(bSet) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// constraintSimilarity compares the whitelisted constraint fields. Both
// absent is perfect agreement; one side absent is weak partial agreement.
// Numeric values use relative closeness with a fixed tolerance band.
func constraintSimilarity(a, b Constraints) float64 {
	if a.Empty() && b.Empty() {
		return 1.0
	}
	if a.Empty() || b.Empty() {
		return 0.3
	}

	var sum float64
	var terms int

	if a.MaxBudget != nil || b.MaxBudget != nil {
		sum += numericCloseness(a.MaxBudget, b.MaxBudget)
		terms++
	}
	if a.MaxResults != nil || b.MaxResults != nil {
		sum += numericCloseness(a.MaxResults, b.MaxResults)
		terms++
	}
	if a.Deadline != nil || b.Deadline != nil {
		if a.Deadline != nil && b.Deadline != nil && *a.Deadline == *b.Deadline {
			sum += 1.0
		}
		terms++
	}
	if terms == 0 {
		return 1.0
	}
	return sum / float64(terms)
}

func numericCloseness(a, b *int64) float64 {
	if a == nil || b == nil {
		return 0.0
	}
	av, bv := float64(*a), float64(*b)
	if av == bv {
		return 1.0
	}
	maxVal := math.Max(math.Abs(av), math.Abs(bv))
	if maxVal == 0 {
		return 1.0
	}
	relDiff := math.Abs(av-bv) / maxVal
	if relDiff <= constraintTolerance {
		return 1.0
	}
	return 1.0 - math.Min(relDiff, 1.0)
}
