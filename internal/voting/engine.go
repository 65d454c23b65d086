// Package voting implements the consensus engine that reduces multiple
// independent intent extractions to a single canonical intent with an
// agreement classification.
package voting

import (
	"errors"
	"fmt"

	"intentgate/internal/domain"
)

var (
	// ErrNoIntents indicates an empty result set was submitted for voting.
	ErrNoIntents = errors.New("no intents provided for voting")

	// ErrInsufficientParsers indicates fewer results survived than the
	// configured minimum.
	ErrInsufficientParsers = errors.New("insufficient parser results")

	// ErrNoDeterministicParser indicates the named deterministic parser was
	// absent from the result set.
	ErrNoDeterministicParser = errors.New("deterministic parser result not found")
)

// Engine computes pairwise similarity across parser results, classifies the
// agreement level and selects a canonical intent.
type Engine struct {
	highThreshold float64
	lowThreshold  float64
	minParsers    int
}

// NewEngine creates a voting engine. The high threshold must not be below
// the low threshold; the default thresholds are 0.95 and 0.75.
func NewEngine(highThreshold, lowThreshold float64, minParsers int) (*Engine, error) {
	if highThreshold < lowThreshold {
		return nil, fmt.Errorf("high confidence threshold %.2f below low threshold %.2f", highThreshold, lowThreshold)
	}
	if minParsers < 1 {
		minParsers = 1
	}
	return &Engine{
		highThreshold: highThreshold,
		lowThreshold:  lowThreshold,
		minParsers:    minParsers,
	}, nil
}

// Vote compares all parser results pairwise and returns the consensus. The
// canonical intent is always returned regardless of agreement level:
// disagreement lowers downstream trust, it does not withhold a result.
//
// deterministicID, when non-empty, names the parser whose result is used
// unconditionally as canonical; its absence from results is an error.
func (e *Engine) Vote(results []domain.ParsedIntent, deterministicID string) (*domain.VotingResult, error) {
	if len(results) == 0 {
		return nil, ErrNoIntents
	}
	if len(results) < e.minParsers {
		return nil, fmt.Errorf("%w: got %d, need at least %d", ErrInsufficientParsers, len(results), e.minParsers)
	}

	canonical, err := e.selectCanonical(results, deterministicID)
	if err != nil {
		return nil, err
	}

	minSim, avgSim := pairwiseSimilarity(results)

	return &domain.VotingResult{
		AgreementLevel:  e.classify(minSim, avgSim),
		CanonicalIntent: canonical,
		ParserResults:   results,
		MinSimilarity:   minSim,
		AvgSimilarity:   avgSim,
	}, nil
}

// pairwiseSimilarity computes min and average similarity over all unordered
// pairs. A single result yields both = 1.0: one parser trivially agrees with
// itself.
func pairwiseSimilarity(results []domain.ParsedIntent) (minSim, avgSim float64) {
	if len(results) < 2 {
		return 1.0, 1.0
	}

	minSim = 1.0
	var sum float64
	var pairs int
	for i := range results {
		for j := i + 1; j < len(results); j++ {
			sim := results[i].Similarity(&results[j])
			sum += sim
			pairs++
			if sim < minSim {
				minSim = sim
			}
		}
	}
	return minSim, sum / float64(pairs)
}

func (e *Engine) classify(minSim, avgSim float64) domain.AgreementLevel {
	switch {
	case minSim >= e.highThreshold:
		return domain.AgreementHighConfidence
	case avgSim >= e.lowThreshold:
		return domain.AgreementLowConfidence
	default:
		return domain.AgreementConflict
	}
}

// selectCanonical prefers the deterministic parser unconditionally when one
// is named; otherwise the highest-confidence result wins, ties broken by
// first-seen order.
func (e *Engine) selectCanonical(results []domain.ParsedIntent, deterministicID string) (domain.ParsedIntent, error) {
	if deterministicID != "" {
		for _, r := range results {
			if r.ParserID == deterministicID {
				return r, nil
			}
		}
		return domain.ParsedIntent{}, fmt.Errorf("%w: %s", ErrNoDeterministicParser, deterministicID)
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}
	return best, nil
}
