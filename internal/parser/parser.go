// Package parser holds the intent parsers and the ensemble that fans a
// query out across them. Parsers are independent: a slow or broken parser
// only removes its own result from the vote.
package parser

import (
	"context"
	"errors"

	"intentgate/internal/domain"
)

// ErrEmptyInput rejects blank queries before any extraction runs.
var ErrEmptyInput = errors.New("empty input")

// Parser produces one ParsedIntent for a query. Implementations must be
// safe for concurrent use and honor context cancellation.
type Parser interface {
	ID() string
	Deterministic() bool
	Parse(ctx context.Context, query string) (domain.ParsedIntent, error)
}
