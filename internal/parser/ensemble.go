package parser

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"intentgate/internal/domain"
)

// Ensemble fans one query out across every registered parser. Each parser
// runs under its own timeout; a failed or timed-out parser is dropped from
// the result set without cancelling its siblings. Result order follows
// registration order regardless of completion order.
type Ensemble struct {
	parsers []Parser
	timeout time.Duration
	log     *slog.Logger
}

// NewEnsemble builds an ensemble over the given parsers. A nil logger
// discards parse failures silently.
func NewEnsemble(parsers []Parser, timeout time.Duration, log *slog.Logger) *Ensemble {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Ensemble{parsers: parsers, timeout: timeout, log: log}
}

// DeterministicID returns the id of the first deterministic parser, or ""
// when none is registered.
func (e *Ensemble) DeterministicID() string {
	for _, p := range e.parsers {
		if p.Deterministic() {
			return p.ID()
		}
	}
	return ""
}

// ParseAll runs every parser concurrently and returns the surviving
// results. It never returns less than zero results with an error: parser
// failures are per-parser, only the caller's own context abort is fatal.
func (e *Ensemble) ParseAll(ctx context.Context, query string) ([]domain.ParsedIntent, error) {
	results := make([]*domain.ParsedIntent, len(e.parsers))

	var g errgroup.Group
	for i, p := range e.parsers {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			intent, err := p.Parse(pctx, query)
			if err != nil {
				e.log.Warn("parser dropped from vote", "parser", p.ID(), "error", err)
				return nil
			}
			results[i] = &intent
			return nil
		})
	}
	// Individual goroutines never fail the group; Wait is a pure join.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	surviving := make([]domain.ParsedIntent, 0, len(results))
	for _, r := range results {
		if r != nil {
			surviving = append(surviving, *r)
		}
	}
	return surviving, nil
}
