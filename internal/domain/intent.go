package domain

// Constraints holds the whitelisted numeric and scalar limits a parser may
// attach to an intent. Additional carries anything else a parser extracted;
// it survives voting and comparison but is always dropped by the trusted
// intent generator.
type Constraints struct {
	MaxBudget  *int64         `json:"max_budget,omitempty"`
	MaxResults *int64         `json:"max_results,omitempty"`
	Deadline   *string        `json:"deadline,omitempty"`
	Additional map[string]any `json:"additional,omitempty"`
}

// Empty reports whether no whitelisted constraint is set.
func (c Constraints) Empty() bool {
	return c.MaxBudget == nil && c.MaxResults == nil && c.Deadline == nil
}

// ParsedIntent is the output of a single parser for one request. It is
// immutable after creation: downstream stages copy, never mutate.
type ParsedIntent struct {
	ParserID        string      `json:"parser_id"`
	IsDeterministic bool        `json:"is_deterministic"`
	Action          string      `json:"action"`
	Topic           string      `json:"topic"`
	Expertise       []string    `json:"expertise"`
	Constraints     Constraints `json:"constraints"`
	Confidence      float64     `json:"confidence"`
	RawQuery        string      `json:"raw_query"`
}

// HasExpertise reports whether the intent names the given expertise area.
func (p *ParsedIntent) HasExpertise(area string) bool {
	for _, e := range p.Expertise {
		if e == area {
			return true
		}
	}
	return false
}

// Budget returns the max_budget constraint, or false when absent.
func (p *ParsedIntent) Budget() (int64, bool) {
	if p.Constraints.MaxBudget == nil {
		return 0, false
	}
	return *p.Constraints.MaxBudget, true
}
