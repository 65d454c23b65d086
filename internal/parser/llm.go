package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"intentgate/internal/domain"
	"intentgate/internal/llm"
)

const llmSystemPrompt = `You translate a user request into a structured intent.
Respond with a single JSON object and nothing else:
{"action": "find_experts|summarize|draft_proposal|research|query",
 "topic": "<short topic phrase>",
 "expertise": ["<area>", ...],
 "max_budget": <integer or null>,
 "max_results": <integer or null>,
 "confidence": <0.0-1.0>}`

// llmIntentShape is the wire shape the model is asked to produce.
type llmIntentShape struct {
	Action     string   `json:"action"`
	Topic      string   `json:"topic"`
	Expertise  []string `json:"expertise"`
	MaxBudget  *int64   `json:"max_budget"`
	MaxResults *int64   `json:"max_results"`
	Confidence float64  `json:"confidence"`
}

// LLMParser asks a language model for a structured parse. Its confidence is
// whatever the model reports, clamped to (0,1]; it never outranks the
// deterministic parser for canonical selection.
type LLMParser struct {
	id     string
	client llm.Client
}

// NewLLMParser creates a parser backed by the given client. Several can be
// registered against the same client with distinct ids.
func NewLLMParser(id string, client llm.Client) *LLMParser {
	return &LLMParser{id: id, client: client}
}

func (p *LLMParser) ID() string          { return p.id }
func (p *LLMParser) Deterministic() bool { return false }

func (p *LLMParser) Parse(ctx context.Context, query string) (domain.ParsedIntent, error) {
	if strings.TrimSpace(query) == "" {
		return domain.ParsedIntent{}, ErrEmptyInput
	}

	resp, err := p.client.Generate(ctx, llm.GenerateRequest{
		SystemPrompt: llmSystemPrompt,
		UserPrompt:   query,
		Temperature:  0.1,
	})
	if err != nil {
		return domain.ParsedIntent{}, fmt.Errorf("parser %s: %w", p.id, err)
	}

	shape, err := llm.ExtractJSON[llmIntentShape](resp.Text, validateShape)
	if err != nil {
		return domain.ParsedIntent{}, fmt.Errorf("parser %s: %w", p.id, err)
	}

	confidence := shape.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}

	return domain.ParsedIntent{
		ParserID:   p.id,
		Action:     shape.Action,
		Topic:      shape.Topic,
		Expertise:  shape.Expertise,
		Confidence: confidence,
		RawQuery:   query,
		Constraints: domain.Constraints{
			MaxBudget:  shape.MaxBudget,
			MaxResults: shape.MaxResults,
		},
	}, nil
}

func validateShape(s llmIntentShape) error {
	if s.Action == "" {
		return errors.New("missing action")
	}
	if s.Topic == "" {
		return errors.New("missing topic")
	}
	return nil
}
