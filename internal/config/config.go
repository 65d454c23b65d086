// Package config holds the process-wide configuration. It is constructed
// once at startup from environment variables and passed by reference into
// every stage; nothing mutates it afterwards (reload = restart).
package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// SigningScheme selects how trusted intents are signed.
type SigningScheme string

const (
	SigningNone    SigningScheme = "none"
	SigningHMAC    SigningScheme = "hmac"
	SigningEd25519 SigningScheme = "ed25519"
)

// Policy is the provider's immutable policy surface: what the comparator
// checks canonical intents against.
type Policy struct {
	AllowedActions   []string `env:"ALLOWED_ACTIONS" envSeparator:"," envDefault:"find_experts,summarize,draft_proposal,research,query"`
	AllowedExpertise []string `env:"ALLOWED_EXPERTISE" envSeparator:"," envDefault:""`
	BudgetCeiling    int64    `env:"BUDGET_CEILING" envDefault:"50000"`
	ToleranceMargin  int64    `env:"TOLERANCE_MARGIN" envDefault:"5000"`
}

// ActionAllowed reports whether the action is in the allowed set.
func (p *Policy) ActionAllowed(action string) bool {
	for _, a := range p.AllowedActions {
		if a == action {
			return true
		}
	}
	return false
}

// ExpertiseAllowed reports whether the expertise area is permitted. An empty
// allowed set means no restriction.
func (p *Policy) ExpertiseAllowed(area string) bool {
	if len(p.AllowedExpertise) == 0 {
		return true
	}
	for _, e := range p.AllowedExpertise {
		if e == area {
			return true
		}
	}
	return false
}

// Generator bounds the trusted intent generator's sanitization.
type Generator struct {
	MaxContentRefs   int `env:"MAX_CONTENT_REFS" envDefault:"10"`
	MaxTopicIDLength int `env:"MAX_TOPIC_ID_LENGTH" envDefault:"100"`
}

// Signing configures the pluggable signature scheme. Key is hex-encoded:
// the HMAC secret, or the Ed25519 seed (32 bytes) / private key (64 bytes).
type Signing struct {
	Scheme SigningScheme `env:"SCHEME" envDefault:"none"`
	Key    string        `env:"KEY" envDefault:""`
}

// KeyBytes decodes the hex key.
func (s *Signing) KeyBytes() ([]byte, error) {
	b, err := hex.DecodeString(s.Key)
	if err != nil {
		return nil, fmt.Errorf("decoding signing key: %w", err)
	}
	return b, nil
}

// Notify configures delivery of review-queue notifications. An empty
// webhook URL means reviewers are paged through logs only.
type Notify struct {
	WebhookURL string `env:"WEBHOOK_URL" envDefault:""`
	TimeoutMs  int    `env:"TIMEOUT_MS" envDefault:"5000"`
}

// LLM configures the LLM-backed parsers.
type LLM struct {
	Enabled   bool   `env:"ENABLED" envDefault:"false"`
	Endpoint  string `env:"ENDPOINT" envDefault:"http://localhost:11434"`
	Model     string `env:"MODEL" envDefault:"llama3.2"`
	TimeoutMs int    `env:"TIMEOUT_MS" envDefault:"10000"`
	Parsers   int    `env:"PARSERS" envDefault:"2"`
}

// Config is the complete process configuration.
type Config struct {
	DBPath     string `env:"DB" envDefault:""`
	ListenAddr string `env:"LISTEN" envDefault:":8080"`

	HighConfidenceThreshold float64 `env:"HIGH_THRESHOLD" envDefault:"0.95"`
	LowConfidenceThreshold  float64 `env:"LOW_THRESHOLD" envDefault:"0.75"`
	MinParsers              int     `env:"MIN_PARSERS" envDefault:"1"`
	ParserTimeoutMs         int     `env:"PARSER_TIMEOUT_MS" envDefault:"10000"`
	BlockThreshold          float64 `env:"BLOCK_THRESHOLD" envDefault:"0.5"`
	LogRequests             bool    `env:"LOG_REQUESTS" envDefault:"true"`

	Policy    Policy    `envPrefix:"POLICY_"`
	Generator Generator `envPrefix:"GENERATOR_"`
	Signing   Signing   `envPrefix:"SIGNING_"`
	Notify    Notify    `envPrefix:"NOTIFY_"`
	LLM       LLM       `envPrefix:"LLM_"`
}

// Load reads configuration from INTENTGATE_-prefixed environment variables,
// falling back to defaults, and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "INTENTGATE_"}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration with all defaults applied and no
// environment lookup. Used by tests and one-shot CLI runs.
func Default() *Config {
	return &Config{
		ListenAddr:              ":8080",
		HighConfidenceThreshold: 0.95,
		LowConfidenceThreshold:  0.75,
		MinParsers:              1,
		ParserTimeoutMs:         10000,
		BlockThreshold:          0.5,
		LogRequests:             true,
		Policy: Policy{
			AllowedActions:  []string{"find_experts", "summarize", "draft_proposal", "research", "query"},
			BudgetCeiling:   50000,
			ToleranceMargin: 5000,
		},
		Generator: Generator{
			MaxContentRefs:   10,
			MaxTopicIDLength: 100,
		},
		Signing: Signing{Scheme: SigningNone},
		Notify:  Notify{TimeoutMs: 5000},
		LLM: LLM{
			Endpoint:  "http://localhost:11434",
			Model:     "llama3.2",
			TimeoutMs: 10000,
			Parsers:   2,
		},
	}
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	if c.HighConfidenceThreshold < c.LowConfidenceThreshold {
		return fmt.Errorf("high confidence threshold %.2f must not be below low threshold %.2f",
			c.HighConfidenceThreshold, c.LowConfidenceThreshold)
	}
	if c.BlockThreshold < 0 || c.BlockThreshold > 1 {
		return fmt.Errorf("block threshold %.2f outside [0,1]", c.BlockThreshold)
	}
	if c.Policy.ToleranceMargin < 0 {
		return fmt.Errorf("tolerance margin must not be negative")
	}
	if c.Generator.MaxContentRefs < 0 || c.Generator.MaxTopicIDLength < 1 {
		return fmt.Errorf("invalid generator bounds")
	}

	switch c.Signing.Scheme {
	case SigningNone:
	case SigningHMAC:
		key, err := c.Signing.KeyBytes()
		if err != nil {
			return err
		}
		if len(key) == 0 {
			return fmt.Errorf("hmac signing enabled but no key configured")
		}
	case SigningEd25519:
		key, err := c.Signing.KeyBytes()
		if err != nil {
			return err
		}
		if len(key) != ed25519.SeedSize && len(key) != ed25519.PrivateKeySize {
			return fmt.Errorf("ed25519 key must be %d or %d bytes, got %d",
				ed25519.SeedSize, ed25519.PrivateKeySize, len(key))
		}
	default:
		return fmt.Errorf("unknown signing scheme %q", c.Signing.Scheme)
	}

	return nil
}
