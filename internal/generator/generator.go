// Package generator turns a policy-approved canonical intent into a
// TrustedIntent: every free-form field is normalized to an identifier, the
// constraint set is reduced to the whitelisted keys, and the result is hashed
// and optionally signed. Nothing derived from raw user prose survives into
// the output.
package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"intentgate/internal/config"
	"intentgate/internal/domain"
)

var (
	ErrSanitization       = errors.New("sanitization failed")
	ErrInvalidContentRef  = errors.New("invalid content reference")
	ErrTopicNormalization = errors.New("topic normalization failed")
	ErrSignature          = errors.New("signature generation failed")
	ErrSchema             = errors.New("schema validation failed")
)

// identifierRe is the shape every surviving string field must have. Content
// refs additionally allow uppercase and hyphens since they name external
// objects (doc ids, file handles) rather than normalized topics.
var (
	identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	contentRefRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)
)

// instructionVerbs flags content refs that read like imperative prose even
// when they are identifier-shaped ("ignore_previous_instructions").
var instructionVerbs = map[string]bool{
	"ignore": true, "disregard": true, "forget": true, "override": true,
	"execute": true, "delete": true, "drop": true, "bypass": true,
	"reveal": true, "print": true, "repeat": true, "pretend": true,
}

// Metadata carries the request attribution copied verbatim onto the trusted
// intent. These are system-assigned identifiers, never user prose.
type Metadata struct {
	UserID    string
	SessionID string
}

// Generator builds trusted intents. Construct once with the process config
// and a signer; safe for concurrent use.
type Generator struct {
	cfg    *config.Config
	signer Signer
}

// New creates a Generator. A nil signer disables signing.
func New(cfg *config.Config, signer Signer) *Generator {
	if signer == nil {
		signer = NoopSigner{}
	}
	return &Generator{cfg: cfg, signer: signer}
}

// Generate sanitizes the canonical intent into a TrustedIntent. It is only
// called for intents the comparator approved (or a human approved), but the
// action check is repeated here so a wiring mistake upstream cannot smuggle
// a forbidden action through.
func (g *Generator) Generate(intent *domain.ParsedIntent, contentRefs []string, meta Metadata) (*domain.TrustedIntent, error) {
	if err := g.validateAction(intent.Action); err != nil {
		return nil, err
	}

	topicID, err := g.NormalizeTopic(intent.Topic)
	if err != nil {
		return nil, err
	}

	refs, err := g.sanitizeContentRefs(contentRefs)
	if err != nil {
		return nil, err
	}

	expertise := g.sanitizeExpertise(intent.Expertise)
	constraints := sanitizeConstraints(intent.Constraints)

	trusted := &domain.TrustedIntent{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		Action:      intent.Action,
		TopicID:     topicID,
		Expertise:   expertise,
		Constraints: constraints,
		ContentRefs: refs,
		SigScheme:   string(g.signer.Scheme()),
		UserID:      meta.UserID,
		SessionID:   meta.SessionID,
	}

	payload, err := canonicalPayload(trusted)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSanitization, err)
	}
	sum := sha256.Sum256(payload)
	trusted.ContentHash = hex.EncodeToString(sum[:])

	if g.signer.Scheme() != config.SigningNone {
		sig, err := g.signer.Sign(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSignature, err)
		}
		trusted.Signature = &sig
	}

	if err := validateNoRawContent(trusted); err != nil {
		return nil, err
	}
	return trusted, nil
}

func (g *Generator) validateAction(action string) error {
	if !g.cfg.Policy.ActionAllowed(action) {
		return fmt.Errorf("%w: action %q is not in the allowed list", ErrSchema, action)
	}
	return nil
}

// NormalizeTopic converts free-form topic text into a safe identifier:
// lowercase, spaces and hyphens to underscores, everything outside
// [a-z0-9_] stripped, truncated to the configured maximum. The result must
// match [a-z_][a-z0-9_]*. Idempotent: normalizing an already-normalized
// topic returns it unchanged.
func (g *Generator) NormalizeTopic(topic string) (string, error) {
	lowered := strings.ToLower(strings.TrimSpace(topic))
	lowered = strings.NewReplacer(" ", "_", "-", "_").Replace(lowered)

	var b strings.Builder
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	sanitized := b.String()

	if sanitized == "" {
		return "", fmt.Errorf("%w: topic normalized to empty string", ErrTopicNormalization)
	}
	if len(sanitized) > g.cfg.Generator.MaxTopicIDLength {
		sanitized = sanitized[:g.cfg.Generator.MaxTopicIDLength]
	}
	if !identifierRe.MatchString(sanitized) {
		return "", fmt.Errorf("%w: %q is not a valid identifier", ErrTopicNormalization, sanitized)
	}
	return sanitized, nil
}

// sanitizeContentRefs validates that every reference names an opaque,
// already-sanitized object rather than carrying raw content.
func (g *Generator) sanitizeContentRefs(refs []string) ([]string, error) {
	if len(refs) > g.cfg.Generator.MaxContentRefs {
		return nil, fmt.Errorf("%w: too many content references: %d > %d",
			ErrSanitization, len(refs), g.cfg.Generator.MaxContentRefs)
	}

	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if !contentRefRe.MatchString(ref) {
			return nil, fmt.Errorf("%w: %q is not an opaque identifier", ErrInvalidContentRef, ref)
		}
		if looksLikeProse(ref) {
			return nil, fmt.Errorf("%w: %q reads like an instruction, not a reference", ErrInvalidContentRef, ref)
		}
		out = append(out, ref)
	}
	return out, nil
}

// looksLikeProse catches identifier-shaped strings that are really sentences
// in disguise: three or more words led by an instruction verb.
func looksLikeProse(ref string) bool {
	words := strings.FieldsFunc(strings.ToLower(ref), func(r rune) bool {
		return r == '_' || r == '-'
	})
	return len(words) >= 3 && instructionVerbs[words[0]]
}

// sanitizeExpertise normalizes each area to an identifier and deduplicates
// preserving first-seen order. Areas that normalize to nothing are dropped.
func (g *Generator) sanitizeExpertise(areas []string) []string {
	seen := make(map[string]bool, len(areas))
	out := make([]string, 0, len(areas))
	for _, area := range areas {
		normalized, err := g.NormalizeTopic(area)
		if err != nil {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

// sanitizeConstraints copies the whitelisted fields only. Additional is the
// escape hatch parsers use for anything unrecognized; it never crosses the
// trust boundary.
func sanitizeConstraints(c domain.Constraints) domain.Constraints {
	return domain.Constraints{
		MaxBudget:  c.MaxBudget,
		MaxResults: c.MaxResults,
		Deadline:   c.Deadline,
	}
}

// hashablePayload fixes the serialization order of the fields covered by the
// content hash and the signature.
type hashablePayload struct {
	Action      string             `json:"action"`
	TopicID     string             `json:"topic_id"`
	Expertise   []string           `json:"expertise"`
	Constraints domain.Constraints `json:"constraints"`
	ContentRefs []string           `json:"content_refs"`
}

func canonicalPayload(t *domain.TrustedIntent) ([]byte, error) {
	return json.Marshal(hashablePayload{
		Action:      t.Action,
		TopicID:     t.TopicID,
		Expertise:   t.Expertise,
		Constraints: t.Constraints,
		ContentRefs: t.ContentRefs,
	})
}

// validateNoRawContent is the final guard: every string field that could
// have originated from user text must be identifier-shaped by now.
func validateNoRawContent(t *domain.TrustedIntent) error {
	if !identifierRe.MatchString(t.TopicID) {
		return fmt.Errorf("%w: topic_id %q escaped normalization", ErrSanitization, t.TopicID)
	}
	for _, area := range t.Expertise {
		if !identifierRe.MatchString(area) {
			return fmt.Errorf("%w: expertise %q escaped normalization", ErrSanitization, area)
		}
	}
	for _, ref := range t.ContentRefs {
		if !contentRefRe.MatchString(ref) {
			return fmt.Errorf("%w: content ref %q escaped sanitization", ErrSanitization, ref)
		}
	}
	return nil
}
