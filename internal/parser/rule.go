package parser

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"intentgate/internal/domain"
)

// RuleParser is the deterministic keyword parser. No model involved, so no
// hallucination risk; its output anchors the vote and is selected as
// canonical whenever present.
type RuleParser struct{}

// RuleParserID is the registered id of the deterministic parser.
const RuleParserID = "deterministic_v1"

// NewRuleParser creates the deterministic rule parser.
func NewRuleParser() *RuleParser {
	return &RuleParser{}
}

func (p *RuleParser) ID() string          { return RuleParserID }
func (p *RuleParser) Deterministic() bool { return true }

// actionKeywords maps each action to the phrases that imply it. Checked in
// order; first hit wins.
var actionKeywords = []struct {
	action   string
	keywords []string
}{
	{"find_experts", []string{"find expert", "search expert", "locate expert", "get expert", "find me expert"}},
	{"summarize", []string{"summarize", "summary of", "give me a summary"}},
	{"draft_proposal", []string{"draft proposal", "create proposal", "write proposal", "proposal for", "draft a proposal"}},
	{"research", []string{"research", "investigate", "study"}},
	{"query", []string{"query", "question", "ask about", "what is"}},
}

var expertiseKeywords = []struct {
	area     string
	keywords []string
}{
	{"ml", []string{"ml", "machine learning", "artificial intelligence"}},
	{"embedded", []string{"embedded", "iot", "firmware", "microcontroller"}},
	{"security", []string{"security", "cybersecurity", "infosec", "penetration testing"}},
	{"cloud", []string{"cloud", "aws", "azure", "gcp", "kubernetes"}},
	{"blockchain", []string{"blockchain", "web3", "ethereum"}},
}

var (
	topicRe      = regexp.MustCompile(`(?:about|on|regarding|for|in)\s+([^.?!,]+)`)
	budgetRe     = regexp.MustCompile(`(?i)budget[:\s]+\$?(\d+(?:,\d{3})*)([kK])?`)
	maxResultsRe = regexp.MustCompile(`(?i)(?:max|maximum|up to|top)\s+(\d+)(?:\s+(?:results?|experts?|items?))?`)
)

func (p *RuleParser) Parse(ctx context.Context, query string) (domain.ParsedIntent, error) {
	if strings.TrimSpace(query) == "" {
		return domain.ParsedIntent{}, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return domain.ParsedIntent{}, err
	}

	lower := strings.ToLower(query)
	intent := domain.ParsedIntent{
		ParserID:        p.ID(),
		IsDeterministic: true,
		Action:          extractAction(lower),
		Topic:           extractTopic(query),
		Expertise:       extractExpertise(lower),
		Confidence:      1.0,
		RawQuery:        query,
	}

	if budget, ok := extractBudget(query); ok {
		intent.Constraints.MaxBudget = &budget
	}
	if maxResults, ok := extractMaxResults(query); ok {
		intent.Constraints.MaxResults = &maxResults
	}
	return intent, nil
}

func extractAction(lower string) string {
	for _, entry := range actionKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.action
			}
		}
	}
	return "unknown"
}

func extractExpertise(lower string) []string {
	var areas []string
	for _, entry := range expertiseKeywords {
		for _, kw := range entry.keywords {
			if containsWord(lower, kw) {
				areas = append(areas, entry.area)
				break
			}
		}
	}
	return areas
}

// containsWord matches the keyword on word boundaries so "ml" does not fire
// inside "html".
func containsWord(lower, kw string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], kw)
		if i == -1 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordByte(lower[start-1])
		afterOK := end == len(lower) || !isWordByte(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

// extractTopic pulls the phrase after a preposition, falling back to a hash
// of the whole query so every intent has a topic.
func extractTopic(query string) string {
	if m := topicRe.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(m[1])
	}
	return "topic_" + domain.HashInput(query)[:8]
}

func extractBudget(query string) (int64, bool) {
	m := budgetRe.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	budget, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	if m[2] != "" {
		budget *= 1000
	}
	return budget, true
}

func extractMaxResults(query string) (int64, bool) {
	m := maxResultsRe.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	if n > 100 {
		n = 100
	}
	return n, true
}
