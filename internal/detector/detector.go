// Package detector is a fast regex heuristic that screens raw user input
// before it reaches the parsers. It catches the obvious attack shapes
// (shell, SQL, XSS, traversal, cloud destruction, prompt override) so the
// expensive pipeline stages never see them.
package detector

import "regexp"

// Verdict is the detector's judgement of one input.
type Verdict struct {
	Score      float64  `json:"score"`
	Blocked    bool     `json:"blocked"`
	Categories []string `json:"categories,omitempty"`
}

// patternClass groups related patterns under one category with a severity.
// The verdict score is the highest severity among matched classes.
type patternClass struct {
	category string
	severity float64
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Patterns are compiled once at package init. A compile failure is a
// programming error and panics immediately at startup, never at scan time.
var classes = []patternClass{
	{
		category: "command_injection",
		severity: 1.0,
		patterns: compileAll(
			`(?i)\brm\s+(-rf?|--recursive)\s+[/~]`,
			`(?i)\bdd\s+if=/dev/(zero|random)\s+of=/dev/[sh]d[a-z]`,
			`(?i):\(\)\s*\{.*:\|:&\s*\};:`,
			`(?i)\b(wget|curl)\s+.+\|\s*(bash|sh|zsh)`,
			`(?i)\bchmod\s+777\s+`,
			`(?i)\bmkfs\.\w+\s+/dev/`,
			`[;&|]\s*(rm|dd|mkfs|format|del)\b`,
			"`[^`]+`",
			`\$\([^)]*\)`,
		),
	},
	{
		category: "sql_injection",
		severity: 0.9,
		patterns: compileAll(
			`(?i)union\s+(all\s+)?select`,
			`(?i)drop\s+(table|database)|truncate\s+table`,
			`(?i)insert\s+into|update\s+\S+\s+set|delete\s+from`,
			`(?i)xp_cmdshell|sp_executesql`,
			`'\s*(?i:or)\s+'?1'?\s*=\s*'?1`,
			`'\s*--`,
			`'\s*/\*`,
			`(?i)'\s*;\s*(drop|delete|update|insert)`,
		),
	},
	{
		category: "xss",
		severity: 0.8,
		patterns: compileAll(
			`(?i)<script[^>]*>`,
			`(?i)javascript:`,
			`(?i)on(error|load|click|mouseover|focus)\s*=`,
			`(?i)<iframe[^>]*>`,
			`(?i)<(object|embed|applet)[^>]*>`,
			`(?i)data:text/html`,
		),
	},
	{
		category: "path_traversal",
		severity: 0.8,
		patterns: compileAll(
			`\.\./`,
			`\.\.\\`,
			`(?i)%2e%2e[/\\]`,
			`(?i)/(etc/passwd|etc/shadow|windows/system32)`,
		),
	},
	{
		category: "cloud_api",
		severity: 0.9,
		patterns: compileAll(
			`(?i)aws\s+(ec2|s3|iam|lambda|rds)\s+(delete|terminate|destroy)`,
			`(?i)aws\s+s3\s+rm\s+--recursive`,
			`(?i)gcloud\s+(compute|storage|iam)\s+.*\b(delete|destroy)`,
			`(?i)gsutil\s+rm\s+-r`,
			`(?i)az\s+(vm|storage|network)\s+\S*\s*delete`,
			`(?i)terraform\s+(destroy|apply)\s+-auto-approve`,
			`(?i)kubectl\s+delete\s+(namespace|cluster)`,
			`(?i)docker\s+(rm|rmi|system\s+prune)\s+-[a-z]*f`,
		),
	},
	{
		category: "prompt_override",
		severity: 0.7,
		patterns: compileAll(
			`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions`,
			`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(instructions|rules)`,
			`(?i)forget\s+(everything|all previous)`,
			`(?i)you\s+are\s+now\s+(a|an|in)\b`,
			`(?i)reveal\s+(your\s+)?(system\s+prompt|instructions)`,
			`(?i)system\s*prompt\s*:`,
		),
	},
}

// Detector scores raw input against the compiled pattern classes.
type Detector struct {
	blockThreshold float64
}

// New creates a Detector that blocks inputs scoring at or above threshold.
func New(blockThreshold float64) *Detector {
	return &Detector{blockThreshold: blockThreshold}
}

// Scan checks the input against every pattern class. All classes are
// evaluated so the verdict lists every matched category, not just the first.
func (d *Detector) Scan(input string) Verdict {
	var v Verdict
	for _, class := range classes {
		if matchesAny(class.patterns, input) {
			v.Categories = append(v.Categories, class.category)
			if class.severity > v.Score {
				v.Score = class.severity
			}
		}
	}
	v.Blocked = v.Score >= d.blockThreshold && len(v.Categories) > 0
	return v
}

func matchesAny(patterns []*regexp.Regexp, input string) bool {
	for _, p := range patterns {
		if p.MatchString(input) {
			return true
		}
	}
	return false
}
