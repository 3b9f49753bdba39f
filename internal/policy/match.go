package policy

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// patternMeta are the characters that make a rule id a glob pattern rather
// than an exact match.
const patternMeta = "*?[{"

// IsPattern reports whether id is matched as a glob pattern.
func IsPattern(id string) bool {
	return strings.ContainsAny(id, patternMeta)
}

type compiledRule struct {
	Rule
	pattern glob.Glob // nil for exact-match rules
}

// Matcher is a compiled policy ready for rule-id lookups. Matchers are
// immutable and safe for concurrent use.
type Matcher struct {
	rules []compiledRule
	def   Action
}

// Compile validates p and precompiles its glob patterns. Compilation
// failures wrap ErrMalformed.
func (p Policy) Compile() (*Matcher, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	m := &Matcher{
		rules: make([]compiledRule, 0, len(p.Rules)),
		def:   p.DefaultAction(),
	}
	for i, r := range p.Rules {
		cr := compiledRule{Rule: r}
		if IsPattern(r.ID) {
			g, err := glob.Compile(r.ID)
			if err != nil {
				return nil, fmt.Errorf("%w: rule %d: bad pattern %q: %v", ErrMalformed, i+1, r.ID, err)
			}
			cr.pattern = g
		}
		m.rules = append(m.rules, cr)
	}
	return m, nil
}

// Match returns the first rule matching ruleID, in declaration order. The
// second result is false when no rule matched and the policy default
// applies.
func (m *Matcher) Match(ruleID string) (Rule, bool) {
	for _, cr := range m.rules {
		if cr.pattern != nil {
			if cr.pattern.Match(ruleID) {
				return cr.Rule, true
			}
			continue
		}
		if cr.ID == ruleID {
			return cr.Rule, true
		}
	}
	return Rule{Action: m.def}, false
}

// Action resolves ruleID to its gate action, falling back to the policy
// default.
func (m *Matcher) Action(ruleID string) Action {
	r, _ := m.Match(ruleID)
	return r.Action
}

// Default returns the action applied to findings no rule matches.
func (m *Matcher) Default() Action {
	return m.def
}

// Len returns the number of rules in the compiled policy.
func (m *Matcher) Len() int {
	return len(m.rules)
}
