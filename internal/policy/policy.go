// Package policy defines the gate policy model: an ordered list of rules
// binding scanner rule ids (or glob patterns) to actions.
package policy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed reports a policy that cannot be evaluated: an unrecognized
// action, an empty rule id, or an unparseable pattern. Callers can test for
// it with errors.Is.
var ErrMalformed = errors.New("malformed policy")

// Action is the gate decision a rule assigns to matching findings.
type Action string

const (
	// ActionFail blocks the gate.
	ActionFail Action = "FAIL"
	// ActionWarn surfaces the finding without blocking.
	ActionWarn Action = "WARN"
	// ActionIgnore drops the finding from the verdict.
	ActionIgnore Action = "IGNORE"
)

// Valid reports whether a is one of the recognized actions.
func (a Action) Valid() bool {
	switch a {
	case ActionFail, ActionWarn, ActionIgnore:
		return true
	}
	return false
}

// ParseAction normalizes s to an Action, or fails with ErrMalformed.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: unknown action %q", ErrMalformed, s)
	}
	return a, nil
}

// Rule binds one rule id to an action. ID is matched against finding rule
// ids: exactly when it is a plain string, as a glob pattern when it contains
// any of the metacharacters * ? [ {.
type Rule struct {
	ID     string `json:"id"`
	Action Action `json:"action"`
	Note   string `json:"note,omitempty"`
}

// Policy is an ordered rule list. The first rule whose ID matches a finding
// wins; findings matching no rule take Default. A Policy is loaded once per
// run and read-only afterwards.
type Policy struct {
	Name    string `json:"name,omitempty"`
	Default Action `json:"default,omitempty"`
	Rules   []Rule `json:"rules"`

	// Source records the file the policy came from, for logs and reports.
	Source string `json:"-"`
}

// DefaultAction returns the action for findings no rule matches. The zero
// value defaults to IGNORE: a finding nobody has triaged yet must not block
// a deploy, it surfaces through reports instead.
func (p Policy) DefaultAction() Action {
	if p.Default == "" {
		return ActionIgnore
	}
	return p.Default
}

// Validate checks every rule id and action, and the default action if set.
func (p Policy) Validate() error {
	if p.Default != "" && !p.Default.Valid() {
		return fmt.Errorf("%w: unknown default action %q", ErrMalformed, p.Default)
	}
	for i, r := range p.Rules {
		if r.ID == "" {
			return fmt.Errorf("%w: rule %d: empty id", ErrMalformed, i+1)
		}
		if !r.Action.Valid() {
			return fmt.Errorf("%w: rule %d (%s): unknown action %q", ErrMalformed, i+1, r.ID, r.Action)
		}
	}
	return nil
}
