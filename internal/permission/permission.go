// Package permission evaluates an ordered role/command/channel rule set.
//
// Rules are first-match-wins in configured order. The default is DENY.
package permission

import (
	"fmt"
	"slices"
)

// Wildcard matches any role, command or channel.
const Wildcard = "*"

// Effect is the outcome a rule yields when it matches.
type Effect string

const (
	Allow Effect = "allow"
	Deny  Effect = "deny"
)

// Rule is one permission rule. Roles of ["*"] match any caller; an empty
// Channel is treated as the wildcard.
type Rule struct {
	Roles   []string `yaml:"roles" json:"roles"`
	Command string   `yaml:"command" json:"command"`
	Channel string   `yaml:"channel,omitempty" json:"channel,omitempty"`
	Effect  Effect   `yaml:"effect" json:"effect"`
}

// RuleError describes a malformed rule.
type RuleError struct {
	Index  int
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("permission rule %d: %s", e.Index+1, e.Reason)
}

// Decision is the full result of an evaluation.
// Rule is the index of the deciding rule, or -1 when the default applied.
type Decision struct {
	Allowed bool
	Rule    int
}

// Set is an immutable, ordered list of rules.
type Set struct {
	rules []Rule
}

// NewSet validates rules and stores them in the given order.
func NewSet(rules []Rule) (*Set, error) {
	stored := make([]Rule, len(rules))
	for i, r := range rules {
		switch {
		case len(r.Roles) == 0:
			return nil, &RuleError{Index: i, Reason: `no roles given (use "*" for any role)`}
		case r.Command == "":
			return nil, &RuleError{Index: i, Reason: `no command given (use "*" for any command)`}
		case r.Effect != Allow && r.Effect != Deny:
			return nil, &RuleError{Index: i, Reason: fmt.Sprintf("effect must be %q or %q, got %q", Allow, Deny, r.Effect)}
		}
		if r.Channel == "" {
			r.Channel = Wildcard
		}
		r.Roles = slices.Clone(r.Roles)
		stored[i] = r
	}
	return &Set{rules: stored}, nil
}

// Len returns the number of rules.
func (s *Set) Len() int { return len(s.rules) }

// Allows reports whether a caller holding roles may run command in channel.
func (s *Set) Allows(roles []string, command, channel string) bool {
	return s.Evaluate(roles, command, channel).Allowed
}

// Evaluate returns the decision of the first matching rule, or a default deny.
func (s *Set) Evaluate(roles []string, command, channel string) Decision {
	for i, r := range s.rules {
		if !matchesAny(r.Roles, roles) {
			continue
		}
		if !matches(r.Command, command) {
			continue
		}
		if !matches(r.Channel, channel) {
			continue
		}
		return Decision{Allowed: r.Effect == Allow, Rule: i}
	}
	return Decision{Allowed: false, Rule: -1}
}

func matches(pattern, value string) bool {
	return pattern == Wildcard || pattern == value
}

func matchesAny(ruleRoles, callerRoles []string) bool {
	for _, r := range ruleRoles {
		if r == Wildcard || slices.Contains(callerRoles, r) {
			return true
		}
	}
	return false
}
