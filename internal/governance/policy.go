package governance

import (
	"context"
	"fmt"
	"regexp"
	"sync"
)

// Effect is the verdict on an invocation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes one action invocation of a task.
type Request struct {
	Action string
	// Arguments is the JSON encoding of the invocation parameters.
	Arguments string
	TaskID    string
	Owner     string
}

type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine decides whether an invocation may run.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DestructiveCommands are refused in the arguments of actions that reach the
// host or the network.
var DestructiveCommands = []string{`rm\s+-rf`, `mkfs`, `shutdown`, `reboot`}

// Rule denies invocations of Action (every action when empty) whose encoded
// arguments match Pattern (any arguments when nil).
type Rule struct {
	Action  string
	Pattern *regexp.Regexp
}

func (r Rule) matches(req Request) bool {
	if r.Action != "" && r.Action != req.Action {
		return false
	}
	return r.Pattern == nil || r.Pattern.MatchString(req.Arguments)
}

func (r Rule) reason() string {
	switch {
	case r.Pattern == nil:
		return fmt.Sprintf("action %q is disabled", r.Action)
	case r.Action == "":
		return fmt.Sprintf("arguments match restricted pattern %s", r.Pattern)
	default:
		return fmt.Sprintf("%s arguments match restricted pattern %s", r.Action, r.Pattern)
	}
}

// RuleSet is a deny-list evaluated in insertion order; the first matching
// rule wins and anything unmatched is allowed. Safe for concurrent use.
type RuleSet struct {
	mu    sync.RWMutex
	rules []Rule
}

func NewRuleSet() *RuleSet {
	return &RuleSet{}
}

// DefaultRuleSet refuses DestructiveCommands for each of the named actions.
func DefaultRuleSet(hostActions ...string) *RuleSet {
	rs := NewRuleSet()
	for _, name := range hostActions {
		for _, pattern := range DestructiveCommands {
			_ = rs.DenyArgumentsFor(name, pattern)
		}
	}
	return rs
}

// DenyAction disables an action entirely.
func (rs *RuleSet) DenyAction(name string) {
	rs.add(Rule{Action: name})
}

// DenyArgumentsFor refuses invocations of action whose arguments match
// pattern. An empty action applies the pattern to every action.
func (rs *RuleSet) DenyArgumentsFor(action, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compile pattern for %q: %w", action, err)
	}
	rs.add(Rule{Action: action, Pattern: re})
	return nil
}

// Rules returns a copy of the rules in evaluation order.
func (rs *RuleSet) Rules() []Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return append([]Rule(nil), rs.rules...)
}

func (rs *RuleSet) add(r Rule) {
	rs.mu.Lock()
	rs.rules = append(rs.rules, r)
	rs.mu.Unlock()
}

func (rs *RuleSet) Evaluate(ctx context.Context, req Request) (Result, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	for _, r := range rs.rules {
		if r.matches(req) {
			return Result{Effect: EffectDeny, Reason: r.reason()}, nil
		}
	}
	return Result{Effect: EffectAllow, Reason: "no rule matched"}, nil
}
