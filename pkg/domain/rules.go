package domain

import (
	"context"
	"strings"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock rejects the write.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows the write.
	SeverityWarn Severity = "warn"
)

// Change is a proposed record write. Before is the zero Record when the
// record is being created.
type Change struct {
	Before Record
	After  Record
}

// RuleView provides the read-only context a rule may need beyond the change.
type RuleView interface {
	// Tier returns the subscription name of a user, "" when none.
	Tier(userID string) string
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Field    string
	Kind     RecordKind
	RecordID string
	// Err is the error kind behind the violation, if any.
	Err error
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Blocking returns the blocking violations in evaluation order.
func (r Result) Blocking() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present. It
// unwraps to the error kind of the first blocking violation.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	blocking := e.Result.Blocking()
	if len(blocking) == 0 {
		return "write blocked by rules"
	}
	msgs := make([]string, 0, len(blocking))
	for _, v := range blocking {
		msgs = append(msgs, v.Rule+": "+v.Message)
	}
	return "write blocked by rules: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the first blocking violation's error kind.
func (e RuleViolationError) Unwrap() error {
	for _, v := range e.Result.Blocking() {
		if v.Err != nil {
			return v.Err
		}
	}
	return nil
}

// Rule is one check applied to proposed record writes.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RuleFunc adapts a function to Rule.
type RuleFunc struct {
	RuleName string
	Fn       func(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// Name implements Rule.
func (f RuleFunc) Name() string { return f.RuleName }

// Evaluate implements Rule.
func (f RuleFunc) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	return f.Fn(ctx, view, changes)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine(rules ...Rule) *RulesEngine {
	return &RulesEngine{rules: rules}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}

// Check evaluates changes and converts blocking violations into a
// RuleViolationError. Non-blocking violations are returned with a nil error.
func (e *RulesEngine) Check(ctx context.Context, view RuleView, changes ...Change) (Result, error) {
	res, err := e.Evaluate(ctx, view, changes)
	if err != nil {
		return Result{}, err
	}
	if res.HasBlocking() {
		return res, RuleViolationError{Result: res}
	}
	return res, nil
}
