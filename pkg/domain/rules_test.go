package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type noTier struct{}

func (noTier) Tier(string) string { return "" }

func staticRule(name string, sev Severity, err error) Rule {
	return RuleFunc{RuleName: name, Fn: func(context.Context, RuleView, []Change) (Result, error) {
		return Result{Violations: []Violation{{Rule: name, Severity: sev, Message: name + " failed", Err: err}}}, nil
	}}
}

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{})
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	if got := result.Blocking(); len(got) != 1 || got[0].Rule != "block" {
		t.Fatalf("blocking = %+v", got)
	}
}

func TestRulesEngineCheck(t *testing.T) {
	ctx := context.Background()
	engine := NewRulesEngine(staticRule("advice", SeverityWarn, nil))

	res, err := engine.Check(ctx, noTier{}, Change{After: NewRecord(RecordPet, "p1")})
	if err != nil {
		t.Fatalf("warnings must not fail the write: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected the warning to be reported, got %+v", res)
	}

	engine.Register(staticRule("limit", SeverityBlock, ErrCapacityReached))
	engine.Register(staticRule("name", SeverityBlock, ErrEmptyRequiredField))
	_, err = engine.Check(ctx, noTier{})
	var rv RuleViolationError
	if !errors.As(err, &rv) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if !errors.Is(err, ErrCapacityReached) || errors.Is(err, ErrEmptyRequiredField) {
		t.Fatalf("error should unwrap to the first blocking kind: %v", err)
	}
	if !IsLocal(err) || UserMessage(err) != "Your plan's limit has been reached." {
		t.Fatalf("rule errors classify like their kind: %q", UserMessage(err))
	}
	if msg := err.Error(); !strings.Contains(msg, "limit: limit failed") || !strings.Contains(msg, "name: name failed") {
		t.Fatalf("error text %q", msg)
	}
}

func TestRulesEnginePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	engine := NewRulesEngine(
		staticRule("advice", SeverityWarn, nil),
		RuleFunc{RuleName: "broken", Fn: func(context.Context, RuleView, []Change) (Result, error) { return Result{}, boom }},
	)
	if _, err := engine.Evaluate(context.Background(), noTier{}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected rule error, got %v", err)
	}
}
