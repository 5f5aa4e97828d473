package expression

import (
	"testing"

	"go-petri-flow/internal/token"
)

func TestEvaluateGuardEmptyIsTrue(t *testing.T) {
	e := New()
	defer e.Close()
	ok, err := e.EvaluateGuard("", nil)
	if err != nil || !ok {
		t.Fatalf("empty guard should evaluate to true, got %v, err=%v", ok, err)
	}
}

func TestEvaluateGuardWithBinding(t *testing.T) {
	e := New()
	defer e.Close()
	ok, err := e.EvaluateGuard("x > 5", Binding{"x": 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected guard to be true for x=10")
	}
	ok, err = e.EvaluateGuard("x > 5", Binding{"x": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected guard to be false for x=1")
	}
}

func TestEvaluateGuardNonBooleanErrors(t *testing.T) {
	e := New()
	defer e.Close()
	if _, err := e.EvaluateGuard("1 + 1", nil); err == nil {
		t.Fatalf("expected error for a guard that doesn't evaluate to a boolean")
	}
}

func TestEvaluateArcSingleValue(t *testing.T) {
	e := New()
	defer e.Close()
	values, delay, err := e.EvaluateArc("x", Binding{"x": 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delay != 0 {
		t.Fatalf("expected no delay, got %d", delay)
	}
	if len(values) != 1 || values[0] != 5 {
		t.Fatalf("expected [5], got %v", values)
	}
}

func TestEvaluateArcWithDelaySuffix(t *testing.T) {
	e := New()
	defer e.Close()
	values, delay, err := e.EvaluateArc("x @+ 3", Binding{"x": 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delay != 3 {
		t.Fatalf("expected delay 3, got %d", delay)
	}
	if len(values) != 1 || values[0] != 5 {
		t.Fatalf("expected [5], got %v", values)
	}
}

func TestEvaluateArcNegativeDelayErrors(t *testing.T) {
	e := New()
	defer e.Close()
	if _, _, err := e.EvaluateArc("x @+ (0-1)", Binding{"x": 5}); err == nil {
		t.Fatalf("expected error for a negative delay")
	}
}

func TestSplitDelaySuffixIgnoresNestedAtPlus(t *testing.T) {
	valueExpr, delayExpr, hasDelay := splitDelaySuffix("tuple(x, \"a@+b\")")
	if hasDelay {
		t.Fatalf("an @+ inside a quoted string should not be treated as a delay suffix")
	}
	if valueExpr != "tuple(x, \"a@+b\")" || delayExpr != "" {
		t.Fatalf("unexpected split result: %q, %q", valueExpr, delayExpr)
	}
}

func TestSplitDelaySuffixTopLevel(t *testing.T) {
	valueExpr, delayExpr, hasDelay := splitDelaySuffix("x @+ y")
	if !hasDelay {
		t.Fatalf("expected a top-level @+ to be detected")
	}
	if valueExpr != "x" || delayExpr != "y" {
		t.Fatalf("unexpected split result: %q, %q", valueExpr, delayExpr)
	}
}

func TestEvaluateArcListResult(t *testing.T) {
	e := New()
	defer e.Close()
	values, _, err := e.EvaluateArc("{1, 2, 3}", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("expected 3 values from a Lua array literal, got %v", values)
	}
}

func TestEvaluateArcTupleYieldsSingleCompositeValue(t *testing.T) {
	e := New()
	defer e.Close()
	values, _, err := e.EvaluateArc("tuple(x, 'hello')", Binding{"x": 12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 1 {
		t.Fatalf("expected tuple(...) to collapse to a single composite value, got %d values: %v", len(values), values)
	}
	pair, ok := values[0].(token.ProductValue)
	if !ok {
		t.Fatalf("expected a token.ProductValue, got %T", values[0])
	}
	if len(pair) != 2 || pair[0] != 12 || pair[1] != "hello" {
		t.Fatalf("expected (12, 'hello'), got %v", pair)
	}
}

func TestEvaluateArcListLiteralStillSpreadsIntoSeveralValues(t *testing.T) {
	e := New()
	defer e.Close()
	values, _, err := e.EvaluateArc("{1, 2, 3}", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("a plain list literal must still spread into several values, got %v", values)
	}
	if _, ok := values[0].(token.ProductValue); ok {
		t.Fatalf("a list literal must not be mistaken for a tuple")
	}
}

func TestNewWithEnvironmentDefinesHelpers(t *testing.T) {
	e, err := NewWithEnvironment("function double(n) return n * 2 end")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer e.Close()
	values, _, err := e.EvaluateArc("double(x)", Binding{"x": 21})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 1 || values[0] != 42 {
		t.Fatalf("expected [42], got %v", values)
	}
}

func TestNewWithEnvironmentInvalidCodeErrors(t *testing.T) {
	if _, err := NewWithEnvironment("this is not lua {{{"); err == nil {
		t.Fatalf("expected error for invalid user environment code")
	}
}
