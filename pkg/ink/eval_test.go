package ink

import "testing"

func newTestEvaluator() *Evaluator {
	story := NewStory()
	story.Lists = testDecls()
	story.Variables["x"] = NumberValue(2)
	story.Constants["pi"] = NumberValue(3)
	state := NewState(story)
	state.Variables["x"] = NumberValue(2)
	state.Variables["alive"] = ListValueOf(func() *List {
		l := singleItemList("colors", "green")
		l.Decls = story.Lists
		return l
	}())
	return NewEvaluator(story, state, NewRNG(1))
}

func mustEval(t *testing.T, e *Evaluator, src string) Value {
	t.Helper()
	v, err := e.Eval(src, Position{})
	if err != nil {
		t.Fatalf("Eval(%q): %v", src, err)
	}
	return v
}

func TestEvalArithmetic(t *testing.T) {
	e := newTestEvaluator()
	if got := mustEval(t, e, "x + 1"); got.Num != 3 {
		t.Fatalf("x + 1 = %v, want 3", got)
	}
	if got := mustEval(t, e, "(1 + 2) * 3"); got.Num != 9 {
		t.Fatalf("(1+2)*3 = %v, want 9", got)
	}
}

func TestEvalComparisonAndLogic(t *testing.T) {
	e := newTestEvaluator()
	if !mustEval(t, e, "x == 2").Truthy() {
		t.Fatalf("x == 2 should be true")
	}
	if !mustEval(t, e, "x == 2 && pi == 3").Truthy() {
		t.Fatalf("x == 2 && pi == 3 should be true")
	}
	if mustEval(t, e, "x == 2 && pi == 4").Truthy() {
		t.Fatalf("x == 2 && pi == 4 should be false")
	}
	if !mustEval(t, e, "x == 5 || pi == 3").Truthy() {
		t.Fatalf("x == 5 || pi == 3 should be true")
	}
}

func TestEvalHasAndHasnt(t *testing.T) {
	e := newTestEvaluator()
	if !mustEval(t, e, "alive has green").Truthy() {
		t.Fatalf("alive has green should be true")
	}
	if mustEval(t, e, "alive has red").Truthy() {
		t.Fatalf("alive has red should be false")
	}
	if !mustEval(t, e, "alive hasnt red").Truthy() {
		t.Fatalf("alive hasnt red should be true")
	}
}

func TestEvalPatternMatch(t *testing.T) {
	e := newTestEvaluator()
	if !mustEval(t, e, "alive ? green").Truthy() {
		t.Fatalf("alive ? green should be true")
	}
	if !mustEval(t, e, `"hello world" ? "world"`).Truthy() {
		t.Fatalf("substring pattern-match should be true")
	}
	if mustEval(t, e, `"hello world" !? "world"`).Truthy() {
		t.Fatalf("negated substring pattern-match should be false")
	}
}

func TestEvalListLiteralAndUnion(t *testing.T) {
	e := newTestEvaluator()
	v := mustEval(t, e, "(red, blue)")
	if v.Kind != ListKind || v.List.Count() != 2 {
		t.Fatalf("(red, blue) = %v", v)
	}
	union := mustEval(t, e, "(red, blue) + alive")
	if union.List.Count() != 3 {
		t.Fatalf("union count = %d, want 3", union.List.Count())
	}
}

func TestEvalListBuiltins(t *testing.T) {
	e := newTestEvaluator()
	if got := mustEval(t, e, "LIST_COUNT(alive)"); got.Num != 1 {
		t.Fatalf("LIST_COUNT(alive) = %v, want 1", got)
	}
	all := mustEval(t, e, "LIST_ALL(colors)")
	if all.List.Count() != 3 {
		t.Fatalf("LIST_ALL(colors) count = %d, want 3", all.List.Count())
	}
	rng := mustEval(t, e, "LIST_RANGE(colors, 1, 2)")
	if rng.List.Count() != 2 {
		t.Fatalf("LIST_RANGE(colors,1,2) count = %d, want 2", rng.List.Count())
	}
}

func TestEvalNthItem(t *testing.T) {
	e := newTestEvaluator()
	v := mustEval(t, e, "colors(2)")
	if v.Kind != ListKind || !v.List.Has(func() *List { return singleItemList("colors", "green") }()) {
		t.Fatalf("colors(2) = %v, want green", v)
	}
}

func TestEvalSeedRandom(t *testing.T) {
	e := newTestEvaluator()
	v := mustEval(t, e, "SEED_RANDOM(42)")
	if v.Kind != Number {
		t.Fatalf("SEED_RANDOM should return the previous seed as a number, got %v", v)
	}
}

func TestEvalHostFunction(t *testing.T) {
	e := newTestEvaluator()
	e.Bind("DOUBLE", func(args []Value) (Value, error) {
		return NumberValue(args[0].Num * 2), nil
	})
	if got := mustEval(t, e, "DOUBLE(21)"); got.Num != 42 {
		t.Fatalf("DOUBLE(21) = %v, want 42", got)
	}
}

func TestEvalUndefinedIdentifier(t *testing.T) {
	e := newTestEvaluator()
	v := mustEval(t, e, "never_declared_before")
	if v.Kind != Number {
		t.Fatalf("bare unresolved identifier should fall back to a visit count, got %v", v)
	}
	if v.Num != 0 {
		t.Fatalf("unvisited address should count 0, got %v", v.Num)
	}
}
