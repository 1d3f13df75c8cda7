package ink

import (
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/tale-forge/inkweave/internal/address"
)

// GoFunc is a host function bound via Session.Bind (spec §6.4): plain
// scalars in, a scalar or List value out.
type GoFunc func(args []Value) (Value, error)

// Evaluator evaluates expression strings against a Story's
// constants/lists and a State's temp/variables/visits (spec §4.3). It
// owns the govaluate machinery used to run builtin and host function
// calls and plain arithmetic/comparison over non-List operands — the
// "sandboxed, dynamically-typed expression language" spec §4.3 asks for
// — while `has`/`hasnt`/pattern-match/list-literal syntax and any
// operation touching a List value is resolved directly against C2
// (pkg/ink's List type), since govaluate has no native notion of a
// multi-typed enum set.
type Evaluator struct {
	Story     *Story
	State     *State
	Functions map[string]GoFunc
	RNG       RNG
}

// NewEvaluator returns an Evaluator bound to story and state.
func NewEvaluator(story *Story, state *State, rng RNG) *Evaluator {
	return &Evaluator{Story: story, State: state, Functions: map[string]GoFunc{}, RNG: rng}
}

// Bind registers a host function (spec §6.4, C5's `bind`).
func (e *Evaluator) Bind(name string, fn GoFunc) {
	e.Functions[name] = fn
}

// Eval parses and evaluates src (spec §4.3 rule 7).
func (e *Evaluator) Eval(src string, pos Position) (Value, error) {
	node, err := parseExpr(src)
	if err != nil {
		return Undef, &ParseError{Message: err.Error(), Position: pos, Source: src}
	}
	v, err := e.evalNode(node)
	if err != nil {
		return Undef, &EvaluationError{Message: err.Error(), Position: pos, Source: src}
	}
	return v, nil
}

// Truthy evaluates src for use as a condition (spec §4.4 "Condition"),
// substituting false for any EvaluationError (spec §7: "propagate in
// conditions — a failing condition evaluates to false").
func (e *Evaluator) Truthy(src string, pos Position) bool {
	v, err := e.Eval(src, pos)
	if err != nil {
		return false
	}
	return v.Truthy()
}

// Render evaluates src for `{expr}` inline expansion (spec §4.3),
// substituting "" on evaluation failure (spec §7).
func (e *Evaluator) Render(src string, pos Position) string {
	v, err := e.Eval(src, pos)
	if err != nil {
		return ""
	}
	return v.Render()
}

func (e *Evaluator) evalNode(n *exprNode) (Value, error) {
	switch n.kind {
	case exprNumber:
		return NumberValue(n.num), nil
	case exprString:
		return StringValue(n.str), nil
	case exprBool:
		return BoolValue(n.b), nil
	case exprNil:
		return Undef, nil
	case exprIdent:
		return e.resolveIdentifier(n.name), nil
	case exprListLit:
		return e.evalListLiteral(n.items)
	case exprUnary:
		return e.evalUnary(n)
	case exprBinary:
		return e.evalBinary(n)
	case exprHas:
		return e.evalHas(n)
	case exprPatternMatch:
		return e.evalPatternMatch(n)
	case exprCall:
		return e.evalCall(n)
	default:
		return Undef, fmt.Errorf("unhandled expression node")
	}
}

// resolveIdentifier implements spec §4.3 rule 5's lookup order: temp →
// variables → constants → list-value-with-that-name → visit-count for
// the identifier read as a dotted path.
func (e *Evaluator) resolveIdentifier(name string) Value {
	if v, ok := e.State.Temp[name]; ok {
		return v
	}
	if v, ok := e.State.Variables[name]; ok {
		return v
	}
	if v, ok := e.Story.Constants[name]; ok {
		return v
	}
	if v, ok := e.listValueFor(name); ok {
		return v
	}
	if p, err := address.Parse(name); err == nil {
		return NumberValue(float64(e.State.Visits.ForPath(p)))
	}
	return Undef
}

// listValueFor resolves a bare or dotted name against the LIST
// declarations: "colors.green" names an item explicitly; a bare
// "green" is resolved by searching every declaration (spec §4.2
// "Ambiguous single-name references").
func (e *Evaluator) listValueFor(name string) (Value, bool) {
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		listName, item := name[:dot], name[dot+1:]
		if decl := e.Story.Lists.Lists[listName]; decl != nil && decl.Ordinal(item) > 0 {
			l := singleItemList(listName, item)
			l.Decls = e.Story.Lists
			return ListValueOf(l), true
		}
		return Undef, false
	}
	if decl, ok := e.Story.Lists.FindItem(name); ok {
		l := singleItemList(decl.Name, name)
		l.Decls = e.Story.Lists
		return ListValueOf(l), true
	}
	return Undef, false
}

// evalListLiteral implements rule 4: `(a, b.c, …)` → List value, the
// union of each named item.
func (e *Evaluator) evalListLiteral(items []string) (Value, error) {
	result := NewList()
	result.Decls = e.Story.Lists
	for _, name := range items {
		v, ok := e.listValueFor(name)
		if !ok {
			return Undef, fmt.Errorf("%q is not a known list item", name)
		}
		result = result.Union(v.List)
	}
	return ListValueOf(result), nil
}

func (e *Evaluator) evalUnary(n *exprNode) (Value, error) {
	x, err := e.evalNode(n.x)
	if err != nil {
		return Undef, err
	}
	switch n.op {
	case "!":
		return BoolValue(!x.Truthy()), nil
	case "-":
		return NumberValue(-x.Num), nil
	}
	return Undef, fmt.Errorf("unknown unary operator %q", n.op)
}

func (e *Evaluator) evalHas(n *exprNode) (Value, error) {
	l, err := e.evalNode(n.l)
	if err != nil {
		return Undef, err
	}
	r, err := e.evalNode(n.r)
	if err != nil {
		return Undef, err
	}
	if l.Kind != ListKind || r.Kind != ListKind {
		return Undef, fmt.Errorf("has/hasnt requires List operands")
	}
	result := l.List.Has(r.List)
	if n.negate {
		result = !result
	}
	return BoolValue(result), nil
}

// evalPatternMatch implements rule 6: `lhs ? rhs` is `rhs ⊆ lhs` when
// lhs is a List value, otherwise substring containment.
func (e *Evaluator) evalPatternMatch(n *exprNode) (Value, error) {
	l, err := e.evalNode(n.l)
	if err != nil {
		return Undef, err
	}
	r, err := e.evalNode(n.r)
	if err != nil {
		return Undef, err
	}
	var result bool
	if l.Kind == ListKind && r.Kind == ListKind {
		result = l.List.Has(r.List)
	} else {
		result = strings.Contains(l.Render(), r.Render())
	}
	if n.negate {
		result = !result
	}
	return BoolValue(result), nil
}

func (e *Evaluator) evalBinary(n *exprNode) (Value, error) {
	l, err := e.evalNode(n.l)
	if err != nil {
		return Undef, err
	}

	// Short-circuit logical operators.
	if n.op == "&&" {
		if !l.Truthy() {
			return BoolValue(false), nil
		}
		r, err := e.evalNode(n.r)
		if err != nil {
			return Undef, err
		}
		return BoolValue(r.Truthy()), nil
	}
	if n.op == "||" {
		if l.Truthy() {
			return BoolValue(true), nil
		}
		r, err := e.evalNode(n.r)
		if err != nil {
			return Undef, err
		}
		return BoolValue(r.Truthy()), nil
	}

	r, err := e.evalNode(n.r)
	if err != nil {
		return Undef, err
	}

	if l.Kind == ListKind || r.Kind == ListKind {
		return e.evalListBinary(n.op, l, r)
	}

	switch n.op {
	case "==":
		return BoolValue(l.Equal(r)), nil
	case "!=":
		return BoolValue(!l.Equal(r)), nil
	}

	// Arithmetic and numeric comparison: delegate to govaluate, the
	// sandboxed evaluator spec §4.3 calls for, rather than hand-rolling
	// a second numeric core.
	return e.evalGovaluate(n.op, l, r)
}

func (e *Evaluator) evalListBinary(op string, l, r Value) (Value, error) {
	ll := l.List
	if ll == nil {
		ll = NewList()
	}
	rl := r.List
	if rl == nil {
		rl = NewList()
	}
	switch op {
	case "+":
		return ListValueOf(ll.Union(rl)), nil
	case "-":
		return ListValueOf(ll.Difference(rl)), nil
	case "==":
		return BoolValue(ll.Equal(rl)), nil
	case "!=":
		return BoolValue(!ll.Equal(rl)), nil
	case "<", "<=", ">", ">=":
		return BoolValue(ll.Compare(op, rl, e.Story.Lists)), nil
	}
	return Undef, fmt.Errorf("operator %q is not defined for List values", op)
}

// evalGovaluate runs a two-operand arithmetic/comparison expression
// through govaluate, the same machinery evalCall uses for function
// dispatch.
func (e *Evaluator) evalGovaluate(op string, l, r Value) (Value, error) {
	expr, err := govaluate.NewEvaluableExpression(fmt.Sprintf("p0 %s p1", op))
	if err != nil {
		return Undef, err
	}
	result, err := expr.Evaluate(map[string]interface{}{
		"p0": l.ToInterface(),
		"p1": r.ToInterface(),
	})
	if err != nil {
		return Undef, err
	}
	return FromInterface(result), nil
}

// evalCall implements rule 3: function calls. If name is a declared
// list and the sole argument is a number N, it yields the Nth item
// (spec §4.3 rule 3); LIST_ALL/LIST_RANGE take their list operand by
// bare name since they refer to the declaration itself, not a variable.
// Everything else dispatches through govaluate's function mechanism —
// builtins and host-bound functions alike — so every call in a script
// runs through the same sandboxed machinery.
func (e *Evaluator) evalCall(n *exprNode) (Value, error) {
	if decl := e.Story.Lists.Lists[n.name]; decl != nil && len(n.args) == 1 {
		if argVal, err := e.evalNode(n.args[0]); err == nil && argVal.Kind == Number {
			return nthItemValue(e.Story.Lists, n.name, int(argVal.Num))
		}
	}

	if n.name == "LIST_ALL" || n.name == "LIST_RANGE" {
		return e.evalListNamedCall(n)
	}

	args := make([]Value, len(n.args))
	for i, a := range n.args {
		v, err := e.evalNode(a)
		if err != nil {
			return Undef, err
		}
		args[i] = v
	}
	return e.dispatch(n.name, args)
}

func nthItemValue(decls *Declarations, name string, n int) (Value, error) {
	l, err := NthItem(decls, name, n)
	if err != nil {
		return Undef, err
	}
	return ListValueOf(l), nil
}

func (e *Evaluator) evalListNamedCall(n *exprNode) (Value, error) {
	if len(n.args) == 0 || n.args[0].kind != exprIdent {
		return Undef, fmt.Errorf("%s requires a list name as its first argument", n.name)
	}
	listName := n.args[0].name
	switch n.name {
	case "LIST_ALL":
		return ListValueOf(ListAll(e.Story.Lists, listName)), nil
	case "LIST_RANGE":
		if len(n.args) != 3 {
			return Undef, fmt.Errorf("LIST_RANGE requires exactly 3 arguments")
		}
		minV, err := e.evalNode(n.args[1])
		if err != nil {
			return Undef, err
		}
		maxV, err := e.evalNode(n.args[2])
		if err != nil {
			return Undef, err
		}
		base := ListAll(e.Story.Lists, listName)
		return ListValueOf(ListRange(e.Story.Lists, base, int(minV.Num), int(maxV.Num))), nil
	}
	return Undef, fmt.Errorf("unreachable")
}

// dispatch evaluates name(args...) through govaluate's function
// mechanism: builtins and host-bound functions are merged into one
// function table per call (host bindings can change between
// evaluations via Session.Bind), each wrapped to translate between
// govaluate's interface{} calling convention and ink.Value.
func (e *Evaluator) dispatch(name string, args []Value) (Value, error) {
	funcs := make(map[string]govaluate.ExpressionFunction, len(builtinTable)+len(e.Functions))
	for fname, fn := range builtinTable {
		funcs[fname] = wrapBuiltin(e, fn)
	}
	for fname, fn := range e.Functions {
		funcs[fname] = wrapHost(fn)
	}
	if _, ok := funcs[name]; !ok {
		return Undef, fmt.Errorf("%q is not a declared function", name)
	}

	params := make(map[string]interface{}, len(args))
	callArgs := make([]string, len(args))
	for i, a := range args {
		key := fmt.Sprintf("p%d", i)
		params[key] = a.ToInterface()
		callArgs[i] = key
	}
	exprText := fmt.Sprintf("%s(%s)", name, strings.Join(callArgs, ","))

	expr, err := govaluate.NewEvaluableExpressionWithFunctions(exprText, funcs)
	if err != nil {
		return Undef, err
	}
	result, err := expr.Evaluate(params)
	if err != nil {
		return Undef, err
	}
	return FromInterface(result), nil
}

// builtinFunc is a builtin implementation operating on ink.Value;
// wrapBuiltin adapts it to govaluate.ExpressionFunction's interface{}
// calling convention.
type builtinFunc func(e *Evaluator, args []Value) (Value, error)

func wrapBuiltin(e *Evaluator, fn builtinFunc) govaluate.ExpressionFunction {
	return func(rawArgs ...interface{}) (interface{}, error) {
		args := make([]Value, len(rawArgs))
		for i, a := range rawArgs {
			args[i] = FromInterface(a)
		}
		v, err := fn(e, args)
		if err != nil {
			return nil, err
		}
		return v.ToInterface(), nil
	}
}

func wrapHost(fn GoFunc) govaluate.ExpressionFunction {
	return func(rawArgs ...interface{}) (interface{}, error) {
		args := make([]Value, len(rawArgs))
		for i, a := range rawArgs {
			args[i] = FromInterface(a)
		}
		v, err := fn(args)
		if err != nil {
			return nil, err
		}
		return v.ToInterface(), nil
	}
}
