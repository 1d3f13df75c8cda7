package ink

import (
	"fmt"
	"strconv"
)

// Kind discriminates the result type of an evaluated expression (spec
// §4.3 "Result types"). Explicit tagged variants over duck-typing,
// per DESIGN NOTES §9.
type Kind int

const (
	// Undefined is the zero Kind: an unresolved identifier or a
	// reference to a variable that has never been assigned.
	Undefined Kind = iota
	Number
	Bool
	String
	ListKind
)

// Value is the dynamically-typed result of evaluating an expression.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	List *List
}

// Undef is the canonical undefined value.
var Undef = Value{Kind: Undefined}

func NumberValue(n float64) Value { return Value{Kind: Number, Num: n} }
func BoolValue(b bool) Value {
	if b {
		return Value{Kind: Bool, Num: 1}
	}
	return Value{Kind: Bool, Num: 0}
}
func StringValue(s string) Value  { return Value{Kind: String, Str: s} }
func ListValueOf(l *List) Value   { return Value{Kind: ListKind, List: l} }

// Truthy returns whether the value would be used as "true" in `if`
// conditions: booleans by their value, numbers by non-zero, strings by
// non-empty, lists by non-empty, undefined is always false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case Bool, Number:
		return v.Num != 0
	case String:
		return v.Str != ""
	case ListKind:
		return v.List != nil && !v.List.Empty()
	default:
		return false
	}
}

// Render returns the narrative text form of the value, used both for
// inline {expr} expansion and LIST string rendering. Booleans coerce to
// 0/1 in narrative text per spec §4.3; undefined becomes "".
func (v Value) Render() string {
	switch v.Kind {
	case Undefined:
		return ""
	case Bool:
		if v.Num != 0 {
			return "1"
		}
		return "0"
	case Number:
		return formatNumber(v.Num)
	case String:
		return v.Str
	case ListKind:
		return v.List.String()
	default:
		return ""
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// ToInterface converts a Value to the plain interface{} shape govaluate
// and the yaml.v3 snapshot codec expect: float64, bool, string, *List, or
// nil for Undefined.
func (v Value) ToInterface() interface{} {
	switch v.Kind {
	case Undefined:
		return nil
	case Bool:
		return v.Num != 0
	case Number:
		return v.Num
	case String:
		return v.Str
	case ListKind:
		return v.List
	default:
		return nil
	}
}

// FromInterface wraps a plain Go value (as produced by govaluate, or read
// back from a YAML snapshot) into a Value.
func FromInterface(o interface{}) Value {
	switch t := o.(type) {
	case nil:
		return Undef
	case bool:
		return BoolValue(t)
	case float64:
		return NumberValue(t)
	case int:
		return NumberValue(float64(t))
	case string:
		return StringValue(t)
	case *List:
		return ListValueOf(t)
	case List:
		return ListValueOf(&t)
	default:
		return StringValue(fmt.Sprintf("%v", t))
	}
}

// Equal implements spec §4.2 equality: for lists, same set contents
// across all list-names; otherwise plain value equality after numeric
// coercion.
func (v Value) Equal(other Value) bool {
	if v.Kind == ListKind || other.Kind == ListKind {
		if v.Kind != ListKind || other.Kind != ListKind {
			return false
		}
		return v.List.Equal(other.List)
	}
	if v.Kind == Undefined || other.Kind == Undefined {
		return v.Kind == other.Kind
	}
	return v.ToInterface() == other.ToInterface() || v.Render() == other.Render()
}
