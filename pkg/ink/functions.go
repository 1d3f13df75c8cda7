package ink

import "fmt"

// builtinTable holds every function name the evaluator recognises
// without a host binding (spec §4.2's LIST_* family plus SEED_RANDOM,
// spec SUPPLEMENTED FEATURES #5). Each is dispatched through govaluate
// alongside host-bound functions (eval.go's dispatch).
var builtinTable = map[string]builtinFunc{
	"LIST_COUNT":  biListCount,
	"LIST_MIN":    biListMin,
	"LIST_MAX":    biListMax,
	"LIST_RANDOM": biListRandom,
	"LIST_VALUE":  biListValue,
	"LIST_INVERT": biListInvert,
	"SEED_RANDOM": biSeedRandom,
}

func requireList(args []Value, i int) (*List, error) {
	if i >= len(args) || args[i].Kind != ListKind {
		return nil, fmt.Errorf("argument %d must be a List value", i)
	}
	l := args[i].List
	if l == nil {
		l = NewList()
	}
	return l, nil
}

func biListCount(e *Evaluator, args []Value) (Value, error) {
	l, err := requireList(args, 0)
	if err != nil {
		return Undef, err
	}
	return NumberValue(float64(l.Count())), nil
}

func biListMin(e *Evaluator, args []Value) (Value, error) {
	l, err := requireList(args, 0)
	if err != nil {
		return Undef, err
	}
	return ListValueOf(l.Min(e.Story.Lists)), nil
}

func biListMax(e *Evaluator, args []Value) (Value, error) {
	l, err := requireList(args, 0)
	if err != nil {
		return Undef, err
	}
	return ListValueOf(l.Max(e.Story.Lists)), nil
}

func biListRandom(e *Evaluator, args []Value) (Value, error) {
	l, err := requireList(args, 0)
	if err != nil {
		return Undef, err
	}
	return ListValueOf(l.Random(e.RNG.Source())), nil
}

func biListValue(e *Evaluator, args []Value) (Value, error) {
	l, err := requireList(args, 0)
	if err != nil {
		return Undef, err
	}
	return NumberValue(float64(l.Value(e.Story.Lists))), nil
}

func biListInvert(e *Evaluator, args []Value) (Value, error) {
	l, err := requireList(args, 0)
	if err != nil {
		return Undef, err
	}
	return ListValueOf(l.Invert(e.Story.Lists)), nil
}

// biSeedRandom reseeds the session's injectable RNG (SUPPLEMENTED
// FEATURES #5), returning the previous seed so a script can save and
// later restore it.
func biSeedRandom(e *Evaluator, args []Value) (Value, error) {
	if len(args) != 1 || args[0].Kind != Number {
		return Undef, fmt.Errorf("SEED_RANDOM requires one numeric argument")
	}
	previous := e.RNG.Reseed(uint64(args[0].Num))
	return NumberValue(float64(previous)), nil
}
