package ink

// Version gates state migration (spec §3.1, §4.4 "State save/load"). It
// comes from the story's `CONST tree` declaration; absent, it defaults
// to the zero value below.
type Version struct {
	Engine string
	Tree   int
}

// Story is the immutable result of Compile (spec §3.1): the outer map of
// knot name to Knot, plus the side tables collected while parsing.
type Story struct {
	Knots     map[string]*Knot
	Includes  []IncludeDecl
	Constants map[string]Value
	Variables map[string]Value
	Lists     *Declarations
	Version   Version
}

// ImplicitName is the key both the Root and a Knot use for their
// top-level, unnamed scope (spec §3.1: "an implicit knot `_` holds
// top-level content" / "implicit stitch `_`").
const ImplicitName = "_"

// NewStory returns an empty Story with its implicit knot/stitch already
// present, ready for the parser to append to.
func NewStory() *Story {
	s := &Story{
		Knots:     map[string]*Knot{},
		Constants: map[string]Value{},
		Variables: map[string]Value{},
		Lists:     NewDeclarations(),
	}
	s.Knots[ImplicitName] = NewKnot()
	return s
}

// Knot is a named outer scope: a map of stitch name to Stitch, with an
// implicit stitch `_` for content before the first `= name =` header.
type Knot struct {
	Stitches map[string]*Stitch
}

func NewKnot() *Knot {
	k := &Knot{Stitches: map[string]*Stitch{}}
	k.Stitches[ImplicitName] = &Stitch{}
	return k
}

// Stitch is an ordered sequence of Block (spec §3.1).
type Stitch struct {
	Blocks []Block
}

// IncludeDecl records one `INCLUDE path` line (spec SUPPLEMENTED
// FEATURES #1): the parser records where it was written so a resolver
// error can point back at the including file.
type IncludeDecl struct {
	Path     string
	Position Position
}

// Lookup resolves a knot by name, returning (nil, false) when absent.
func (s *Story) Lookup(knot string) (*Knot, bool) {
	k, ok := s.Knots[knot]
	return k, ok
}

// Stitch resolves a stitch within a knot by name.
func (k *Knot) Stitch(name string) (*Stitch, bool) {
	st, ok := k.Stitches[name]
	return st, ok
}

// HasStitch reports whether name is a declared stitch of k (used by the
// address resolver's part2-is-stitch-or-label disambiguation, spec
// §4.4).
func (k *Knot) HasStitch(name string) bool {
	_, ok := k.Stitches[name]
	return ok
}

// ensureKnot returns the named knot, creating it (with its implicit
// stitch) if this is the first time the parser has seen it.
func (s *Story) ensureKnot(name string) *Knot {
	k, ok := s.Knots[name]
	if !ok {
		k = NewKnot()
		s.Knots[name] = k
	}
	return k
}

// ensureStitch returns the named stitch within k, creating it if new.
func (k *Knot) ensureStitch(name string) *Stitch {
	st, ok := k.Stitches[name]
	if !ok {
		st = &Stitch{}
		k.Stitches[name] = st
	}
	return st
}
