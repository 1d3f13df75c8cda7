package ink

import "github.com/tale-forge/inkweave/internal/address"

// CurrentPath is the `{knot, stitch, label?}` of the most recent visit
// (spec §3.2): label is cleared whenever the path is stored, since it is
// transient positional information, not part of the scope identity.
type CurrentPath struct {
	Knot   string
	Stitch string
}

// Paragraph is one pending or emitted narrative unit (spec §3.2).
type Paragraph struct {
	Text string
	Tags []string
}

// PendingChoice is one entry of the pending choice menu (spec §3.2).
// Path records where to resume reading inside the choice's `node` once
// selected, encoded by encodeChain as "knot.stitch#i.j.k".
type PendingChoice struct {
	Title  string
	Text   string
	Divert string
	Path   string
	node   []Block
}

// State is the Runtime State (spec §3.2): everything that mutates over
// the life of a session, as distinct from the immutable Story.
type State struct {
	Temp      map[string]Value
	Variables map[string]Value
	Visits    address.Visits
	Seeds     map[string]uint64

	Current CurrentPath

	Paragraphs []Paragraph
	Output     []Paragraph
	Choices    []PendingChoice

	IsOver bool

	Version Version
}

// NewState returns a fresh Runtime State bound to story's declared
// initial variable/list values and version.
func NewState(story *Story) *State {
	s := &State{
		Temp:      map[string]Value{},
		Variables: map[string]Value{},
		Visits:    address.NewVisits(),
		Seeds:     map[string]uint64{},
		Version:   story.Version,
	}
	for name, v := range story.Variables {
		s.Variables[name] = v
	}
	return s
}

// ClearTemp empties the temp scope (spec invariant 4: "temp is cleared
// iff currentPath.knot or currentPath.stitch changes").
func (s *State) ClearTemp() {
	s.Temp = map[string]Value{}
}

// CrossedScope reports whether moving to (knot, stitch) changes the
// current knot or stitch, and so should clear temp (spec §4.4, §3.3
// invariant 4).
func (s *State) CrossedScope(knot, stitch string) bool {
	return s.Current.Knot != knot || s.Current.Stitch != stitch
}
