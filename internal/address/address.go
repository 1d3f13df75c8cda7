// Package address resolves and navigates the dotted knot.stitch.label
// addresses used throughout the story interpreter: divert targets, choice
// paths, and the nested visit-count table. It is adapted from the teacher
// repo's goutils/tree Cursor, which walks dotted paths through a YAML
// document; here the same node-stack shape walks a narrative address
// instead of a document tree.
package address

import (
	"fmt"
	"strings"
)

// Path is a 1-to-3 component address: knot, optional stitch, optional
// label. It is the in-memory counterpart of the dotted strings authors
// write after "->" or inside "(label)" references.
type Path struct {
	Nodes []string
}

// Parse splits a raw divert/address string into its dotted components.
// Unlike the teacher's Cursor, there is no bracket/index syntax in
// narrative addresses, so parsing is a plain split — kept as its own
// function (rather than inlined at call sites) so every caller agrees on
// how whitespace and empty components are handled.
func Parse(s string) (*Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, SyntaxError{Problem: "empty address"}
	}

	var nodes []string
	for _, part := range strings.Split(s, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, SyntaxError{Problem: fmt.Sprintf("empty component in %q", s)}
		}
		nodes = append(nodes, part)
	}
	if len(nodes) > 3 {
		return nil, SyntaxError{Problem: fmt.Sprintf("address %q has more than 3 components", s)}
	}
	return &Path{Nodes: nodes}, nil
}

// Copy returns an independent copy of the path.
func (p *Path) Copy() *Path {
	other := &Path{Nodes: make([]string, len(p.Nodes))}
	copy(other.Nodes, p.Nodes)
	return other
}

// String renders the path back to dotted form.
func (p *Path) String() string {
	return strings.Join(p.Nodes, ".")
}

// Depth is the number of components.
func (p *Path) Depth() int {
	return len(p.Nodes)
}

// Component returns the node at offset from the end (-1 is the last
// component), or "" if out of range — mirrors the teacher's Cursor.Component,
// used to pick out "the label part" or "the knot part" without a type switch
// on Depth() at every call site.
func (p *Path) Component(offset int) string {
	offset = len(p.Nodes) + offset
	if offset < 0 || offset >= len(p.Nodes) {
		return ""
	}
	return p.Nodes[offset]
}

// SyntaxError reports a malformed address string.
type SyntaxError struct {
	Problem string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("address syntax error: %s", e.Problem)
}

// NotFoundError reports a dotted path that does not resolve to any knot,
// stitch, or label in scope — the address.Error surfaced as
// ink.AddressError to callers of the public API.
type NotFoundError struct {
	Path []string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("`%s` could not be found as a knot, stitch, or label", strings.Join(e.Path, "."))
}

// Visits is the nested knot -> stitch -> label -> count table described in
// spec §3.2, plus "_root" counters at each scope. It is kept as a plain
// nested map (DESIGN NOTES §9: "a flat mapping... is equivalent and
// simpler to persist") rather than a cursor-addressed document, but reuses
// the dotted-path vocabulary for lookups so callers can ask "how many
// times has knot.stitch.label been visited" with the same Path they use
// for diverts.
type Visits map[string]map[string]map[string]int

// NewVisits returns an empty visit table.
func NewVisits() Visits {
	return Visits{}
}

const rootScope = "_root"

// BumpKnot increments the knot-level root counter and returns the new
// count.
func (v Visits) BumpKnot(knot string) int {
	return v.bump(knot, rootScope, rootScope)
}

// BumpStitch increments the stitch-level root counter.
func (v Visits) BumpStitch(knot, stitch string) int {
	return v.bump(knot, stitch, rootScope)
}

// BumpLabel increments a label's visit count.
func (v Visits) BumpLabel(knot, stitch, label string) int {
	return v.bump(knot, stitch, label)
}

func (v Visits) bump(knot, stitch, label string) int {
	ks, ok := v[knot]
	if !ok {
		ks = map[string]map[string]int{}
		v[knot] = ks
	}
	ls, ok := ks[stitch]
	if !ok {
		ls = map[string]int{}
		ks[stitch] = ls
	}
	ls[label]++
	return ls[label]
}

// Count returns the visit count for a fully qualified knot/stitch/label,
// 0 if never visited. An empty stitch or label means "the root counter at
// that scope".
func (v Visits) Count(knot, stitch, label string) int {
	if stitch == "" {
		stitch = rootScope
	}
	if label == "" {
		label = rootScope
	}
	ks, ok := v[knot]
	if !ok {
		return 0
	}
	ls, ok := ks[stitch]
	if !ok {
		return 0
	}
	return ls[label]
}

// ForPath returns the visit count addressed by a resolved Path of exactly
// 3 components (knot, stitch, label), as used by §4.3 rule 5's
// "visit-count-for-path-string" identifier fallback.
func (v Visits) ForPath(p *Path) int {
	knot, stitch, label := "", "", ""
	switch p.Depth() {
	case 1:
		knot = p.Nodes[0]
	case 2:
		knot, stitch = p.Nodes[0], p.Nodes[1]
	case 3:
		knot, stitch, label = p.Nodes[0], p.Nodes[1], p.Nodes[2]
	}
	return v.Count(knot, stitch, label)
}
