package ink

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

// ListDecl is one `LIST name = a, (b), c` declaration: the declaration
// order fixes each item's raw ordinal (spec §4.2), and parenthesised
// items are initially active.
type ListDecl struct {
	Name          string
	Items         []string       // declaration order
	InitialActive map[string]bool
}

// Ordinal returns item's 1-based position in the declaration, or 0 if it
// is not a member of this list.
func (d *ListDecl) Ordinal(item string) int {
	for i, it := range d.Items {
		if it == item {
			return i + 1
		}
	}
	return 0
}

// Declarations is the Story Model's LIST table (spec §3.1), and doubles
// as the lookup table for ambiguous bare item references (spec §4.2:
// "Ambiguous single-name references... resolve by searching all LIST
// declarations").
type Declarations struct {
	Lists map[string]*ListDecl
}

func NewDeclarations() *Declarations {
	return &Declarations{Lists: map[string]*ListDecl{}}
}

// FindItem searches every declared list for an item named name, returning
// the owning declaration. Used when an author writes a bare item name
// like "green" rather than "colors.green".
func (d *Declarations) FindItem(name string) (*ListDecl, bool) {
	for _, decl := range d.Lists {
		if decl.Ordinal(name) > 0 {
			return decl, true
		}
	}
	return nil, false
}

// Initial returns the List value a `VAR` backed by this LIST starts with:
// every item marked `(on)` in the declaration, active.
func (d *ListDecl) Initial() *List {
	l := NewList()
	set := map[string]bool{}
	for _, item := range d.Items {
		if d.InitialActive[item] {
			set[item] = true
		}
	}
	if len(set) > 0 {
		l.Sets[d.Name] = set
	}
	return l
}

// List is a List value: a mapping from list-name to the set of its
// enabled items (spec §4.2's "multi-typed set"). A zero List is empty.
// Decls is an optional back-reference to the declarations the list's
// items were resolved against, carried along so String() can render in
// declaration order instead of falling back to alphabetical; it is not
// part of the value's identity (Equal/Has/etc. ignore it).
type List struct {
	Sets  map[string]map[string]bool
	Decls *Declarations
}

func NewList() *List {
	return &List{Sets: map[string]map[string]bool{}}
}

func singleItemList(listName, item string) *List {
	l := NewList()
	l.Sets[listName] = map[string]bool{item: true}
	return l
}

// Empty reports whether the list has no active items in any list-name.
func (l *List) Empty() bool {
	if l == nil {
		return true
	}
	for _, set := range l.Sets {
		if len(set) > 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (l *List) Clone() *List {
	other := NewList()
	if l == nil {
		return other
	}
	other.Decls = l.Decls
	for name, set := range l.Sets {
		clone := make(map[string]bool, len(set))
		for k, v := range set {
			clone[k] = v
		}
		other.Sets[name] = clone
	}
	return other
}

// Has implements `a has b`: every item active in b is also active in a.
func (l *List) Has(other *List) bool {
	for name, set := range other.Sets {
		mine, ok := l.Sets[name]
		for item, active := range set {
			if !active {
				continue
			}
			if !ok || !mine[item] {
				return false
			}
		}
	}
	return true
}

// Union implements `+`.
func (l *List) Union(other *List) *List {
	result := l.Clone()
	for name, set := range other.Sets {
		mine, ok := result.Sets[name]
		if !ok {
			mine = map[string]bool{}
			result.Sets[name] = mine
		}
		for item, active := range set {
			if active {
				mine[item] = true
			}
		}
	}
	return result
}

// Difference implements `-`.
func (l *List) Difference(other *List) *List {
	result := l.Clone()
	for name, set := range other.Sets {
		mine, ok := result.Sets[name]
		if !ok {
			continue
		}
		for item, active := range set {
			if active {
				delete(mine, item)
			}
		}
	}
	return result
}

// Intersect implements `∩`.
func (l *List) Intersect(other *List) *List {
	result := NewList()
	for name, set := range l.Sets {
		theirs, ok := other.Sets[name]
		if !ok {
			continue
		}
		out := map[string]bool{}
		for item := range set {
			if theirs[item] {
				out[item] = true
			}
		}
		if len(out) > 0 {
			result.Sets[name] = out
		}
	}
	return result
}

// Equal implements spec §4.2 list equality: identical set contents
// across all list-names.
func (l *List) Equal(other *List) bool {
	if l == nil {
		l = NewList()
	}
	if other == nil {
		other = NewList()
	}
	names := map[string]bool{}
	for n := range l.Sets {
		names[n] = true
	}
	for n := range other.Sets {
		names[n] = true
	}
	for name := range names {
		a := l.Sets[name]
		b := other.Sets[name]
		if len(activeItems(a)) != len(activeItems(b)) {
			return false
		}
		for item, active := range a {
			if active && !b[item] {
				return false
			}
		}
	}
	return true
}

func activeItems(set map[string]bool) []string {
	var out []string
	for item, active := range set {
		if active {
			out = append(out, item)
		}
	}
	return out
}

// minMaxOrdinal returns the min and max raw ordinal across every active
// item in the list, using decls to look up each item's declaration
// order. ok is false for an empty list.
func (l *List) minMaxOrdinal(decls *Declarations) (min, max int, ok bool) {
	first := true
	for name, set := range l.Sets {
		decl := decls.Lists[name]
		if decl == nil {
			continue
		}
		for item, active := range set {
			if !active {
				continue
			}
			ord := decl.Ordinal(item)
			if first {
				min, max, first = ord, ord, false
				continue
			}
			if ord < min {
				min = ord
			}
			if ord > max {
				max = ord
			}
		}
	}
	return min, max, !first
}

// Compare implements spec §4.2 ordering: "compare min or max raw ordinal
// indices as documented per operator (min<min, max<min, max<max,
// min>max respectively)".
func (l *List) Compare(op string, other *List, decls *Declarations) bool {
	lMin, lMax, lok := l.minMaxOrdinal(decls)
	rMin, rMax, rok := other.minMaxOrdinal(decls)
	if !lok || !rok {
		return false
	}
	switch op {
	case "<":
		return lMin < rMin
	case "<=":
		return lMax < rMin
	case ">":
		return lMax > rMax
	case ">=":
		return lMin > rMax
	}
	return false
}

// Count is LIST_COUNT: the number of active items across all list-names.
func (l *List) Count() int {
	n := 0
	for _, set := range l.Sets {
		n += len(activeItems(set))
	}
	return n
}

// singleItem returns the sole active item, for LIST_VALUE ("raw ordinal
// of a single-element list").
func (l *List) singleItem() (listName, item string, ok bool) {
	count := 0
	for name, set := range l.Sets {
		for it, active := range set {
			if active {
				listName, item = name, it
				count++
			}
		}
	}
	return listName, item, count == 1
}

// Value is LIST_VALUE: the raw ordinal of a single-element list, or 0.
func (l *List) Value(decls *Declarations) int {
	name, item, ok := l.singleItem()
	if !ok {
		return 0
	}
	decl := decls.Lists[name]
	if decl == nil {
		return 0
	}
	return decl.Ordinal(item)
}

// Min returns a singleton List holding the lowest-ordinal active item.
func (l *List) Min(decls *Declarations) *List {
	return l.extreme(decls, false)
}

// Max returns a singleton List holding the highest-ordinal active item.
func (l *List) Max(decls *Declarations) *List {
	return l.extreme(decls, true)
}

func (l *List) extreme(decls *Declarations, wantMax bool) *List {
	bestName, bestItem := "", ""
	bestOrd := 0
	found := false
	for name, set := range l.Sets {
		decl := decls.Lists[name]
		if decl == nil {
			continue
		}
		for item, active := range set {
			if !active {
				continue
			}
			ord := decl.Ordinal(item)
			if !found || (wantMax && ord > bestOrd) || (!wantMax && ord < bestOrd) {
				bestName, bestItem, bestOrd, found = name, item, ord, true
			}
		}
	}
	if !found {
		return NewList()
	}
	result := singleItemList(bestName, bestItem)
	result.Decls = decls
	return result
}

// Random is LIST_RANDOM: a uniformly chosen active item, as a singleton
// list. rng is the session's injectable source (DESIGN NOTES §9).
func (l *List) Random(rng *rand.Rand) *List {
	type pair struct{ name, item string }
	var all []pair
	for name, set := range l.Sets {
		for item, active := range set {
			if active {
				all = append(all, pair{name, item})
			}
		}
	}
	if len(all) == 0 {
		return NewList()
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].name != all[j].name {
			return all[i].name < all[j].name
		}
		return all[i].item < all[j].item
	})
	pick := all[rng.IntN(len(all))]
	result := singleItemList(pick.name, pick.item)
	result.Decls = l.Decls
	return result
}

// ListAll is LIST_ALL: the full declared set for list name listName.
func ListAll(decls *Declarations, listName string) *List {
	decl := decls.Lists[listName]
	if decl == nil {
		return NewList()
	}
	set := map[string]bool{}
	for _, item := range decl.Items {
		set[item] = true
	}
	l := NewList()
	if len(set) > 0 {
		l.Sets[listName] = set
	}
	l.Decls = decls
	return l
}

// ListRange implements LIST_RANGE(list, min, max): the subset of list
// whose raw ordinals fall within [min, max] inclusive.
func ListRange(decls *Declarations, l *List, min, max int) *List {
	result := NewList()
	for name, set := range l.Sets {
		decl := decls.Lists[name]
		if decl == nil {
			continue
		}
		out := map[string]bool{}
		for item, active := range set {
			if !active {
				continue
			}
			ord := decl.Ordinal(item)
			if ord >= min && ord <= max {
				out[item] = true
			}
		}
		if len(out) > 0 {
			result.Sets[name] = out
		}
	}
	return result
}

// Invert is LIST_INVERT: for every list-name present in l, the
// complement within that list's full declared set.
func (l *List) Invert(decls *Declarations) *List {
	result := NewList()
	for name, set := range l.Sets {
		decl := decls.Lists[name]
		if decl == nil {
			continue
		}
		out := map[string]bool{}
		for _, item := range decl.Items {
			if !set[item] {
				out[item] = true
			}
		}
		if len(out) > 0 {
			result.Sets[name] = out
		}
	}
	return result
}

// NthItem implements the function-call rewrite rule §4.3.3: "if name is
// a list and the first arg is a number N, yield a List value containing
// the Nth item of name".
func NthItem(decls *Declarations, listName string, n int) (*List, error) {
	decl := decls.Lists[listName]
	if decl == nil {
		return nil, fmt.Errorf("%q is not a declared list", listName)
	}
	if n < 1 || n > len(decl.Items) {
		return NewList(), nil
	}
	result := singleItemList(listName, decl.Items[n-1])
	result.Decls = decls
	return result, nil
}

// String renders the list as comma-separated item names in declaration
// order (spec §4.2 "String rendering"). When Decls is set, items within
// each list-name are ordered by their raw ordinal; otherwise (a List
// value assembled without a declarations reference, e.g. in isolated
// unit tests) rendering falls back to alphabetical so output stays
// deterministic.
func (l *List) String() string {
	if l == nil {
		return ""
	}
	names := make([]string, 0, len(l.Sets))
	for name := range l.Sets {
		names = append(names, name)
	}
	sort.Strings(names)

	var rendered []string
	for _, name := range names {
		items := activeItems(l.Sets[name])
		if l.Decls != nil && l.Decls.Lists[name] != nil {
			decl := l.Decls.Lists[name]
			sort.Slice(items, func(i, j int) bool {
				return decl.Ordinal(items[i]) < decl.Ordinal(items[j])
			})
		} else {
			sort.Strings(items)
		}
		rendered = append(rendered, items...)
	}
	return strings.Join(rendered, ", ")
}
