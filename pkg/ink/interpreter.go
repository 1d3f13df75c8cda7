package ink

import (
	"fmt"
	"strconv"
	"strings"
)

// ReadPath identifies where the interpreter currently is: the knot and
// stitch it is reading, plus the label most recently encountered there
// (spec §4.4's Path, cleared on store per spec §3.2).
type ReadPath struct {
	Knot   string
	Stitch string
	Label  string
}

func (p ReadPath) stored() CurrentPath {
	return CurrentPath{Knot: p.Knot, Stitch: p.Stitch}
}

// readMode is the 3-state machine of spec §4.4, plus the implicit
// "quit" transition modelled by readItems simply returning.
type readMode int

const (
	modeText readMode = iota
	modeChoices
	modeGathers
)

// readResult carries the outcome of one readItems call up to its
// caller: either a divert to trampoline to (ReadPath), or nothing
// further to do at this level (the call exhausted its items, or it quit
// into `choices` mode with at least one pending choice).
type readResult struct {
	divert *ReadPath
}

// enter is the trampoline driving spec §4.4's `read(path)`: it follows
// diverts returned by readItems until one exhausts without diverting
// (either by finishing or by landing in `choices` mode), or the target
// is a terminal END/DONE address.
func (s *Session) enter(path ReadPath) {
	for {
		if isTerminalKnot(path.Knot) {
			s.State.IsOver = true
			return
		}
		knot, ok := s.Story.Lookup(path.Knot)
		if !ok {
			s.lastErr = &AddressError{Message: fmt.Sprintf("knot %q does not exist", path.Knot)}
			return
		}
		stitch, ok := knot.Stitch(path.Stitch)
		if !ok {
			s.lastErr = &AddressError{Message: fmt.Sprintf("stitch %q does not exist in knot %q", path.Stitch, path.Knot)}
			return
		}
		s.recordVisit(path)
		res := s.readItems(stitch.Blocks, path, 0, modeText)
		if res.divert == nil {
			return
		}
		path = *res.divert
	}
}

func isTerminalKnot(knot string) bool {
	return knot == "END" || knot == "DONE"
}

// recordVisit bumps the knot/stitch visit counters (spec §4.4 "Visit
// counting") and clears temp on a scope crossing (spec invariant 4),
// updating the stored CurrentPath (label cleared, spec §3.2).
func (s *Session) recordVisit(path ReadPath) {
	crossed := s.State.CrossedScope(path.Knot, path.Stitch)
	if path.Knot != s.State.Current.Knot {
		s.State.Visits.BumpKnot(path.Knot)
	}
	s.State.Visits.BumpStitch(path.Knot, path.Stitch)
	if crossed {
		s.State.ClearTemp()
	}
	s.State.Current = path.stored()
}

// bumpLabel records a label visit (spec §4.4: "A block's label, if
// present, causes an additional label-scoped visit").
func (s *Session) bumpLabel(path ReadPath, label string) int {
	return s.State.Visits.BumpLabel(path.Knot, path.Stitch, label)
}

// readItems is the per-block dispatcher of spec §4.4, reading items
// starting at startIdx under the given read mode.
func (s *Session) readItems(items []Block, path ReadPath, startIdx int, mode readMode) readResult {
	groupEnd := -1
	for i := startIdx; i < len(items); i++ {
		b := items[i]

		if mode == modeChoices && b.Kind != ChoiceBlock {
			if len(s.State.Choices) > 0 || s.pendingFallback != nil {
				s.finalizeFallback(path)
				return readResult{} // quit: leave the rest (the gather) unread
			}
			mode = modeText // no live choice and no fallback: read on into the gather
		}
		if mode == modeGathers {
			if b.Kind == ChoiceBlock {
				continue
			}
			mode = modeText
		}

		switch b.Kind {
		case ParagraphBlock:
			if b.HasLabel() {
				s.bumpLabel(path, b.Label)
			}
			s.emitParagraph(s.renderText(b.Text, path), b.Tags)
			if b.HasDivert() {
				target, err := s.resolveDivert(b.Divert, path)
				if err != nil {
					s.lastErr = err
					return readResult{}
				}
				return readResult{divert: &target}
			}

		case ChoiceBlock:
			if mode != modeChoices {
				mode = modeChoices
				groupEnd = i
				for groupEnd < len(items) && items[groupEnd].Kind == ChoiceBlock {
					groupEnd++
				}
			}
			s.considerChoice(&b, path, []int{i})

		case ConditionBlock:
			branch := s.selectConditionBranch(&b, path)
			res := s.readItems(branch, path, 0, mode)
			if res.divert != nil {
				return res
			}

		case AltsBlock:
			label := altLabel(path, i)
			v := s.bumpLabel(path, label)
			addr := fmt.Sprintf("%s.%s:%s", path.Knot, path.Stitch, label)
			if chosen, ok := resolveAlts(&b, addr, v, s.State); ok {
				res := s.readItems(chosen, path, 0, mode)
				if res.divert != nil {
					return res
				}
			}

		case AssignBlock:
			if err := s.doAssign(&b, path); err != nil {
				s.lastErr = err
			}
		}
	}

	if mode == modeChoices {
		s.finalizeFallback(path)
	}
	_ = groupEnd
	return readResult{}
}

// altLabel synthesizes a stable per-block label name for an Alts block
// that carries no author-written label, so its visit count (and shuffle
// seed) are still addressable (DESIGN NOTES §9: "a seed keyed on
// (knot.stitch:label)").
func altLabel(path ReadPath, index int) string {
	return fmt.Sprintf("__alts_%d", index)
}

// considerChoice evaluates one Choice block and either records it as a
// fallback candidate or appends it to the pending menu (spec §4.4
// "Choice"; fallback-vs-quit priority resolved per SUPPLEMENTED
// FEATURES #2).
func (s *Session) considerChoice(b *Block, path ReadPath, chain []int) {
	// A guard condition on a choice is represented by the parser as a
	// ConditionBlock wrapping the ChoiceBlock, so by the time readItems
	// reaches a ChoiceBlock directly its guard, if any, has already been
	// resolved to true.
	if b.IsFallback() {
		if s.pendingFallback == nil {
			s.pendingFallback = &pendingFallback{chain: append([]int{}, chain...), path: path}
		}
		return
	}
	if !(b.Sticky || s.State.Visits.Count(path.Knot, path.Stitch, "") <= 1) {
		return
	}
	s.State.Choices = append(s.State.Choices, PendingChoice{
		Title:  b.Text,
		Text:   b.ChoiceText,
		Divert: b.Divert,
		Path:   encodeChain(path.Knot, path.Stitch, chain),
		node:   b.Node,
	})
}

type pendingFallback struct {
	chain []int
	path  ReadPath
}

// finalizeFallback runs the registered fallback divert, if any, when
// readItems quits out of `choices` mode with nothing else pending
// (SUPPLEMENTED FEATURES #2).
func (s *Session) finalizeFallback(path ReadPath) {
	if len(s.State.Choices) > 0 || s.pendingFallback == nil {
		s.pendingFallback = nil
		return
	}
	fb := s.pendingFallback
	s.pendingFallback = nil
	items := s.stitchItems(fb.path.Knot, fb.path.Stitch)
	if items == nil {
		return
	}
	idx := fb.chain[0]
	blk := items[idx]
	if blk.HasDivert() {
		target, err := s.resolveDivert(blk.Divert, fb.path)
		if err != nil {
			s.lastErr = err
			return
		}
		s.enter(target)
	}
}

func (s *Session) stitchItems(knot, stitch string) []Block {
	k, ok := s.Story.Lookup(knot)
	if !ok {
		return nil
	}
	st, ok := k.Stitch(stitch)
	if !ok {
		return nil
	}
	return st.Blocks
}

// selectConditionBranch implements spec §4.4 "Condition": a string
// condition is if/else, an array condition is a switch tried in order.
func (s *Session) selectConditionBranch(b *Block, path ReadPath) []Block {
	for i, cond := range b.Conditions {
		if s.Eval.Truthy(cond, b.Position) {
			if i < len(b.Success) {
				return b.Success[i]
			}
			return nil
		}
	}
	return b.Failure
}

// doAssign implements spec §4.4 "Assign": constants cannot be written;
// the destination scope is temp when Temp is set or the name already
// lives in temp; observers fire only when the value actually changes.
func (s *Session) doAssign(b *Block, path ReadPath) error {
	if _, isConst := s.Story.Constants[b.Var]; isConst {
		return &EvaluationError{Message: fmt.Sprintf("cannot assign to constant %q", b.Var), Position: b.Position}
	}
	v, err := s.Eval.Eval(b.Value, b.Position)
	if err != nil {
		return err
	}
	_, inTemp := s.State.Temp[b.Var]
	if b.Temp || inTemp {
		old := s.State.Temp[b.Var]
		s.State.Temp[b.Var] = v
		s.notifyObserver(b.Var, old, v)
		return nil
	}
	old := s.State.Variables[b.Var]
	s.State.Variables[b.Var] = v
	s.notifyObserver(b.Var, old, v)
	return nil
}

// renderText expands `{expr}` inline expressions (spec §4.3 "Inline
// expansion in text"); `{{}}` is a literal-brace escape.
func (s *Session) renderText(text string, path ReadPath) string {
	var out strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '{' {
			if i+2 < len(runes) && runes[i+1] == '{' && runes[i+2] == '}' && i+3 < len(runes) && runes[i+3] == '}' {
				out.WriteRune('{')
				i += 3
				continue
			}
			depth := 1
			j := i + 1
			for j < len(runes) && depth > 0 {
				switch runes[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth == 0 {
					break
				}
				j++
			}
			if j >= len(runes) {
				out.WriteString(string(runes[i:]))
				break
			}
			expr := string(runes[i+1 : j])
			out.WriteString(s.Eval.Render(expr, Position{}))
			i = j
			continue
		}
		out.WriteRune(runes[i])
	}
	return out.String()
}

// emitParagraph implements spec §4.4's glue rule and empty-paragraph
// drop rule (tag-merge rule resolved per SUPPLEMENTED FEATURES #3:
// concatenation with de-dupe, in source order).
func (s *Session) emitParagraph(text string, tags []string) {
	if strings.TrimSpace(text) == "" && len(tags) == 0 {
		return
	}
	if n := len(s.State.Paragraphs); n > 0 {
		prev := &s.State.Paragraphs[n-1]
		prevGlue := strings.HasSuffix(prev.Text, "<>")
		curGlue := strings.HasPrefix(text, "<>")
		if prevGlue || curGlue {
			prev.Text = strings.TrimSuffix(prev.Text, "<>") + strings.TrimPrefix(text, "<>")
			prev.Tags = mergeTagsDedupe(prev.Tags, tags)
			return
		}
	}
	s.State.Paragraphs = append(s.State.Paragraphs, Paragraph{Text: text, Tags: tags})
}

func mergeTagsDedupe(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range append(append([]string{}, a...), b...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// resolveDivert implements spec §4.4's `pathFromString`.
func (s *Session) resolveDivert(raw string, ctx ReadPath) (ReadPath, error) {
	raw = strings.TrimSpace(raw)
	if isTerminalKnot(raw) {
		return ReadPath{Knot: raw}, nil
	}
	parts := strings.Split(raw, ".")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch len(parts) {
	case 3:
		return ReadPath{Knot: parts[0], Stitch: parts[1], Label: parts[2]}, nil

	case 2:
		if k, ok := s.Story.Lookup(parts[0]); ok {
			if k.HasStitch(parts[1]) {
				return ReadPath{Knot: parts[0], Stitch: parts[1]}, nil
			}
			return ReadPath{Knot: parts[0], Stitch: ImplicitName, Label: parts[1]}, nil
		}
		if ctxKnot, ok := s.Story.Lookup(ctx.Knot); ok && ctxKnot.HasStitch(parts[0]) {
			return ReadPath{Knot: ctx.Knot, Stitch: parts[0], Label: parts[1]}, nil
		}
		return ReadPath{}, &AddressError{Message: fmt.Sprintf("`%s` could not be resolved from %s.%s", raw, ctx.Knot, ctx.Stitch)}

	case 1:
		if _, ok := s.Story.Lookup(parts[0]); ok {
			return ReadPath{Knot: parts[0], Stitch: ImplicitName}, nil
		}
		if ctxKnot, ok := s.Story.Lookup(ctx.Knot); ok && ctxKnot.HasStitch(parts[0]) {
			return ReadPath{Knot: ctx.Knot, Stitch: parts[0]}, nil
		}
		return ReadPath{Knot: ctx.Knot, Stitch: ctx.Stitch, Label: parts[0]}, nil

	default:
		return ReadPath{}, &AddressError{Message: fmt.Sprintf("malformed address %q", raw)}
	}
}

// encodeChain renders a choice's resume position as the plain string
// spec §3.2 requires ("path") so it survives a save/load round trip
// unchanged: "knot.stitch#i.j.k".
func encodeChain(knot, stitch string, chain []int) string {
	parts := make([]string, len(chain))
	for i, c := range chain {
		parts[i] = strconv.Itoa(c)
	}
	return fmt.Sprintf("%s.%s#%s", knot, stitch, strings.Join(parts, "."))
}

func decodeChain(encoded string) (knot, stitch string, chain []int, err error) {
	hashIdx := strings.IndexByte(encoded, '#')
	if hashIdx < 0 {
		return "", "", nil, fmt.Errorf("malformed resume path %q", encoded)
	}
	head := encoded[:hashIdx]
	dot := strings.IndexByte(head, '.')
	if dot < 0 {
		return "", "", nil, fmt.Errorf("malformed resume path %q", encoded)
	}
	knot, stitch = head[:dot], head[dot+1:]
	for _, s := range strings.Split(encoded[hashIdx+1:], ".") {
		n, err := strconv.Atoi(s)
		if err != nil {
			return "", "", nil, fmt.Errorf("malformed resume chain %q", encoded)
		}
		chain = append(chain, n)
	}
	return knot, stitch, chain, nil
}

// resumeDescend re-enters a chosen choice's Node (spec §4.4 "Chain &
// depth"): it descends the chain to the chosen leaf, reads its Node
// fresh, and — unless that produced a divert or a new pending
// sub-menu — falls through to `gathers` mode in the parent list right
// after the contiguous run of Choice blocks containing the chosen
// index, so narration resumes at the gather line. This composes at
// every nesting level as the recursion unwinds.
func (s *Session) resumeDescend(items []Block, path ReadPath, chain []int, depth int) readResult {
	idx := chain[depth]
	if idx < 0 || idx >= len(items) || items[idx].Kind != ChoiceBlock {
		s.lastErr = &AddressError{Message: "resume chain is stale"}
		return readResult{}
	}
	blk := items[idx]

	var res readResult
	if depth+1 < len(chain) {
		res = s.resumeDescend(blk.Node, path, chain, depth+1)
	} else {
		res = s.readItems(blk.Node, path, 0, modeText)
	}
	if res.divert != nil || len(s.State.Choices) > 0 {
		return res
	}

	groupEnd := idx
	for groupEnd < len(items) && items[groupEnd].Kind == ChoiceBlock {
		groupEnd++
	}
	return s.readItems(items, path, groupEnd, modeGathers)
}
