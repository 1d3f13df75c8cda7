package parser

import (
	"fmt"
	"strings"

	"github.com/tale-forge/inkweave/pkg/ink"
)

// frame is one open container on the node chain (spec §4.1 "node
// chain"): rather than holding a raw pointer into a slice that could
// be invalidated by a sibling append reallocating its backing array,
// a frame is closed by writing its finished `blocks` into the owning
// Block by stable index — append-only, so the index never moves
// (DESIGN NOTES §9 "arena... by index").
type frame struct {
	blocks         []ink.Block
	parentFrameIdx int // -1 for the stitch root
	ownerIndex     int // index of the owning Block within frames[parentFrameIdx].blocks
}

type parser struct {
	story *ink.Story
	eval  *ink.Evaluator // used only to fold CONST/VAR/LIST initializers into Values at parse time

	knot   string
	stitch string
	frames []frame

	errs ink.MultiError
}

// Parse compiles src into a Story (spec §4.1). INCLUDE resolution is
// the caller's responsibility (see Compile, which follows INCLUDE
// declarations by reading files under a root directory); Parse itself
// only records them in story.Includes.
func Parse(src string) (*ink.Story, error) {
	story := ink.NewStory()
	state := ink.NewState(story)
	p := &parser{
		story:  story,
		eval:   ink.NewEvaluator(story, state, ink.NewRNG(1)),
		knot:   ink.ImplicitName,
		stitch: ink.ImplicitName,
	}
	p.resetChain()

	lines, err := splitLines(src)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		p.dispatchLine(l)
	}
	p.finishStitch()

	if p.errs.HasErrors() {
		return story, p.errs.AsError()
	}
	return story, nil
}

func (p *parser) resetChain() {
	p.frames = []frame{{parentFrameIdx: -1}}
}

func (p *parser) currentStitch() *ink.Stitch {
	k := p.story.Knots[p.knot]
	return k.Stitches[p.stitch]
}

// finishStitch closes every open frame down to the root and installs
// its accumulated blocks as the current stitch's content.
func (p *parser) finishStitch() {
	for len(p.frames) > 1 {
		top := len(p.frames) - 1
		f := p.frames[top]
		p.frames = p.frames[:top]
		p.frames[f.parentFrameIdx].blocks[f.ownerIndex].Node = f.blocks
	}
	p.currentStitch().Blocks = p.frames[0].blocks
}

// popTo truncates the chain to exactly `level` frames, closing each
// popped frame into its owner (spec §4.1: "pops the chain to L").
func (p *parser) popTo(level int) {
	if level < 1 {
		level = 1
	}
	if level > len(p.frames) {
		level = len(p.frames)
	}
	for len(p.frames) > level {
		top := len(p.frames) - 1
		f := p.frames[top]
		p.frames = p.frames[:top]
		p.frames[f.parentFrameIdx].blocks[f.ownerIndex].Node = f.blocks
	}
}

func (p *parser) top() *frame {
	return &p.frames[len(p.frames)-1]
}

// append adds b to the chain's current top frame.
func (p *parser) append(b ink.Block) {
	top := p.top()
	top.blocks = append(top.blocks, b)
}

// pushChoiceFrame appends the (nodeless) choice block to the top frame
// and opens a new frame for its indented content.
func (p *parser) pushChoiceFrame(b ink.Block) {
	topIdx := len(p.frames) - 1
	p.frames[topIdx].blocks = append(p.frames[topIdx].blocks, b)
	ownerIndex := len(p.frames[topIdx].blocks) - 1
	p.frames = append(p.frames, frame{parentFrameIdx: topIdx, ownerIndex: ownerIndex})
}

func (p *parser) dispatchLine(l rawLine) {
	trimmed := strings.TrimSpace(l.text)
	if trimmed == "" {
		return
	}

	open := 0
	for _, c := range trimmed {
		switch {
		case c == '{':
			open++
		case c == '}' && open > 0:
			open--
		}
	}
	if open > 0 {
		p.errs.Add(&ink.ParseError{Message: "unterminated inline expression: missing '}'", Position: l.pos, Source: trimmed})
		return
	}

	switch {
	case isKnotHeader(trimmed):
		p.finishStitch()
		p.knot = strings.TrimSpace(strings.Trim(trimmed, "="))
		p.stitch = ink.ImplicitName
		if p.story.Knots[p.knot] == nil {
			p.story.Knots[p.knot] = ink.NewKnot()
		}
		p.resetChain()

	case isStitchHeader(trimmed):
		p.finishStitch()
		p.stitch = strings.TrimSpace(strings.Trim(trimmed, "="))
		k := p.story.Knots[p.knot]
		if k.Stitches[p.stitch] == nil {
			k.Stitches[p.stitch] = &ink.Stitch{}
		}
		p.resetChain()

	case strings.HasPrefix(trimmed, "INCLUDE "):
		p.story.Includes = append(p.story.Includes, ink.IncludeDecl{
			Path:     strings.TrimSpace(trimmed[len("INCLUDE "):]),
			Position: l.pos,
		})

	case strings.HasPrefix(trimmed, "CONST "):
		p.parseDecl(trimmed[len("CONST "):], l.pos, p.story.Constants)

	case strings.HasPrefix(trimmed, "VAR "):
		p.parseDecl(trimmed[len("VAR "):], l.pos, p.story.Variables)

	case strings.HasPrefix(trimmed, "LIST "):
		p.parseListDecl(trimmed[len("LIST "):], l.pos)

	case strings.HasPrefix(trimmed, "~"):
		p.parseAssign(strings.TrimSpace(trimmed[1:]), l.pos)

	case isChoiceLine(trimmed):
		p.parseChoiceLine(trimmed, l.pos)

	default:
		p.parseParagraphLine(trimmed, l.pos)
	}
}

func isKnotHeader(s string) bool {
	return strings.HasPrefix(s, "===") && strings.HasSuffix(s, "===") && len(strings.Trim(s, "=")) > 0
}

func isStitchHeader(s string) bool {
	if strings.HasPrefix(s, "==") {
		return false
	}
	return strings.HasPrefix(s, "=") && strings.HasSuffix(s, "=") && len(strings.Trim(s, "=")) > 0
}

func isChoiceLine(s string) bool {
	return len(s) > 0 && (s[0] == '*' || s[0] == '+')
}

// parseDecl handles `CONST name = expr` / `VAR name = expr`: the
// right-hand side is folded into a Value immediately via the
// evaluator, since the Story Model stores Constants/Variables as
// Values, not source text (spec §3.1).
func (p *parser) parseDecl(rest string, pos ink.Position, into map[string]ink.Value) {
	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		p.errs.Add(&ink.ParseError{Message: "declaration missing '='", Position: pos, Source: rest})
		return
	}
	name := strings.TrimSpace(rest[:eq])
	expr := strings.TrimSpace(rest[eq+1:])
	v, err := p.eval.Eval(expr, pos)
	if err != nil {
		p.errs.Add(err)
		return
	}
	into[name] = v
	// Constants/Variables also populate the evaluator's live state so
	// a later declaration can reference an earlier one.
	if evalState := p.eval.State; evalState != nil {
		evalState.Variables[name] = v
	}
}

// parseListDecl handles `LIST name = a, (b), c` (spec §4.1 "List
// declaration").
func (p *parser) parseListDecl(rest string, pos ink.Position) {
	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		p.errs.Add(&ink.ParseError{Message: "LIST missing '='", Position: pos, Source: rest})
		return
	}
	name := strings.TrimSpace(rest[:eq])
	decl := &ink.ListDecl{Name: name, InitialActive: map[string]bool{}}
	for _, raw := range strings.Split(rest[eq+1:], ",") {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}
		active := false
		if strings.HasPrefix(item, "(") && strings.HasSuffix(item, ")") {
			active = true
			item = strings.TrimSpace(item[1 : len(item)-1])
		}
		decl.Items = append(decl.Items, item)
		if active {
			decl.InitialActive[item] = true
		}
	}
	p.story.Lists.Lists[name] = decl
	p.story.Variables[name] = ink.ListValueOf(decl.Initial())
}

// parseAssign handles `~ [temp] name (= expr | ++ | -- | += e | -= e)`
// (spec §4.1 "Assignment desugaring").
func (p *parser) parseAssign(rest string, pos ink.Position) {
	temp := false
	if strings.HasPrefix(rest, "temp ") {
		temp = true
		rest = strings.TrimSpace(rest[len("temp "):])
	}

	var name, expr string
	switch {
	case strings.HasSuffix(rest, "++"):
		name = strings.TrimSpace(strings.TrimSuffix(rest, "++"))
		expr = fmt.Sprintf("%s + 1", name)
	case strings.HasSuffix(rest, "--"):
		name = strings.TrimSpace(strings.TrimSuffix(rest, "--"))
		expr = fmt.Sprintf("%s - 1", name)
	case strings.Contains(rest, "+="):
		parts := strings.SplitN(rest, "+=", 2)
		name = strings.TrimSpace(parts[0])
		expr = fmt.Sprintf("%s + (%s)", name, strings.TrimSpace(parts[1]))
	case strings.Contains(rest, "-="):
		parts := strings.SplitN(rest, "-=", 2)
		name = strings.TrimSpace(parts[0])
		expr = fmt.Sprintf("%s - (%s)", name, strings.TrimSpace(parts[1]))
	case strings.Contains(rest, "="):
		parts := strings.SplitN(rest, "=", 2)
		name = strings.TrimSpace(parts[0])
		expr = strings.TrimSpace(parts[1])
	default:
		// A bare function call as a statement, e.g. `~ DOUBLE(x)`; has no
		// assignment target, but still needs to run for its side effects
		// once bound (spec §6.4). Modelled as an assignment to a
		// discarded temp so doAssign's machinery can evaluate it.
		name = "_"
		expr = rest
		temp = true
	}

	p.append(ink.Block{Kind: ink.AssignBlock, Var: name, Value: expr, Temp: temp, Position: pos})
}

// parseChoiceLine handles `choiceLevel [condition] (text divert? |
// divert)` (spec §4.1).
func (p *parser) parseChoiceLine(trimmed string, pos ink.Position) {
	depth := 0
	for depth < len(trimmed) && (trimmed[depth] == '*' || trimmed[depth] == '+') {
		depth++
	}
	sticky := depth > 0 && trimmed[depth-1] == '+'
	rest := strings.TrimSpace(trimmed[depth:])

	var guard string
	if strings.HasPrefix(rest, "{") {
		if end := matchBrace(rest); end >= 0 {
			guard = strings.TrimSpace(rest[1:end])
			rest = strings.TrimSpace(rest[end+1:])
		}
	}

	text, divert, tags := splitTrailer(rest)
	title, narrated := splitMiddle(text)

	choice := ink.Block{
		Kind: ink.ChoiceBlock, Position: pos,
		Choice: 1, Sticky: sticky,
		Text: title, ChoiceText: narrated, Divert: divert, Tags: tags,
	}
	if title == "" && divert != "" {
		choice.Choice = 0 // fallback form
	}

	p.popTo(depth)
	if guard == "" {
		p.pushChoiceFrame(choice)
		return
	}
	// A guarded choice is represented as a ConditionBlock with a single
	// arm wrapping the choice, so the interpreter only ever dispatches
	// bare ChoiceBlocks once a guard has already resolved true.
	cond := ink.Block{Kind: ink.ConditionBlock, Position: pos, Conditions: []string{guard}, Success: [][]ink.Block{{choice}}}
	p.append(cond)
}

// parseParagraphLine handles the gather/label/text/divert/tags line
// shapes, plus whole-line `{...}` Condition/Alts constructs (spec
// §4.1 paragraph rule; brace disambiguation per spec §9's examples).
func (p *parser) parseParagraphLine(trimmed string, pos ink.Position) {
	gatherDepth, rest := stripGatherMarks(trimmed)
	if gatherDepth > 0 {
		p.popTo(gatherDepth)
	}

	label, rest := stripLabel(rest)
	text, divert, tags := splitTrailer(rest)

	if shape, ok := wholeLineBrace(text); ok {
		if shape.isCondition {
			p.append(ink.Block{Kind: ink.ConditionBlock, Position: pos, Label: label, Divert: divert, Tags: tags,
				Conditions: shape.conditions, Success: shape.success, Failure: shape.failure})
			return
		}
		p.append(ink.Block{Kind: ink.AltsBlock, Position: pos, Label: label, Divert: divert, Tags: tags,
			Seq: shape.seq, Alts: shape.alts})
		return
	}

	p.append(ink.Block{Kind: ink.ParagraphBlock, Position: pos, Label: label, Text: text, Divert: divert, Tags: tags})
}

// wholeLineBrace reports whether text, once surrounding whitespace is
// trimmed, is exactly one `{...}` spanning start to end, and classifies
// it. A brace embedded alongside other text (`"You have {gold} gold."`)
// is left untouched as inline-expression syntax for renderText.
func wholeLineBrace(text string) (braceShape, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return braceShape{}, false
	}
	end := matchBrace(text)
	if end != len(text)-1 {
		return braceShape{}, false
	}
	return classifyBrace(text[1:end])
}

func matchBrace(s string) int {
	depth := 0
	for i, c := range s {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// stripGatherMarks counts leading '-' characters that are not the
// start of a "->" divert token (spec §4.1: gatherLevel is the stacking
// depth of leading '-').
func stripGatherMarks(s string) (int, string) {
	i := 0
	for i < len(s) && s[i] == '-' {
		if i+1 < len(s) && s[i+1] == '>' {
			break
		}
		i++
	}
	return i, strings.TrimSpace(s[i:])
}

// stripLabel extracts a standalone `(name)` token, searching outside
// any `{...}` span so a LIST_RANGE(...)-style call inside an inline
// expression is never mistaken for a label.
func stripLabel(s string) (string, string) {
	masked := maskBraces(s)
	runes := []rune(s)
	maskedRunes := []rune(masked)
	for i := 0; i < len(maskedRunes); i++ {
		if maskedRunes[i] != '(' {
			continue
		}
		j := i + 1
		for j < len(maskedRunes) && maskedRunes[j] != ')' {
			j++
		}
		if j >= len(maskedRunes) {
			break
		}
		name := strings.TrimSpace(string(runes[i+1 : j]))
		if !isIdent(name) {
			continue
		}
		before := i == 0 || maskedRunes[i-1] == ' '
		after := j+1 >= len(maskedRunes) || maskedRunes[j+1] == ' '
		if !before || !after {
			continue
		}
		rest := strings.TrimSpace(string(runes[:i]) + string(runes[j+1:]))
		return name, rest
	}
	return "", s
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isAlpha {
			return false
		}
		if i > 0 && !isAlpha && !isDigit {
			return false
		}
	}
	return true
}

// splitTrailer extracts the `# tag` suffix(es) and the `-> target`
// divert from s, both searched outside any `{...}` span, leaving
// whatever remains as narrative text.
func splitTrailer(s string) (text, divert string, tags []string) {
	masked := maskBraces(s)
	runes := []rune(s)
	maskedRunes := []rune(masked)

	tagStart := -1
	for i, r := range maskedRunes {
		if r == '#' {
			tagStart = i
			break
		}
	}
	tagPart := ""
	if tagStart >= 0 {
		tagPart = string(runes[tagStart:])
		runes = runes[:tagStart]
		maskedRunes = maskedRunes[:tagStart]
	}
	for _, raw := range strings.Split(tagPart, "#") {
		t := strings.TrimSpace(raw)
		if t != "" {
			tags = append(tags, t)
		}
	}

	arrow := -1
	for i := 0; i < len(maskedRunes)-1; i++ {
		if maskedRunes[i] == '-' && maskedRunes[i+1] == '>' {
			arrow = i
			break
		}
	}
	if arrow >= 0 {
		divert = strings.TrimSpace(string(runes[arrow+2:]))
		runes = runes[:arrow]
	}

	return strings.TrimSpace(string(runes)), divert, tags
}

// splitMiddle implements the `[middle]` choice-text split (spec §4.1):
// prefix+middle is the menu title, prefix+suffix is the narrated text.
func splitMiddle(text string) (title, narrated string) {
	start := strings.IndexByte(text, '[')
	end := strings.IndexByte(text, ']')
	if start < 0 || end < start {
		return text, text
	}
	prefix := text[:start]
	middle := text[start+1 : end]
	suffix := text[end+1:]
	title = strings.TrimSpace(prefix + middle)
	narrated = strings.TrimSpace(prefix + suffix)
	return title, narrated
}

// maskBraces blanks out the content of every `{...}` span (replacing
// each rune with a space, preserving rune offsets) so label/tag/divert
// extraction never matches a token that only appears inside an inline
// expression.
func maskBraces(s string) string {
	runes := []rune(s)
	depth := 0
	for i, c := range runes {
		switch c {
		case '{':
			depth++
			runes[i] = ' '
		case '}':
			if depth > 0 {
				depth--
			}
			runes[i] = ' '
		default:
			if depth > 0 {
				runes[i] = ' '
			}
		}
	}
	return string(runes)
}
