package parser

import (
	"strings"

	"github.com/tale-forge/inkweave/pkg/ink"
)

// braceShape is what a whole-line `{...}` construct turned out to be:
// a Condition switch, an Alts sequence, or (returned as !ok) a plain
// inline expression that should stay literal paragraph text for
// renderText to expand at read time.
type braceShape struct {
	isCondition bool
	conditions  []string
	success     [][]ink.Block
	failure     []ink.Block

	isAlts bool
	seq    ink.AltSeq
	alts   [][]ink.Block
}

// classifyBrace inspects the content of a `{...}` that spans an entire
// line's remaining text (spec §4.1's grammar sketch folds Condition and
// Alts into the same bracket syntax as inline expressions; §9's example
// `{x == 1: one | x == 2: two | else: many}` and `{stopping: a|b|c}`
// disambiguate by a top-level `|` and, within the first segment, a
// leading sequencing keyword before `:`).
func classifyBrace(inner string) (braceShape, bool) {
	segments := splitTopLevel(inner, '|')

	if len(segments) == 1 {
		seg := strings.TrimSpace(segments[0])
		if idx := topLevelIndex(seg, ':'); idx >= 0 {
			r := []rune(seg)
			cond := strings.TrimSpace(string(r[:idx]))
			text := strings.TrimSpace(string(r[idx+1:]))
			return braceShape{
				isCondition: true,
				conditions:  []string{cond},
				success:     [][]ink.Block{{{Kind: ink.ParagraphBlock, Text: text}}},
			}, true
		}
		return braceShape{}, false
	}

	if seq, rest, ok := altsModePrefix(segments[0]); ok {
		segments[0] = rest
		return braceShape{isAlts: true, seq: seq, alts: literalAlts(segments)}, true
	}

	anyColon := false
	for _, seg := range segments {
		if topLevelIndex(seg, ':') >= 0 {
			anyColon = true
			break
		}
	}
	if anyColon {
		var conds []string
		var arms [][]ink.Block
		for _, seg := range segments {
			seg = strings.TrimSpace(seg)
			cond, text := "1", seg
			if idx := topLevelIndex(seg, ':'); idx >= 0 {
				r := []rune(seg)
				cond = strings.TrimSpace(string(r[:idx]))
				text = strings.TrimSpace(string(r[idx+1:]))
				if strings.EqualFold(cond, "else") {
					cond = "1"
				}
			}
			conds = append(conds, cond)
			arms = append(arms, []ink.Block{{Kind: ink.ParagraphBlock, Text: text}})
		}
		return braceShape{isCondition: true, conditions: conds, success: arms}, true
	}

	return braceShape{isAlts: true, seq: ink.Stopping, alts: literalAlts(segments)}, true
}

func literalAlts(segments []string) [][]ink.Block {
	alts := make([][]ink.Block, len(segments))
	for i, seg := range segments {
		text := strings.TrimSpace(seg)
		if text == "" {
			alts[i] = nil
			continue
		}
		alts[i] = []ink.Block{{Kind: ink.ParagraphBlock, Text: text}}
	}
	return alts
}

func altsModePrefix(first string) (ink.AltSeq, string, bool) {
	idx := topLevelIndex(first, ':')
	if idx < 0 {
		return 0, "", false
	}
	r := []rune(first)
	word := strings.ToLower(strings.TrimSpace(string(r[:idx])))
	rest := string(r[idx+1:])
	switch word {
	case "stopping":
		return ink.Stopping, rest, true
	case "cycle":
		return ink.Cycle, rest, true
	case "once":
		return ink.Once, rest, true
	case "shuffle":
		return ink.Shuffle, rest, true
	}
	return 0, "", false
}

// splitTopLevel splits s on sep, ignoring occurrences nested inside
// {}, (), [] or string literals.
func splitTopLevel(s string, sep rune) []string {
	var out []string
	var cur strings.Builder
	depth := 0
	inStr := false
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inStr:
			cur.WriteRune(c)
			if c == '"' {
				inStr = false
			}
		case c == '"':
			inStr = true
			cur.WriteRune(c)
		case c == '{' || c == '(' || c == '[':
			depth++
			cur.WriteRune(c)
		case c == '}' || c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(c)
		case c == sep && depth == 0:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	out = append(out, cur.String())
	return out
}

// topLevelIndex returns the rune index of the first sep found outside
// any {}/()/[]/string-literal nesting, or -1.
func topLevelIndex(s string, sep rune) int {
	depth := 0
	inStr := false
	runes := []rune(s)
	for i, c := range runes {
		switch {
		case inStr:
			if c == '"' {
				inStr = false
			}
		case c == '"':
			inStr = true
		case c == '{' || c == '(' || c == '[':
			depth++
		case c == '}' || c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			return i
		}
	}
	return -1
}
