// Package parser implements spec §4.1 (C1): it compiles Ink-family
// source text into an *ink.Story. It depends on pkg/ink but is never
// imported back by it, so the Story Model and the expression evaluator
// stay free of any parsing concern.
package parser

import (
	"strings"

	"github.com/tale-forge/inkweave/pkg/ink"
)

// rawLine is one logical source line after comment-stripping, with its
// original position preserved for diagnostics.
type rawLine struct {
	text string
	pos  ink.Position
}

// splitLines turns src into logical lines, stripping `//` and `/* */`
// comments (spec §4.1 lexical: "line/block comments"), joining a block
// comment's span into nothing, and dropping `TODO:` lines entirely.
// An unterminated block comment is returned as a ParseError (spec §4.1
// "Failure model"); a line with an unclosed `{` is reported by
// dispatchLine.
func splitLines(src string) ([]rawLine, error) {
	var out []rawLine
	raw := strings.Split(src, "\n")
	inBlock := false
	blockStart := ink.Position{}

	for i, line := range raw {
		lineNo := i + 1
		col := 1
		var b strings.Builder
		runes := []rune(line)
		j := 0
		for j < len(runes) {
			if inBlock {
				if runes[j] == '*' && j+1 < len(runes) && runes[j+1] == '/' {
					inBlock = false
					j += 2
					continue
				}
				j++
				continue
			}
			if runes[j] == '/' && j+1 < len(runes) && runes[j+1] == '/' {
				break // rest of line is a line comment
			}
			if runes[j] == '/' && j+1 < len(runes) && runes[j+1] == '*' {
				inBlock = true
				blockStart = ink.Position{Line: lineNo, Column: j + 1}
				j += 2
				continue
			}
			b.WriteRune(runes[j])
			j++
		}

		text := strings.TrimRight(b.String(), " \t\r")
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(trimmed, "TODO:") {
			continue
		}
		out = append(out, rawLine{text: text, pos: ink.Position{Line: lineNo, Column: col}})
	}

	if inBlock {
		return nil, &ink.ParseError{Message: "unterminated block comment", Position: blockStart, Source: src}
	}
	return out, nil
}
