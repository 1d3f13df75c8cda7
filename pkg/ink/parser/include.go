package parser

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tale-forge/inkweave/pkg/ink"
)

// Compile parses the file at entryPath into a Story, recursively
// resolving INCLUDE declarations (spec SUPPLEMENTED FEATURES #1)
// against root. Included files are resolved relative to root rather
// than to the including file, matching how internal/config's
// ParserConfig.IncludeRoot is documented: one fixed base directory for
// a story's whole INCLUDE tree, not a per-file relative lookup.
//
// maxDepth bounds the INCLUDE chain (ParserConfig.MaxIncludeDepth);
// exceeding it, or an INCLUDE cycle, is a hard error rather than a
// silently truncated compile.
func Compile(entryPath, root string, maxDepth int) (*ink.Story, error) {
	seen := map[string]bool{}
	return compile(entryPath, root, maxDepth, seen)
}

func compile(path string, root string, depth int, seen map[string]bool) (*ink.Story, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", path, err)
	}
	if seen[abs] {
		return nil, fmt.Errorf("circular INCLUDE of %q", path)
	}
	if depth < 0 {
		return nil, fmt.Errorf("INCLUDE depth exceeded resolving %q", path)
	}
	seen[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", abs, err)
	}

	story, err := Parse(string(data))
	if err != nil {
		return nil, err
	}

	for _, inc := range story.Includes {
		incPath := inc.Path
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(root, incPath)
		}
		included, err := compile(incPath, root, depth-1, seen)
		if err != nil {
			return nil, fmt.Errorf("INCLUDE %q at line %d: %w", inc.Path, inc.Position.Line, err)
		}
		mergeInto(story, included)
	}

	return story, nil
}

// mergeInto folds src's top-level declarations into dst. The implicit
// "_" knot is never merged: only the entry file's own top-level
// content belongs at the story root, matching the source language's
// INCLUDE semantics (an included file contributes named knots, not
// more root content).
func mergeInto(dst, src *ink.Story) {
	for name, knot := range src.Knots {
		if name == ink.ImplicitName {
			continue
		}
		dst.Knots[name] = knot
	}
	for name, v := range src.Constants {
		if _, exists := dst.Constants[name]; !exists {
			dst.Constants[name] = v
		}
	}
	for name, v := range src.Variables {
		if _, exists := dst.Variables[name]; !exists {
			dst.Variables[name] = v
		}
	}
	for name, decl := range src.Lists.Lists {
		if _, exists := dst.Lists.Lists[name]; !exists {
			dst.Lists.Lists[name] = decl
		}
	}
}
