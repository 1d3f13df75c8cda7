package parser

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestCompileResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "armory.ink", "=== armory ===\nA room full of weapons.\n-> END\n")
	entry := writeFile(t, dir, "main.ink", "INCLUDE armory.ink\nWelcome.\n-> armory\n")

	story, err := Compile(entry, dir, 8)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, ok := story.Knots["armory"]; !ok {
		t.Fatal("expected the armory knot to be merged in from the included file")
	}
}

func TestCompileDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.ink", "INCLUDE b.ink\n")
	writeFile(t, dir, "b.ink", "INCLUDE a.ink\n")

	_, err := Compile(filepath.Join(dir, "a.ink"), dir, 8)
	if err == nil {
		t.Fatal("expected an error for a circular INCLUDE chain")
	}
}

func TestCompileEnforcesMaxDepth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "leaf.ink", "Leaf content.\n")
	writeFile(t, dir, "mid.ink", "INCLUDE leaf.ink\n")
	entry := writeFile(t, dir, "top.ink", "INCLUDE mid.ink\n")

	if _, err := Compile(entry, dir, 0); err == nil {
		t.Fatal("expected a max-include-depth error with depth 0 and a two-level chain")
	}
	if _, err := Compile(entry, dir, 2); err != nil {
		t.Fatalf("expected depth 2 to be sufficient, got: %v", err)
	}
}
