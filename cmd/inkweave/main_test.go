package main

import "testing"

func TestWrapBreaksOnWhitespaceWithinWidth(t *testing.T) {
	got := wrap("the quick brown fox jumps over the lazy dog", 10)
	want := "the quick\nbrown fox\njumps over\nthe lazy\ndog"
	if got != want {
		t.Errorf("wrap() = %q, want %q", got, want)
	}
}

func TestWrapPassesThroughShortText(t *testing.T) {
	if got := wrap("hello", 80); got != "hello" {
		t.Errorf("wrap() = %q", got)
	}
}

func TestWrapZeroWidthIsNoop(t *testing.T) {
	if got := wrap("hello world", 0); got != "hello world" {
		t.Errorf("wrap() = %q", got)
	}
}
