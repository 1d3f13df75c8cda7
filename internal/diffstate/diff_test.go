package diffstate

import (
	"strings"
	"testing"

	"github.com/tale-forge/inkweave/pkg/ink"
)

func buildDiffStory() *ink.Story {
	story := ink.NewStory()
	story.Knots["start"] = ink.NewKnot()
	return story
}

func TestDiffDetectsVariableChange(t *testing.T) {
	story := buildDiffStory()

	before := ink.NewState(story)
	before.Variables["gold"] = ink.NumberValue(10)
	beforeData, err := ink.Save(before)
	if err != nil {
		t.Fatalf("Save before: %v", err)
	}

	after := ink.NewState(story)
	after.Variables["gold"] = ink.NumberValue(42)
	afterData, err := ink.Save(after)
	if err != nil {
		t.Fatalf("Save after: %v", err)
	}

	report, err := Diff(beforeData, afterData)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !Changed(report) {
		t.Fatal("expected a diff between two snapshots with different gold values")
	}

	out, err := Render(report)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "gold") {
		t.Errorf("expected rendered report to mention the changed variable, got:\n%s", out)
	}
}

func TestDiffReportsNoChangeForIdenticalSnapshots(t *testing.T) {
	story := buildDiffStory()
	s := ink.NewState(story)
	s.Variables["gold"] = ink.NumberValue(10)

	data, err := ink.Save(s)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	report, err := Diff(data, data)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if Changed(report) {
		t.Error("expected no diff between a snapshot and itself")
	}
}
