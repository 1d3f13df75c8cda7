package ink

import (
	"testing"
)

func buildSnapshotStory() *Story {
	story := NewStory()
	story.Version = Version{Engine: "inkweave-0.1", Tree: 2}
	story.Variables = map[string]Value{
		"gold": NumberValue(10),
	}
	knot := NewKnot()
	story.Knots["start"] = knot
	return story
}

func TestSaveLoadRoundTrip(t *testing.T) {
	story := buildSnapshotStory()
	s := NewState(story)
	s.Current = CurrentPath{Knot: "start", Stitch: "_"}
	s.Variables["gold"] = NumberValue(42)
	s.Variables["hero"] = StringValue("Finn")
	s.Temp["scratch"] = BoolValue(true)
	s.Visits.BumpKnot("start")
	s.Visits.BumpLabel("start", "_", "intro")
	s.Seeds["shuffle:start._.alts1"] = 12345
	s.Output = append(s.Output, Paragraph{Text: "Hello.", Tags: []string{"greeting"}})
	s.IsOver = true

	data, err := Save(s)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, err := Load(data, story)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if restored.Current.Knot != "start" || restored.Current.Stitch != "_" {
		t.Errorf("Current = %+v", restored.Current)
	}
	if restored.Variables["gold"].Num != 42 {
		t.Errorf("gold = %v", restored.Variables["gold"])
	}
	if restored.Variables["hero"].Str != "Finn" {
		t.Errorf("hero = %v", restored.Variables["hero"])
	}
	if !restored.Temp["scratch"].Truthy() {
		t.Error("expected scratch to be truthy")
	}
	if restored.Visits.Count("start", "", "") != 1 {
		t.Errorf("knot visit count = %d", restored.Visits.Count("start", "", ""))
	}
	if restored.Visits.Count("start", "_", "intro") != 1 {
		t.Errorf("label visit count = %d", restored.Visits.Count("start", "_", "intro"))
	}
	if restored.Seeds["shuffle:start._.alts1"] != 12345 {
		t.Errorf("seed = %d", restored.Seeds["shuffle:start._.alts1"])
	}
	if len(restored.Output) != 1 || restored.Output[0].Text != "Hello." {
		t.Errorf("output = %+v", restored.Output)
	}
	if len(restored.Output[0].Tags) != 1 || restored.Output[0].Tags[0] != "greeting" {
		t.Errorf("output tags = %+v", restored.Output[0].Tags)
	}
	if !restored.IsOver {
		t.Error("expected IsOver to be true")
	}
	if restored.Version.Tree != 2 {
		t.Errorf("version tree = %d", restored.Version.Tree)
	}
}

func TestSaveLoadRoundTripsPendingNarrationAndChoices(t *testing.T) {
	story := buildSnapshotStory()
	s := NewState(story)
	s.Current = CurrentPath{Knot: "start", Stitch: "_"}
	s.Paragraphs = append(s.Paragraphs, Paragraph{Text: "The door creaks open.", Tags: []string{"sfx"}})
	s.Choices = append(s.Choices, PendingChoice{
		Title: "Knock", Text: "Knock", Divert: "knock", Path: "start._#0",
	})

	data, err := Save(s)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	restored, err := Load(data, story)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(restored.Paragraphs) != 1 || restored.Paragraphs[0].Text != "The door creaks open." {
		t.Errorf("paragraphs = %+v", restored.Paragraphs)
	}
	if len(restored.Paragraphs[0].Tags) != 1 || restored.Paragraphs[0].Tags[0] != "sfx" {
		t.Errorf("paragraph tags = %+v", restored.Paragraphs[0].Tags)
	}
	if len(restored.Choices) != 1 {
		t.Fatalf("choices = %+v", restored.Choices)
	}
	got := restored.Choices[0]
	if got.Title != "Knock" || got.Text != "Knock" || got.Divert != "knock" || got.Path != "start._#0" {
		t.Errorf("choice = %+v", got)
	}

	// Save -> load -> save should yield an equal snapshot (spec Testable
	// Property #6), including with pending narration and an open menu.
	again, err := Save(restored)
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if string(again) != string(data) {
		t.Errorf("second snapshot differs from the first:\n--- first ---\n%s\n--- second ---\n%s", data, again)
	}
}

func TestSaveLoadListValue(t *testing.T) {
	story := buildSnapshotStory()
	story.Lists = NewDeclarations()
	story.Lists.Lists["colors"] = &ListDecl{
		Name:          "colors",
		Items:         []string{"red", "green", "blue"},
		InitialActive: map[string]bool{"red": true},
	}

	s := NewState(story)
	decl := story.Lists.Lists["colors"]
	s.Variables["inventory"] = ListValueOf(decl.Initial())

	data, err := Save(s)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, err := Load(data, story)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	inv := restored.Variables["inventory"]
	if inv.Kind != ListKind {
		t.Fatalf("expected inventory to round-trip as a list, got kind %v", inv.Kind)
	}
	if !inv.List.Sets["colors"]["red"] {
		t.Errorf("expected red to be active, got %+v", inv.List.Sets)
	}
}

func TestLoadRejectsNewerTreeVersion(t *testing.T) {
	story := buildSnapshotStory()
	story.Version.Tree = 1

	newer := NewState(story)
	newer.Version.Tree = 5

	data, err := Save(newer)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := Load(data, story); err == nil {
		t.Fatal("expected a MigrationError for a snapshot newer than the story supports")
	} else if _, ok := err.(*MigrationError); !ok {
		t.Errorf("expected *MigrationError, got %T: %v", err, err)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	story := buildSnapshotStory()
	if _, err := Load([]byte("not: [valid"), story); err == nil {
		t.Fatal("expected an error loading malformed YAML")
	}
}
