package telemetry

import (
	"testing"

	"github.com/tale-forge/inkweave/internal/config"
	"github.com/tale-forge/inkweave/pkg/ink"
)

func buildRecorderStory() *ink.Story {
	story := ink.NewStory()
	story.Variables["gold"] = ink.NumberValue(10)
	knot := ink.NewKnot()
	knot.Stitches[ink.ImplicitName].Blocks = []ink.Block{
		{Kind: ink.AssignBlock, Var: "gold", Value: "42"},
		{Kind: ink.ParagraphBlock, Text: "Hello."},
		{Kind: ink.ChoiceBlock, Choice: 1, Text: "Leave", Divert: "END"},
	}
	story.Knots[ink.ImplicitName] = knot
	return story
}

func disabledPublisher(t *testing.T) *Publisher {
	t.Helper()
	p, err := New(config.RuntimeOptions{TelemetryEnabled: false}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestRecorderWrapsSessionWithoutChangingBehavior(t *testing.T) {
	story := buildRecorderStory()
	session := ink.NewSession(story, ink.NewRNG(1))
	rec := Attach(session, disabledPublisher(t))

	if err := rec.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !rec.CanContinue() {
		t.Fatal("expected pending narration after Begin")
	}
	ps, err := rec.Continue(1)
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if len(ps) != 1 || ps[0].Text != "Hello." {
		t.Errorf("Continue(1) = %+v", ps)
	}
	if !rec.CanChoose() {
		t.Fatal("expected a pending choice menu")
	}
	if err := rec.Choose(1); err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if !rec.IsOver() {
		t.Error("expected story to be over after choosing the END divert")
	}
	if rec.State.Variables["gold"].Num != 42 {
		t.Errorf("gold = %v", rec.State.Variables["gold"])
	}
}

func TestAttachWithDisabledPublisherKeepsHostObservers(t *testing.T) {
	story := buildRecorderStory()
	session := ink.NewSession(story, ink.NewRNG(1))

	// A disabled publisher must not register observers: Attach is a
	// pure pass-through wrapper when telemetry is off.
	Attach(session, disabledPublisher(t))

	fired := false
	session.Observe("gold", func(name string, old, new ink.Value) {
		fired = true
	})
	if err := session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !fired {
		t.Error("expected the manually registered observer to fire regardless of telemetry state")
	}
}
