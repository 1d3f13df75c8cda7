package parser

import (
	"testing"

	"github.com/tale-forge/inkweave/pkg/ink"
)

func TestParseBranchingChoices(t *testing.T) {
	src := `
=== castle ===
You stand at the gate.
* [Knock] -> knock
* [Leave] -> leave
- The wind picks up.
-> END
= knock =
A servant answers.
-> castle
= leave =
You walk away.
-> END
`
	story, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	castle, ok := story.Lookup("castle")
	if !ok {
		t.Fatalf("missing knot castle")
	}
	root, ok := castle.Stitch(ink.ImplicitName)
	if !ok {
		t.Fatalf("missing implicit stitch")
	}
	if len(root.Blocks) != 5 {
		t.Fatalf("blocks = %d, want 5: %+v", len(root.Blocks), root.Blocks)
	}
	if root.Blocks[0].Kind != ink.ParagraphBlock || root.Blocks[0].Text != "You stand at the gate." {
		t.Fatalf("block0 = %+v", root.Blocks[0])
	}
	if root.Blocks[1].Kind != ink.ChoiceBlock || root.Blocks[1].Text != "Knock" || root.Blocks[1].Divert != "knock" {
		t.Fatalf("block1 = %+v", root.Blocks[1])
	}
	if root.Blocks[2].Kind != ink.ChoiceBlock || root.Blocks[2].Text != "Leave" || root.Blocks[2].Divert != "leave" {
		t.Fatalf("block2 = %+v", root.Blocks[2])
	}
	if root.Blocks[3].Kind != ink.ParagraphBlock || root.Blocks[3].Text != "The wind picks up." {
		t.Fatalf("block3 = %+v", root.Blocks[3])
	}
	if root.Blocks[4].Divert != "END" {
		t.Fatalf("block4 = %+v", root.Blocks[4])
	}

	knock, ok := castle.Stitch("knock")
	if !ok || len(knock.Blocks) != 2 || knock.Blocks[0].Text != "A servant answers." || knock.Blocks[1].Divert != "castle" {
		t.Fatalf("knock stitch = %+v", knock)
	}
}

func TestParseNestedChoiceWithGather(t *testing.T) {
	src := `
=== hall ===
* Look around
  You see nothing special.
  -> DONE
* Leave
  You turn to go.
- The door creaks shut.
-> END
`
	story, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	hall, _ := story.Lookup("hall")
	root, _ := hall.Stitch(ink.ImplicitName)
	if len(root.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4: %+v", len(root.Blocks), root.Blocks)
	}
	look := root.Blocks[0]
	if look.Kind != ink.ChoiceBlock || look.Text != "Look around" {
		t.Fatalf("block0 = %+v", look)
	}
	if len(look.Node) != 2 || look.Node[0].Text != "You see nothing special." || look.Node[1].Divert != "DONE" {
		t.Fatalf("look.Node = %+v", look.Node)
	}
	leave := root.Blocks[1]
	if leave.Kind != ink.ChoiceBlock || leave.Text != "Leave" {
		t.Fatalf("block1 = %+v", leave)
	}
	if len(leave.Node) != 1 || leave.Node[0].Text != "You turn to go." {
		t.Fatalf("leave.Node = %+v", leave.Node)
	}
	if root.Blocks[2].Text != "The door creaks shut." {
		t.Fatalf("block2 = %+v", root.Blocks[2])
	}
	if root.Blocks[3].Divert != "END" {
		t.Fatalf("block3 = %+v", root.Blocks[3])
	}
}

func TestParseDeclarationsAndAssign(t *testing.T) {
	src := `
CONST MAX_GOLD = 100
VAR gold = 0
LIST mood = calm, (happy), angry

=== vault ===
~ gold += 10
~ gold++
(opened)
You open the vault.
-> END
`
	story, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if story.Constants["MAX_GOLD"].Num != 100 {
		t.Fatalf("MAX_GOLD = %+v", story.Constants["MAX_GOLD"])
	}
	if story.Variables["gold"].Num != 0 {
		t.Fatalf("gold = %+v", story.Variables["gold"])
	}
	decl, ok := story.Lists.Lists["mood"]
	if !ok || len(decl.Items) != 3 || !decl.InitialActive["happy"] {
		t.Fatalf("mood decl = %+v", decl)
	}

	vault, _ := story.Lookup("vault")
	root, _ := vault.Stitch(ink.ImplicitName)
	if len(root.Blocks) != 5 {
		t.Fatalf("blocks = %d, want 5: %+v", len(root.Blocks), root.Blocks)
	}
	if root.Blocks[0].Kind != ink.AssignBlock || root.Blocks[0].Var != "gold" {
		t.Fatalf("block0 = %+v", root.Blocks[0])
	}
	if root.Blocks[1].Kind != ink.AssignBlock || root.Blocks[1].Value != "gold + 1" {
		t.Fatalf("block1 = %+v", root.Blocks[1])
	}
	if root.Blocks[2].Label != "opened" {
		t.Fatalf("block2 label = %+v", root.Blocks[2])
	}
}

func TestParseConditionAndAlts(t *testing.T) {
	src := `
=== weather ===
{stopping: It rains.|It snows.|The sun shines.}
{gold > 10: You feel rich. | else: You feel poor.}
-> END
`
	story, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	weather, _ := story.Lookup("weather")
	root, _ := weather.Stitch(ink.ImplicitName)
	if len(root.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3: %+v", len(root.Blocks), root.Blocks)
	}
	alts := root.Blocks[0]
	if alts.Kind != ink.AltsBlock || alts.Seq != ink.Stopping || len(alts.Alts) != 3 {
		t.Fatalf("alts = %+v", alts)
	}
	cond := root.Blocks[1]
	if cond.Kind != ink.ConditionBlock || len(cond.Conditions) != 2 {
		t.Fatalf("cond = %+v", cond)
	}
	if cond.Conditions[0] != "gold > 10" || cond.Conditions[1] != "1" {
		t.Fatalf("cond.Conditions = %+v", cond.Conditions)
	}
}

func TestParseTagsAndLabel(t *testing.T) {
	src := `
=== intro ===
(start) Hello there. #greeting #warm
-> END
`
	story, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	intro, _ := story.Lookup("intro")
	root, _ := intro.Stitch(ink.ImplicitName)
	b := root.Blocks[0]
	if b.Label != "start" {
		t.Fatalf("label = %q", b.Label)
	}
	if b.Text != "Hello there." {
		t.Fatalf("text = %q", b.Text)
	}
	if len(b.Tags) != 2 || b.Tags[0] != "greeting" || b.Tags[1] != "warm" {
		t.Fatalf("tags = %+v", b.Tags)
	}
}
