package telemetry

import "github.com/tale-forge/inkweave/pkg/ink"

// Recorder wraps a *ink.Session, publishing telemetry Events around
// the same Continue/Choose calls a host already drives, rather than
// reaching into the interpreter. This keeps Session (spec's C5 public
// API) telemetry-agnostic: Attach is purely additive.
type Recorder struct {
	*ink.Session
	pub *Publisher
}

// Attach wraps session so that its narration and choice menus are
// also published through pub, and registers pub.VariableChanged as an
// Observer (spec §6.4) for every variable the story declares.
func Attach(session *ink.Session, pub *Publisher) *Recorder {
	r := &Recorder{Session: session, pub: pub}
	if pub.Enabled() {
		for name := range session.Story.Variables {
			session.Observe(name, pub.VariableChanged)
		}
	}
	return r
}

// Begin starts the session and publishes a choice_presented event if
// the story opens directly onto a choice menu.
func (r *Recorder) Begin() error {
	err := r.Session.Begin()
	r.publishPendingChoices()
	return err
}

// Continue drains up to n pending paragraphs (spec §4.5 "continue(n?)"),
// publishing a paragraph_emitted event for each, then publishes
// choice_presented if a choice menu became current.
func (r *Recorder) Continue(n int) ([]ink.Paragraph, error) {
	path := r.Session.State.Current
	ps, err := r.Session.Continue(n)
	if err == nil {
		for _, p := range ps {
			r.pub.ParagraphEmitted(path, p)
		}
	}
	r.publishPendingChoices()
	return ps, err
}

// Choose selects choice i and publishes any resulting choice_presented
// event the same way Continue does.
func (r *Recorder) Choose(i int) error {
	err := r.Session.Choose(i)
	r.publishPendingChoices()
	return err
}

func (r *Recorder) publishPendingChoices() {
	if r.Session.CanChoose() {
		r.pub.ChoicePresented(r.Session.GetChoices())
	}
}
