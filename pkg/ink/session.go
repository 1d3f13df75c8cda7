package ink

import "fmt"

// Observer is called whenever a bound variable changes value (spec
// §6.4's `observe`), receiving the old and new value.
type Observer func(name string, old, new Value)

// Session is the public API surface of spec §4.5 (C5): it owns the
// immutable Story, the mutable State, and the Evaluator wiring them
// together, and drives the read loop of interpreter.go one step at a
// time under explicit caller control (Continue/Choose), rather than
// running to completion on its own.
type Session struct {
	Story *Story
	State *State
	Eval  *Evaluator

	observers       map[string][]Observer
	pendingFallback *pendingFallback
	lastErr         error
	started         bool
}

// NewSession begins a fresh session against story, with the story's
// declared initial variables/lists/version already installed in State
// (spec §4.5 "begin").
func NewSession(story *Story, rng RNG) *Session {
	state := NewState(story)
	return &Session{
		Story:     story,
		State:     state,
		Eval:      NewEvaluator(story, state, rng),
		observers: map[string][]Observer{},
	}
}

// Bind registers a host function callable from story expressions (spec
// §6.4).
func (s *Session) Bind(name string, fn GoFunc) {
	s.Eval.Bind(name, fn)
}

// Observe registers a callback fired whenever name's value changes
// (spec §6.4).
func (s *Session) Observe(name string, fn Observer) {
	s.observers[name] = append(s.observers[name], fn)
}

func (s *Session) notifyObserver(name string, old, new Value) {
	if old.Equal(new) {
		return
	}
	for _, fn := range s.observers[name] {
		fn(name, old, new)
	}
}

// Begin starts the story at its implicit root knot/stitch (spec §4.5).
// It is idempotent after the first call.
func (s *Session) Begin() error {
	if s.started {
		return nil
	}
	s.started = true
	s.lastErr = nil
	s.enter(ReadPath{Knot: ImplicitName, Stitch: ImplicitName})
	return s.lastErr
}

// CanContinue reports whether there is pending narration to drain
// (spec §4.5).
func (s *Session) CanContinue() bool {
	return len(s.State.Paragraphs) > 0
}

// Continue drains up to n pending paragraphs (or all remaining when n
// is at most 0), moving each into Output in order and returning the
// drained batch (spec §4.5 "continue(n?)"). continue(k) always returns
// a prefix of what continue with no limit would have returned, since
// both walk Paragraphs in the same order.
func (s *Session) Continue(n int) ([]Paragraph, error) {
	if !s.CanContinue() {
		return nil, ErrNoNarration
	}
	if n <= 0 || n > len(s.State.Paragraphs) {
		n = len(s.State.Paragraphs)
	}
	drained := s.State.Paragraphs[:n]
	s.State.Paragraphs = s.State.Paragraphs[n:]
	s.State.Output = append(s.State.Output, drained...)
	return drained, nil
}

// CanChoose reports whether a choice menu is pending (spec §4.5).
func (s *Session) CanChoose() bool {
	return len(s.State.Choices) > 0
}

// GetChoices returns the pending choice menu (spec §4.5).
func (s *Session) GetChoices() []PendingChoice {
	return s.State.Choices
}

// IsOver reports whether the story has reached a terminal END/DONE
// address (spec §4.5).
func (s *Session) IsOver() bool {
	return s.State.IsOver
}

// Choose selects the i-th pending choice, 1-based to match spec §4.5's
// examples and IsFallback's choice==0 reservation for the fallback
// form, discards the menu and any undrained paragraphs, narrates its
// chosen caption, and resumes reading at its resume chain.
func (s *Session) Choose(i int) error {
	if i < 1 || i > len(s.State.Choices) {
		return &OutOfRangeError{Index: i, Count: len(s.State.Choices)}
	}
	choice := s.State.Choices[i-1]
	s.State.Choices = nil
	s.State.Paragraphs = nil
	s.pendingFallback = nil
	s.lastErr = nil

	if text := choice.Text; text != "" {
		s.emitParagraph(text, nil)
	}

	if choice.Divert != "" {
		ctx := ReadPath{Knot: s.State.Current.Knot, Stitch: s.State.Current.Stitch}
		if knot, stitch, _, err := decodeChain(choice.Path); err == nil {
			ctx = ReadPath{Knot: knot, Stitch: stitch}
		}
		target, err := s.resolveDivert(choice.Divert, ctx)
		if err != nil {
			return err
		}
		s.enter(target)
		return s.lastErr
	}

	knot, stitch, chain, err := decodeChain(choice.Path)
	if err != nil {
		return err
	}
	items := s.stitchItems(knot, stitch)
	if items == nil {
		return fmt.Errorf("resume target %s.%s no longer exists", knot, stitch)
	}
	res := s.resumeDescend(items, ReadPath{Knot: knot, Stitch: stitch}, chain, 0)
	if res.divert != nil {
		s.enter(*res.divert)
	}
	return s.lastErr
}
