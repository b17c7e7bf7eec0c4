package triage

import (
	"context"

	"healthscribe/pkg"
)

// Turn is everything a responder needs to answer one user utterance.
// Transcript holds the messages exchanged before Text was sent.
type Turn struct {
	Transcript []pkg.Message
	Context    pkg.ConversationContext
	Text       string
	ImageRef   string
}

// Outcome is a responder's answer plus the context to carry forward.
type Outcome struct {
	Text    string
	Context pkg.ConversationContext
	Action  Action
}

// Engine is the rule-based responder: detection, policy, composition.
type Engine struct {
	detector *Detector
	composer *Composer
}

// NewEngine wires a detector and composer over one lexicon.
func NewEngine(lex *Lexicon) *Engine {
	return &Engine{
		detector: NewDetector(lex),
		composer: NewComposer(lex),
	}
}

// Respond processes one turn.  It never fails.
func (e *Engine) Respond(_ context.Context, t Turn) (Outcome, error) {
	detected := e.detector.Detect(t.Text, t.Context.Detected)
	decision, next := Decide(t.Context, detected, TurnSignals{
		Text:         t.Text,
		HasImage:     t.ImageRef != "",
		MessageCount: len(t.Transcript),
	})
	return Outcome{
		Text:    e.composer.Compose(decision),
		Context: next,
		Action:  decision.Action,
	}, nil
}
