package triage

import (
	"strings"

	"healthscribe/pkg"
)

// Action names the reply branch chosen for a turn.
type Action int

const (
	ActionRecommend Action = iota
	ActionFollowUp
	ActionImagePrompt
	ActionGreeting
	ActionThanks
	ActionContextPrompt
	ActionFallback

	// ActionExternal marks replies produced outside the rule engine.
	ActionExternal
)

func (a Action) String() string {
	switch a {
	case ActionRecommend:
		return "recommend"
	case ActionFollowUp:
		return "follow_up"
	case ActionImagePrompt:
		return "image_prompt"
	case ActionGreeting:
		return "greeting"
	case ActionThanks:
		return "thanks"
	case ActionContextPrompt:
		return "context_prompt"
	case ActionExternal:
		return "external"
	default:
		return "fallback"
	}
}

// recommendAfter is the transcript length past which an assessing
// conversation moves on to recommendations without being asked.
const recommendAfter = 4

var treatmentRequestPhrases = []string{
	"treatment", "remedy", "medicine", "help", "cure", "what should i do", "how to treat",
}

// Decision is the outcome of one policy step, ready for the composer.
type Decision struct {
	Action Action
	Stage  pkg.Stage

	// Primary and Others are the symptoms detected this turn (follow-up only).
	Primary string
	Others  []string

	// Symptoms lists what a recommendation or context prompt talks about.
	Symptoms []string

	OfferTreatment bool
}

// TurnSignals are the per-turn inputs besides detection results.
type TurnSignals struct {
	Text         string
	HasImage     bool
	MessageCount int
}

// IsTreatmentRequest reports whether the utterance explicitly asks for
// treatment advice.
func IsTreatmentRequest(text string) bool {
	return containsAny(strings.ToLower(text), treatmentRequestPhrases)
}

// Decide applies the dialogue rules in priority order.  Exactly one rule
// fires.  It returns the decision and the updated context; prev is not
// modified.
func Decide(prev pkg.ConversationContext, detected []string, sig TurnSignals) (Decision, pkg.ConversationContext) {
	next := prev.Clone()
	if next.Stage == "" {
		next.Stage = pkg.StageInitial
	}
	for _, s := range detected {
		if !next.Has(s) {
			next.Detected = append(next.Detected, s)
		}
	}
	next.History = append(next.History, detected...)

	text := strings.ToLower(sig.Text)
	cumulative := next.Detected

	switch {
	case IsTreatmentRequest(text) && len(cumulative) > 0:
		next.Stage = pkg.StageRecommending
		return Decision{Action: ActionRecommend, Stage: next.Stage, Symptoms: cloneStrings(cumulative)}, next

	case prev.Stage == pkg.StageAssessing && sig.MessageCount > recommendAfter && len(cumulative) > 0:
		next.Stage = pkg.StageRecommending
		return Decision{Action: ActionRecommend, Stage: next.Stage, Symptoms: cloneStrings(cumulative)}, next

	case len(detected) > 0:
		next.Stage = pkg.StageAssessing
		return Decision{
			Action:         ActionFollowUp,
			Stage:          next.Stage,
			Primary:        detected[0],
			Others:         cloneStrings(detected[1:]),
			OfferTreatment: len(cumulative) >= 2,
		}, next

	case sig.HasImage:
		return Decision{Action: ActionImagePrompt, Stage: next.Stage}, next

	case strings.Contains(text, "hello") || strings.Contains(text, "hi"):
		return Decision{Action: ActionGreeting, Stage: next.Stage}, next

	case strings.Contains(text, "thank"):
		return Decision{Action: ActionThanks, Stage: next.Stage}, next

	case len(next.History) > 0:
		return Decision{
			Action:         ActionContextPrompt,
			Stage:          next.Stage,
			Symptoms:       cloneStrings(next.History),
			OfferTreatment: next.Stage == pkg.StageAssessing && len(cumulative) >= 2,
		}, next
	}
	return Decision{Action: ActionFallback, Stage: next.Stage}, next
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}
