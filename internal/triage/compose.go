package triage

import (
	"fmt"
	"strings"
)

// Reply texts.  Output is plain text; bullets are the only markup.
const (
	FallbackReply      = "I understand you're experiencing some symptoms. Can you tell me more about how you're feeling?"
	ImagePromptReply   = "I've analyzed the image you sent. It appears to show some skin condition. Could you describe any symptoms related to this, such as itching, pain, or how long you've had it?"
	GreetingReply      = "Hello! I'm here to help with your health concerns. Could you describe your symptoms in detail?"
	ThanksReply        = "You're welcome! Is there anything else about your symptoms you'd like to discuss?"
	RecommendIntro     = "Based on the symptoms you've described, here are some suggestions that may help:"
	TreatmentOffer     = "If you'd like, I can suggest some treatments for these symptoms. Just ask \"what should I do?\""
	MedicalDisclaimer  = "Please remember that this does not replace professional medical advice. If your symptoms worsen or persist, consult a healthcare provider."
	bullet             = "• "
	maxTreatmentsShown = 3
)

// Composer renders policy decisions into reply text.
type Composer struct {
	lex *Lexicon
}

// NewComposer constructs a Composer over the given lexicon.
func NewComposer(lex *Lexicon) *Composer {
	return &Composer{lex: lex}
}

// Compose turns a decision into the reply string.
func (c *Composer) Compose(d Decision) string {
	switch d.Action {
	case ActionRecommend:
		return c.recommendation(d.Symptoms)
	case ActionFollowUp:
		return c.followUp(d)
	case ActionImagePrompt:
		return ImagePromptReply
	case ActionGreeting:
		return GreetingReply
	case ActionThanks:
		return ThanksReply
	case ActionContextPrompt:
		reply := fmt.Sprintf("Based on our conversation about %s, could you provide more details about your symptoms? This will help me give you a more accurate assessment.",
			strings.Join(d.Symptoms, ", "))
		if d.OfferTreatment {
			reply += "\n\n" + TreatmentOffer
		}
		return reply
	}
	return FallbackReply
}

func (c *Composer) followUp(d Decision) string {
	entry, ok := c.lex.Resolve(d.Primary)
	if !ok {
		return FallbackReply
	}
	var b strings.Builder
	b.WriteString(entry.FollowUp)
	if len(d.Others) > 0 {
		fmt.Fprintf(&b, "\n\nI also notice you mentioned %s. Let's discuss each of these symptoms.", strings.Join(d.Others, ", "))
	}
	if d.OfferTreatment {
		b.WriteString("\n\n")
		b.WriteString(TreatmentOffer)
	}
	return b.String()
}

func (c *Composer) recommendation(symptoms []string) string {
	var b strings.Builder
	b.WriteString(RecommendIntro)
	for _, s := range symptoms {
		entry, ok := c.lex.Resolve(s)
		if !ok || len(entry.Treatments) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n\nFor %s:", s)
		for i, t := range entry.Treatments {
			if i == maxTreatmentsShown {
				break
			}
			b.WriteString("\n")
			b.WriteString(bullet)
			b.WriteString(t)
		}
	}
	b.WriteString("\n\n")
	b.WriteString(MedicalDisclaimer)
	return b.String()
}
