package core

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"healthscribe/internal/llm"
	"healthscribe/internal/metrics"
	"healthscribe/internal/triage"
	"healthscribe/pkg"
)

// Responder produces the assistant's reply for one turn.  The rule engine
// (triage.Engine) and LLMResponder both satisfy it.
type Responder interface {
	Respond(ctx context.Context, t triage.Turn) (triage.Outcome, error)
}

var _ Responder = (*triage.Engine)(nil)

// DefaultResponderTimeout bounds a single external responder call.
const DefaultResponderTimeout = 30 * time.Second

// LLMResponder delegates replies to an external chat-completion model.
// Failures never reach the caller: they are logged and replaced with
// FallbackApology.  The conversation context passes through unchanged.
type LLMResponder struct {
	LLM     llm.Client
	Timeout time.Duration
}

// NewLLMResponder constructs a responder over the given client.
func NewLLMResponder(client llm.Client, timeout time.Duration) *LLMResponder {
	if timeout <= 0 {
		timeout = DefaultResponderTimeout
	}
	return &LLMResponder{LLM: client, Timeout: timeout}
}

// Respond sends the system prompt, the transcript and the new utterance.
func (r *LLMResponder) Respond(ctx context.Context, t triage.Turn) (triage.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	reply, err := r.LLM.Chat(ctx, BuildPrompt(t))
	if err == nil && strings.TrimSpace(reply) == "" {
		err = llm.ErrEmptyCompletion
	}
	if err != nil {
		slog.Warn("external responder failed", "error", err)
		metrics.ResponderFailures.Inc()
		return triage.Outcome{Text: FallbackApology, Context: t.Context, Action: triage.ActionFallback}, nil
	}
	return triage.Outcome{Text: reply, Context: t.Context, Action: triage.ActionExternal}, nil
}

// BuildPrompt converts a turn into the role-tagged message list expected by
// the external responder.
func BuildPrompt(t triage.Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(t.Transcript)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt})
	for _, m := range t.Transcript {
		role := llm.RoleAssistant
		if m.Sender == pkg.SenderUser {
			role = llm.RoleUser
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	content := t.Text
	if t.ImageRef != "" {
		content = strings.TrimSpace(content + "\n[The patient attached an image.]")
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: content})
	return msgs
}
