package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"healthscribe/internal/metrics"
	"healthscribe/internal/triage"
	"healthscribe/pkg"
)

// SessionRepository persists sessions, their transcripts and their
// conversation context.
type SessionRepository interface {
	CreateSession(ctx context.Context) (*pkg.Session, error)
	GetSession(ctx context.Context, sessionID string) (*pkg.Session, error)
	AppendMessage(ctx context.Context, sessionID string, m pkg.Message) (*pkg.Message, error)
	GetTranscript(ctx context.Context, sessionID string) ([]pkg.Message, error)
	CountUserMessages(ctx context.Context, sessionID string) (int, error)
	SaveContext(ctx context.Context, sessionID string, c pkg.ConversationContext) error
	ResetSession(ctx context.Context, sessionID string) error
}

// SummaryStore keeps generated summaries.
type SummaryStore interface {
	Save(ctx context.Context, s pkg.MedicalSummary) (pkg.MedicalSummary, error)
}

// ChatService orchestrates the chat between a patient and the assistant.
// Each turn runs to completion before the next one for the same session
// starts.
type ChatService struct {
	Repo       SessionRepository
	Responder  Responder
	Summarizer *Summarizer
	Store      SummaryStore
	MessageCap int
	// Delay is a cancellable pause before each reply.
	Delay time.Duration

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is dropped from the map once no caller holds or waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewChatService constructs a new ChatService.
func NewChatService(repo SessionRepository, responder Responder, summarizer *Summarizer, store SummaryStore, messageCap int) *ChatService {
	return &ChatService{
		Repo:       repo,
		Responder:  responder,
		Summarizer: summarizer,
		Store:      store,
		MessageCap: messageCap,
		locks:      make(map[string]*sessionLock),
	}
}

// StartSession creates a session and posts the opening greeting.
func (s *ChatService) StartSession(ctx context.Context) (*pkg.Session, []pkg.Message, error) {
	sess, err := s.Repo.CreateSession(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	greeting, err := s.Repo.AppendMessage(ctx, sess.ID, assistantMessage(FirstMessage))
	if err != nil {
		return nil, nil, fmt.Errorf("append greeting: %w", err)
	}
	return sess, []pkg.Message{*greeting}, nil
}

// Send processes one patient utterance and returns the assistant's reply.
func (s *ChatService) Send(ctx context.Context, sessionID string, req pkg.SendRequest) (*pkg.SendResponse, error) {
	text := strings.TrimSpace(req.Content)
	if text == "" && req.ImageRef == "" {
		return nil, pkg.ErrEmptyMessage
	}

	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	count, err := s.Repo.CountUserMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	if s.MessageCap > 0 && count >= s.MessageCap {
		if _, err := s.Repo.AppendMessage(ctx, sessionID, assistantMessage(CapMessage)); err != nil {
			return nil, fmt.Errorf("append cap message: %w", err)
		}
		return &pkg.SendResponse{Reply: CapMessage, Stage: sess.Context.Stage, Detected: sess.Context.Detected, Capped: true}, nil
	}

	transcript, err := s.Repo.GetTranscript(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	userMsg := pkg.Message{Sender: pkg.SenderUser, Content: text, Kind: pkg.KindText, CreatedAt: time.Now()}
	if req.ImageRef != "" {
		userMsg.Kind = pkg.KindImage
		userMsg.ImageRef = req.ImageRef
	}

	start := time.Now()
	if err := s.pause(ctx); err != nil {
		return nil, err
	}

	outcome, err := s.Responder.Respond(ctx, triage.Turn{
		Transcript: transcript,
		Context:    sess.Context,
		Text:       text,
		ImageRef:   req.ImageRef,
	})
	if err != nil {
		slog.Error("responder failed", "session_id", sessionID, "error", err)
		outcome = triage.Outcome{Text: FallbackApology, Context: sess.Context}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Nothing is written until the reply exists, so an abandoned turn
	// leaves the transcript as it was.
	if _, err := s.Repo.AppendMessage(ctx, sessionID, userMsg); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}
	if _, err := s.Repo.AppendMessage(ctx, sessionID, assistantMessage(outcome.Text)); err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}
	if err := s.Repo.SaveContext(ctx, sessionID, outcome.Context); err != nil {
		return nil, fmt.Errorf("save context: %w", err)
	}

	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	metrics.TurnsTotal.WithLabelValues(string(outcome.Context.Stage)).Inc()
	slog.Debug("turn processed",
		"session_id", sessionID,
		"action", outcome.Action.String(),
		"stage", outcome.Context.Stage,
		"detected", outcome.Context.Detected,
	)

	return &pkg.SendResponse{
		Reply:    outcome.Text,
		Stage:    outcome.Context.Stage,
		Detected: outcome.Context.Detected,
	}, nil
}

// Transcript returns the session and its messages.
func (s *ChatService) Transcript(ctx context.Context, sessionID string) (*pkg.Session, []pkg.Message, error) {
	sess, err := s.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.Repo.GetTranscript(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load transcript: %w", err)
	}
	return sess, msgs, nil
}

// Reset clears the transcript and context and posts a fresh greeting.
func (s *ChatService) Reset(ctx context.Context, sessionID string) ([]pkg.Message, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	if err := s.Repo.ResetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	greeting, err := s.Repo.AppendMessage(ctx, sessionID, assistantMessage(FirstMessage))
	if err != nil {
		return nil, fmt.Errorf("append greeting: %w", err)
	}
	return []pkg.Message{*greeting}, nil
}

// Summarize synthesizes a summary of the session so far and stores it as
// pending.
func (s *ChatService) Summarize(ctx context.Context, sessionID string) (pkg.MedicalSummary, error) {
	unlock := s.lock(sessionID)
	_, transcript, err := s.Transcript(ctx, sessionID)
	unlock()
	if err != nil {
		return pkg.MedicalSummary{}, err
	}

	summary := s.Summarizer.Summarize(transcript)
	saved, err := s.Store.Save(ctx, summary)
	if err != nil {
		return pkg.MedicalSummary{}, fmt.Errorf("save summary: %w", err)
	}
	metrics.SummariesTotal.WithLabelValues(string(saved.Severity)).Inc()
	slog.Info("summary generated", "session_id", sessionID, "summary_id", saved.ID, "severity", saved.Severity)
	return saved, nil
}

func (s *ChatService) pause(ctx context.Context) error {
	if s.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *ChatService) lock(sessionID string) func() {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*sessionLock)
	}
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

func assistantMessage(content string) pkg.Message {
	return pkg.Message{Sender: pkg.SenderAssistant, Content: content, Kind: pkg.KindText, CreatedAt: time.Now()}
}
