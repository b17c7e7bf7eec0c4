package pkg

import "time"

// Sender describes who authored a message.  A session only ever has two
// parties: the patient and the assistant.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// MessageKind tells plain text apart from messages that carry an image.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
)

// Message represents a chat message in a session.  Transcripts are
// append-only and ordered by creation.
type Message struct {
	ID        int64       `json:"id,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Sender    Sender      `json:"sender"`
	Content   string      `json:"content"`
	Kind      MessageKind `json:"kind"`
	ImageRef  string      `json:"image_ref,omitempty"`
	CreatedAt time.Time   `json:"timestamp"`
}

// Stage is the coarse conversational phase tracked by the dialogue policy.
type Stage string

const (
	StageInitial      Stage = "initial"
	StageAssessing    Stage = "assessing"
	StageRecommending Stage = "recommending"
)

// ConversationContext is the running state threaded through every turn.
// Detected holds the cumulative canonical symptoms in first-mention order;
// History holds every symptom mentioned, in the order they were mentioned.
type ConversationContext struct {
	Detected []string `json:"detected_symptoms"`
	Stage    Stage    `json:"stage"`
	History  []string `json:"historical_context"`
}

// NewConversationContext returns the context of a fresh session.
func NewConversationContext() ConversationContext {
	return ConversationContext{Stage: StageInitial}
}

// Has reports whether the canonical symptom has already been detected.
func (c ConversationContext) Has(symptom string) bool {
	for _, s := range c.Detected {
		if s == symptom {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no backing arrays with c.
func (c ConversationContext) Clone() ConversationContext {
	return ConversationContext{
		Detected: append([]string(nil), c.Detected...),
		Stage:    c.Stage,
		History:  append([]string(nil), c.History...),
	}
}

// Session represents one chat session with the assistant.
type Session struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	Context   ConversationContext `json:"context"`
}

// Severity is the coarse triage tier attached to a summary.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SummaryStatus tracks whether a summary has been minted.
type SummaryStatus string

const (
	StatusPending SummaryStatus = "pending"
	StatusMinted  SummaryStatus = "minted"
)

// MedicalSummary is produced once from a finished transcript.  Only the
// storage layer changes it afterwards, to flip Status and attach an owner.
type MedicalSummary struct {
	ID             string        `json:"id"`
	Date           string        `json:"date"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Symptoms       []string      `json:"symptoms"`
	Recommendation string        `json:"recommendation"`
	Severity       Severity      `json:"severity"`
	Status         SummaryStatus `json:"status"`
	OwnerWallet    string        `json:"owner_wallet,omitempty"`
}

// SendRequest is the body of a patient message.
type SendRequest struct {
	Content  string `json:"content"`
	ImageRef string `json:"image_ref,omitempty"`
}

// SendResponse contains the assistant's reply and whether the session is
// capped due to exceeding the message limit.
type SendResponse struct {
	Reply    string   `json:"reply"`
	Stage    Stage    `json:"stage"`
	Detected []string `json:"detected_symptoms"`
	Capped   bool     `json:"capped"`
}

// MintRequest carries the wallet that will own a minted summary.
type MintRequest struct {
	Wallet string `json:"wallet"`
}
