package core

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"healthscribe/internal/triage"
	"healthscribe/pkg"
)

var (
	severeKeywords = []string{"severe", "intense", "unbearable", "extreme", "worst", "emergency", "critical"}
	mediumKeywords = []string{"moderate", "uncomfortable", "painful", "difficulty", "problem"}
	emergencySet   = []string{"chest pain", "difficulty breathing", "shortness of breath"}
)

// mediumMessageCount is the number of user messages above which a
// conversation is at least medium severity.
const mediumMessageCount = 3

// patternRule adds a symptom when every group has at least one phrase
// present in the transcript.
type patternRule struct {
	symptom string
	groups  [][]string
}

var patternRules = []patternRule{
	{symptom: "difficulty breathing", groups: [][]string{{"can't breathe", "trouble breathing"}}},
	{symptom: "sore throat", groups: [][]string{{"throat"}, {"hurts", "pain"}}},
	{symptom: "stomach pain", groups: [][]string{{"stomach"}, {"hurts", "pain"}}},
}

// recommendationRule is one row of the first-match recommendation table.
type recommendationRule struct {
	name  string
	match func(symptoms []string, severity pkg.Severity) bool
	text  string
}

var recommendationRules = []recommendationRule{
	{
		name: "emergency",
		match: func(s []string, sev pkg.Severity) bool {
			return sev == pkg.SeverityHigh || hasAny(s, emergencySet...)
		},
		text: UrgentRecommendation,
	},
	{
		name:  "headache",
		match: func(s []string, _ pkg.Severity) bool { return hasAny(s, "headache") },
		text:  "Rest in a quiet, dark room. Stay hydrated and consider over-the-counter pain relievers like acetaminophen or ibuprofen. If persistent or severe, consult a healthcare provider.",
	},
	{
		name:  "fever",
		match: func(s []string, _ pkg.Severity) bool { return hasAny(s, "fever") },
		text:  "Rest, drink fluids, and monitor temperature. Take acetaminophen or ibuprofen as directed to reduce fever. Seek medical attention if fever is high (over 103°F/39.4°C) or persistent beyond 3 days.",
	},
	{
		name:  "throat",
		match: func(s []string, _ pkg.Severity) bool { return hasAny(s, "cough", "sore throat") },
		text:  "Stay hydrated, use throat lozenges or warm saltwater gargles. Consider over-the-counter cough medicine. If symptoms persist beyond a week or are severe, consult a healthcare provider.",
	},
	{
		name: "breathing",
		match: func(s []string, _ pkg.Severity) bool {
			for _, x := range s {
				if strings.Contains(x, "breathing") {
					return true
				}
			}
			return false
		},
		text: "Sit upright, use rescue medications if prescribed. If breathing difficulty is severe or worsening, seek emergency care immediately.",
	},
	{
		name:  "stomach",
		match: func(s []string, _ pkg.Severity) bool { return hasAny(s, "nausea", "vomiting") },
		text:  "Stay hydrated with small sips of clear fluids. Avoid solid foods until symptoms improve. Try ginger tea or plain crackers. If symptoms persist beyond 24 hours or if signs of dehydration appear, seek medical attention.",
	},
	{
		name:  "dizziness",
		match: func(s []string, _ pkg.Severity) bool { return hasAny(s, "dizziness", "dizzy") },
		text:  "Sit or lie down immediately when feeling dizzy. Avoid sudden movements or position changes. Stay hydrated and avoid driving or operating machinery. If dizziness persists or is accompanied by other symptoms, consult a healthcare provider.",
	},
	{
		name:  "rash",
		match: func(s []string, _ pkg.Severity) bool { return hasAny(s, "rash") },
		text:  "Avoid scratching the affected area. Apply cool compresses or calamine lotion to reduce itching. Consider over-the-counter antihistamines. If the rash is spreading, painful, or accompanied by fever, seek medical attention.",
	},
}

// Summarizer derives a MedicalSummary from a finished transcript.  It holds
// no mutable state and is safe for concurrent use.
type Summarizer struct {
	lex   *triage.Lexicon
	now   func() time.Time
	newID func() string
}

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer)

// WithClock overrides the time source used for the summary date.
func WithClock(now func() time.Time) SummarizerOption {
	return func(s *Summarizer) { s.now = now }
}

// WithIDGenerator overrides how summary ids are generated.
func WithIDGenerator(newID func() string) SummarizerOption {
	return func(s *Summarizer) { s.newID = newID }
}

// NewSummarizer constructs a summariser over the given lexicon.
func NewSummarizer(lex *triage.Lexicon, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{
		lex:   lex,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize analyses the user side of the transcript.  Two calls on the
// same transcript differ only in ID and Date.
func (s *Summarizer) Summarize(transcript []pkg.Message) pkg.MedicalSummary {
	var userMessages []string
	for _, m := range transcript {
		if m.Sender == pkg.SenderUser {
			userMessages = append(userMessages, m.Content)
		}
	}
	text := strings.ToLower(strings.Join(userMessages, " "))

	symptoms := s.ExtractSymptoms(text)
	severity := ClassifySeverity(text, len(userMessages))
	date := s.now().Format("January 2, 2006")

	return pkg.MedicalSummary{
		ID:             s.newID(),
		Date:           date,
		Title:          "Medical Summary - " + date,
		Description:    SummaryDescription,
		Symptoms:       symptoms,
		Recommendation: Recommend(symptoms, severity),
		Severity:       severity,
		Status:         pkg.StatusPending,
	}
}

// ExtractSymptoms scans case-folded text against the summary vocabulary
// and the pattern rules.  The result is never empty.
func (s *Summarizer) ExtractSymptoms(text string) []string {
	var found []string
	add := func(symptom string) {
		if !hasAny(found, symptom) {
			found = append(found, symptom)
		}
	}

	for _, v := range s.lex.Vocabulary() {
		if strings.Contains(text, v) {
			add(v)
		}
	}
	for _, r := range patternRules {
		if matchesAllGroups(text, r.groups) {
			add(r.symptom)
		}
	}
	if len(found) == 0 {
		return []string{GeneralConsultation}
	}
	return found
}

// ClassifySeverity maps keywords and user message volume onto a tier.
func ClassifySeverity(text string, userMessages int) pkg.Severity {
	switch {
	case containsAny(text, severeKeywords):
		return pkg.SeverityHigh
	case containsAny(text, mediumKeywords) || userMessages > mediumMessageCount:
		return pkg.SeverityMedium
	}
	return pkg.SeverityLow
}

// Recommend returns the text of the first matching recommendation rule.
func Recommend(symptoms []string, severity pkg.Severity) string {
	for _, r := range recommendationRules {
		if r.match(symptoms, severity) {
			return r.text
		}
	}
	return GeneralRecommendation
}

func matchesAllGroups(text string, groups [][]string) bool {
	for _, g := range groups {
		if !containsAny(text, g) {
			return false
		}
	}
	return true
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func hasAny(set []string, want ...string) bool {
	for _, s := range set {
		for _, w := range want {
			if s == w {
				return true
			}
		}
	}
	return false
}
