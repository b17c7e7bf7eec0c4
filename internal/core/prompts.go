package core

// Fixed texts used by the chat service, the LLM responder and the summary
// synthesizer.

const (
	// SystemPrompt instructs the external responder to behave as a cautious
	// symptom-assessment assistant that never gives a definitive diagnosis.
	SystemPrompt = `You are a helpful medical assistant that specializes in symptom assessment.
Your role is to:
1. Ask relevant follow-up questions about symptoms
2. Identify potential conditions based on reported symptoms
3. Provide evidence-based home treatment suggestions for common conditions
4. Recommend when professional medical care should be sought
5. Be clear, concise, and compassionate in your responses

Important guidelines:
- Do NOT provide definitive diagnoses
- Always emphasize when symptoms require emergency care or professional medical evaluation
- Base your suggestions on established medical guidelines
- When uncertain, err on the side of recommending professional evaluation
- Structure your responses clearly, with recommendations in bullet points when appropriate`

	// FirstMessage opens every new session.
	FirstMessage = "Hi, I'm your HealthScribe assistant. How can I help you today? You can type, upload an image, or use voice input to describe your symptoms."

	// FallbackApology replaces any reply the external responder failed to
	// produce.
	FallbackApology = "I'm sorry, I couldn't generate a response at this time. Please try again later."

	// CapMessage is sent when the patient exceeds the message cap for a
	// session.
	CapMessage = "We've reached the message limit for this session. Thank you for describing your symptoms. You can generate a summary of this conversation or start a new session."

	// GeneralConsultation stands in for the symptom list when nothing was
	// recognised.
	GeneralConsultation = "General consultation"

	SummaryDescription = "Summary of reported symptoms and recommended actions based on your conversation with HealthScribe AI."

	UrgentRecommendation = "URGENT: Your symptoms may require immediate medical attention. Please contact emergency services or visit the nearest emergency room."

	GeneralRecommendation = "Monitor your symptoms and rest. Maintain hydration and a balanced diet. If symptoms worsen or persist beyond a few days, consult a healthcare provider."
)
