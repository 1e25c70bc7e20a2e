package intake

// VoiceCallEvent is the call-completion webhook payload from the voice-AI
// platform, normalized to the fields this core consumes. Category and
// location are best-effort extractions and may be empty.
type VoiceCallEvent struct {
	CallID          string
	Transcript      string
	Summary         string
	DurationSeconds int
	RecordingURL    string
	Category        string
	Location        string
	Zone            string
	CitizenName     string
	CitizenPhone    string
}

// SMSMessage is a raw inbound text from the SMS or WhatsApp gateway.
type SMSMessage struct {
	From string
	Body string
	Zone string
}

// WebForm is a structured web-portal submission.
type WebForm struct {
	Category     string
	Location     string
	Zone         string
	Description  string
	CitizenName  string
	CitizenPhone string
	Latitude     *float64
	Longitude    *float64
}
