package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload is any client message. Index and Answer belong to
// autosave; TimeTaken belongs to submit.
type RequestPayload struct {
	Action    Action `json:"action"`
	Index     *int   `json:"index,omitempty"`
	Answer    string `json:"ans"`
	TimeTaken int    `json:"time_taken"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSuccess Event = "success"
	EventGraded  Event = "graded"
	EventPong    Event = "pong"
)

type AutosaveResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
	Index  int    `json:"index"`
}

type GradedResponse struct {
	Event          Event  `json:"event"`
	Status         string `json:"status"`
	ReportID       string `json:"report_id"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalQuestions int    `json:"total_questions"`
	Percentage     int    `json:"percentage"`
	Verdict        string `json:"verdict"`
	Points         int    `json:"points"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
