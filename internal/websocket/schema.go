package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	// Attempt stream
	ActionSelectAnswer  Action = "select_answer"
	ActionNavigate      Action = "navigate"
	ActionSubmit        Action = "submit"
	ActionConfirmSubmit Action = "confirm_submit"
	ActionCancelSubmit  Action = "cancel_submit"
	ActionPing          Action = "ping"

	// Player stream
	ActionOpenVideo Action = "open_video"
	ActionPlay      Action = "play"
	ActionPause     Action = "pause"
	ActionPosition  Action = "position"
	ActionEnded     Action = "ended"
)

// RequestPayload is the union of all client messages on both streams.
// Which fields matter depends on Action.
type RequestPayload struct {
	Action Action `json:"action"`

	// Attempt stream
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`
	Index  *int   `json:"index,omitempty"`

	// Player stream
	WatchSessionID  string  `json:"watch_session_id,omitempty"`
	VideoRef        string  `json:"video_ref,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	PositionSeconds float64 `json:"position_seconds,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError         Event = "error"
	EventPong          Event = "pong"
	EventState         Event = "state"
	EventTick          Event = "tick"
	EventAnswerSaved   Event = "answer_saved"
	EventCursor        Event = "cursor"
	EventSubmitSummary Event = "submit_summary"
	EventCompleted     Event = "completed"
	EventVideoOpened   Event = "video_opened"
)

type StateResponse struct {
	Event Event  `json:"event"`
	State string `json:"state"`
	// Score is set only for the ALREADY_COMPLETED state.
	Score *float64 `json:"score,omitempty"`
}

type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

type AnswerSavedResponse struct {
	Event    Event  `json:"event"`
	QID      string `json:"q_id"`
	Answered int    `json:"answered"`
}

type CursorResponse struct {
	Event Event `json:"event"`
	Index int   `json:"index"`
}

type SubmitSummaryResponse struct {
	Event      Event `json:"event"`
	Answered   int   `json:"answered"`
	Unanswered int   `json:"unanswered"`
	Total      int   `json:"total"`
}

type CompletedResponse struct {
	Event    Event       `json:"event"`
	ResultID string      `json:"result_id"`
	Score    float64     `json:"score"`
	Result   interface{} `json:"result"`
}

type VideoOpenedResponse struct {
	Event          Event  `json:"event"`
	WatchSessionID string `json:"watch_session_id"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
	// Terminal marks policy rejections the client must not retry.
	Terminal bool `json:"terminal,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
