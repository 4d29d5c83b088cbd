package domain

import "time"

// RecordingState models the lifecycle of one microphone capture attempt.
type RecordingState string

const (
	RecordingStateIdle      RecordingState = "idle"
	RecordingStateAcquiring RecordingState = "acquiring"
	RecordingStateRecording RecordingState = "recording"
	RecordingStateStopped   RecordingState = "stopped"
	RecordingStateReleased  RecordingState = "released"
)

// WorkflowStep models the linear transcribe pipeline.
type WorkflowStep string

const (
	StepCapture     WorkflowStep = "capture"
	StepStyleSelect WorkflowStep = "style_select"
	StepResult      WorkflowStep = "result"
)

// ErrorCode identifies non-fatal and fatal backend errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodePermission    ErrorCode = "permission_denied"
	ErrorCodeEmptyCapture  ErrorCode = "empty_capture"
	ErrorCodeValidation    ErrorCode = "validation"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeGeneration    ErrorCode = "generation"
	ErrorCodeStorage       ErrorCode = "storage"
	ErrorCodeClipboard     ErrorCode = "clipboard"
	ErrorCodeAuth          ErrorCode = "auth"
)

// StyleTask enumerates the built-in reformatting styles.
type StyleTask string

const (
	StyleFormat       StyleTask = "format"
	StyleSummarize    StyleTask = "summarize"
	StyleEmail        StyleTask = "email"
	StyleMeetingNotes StyleTask = "meeting_notes"
	StyleBulletPoints StyleTask = "bullet_points"
	StyleActionItems  StyleTask = "action_items"
	StyleQAFormat     StyleTask = "qa_format"
	StyleNote         StyleTask = "note"
	StyleCustom       StyleTask = "custom"
)

// Style is the user's reformatting selection. Instruction is only set for
// StyleCustom and carries the free-text directive verbatim.
type Style struct {
	Task        StyleTask `json:"task"`
	Instruction string    `json:"instruction,omitempty"`
}

// DefaultStyle is applied before any explicit selection; raw transcripts are
// never shown without at least this pass.
func DefaultStyle() Style {
	return Style{Task: StyleFormat}
}

// CustomStyle wraps a free-text instruction as a tagged style variant.
func CustomStyle(instruction string) Style {
	return Style{Task: StyleCustom, Instruction: instruction}
}

// AudioArtifact is an immutable captured or uploaded audio payload.
type AudioArtifact struct {
	Bytes           []byte `json:"-"`
	MIMEType        string `json:"mimeType"`
	DurationSeconds int    `json:"durationSeconds"`
	SourceLabel     string `json:"sourceLabel"`
}

// RecordingStatus summarizes the recorder for the UI.
type RecordingStatus struct {
	State          RecordingState `json:"state"`
	ElapsedSeconds int            `json:"elapsedSeconds"`
	Level          float64        `json:"level"`
	PlaybackPath   string         `json:"playbackPath,omitempty"`
	Message        string         `json:"message,omitempty"`
}

// WorkflowStatus is a snapshot of the transcription pipeline state.
// SourceLabel names the audio under (or awaiting) transcription so the UI can
// show what a retry would resubmit.
type WorkflowStatus struct {
	Step          WorkflowStep `json:"step"`
	RawText       string       `json:"rawText"`
	ProcessedText string       `json:"processedText"`
	Style         Style        `json:"style"`
	Busy          bool         `json:"busy"`
	Degraded      bool         `json:"degraded"`
	LastError     string       `json:"lastError"`
	SourceLabel   string       `json:"sourceLabel,omitempty"`
}

// Note is a saved transcription, appended per user and never mutated.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Duration  string    `json:"duration"`
}

// Plan describes one subscription offering.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Interval string   `json:"interval"`
	Features []string `json:"features"`
	PriceID  string   `json:"stripePriceId"`
}

// SubscriptionStatus is a read-mostly snapshot of the payment collaborator.
type SubscriptionStatus struct {
	Active            bool       `json:"active"`
	Plan              string     `json:"plan,omitempty"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	TrialEnd          *time.Time `json:"trialEnd,omitempty"`
	InTrial           bool       `json:"isInTrial"`
}

// CheckoutSnapshot is what the checkout flow persists locally; status checks
// recompute SubscriptionStatus from it.
type CheckoutSnapshot struct {
	Date             time.Time  `json:"date"`
	Plan             string     `json:"plan"`
	Status           string     `json:"status"`
	InTrial          bool       `json:"isInTrial"`
	TrialEnd         *time.Time `json:"trialEnd,omitempty"`
	CurrentPeriodEnd time.Time  `json:"currentPeriodEnd"`
}

// User is the opaque identity the core keys persisted state by.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthSession is an authenticated session with the auth collaborator.
type AuthSession struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         User      `json:"user"`
}
