package ports

import (
	"context"

	"verba/internal/domain"
)

// CaptureConfig describes how the microphone should be captured.
type CaptureConfig struct {
	InputFormat  string
	InputDevice  string
	OutputFormat string
	SampleRate   int
	Channels     int
	ChunkSize    int
}

// CaptureSession is a live microphone capture. Chunks are buffered internally
// in arrival order until Finalize assembles them into one artifact.
type CaptureSession interface {
	// Level returns the most recent short-window amplitude estimate in
	// [0,255]. It is O(1) and safe to poll at display-frame rate.
	Level() float64

	// MIMEType reports the encoder's actual output type.
	MIMEType() string

	// Finalize stops buffering and assembles the artifact. A capture that
	// produced no audio payload returns domain.ErrEmptyCapture.
	Finalize() (domain.AudioArtifact, error)

	// Release stops the hardware capture and all background work. Idempotent;
	// must be called on every exit path.
	Release() error
}

// AudioCapture acquires exclusive microphone access.
type AudioCapture interface {
	Acquire(ctx context.Context, cfg CaptureConfig) (CaptureSession, error)
}

// Transcriber is the speech-to-text collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, artifact domain.AudioArtifact) (string, error)
}

// TextGenerator is the text-generation collaborator. An empty result is a
// soft failure; callers fall back to local formatting.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AuthGateway is the auth/session collaborator. The core only consumes the
// opaque user ID to key persisted state.
type AuthGateway interface {
	SignUp(ctx context.Context, email, password string) (domain.AuthSession, error)
	SignIn(ctx context.Context, email, password string) (domain.AuthSession, error)
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (*domain.AuthSession, error)
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// Billing is the subscription/payment collaborator boundary.
type Billing interface {
	Plans() []domain.Plan
	CheckStatus(ctx context.Context, userID string) (domain.SubscriptionStatus, error)
	CreateCheckoutSession(ctx context.Context, planID, userID, email string, isTrial bool) (string, error)
}

// BlobStore is keyed local persistence for JSON blobs. Missing keys return
// found=false rather than an error.
type BlobStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits backend state and errors to the UI.
type EventSink interface {
	RecordingStateChanged(state domain.RecordingState, detail string)
	RecordingTick(elapsedSeconds int)
	AudioLevel(level float64)
	WorkflowChanged(status domain.WorkflowStatus)
	WorkflowError(code domain.ErrorCode, detail string)
}
