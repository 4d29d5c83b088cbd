package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"verba/internal/domain"
	"verba/internal/ports"
	"verba/internal/textfmt"
)

var (
	// ErrWorkflowBusy is returned when a transcription is already running.
	ErrWorkflowBusy = errors.New("transcription already in progress")

	// ErrWorkflowClosed is returned after Close.
	ErrWorkflowClosed = errors.New("workflow is closed")

	// ErrNoTranscript is returned by style and result operations before any
	// transcription has completed.
	ErrNoTranscript = errors.New("no transcript available yet")

	// ErrUnknownStyle is returned for a style outside the instruction table.
	ErrUnknownStyle = errors.New("unknown style")

	// ErrNoResult is returned when the result step has no processed text.
	ErrNoResult = errors.New("no processed result available")
)

// acceptedMIMEPrefixes is the upload whitelist. Codec-qualified variants such
// as audio/webm;codecs=opus match by prefix.
var acceptedMIMEPrefixes = []string{
	"audio/wav",
	"audio/mp3",
	"audio/mpeg",
	"audio/webm",
	"audio/m4a",
	"audio/x-m4a",
	"audio/ogg",
}

// WorkflowConfig tunes one Workflow instance.
type WorkflowConfig struct {
	MaxUploadBytes    int64
	TranscribeTimeout time.Duration
	GenerateTimeout   time.Duration
}

// Workflow drives the three-step transcription pipeline: capture and
// validation, transcription, then style-directed reformatting. Reformatting
// runs asynchronously; a request sequence counter makes the latest style
// selection win and discards responses from superseded requests.
type Workflow struct {
	transcriber ports.Transcriber
	generator   ports.TextGenerator
	clipboard   ports.Clipboard
	events      ports.EventSink
	logger      *zap.Logger
	cfg         WorkflowConfig

	mu        sync.Mutex
	step      domain.WorkflowStep
	artifact  *domain.AudioArtifact
	rawText   string
	processed string
	style     domain.Style
	busy      bool
	degraded  bool
	lastError string
	seq       uint64
	closed    bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWorkflow(transcriber ports.Transcriber, generator ports.TextGenerator, clipboard ports.Clipboard, events ports.EventSink, logger *zap.Logger, cfg WorkflowConfig) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 * 1024 * 1024
	}
	if cfg.TranscribeTimeout <= 0 {
		cfg.TranscribeTimeout = 60 * time.Second
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Workflow{
		transcriber: transcriber,
		generator:   generator,
		clipboard:   clipboard,
		events:      events,
		logger:      logger,
		cfg:         cfg,
		step:        domain.StepCapture,
		style:       domain.DefaultStyle(),
		baseCtx:     ctx,
		cancel:      cancel,
	}
}

// ValidateArtifact applies the size and format whitelist checks. It never
// touches the network.
func ValidateArtifact(artifact domain.AudioArtifact, maxBytes int64) error {
	if int64(len(artifact.Bytes)) > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d byte limit", domain.ErrOversizedInput, len(artifact.Bytes), maxBytes)
	}
	mime := strings.ToLower(strings.TrimSpace(artifact.MIMEType))
	for _, accepted := range acceptedMIMEPrefixes {
		if strings.HasPrefix(mime, accepted) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, artifact.MIMEType)
}

// Submit validates the artifact and transcribes it. Validation failures are
// reported synchronously before any network call. On transcription success the
// workflow advances to style selection and immediately kicks off a formatting
// pass with the current style, so the raw transcript is never the final text.
func (w *Workflow) Submit(ctx context.Context, artifact domain.AudioArtifact) error {
	if err := ValidateArtifact(artifact, w.cfg.MaxUploadBytes); err != nil {
		w.mu.Lock()
		w.lastError = err.Error()
		status := w.statusLocked()
		w.mu.Unlock()
		w.events.WorkflowError(domain.ClassifyError(err, domain.ErrorCodeValidation), err.Error())
		w.events.WorkflowChanged(status)
		return err
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWorkflowClosed
	}
	if w.busy {
		w.mu.Unlock()
		return ErrWorkflowBusy
	}
	w.busy = true
	w.artifact = &artifact
	w.lastError = ""
	seq := w.seq
	status := w.statusLocked()
	w.mu.Unlock()
	w.events.WorkflowChanged(status)

	tctx, cancelT := context.WithTimeout(ctx, w.cfg.TranscribeTimeout)
	raw, err := w.transcriber.Transcribe(tctx, artifact)
	cancelT()
	raw = strings.TrimSpace(raw)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWorkflowClosed
	}
	if seq != w.seq {
		// Reset ran while we were transcribing; the attempt is discarded.
		w.mu.Unlock()
		return nil
	}
	if err != nil || raw == "" {
		if err == nil {
			err = errors.New("transcription returned no text")
		}
		w.busy = false
		w.lastError = err.Error()
		status := w.statusLocked()
		w.mu.Unlock()
		w.logger.Warn("transcription failed", zap.Error(err))
		w.events.WorkflowError(domain.ErrorCodeTranscription, err.Error())
		w.events.WorkflowChanged(status)
		return fmt.Errorf("transcription failed: %w", err)
	}

	w.rawText = raw
	w.step = domain.StepStyleSelect
	style := w.style
	w.mu.Unlock()

	w.issueGeneration(style)
	return nil
}

// SelectStyle records the user's style choice and re-runs the formatting pass
// over the unchanged transcript. The most recent selection wins even while an
// earlier request is still in flight.
func (w *Workflow) SelectStyle(style domain.Style) error {
	normalized, ok := NormalizeStyle(style)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStyle, style.Task)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWorkflowClosed
	}
	if w.rawText == "" {
		w.mu.Unlock()
		return ErrNoTranscript
	}
	w.mu.Unlock()

	w.issueGeneration(normalized)
	return nil
}

// issueGeneration starts an asynchronous formatting pass. The sequence number
// captured here is compared when the response lands; a stale response is
// discarded without touching state.
func (w *Workflow) issueGeneration(style domain.Style) {
	w.mu.Lock()
	if w.closed || w.rawText == "" {
		w.mu.Unlock()
		return
	}
	w.style = style
	w.seq++
	seq := w.seq
	w.busy = true
	if w.step == domain.StepResult {
		w.step = domain.StepStyleSelect
	}
	raw := w.rawText
	status := w.statusLocked()
	w.mu.Unlock()
	w.events.WorkflowChanged(status)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		gctx, cancel := context.WithTimeout(w.baseCtx, w.cfg.GenerateTimeout)
		defer cancel()
		out, err := w.generator.Generate(gctx, BuildPrompt(style, raw))
		out = strings.TrimSpace(out)

		w.mu.Lock()
		if w.closed || seq != w.seq {
			w.mu.Unlock()
			return
		}

		var degradedDetail string
		if err != nil || out == "" {
			if err == nil {
				err = errors.New("text generation returned no output")
			}
			w.processed = textfmt.Format(raw)
			w.degraded = true
			w.lastError = err.Error()
			degradedDetail = err.Error()
		} else {
			w.processed = out
			w.degraded = false
			w.lastError = ""
		}
		w.step = domain.StepResult
		w.busy = false
		status := w.statusLocked()
		w.mu.Unlock()

		if degradedDetail != "" {
			w.logger.Warn("generation failed, using local formatting", zap.Error(err))
			w.events.WorkflowError(domain.ErrorCodeGeneration, degradedDetail)
		}
		w.events.WorkflowChanged(status)
	}()
}

// Reset returns the workflow to the capture step and invalidates any
// generation still in flight.
func (w *Workflow) Reset() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.seq++
	w.step = domain.StepCapture
	w.artifact = nil
	w.rawText = ""
	w.processed = ""
	w.style = domain.DefaultStyle()
	w.busy = false
	w.degraded = false
	w.lastError = ""
	status := w.statusLocked()
	w.mu.Unlock()
	w.events.WorkflowChanged(status)
}

// Close cancels in-flight work and waits for goroutines to finish. No state
// changes or events are emitted afterwards.
func (w *Workflow) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.seq++
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}

// Status reports a snapshot of the pipeline.
func (w *Workflow) Status() domain.WorkflowStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statusLocked()
}

func (w *Workflow) statusLocked() domain.WorkflowStatus {
	status := domain.WorkflowStatus{
		Step:          w.step,
		RawText:       w.rawText,
		ProcessedText: w.processed,
		Style:         w.style,
		Busy:          w.busy,
		Degraded:      w.degraded,
		LastError:     w.lastError,
	}
	if w.artifact != nil {
		status.SourceLabel = w.artifact.SourceLabel
	}
	return status
}

// CopyResult places the processed text on the system clipboard.
func (w *Workflow) CopyResult(ctx context.Context) error {
	w.mu.Lock()
	processed := w.processed
	w.mu.Unlock()
	if processed == "" {
		return ErrNoResult
	}
	if err := w.clipboard.SetText(ctx, processed); err != nil {
		w.events.WorkflowError(domain.ErrorCodeClipboard, err.Error())
		return fmt.Errorf("could not copy result: %w", err)
	}
	return nil
}

// Download returns the processed text as a named text file payload.
func (w *Workflow) Download() (string, []byte, error) {
	w.mu.Lock()
	processed := w.processed
	w.mu.Unlock()
	if processed == "" {
		return "", nil, ErrNoResult
	}
	return "transcription.txt", []byte(processed), nil
}

// Artifact returns the artifact under transcription, if any.
func (w *Workflow) Artifact() (domain.AudioArtifact, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.artifact == nil {
		return domain.AudioArtifact{}, false
	}
	return *w.artifact, true
}
