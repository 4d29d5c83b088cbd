package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"verba/internal/audio"
	"verba/internal/domain"
	"verba/internal/ports"
)

var (
	// ErrNoActiveRecording is returned by Stop when nothing is being captured.
	ErrNoActiveRecording = errors.New("no active recording session")

	// ErrRecorderReleased is returned once Cleanup has run; the controller is
	// terminal and cannot be restarted.
	ErrRecorderReleased = errors.New("recorder has been released")
)

// RecorderConfig tunes one RecordingController. TickInterval and LevelInterval
// default to one second and 16ms respectively when zero.
type RecorderConfig struct {
	Capture            ports.CaptureConfig
	MaxDurationSeconds int
	PlaybackDir        string
	TickInterval       time.Duration
	LevelInterval      time.Duration
}

// RecordingController owns the microphone session lifecycle: acquiring the
// device, ticking elapsed time, streaming level readings, and turning the
// buffered capture into an artifact on stop. All methods are safe for
// concurrent use; events are emitted outside the lock.
type RecordingController struct {
	capture ports.AudioCapture
	events  ports.EventSink
	logger  *zap.Logger
	cfg     RecorderConfig

	mu       sync.Mutex
	state    domain.RecordingState
	session  ports.CaptureSession
	sampler  *audio.LevelSampler
	stopTick chan struct{}
	elapsed  int
	gen      uint64
	artifact *domain.AudioArtifact
	playback string
}

func NewRecordingController(capture ports.AudioCapture, events ports.EventSink, logger *zap.Logger, cfg RecorderConfig) *RecordingController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.LevelInterval <= 0 {
		cfg.LevelInterval = 16 * time.Millisecond
	}
	return &RecordingController{
		capture: capture,
		events:  events,
		logger:  logger,
		cfg:     cfg,
		state:   domain.RecordingStateIdle,
	}
}

// Start acquires the microphone and begins capturing. Calling Start while a
// recording is already active discards that recording and starts fresh. Any
// previous artifact and playback file are invalidated either way.
func (c *RecordingController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == domain.RecordingStateReleased {
		c.mu.Unlock()
		return ErrRecorderReleased
	}
	prevSession, prevSampler, prevTick := c.detachSessionLocked()
	c.artifact = nil
	c.elapsed = 0
	c.removePlaybackLocked()
	c.state = domain.RecordingStateAcquiring
	acquireGen := c.gen
	c.mu.Unlock()

	c.teardownSession(prevSession, prevSampler, prevTick)
	c.events.RecordingStateChanged(domain.RecordingStateAcquiring, "")

	session, err := c.capture.Acquire(ctx, c.cfg.Capture)
	if err != nil {
		c.mu.Lock()
		if c.state == domain.RecordingStateAcquiring && c.gen == acquireGen {
			c.state = domain.RecordingStateIdle
		}
		c.mu.Unlock()
		c.events.RecordingStateChanged(domain.RecordingStateIdle, "microphone unavailable")
		return fmt.Errorf("failed to start recording: %w", err)
	}

	c.mu.Lock()
	if c.state != domain.RecordingStateAcquiring || c.gen != acquireGen {
		// Released or restarted while we were acquiring.
		c.mu.Unlock()
		_ = session.Release()
		return ErrRecorderReleased
	}
	c.session = session
	c.sampler = audio.NewLevelSampler(session, c.cfg.LevelInterval, c.events.AudioLevel)
	c.stopTick = make(chan struct{})
	c.gen++
	gen := c.gen
	tick := c.stopTick
	c.state = domain.RecordingStateRecording
	c.mu.Unlock()

	c.sampler.Start()
	go c.runTimer(gen, tick)
	c.events.RecordingStateChanged(domain.RecordingStateRecording, "")
	return nil
}

// runTimer advances elapsed seconds and enforces the duration cap. The
// generation guard keeps a timer from a superseded session inert.
func (c *RecordingController) runTimer(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.gen != gen || c.state != domain.RecordingStateRecording {
				c.mu.Unlock()
				return
			}
			c.elapsed++
			elapsed := c.elapsed
			limit := c.cfg.MaxDurationSeconds
			c.mu.Unlock()

			c.events.RecordingTick(elapsed)
			if limit > 0 && elapsed >= limit {
				c.logger.Info("recording reached duration cap, stopping",
					zap.Int("elapsed_seconds", elapsed))
				if _, err := c.Stop(context.Background()); err != nil && !errors.Is(err, ErrNoActiveRecording) {
					c.logger.Warn("auto-stop failed", zap.Error(err))
				}
				return
			}
		}
	}
}

// Stop finalizes the active capture into an artifact and writes a playback
// copy to disk. The stopped audio stays available until Start, Reset, or
// Cleanup invalidates it.
func (c *RecordingController) Stop(ctx context.Context) (domain.AudioArtifact, error) {
	c.mu.Lock()
	if c.state != domain.RecordingStateRecording {
		c.mu.Unlock()
		return domain.AudioArtifact{}, ErrNoActiveRecording
	}
	c.state = domain.RecordingStateStopped
	session, sampler, tick := c.detachSessionLocked()
	gen := c.gen
	elapsed := c.elapsed
	c.mu.Unlock()

	if tick != nil {
		close(tick)
	}
	if sampler != nil {
		sampler.Stop()
	}

	artifact, err := session.Finalize()
	if releaseErr := session.Release(); releaseErr != nil {
		c.logger.Warn("capture release failed", zap.Error(releaseErr))
	}
	if err != nil {
		c.mu.Lock()
		stale := c.gen != gen
		if !stale {
			c.state = domain.RecordingStateIdle
		}
		c.mu.Unlock()
		if !stale {
			c.events.RecordingStateChanged(domain.RecordingStateIdle, err.Error())
		}
		return domain.AudioArtifact{}, fmt.Errorf("failed to finalize recording: %w", err)
	}

	if artifact.DurationSeconds == 0 {
		artifact.DurationSeconds = elapsed
	}

	playback, playErr := c.writePlayback(artifact)
	if playErr != nil {
		c.logger.Warn("could not write playback file", zap.Error(playErr))
	}

	c.mu.Lock()
	if c.gen != gen {
		// A newer Start or Cleanup superseded this stop; its results must
		// not attach to the fresh session.
		c.mu.Unlock()
		if playback != "" {
			_ = os.Remove(playback)
		}
		return artifact, nil
	}
	c.artifact = &artifact
	c.removePlaybackLocked()
	c.playback = playback
	c.mu.Unlock()

	c.events.RecordingStateChanged(domain.RecordingStateStopped, "")
	return artifact, nil
}

// Reset discards any active or stopped recording and returns to idle.
func (c *RecordingController) Reset() {
	c.mu.Lock()
	if c.state == domain.RecordingStateReleased {
		c.mu.Unlock()
		return
	}
	session, sampler, tick := c.detachSessionLocked()
	c.artifact = nil
	c.elapsed = 0
	c.removePlaybackLocked()
	c.state = domain.RecordingStateIdle
	c.mu.Unlock()

	c.teardownSession(session, sampler, tick)
	c.events.RecordingStateChanged(domain.RecordingStateIdle, "recording discarded")
}

// Cleanup releases everything and makes the controller terminal. Idempotent.
func (c *RecordingController) Cleanup() {
	c.mu.Lock()
	if c.state == domain.RecordingStateReleased {
		c.mu.Unlock()
		return
	}
	session, sampler, tick := c.detachSessionLocked()
	c.artifact = nil
	c.removePlaybackLocked()
	c.state = domain.RecordingStateReleased
	c.mu.Unlock()

	c.teardownSession(session, sampler, tick)
	c.events.RecordingStateChanged(domain.RecordingStateReleased, "")
}

// Status reports a snapshot for the UI.
func (c *RecordingController) Status() domain.RecordingStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := domain.RecordingStatus{
		State:          c.state,
		ElapsedSeconds: c.elapsed,
		PlaybackPath:   c.playback,
	}
	if c.session != nil {
		status.Level = c.session.Level()
	}
	return status
}

// Artifact returns the most recent finalized recording, if any.
func (c *RecordingController) Artifact() (domain.AudioArtifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.artifact == nil {
		return domain.AudioArtifact{}, false
	}
	return *c.artifact, true
}

// Level returns the live input level, or zero when not capturing.
func (c *RecordingController) Level() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return 0
	}
	return c.session.Level()
}

// Elapsed returns the whole seconds recorded so far.
func (c *RecordingController) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// detachSessionLocked takes ownership of the live capture resources so they
// can be torn down outside the lock. The timer generation is bumped so a
// ticker still in flight sees stale state and exits.
func (c *RecordingController) detachSessionLocked() (ports.CaptureSession, *audio.LevelSampler, chan struct{}) {
	session, sampler, tick := c.session, c.sampler, c.stopTick
	c.session = nil
	c.sampler = nil
	c.stopTick = nil
	c.gen++
	return session, sampler, tick
}

func (c *RecordingController) teardownSession(session ports.CaptureSession, sampler *audio.LevelSampler, tick chan struct{}) {
	if tick != nil {
		close(tick)
	}
	if sampler != nil {
		sampler.Stop()
	}
	if session != nil {
		if err := session.Release(); err != nil {
			c.logger.Warn("capture release failed", zap.Error(err))
		}
	}
}

func (c *RecordingController) writePlayback(artifact domain.AudioArtifact) (string, error) {
	dir := c.cfg.PlaybackDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "verba")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	name := fmt.Sprintf("playback-%d%s", time.Now().UnixNano(), audio.ExtensionForMIME(artifact.MIMEType))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, artifact.Bytes, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// removePlaybackLocked deletes the previous playback file, if any. Stale
// playback paths must never outlive the artifact they were written from.
func (c *RecordingController) removePlaybackLocked() {
	if c.playback == "" {
		return
	}
	if err := os.Remove(c.playback); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("could not remove playback file", zap.String("path", c.playback), zap.Error(err))
	}
	c.playback = ""
}
