package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"verba/internal/domain"
	"verba/internal/ports"
)

// wavHeaderBytes is the canonical RIFF/WAVE header length produced by the
// ffmpeg wav muxer; bytes past it are raw PCM samples.
const wavHeaderBytes = 44

// FFMPEGCapture records microphone audio via an ffmpeg subprocess and buffers
// the encoded output in memory, chunk by chunk, in arrival order.
type FFMPEGCapture struct {
	command string
	logger  *zap.Logger
}

func NewFFMPEGCapture(command string, logger *zap.Logger) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFMPEGCapture{command: command, logger: logger}
}

// Acquire starts the capture subprocess. Failures to start, or an immediate
// exit (no device, access refused), are reported as domain.ErrPermissionDenied.
func (c *FFMPEGCapture) Acquire(ctx context.Context, cfg ports.CaptureConfig) (ports.CaptureSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "wav"
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", cfg.OutputFormat,
		"-",
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create capture stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start recorder: %v", domain.ErrPermissionDenied, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		detail := strings.TrimSpace(stderr.String())
		if detail == "" && err != nil {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%w: recorder exited before capture started: %s", domain.ErrPermissionDenied, detail)
	case <-time.After(250 * time.Millisecond):
	}

	c.logger.Debug("capture acquired",
		zap.String("input", cfg.InputDevice),
		zap.String("format", cfg.OutputFormat),
		zap.Int("sampleRate", cfg.SampleRate))

	session := &captureSession{
		stdout:     stdout,
		stderr:     &stderr,
		process:    cmd.Process,
		waitErr:    waitErr,
		logger:     c.logger,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		mimeType:   MIMEForMuxer(cfg.OutputFormat),
		chunkSize:  cfg.ChunkSize,
		readerDone: make(chan struct{}),
	}
	go session.readLoop()
	return session, nil
}

type captureSession struct {
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	process *os.Process
	waitErr <-chan error
	logger  *zap.Logger

	sampleRate int
	channels   int
	mimeType   string
	chunkSize  int

	mu           sync.Mutex
	chunks       [][]byte
	totalBytes   int
	payloadBytes int
	level        float64

	readerDone chan struct{}

	stopOnce sync.Once
	stopErr  error
	released bool
}

func (s *captureSession) readLoop() {
	defer close(s.readerDone)

	buf := make([]byte, s.chunkSize)
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			s.appendChunk(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				s.logger.Debug("capture read ended", zap.Error(err))
			}
			return
		}
	}
}

func (s *captureSession) appendChunk(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = append(s.chunks, chunk)

	// The level estimate only considers PCM payload, not the container header.
	start := 0
	if s.totalBytes < wavHeaderBytes {
		start = wavHeaderBytes - s.totalBytes
	}
	s.totalBytes += len(chunk)
	if start >= len(chunk) {
		return
	}
	payload := chunk[start:]
	s.payloadBytes += len(payload)
	s.level = PCMLevel(payload)
}

// Level returns the most recent amplitude estimate in [0,255].
func (s *captureSession) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *captureSession) MIMEType() string {
	return s.mimeType
}

// Finalize stops the subprocess and assembles buffered chunks, in arrival
// order, into one artifact.
func (s *captureSession) Finalize() (domain.AudioArtifact, error) {
	if err := s.stop(); err != nil {
		s.logger.Warn("capture did not stop cleanly", zap.Error(err))
	}
	<-s.readerDone

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.payloadBytes == 0 {
		return domain.AudioArtifact{}, domain.ErrEmptyCapture
	}

	data := make([]byte, 0, s.totalBytes)
	for _, chunk := range s.chunks {
		data = append(data, chunk...)
	}

	return domain.AudioArtifact{
		Bytes:           data,
		MIMEType:        s.mimeType,
		DurationSeconds: PCMDurationSeconds(s.payloadBytes, s.sampleRate, s.channels),
		SourceLabel:     "recording" + ExtensionForMIME(s.mimeType),
	}, nil
}

// Release stops the capture unconditionally. Safe to call multiple times and
// after Finalize.
func (s *captureSession) Release() error {
	err := s.stop()
	<-s.readerDone

	s.mu.Lock()
	s.released = true
	s.level = 0
	s.mu.Unlock()
	return err
}

func (s *captureSession) stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			if s.stopErr == nil {
				s.stopErr = closeErr
			}
		}

		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})

	return s.stopErr
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

var muxerMIMETypes = map[string]string{
	"wav":  "audio/wav",
	"mp3":  "audio/mpeg",
	"webm": "audio/webm",
	"ogg":  "audio/ogg",
	"ipod": "audio/m4a",
}

// MIMEForMuxer reports the MIME type the given ffmpeg output muxer encodes.
func MIMEForMuxer(muxer string) string {
	if mime, ok := muxerMIMETypes[strings.ToLower(strings.TrimSpace(muxer))]; ok {
		return mime
	}
	return "audio/wav"
}

var extensionMIMETypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".mpeg": "audio/mpeg",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".m4a":  "audio/m4a",
}

// MIMEFromFilename guesses the MIME type of an uploaded file from its
// extension. Unknown extensions return an empty string.
func MIMEFromFilename(name string) string {
	return extensionMIMETypes[strings.ToLower(filepath.Ext(name))]
}

// ExtensionForMIME is the inverse mapping used to label produced artifacts.
func ExtensionForMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/m4a", "audio/x-m4a":
		return ".m4a"
	default:
		return ".wav"
	}
}
