package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"verba/internal/domain"
	"verba/internal/ports"
)

func TestCaptureFinalizePreservesChunkOrder(t *testing.T) {
	t.Parallel()

	// Header padding plus a recognizable ordered payload.
	header := make([]byte, wavHeaderBytes)
	payload := []byte("abcdefghij")
	script := writeEmitScript(t, append(header, payload...))

	capture := NewFFMPEGCapture(script, nil)
	session, err := capture.Acquire(context.Background(), ports.CaptureConfig{ChunkSize: 256})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	waitForPayload(t, session.(*captureSession), len(payload))

	artifact, err := session.Finalize()
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if got := string(artifact.Bytes[wavHeaderBytes:]); got != string(payload) {
		t.Fatalf("chunks reassembled out of order: %q", got)
	}
	if artifact.MIMEType != "audio/wav" {
		t.Fatalf("unexpected mime type: %q", artifact.MIMEType)
	}
	if artifact.SourceLabel != "recording.wav" {
		t.Fatalf("unexpected source label: %q", artifact.SourceLabel)
	}
}

func TestCaptureFinalizeEmptyPayloadIsSentinel(t *testing.T) {
	t.Parallel()

	// Only a header, no PCM payload.
	script := writeEmitScript(t, make([]byte, wavHeaderBytes))

	capture := NewFFMPEGCapture(script, nil)
	session, err := capture.Acquire(context.Background(), ports.CaptureConfig{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	_, err = session.Finalize()
	if !errors.Is(err, domain.ErrEmptyCapture) {
		t.Fatalf("expected ErrEmptyCapture, got %v", err)
	}
}

func TestCaptureAcquireEarlyExitIsPermissionDenied(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'no such device' 1>&2\nexit 1\n")
	capture := NewFFMPEGCapture(script, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := capture.Acquire(ctx, ports.CaptureConfig{})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestCaptureReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	script := writeEmitScript(t, make([]byte, wavHeaderBytes+64))
	capture := NewFFMPEGCapture(script, nil)

	session, err := capture.Acquire(context.Background(), ports.CaptureConfig{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := session.Release(); err != nil {
			t.Fatalf("release %d failed: %v", i+1, err)
		}
	}
	if level := session.Level(); level != 0 {
		t.Fatalf("expected zero level after release, got %f", level)
	}
}

func TestPCMLevel(t *testing.T) {
	t.Parallel()

	if got := PCMLevel(nil); got != 0 {
		t.Fatalf("expected silence for empty payload, got %f", got)
	}

	silence := make([]byte, 32)
	if got := PCMLevel(silence); got != 0 {
		t.Fatalf("expected 0 for silence, got %f", got)
	}

	loud := make([]byte, 4)
	positive := int16(16384)
	negative := int16(-16384)
	binary.LittleEndian.PutUint16(loud[0:2], uint16(positive))
	binary.LittleEndian.PutUint16(loud[2:4], uint16(negative))
	got := PCMLevel(loud)
	if got < 127 || got > 128 {
		t.Fatalf("expected half-scale level around 127.5, got %f", got)
	}
}

func TestPCMDurationSeconds(t *testing.T) {
	t.Parallel()

	// 16 kHz mono s16le: 32000 bytes per second.
	if got := PCMDurationSeconds(32000*5, 16000, 1); got != 5 {
		t.Fatalf("expected 5s, got %d", got)
	}
	if got := PCMDurationSeconds(32000*5+20000, 16000, 1); got != 6 {
		t.Fatalf("expected rounding to 6s, got %d", got)
	}
	if got := PCMDurationSeconds(100, 0, 1); got != 0 {
		t.Fatalf("expected 0 for invalid rate, got %d", got)
	}
}

func TestLevelSamplerEmitsAndStops(t *testing.T) {
	t.Parallel()

	source := staticLevel(42)
	levels := make(chan float64, 64)
	sampler := NewLevelSampler(source, time.Millisecond, func(level float64) {
		select {
		case levels <- level:
		default:
		}
	})

	sampler.Start()
	select {
	case level := <-levels:
		if level != 42 {
			t.Fatalf("unexpected level: %f", level)
		}
	case <-time.After(time.Second):
		t.Fatalf("sampler never emitted")
	}

	sampler.Stop()
	sampler.Stop()
}

func TestLevelSamplerStopWithoutStart(t *testing.T) {
	t.Parallel()

	sampler := NewLevelSampler(staticLevel(0), time.Millisecond, nil)
	sampler.Stop()
}

func TestMIMEHelpers(t *testing.T) {
	t.Parallel()

	if got := MIMEForMuxer("wav"); got != "audio/wav" {
		t.Fatalf("unexpected muxer mime: %q", got)
	}
	if got := MIMEForMuxer("unknown"); got != "audio/wav" {
		t.Fatalf("expected wav fallback, got %q", got)
	}
	if got := MIMEFromFilename("meeting.MP3"); got != "audio/mpeg" {
		t.Fatalf("unexpected upload mime: %q", got)
	}
	if got := MIMEFromFilename("notes.txt"); got != "" {
		t.Fatalf("expected empty mime for unknown extension, got %q", got)
	}
	if got := ExtensionForMIME("audio/webm"); got != ".webm" {
		t.Fatalf("unexpected extension: %q", got)
	}
}

type staticLevel float64

func (s staticLevel) Level() float64 { return float64(s) }

func waitForPayload(t *testing.T, session *captureSession, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		session.mu.Lock()
		got := session.payloadBytes
		session.mu.Unlock()
		if got >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("capture never buffered %d payload bytes", want)
}

func writeEmitScript(t *testing.T, data []byte) string {
	t.Helper()
	payload := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(payload, data, 0o600); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}
	return writeScript(t, "emit.sh", fmt.Sprintf("#!/usr/bin/env bash\ncat %q\nsleep 2\n", payload))
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
