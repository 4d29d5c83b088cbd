package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("VERBA_CONFIG_FILE", filepath.Join(home, "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HuggingFace.APIBaseURL != "https://api-inference.huggingface.co" {
		t.Fatalf("unexpected API base: %q", cfg.HuggingFace.APIBaseURL)
	}
	if cfg.HuggingFace.WhisperModel != "openai/whisper-large-v3" {
		t.Fatalf("unexpected whisper model: %q", cfg.HuggingFace.WhisperModel)
	}
	if cfg.HuggingFace.GenerationModel != "google/flan-t5-xl" {
		t.Fatalf("unexpected generation model: %q", cfg.HuggingFace.GenerationModel)
	}
	if cfg.Workflow.MaxUploadBytes != 25*1024*1024 {
		t.Fatalf("unexpected upload limit: %d", cfg.Workflow.MaxUploadBytes)
	}
	if cfg.Recording.MaxDurationSeconds != 7200 {
		t.Fatalf("unexpected recording cap: %d", cfg.Recording.MaxDurationSeconds)
	}
	if cfg.Billing.TrialDays != 7 {
		t.Fatalf("unexpected trial days: %d", cfg.Billing.TrialDays)
	}
	if cfg.Store.Path != filepath.Join(home, ".local", "share", "verba", "verba.sqlite") {
		t.Fatalf("unexpected store path: %q", cfg.Store.Path)
	}
}

func TestLoadRespectsEnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("VERBA_CONFIG_FILE", filepath.Join(home, "missing.yaml"))
	t.Setenv("HF_API_KEY", "hf-test-key")
	t.Setenv("HF_API_BASE", "https://example.com")
	t.Setenv("VERBA_WHISPER_MODEL", "openai/whisper-small")
	t.Setenv("VERBA_GENERATION_MODEL", "google/flan-t5-base")
	t.Setenv("VERBA_TRANSCRIBE_TIMEOUT_MS", "1500")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("VERBA_FFMPEG_COMMAND", "my-ffmpeg")
	t.Setenv("VERBA_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("VERBA_AUDIO_INPUT_DEVICE", "mic0")
	t.Setenv("VERBA_SAMPLE_RATE", "22050")
	t.Setenv("VERBA_CHANNELS", "2")
	t.Setenv("VERBA_MAX_RECORDING_SECONDS", "20")
	t.Setenv("VERBA_MAX_UPLOAD_BYTES", "1024")
	t.Setenv("VERBA_TRIAL_DAYS", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HuggingFace.APIKey != "hf-test-key" || cfg.HuggingFace.APIBaseURL != "https://example.com" {
		t.Fatalf("unexpected huggingface config: %+v", cfg.HuggingFace)
	}
	if cfg.HuggingFace.WhisperModel != "openai/whisper-small" || cfg.HuggingFace.GenerationModel != "google/flan-t5-base" {
		t.Fatalf("unexpected models: %+v", cfg.HuggingFace)
	}
	if cfg.HuggingFace.TranscribeTimeout != 1500*time.Millisecond {
		t.Fatalf("unexpected transcribe timeout: %s", cfg.HuggingFace.TranscribeTimeout)
	}
	if cfg.Supabase.URL != "https://proj.supabase.co" || cfg.Supabase.AnonKey != "anon" {
		t.Fatalf("unexpected supabase config: %+v", cfg.Supabase)
	}
	if cfg.Audio.RecorderCommand != "my-ffmpeg" || cfg.Audio.InputFormat != "alsa" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 22050 || cfg.Audio.Channels != 2 {
		t.Fatalf("unexpected sample/channels: %+v", cfg.Audio)
	}
	if cfg.Recording.MaxDurationSeconds != 20 {
		t.Fatalf("unexpected recording cap: %d", cfg.Recording.MaxDurationSeconds)
	}
	if cfg.Workflow.MaxUploadBytes != 1024 {
		t.Fatalf("unexpected upload limit: %d", cfg.Workflow.MaxUploadBytes)
	}
	if cfg.Billing.TrialDays != 14 {
		t.Fatalf("unexpected trial days: %d", cfg.Billing.TrialDays)
	}
}

func TestLoadReadsConfigFileWithEnvPriority(t *testing.T) {
	home := t.TempDir()
	file := filepath.Join(home, "config.yaml")
	contents := `
huggingface:
  api_key: file-key
  whisper_model: openai/whisper-medium
supabase:
  url: https://file.supabase.co
audio:
  input_device: file-mic
  sample_rate: 8000
recording:
  max_duration_seconds: 30
store:
  path: /tmp/file-store.sqlite
`
	if err := os.WriteFile(file, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("VERBA_CONFIG_FILE", file)
	t.Setenv("VERBA_AUDIO_INPUT_DEVICE", "env-mic")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HuggingFace.APIKey != "file-key" {
		t.Fatalf("expected file api key, got %q", cfg.HuggingFace.APIKey)
	}
	if cfg.HuggingFace.WhisperModel != "openai/whisper-medium" {
		t.Fatalf("expected file whisper model, got %q", cfg.HuggingFace.WhisperModel)
	}
	if cfg.Supabase.URL != "https://file.supabase.co" {
		t.Fatalf("expected file supabase url, got %q", cfg.Supabase.URL)
	}
	if cfg.Audio.InputDevice != "env-mic" {
		t.Fatalf("env should win over file, got %q", cfg.Audio.InputDevice)
	}
	if cfg.Audio.SampleRate != 8000 {
		t.Fatalf("expected file sample rate, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Recording.MaxDurationSeconds != 30 {
		t.Fatalf("expected file recording cap, got %d", cfg.Recording.MaxDurationSeconds)
	}
	if cfg.Store.Path != "/tmp/file-store.sqlite" {
		t.Fatalf("expected file store path, got %q", cfg.Store.Path)
	}
}

func TestLoadRejectsMalformedConfigFile(t *testing.T) {
	home := t.TempDir()
	file := filepath.Join(home, "bad.yaml")
	if err := os.WriteFile(file, []byte("huggingface: [not a map\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("VERBA_CONFIG_FILE", file)

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadInvalidNumericValuesFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("VERBA_CONFIG_FILE", filepath.Join(home, "missing.yaml"))
	t.Setenv("VERBA_SAMPLE_RATE", "bad")
	t.Setenv("VERBA_CHANNELS", "-2")
	t.Setenv("VERBA_AUDIO_CHUNK_SIZE", "5")
	t.Setenv("VERBA_MAX_RECORDING_SECONDS", "0")
	t.Setenv("VERBA_MAX_UPLOAD_BYTES", "not-a-number")
	t.Setenv("VERBA_TRANSCRIBE_TIMEOUT_MS", "-10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Fatalf("expected default channels, got %d", cfg.Audio.Channels)
	}
	if cfg.Audio.ChunkSize != 4096 {
		t.Fatalf("expected chunk size fallback, got %d", cfg.Audio.ChunkSize)
	}
	if cfg.Recording.MaxDurationSeconds != 7200 {
		t.Fatalf("expected default recording cap, got %d", cfg.Recording.MaxDurationSeconds)
	}
	if cfg.Workflow.MaxUploadBytes != 25*1024*1024 {
		t.Fatalf("expected default upload limit, got %d", cfg.Workflow.MaxUploadBytes)
	}
	if cfg.HuggingFace.TranscribeTimeout != 60*time.Second {
		t.Fatalf("expected default transcribe timeout, got %s", cfg.HuggingFace.TranscribeTimeout)
	}
}
