package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config stores runtime configuration for the application.
type Config struct {
	HuggingFace HuggingFaceConfig
	Supabase    SupabaseConfig
	Audio       AudioConfig
	Recording   RecordingConfig
	Workflow    WorkflowConfig
	Store       StoreConfig
	Billing     BillingConfig
}

type HuggingFaceConfig struct {
	APIKey            string
	APIBaseURL        string
	WhisperModel      string
	GenerationModel   string
	TranscribeTimeout time.Duration
	GenerateTimeout   time.Duration
}

type SupabaseConfig struct {
	URL     string
	AnonKey string
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	OutputFormat    string
	SampleRate      int
	Channels        int
	ChunkSize       int
}

type RecordingConfig struct {
	MaxDurationSeconds int
	PlaybackDir        string
}

type WorkflowConfig struct {
	MaxUploadBytes int64
}

type StoreConfig struct {
	Path string
}

type BillingConfig struct {
	TrialDays int
}

// Load resolves configuration from an optional YAML file, a .env file, and
// environment variables, in increasing priority, with sensible defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := Config{
		HuggingFace: HuggingFaceConfig{
			APIBaseURL:        "https://api-inference.huggingface.co",
			WhisperModel:      "openai/whisper-large-v3",
			GenerationModel:   "google/flan-t5-xl",
			TranscribeTimeout: 60 * time.Second,
			GenerateTimeout:   30 * time.Second,
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			InputFormat:     "pulse",
			InputDevice:     "default",
			OutputFormat:    "wav",
			SampleRate:      16000,
			Channels:        1,
			ChunkSize:       4096,
		},
		Recording: RecordingConfig{
			MaxDurationSeconds: 7200,
			PlaybackDir:        filepath.Join(os.TempDir(), "verba"),
		},
		Workflow: WorkflowConfig{
			MaxUploadBytes: 25 * 1024 * 1024,
		},
		Store: StoreConfig{
			Path: filepath.Join(home, ".local", "share", "verba", "verba.sqlite"),
		},
		Billing: BillingConfig{
			TrialDays: 7,
		},
	}

	if err := applyFile(&cfg, configFilePath(home)); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Recording.MaxDurationSeconds <= 0 {
		cfg.Recording.MaxDurationSeconds = 7200
	}
	if cfg.Workflow.MaxUploadBytes <= 0 {
		cfg.Workflow.MaxUploadBytes = 25 * 1024 * 1024
	}
	if cfg.Billing.TrialDays <= 0 {
		cfg.Billing.TrialDays = 7
	}

	return cfg, nil
}

func configFilePath(home string) string {
	if path := strings.TrimSpace(os.Getenv("VERBA_CONFIG_FILE")); path != "" {
		return path
	}
	return filepath.Join(home, ".config", "verba", "config.yaml")
}

// fileConfig is the YAML shape; every field is optional.
type fileConfig struct {
	HuggingFace struct {
		APIKey          string `yaml:"api_key"`
		APIBaseURL      string `yaml:"api_base_url"`
		WhisperModel    string `yaml:"whisper_model"`
		GenerationModel string `yaml:"generation_model"`
	} `yaml:"huggingface"`
	Supabase struct {
		URL     string `yaml:"url"`
		AnonKey string `yaml:"anon_key"`
	} `yaml:"supabase"`
	Audio struct {
		RecorderCommand string `yaml:"recorder_command"`
		InputFormat     string `yaml:"input_format"`
		InputDevice     string `yaml:"input_device"`
		SampleRate      int    `yaml:"sample_rate"`
		Channels        int    `yaml:"channels"`
	} `yaml:"audio"`
	Recording struct {
		MaxDurationSeconds int `yaml:"max_duration_seconds"`
	} `yaml:"recording"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
}

func applyFile(cfg *Config, path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(contents, &file); err != nil {
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	setIfNotEmpty(&cfg.HuggingFace.APIKey, file.HuggingFace.APIKey)
	setIfNotEmpty(&cfg.HuggingFace.APIBaseURL, file.HuggingFace.APIBaseURL)
	setIfNotEmpty(&cfg.HuggingFace.WhisperModel, file.HuggingFace.WhisperModel)
	setIfNotEmpty(&cfg.HuggingFace.GenerationModel, file.HuggingFace.GenerationModel)
	setIfNotEmpty(&cfg.Supabase.URL, file.Supabase.URL)
	setIfNotEmpty(&cfg.Supabase.AnonKey, file.Supabase.AnonKey)
	setIfNotEmpty(&cfg.Audio.RecorderCommand, file.Audio.RecorderCommand)
	setIfNotEmpty(&cfg.Audio.InputFormat, file.Audio.InputFormat)
	setIfNotEmpty(&cfg.Audio.InputDevice, file.Audio.InputDevice)
	if file.Audio.SampleRate > 0 {
		cfg.Audio.SampleRate = file.Audio.SampleRate
	}
	if file.Audio.Channels > 0 {
		cfg.Audio.Channels = file.Audio.Channels
	}
	if file.Recording.MaxDurationSeconds > 0 {
		cfg.Recording.MaxDurationSeconds = file.Recording.MaxDurationSeconds
	}
	setIfNotEmpty(&cfg.Store.Path, file.Store.Path)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HuggingFace.APIKey = envOrDefault("HF_API_KEY", cfg.HuggingFace.APIKey)
	cfg.HuggingFace.APIBaseURL = envOrDefault("HF_API_BASE", cfg.HuggingFace.APIBaseURL)
	cfg.HuggingFace.WhisperModel = envOrDefault("VERBA_WHISPER_MODEL", cfg.HuggingFace.WhisperModel)
	cfg.HuggingFace.GenerationModel = envOrDefault("VERBA_GENERATION_MODEL", cfg.HuggingFace.GenerationModel)
	cfg.HuggingFace.TranscribeTimeout = envOrDefaultDurationMS("VERBA_TRANSCRIBE_TIMEOUT_MS", cfg.HuggingFace.TranscribeTimeout)
	cfg.HuggingFace.GenerateTimeout = envOrDefaultDurationMS("VERBA_GENERATE_TIMEOUT_MS", cfg.HuggingFace.GenerateTimeout)

	cfg.Supabase.URL = envOrDefault("SUPABASE_URL", cfg.Supabase.URL)
	cfg.Supabase.AnonKey = envOrDefault("SUPABASE_ANON_KEY", cfg.Supabase.AnonKey)

	cfg.Audio.RecorderCommand = envOrDefault("VERBA_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.InputFormat = envOrDefault("VERBA_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = envOrDefault("VERBA_AUDIO_INPUT_DEVICE", cfg.Audio.InputDevice)
	cfg.Audio.OutputFormat = envOrDefault("VERBA_AUDIO_OUTPUT_FORMAT", cfg.Audio.OutputFormat)
	cfg.Audio.SampleRate = envOrDefaultInt("VERBA_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrDefaultInt("VERBA_CHANNELS", cfg.Audio.Channels)
	cfg.Audio.ChunkSize = envOrDefaultInt("VERBA_AUDIO_CHUNK_SIZE", cfg.Audio.ChunkSize)

	cfg.Recording.MaxDurationSeconds = envOrDefaultInt("VERBA_MAX_RECORDING_SECONDS", cfg.Recording.MaxDurationSeconds)
	cfg.Recording.PlaybackDir = envOrDefault("VERBA_PLAYBACK_DIR", cfg.Recording.PlaybackDir)

	cfg.Workflow.MaxUploadBytes = envOrDefaultInt64("VERBA_MAX_UPLOAD_BYTES", cfg.Workflow.MaxUploadBytes)

	cfg.Store.Path = envOrDefault("VERBA_STORE_PATH", cfg.Store.Path)

	cfg.Billing.TrialDays = envOrDefaultInt("VERBA_TRIAL_DAYS", cfg.Billing.TrialDays)
}

func setIfNotEmpty(target *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*target = trimmed
	}
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultDurationMS(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}
