// Package hf implements the speech-to-text and text-generation collaborators
// against the Hugging Face inference API.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"verba/internal/domain"
)

// Config controls Hugging Face inference settings.
type Config struct {
	APIKey          string
	APIBaseURL      string
	WhisperModel    string
	GenerationModel string

	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// Transcriber implements ports.Transcriber over the inference API's audio
// endpoint.
type Transcriber struct {
	cfg Config
}

func NewTranscriber(cfg Config) *Transcriber {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api-inference.huggingface.co"
	}
	if cfg.WhisperModel == "" {
		cfg.WhisperModel = "openai/whisper-large-v3"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Transcriber{cfg: cfg}
}

func (t *Transcriber) Transcribe(ctx context.Context, artifact domain.AudioArtifact) (string, error) {
	if strings.TrimSpace(t.cfg.APIKey) == "" {
		return "", errors.New("HF_API_KEY is not configured")
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	label := artifact.SourceLabel
	if label == "" {
		label = "audio"
	}
	part, err := form.CreateFormFile("file", label)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(artifact.Bytes); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	endpoint := modelURL(t.cfg.APIBaseURL, t.cfg.WhisperModel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := t.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError("transcription", resp.StatusCode, payload)
	}

	var parsed struct {
		Text          string `json:"text"`
		GeneratedText string `json:"generated_text"`
		Error         string `json:"error"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("unexpected transcription response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("transcription rejected: %s", parsed.Error)
	}

	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		text = strings.TrimSpace(parsed.GeneratedText)
	}
	if text == "" {
		return "", errors.New("transcription returned no text")
	}
	return text, nil
}

func modelURL(base, model string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/models/" + model
}

// apiError extracts the inference API's error message when present; the raw
// status line is the fallback.
func apiError(op string, status int, payload []byte) error {
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &parsed); err == nil && parsed.Error != "" {
		return fmt.Errorf("%s failed (%d): %s", op, status, parsed.Error)
	}
	return fmt.Errorf("%s failed with status %d", op, status)
}
