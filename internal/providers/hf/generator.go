package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Generator implements ports.TextGenerator over the inference API's text
// endpoint.
type Generator struct {
	cfg Config
}

func NewGenerator(cfg Config) *Generator {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api-inference.huggingface.co"
	}
	if cfg.GenerationModel == "" {
		cfg.GenerationModel = "google/flan-t5-xl"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Generator{cfg: cfg}
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	DoSample     bool    `json:"do_sample"`
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return "", errors.New("HF_API_KEY is not configured")
	}

	body, err := json.Marshal(generateRequest{
		Inputs: prompt,
		Parameters: generateParameters{
			MaxNewTokens: 1024,
			Temperature:  0.7,
			TopP:         0.95,
			DoSample:     true,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	endpoint := modelURL(g.cfg.APIBaseURL, g.cfg.GenerationModel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError("generation", resp.StatusCode, payload)
	}

	// The API answers either a list of candidates or a bare object.
	var candidates []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(payload, &candidates); err == nil && len(candidates) > 0 {
		return strings.TrimSpace(candidates[0].GeneratedText), nil
	}

	var single struct {
		GeneratedText string `json:"generated_text"`
		Error         string `json:"error"`
	}
	if err := json.Unmarshal(payload, &single); err != nil {
		return "", fmt.Errorf("unexpected generation response: %w", err)
	}
	if single.Error != "" {
		return "", fmt.Errorf("generation rejected: %s", single.Error)
	}
	return strings.TrimSpace(single.GeneratedText), nil
}
