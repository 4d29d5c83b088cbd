package hf

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verba/internal/domain"
)

func TestTranscriberSendsMultipartAndParsesText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/openai/whisper-large-v3", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "recording.wav", header.Filename)

		contents, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "pcm-bytes", string(contents))

		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  hello world "})
	}))
	defer server.Close()

	transcriber := NewTranscriber(Config{APIKey: "test-key", APIBaseURL: server.URL})
	text, err := transcriber.Transcribe(context.Background(), domain.AudioArtifact{
		Bytes:       []byte("pcm-bytes"),
		MIMEType:    "audio/wav",
		SourceLabel: "recording.wav",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestTranscriberGeneratedTextFallback(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"generated_text": "fallback field"})
	}))
	defer server.Close()

	transcriber := NewTranscriber(Config{APIKey: "k", APIBaseURL: server.URL})
	text, err := transcriber.Transcribe(context.Background(), domain.AudioArtifact{Bytes: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "fallback field", text)
}

func TestTranscriberSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Model is currently loading"})
	}))
	defer server.Close()

	transcriber := NewTranscriber(Config{APIKey: "k", APIBaseURL: server.URL})
	_, err := transcriber.Transcribe(context.Background(), domain.AudioArtifact{Bytes: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Model is currently loading")
}

func TestTranscriberRequiresAPIKey(t *testing.T) {
	t.Parallel()

	transcriber := NewTranscriber(Config{})
	_, err := transcriber.Transcribe(context.Background(), domain.AudioArtifact{Bytes: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HF_API_KEY")
}

func TestGeneratorSendsParametersAndParsesCandidates(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/google/flan-t5-xl", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "format this:\n\nraw", req.Inputs)
		assert.Equal(t, 1024, req.Parameters.MaxNewTokens)
		assert.InDelta(t, 0.7, req.Parameters.Temperature, 0.001)
		assert.InDelta(t, 0.95, req.Parameters.TopP, 0.001)
		assert.True(t, req.Parameters.DoSample)

		_ = json.NewEncoder(w).Encode([]map[string]string{{"generated_text": " Formatted. "}})
	}))
	defer server.Close()

	generator := NewGenerator(Config{APIKey: "test-key", APIBaseURL: server.URL})
	out, err := generator.Generate(context.Background(), "format this:\n\nraw")
	require.NoError(t, err)
	assert.Equal(t, "Formatted.", out)
}

func TestGeneratorParsesBareObjectResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"generated_text": "single"})
	}))
	defer server.Close()

	generator := NewGenerator(Config{APIKey: "k", APIBaseURL: server.URL})
	out, err := generator.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "single", out)
}

func TestGeneratorSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Rate limit reached"})
	}))
	defer server.Close()

	generator := NewGenerator(Config{APIKey: "k", APIBaseURL: server.URL})
	_, err := generator.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate limit reached")
}
