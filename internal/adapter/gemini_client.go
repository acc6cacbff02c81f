package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/metrics"
)

const geminiProvider = "gemini"

// ErrMissingGeminiKey is returned when no API key is configured
var ErrMissingGeminiKey = errors.New("Missing GEMINI_API_KEY")

// GeminiConfig configures a GeminiClient
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GeminiClient calls the Gemini generateContent REST endpoint
type GeminiClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// NewGeminiClient creates a text-generation client
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &GeminiClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether an API key is set
func (g *GeminiClient) Configured() bool {
	return g.apiKey != ""
}

// Model returns the model name requests are sent to
func (g *GeminiClient) Model() string {
	return g.model
}

// GenerateContent sends prompt and returns the concatenated text of the first
// candidate. One attempt; callers decide on retries.
func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if !g.Configured() {
		return "", ErrMissingGeminiKey
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode gemini request: %w", err)
	}

	// The key travels in a header; transport errors quote the URL.
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	metrics.UpstreamLatency.WithLabelValues(geminiProvider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(geminiProvider, "error").Inc()
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(geminiProvider, "error").Inc()
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequests.WithLabelValues(geminiProvider, "error").Inc()
		return "", apperrors.NewProviderError(geminiProvider, fmt.Sprintf("Gemini API error: %d", resp.StatusCode))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		metrics.UpstreamRequests.WithLabelValues(geminiProvider, "error").Inc()
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}

	metrics.UpstreamRequests.WithLabelValues(geminiProvider, "success").Inc()

	if len(result.Candidates) == 0 {
		return "", nil
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}
