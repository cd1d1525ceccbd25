package analysis

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

	"github.com/tidwall/gjson"
)

// ErrNoSummary is returned when a summarizer answered without any text.
var ErrNoSummary = errors.New("summarizer response contained no text")

// ServiceError is a non-2xx answer from a remote inference service.
type ServiceError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
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

// GeminiClient calls the Generative Language REST API with an API key.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGeminiClient returns a client for model under baseURL.
func NewGeminiClient(apiKey, baseURL, model string, httpClient *http.Client) *GeminiClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GeminiClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

// Summarize asks the model for a summary of the document text.
func (c *GeminiClient) Summarize(ctx context.Context, documentText string) (string, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: SummaryPrompt(documentText)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read summary response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ServiceError{Service: "gemini", StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}
	return extractSummary(body)
}

// extractSummary unwraps candidates[0].content.parts[0].text, checking every level.
func extractSummary(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("summary response is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	candidates := root.Get("candidates")
	if !candidates.IsArray() || len(candidates.Array()) == 0 {
		return "", ErrNoSummary
	}
	parts := candidates.Array()[0].Get("content.parts")
	if !parts.IsArray() || len(parts.Array()) == 0 {
		return "", ErrNoSummary
	}
	text := parts.Array()[0].Get("text")
	if text.Type != gjson.String || text.String() == "" {
		return "", ErrNoSummary
	}
	return text.String(), nil
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
