package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

const (
	defaultArrayAnalysis  = "Medical image analysis completed"
	defaultObjectAnalysis = "Medical image analysis completed using Radiology-Infer-Mini"
)

// imageTextFields lists the response fields that may carry the analysis, in priority order.
var imageTextFields = []string{"generated_text", "text", "caption"}

// HuggingFaceClient calls a hosted image inference model.
type HuggingFaceClient struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

// NewHuggingFaceClient returns a client for the model at url.
func NewHuggingFaceClient(apiKey, url string, httpClient *http.Client) *HuggingFaceClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HuggingFaceClient{apiKey: apiKey, url: url, httpClient: httpClient}
}

// AnalyzeImage posts the raw image bytes and returns the model's description.
func (c *HuggingFaceClient) AnalyzeImage(ctx context.Context, image []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("failed to build image analysis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image analysis response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ServiceError{Service: "huggingface", StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("image analysis returned invalid JSON")
	}
	return decodeImageAnalysis(body), nil
}

// decodeImageAnalysis accepts either an array of results or a single object.
func decodeImageAnalysis(body []byte) string {
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		items := root.Array()
		if len(items) > 0 {
			if s, ok := firstText(items[0], imageTextFields); ok {
				return s
			}
			return defaultArrayAnalysis
		}
	}
	if s, ok := firstText(root, imageTextFields); ok {
		return s
	}
	return defaultObjectAnalysis
}

func firstText(v gjson.Result, fields []string) (string, bool) {
	if !v.IsObject() {
		return "", false
	}
	for _, f := range fields {
		r := v.Get(f)
		if r.Exists() && r.Type == gjson.String && r.String() != "" {
			return r.String(), true
		}
	}
	return "", false
}
