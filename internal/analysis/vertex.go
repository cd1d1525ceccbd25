package analysis

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/aethercare/internal/gcp"
)

// VertexSummarizer summarizes with the Vertex AI summarizer model.
type VertexSummarizer struct {
	client *gcp.VertexClient
}

// NewVertexSummarizer wraps an initialised Vertex client.
func NewVertexSummarizer(client *gcp.VertexClient) *VertexSummarizer {
	return &VertexSummarizer{client: client}
}

// Summarize sends the fixed summary prompt to the model.
func (s *VertexSummarizer) Summarize(ctx context.Context, documentText string) (string, error) {
	resp, err := s.client.SummarizerModel.GenerateContent(ctx, genai.Text(SummaryPrompt(documentText)))
	if err != nil {
		return "", fmt.Errorf("failed to generate summary from gemini: %w", err)
	}
	summary := extractVertexText(resp)
	if summary == "" {
		return "", ErrNoSummary
	}
	return summary, nil
}

// extractVertexText robustly concatenates the text parts of the first candidate.
func extractVertexText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
