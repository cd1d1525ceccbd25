package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// SummarizerSystemPrompt frames every summarization call.
const SummarizerSystemPrompt = "You are a careful medical document analyst. You summarize patient-supplied medical reports for the patient. You never present your output as a diagnosis and you always recommend review by a qualified professional."

// VertexClient holds the pre-configured generative model used for report summaries.
type VertexClient struct {
	SummarizerModel *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a new client holding the summarizer model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	summarizerModel := baseClient.GenerativeModel(modelName)
	summarizerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SummarizerSystemPrompt)},
	}
	summarizerModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}

	return &VertexClient{
		SummarizerModel: summarizerModel,
		baseClient:      baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
