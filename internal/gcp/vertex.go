package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

const SummarizerSystemPrompt = "You are a document summarization assistant. You produce concise, well-structured summaries that preserve the main points and key information of the source text."

// summaryInputLimit caps how much extracted text is sent per request, keeping
// well clear of the model's token limit.
const summaryInputLimit = 10000

// VertexClient holds the pre-configured generative model used to summarize
// uploaded documents.
type VertexClient struct {
	SummaryModel *genai.GenerativeModel
	baseClient   *genai.Client
}

// NewVertexClient creates a client with the summary model configured.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	summaryModel := baseClient.GenerativeModel(modelName)
	summaryModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SummarizerSystemPrompt)},
	}
	summaryModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}

	return &VertexClient{
		SummaryModel: summaryModel,
		baseClient:   baseClient,
	}, nil
}

// Summarize produces a short summary of the given document text. Empty input
// yields an empty summary without calling the model.
func (c *VertexClient) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}
	if len(text) > summaryInputLimit {
		text = text[:summaryInputLimit]
	}

	prompt := fmt.Sprintf(`Please provide a concise summary of the following text. Focus on the main points and key information:

%s

Please provide the summary in a clear, well-structured format.`, text)

	resp, err := c.SummaryModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("summary response contained no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
