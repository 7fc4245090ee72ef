package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/ats-scanner/internal/logger"
)

const maxEmbeddingChars = 40000

type GeminiService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateFromDocument(ctx context.Context, prompt string, data []byte, mimeType string, temperature float32) (string, error)
	Ping(ctx context.Context) error
}

type GeminiOptions struct {
	APIKey       string
	Model        string
	EmbedModel   string
	MaxLogLength int
	Logger       *zap.Logger
}

type geminiService struct {
	client       *genai.Client
	modelName    string
	embedModel   string
	maxLogLength int
	logger       *zap.Logger
}

func NewGeminiService(ctx context.Context, opts GeminiOptions) (GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = "text-embedding-004"
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = 200
	}

	return &geminiService{
		client:       client,
		modelName:    opts.Model,
		embedModel:   opts.EmbedModel,
		maxLogLength: opts.MaxLogLength,
		logger:       logger.WithFields(opts.Logger, zap.String("component", "gemini"), zap.String("model", opts.Model)),
	}, nil
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbeddingChars {
		text = text[:maxEmbeddingChars]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// GenerateFromDocument sends the prompt together with the raw document and
// asks for a JSON answer.
func (g *geminiService) GenerateFromDocument(ctx context.Context, prompt string, data []byte, mimeType string, temperature float32) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  8192,
		ResponseMIMEType: "application/json",
	}

	g.logger.Debug("generate request",
		zap.String("mime_type", mimeType),
		zap.Int("document_bytes", len(data)),
		zap.String("prompt", logger.TruncateForLog(prompt, g.maxLogLength)),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, config)
	if err != nil {
		g.logger.Error("gemini api error", zap.Error(err))
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			return "", fmt.Errorf("no text content in response (finish reason %s)", resp.Candidates[0].FinishReason)
		}
		return "", fmt.Errorf("no text content in response")
	}

	g.logger.Debug("generate response", zap.String("text", logger.TruncateForLog(text, g.maxLogLength)))
	return text, nil
}

// Ping checks that the configured model is reachable with the current key.
func (g *geminiService) Ping(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.modelName, nil); err != nil {
		return fmt.Errorf("gemini model %s unavailable: %w", g.modelName, err)
	}
	return nil
}
