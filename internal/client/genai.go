package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathanw33/mrsa-kds/internal/config"
	"google.golang.org/genai"
)

const defaultGenAIModel = "gemini-2.0-flash"

// GenAIClient - text generation through Google GenAI
type GenAIClient struct {
	client *genai.Client
	model  string
}

func NewGenAIClient(ctx context.Context, cfg config.GenAIConfig) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing AI_API_KEY")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGenAIModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIClient{client: client, model: model}, nil
}

// Generate returns the model's text answer for prompt and the model name used.
func (c *GenAIClient) Generate(ctx context.Context, prompt string) (string, string, error) {
	res, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", c.model, fmt.Errorf("failed to generate content: %w", err)
	}
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", c.model, fmt.Errorf("empty generation result")
	}
	return text, c.model, nil
}
