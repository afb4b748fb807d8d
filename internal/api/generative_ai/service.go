package generativeAI

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// Generator is the text-generation contract consumed by the assistant.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

var _ Generator = (*AIClient)(nil)

// AIClient wraps the Gemini API. The underlying client is created per call so
// a credential rotated at runtime takes effect immediately; the key itself is
// resolved through apiKey at call time.
type AIClient struct {
	model   string
	timeout time.Duration
	apiKey  func() string
}

func NewAIClient(model string, timeout time.Duration, apiKey func() string) *AIClient {
	return &AIClient{
		model:   model,
		timeout: timeout,
		apiKey:  apiKey,
	}
}

func (ai *AIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GenerateContent", trace.WithAttributes(
		attribute.Int("prompt.length", len(prompt)),
		attribute.String("model", ai.model),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, ai.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  ai.apiKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	responseText := result.Text()
	span.SetAttributes(attribute.Int("response.length", len(responseText)))
	span.SetStatus(codes.Ok, "Content generated successfully")
	return responseText, nil
}
