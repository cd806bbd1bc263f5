package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"DogDigest/internal/config"
	"DogDigest/internal/domain"
	"DogDigest/internal/ports"
)

// GeminiClient implements ports.CompletionClient on top of the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

var _ ports.CompletionClient = (*GeminiClient)(nil)

// NewGeminiClient creates a client. baseURL overrides the API host and is empty in production.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, baseURL string) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Complete asks the model for a JSON answer.
func (g *GeminiClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if strings.TrimSpace(system) != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genCfg)
	if err != nil {
		transport := &domain.TransportError{Op: "gemini request", Err: err}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			transport.Status = apiErr.Code
			transport.Transient = apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
		}
		return "", transport
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &domain.ParseError{Op: "gemini response", Err: errors.New("empty answer")}
	}
	return text, nil
}
