// Package gemini provides a vision model adapter using the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure VisionModel implements the interface.
var _ driven.VisionModel = (*VisionModel)(nil)

// DefaultModel is the multimodal Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// Config holds configuration for the Gemini vision model.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the model to use (default: gemini-1.5-flash).
	Model string
}

// VisionModel describes images using Gemini.
type VisionModel struct {
	client *genai.Client
	model  string
}

// NewVisionModel creates a new Gemini vision model.
func NewVisionModel(ctx context.Context, cfg Config) (*VisionModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &VisionModel{client: client, model: cfg.Model}, nil
}

// DescribeImage sends the image and prompt as one multimodal request.
func (m *VisionModel) DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	model := m.client.GenerativeModel(m.model)

	resp, err := model.GenerateContent(ctx, genai.ImageData(imageFormat(mimeType), image), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: no candidates returned")
	}

	text := candidateText(resp.Candidates[0].Content.Parts)
	if text == "" {
		return "", fmt.Errorf("gemini: no text content returned")
	}
	return text, nil
}

// ModelName returns the name of the model being used.
func (m *VisionModel) ModelName() string {
	return m.model
}

// Close releases the underlying client.
func (m *VisionModel) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// imageFormat maps a media type to the short format name genai expects.
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(mimeType), "image/")
	switch format {
	case "", "jpg":
		return "jpeg"
	default:
		return format
	}
}

// candidateText concatenates the text parts of a candidate.
func candidateText(parts []genai.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
