package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
)

func TestNewVisionModel_RequiresKey(t *testing.T) {
	_, err := NewVisionModel(context.Background(), Config{})
	assert.Error(t, err)
}

func TestImageFormat(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/png", "png"},
		{"image/JPEG", "jpeg"},
		{"image/jpg", "jpeg"},
		{"", "jpeg"},
		{"image/webp", "webp"},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, imageFormat(tt.mime))
		})
	}
}

func TestCandidateText(t *testing.T) {
	parts := []genai.Part{
		genai.Text(" A bar chart"),
		genai.Blob{MIMEType: "image/png", Data: []byte("x")},
		genai.Text(" of revenue. "),
	}
	assert.Equal(t, "A bar chart of revenue.", candidateText(parts))
	assert.Empty(t, candidateText(nil))
}
