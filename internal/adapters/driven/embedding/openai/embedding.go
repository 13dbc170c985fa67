// Package openai embeds text with the OpenAI API. The same adapter serves
// Azure OpenAI deployments when an API version is set.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// MaxInputsPerRequest is the API's limit on inputs per embeddings call.
	MaxInputsPerRequest = 2048

	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
	maxBackoff            = 30 * time.Second
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL defaults to DefaultBaseURL. For Azure it is the resource
	// endpoint and must be set.
	BaseURL string

	// Model is the model name, or the deployment name on Azure.
	Model string

	Timeout time.Duration

	// Dimensions shortens text-embedding-3 vectors. Zero keeps the model size.
	Dimensions int

	// APIVersion selects Azure OpenAI mode.
	APIVersion string

	// MaxRetries bounds retries of rate-limited or failed calls.
	// Negative disables retries.
	MaxRetries int

	// InitialBackoff is the first retry delay, doubled on each attempt.
	InitialBackoff time.Duration
}

// EmbeddingService generates embeddings through the embeddings endpoint.
type EmbeddingService struct {
	client         *http.Client
	baseURL        string
	apiKey         string
	model          string
	dimensions     int
	apiVersion     string
	maxRetries     int
	initialBackoff time.Duration
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewEmbeddingService creates an OpenAI or Azure OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key is required", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		if cfg.APIVersion != "" {
			return nil, fmt.Errorf("%w: azure openai: endpoint is required", domain.ErrConfiguration)
		}
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		if dimensions, ok = modelDimensions[cfg.Model]; !ok {
			dimensions = modelDimensions[DefaultModel]
		}
	}

	return &EmbeddingService{
		client:         &http.Client{Timeout: cfg.Timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		dimensions:     dimensions,
		apiVersion:     cfg.APIVersion,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
	}, nil
}

// Embed embeds a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts, splitting them into requests of at most
// MaxInputsPerRequest inputs. The result is aligned with texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxInputsPerRequest {
		end := min(start+MaxInputsPerRequest, len(texts))
		vecs, err := s.embedRequest(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *EmbeddingService) embedRequest(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{Model: s.model, Input: texts}
	if strings.HasPrefix(s.model, "text-embedding-3-") {
		reqBody.Dimensions = s.dimensions
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	body, err := s.do(ctx, http.MethodPost, s.endpoint("embeddings"), payload)
	if err != nil {
		return nil, err
	}

	var resp embeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: openai: decode response: %w", domain.ErrProcessingFailure, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: openai: %s", domain.ErrProcessingFailure, resp.Error.Message)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("%w: openai: embedding index %d out of range", domain.ErrProcessingFailure, d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vecs[d.Index] = vec
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: openai: no embedding for input %d", domain.ErrProcessingFailure, i)
		}
	}
	return vecs, nil
}

// do sends a request, retrying 429 and 5xx answers with exponential
// backoff, and returns the body of a 200 answer.
func (s *EmbeddingService) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	backoff := s.initialBackoff
	for attempt := 0; ; attempt++ {
		var reader io.Reader = http.NoBody
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, fmt.Errorf("openai: create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		s.authorise(req)

		status, body, err := s.send(req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		case status == http.StatusOK:
			return body, nil
		case !retryable(status):
			return nil, statusError(status, body)
		default:
			err = statusError(status, body)
		}

		if attempt >= s.maxRetries {
			return nil, fmt.Errorf("%w: openai: giving up after %d attempts: %w", domain.ErrProcessingFailure, attempt+1, err)
		}
		logger.Warn("openai: attempt %d failed, retrying in %v: %v", attempt+1, backoff, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (s *EmbeddingService) send(req *http.Request) (int, []byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// statusError maps an error answer to a domain error kind. Credential and
// deployment problems are configuration errors.
func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var resp embeddingResponse
	if json.Unmarshal(body, &resp) == nil && resp.Error != nil {
		msg = resp.Error.Message
	}
	kind := domain.ErrProcessingFailure
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		kind = domain.ErrConfiguration
	}
	return fmt.Errorf("%w: openai status %d: %s", kind, status, msg)
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model or deployment name.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the key against the models listing. Azure deployments have
// no listing, so a one-word embedding is sent instead.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if s.isAzure() {
		_, err := s.Embed(ctx, "ping")
		return err
	}
	_, err := s.do(ctx, http.MethodGet, s.endpoint("models"), nil)
	return err
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}

func (s *EmbeddingService) isAzure() bool {
	return s.apiVersion != ""
}

// endpoint builds the URL of an API operation.
func (s *EmbeddingService) endpoint(op string) string {
	if s.isAzure() {
		return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
			s.baseURL, url.PathEscape(s.model), op, url.QueryEscape(s.apiVersion))
	}
	return s.baseURL + "/" + op
}

func (s *EmbeddingService) authorise(req *http.Request) {
	if s.isAzure() {
		req.Header.Set("api-key", s.apiKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
}
