// Package vision adapts remote multimodal models into an ImageDescriber.
//
// Each provider lives in its own sub-package and implements driven.VisionModel.
// Describer wraps one of them with the prompt, a per-call timeout and an
// optional rate limit, and converts every failure into the fallback text.
package vision

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure Describer implements the interface.
var _ driven.ImageDescriber = (*Describer)(nil)

// DefaultTimeout bounds a single description call.
const DefaultTimeout = 120 * time.Second

// defaultPrompt is used when no prompt store is configured or it fails.
const defaultPrompt = "Describe this image in detail. If it contains a chart, table or diagram, " +
	"summarise the information it conveys. Answer in plain prose."

// Describer implements driven.ImageDescriber on top of a VisionModel.
type Describer struct {
	model   driven.VisionModel
	prompts driven.PromptStore
	timeout time.Duration
	limiter *rate.Limiter
}

// Option configures a Describer.
type Option func(*Describer)

// WithPromptStore loads the description prompt from a prompt store.
func WithPromptStore(ps driven.PromptStore) Option {
	return func(d *Describer) {
		d.prompts = ps
	}
}

// WithTimeout sets the per-call timeout. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Describer) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithRateLimit throttles calls to perSecond requests per second.
// Zero or negative disables throttling.
func WithRateLimit(perSecond float64) Option {
	return func(d *Describer) {
		if perSecond > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewDescriber wraps model as an ImageDescriber.
func NewDescriber(model driven.VisionModel, opts ...Option) *Describer {
	d := &Describer{
		model:   model,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Describe returns the model's description of image, or the fallback text
// if anything goes wrong, including a panic inside the model adapter.
func (d *Describer) Describe(ctx context.Context, image []byte, mimeType string) (desc string) {
	if d.model == nil || len(image) == 0 {
		return domain.ImageDescriptionFallback
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("image describer (%s): recovered from panic: %v", d.model.ModelName(), r)
			desc = domain.ImageDescriptionFallback
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			logger.Warn("image describer: rate limit wait: %v", err)
			return domain.ImageDescriptionFallback
		}
	}

	answer, err := d.model.DescribeImage(ctx, d.prompt(), image, mimeType)
	if err != nil {
		logger.Warn("image describer (%s): %v", d.model.ModelName(), err)
		return domain.ImageDescriptionFallback
	}
	if answer == "" {
		return domain.ImageDescriptionFallback
	}

	logger.Debug("image describer (%s): described %d byte %s image", d.model.ModelName(), len(image), mimeType)
	return answer
}

// Close releases the underlying model.
func (d *Describer) Close() error {
	if d.model == nil {
		return nil
	}
	return d.model.Close()
}

func (d *Describer) prompt() string {
	if d.prompts == nil {
		return defaultPrompt
	}
	p, err := d.prompts.Load(driven.PromptImageDescription)
	if err != nil || p == "" {
		return defaultPrompt
	}
	return p
}
