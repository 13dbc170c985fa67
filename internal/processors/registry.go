package processors

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ProcessorRegistry = (*Registry)(nil)

// Registry maps lower-case file suffixes to processors.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]driven.Processor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		processors: make(map[string]driven.Processor),
	}
}

// Register adds p for every suffix it declares. A later registration for
// the same suffix replaces the earlier one.
func (r *Registry) Register(p driven.Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range p.Suffixes() {
		r.processors[normaliseSuffix(s)] = p
	}
}

// Get returns the processor for suffix, matched case-insensitively.
func (r *Registry) Get(suffix string) (driven.Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[normaliseSuffix(suffix)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrProcessorNotFound, suffix)
	}
	return p, nil
}

// Suffixes returns every registered suffix, sorted.
func (r *Registry) Suffixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.processors))
	for s := range r.processors {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func normaliseSuffix(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s != "" && !strings.HasPrefix(s, ".") {
		s = "." + s
	}
	return s
}
