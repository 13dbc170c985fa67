package memory

import (
	"sync"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is an in-memory implementation of driven.ConfigStore for
// tests and throwaway runs. It starts from domain.DefaultConfig.
type ConfigStore struct {
	mu    sync.RWMutex
	cfg   domain.Config
	saves int
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{cfg: domain.DefaultConfig()}
}

// Load returns the held configuration after validating it.
func (s *ConfigStore) Load() (domain.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.cfg.Validate(); err != nil {
		return domain.Config{}, err
	}
	return s.cfg, nil
}

// Save replaces the held configuration.
func (s *ConfigStore) Save(cfg domain.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.saves++
	return nil
}

// Path returns an empty path; nothing is written to disk.
func (s *ConfigStore) Path() string {
	return ""
}

// Saves returns how many times Save was called.
func (s *ConfigStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
