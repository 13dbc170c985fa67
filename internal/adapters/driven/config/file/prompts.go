package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults/*.txt defaults/README.md
var defaultsFS embed.FS

const (
	defaultsDir  = "defaults"
	promptSuffix = ".txt"
	readmeName   = "README.md"
)

// PromptStore serves prompt templates from user-editable files. Missing
// or empty files fall back to the defaults built into the binary, which
// are copied into the directory on first use.
type PromptStore struct {
	promptDir string

	mu      sync.Mutex
	seeded  bool
	seedErr error
	cache   map[string]string
}

// NewPromptStore creates a prompt store over promptDir, defaulting to
// ~/.knowledge-flow/prompts. Nothing is written until the first Load.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, "prompts")
	}
	return &PromptStore{promptDir: promptDir, cache: make(map[string]string)}, nil
}

// Load returns the named prompt, cached until Reload.
func (s *PromptStore) Load(name string) (string, error) {
	def, hasDefault := defaultPrompt(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		s.seedErr = s.seed()
		s.seeded = true
	}
	if p, ok := s.cache[name]; ok {
		return p, nil
	}

	p, err := s.readFile(name)
	switch {
	case err == nil && p != "":
		s.cache[name] = p
		return p, nil
	case hasDefault:
		s.cache[name] = def
		return def, nil
	case err != nil:
		return "", fmt.Errorf("load prompt %q: %w", name, errors.Join(err, s.seedErr))
	default:
		return "", fmt.Errorf("load prompt %q: file is empty", name)
	}
}

// Reload drops cached prompts so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// seed copies every built-in file that is not already on disk.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	entries, err := defaultsFS.ReadDir(defaultsDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		dst := filepath.Join(s.promptDir, e.Name())
		if _, err := os.Stat(dst); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := defaultsFS.ReadFile(path.Join(defaultsDir, e.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0600); err != nil {
			return fmt.Errorf("write %s: %w", e.Name(), err)
		}
	}
	return nil
}

func (s *PromptStore) readFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+promptSuffix))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// defaultPrompt returns the built-in text of a prompt.
func defaultPrompt(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || name+promptSuffix == readmeName {
		return "", false
	}
	data, err := defaultsFS.ReadFile(path.Join(defaultsDir, name+promptSuffix))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
