package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigFileName is the name of the TOML file inside the config directory.
const ConfigFileName = "config.toml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KF_"

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Configuration is read from config.toml in the knowledge-flow config
// directory and then overridden by KF_* variables from the process
// environment or a .env file.
type ConfigStore struct {
	mu       sync.Mutex
	dir      string
	filePath string
	envFiles []string
}

// Option configures a ConfigStore.
type Option func(*ConfigStore)

// WithEnvFiles sets the dotenv files read for overrides. Missing files are
// skipped. Defaults to .env in the working directory.
func WithEnvFiles(paths ...string) Option {
	return func(s *ConfigStore) {
		s.envFiles = paths
	}
}

// DefaultDir returns ~/.knowledge-flow.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".knowledge-flow"), nil
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.knowledge-flow.
// No file is created until Save is called.
func NewConfigStore(configDir string, opts ...Option) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	s := &ConfigStore{
		dir:      configDir,
		filePath: filepath.Join(configDir, ConfigFileName),
		envFiles: []string{".env"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load builds the configuration from defaults, the TOML file and the
// environment, fills in storage paths under the config directory and
// validates the result.
func (s *ConfigStore) Load() (domain.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(s.filePath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return domain.Config{}, fmt.Errorf("%w: parse %s: %w", domain.ErrConfiguration, s.filePath, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return domain.Config{}, fmt.Errorf("read config: %w", err)
	}

	dotenv := s.readEnvFiles()
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return domain.Config{}, err
	}

	resolvePaths(&cfg, s.dir)

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to the TOML file with restricted permissions.
func (s *ConfigStore) Save(cfg domain.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Dir returns the configuration directory.
func (s *ConfigStore) Dir() string {
	return s.dir
}

// readEnvFiles merges the dotenv files. The process environment is not
// modified; later files win over earlier ones.
func (s *ConfigStore) readEnvFiles() map[string]string {
	merged := make(map[string]string)
	for _, path := range s.envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	return merged
}

// resolvePaths places unset storage locations under dir.
func resolvePaths(cfg *domain.Config, dir string) {
	if cfg.Storage.ContentRoot == "" {
		cfg.Storage.ContentRoot = filepath.Join(dir, "content")
	}
	if cfg.Storage.CollectionRoot == "" {
		cfg.Storage.CollectionRoot = filepath.Join(dir, "collections")
	}
	if cfg.Storage.MetadataPath == "" {
		switch cfg.Storage.MetadataBackend {
		case domain.MetadataBackendSQLite:
			cfg.Storage.MetadataPath = filepath.Join(dir, "sqlite")
		case domain.MetadataBackendBadger:
			cfg.Storage.MetadataPath = filepath.Join(dir, "badger")
		default:
			cfg.Storage.MetadataPath = filepath.Join(dir, "metadata.json")
		}
	}
	if cfg.VectorStore.Type == domain.VectorBackendSQLite && cfg.VectorStore.DSN == "" {
		cfg.VectorStore.DSN = filepath.Join(dir, "sqlite")
	}
	if cfg.S3.CollectionBucket == "" {
		cfg.S3.CollectionBucket = cfg.S3.Bucket
	}
}

// envSetter applies one environment value to the configuration.
type envSetter func(cfg *domain.Config, value string) error

// envOverrides maps KF_* variable suffixes to configuration fields.
var envOverrides = map[string]envSetter{
	"CONTENT_BACKEND":    func(c *domain.Config, v string) error { c.Storage.ContentBackend = domain.ContentBackend(v); return nil },
	"METADATA_BACKEND":   func(c *domain.Config, v string) error { c.Storage.MetadataBackend = domain.MetadataBackend(v); return nil },
	"COLLECTION_BACKEND": func(c *domain.Config, v string) error { c.Storage.CollectionBackend = domain.ContentBackend(v); return nil },
	"CONTENT_ROOT":       func(c *domain.Config, v string) error { c.Storage.ContentRoot = v; return nil },
	"METADATA_PATH":      func(c *domain.Config, v string) error { c.Storage.MetadataPath = v; return nil },
	"COLLECTION_ROOT":    func(c *domain.Config, v string) error { c.Storage.CollectionRoot = v; return nil },

	"S3_ENDPOINT":          func(c *domain.Config, v string) error { c.S3.Endpoint = v; return nil },
	"S3_REGION":            func(c *domain.Config, v string) error { c.S3.Region = v; return nil },
	"S3_BUCKET":            func(c *domain.Config, v string) error { c.S3.Bucket = v; return nil },
	"S3_COLLECTION_BUCKET": func(c *domain.Config, v string) error { c.S3.CollectionBucket = v; return nil },
	"S3_ACCESS_KEY":        func(c *domain.Config, v string) error { c.S3.AccessKey = v; return nil },
	"S3_SECRET_KEY":        func(c *domain.Config, v string) error { c.S3.SecretKey = v; return nil },
	"S3_PATH_STYLE":        boolSetter(func(c *domain.Config, b bool) { c.S3.PathStyle = b }),

	"EMBEDDING_PROVIDER":    func(c *domain.Config, v string) error { c.Embedding.Provider = domain.AIProvider(v); return nil },
	"EMBEDDING_MODEL":       func(c *domain.Config, v string) error { c.Embedding.Model = v; return nil },
	"EMBEDDING_BASE_URL":    func(c *domain.Config, v string) error { c.Embedding.BaseURL = v; return nil },
	"EMBEDDING_API_KEY":     func(c *domain.Config, v string) error { c.Embedding.APIKey = v; return nil },
	"EMBEDDING_API_VERSION": func(c *domain.Config, v string) error { c.Embedding.APIVersion = v; return nil },
	"EMBEDDING_BATCH_SIZE":  intSetter(func(c *domain.Config, n int) { c.Embedding.BatchSize = n }),

	"VISION_PROVIDER":        func(c *domain.Config, v string) error { c.Vision.Provider = domain.AIProvider(v); return nil },
	"VISION_MODEL":           func(c *domain.Config, v string) error { c.Vision.Model = v; return nil },
	"VISION_BASE_URL":        func(c *domain.Config, v string) error { c.Vision.BaseURL = v; return nil },
	"VISION_API_KEY":         func(c *domain.Config, v string) error { c.Vision.APIKey = v; return nil },
	"VISION_TIMEOUT_SECONDS": intSetter(func(c *domain.Config, n int) { c.Vision.TimeoutSeconds = n }),
	"VISION_RATE_PER_SECOND": floatSetter(func(c *domain.Config, f float64) { c.Vision.RatePerSecond = f }),

	"VECTOR_STORE_TYPE":  func(c *domain.Config, v string) error { c.VectorStore.Type = domain.VectorBackend(v); return nil },
	"VECTOR_STORE_DSN":   func(c *domain.Config, v string) error { c.VectorStore.DSN = v; return nil },
	"VECTOR_STORE_INDEX": func(c *domain.Config, v string) error { c.VectorStore.Index = v; return nil },

	"CHUNK_SIZE":           intSetter(func(c *domain.Config, n int) { c.Chunking.ChunkSize = n }),
	"CHUNK_OVERLAP":        intSetter(func(c *domain.Config, n int) { c.Chunking.ChunkOverlap = n }),
	"TABLE_ROWS_PER_CHUNK": intSetter(func(c *domain.Config, n int) { c.Chunking.TableRowsPerChunk = n }),
	"MAX_TOKENS":           intSetter(func(c *domain.Config, n int) { c.Collections.MaxTokens = n }),

	"SERVER_ADDR": func(c *domain.Config, v string) error { c.Server.Addr = v; return nil },
	"ALLOWED_ORIGINS": func(c *domain.Config, v string) error {
		c.Server.AllowedOrigins = splitList(v)
		return nil
	},
}

// EnvKeys returns the full names of every supported override, sorted.
func EnvKeys() []string {
	keys := make([]string, 0, len(envOverrides))
	for suffix := range envOverrides {
		keys = append(keys, EnvPrefix+suffix)
	}
	sort.Strings(keys)
	return keys
}

func applyEnv(cfg *domain.Config, lookup func(string) (string, bool)) error {
	for suffix, set := range envOverrides {
		key := EnvPrefix + suffix
		value, ok := lookup(key)
		if !ok {
			continue
		}
		if err := set(cfg, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, key, err)
		}
	}
	return nil
}

func intSetter(set func(*domain.Config, int)) envSetter {
	return func(c *domain.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		set(c, n)
		return nil
	}
}

func floatSetter(set func(*domain.Config, float64)) envSetter {
	return func(c *domain.Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		set(c, f)
		return nil
	}
}

func boolSetter(set func(*domain.Config, bool)) envSetter {
	return func(c *domain.Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		set(c, b)
		return nil
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
