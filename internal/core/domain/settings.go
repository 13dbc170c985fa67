package domain

const unknownDescription = "Unknown"

// ContentBackend identifies a Content Store implementation.
type ContentBackend string

// Available content backends.
const (
	ContentBackendLocal ContentBackend = "local"
	ContentBackendS3    ContentBackend = "s3"
)

// IsValid returns true if the backend is recognised.
func (b ContentBackend) IsValid() bool {
	return b == ContentBackendLocal || b == ContentBackendS3
}

// MetadataBackend identifies a Metadata Store implementation.
type MetadataBackend string

// Available metadata backends.
const (
	// MetadataBackendLocal is a single JSON file holding all records.
	MetadataBackendLocal MetadataBackend = "local"

	// MetadataBackendSQLite is an indexed SQLite database with full-text search.
	MetadataBackendSQLite MetadataBackend = "sqlite"

	// MetadataBackendBadger is an embedded key-value store.
	MetadataBackendBadger MetadataBackend = "badger"

	// MetadataBackendMemory keeps records in process memory only.
	MetadataBackendMemory MetadataBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b MetadataBackend) IsValid() bool {
	switch b {
	case MetadataBackendLocal, MetadataBackendSQLite, MetadataBackendBadger, MetadataBackendMemory:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the backend.
func (b MetadataBackend) Description() string {
	switch b {
	case MetadataBackendLocal:
		return "JSON file"
	case MetadataBackendSQLite:
		return "SQLite (full-text indexed)"
	case MetadataBackendBadger:
		return "Badger key-value store"
	case MetadataBackendMemory:
		return "In-memory (not persisted)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies a vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendMemory is a brute-force index lost on restart.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendSQLite stores vectors next to the SQLite metadata and
	// scans them on every query.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendPGVector is PostgreSQL with the pgvector extension.
	VectorBackendPGVector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendPGVector:
		return true
	default:
		return false
	}
}

// AIProvider identifies an AI service provider for embeddings or vision.
type AIProvider string

// Available AI providers.
const (
	// AIProviderNone disables the capability.
	AIProviderNone AIProvider = "none"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAzureOpenAI is an Azure OpenAI deployment.
	AIProviderAzureOpenAI AIProvider = "azureopenai"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderAnthropic is the Anthropic Messages API. It offers vision
	// but no embeddings.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderNone, AIProviderOllama, AIProviderOpenAI, AIProviderAzureOpenAI,
		AIProviderGemini, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	switch p {
	case AIProviderOpenAI, AIProviderAzureOpenAI, AIProviderGemini, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// SupportsEmbeddings returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p != AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// StorageConfig selects and locates the persistence backends.
type StorageConfig struct {
	ContentBackend    ContentBackend  `toml:"content_backend"`
	MetadataBackend   MetadataBackend `toml:"metadata_backend"`
	CollectionBackend ContentBackend  `toml:"collection_backend"`

	// ContentRoot holds {uid}/input and {uid}/output trees (local backend).
	ContentRoot string `toml:"content_root"`

	// MetadataPath is the JSON file, SQLite directory or Badger directory.
	MetadataPath string `toml:"metadata_path"`

	// CollectionRoot holds knowledge contexts and chat profiles (local backend).
	CollectionRoot string `toml:"collection_root"`
}

// S3Config locates an S3-compatible object store such as MinIO.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`

	// CollectionBucket stores collections; defaults to Bucket.
	CollectionBucket string `toml:"collection_bucket"`

	// PathStyle forces path-style addressing, required by MinIO.
	PathStyle bool `toml:"path_style"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider AIProvider `toml:"provider"`
	Model    string     `toml:"model"`
	BaseURL  string     `toml:"base_url"`
	APIKey   string     `toml:"api_key"`

	// APIVersion is the Azure OpenAI api-version query parameter.
	APIVersion string `toml:"api_version"`

	// BatchSize bounds texts per embedding request.
	BatchSize int `toml:"batch_size"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingConfig) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderNone || e.Provider == "" {
		return false
	}
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// VisionConfig holds image describer configuration.
type VisionConfig struct {
	Provider AIProvider `toml:"provider"`
	Model    string     `toml:"model"`
	BaseURL  string     `toml:"base_url"`
	APIKey   string     `toml:"api_key"`

	// TimeoutSeconds bounds one description call.
	TimeoutSeconds int `toml:"timeout_seconds"`

	// RatePerSecond throttles description calls; zero disables throttling.
	RatePerSecond float64 `toml:"rate_per_second"`
}

// IsConfigured returns true if an image describer should be built.
func (v VisionConfig) IsConfigured() bool {
	if v.Provider == "" || v.Provider == AIProviderNone || !v.Provider.IsValid() {
		return false
	}
	return !v.Provider.RequiresAPIKey() || v.APIKey != ""
}

// VectorStoreConfig holds vector index configuration.
type VectorStoreConfig struct {
	Type VectorBackend `toml:"type"`
	DSN  string        `toml:"dsn"`

	// Index names the index or table vectors are written to.
	Index string `toml:"index"`
}

// ChunkingConfig controls how markdown artifacts are split.
type ChunkingConfig struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`

	// TableRowsPerChunk groups CSV rows for tabular indexing.
	TableRowsPerChunk int `toml:"table_rows_per_chunk"`
}

// CollectionsConfig holds knowledge context and chat profile settings.
type CollectionsConfig struct {
	MaxTokens int `toml:"max_tokens"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Config is the application configuration, built once at start and
// passed to every component that needs it.
type Config struct {
	Storage     StorageConfig     `toml:"storage"`
	S3          S3Config          `toml:"s3"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Vision      VisionConfig      `toml:"vision"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Collections CollectionsConfig `toml:"collections"`
	Server      ServerConfig      `toml:"server"`
}

// DefaultConfig returns a configuration that works out of the box with
// local storage and no AI providers.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			ContentBackend:    ContentBackendLocal,
			MetadataBackend:   MetadataBackendLocal,
			CollectionBackend: ContentBackendLocal,
		},
		S3: S3Config{
			Region:    "us-east-1",
			PathStyle: true,
		},
		Embedding: EmbeddingConfig{
			Provider:  AIProviderNone,
			BatchSize: 32,
		},
		Vision: VisionConfig{
			Provider:       AIProviderNone,
			TimeoutSeconds: 120,
		},
		VectorStore: VectorStoreConfig{
			Type:  VectorBackendMemory,
			Index: "knowledge-flow-vectors",
		},
		Chunking: ChunkingConfig{
			ChunkSize:         2000,
			ChunkOverlap:      100,
			TableRowsPerChunk: 50,
		},
		Collections: CollectionsConfig{
			MaxTokens: DefaultMaxTokens,
		},
		Server: ServerConfig{
			Addr:           ":8111",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Validate checks every backend and provider selection.
func (c Config) Validate() error {
	switch {
	case !c.Storage.ContentBackend.IsValid():
		return unknownBackend("content", string(c.Storage.ContentBackend))
	case !c.Storage.MetadataBackend.IsValid():
		return unknownBackend("metadata", string(c.Storage.MetadataBackend))
	case !c.Storage.CollectionBackend.IsValid():
		return unknownBackend("collection", string(c.Storage.CollectionBackend))
	case !c.VectorStore.Type.IsValid():
		return unknownBackend("vector store", string(c.VectorStore.Type))
	case c.Embedding.Provider != "" && !c.Embedding.Provider.IsValid():
		return unknownBackend("embedding provider", string(c.Embedding.Provider))
	case !c.Embedding.Provider.SupportsEmbeddings():
		return unknownBackend("embedding provider", string(c.Embedding.Provider))
	case c.Vision.Provider != "" && !c.Vision.Provider.IsValid():
		return unknownBackend("vision provider", string(c.Vision.Provider))
	case c.Vision.Provider == AIProviderAzureOpenAI:
		return unknownBackend("vision provider", string(c.Vision.Provider))
	}
	return nil
}

func unknownBackend(what, value string) error {
	return &configError{what: what, value: value}
}

// configError reports an invalid backend selection.
type configError struct {
	what  string
	value string
}

func (e *configError) Error() string {
	return "unknown " + e.what + " type: " + e.value
}

func (e *configError) Unwrap() error {
	return ErrUnknownBackend
}
