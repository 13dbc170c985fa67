package driven

import "github.com/custodia-labs/knowledge-flow/internal/core/domain"

// ConfigStore loads and persists the application configuration.
type ConfigStore interface {
	// Load returns the configuration: defaults, overlaid by the stored
	// file, overlaid by the environment. The result is validated.
	Load() (domain.Config, error)

	// Save writes cfg to storage. Environment overrides are not persisted.
	Save(cfg domain.Config) error

	// Path returns the configuration file path.
	Path() string
}
