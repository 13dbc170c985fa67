// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML configuration with KF_* environment overrides
//   - PromptStore: user-editable prompt templates
package file
