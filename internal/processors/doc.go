// Package processors provides the format processor registry. Each
// sub-package implements driven.Processor for one family of file formats
// and either driven.MarkdownConverter or driven.TableConverter.
//
// Processors are registered with the Registry at startup by RegisterDefaults.
package processors
