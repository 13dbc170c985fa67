// Package common holds helpers shared by the format processors.
package common

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// FileMetadata returns the fields every processor reports: the file name,
// its size and its lower-case suffix.
func FileMetadata(path string) domain.Metadata {
	md := domain.Metadata{
		domain.KeyDocumentName: filepath.Base(path),
		domain.KeySuffix:       strings.ToLower(filepath.Ext(path)),
	}
	if info, err := os.Stat(path); err == nil {
		md["size_bytes"] = info.Size()
	}
	return md
}

// TitleFromFilename derives a readable title from a file path.
func TitleFromFilename(path string) string {
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// IsRegularFile reports whether path exists and is a non-empty regular file.
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// SetIfNotEmpty stores value under key when it is a non-empty string.
func SetIfNotEmpty(md domain.Metadata, key, value string) {
	value = strings.TrimSpace(value)
	if value != "" {
		md[key] = value
	}
}
