package driving

import "io"

// RawContent is an opened original upload.
type RawContent struct {
	// Filename is the document name recorded at ingestion.
	Filename string

	// Body streams the file. Callers must close it.
	Body io.ReadCloser
}
