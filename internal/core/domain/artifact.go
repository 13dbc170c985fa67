package domain

// ArtifactKind distinguishes the two canonical conversion outputs.
type ArtifactKind string

// Artifact kinds.
const (
	ArtifactMarkdown ArtifactKind = "markdown"
	ArtifactTable    ArtifactKind = "table"
)

// Artifact is the converted form of one document, handed to the output
// stage for chunking and embedding.
type Artifact struct {
	// DocumentUID identifies the source document.
	DocumentUID string

	// Kind is markdown or table.
	Kind ArtifactKind

	// Content is the markdown text or the CSV text.
	Content string

	// Metadata is the document metadata forwarded to every chunk.
	Metadata Metadata
}

// ImageDescriptionFallback replaces the description of any picture that
// could not be described.
const ImageDescriptionFallback = "Image description not available."
