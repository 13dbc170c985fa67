package domain

import "errors"

// KindError is a named domain error. Specific errors point at the broad
// kind they belong to, so callers can match either with errors.Is.
type KindError struct {
	// Name is the short identifier reported in progress events.
	Name string

	msg    string
	parent *KindError
}

func newKind(name, msg string) *KindError {
	return &KindError{Name: name, msg: msg}
}

func newSpecific(parent *KindError, name, msg string) *KindError {
	return &KindError{Name: name, msg: msg, parent: parent}
}

// Error implements the error interface.
func (e *KindError) Error() string {
	return e.msg
}

// Unwrap returns the broader kind, if any.
func (e *KindError) Unwrap() error {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// Error kinds. Every error crossing a port boundary wraps one of these.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = newKind("NotFound", "not found")

	// ErrInvalidRequest indicates malformed caller input, such as an empty
	// document UID or an empty update payload.
	ErrInvalidRequest = newKind("InvalidRequest", "invalid request")

	// ErrProcessingFailure indicates a conversion or extraction step failed
	// for one file. Fatal for that file, recoverable for the batch.
	ErrProcessingFailure = newKind("ProcessingFailure", "processing failure")

	// ErrStorageFailure indicates an underlying backend I/O error.
	ErrStorageFailure = newKind("StorageFailure", "storage failure")

	// ErrConfiguration indicates an unknown backend, provider or processor.
	// Not retried.
	ErrConfiguration = newKind("ConfigurationError", "configuration error")
)

// Processor Errors.
var (
	// ErrProcessorNotFound indicates no processor is registered for a suffix.
	ErrProcessorNotFound = newSpecific(ErrConfiguration, "ProcessorNotFound", "processor not found")

	// ErrUnknownProcessorType indicates a processor exposes neither a markdown
	// nor a table conversion.
	ErrUnknownProcessorType = newSpecific(ErrConfiguration, "UnknownProcessorType", "unknown processor type")

	// ErrMissingDocumentUID indicates metadata without a document_uid.
	ErrMissingDocumentUID = newSpecific(ErrInvalidRequest, "MissingDocumentUID", "missing document_uid")

	// ErrInvalidFile indicates a file failed its processor's validity check.
	ErrInvalidFile = newSpecific(ErrProcessingFailure, "InvalidFile", "invalid file structure")
)

// Output Stage Errors.
var (
	// ErrOutputDirMissing indicates the working directory does not exist or is not a directory.
	ErrOutputDirMissing = newSpecific(ErrProcessingFailure, "OutputDirMissing", "working directory missing")

	// ErrOutputSubdirMissing indicates the working directory has no output/ subdirectory.
	ErrOutputSubdirMissing = newSpecific(ErrProcessingFailure, "OutputSubdirMissing", "output directory missing")

	// ErrInvalidArtifact indicates output/ does not hold exactly one recognised artifact.
	ErrInvalidArtifact = newSpecific(ErrProcessingFailure, "InvalidArtifact", "invalid output artifact")

	// ErrEmptyArtifact indicates the output artifact is empty.
	ErrEmptyArtifact = newSpecific(ErrProcessingFailure, "EmptyArtifact", "empty output artifact")
)

// Collection Errors.
var (
	// ErrCollectionNotFound indicates a knowledge context or chat profile does not exist.
	ErrCollectionNotFound = newSpecific(ErrNotFound, "CollectionNotFound", "collection not found")

	// ErrDocumentNotFound indicates a document is not part of a collection.
	ErrDocumentNotFound = newSpecific(ErrNotFound, "DocumentNotFound", "document not found")

	// ErrDocumentProcessing indicates a collection document failed conversion.
	ErrDocumentProcessing = newSpecific(ErrProcessingFailure, "DocumentProcessingError", "document processing failed")

	// ErrDocumentDeletion indicates a collection document could not be removed.
	ErrDocumentDeletion = newSpecific(ErrStorageFailure, "DocumentDeletionError", "document deletion failed")

	// ErrTokenLimitExceeded indicates a collection would exceed its token budget.
	ErrTokenLimitExceeded = newSpecific(ErrInvalidRequest, "TokenLimitExceeded", "token limit exceeded")
)

// Infrastructure Errors.
var (
	// ErrUnknownBackend indicates a configured backend or provider type is not recognised.
	ErrUnknownBackend = newSpecific(ErrConfiguration, "UnknownBackend", "unknown backend type")

	// ErrEmbeddingUnavailable indicates no embedding service is configured.
	// Vector search is disabled without embeddings.
	ErrEmbeddingUnavailable = newSpecific(ErrConfiguration, "EmbeddingUnavailable", "embedding service unavailable")
)

// KindOf returns the name of the most specific domain error in err's chain.
// Errors outside the taxonomy are reported as "Error".
func KindOf(err error) string {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Name
	}
	return "Error"
}
