package domain

// Status is the outcome of one pipeline step.
type Status string

// Step statuses.
const (
	StatusSuccess Status = "success"
	StatusIgnored Status = "ignored"
	StatusError   Status = "error"
)

// Ingestion steps, in the order they run for every file.
const (
	StepMetadataExtraction  = "metadata extraction"
	StepKnowledgeExtraction = "document knowledge extraction"
	StepPostProcessing      = "knowledge post processing"
	StepMetadataSaving      = "metadata saving"
	StepRawContentSaving    = "raw content saving"
	StepDone                = "done"
)

// IngestionSteps lists the per-file steps in execution order.
func IngestionSteps() []string {
	return []string{
		StepMetadataExtraction,
		StepKnowledgeExtraction,
		StepPostProcessing,
		StepMetadataSaving,
		StepRawContentSaving,
	}
}

// ProgressEvent is one line of the ingestion progress stream.
type ProgressEvent struct {
	Step        string `json:"step"`
	Filename    string `json:"filename,omitempty"`
	Status      Status `json:"status"`
	DocumentUID string `json:"document_uid,omitempty"`
	Error       string `json:"error,omitempty"`
}

// IsDone reports whether this is the terminal event of a stream.
func (e ProgressEvent) IsDone() bool {
	return e.Step == StepDone
}

// DoneEvent builds the terminal event for the given overall outcome.
func DoneEvent(success bool) ProgressEvent {
	status := StatusError
	if success {
		status = StatusSuccess
	}
	return ProgressEvent{Step: StepDone, Status: status}
}

// OutputProcessorResponse reports what the output stage produced for one document.
type OutputProcessorResponse struct {
	// Status is success, or ignored when nothing needed indexing.
	Status Status `json:"status"`

	// Chunks is the number of chunks produced.
	Chunks int `json:"chunks"`

	// Vectors is the number of vectors written to the index.
	Vectors int `json:"vectors"`

	// Metadata is the forwarded document metadata, including provenance.
	Metadata Metadata `json:"metadata,omitempty"`
}

// IngestFile is one uploaded file awaiting ingestion.
type IngestFile struct {
	// Filename is the name the caller uploaded the file under.
	Filename string

	// Path is the file's location on local disk, inside its own
	// working directory's input/ folder.
	Path string
}

// ProgressAggregator accumulates progress events and decides the overall
// outcome of an ingestion once the stream is exhausted.
type ProgressAggregator struct {
	succeeded int
	failed    int
	finished  bool
}

// Observe records one event. A file counts as succeeded when its final
// step completes, and as failed when any of its steps reports an error.
func (a *ProgressAggregator) Observe(e ProgressEvent) {
	switch {
	case e.IsDone():
		a.finished = true
	case e.Status == StatusError:
		a.failed++
	case e.Step == StepRawContentSaving && e.Status == StatusSuccess:
		a.succeeded++
	}
}

// Success reports whether at least one file completed every step.
func (a *ProgressAggregator) Success() bool {
	return a.succeeded > 0
}

// Succeeded returns the number of files that completed every step.
func (a *ProgressAggregator) Succeeded() int {
	return a.succeeded
}

// Failed returns the number of files that stopped on an error.
func (a *ProgressAggregator) Failed() int {
	return a.failed
}

// Finished reports whether the terminal event has been observed.
func (a *ProgressAggregator) Finished() bool {
	return a.finished
}
