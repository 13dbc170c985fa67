package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Well-known metadata keys. Records may carry any other key.
const (
	KeyDocumentUID    = "document_uid"
	KeyDocumentName   = "document_name"
	KeyDateAdded      = "date_added_to_kb"
	KeyRetrievable    = "retrievable"
	KeyFrontMetadata  = "front_metadata"
	KeyAgentName      = "agent_name"
	KeySuffix         = "suffix"
	KeyEmbeddingModel = "embedding_model"
	KeyVectorIndex    = "vector_index"
	KeyError          = "error"
)

// UnknownAgent is the agent name used when the caller supplies none.
const UnknownAgent = "unknown"

// Canonical artifact names written by the input stage under output/.
const (
	InputDirName      = "input"
	OutputDirName     = "output"
	MarkdownArtifact  = "output.md"
	TableArtifact     = "table.csv"
	MarkdownTableRows = 200
)

// Metadata is a flexible document metadata record.
// document_uid is the only mandatory key.
type Metadata map[string]any

// DocumentUID returns the record's document_uid, or "" if absent.
func (m Metadata) DocumentUID() string {
	uid, _ := m[KeyDocumentUID].(string)
	return uid
}

// DocumentName returns the record's document_name, or "" if absent.
func (m Metadata) DocumentName() string {
	name, _ := m[KeyDocumentName].(string)
	return name
}

// Retrievable reports whether the document may be returned by search.
// Records without the flag are retrievable.
func (m Metadata) Retrievable() bool {
	v, ok := m[KeyRetrievable].(bool)
	if !ok {
		return true
	}
	return v
}

// Clone returns a deep copy of the record so stores never share nested
// maps with their callers.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case Metadata:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// DecodeMetadata parses a JSON object into a Metadata record.
func DecodeMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeriveDocumentUID returns the deterministic identity of a document
// ingested on behalf of an agent: sha256("{agent}::{document_name}").
func DeriveDocumentUID(agentName, documentName string) string {
	if agentName == "" {
		agentName = UnknownAgent
	}
	sum := sha256.Sum256([]byte(agentName + "::" + documentName))
	return hex.EncodeToString(sum[:])
}

// SanitizeFrontMetadata normalises caller-supplied metadata: spaces in
// keys become underscores and empty values are dropped.
func SanitizeFrontMetadata(front map[string]any) map[string]any {
	out := make(map[string]any, len(front))
	for k, v := range front {
		if isEmptyValue(v) {
			continue
		}
		out[strings.ReplaceAll(k, " ", "_")] = v
	}
	return out
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

// UTCNow returns the current time formatted as ISO-8601 in UTC.
func UTCNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Chunk is a searchable unit of a converted document.
type Chunk struct {
	// ID is the unique identifier for this chunk.
	ID string `json:"id"`

	// DocumentUID is the document this chunk belongs to.
	DocumentUID string `json:"document_uid"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Position is the zero-based order within the document.
	Position int `json:"position"`

	// Embedding is the vector representation, when computed.
	Embedding []float32 `json:"-"`

	// Metadata carries the document metadata the chunk was indexed with.
	Metadata Metadata `json:"metadata,omitempty"`
}

// SearchHit is one similarity search result.
type SearchHit struct {
	// Chunk is the matched chunk.
	Chunk Chunk `json:"chunk"`

	// Score is the cosine similarity (higher is closer).
	Score float64 `json:"score"`

	// Rank is the 1-based position in the result list.
	Rank int `json:"rank"`

	// RetrievedAt is when the search ran (ISO-8601 UTC).
	RetrievedAt string `json:"retrieved_at"`

	// EmbeddingModel identifies the model that produced the vectors.
	EmbeddingModel string `json:"embedding_model"`

	// VectorIndex names the index searched.
	VectorIndex string `json:"vector_index"`

	// TokenCount is a whitespace token estimate of the chunk content.
	TokenCount int `json:"token_count"`
}

// CountTokens returns a whitespace-separated token estimate.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}
