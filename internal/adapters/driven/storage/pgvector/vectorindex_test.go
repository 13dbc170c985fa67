package pgvector

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{DSN: "postgres://x", Name: "docs", Dimensions: 768}, false},
		{"custom table", Config{DSN: "postgres://x", Name: "docs", Dimensions: 3, Table: "chunks_v2"}, false},
		{"missing dsn", Config{Name: "docs", Dimensions: 3}, true},
		{"missing name", Config{DSN: "postgres://x", Dimensions: 3}, true},
		{"zero dimensions", Config{DSN: "postgres://x", Name: "docs"}, true},
		{"injected table", Config{DSN: "postgres://x", Name: "d", Dimensions: 3, Table: "t; DROP TABLE x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, validIdentifier("kf_chunks"))
	assert.True(t, validIdentifier("_x1"))
	assert.False(t, validIdentifier("1abc"))
	assert.False(t, validIdentifier("Chunks"))
	assert.False(t, validIdentifier(""))
	assert.False(t, validIdentifier(strings.Repeat("a", 64)))
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements("kf_chunks", 1536)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, stmts[1], "embedding    vector(1536)")
	assert.Contains(t, stmts[2], "kf_chunks_document_idx")
}

func TestSearchStatement(t *testing.T) {
	q := searchStatement("kf_chunks")
	assert.Contains(t, q, "embedding <=> $2")
	assert.Contains(t, q, "FROM kf_chunks")
	assert.Contains(t, q, "LIMIT $3")
}

func TestSimilarityFromDistance(t *testing.T) {
	assert.InDelta(t, 1.0, similarityFromDistance(0), 1e-9)
	assert.InDelta(t, 0.0, similarityFromDistance(1), 1e-9)
	assert.InDelta(t, -1.0, similarityFromDistance(2), 1e-9)
}

func TestNewVectorIndex_RejectsBadConfig(t *testing.T) {
	_, err := NewVectorIndex(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
