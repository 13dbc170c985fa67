package sqlite

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex stores embedded chunks in the chunks table and searches
// them by brute-force cosine similarity.
type VectorIndex struct {
	store *Store
	name  string
}

// Name returns the index name.
func (v *VectorIndex) Name() string {
	return v.name
}

// Add inserts or replaces chunks by ID.
func (v *VectorIndex) Add(ctx context.Context, chunks []domain.Chunk) error {
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidRequest, chunks[i].ID)
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, index_name, document_uid, position, content, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(index_name, id) DO UPDATE SET
			document_uid = excluded.document_uid,
			position = excluded.position,
			content = excluded.content,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return storageErr("preparing statement", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("%w: encode chunk metadata: %w", domain.ErrInvalidRequest, err)
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, v.name, chunk.DocumentUID, chunk.Position,
			chunk.Content, float32SliceToBytes(chunk.Embedding), string(metadataJSON)); err != nil {
			return storageErr("saving chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing transaction", err)
	}
	return nil
}

// DeleteDocument removes all chunks of a document.
func (v *VectorIndex) DeleteDocument(ctx context.Context, uid string) error {
	_, err := v.store.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE index_name = ? AND document_uid = ?", v.name, uid)
	if err != nil {
		return storageErr("deleting chunks", err)
	}
	return nil
}

// Search returns the k most similar chunks, best first. Ties are broken
// by chunk ID.
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT id, document_uid, position, content, embedding, metadata
		FROM chunks WHERE index_name = ?
	`, v.name)
	if err != nil {
		return nil, storageErr("querying chunks", err)
	}
	defer rows.Close()

	hits := []driven.VectorHit{}
	for rows.Next() {
		var (
			chunk         domain.Chunk
			embeddingBlob []byte
			metadataJSON  string
		)
		if err := rows.Scan(&chunk.ID, &chunk.DocumentUID, &chunk.Position,
			&chunk.Content, &embeddingBlob, &metadataJSON); err != nil {
			return nil, storageErr("scanning chunk", err)
		}
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		if metadataJSON != "" && metadataJSON != "null" {
			if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
				return nil, storageErr("decoding chunk metadata", err)
			}
		}
		hits = append(hits, driven.VectorHit{
			Chunk:      chunk,
			Similarity: domain.CosineSimilarity(query, chunk.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating chunks", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity == hits[j].Similarity {
			return hits[i].Chunk.ID < hits[j].Chunk.ID
		}
		return hits[i].Similarity > hits[j].Similarity
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of chunks in the index.
func (v *VectorIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := v.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE index_name = ?", v.name).Scan(&n)
	if err != nil {
		return 0, storageErr("counting chunks", err)
	}
	return n, nil
}

// Close is a no-op; the owning Store closes the database.
func (v *VectorIndex) Close() error {
	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
