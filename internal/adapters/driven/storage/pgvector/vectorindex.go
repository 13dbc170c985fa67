package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// Default configuration values.
const (
	DefaultTable       = "kf_chunks"
	DefaultPingTimeout = 30 * time.Second
)

// Config holds connection settings for the index.
type Config struct {
	// DSN is the PostgreSQL connection string (required).
	DSN string

	// Name is the logical index name stored with every chunk (required).
	Name string

	// Dimensions is the embedding size; the column is created with it.
	Dimensions int

	// Table overrides the chunk table name (default: kf_chunks).
	Table string
}

// VectorIndex is a driven.VectorIndex backed by pgvector.
type VectorIndex struct {
	db    *sql.DB
	name  string
	table string
}

// NewVectorIndex connects, ensures the extension and table exist, and
// returns the index.
func NewVectorIndex(ctx context.Context, cfg Config) (*VectorIndex, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, storageErr("open database", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, storageErr("ping database", err)
	}

	for _, stmt := range schemaStatements(cfg.Table, cfg.Dimensions) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, storageErr("bootstrap schema", err)
		}
	}

	return &VectorIndex{db: db, name: cfg.Name, table: cfg.Table}, nil
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

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, upsertStatement(v.table))
	if err != nil {
		return storageErr("prepare insert", err)
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		metadataJSON, err := json.Marshal(ch.Metadata)
		if err != nil {
			return fmt.Errorf("%w: encode chunk metadata: %w", domain.ErrInvalidRequest, err)
		}
		if _, err := stmt.ExecContext(ctx, v.name, ch.ID, ch.DocumentUID, ch.Position,
			ch.Content, pgvector.NewVector(ch.Embedding), string(metadataJSON)); err != nil {
			return storageErr("insert chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// DeleteDocument removes all chunks of a document.
func (v *VectorIndex) DeleteDocument(ctx context.Context, uid string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE index_name = $1 AND document_uid = $2", v.table)
	if _, err := v.db.ExecContext(ctx, q, v.name, uid); err != nil {
		return storageErr("delete chunks", err)
	}
	return nil
}

// Search returns the k nearest chunks by cosine distance, best first.
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		k = domain.DefaultSearchLimit
	}
	rows, err := v.db.QueryContext(ctx, searchStatement(v.table), v.name, pgvector.NewVector(query), k)
	if err != nil {
		return nil, storageErr("search", err)
	}
	defer rows.Close()

	hits := []driven.VectorHit{}
	for rows.Next() {
		var (
			ch           domain.Chunk
			emb          pgvector.Vector
			metadataJSON string
			distance     float64
		)
		if err := rows.Scan(&ch.ID, &ch.DocumentUID, &ch.Position, &ch.Content,
			&emb, &metadataJSON, &distance); err != nil {
			return nil, storageErr("scan chunk", err)
		}
		ch.Embedding = emb.Slice()
		if metadataJSON != "" && metadataJSON != "null" {
			if err := json.Unmarshal([]byte(metadataJSON), &ch.Metadata); err != nil {
				return nil, storageErr("decode chunk metadata", err)
			}
		}
		hits = append(hits, driven.VectorHit{Chunk: ch, Similarity: similarityFromDistance(distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate results", err)
	}
	return hits, nil
}

// Close closes the connection pool.
func (v *VectorIndex) Close() error {
	return v.db.Close()
}

func validate(cfg Config) error {
	switch {
	case cfg.DSN == "":
		return fmt.Errorf("%w: pgvector: DSN is required", domain.ErrConfiguration)
	case cfg.Name == "":
		return fmt.Errorf("%w: pgvector: index name is required", domain.ErrConfiguration)
	case cfg.Dimensions <= 0:
		return fmt.Errorf("%w: pgvector: embedding dimensions must be positive", domain.ErrConfiguration)
	}
	if cfg.Table != "" && !validIdentifier(cfg.Table) {
		return fmt.Errorf("%w: pgvector: invalid table name %q", domain.ErrConfiguration, cfg.Table)
	}
	return nil
}

// validIdentifier accepts unquoted lower-case SQL identifiers only, since
// the table name is interpolated into statements.
func validIdentifier(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func schemaStatements(table string, dims int) []string {
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			index_name   TEXT NOT NULL,
			id           TEXT NOT NULL,
			document_uid TEXT NOT NULL,
			position     INTEGER NOT NULL,
			content      TEXT NOT NULL,
			embedding    vector(%d) NOT NULL,
			metadata     JSONB NOT NULL DEFAULT '{}',
			PRIMARY KEY (index_name, id)
		)`, table, dims),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_document_idx ON %s (index_name, document_uid)", table, table),
	}
}

func upsertStatement(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (index_name, id, document_uid, position, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (index_name, id) DO UPDATE SET
			document_uid = EXCLUDED.document_uid,
			position = EXCLUDED.position,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`, table)
}

func searchStatement(table string) string {
	return fmt.Sprintf(`
		SELECT id, document_uid, position, content, embedding, metadata::text,
			embedding <=> $2 AS distance
		FROM %s
		WHERE index_name = $1
		ORDER BY distance, id
		LIMIT $3
	`, table)
}

// similarityFromDistance converts pgvector's cosine distance to similarity.
func similarityFromDistance(d float64) float64 {
	return 1 - d
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: pgvector %s: %w", domain.ErrStorageFailure, op, err)
}
