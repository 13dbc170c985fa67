package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interfaces.
var (
	_ driven.MetadataStore    = (*MetadataStore)(nil)
	_ driven.MetadataSearcher = (*MetadataStore)(nil)
)

// defaultSearchLimit caps full-text results when the caller sets no limit.
const defaultSearchLimit = 20

// MetadataStore keeps metadata records as JSON rows with a full-text index.
type MetadataStore struct {
	store *Store
}

// SaveMetadata stores or replaces a record and reindexes its text.
func (m *MetadataStore) SaveMetadata(ctx context.Context, record domain.Metadata) error {
	if record.DocumentUID() == "" {
		return domain.ErrMissingDocumentUID
	}
	return m.withTx(ctx, func(tx *sql.Tx) error {
		return upsertRecord(ctx, tx, record)
	})
}

// GetMetadataByUID returns the record, or nil if absent.
func (m *MetadataStore) GetMetadataByUID(ctx context.Context, uid string) (domain.Metadata, error) {
	record, err := getRecord(ctx, m.store.db, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get metadata", err)
	}
	return record, nil
}

// UpdateMetadataField sets one field of an existing record.
func (m *MetadataStore) UpdateMetadataField(
	ctx context.Context, uid, field string, value any,
) (domain.Metadata, error) {
	var updated domain.Metadata
	err := m.withTx(ctx, func(tx *sql.Tx) error {
		record, err := getRecord(ctx, tx, uid)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, uid)
		}
		if err != nil {
			return storageErr("get metadata", err)
		}
		record[field] = value
		updated = record
		return upsertRecord(ctx, tx, record)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMetadata removes the record with the given record's UID.
func (m *MetadataStore) DeleteMetadata(ctx context.Context, record domain.Metadata) error {
	uid := record.DocumentUID()
	if uid == "" {
		return domain.ErrMissingDocumentUID
	}
	return m.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM metadata WHERE document_uid = ?", uid)
		if err != nil {
			return storageErr("delete metadata", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, uid)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM metadata_fts WHERE document_uid = ?", uid); err != nil {
			return storageErr("delete metadata index", err)
		}
		return nil
	})
}

// GetAllMetadata returns matching records ordered by UID.
func (m *MetadataStore) GetAllMetadata(ctx context.Context, filters map[string]any) ([]domain.Metadata, error) {
	rows, err := m.store.db.QueryContext(ctx, "SELECT record FROM metadata ORDER BY document_uid")
	if err != nil {
		return nil, storageErr("query metadata", err)
	}
	defer rows.Close()

	result := []domain.Metadata{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if domain.MatchFilters(record, filters) {
			result = append(result, record)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate metadata", err)
	}
	return result, nil
}

// SearchMetadata returns records whose names or string values match every
// term of query, best match first.
func (m *MetadataStore) SearchMetadata(ctx context.Context, query string, limit int) ([]domain.Metadata, error) {
	match := ftsQuery(query)
	if match == "" {
		return []domain.Metadata{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	rows, err := m.store.db.QueryContext(ctx, `
		SELECT m.record
		FROM metadata_fts
		JOIN metadata m ON m.document_uid = metadata_fts.document_uid
		WHERE metadata_fts MATCH ?
		ORDER BY metadata_fts.rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, storageErr("search metadata", err)
	}
	defer rows.Close()

	result := []domain.Metadata{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate search results", err)
	}
	return result, nil
}

// Close is a no-op; the owning Store closes the database.
func (m *MetadataStore) Close() error {
	return nil
}

func (m *MetadataStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := m.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr("committing transaction", err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryer, uid string) (domain.Metadata, error) {
	var data string
	if err := q.QueryRowContext(ctx, "SELECT record FROM metadata WHERE document_uid = ?", uid).Scan(&data); err != nil {
		return nil, err
	}
	record, err := domain.DecodeMetadata([]byte(data))
	if err != nil {
		return nil, storageErr("decode metadata", err)
	}
	return record, nil
}

func scanRecord(rows *sql.Rows) (domain.Metadata, error) {
	var data string
	if err := rows.Scan(&data); err != nil {
		return nil, storageErr("scan metadata", err)
	}
	record, err := domain.DecodeMetadata([]byte(data))
	if err != nil {
		return nil, storageErr("decode metadata", err)
	}
	return record, nil
}

func upsertRecord(ctx context.Context, tx *sql.Tx, record domain.Metadata) error {
	uid := record.DocumentUID()
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %w", domain.ErrInvalidRequest, err)
	}

	retrievable := 0
	if record.Retrievable() {
		retrievable = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO metadata (document_uid, document_name, retrievable, record, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_uid) DO UPDATE SET
			document_name = excluded.document_name,
			retrievable = excluded.retrievable,
			record = excluded.record,
			updated_at = excluded.updated_at
	`, uid, record.DocumentName(), retrievable, string(data), domain.UTCNow())
	if err != nil {
		return storageErr("save metadata", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM metadata_fts WHERE document_uid = ?", uid); err != nil {
		return storageErr("clear metadata index", err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO metadata_fts (document_uid, document_name, content) VALUES (?, ?, ?)",
		uid, record.DocumentName(), indexText(record))
	if err != nil {
		return storageErr("index metadata", err)
	}
	return nil
}

// indexText joins every string value of the record, nested ones included,
// in key order. The UID is left out; it is a hash and never searched for.
func indexText(record domain.Metadata) string {
	var parts []string
	collectStrings(map[string]any(record), &parts, true)
	return strings.Join(parts, " ")
}

func collectStrings(v any, out *[]string, top bool) {
	switch val := v.(type) {
	case string:
		if val != "" {
			*out = append(*out, val)
		}
	case []string:
		for _, s := range val {
			collectStrings(s, out, false)
		}
	case []any:
		for _, inner := range val {
			collectStrings(inner, out, false)
		}
	case domain.Metadata:
		collectStrings(map[string]any(val), out, false)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			if top && k == domain.KeyDocumentUID {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(val[k], out, false)
		}
	}
}

// ftsQuery turns free text into an FTS5 query matching every term. Terms
// are quoted so that FTS5 operators in user input are taken literally.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " ")
}
