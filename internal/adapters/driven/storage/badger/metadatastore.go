package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

const metadataPrefix = "meta:"

// MetadataStore keeps metadata records in BadgerDB.
type MetadataStore struct {
	db *badger.DB
}

// badgerLogger routes badger's own logging through the package logger.
// Informational chatter is demoted to debug.
type badgerLogger struct{}

var _ badger.Logger = badgerLogger{}

func (badgerLogger) Errorf(msg string, items ...any)   { logger.Error("badger: "+msg, items...) }
func (badgerLogger) Warningf(msg string, items ...any) { logger.Warn("badger: "+msg, items...) }
func (badgerLogger) Infof(msg string, items ...any)    { logger.Debug("badger: "+msg, items...) }
func (badgerLogger) Debugf(msg string, items ...any)   { logger.Debug("badger: "+msg, items...) }

// NewMetadataStore opens (creating if needed) a database in dir.
// An empty dir opens an in-memory database.
func NewMetadataStore(dir string) (*MetadataStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, storageErr("creating data directory", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = badgerLogger{}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storageErr("opening database", err)
	}
	return &MetadataStore{db: db}, nil
}

// SaveMetadata stores or replaces a record.
func (s *MetadataStore) SaveMetadata(_ context.Context, record domain.Metadata) error {
	uid := record.DocumentUID()
	if uid == "" {
		return domain.ErrMissingDocumentUID
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %w", domain.ErrInvalidRequest, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(uid), data)
	})
	if err != nil {
		return storageErr("save metadata", err)
	}
	return nil
}

// GetMetadataByUID returns the record, or nil if absent.
func (s *MetadataStore) GetMetadataByUID(_ context.Context, uid string) (domain.Metadata, error) {
	var record domain.Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		record, err = getRecord(txn, uid)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get metadata", err)
	}
	return record, nil
}

// UpdateMetadataField sets one field of an existing record.
func (s *MetadataStore) UpdateMetadataField(
	_ context.Context, uid, field string, value any,
) (domain.Metadata, error) {
	var record domain.Metadata
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		record, err = getRecord(txn, uid)
		if err != nil {
			return err
		}
		record[field] = value
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("%w: encode metadata: %w", domain.ErrInvalidRequest, err)
		}
		return txn.Set(recordKey(uid), data)
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, uid)
	case errors.Is(err, domain.ErrInvalidRequest):
		return nil, err
	case err != nil:
		return nil, storageErr("update metadata", err)
	}
	return record, nil
}

// DeleteMetadata removes the record with the given record's UID.
func (s *MetadataStore) DeleteMetadata(_ context.Context, record domain.Metadata) error {
	uid := record.DocumentUID()
	if uid == "" {
		return domain.ErrMissingDocumentUID
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(recordKey(uid)); err != nil {
			return err
		}
		return txn.Delete(recordKey(uid))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, uid)
	}
	if err != nil {
		return storageErr("delete metadata", err)
	}
	return nil
}

// GetAllMetadata returns matching records ordered by UID. Badger iterates
// keys in byte order, so no sort is needed.
func (s *MetadataStore) GetAllMetadata(_ context.Context, filters map[string]any) ([]domain.Metadata, error) {
	result := []domain.Metadata{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metadataPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				record, err := domain.DecodeMetadata(val)
				if err != nil {
					return fmt.Errorf("decode %s: %w", item.Key(), err)
				}
				if domain.MatchFilters(record, filters) {
					result = append(result, record)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("list metadata", err)
	}
	return result, nil
}

// Close closes the database.
func (s *MetadataStore) Close() error {
	return s.db.Close()
}

func getRecord(txn *badger.Txn, uid string) (domain.Metadata, error) {
	item, err := txn.Get(recordKey(uid))
	if err != nil {
		return nil, err
	}
	var record domain.Metadata
	err = item.Value(func(val []byte) error {
		record, err = domain.DecodeMetadata(val)
		return err
	})
	return record, err
}

func recordKey(uid string) []byte {
	return []byte(metadataPrefix + uid)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: badger %s: %w", domain.ErrStorageFailure, op, err)
}
