package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

var (
	// ErrPersistence wraps every failure to encode or write a dataset.
	ErrPersistence = errors.New("failed to persist dataset")
	// ErrNotExist is returned by backends when a dataset has never been written.
	ErrNotExist = errors.New("dataset does not exist")
)

// Document is a dataset name with its encoded JSON body.
type Document struct {
	Name Dataset
	Body []byte
}

// Backend stores whole JSON documents by name.
type Backend interface {
	// Read returns the stored body or ErrNotExist.
	Read(ctx context.Context, name Dataset) ([]byte, error)
	// Write replaces every given document, in order.
	Write(ctx context.Context, docs ...Document) error
	// Exists reports whether a document has been written.
	Exists(ctx context.Context, name Dataset) (bool, error)
	Close() error
}

// Entry pairs a dataset with the value to store in it.
type Entry struct {
	Dataset Dataset
	Value   any
}

// Store persists datasets as JSON documents through a Backend.
type Store struct {
	backend Backend
	logger  *zap.Logger
}

// New creates a Store over the given backend.
func New(backend Backend, logger *zap.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.Named("storage"),
	}
}

// Load reads a dataset into a fresh value of T.
// Missing or unparsable documents yield def; Load never fails.
func Load[T any](ctx context.Context, s *Store, ds Dataset, def T) T {
	body, err := s.backend.Read(ctx, ds)
	if err != nil {
		s.logger.Warn("Failed to read dataset, using default",
			zap.String("dataset", string(ds)),
			zap.Error(err))

		return def
	}

	var value T
	if err := sonic.Unmarshal(body, &value); err != nil {
		s.logger.Warn("Failed to parse dataset, using default",
			zap.String("dataset", string(ds)),
			zap.Error(err))

		return def
	}

	return value
}

// Save replaces a dataset with value.
func (s *Store) Save(ctx context.Context, ds Dataset, value any) error {
	return s.SaveAll(ctx, Entry{Dataset: ds, Value: value})
}

// SaveAll replaces several datasets. Backends that support it commit all
// entries atomically; the others write them in the given order and stop at
// the first failure.
func (s *Store) SaveAll(ctx context.Context, entries ...Entry) error {
	docs := make([]Document, 0, len(entries))

	for _, entry := range entries {
		body, err := sonic.ConfigStd.MarshalIndent(entry.Value, "", "  ")
		if err != nil {
			s.logger.Error("Failed to encode dataset",
				zap.String("dataset", string(entry.Dataset)),
				zap.Error(err))

			return fmt.Errorf("%w: %s: %w", ErrPersistence, entry.Dataset, err)
		}

		docs = append(docs, Document{Name: entry.Dataset, Body: body})
	}

	if err := s.backend.Write(ctx, docs...); err != nil {
		s.logger.Error("Failed to write datasets",
			zap.Int("count", len(docs)),
			zap.Error(err))

		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return nil
}

// Init creates every missing dataset as an empty container.
// Returns the datasets that were created.
func (s *Store) Init(ctx context.Context) ([]Dataset, error) {
	var created []Dataset

	for _, ds := range Datasets {
		exists, err := s.backend.Exists(ctx, ds)
		if err != nil {
			return nil, fmt.Errorf("failed to check dataset %s: %w", ds, err)
		}

		if exists {
			continue
		}

		if err := s.backend.Write(ctx, Document{Name: ds, Body: ds.Empty()}); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrPersistence, ds, err)
		}

		created = append(created, ds)
	}

	if len(created) > 0 {
		s.logger.Info("Initialized datasets", zap.Int("created", len(created)))
	}

	return created, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
