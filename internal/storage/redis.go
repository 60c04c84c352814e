package storage

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"
)

// RedisBackend stores each dataset under prefix+name.
// Multi-document writes use a single MSET so they land together.
type RedisBackend struct {
	client rueidis.Client
	prefix string
}

// NewRedisBackend creates a RedisBackend on an existing client.
func NewRedisBackend(client rueidis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) key(name Dataset) string {
	return r.prefix + string(name)
}

func (r *RedisBackend) Read(ctx context.Context, name Dataset) ([]byte, error) {
	body, err := r.client.Do(ctx, r.client.B().Get().Key(r.key(name)).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, ErrNotExist
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	return body, nil
}

func (r *RedisBackend) Write(ctx context.Context, docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}

	cmd := r.client.B().Mset().KeyValue()
	for _, doc := range docs {
		cmd = cmd.KeyValue(r.key(doc.Name), rueidis.BinaryString(doc.Body))
	}

	if err := r.client.Do(ctx, cmd.Build()).Error(); err != nil {
		return fmt.Errorf("failed to write %d documents: %w", len(docs), err)
	}

	return nil
}

func (r *RedisBackend) Exists(ctx context.Context, name Dataset) (bool, error) {
	count, err := r.client.Do(ctx, r.client.B().Exists().Key(r.key(name)).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", name, err)
	}

	return count > 0, nil
}

// Close is a no-op; the client belongs to the redis manager.
func (r *RedisBackend) Close() error { return nil }
