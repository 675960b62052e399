package archivestore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a read-through cache in front of a published archive snapshot. It
// does not own the archive: the optimizer process still holds the
// authoritative Memory (or its own in-process ModuleArchive); Redis only lets
// other selector processes read a recently published snapshot without a
// direct connection to the optimizer. This is a cache for an immutable,
// already-serialized document, not a session/context store.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed cache store. keyPrefix namespaces keys
// (e.g. "chrysalis-forge:archive:"); ttl is the cache entry's expiry, zero
// meaning no expiry.
func NewRedis(client *redis.Client, keyPrefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: keyPrefix, ttl: ttl}
}

func (r *Redis) key(taskType string) string {
	return r.prefix + taskType
}

// Save marshals doc to the §6 JSON format and writes it to Redis under the
// task_type key, overwriting any prior cached snapshot.
func (r *Redis) Save(taskType string, doc Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return fmt.Errorf("archivestore: marshal document for %q: %w", taskType, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Set(ctx, r.key(taskType), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("archivestore: redis set %q: %w", taskType, err)
	}
	return nil
}

// Load reads and decodes the cached document for taskType. found is false on
// a cache miss (redis.Nil), not an error.
func (r *Redis) Load(taskType string) (Document, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, err := r.client.Get(ctx, r.key(taskType)).Bytes()
	if err == redis.Nil {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("archivestore: redis get %q: %w", taskType, err)
	}
	doc, err := Unmarshal(data)
	if err != nil {
		return Document{}, false, err
	}
	return doc, true, nil
}
