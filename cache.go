package social

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// CacheEntry is one row of the durable key-value cache.
type CacheEntry struct {
	bun.BaseModel `bun:"table:cache_entries,alias:ce"`

	Key       string     `bun:"key,pk" json:"key"`
	Value     []byte     `bun:"value" json:"value,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ErrCacheMiss is returned when a cache key is absent.
var ErrCacheMiss = errors.New("cache key not found", errors.CategoryNotFound).
	WithTextCode("cache_miss").
	WithCode(errors.CodeNotFound)

// IsCacheMiss reports whether err is a cache miss.
func IsCacheMiss(err error) bool {
	return stderrors.Is(err, ErrCacheMiss) || stderrors.Is(err, sql.ErrNoRows)
}

// Cache is the local persistent key-value store. It survives process restarts
// and holds the session pointer plus resync bookkeeping; profiles and follow
// edges have their own tables.
type Cache struct {
	db *bun.DB
}

// NewCache returns a cache over the given database.
func NewCache(db *bun.DB) *Cache {
	return &Cache{db: db}
}

// Get reads the value stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	entry := &CacheEntry{}
	err := c.db.NewSelect().
		Model(entry).
		Where("?TableAlias.key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss.WithMetadata(map[string]any{"key": key})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "cache read failed")
	}
	return entry.Value, nil
}

// Put upserts the value under key.
func (c *Cache) Put(ctx context.Context, key string, value []byte) error {
	now := time.Now()
	entry := &CacheEntry{Key: key, Value: value, UpdatedAt: &now}
	_, err := c.db.NewInsert().
		Model(entry).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "cache write failed")
	}
	return nil
}

// Delete removes the entry under key. Deleting a missing key is a no-op.
func (c *Cache) Delete(ctx context.Context, key string) error {
	_, err := c.db.NewDelete().
		Model((*CacheEntry)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "cache delete failed")
	}
	return nil
}
