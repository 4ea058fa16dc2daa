// Package filecache is a flat, file-per-key JSON cache with
// stale-on-failure semantics: when a refresh of an expired entry fails,
// the old value is returned instead of the error. Upstream content
// changes slowly, so staleness beats unavailability.
package filecache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

var ErrInvalidKey = errors.New("filecache: invalid cache key")

// keys double as filenames, so they are restricted before any
// filesystem access happens
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

type Cache struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a cache rooted at dir. An empty dir disables caching
// entirely: producers are invoked directly and nothing touches the disk.
func New(dir string) *Cache {
	return &Cache{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.dir != ""
}

// refreshes of the same key are serialized within this process; two
// processes sharing a cache dir may still interleave, which callers
// accept for keys that are rarely refreshed in parallel
func (c *Cache) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

// GetOrCompute returns the cached value for key when it is younger than
// expiry, otherwise invokes produce. A producer failure on a stale entry
// falls back to the stale value; a producer failure on a missing entry
// propagates.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, expiry time.Duration, produce func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if !c.Enabled() {
		return produce(ctx)
	}
	if !keyPattern.MatchString(key) {
		return zero, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return zero, err
	}
	file := filepath.Join(c.dir, key)

	update := func() (T, error) {
		value, err := produce(ctx)
		if err != nil {
			return zero, err
		}
		serialized, err := encode(value)
		if err != nil {
			return zero, err
		}
		if err := os.WriteFile(file, serialized, 0644); err != nil {
			return zero, err
		}
		return value, nil
	}

	info, err := os.Stat(file)
	if err != nil {
		if !os.IsNotExist(err) {
			return zero, err
		}
		slog.DebugContext(ctx, "cache miss", "key", key)
		return update()
	}

	if time.Since(info.ModTime()) >= expiry {
		value, err := update()
		if err == nil {
			slog.DebugContext(ctx, "cache refreshed", "key", key)
			return value, nil
		}
		stale, readErr := read[T](file)
		if readErr != nil {
			return zero, err
		}
		slog.DebugContext(ctx, "cache refresh failed, returning stale value", "key", key, "err", err)
		return stale, nil
	}

	value, err := read[T](file)
	if err != nil {
		// unreadable entry, treat it like a miss
		slog.WarnContext(ctx, "cache entry corrupt", "key", key, "err", err)
		return update()
	}
	slog.DebugContext(ctx, "cache hit", "key", key)
	return value, nil
}

// compact UTF-8 JSON, no trailing newline, no HTML escaping; the files
// are meant to be greppable by hand
func encode(value any) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func read[T any](file string) (T, error) {
	var out T
	serialized, err := os.ReadFile(file)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(serialized, &out)
	return out, err
}
