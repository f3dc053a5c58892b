package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentstation/packsync/pkg/constants"
	"github.com/agentstation/packsync/pkg/errors"
)

// Cache keeps downloaded hits between runs, keyed by endpoint URL.
type Cache interface {
	// Load returns the cached hits for key and whether there were any.
	Load(ctx context.Context, key string) ([]Hit, bool, error)
	Store(ctx context.Context, key string, hits []Hit) error
}

// decodeHits reads a JSON array of hits, keeping numbers exact.
func decodeHits(data []byte, name string) ([]Hit, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var hits []Hit
	if err := dec.Decode(&hits); err != nil {
		return nil, errors.WrapParse("json", name, err)
	}
	return hits, nil
}

// FileCache stores hits as a single JSON file. The file holds one endpoint;
// loading with a different key than the one stored is a miss.
type FileCache struct {
	Path string
	// TTL bounds the age of a usable cache file. Zero never expires.
	TTL time.Duration
}

type fileCacheEnvelope struct {
	Key  string          `json:"key"`
	Hits json.RawMessage `json:"hits"`
}

// NewFileCache returns a cache at path, or at the default file name in dir
// when path is a directory.
func NewFileCache(path string) *FileCache {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, constants.FeedCacheFile)
	}
	return &FileCache{Path: path, TTL: constants.FeedCacheTTL}
}

// Load implements Cache.
func (c *FileCache) Load(_ context.Context, key string) ([]Hit, bool, error) {
	info, err := os.Stat(c.Path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WrapIO("stat", c.Path, err)
	}
	if c.TTL > 0 && time.Since(info.ModTime()) > c.TTL {
		return nil, false, nil
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, false, errors.WrapIO("read", c.Path, err)
	}
	var env fileCacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, errors.WrapParse("json", c.Path, err)
	}
	if env.Key != key {
		return nil, false, nil
	}
	hits, err := decodeHits(env.Hits, c.Path)
	if err != nil {
		return nil, false, err
	}
	return hits, true, nil
}

// Store implements Cache. The file is replaced atomically.
func (c *FileCache) Store(_ context.Context, key string, hits []Hit) error {
	raw, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("encoding hits: %w", err)
	}
	data, err := json.Marshal(fileCacheEnvelope{Key: key, Hits: raw})
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".feed-*.json")
	if err != nil {
		return errors.WrapIO("create", "temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.WrapIO("write", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("close", tmpPath, err)
	}
	if err := os.Rename(tmpPath, c.Path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("rename", c.Path, err)
	}
	return nil
}

// RedisCache stores hits in Redis under a prefixed key per endpoint.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server at url (redis://...) and
// checks it is reachable.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.NewConfigError("cache", "invalid redis URL", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "packsync:feed:", ttl: constants.FeedCacheTTL}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Load implements Cache.
func (c *RedisCache) Load(ctx context.Context, key string) ([]Hit, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	hits, err := decodeHits(data, c.key(key))
	if err != nil {
		return nil, false, err
	}
	return hits, true, nil
}

// Store implements Cache.
func (c *RedisCache) Store(ctx context.Context, key string, hits []Hit) error {
	data, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("encoding hits: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// OpenCache returns the cache named by spec: a redis:// or rediss:// URL
// selects Redis, anything else is a file path. An empty spec falls back to
// dir.
func OpenCache(ctx context.Context, spec, dir string) (Cache, error) {
	switch {
	case strings.HasPrefix(spec, "redis://"), strings.HasPrefix(spec, "rediss://"):
		return NewRedisCache(ctx, spec)
	case spec == "":
		return NewFileCache(dir), nil
	default:
		return NewFileCache(spec), nil
	}
}
