package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Flynotfly/gymstat/pkg"

	"github.com/go-redis/redis/v8"
)

const (
	StoreFile  = "file"
	StoreRedis = "redis"

	DefaultRedisKey = "gymstat-client-session||"
	DefaultRedisTTL = 14 * 24 * time.Hour
)

// CookieStore keeps the API session cookies between process runs.
type CookieStore interface {
	Load(ctx context.Context) ([]*http.Cookie, error)
	Save(ctx context.Context, cookies []*http.Cookie) error
	Clear(ctx context.Context) error
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func encodeCookies(cookies []*http.Cookie) ([]byte, error) {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	return json.Marshal(stored)
}

func decodeCookies(raw []byte) ([]*http.Cookie, error) {
	var stored []storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}

// FileStore keeps the cookies in a JSON file readable by the owner only.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
	}
}

func (fs *FileStore) Load(_ context.Context) ([]*http.Cookie, error) {
	exists, err := pkg.PathExists(fs.path, false)
	if err != nil {
		return nil, fmt.Errorf("cookie file [check]: %w", err)
	}
	if !exists {
		return nil, nil
	}

	raw, err := os.ReadFile(fs.path)
	if err != nil {
		return nil, fmt.Errorf("cookie file [read]: %w", err)
	}
	cookies, err := decodeCookies(raw)
	if err != nil {
		return nil, fmt.Errorf("cookie file [decode]: %w", err)
	}
	return cookies, nil
}

func (fs *FileStore) Save(_ context.Context, cookies []*http.Cookie) error {
	raw, err := encodeCookies(cookies)
	if err != nil {
		return fmt.Errorf("cookie file [encode]: %w", err)
	}
	if err := pkg.EnsureParentDir(fs.path); err != nil {
		return fmt.Errorf("cookie file [mkdir]: %w", err)
	}
	if err := os.WriteFile(fs.path, raw, 0600); err != nil {
		return fmt.Errorf("cookie file [write]: %w", err)
	}
	return nil
}

func (fs *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cookie file [remove]: %w", err)
	}
	return nil
}

// RedisStore shares the cookies through redis, e.g. between CLI runs on
// several hosts of one deployment.
type RedisStore struct {
	redisClient *redis.Client
	key         string
	ttl         time.Duration
}

func NewRedisStore(redisClient *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{
		redisClient: redisClient,
		key:         key,
		ttl:         ttl,
	}
}

func (rs *RedisStore) Load(ctx context.Context) ([]*http.Cookie, error) {
	cmd := rs.redisClient.Get(ctx, rs.key)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cookie redis [get]: %w", err)
	}

	cookies, err := decodeCookies([]byte(cmd.Val()))
	if err != nil {
		return nil, fmt.Errorf("cookie redis [decode]: %w", err)
	}
	return cookies, nil
}

func (rs *RedisStore) Save(ctx context.Context, cookies []*http.Cookie) error {
	raw, err := encodeCookies(cookies)
	if err != nil {
		return fmt.Errorf("cookie redis [encode]: %w", err)
	}
	if err := rs.redisClient.Set(ctx, rs.key, raw, rs.ttl).Err(); err != nil {
		return fmt.Errorf("cookie redis [set]: %w", err)
	}
	return nil
}

func (rs *RedisStore) Clear(ctx context.Context) error {
	if err := rs.redisClient.Del(ctx, rs.key).Err(); err != nil {
		return fmt.Errorf("cookie redis [del]: %w", err)
	}
	return nil
}
