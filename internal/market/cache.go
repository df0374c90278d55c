package market

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultCacheTTL 是行情缓存的默认有效期。
const defaultCacheTTL = 10 * time.Second

// Cache 定义行情缓存接口。Get 返回的副本归调用方所有。
type Cache interface {
	Get(ctx context.Context, symbol string) (*Price, bool)
	Set(ctx context.Context, symbol string, price *Price)
}

// MemoryCache 是互斥锁保护的进程内 TTL 缓存。
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	price     Price
	expiresAt time.Time
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache 创建进程内行情缓存。
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get 返回未过期的缓存行情。
func (c *MemoryCache) Get(_ context.Context, symbol string) (*Price, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[symbol]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, symbol)
		return nil, false
	}
	price := entry.price
	return &price, true
}

// Set 写入缓存并重置过期时间。
func (c *MemoryCache) Set(_ context.Context, symbol string, price *Price) {
	if price == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = memoryEntry{
		price:     *price,
		expiresAt: c.now().Add(c.ttl),
	}
}

// RedisCache 使用 Redis 存储行情缓存，多副本部署时共享。
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ Cache = (*RedisCache)(nil)

// RedisCacheConfig 描述 Redis 行情缓存的连接参数。
type RedisCacheConfig struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache 创建 Redis 行情缓存。
func NewRedisCache(cfg RedisCacheConfig) (*RedisCache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "crossmind:price:"}, nil
}

// Get 读取 Redis 中的缓存行情。反序列化失败按未命中处理。
func (c *RedisCache) Get(ctx context.Context, symbol string) (*Price, bool) {
	payload, err := c.client.Get(ctx, c.prefix+symbol).Bytes()
	if err != nil {
		return nil, false
	}
	var price Price
	if err := json.Unmarshal(payload, &price); err != nil {
		return nil, false
	}
	return &price, true
}

// Set 将行情写入 Redis 并设置过期时间。写入失败只影响缓存命中率。
func (c *RedisCache) Set(ctx context.Context, symbol string, price *Price) {
	if price == nil {
		return
	}
	payload, err := json.Marshal(price)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+symbol, payload, c.ttl).Err()
}

// Close 关闭 Redis 连接。
func (c *RedisCache) Close() error {
	return c.client.Close()
}
