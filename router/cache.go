package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/agentmesh/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheConfig 决策缓存配置
type CacheConfig struct {
	// TTL 条目存活时间，插入后超时即视为未命中（惰性清除）
	TTL time.Duration `yaml:"ttl" json:"ttl"`
	// MaxEntries 本地最大条目数，超出时先清除最早插入的条目
	MaxEntries int `yaml:"max_entries" json:"max_entries"`
}

// DefaultCacheConfig 默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        5 * time.Minute,
		MaxEntries: 1000,
	}
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Size    int     `json:"size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type cacheEntry struct {
	decision  *types.RoutingDecision
	createdAt time.Time
}

// DecisionCache 有界 TTL 决策缓存：本地 map + 插入序清除，
// 可选 Redis 二级层（Redis 故障降级为未命中，绝不让路由失败）。
// 所有操作并发安全。
type DecisionCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	config  CacheConfig

	hits   uint64
	misses uint64

	redis    *redis.Client
	redisTTL time.Duration

	logger *zap.Logger
	nowFn  func() time.Time
}

// CacheOption 配置 DecisionCache。
type CacheOption func(*DecisionCache)

// WithRedis 启用 Redis 二级缓存层。ttl 为零时沿用本地 TTL。
func WithRedis(client *redis.Client, ttl time.Duration) CacheOption {
	return func(c *DecisionCache) {
		c.redis = client
		c.redisTTL = ttl
	}
}

// NewDecisionCache 创建决策缓存。
func NewDecisionCache(config CacheConfig, logger *zap.Logger, opts ...CacheOption) *DecisionCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig().TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig().MaxEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &DecisionCache{
		entries: make(map[string]*cacheEntry),
		config:  config,
		logger:  logger.With(zap.String("component", "decision_cache")),
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.redis != nil && c.redisTTL <= 0 {
		c.redisTTL = config.TTL
	}
	return c
}

// Get 按 fingerprint 查询决策。过期条目按未命中处理并顺手删除。
// 命中时返回副本，调用方自由修改不影响缓存内容。
func (c *DecisionCache) Get(ctx context.Context, fingerprint string) (*types.RoutingDecision, bool) {
	c.mu.Lock()

	if entry, ok := c.entries[fingerprint]; ok {
		if c.nowFn().Sub(entry.createdAt) < c.config.TTL {
			c.hits++
			d := entry.decision.Clone()
			c.mu.Unlock()
			return d, true
		}
		// 惰性清除过期条目
		c.removeLocked(fingerprint)
	}
	c.mu.Unlock()

	// 二级层：本地未命中且配置了 Redis 时回源。
	// 命中/未命中在二级层结果确定后一次性记账。
	if c.redis != nil {
		if d, ok := c.getRedis(ctx, fingerprint); ok {
			c.mu.Lock()
			c.setLocked(fingerprint, d.Clone())
			c.hits++
			c.mu.Unlock()
			return d.Clone(), true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, false
}

// Set 写入决策。超出容量时先清除最早插入的条目。
func (c *DecisionCache) Set(ctx context.Context, fingerprint string, decision *types.RoutingDecision) {
	if decision == nil {
		return
	}

	c.mu.Lock()
	c.setLocked(fingerprint, decision.Clone())
	c.mu.Unlock()

	if c.redis != nil {
		if err := c.setRedis(ctx, fingerprint, decision); err != nil {
			c.logger.Warn("redis cache set failed", zap.Error(err))
		}
	}
}

// Clear 清空本地缓存并重置统计。Redis 层条目由其自身 TTL 过期。
func (c *DecisionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.hits = 0
	c.misses = 0
}

// Stats 返回缓存统计。
func (c *DecisionCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:   len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

func (c *DecisionCache) setLocked(fingerprint string, decision *types.RoutingDecision) {
	if _, exists := c.entries[fingerprint]; exists {
		c.removeLocked(fingerprint)
	}
	for len(c.entries) >= c.config.MaxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.removeLocked(oldest)
		c.logger.Debug("evicted oldest cache entry", zap.String("fingerprint", oldest))
	}
	c.entries[fingerprint] = &cacheEntry{decision: decision, createdAt: c.nowFn()}
	c.order = append(c.order, fingerprint)
}

func (c *DecisionCache) removeLocked(fingerprint string) {
	delete(c.entries, fingerprint)
	c.removeFromOrderLocked(fingerprint)
}

func (c *DecisionCache) removeFromOrderLocked(fingerprint string) {
	for i, fp := range c.order {
		if fp == fingerprint {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *DecisionCache) getRedis(ctx context.Context, fingerprint string) (*types.RoutingDecision, bool) {
	data, err := c.redis.Get(ctx, c.redisKey(fingerprint)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var d types.RoutingDecision
	if err := json.Unmarshal(data, &d); err != nil {
		c.logger.Warn("redis cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return &d, true
}

func (c *DecisionCache) setRedis(ctx context.Context, fingerprint string, decision *types.RoutingDecision) error {
	data, err := json.Marshal(decision)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, c.redisKey(fingerprint), data, c.redisTTL).Err()
}

func (c *DecisionCache) redisKey(fingerprint string) string {
	return "agentmesh:decision:" + fingerprint
}
