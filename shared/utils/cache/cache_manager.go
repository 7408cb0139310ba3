package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"surveyhub-backend/shared/config"
)

// CacheManager is a thin JSON layer over Redis. A nil *CacheManager is valid
// and behaves as an always-missing cache, so services run without Redis.
type CacheManager struct {
	client *redis.Client
	log    *zap.Logger
}

var (
	UsageCountTTL     = 30 * time.Second
	PermissionSetTTL  = 15 * time.Minute
	DefaultTTL        = 30 * time.Minute
	ErrNotInitialized = errors.New("cache manager not initialized")
)

// NewClient builds a Redis client from configuration and pings it.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr(), err)
	}
	return client, nil
}

func New(client *redis.Client, log *zap.Logger) *CacheManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &CacheManager{client: client, log: log.Named("cache")}
}

func (cm *CacheManager) ready() bool {
	return cm != nil && cm.client != nil
}

// GetJSON decodes the cached value at key into dest and reports a hit.
func (cm *CacheManager) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if !cm.ready() {
		return false
	}
	raw, err := cm.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cm.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		cm.log.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores value at key for ttl.
func (cm *CacheManager) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !cm.ready() {
		return ErrNotInitialized
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling cache value: %w", err)
	}
	if err := cm.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("setting cache key %s: %w", key, err)
	}
	return nil
}

func (cm *CacheManager) Delete(ctx context.Context, keys ...string) error {
	if !cm.ready() || len(keys) == 0 {
		return nil
	}
	if err := cm.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting cache keys: %w", err)
	}
	return nil
}

// UsageCountKey is the key for a resource count within a scope (user or organization).
func UsageCountKey(resource string, scopeID uuid.UUID) string {
	return fmt.Sprintf("usage:%s:%s", resource, scopeID)
}

// GetCount returns a cached usage count.
func (cm *CacheManager) GetCount(ctx context.Context, resource string, scopeID uuid.UUID) (int64, bool) {
	if !cm.ready() {
		return 0, false
	}
	raw, err := cm.client.Get(ctx, UsageCountKey(resource, scopeID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (cm *CacheManager) SetCount(ctx context.Context, resource string, scopeID uuid.UUID, n int64) {
	if !cm.ready() {
		return
	}
	if err := cm.client.Set(ctx, UsageCountKey(resource, scopeID), n, UsageCountTTL).Err(); err != nil {
		cm.log.Warn("caching usage count failed", zap.String("resource", resource), zap.Error(err))
	}
}

// InvalidateUsage drops the cached count so the next check reads the database.
func (cm *CacheManager) InvalidateUsage(ctx context.Context, resource string, scopeID uuid.UUID) {
	if err := cm.Delete(ctx, UsageCountKey(resource, scopeID)); err != nil {
		cm.log.Warn("invalidating usage count failed", zap.String("resource", resource), zap.Error(err))
	}
}

// PermissionKey is the key for a member's permission set in an organization.
func PermissionKey(orgID, userID uuid.UUID) string {
	return fmt.Sprintf("perm:org:%s:user:%s", orgID, userID)
}

// InvalidateOrgPermissions drops every cached permission set of an organization.
func (cm *CacheManager) InvalidateOrgPermissions(ctx context.Context, orgID uuid.UUID) error {
	return cm.invalidateByPattern(ctx, fmt.Sprintf("perm:org:%s:*", orgID))
}

// InvalidateMemberPermissions drops one member's cached permission set.
func (cm *CacheManager) InvalidateMemberPermissions(ctx context.Context, orgID, userID uuid.UUID) error {
	return cm.Delete(ctx, PermissionKey(orgID, userID))
}

func revokedSessionKey(jti string) string {
	return "session:revoked:" + jti
}

// RevokeSession blocks a session id until its token would have expired anyway.
func (cm *CacheManager) RevokeSession(ctx context.Context, jti string, until time.Time) error {
	if !cm.ready() {
		return ErrNotInitialized
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := cm.client.Set(ctx, revokedSessionKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// IsSessionRevoked reports whether jti has been revoked. Cache errors fail open.
func (cm *CacheManager) IsSessionRevoked(ctx context.Context, jti string) bool {
	if !cm.ready() || jti == "" {
		return false
	}
	n, err := cm.client.Exists(ctx, revokedSessionKey(jti)).Result()
	if err != nil {
		cm.log.Warn("session revocation lookup failed", zap.Error(err))
		return false
	}
	return n > 0
}

func (cm *CacheManager) invalidateByPattern(ctx context.Context, pattern string) error {
	if !cm.ready() {
		return nil
	}
	iter := cm.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning keys %q: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := cm.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting keys %q: %w", pattern, err)
	}
	cm.log.Debug("cache invalidated", zap.String("pattern", pattern), zap.Int("keys", len(keys)))
	return nil
}

// GetCacheStats returns key counts per cache family.
func (cm *CacheManager) GetCacheStats(ctx context.Context) (map[string]int, error) {
	if !cm.ready() {
		return nil, ErrNotInitialized
	}
	stats := map[string]int{}
	for family, pattern := range map[string]string{
		"usage_counts":     "usage:*",
		"permission_sets":  "perm:*",
		"revoked_sessions": "session:revoked:*",
	} {
		iter := cm.client.Scan(ctx, 0, pattern, 0).Iterator()
		n := 0
		for iter.Next(ctx) {
			n++
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", family, err)
		}
		stats[family] = n
	}
	return stats, nil
}

// Ping checks Redis reachability.
func (cm *CacheManager) Ping(ctx context.Context) error {
	if !cm.ready() {
		return ErrNotInitialized
	}
	return cm.client.Ping(ctx).Err()
}

func (cm *CacheManager) Close() error {
	if cm.ready() {
		return cm.client.Close()
	}
	return nil
}
