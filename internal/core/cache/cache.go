// Package cache 提供推薦結果的快取，支援記憶體與 Redis 兩種實作
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

// Cache 快取介面，查無資料時 Get 回傳 common.ErrCacheMiss
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Clear 清除全部項目，啟動時用來丟棄舊語料庫算出的排序
	Clear(ctx context.Context) error
	Close() error
}

// Pinger 需要連線的快取後端
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping 檢查快取後端連線，不需要連線的實作永遠回傳 nil
func Ping(ctx context.Context, c Cache) error {
	if p, ok := c.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Key 由命名空間與組成部分產生固定長度的快取鍵
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return fmt.Sprintf("%s:%s", namespace, hex.EncodeToString(hash[:]))
}

// New 依設定建立快取，停用時回傳不做任何事的實作
func New(ctx context.Context, cfg *config.Config) (Cache, error) {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return Disabled{}, nil
	}

	switch cfg.Cache.Driver {
	case "redis":
		rc, err := NewRedisCache(ctx, cfg.Redis, cfg.Cache.TTL, "recipe")
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return NewManager(cfg.Cache), nil
	}
}

// Disabled 停用狀態的快取
type Disabled struct{}

// Get 永遠回傳 common.ErrCacheDisabled
func (Disabled) Get(context.Context, string) (string, error) {
	return "", common.ErrCacheDisabled
}

func (Disabled) Set(context.Context, string, string) error {
	return nil
}

func (Disabled) Clear(context.Context) error {
	return nil
}

func (Disabled) Close() error {
	return nil
}
