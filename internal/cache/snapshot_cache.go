// Package cache 把车辆实时状态写入 Redis，供车队后台和 HMI 读取
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"driveguard/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrCacheMiss 表示缓存不存在（TTL 过期或从未写入）
var ErrCacheMiss = errors.New("cache miss")

// VehicleState 缓存内容
type VehicleState struct {
	VehicleID string                     `json:"vehicle_id"`
	Snapshot  models.DriverStateSnapshot `json:"snapshot"`
	Session   models.SessionInfo         `json:"session"`
	CachedAt  time.Time                  `json:"cached_at"`
}

// Source 状态来源（monitor.Monitor 实现）
type Source interface {
	Snapshot() models.DriverStateSnapshot
	Session() models.SessionInfo
}

// SnapshotCache 定期把状态写入 Redis
type SnapshotCache struct {
	client    *redis.Client
	vehicleID string
	interval  time.Duration
	ttl       time.Duration
	logger    *zap.Logger
}

// NewSnapshotCache 创建状态缓存
func NewSnapshotCache(client *redis.Client, vehicleID string, interval, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	if interval <= 0 {
		interval = time.Second
	}
	if ttl <= 0 {
		ttl = 10 * interval
	}
	return &SnapshotCache{
		client:    client,
		vehicleID: vehicleID,
		interval:  interval,
		ttl:       ttl,
		logger:    logger,
	}
}

// Key 车辆状态的 Redis key
func Key(vehicleID string) string {
	return fmt.Sprintf("driveguard:vehicle:%s:state", vehicleID)
}

// Start 启动定时写入（阻塞到 ctx 取消）
func (c *SnapshotCache) Start(ctx context.Context, source Source) error {
	c.logger.Info("Snapshot cache started",
		zap.String("key", Key(c.vehicleID)),
		zap.Duration("interval", c.interval),
		zap.Duration("ttl", c.ttl),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// 立即写入一次
	if err := c.Write(ctx, source); err != nil {
		c.logger.Error("Failed to write snapshot on startup", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Snapshot cache stopped")
			return nil
		case <-ticker.C:
			if err := c.Write(ctx, source); err != nil {
				c.logger.Error("Failed to write snapshot", zap.Error(err))
				// 继续执行，不中断
			}
		}
	}
}

// Write 写入一次当前状态
func (c *SnapshotCache) Write(ctx context.Context, source Source) error {
	state := VehicleState{
		VehicleID: c.vehicleID,
		Snapshot:  source.Snapshot(),
		Session:   source.Session(),
		CachedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle state: %w", err)
	}
	if err := c.client.Set(ctx, Key(c.vehicleID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set vehicle state: %w", err)
	}
	return nil
}

// Get 读取车辆状态
func (c *SnapshotCache) Get(ctx context.Context, vehicleID string) (*VehicleState, error) {
	data, err := c.client.Get(ctx, Key(vehicleID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get vehicle state: %w", err)
	}

	var state VehicleState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vehicle state: %w", err)
	}
	return &state, nil
}
