// Package eventlog 驾驶事件日志：去重、限长、保留期裁剪，持久化到可替换的 KV
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"driveguard/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultKey 持久化 key
	DefaultKey = "driver_logs"
	// MaxEntries 日志最多保留条数
	MaxEntries = 50
	// DedupeWindow 同类型事件的去重窗口
	DedupeWindow = 3 * time.Second
	// Retention 加载时丢弃早于该时长的条目
	Retention = 72 * time.Hour

	// TimestampLayout ISO-8601 UTC，毫秒精度
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// storedEntry 持久化格式
type storedEntry struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Type      models.LogType `json:"type"`
}

// Store 事件日志（并发安全）
// 内存中的日志是权威数据，持久化失败只记 warning
type Store struct {
	kv     KVStore
	key    string
	logger *zap.Logger
	newID  func() string

	mu      sync.RWMutex
	entries []models.LogEntry // newest first
	pruned  bool
}

// NewStore 创建事件日志，key 为空时使用 DefaultKey
func NewStore(kv KVStore, key string, logger *zap.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		kv:     kv,
		key:    key,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}
}

// Load 从 KV 读取日志；读失败或数据损坏时从空日志开始
// 首次加载时丢弃早于 now-Retention 的条目
func (s *Store) Load(ctx context.Context, now time.Time) {
	entries := s.read(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	if !s.pruned {
		s.pruned = true
		cutoff := now.Add(-Retention)
		kept := entries[:0]
		for _, e := range entries {
			if e.Timestamp.Before(cutoff) {
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) != len(entries) {
			s.logger.Info("Pruned expired driver log entries",
				zap.Int("removed", len(entries)-len(kept)),
				zap.Int("remaining", len(kept)),
			)
			changed = true
		}
		entries = kept
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
		changed = true
	}
	s.entries = entries

	if changed {
		s.persistLocked(ctx)
	}
}

func (s *Store) read(ctx context.Context) []models.LogEntry {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			s.logger.Warn("Failed to read driver log, starting empty",
				zap.String("key", s.key),
				zap.Error(err),
			)
		}
		return nil
	}

	var stored []storedEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("Corrupt driver log, starting empty",
			zap.String("key", s.key),
			zap.Error(err),
		)
		return nil
	}

	entries := make([]models.LogEntry, 0, len(stored))
	for _, se := range stored {
		ts, err := time.Parse(time.RFC3339Nano, se.Timestamp)
		if err != nil {
			s.logger.Warn("Skipping driver log entry with bad timestamp",
				zap.String("id", se.ID),
				zap.String("timestamp", se.Timestamp),
			)
			continue
		}
		entries = append(entries, models.LogEntry{ID: se.ID, Timestamp: ts.UTC(), Type: se.Type})
	}
	return entries
}

// Record 记录一次事件；最新一条同类型且间隔不足 DedupeWindow 时不记录，返回 false
func (s *Store) Record(ctx context.Context, logType models.LogType, now time.Time) (models.LogEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) > 0 {
		last := s.entries[0]
		if last.Type == logType && now.Sub(last.Timestamp) < DedupeWindow {
			return models.LogEntry{}, false
		}
	}

	entry := models.LogEntry{
		ID:        s.newID(),
		Timestamp: now.UTC(),
		Type:      logType,
	}
	entries := make([]models.LogEntry, 0, MaxEntries)
	entries = append(entries, entry)
	entries = append(entries, s.entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	s.entries = entries

	s.persistLocked(ctx)
	return entry, true
}

// Clear 清空日志并删除持久化数据
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	if err := s.kv.Remove(ctx, s.key); err != nil {
		s.logger.Warn("Failed to remove driver log",
			zap.String("key", s.key),
			zap.Error(err),
		)
	}
}

// Entries 日志副本，最新在前
func (s *Store) Entries() []models.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len 当前条数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) persistLocked(ctx context.Context) {
	stored := make([]storedEntry, 0, len(s.entries))
	for _, e := range s.entries {
		stored = append(stored, storedEntry{
			ID:        e.ID,
			Timestamp: FormatTimestamp(e.Timestamp),
			Type:      e.Type,
		})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		s.logger.Warn("Failed to marshal driver log", zap.Error(err))
		return
	}
	// 日志自身按保留期裁剪，KV 不设过期
	if err := s.kv.Set(ctx, s.key, string(data), 0); err != nil {
		s.logger.Warn("Failed to persist driver log",
			zap.String("key", s.key),
			zap.Int("entries", len(stored)),
			zap.Error(err),
		)
	}
}

// FormatTimestamp 日志时间戳的文本格式
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
