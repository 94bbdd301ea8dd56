// Package monitor 单车驾驶员监控引擎：串联指标计算、分类、告警和事件日志
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"driveguard/internal/alert"
	"driveguard/internal/classifier"
	"driveguard/internal/eventlog"
	"driveguard/internal/models"
	"driveguard/internal/profile"

	"go.uber.org/zap"
)

// ErrUnknownMode 模式不在 registry 中
var ErrUnknownMode = errors.New("unknown mode")

// Monitor 监控引擎（并发安全）
// 帧处理和控制信号共用一把锁，帧 N 的告警和日志在帧 N+1 开始前完成
type Monitor struct {
	registry   *profile.Registry
	classifier *classifier.Classifier
	dispatcher *alert.Dispatcher
	logs       *eventlog.Store
	clock      Clock
	logger     *zap.Logger
	stats      *Stats

	mu           sync.Mutex
	profile      models.ModeProfile
	monitoring   bool
	sessionStart *time.Time
	lastFrame    time.Time
	lastCaptured time.Time
	snapshot     models.DriverStateSnapshot
}

// New 创建监控引擎，初始为未监控状态
func New(registry *profile.Registry, mode models.Mode, dispatcher *alert.Dispatcher, logs *eventlog.Store, clock Clock, logger *zap.Logger) *Monitor {
	if clock == nil {
		clock = SystemClock{}
	}
	p := registry.Get(mode)
	now := clock.Now()
	return &Monitor{
		registry:   registry,
		classifier: classifier.New(p),
		dispatcher: dispatcher,
		logs:       logs,
		clock:      clock,
		logger:     logger,
		stats:      &Stats{StartTime: now},
		profile:    p,
		lastFrame:  now,
		snapshot: models.DriverStateSnapshot{
			State:     models.StateNormal,
			Mode:      p.Mode,
			UpdatedAt: now,
		},
	}
}

// ProcessFrame 处理一帧关键点
// 监控关闭时直接丢弃，不修改任何状态，返回 false
// 指标计算失败时跳过该帧（计数器不变），返回 false
func (m *Monitor) ProcessFrame(ctx context.Context, frame *models.LandmarkFrame) (models.DriverStateSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.monitoring {
		m.stats.incDropped()
		return m.snapshot, false
	}

	now := m.clock.Now()
	result, err := m.classifier.Classify(frame, m.frameInterval(frame, now))
	if err != nil {
		// 跳过的帧不推进帧时钟，下一帧的间隔从上一个有效帧算起
		m.stats.incSkipped(now)
		m.logger.Debug("Skipping landmark frame", zap.Error(err))
		return m.snapshot, false
	}
	m.lastFrame = now
	m.lastCaptured = capturedAt(frame)

	m.snapshot = models.DriverStateSnapshot{
		EAR:          result.Metrics.EAR,
		HeadVelocity: result.Metrics.HeadVelocity,
		FPS:          result.Metrics.FPS,
		State:        result.State,
		Mode:         m.profile.Mode,
		UpdatedAt:    now,
	}

	m.dispatcher.Dispatch(ctx, result.State, m.profile, now)

	logged := false
	if logType, ok := models.LogTypeForState(result.State); ok {
		if entry, added := m.logs.Record(ctx, logType, now); added {
			logged = true
			m.logger.Info("Driver event logged",
				zap.String("id", entry.ID),
				zap.String("type", string(entry.Type)),
				zap.String("mode", string(m.profile.Mode)),
				zap.Float64("ear", result.Metrics.EAR),
				zap.Float64("head_velocity", result.Metrics.HeadVelocity),
			)
		}
	}
	m.stats.recordFrame(now, result.State == models.StateNoFace, logged)

	return m.snapshot, true
}

// frameInterval 与上一个有效帧的间隔
// 相邻两帧都带 tracker 采集时间时用采集时间差，避免网络抖动；否则用本地时钟
func (m *Monitor) frameInterval(frame *models.LandmarkFrame, now time.Time) time.Duration {
	if captured := capturedAt(frame); !captured.IsZero() && !m.lastCaptured.IsZero() {
		return captured.Sub(m.lastCaptured)
	}
	return now.Sub(m.lastFrame)
}

func capturedAt(frame *models.LandmarkFrame) time.Time {
	if frame == nil {
		return time.Time{}
	}
	return frame.CapturedAt
}

// SetMode 切换灵敏度档位，滞回计数器保留
func (m *Monitor) SetMode(mode models.Mode) error {
	if !m.registry.Has(mode) {
		return ErrUnknownMode
	}
	p := m.registry.Get(mode)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = p
	m.classifier.SetProfile(p)
	m.snapshot.Mode = p.Mode
	m.logger.Info("Mode changed", zap.String("mode", string(p.Mode)))
	return nil
}

// SetMonitoring 开关监控
// 开启：清零分类器和告警计数，记录会话开始时间；关闭：清除会话开始时间
// 事件日志不受影响
func (m *Monitor) SetMonitoring(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.monitoring = on
	if on {
		m.classifier.Reset()
		m.dispatcher.Reset()
		m.snapshot.State = models.StateNormal
		m.snapshot.UpdatedAt = now
		m.lastFrame = now
		m.lastCaptured = time.Time{}
		start := now
		m.sessionStart = &start
		m.logger.Info("Monitoring started", zap.String("mode", string(m.profile.Mode)))
		return
	}
	if m.sessionStart != nil {
		m.logger.Info("Monitoring stopped",
			zap.String("duration", FormatElapsed(now.Sub(*m.sessionStart))),
			zap.Int("alert_count", m.dispatcher.AlertCount()),
		)
	}
	m.sessionStart = nil
}

// ClearLog 清空事件日志
func (m *Monitor) ClearLog(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs.Clear(ctx)
	m.logger.Info("Driver log cleared")
}

// Snapshot 最新驾驶员状态
func (m *Monitor) Snapshot() models.DriverStateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Session 当前会话信息
func (m *Monitor) Session() models.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := models.SessionInfo{
		Monitoring: m.monitoring,
		Mode:       m.profile.Mode,
		AlertCount: m.dispatcher.AlertCount(),
	}
	if m.sessionStart != nil {
		start := *m.sessionStart
		info.StartedAt = &start
	}
	return info
}

// Elapsed 会话已持续时间，未监控时返回 0
func (m *Monitor) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionStart == nil {
		return 0
	}
	return m.clock.Now().Sub(*m.sessionStart)
}

// Logs 事件日志副本，最新在前
func (m *Monitor) Logs() []models.LogEntry {
	return m.logs.Entries()
}

// LogStore 底层事件日志（导出用）
func (m *Monitor) LogStore() *eventlog.Store {
	return m.logs
}

// Profiles 可选的模式配置
func (m *Monitor) Profiles() []models.ModeProfile {
	return m.registry.All()
}

// Stats 帧处理统计
func (m *Monitor) Stats() StatsSnapshot {
	return m.stats.GetSnapshot(m.clock.Now())
}
