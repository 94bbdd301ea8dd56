// Package alert 告警分发：按分类结果做墙钟去抖，调用注入的 AlertSink
package alert

import (
	"context"
	"fmt"
	"time"

	"driveguard/internal/models"

	"go.uber.org/zap"
)

// DefaultAudioDebounce DROWSY/DISTRACTED 两次播报的最小间隔
const DefaultAudioDebounce = 3 * time.Second

// Dispatcher 告警分发器（非并发安全，由 monitor 加锁调用）
type Dispatcher struct {
	sink          AlertSink
	logger        *zap.Logger
	audioDebounce time.Duration

	lastAudio  time.Time
	alertCount int
}

// NewDispatcher 创建告警分发器
func NewDispatcher(sink AlertSink, logger *zap.Logger, audioDebounce time.Duration) *Dispatcher {
	if audioDebounce <= 0 {
		audioDebounce = DefaultAudioDebounce
	}
	return &Dispatcher{
		sink:          sink,
		logger:        logger,
		audioDebounce: audioDebounce,
	}
}

// Dispatch 处理一帧的分类结果
// NO_FACE：按 profile.NoFaceDebounce 去抖播报
// DROWSY/DISTRACTED：告警计数每帧 +1（不去抖），播报按 audioDebounce 去抖
// NORMAL：停止播放（幂等）
func (d *Dispatcher) Dispatch(ctx context.Context, state models.AttentionState, profile models.ModeProfile, now time.Time) {
	switch state {
	case models.StateNoFace:
		if now.Sub(d.lastAudio) > profile.NoFaceDebounce {
			d.trigger(ctx, models.AlertNoFace, now)
		}
	case models.StateDrowsy, models.StateDistracted:
		d.alertCount++
		kind, _ := models.AlertKindForState(state)
		if now.Sub(d.lastAudio) > d.audioDebounce {
			d.trigger(ctx, kind, now)
		}
	case models.StateNormal:
		d.stop(ctx)
	}
}

// AlertCount 本次监控会话的告警帧计数
func (d *Dispatcher) AlertCount() int {
	return d.alertCount
}

// Reset 开启监控时清零告警计数；播报时钟保留，避免重开后立即重复播报
func (d *Dispatcher) Reset() {
	d.alertCount = 0
}

func (d *Dispatcher) trigger(ctx context.Context, kind models.AlertKind, now time.Time) {
	d.lastAudio = now
	if err := d.safeCall(func() error { return d.sink.Trigger(ctx, kind) }); err != nil {
		d.logger.Warn("Alert sink trigger failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) stop(ctx context.Context) {
	if err := d.safeCall(func() error { return d.sink.Stop(ctx) }); err != nil {
		d.logger.Warn("Alert sink stop failed", zap.Error(err))
	}
}

// safeCall sink 的错误和 panic 都不能中断帧处理
func (d *Dispatcher) safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("alert sink panic: %v", r)
		}
	}()
	return fn()
}
