package alert

import (
	"context"
	"errors"
	"time"

	"driveguard/internal/models"

	"go.uber.org/zap"
)

// AlertSink 告警输出能力（声音/语音/远程通知），由宿主创建和释放
type AlertSink interface {
	Trigger(ctx context.Context, kind models.AlertKind) error
	Stop(ctx context.Context) error
}

const (
	ActionTrigger = "trigger"
	ActionStop    = "stop"
)

// Event 发往远程 sink 的告警消息
type Event struct {
	Action    string           `json:"action"`
	Kind      models.AlertKind `json:"kind,omitempty"`
	VehicleID string           `json:"vehicle_id"`
	Timestamp time.Time        `json:"timestamp"`
}

// LogSink 只写日志的 sink（未配置其它输出时的默认值）
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink 创建日志 sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Trigger(_ context.Context, kind models.AlertKind) error {
	s.logger.Warn("Driver alert triggered", zap.String("kind", string(kind)))
	return nil
}

func (s *LogSink) Stop(_ context.Context) error {
	s.logger.Debug("Driver alert stopped")
	return nil
}

// MultiSink 扇出到多个 sink，单个失败不影响其它
type MultiSink []AlertSink

func (m MultiSink) Trigger(ctx context.Context, kind models.AlertKind) error {
	var errs []error
	for _, s := range m {
		if err := s.Trigger(ctx, kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Stop(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
