// Package consumer 从 MQTT 接收 tracker 关键点帧和控制指令，驱动监控引擎
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mqttcommon "driveguard/common/mqtt"
	"driveguard/internal/models"
	"driveguard/internal/profile"

	"go.uber.org/zap"
)

// ErrUnknownCommand 无法识别的控制指令
var ErrUnknownCommand = errors.New("unknown control command")

// Subscriber MQTT 订阅能力（common/mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// Engine 监控引擎（monitor.Monitor 实现）
type Engine interface {
	ProcessFrame(ctx context.Context, frame *models.LandmarkFrame) (models.DriverStateSnapshot, bool)
	SetMode(mode models.Mode) error
	SetMonitoring(on bool)
	ClearLog(ctx context.Context)
}

// LandmarkTopic 关键点帧主题
func LandmarkTopic(vehicleID string) string {
	return fmt.Sprintf("driveguard/%s/landmarks", vehicleID)
}

// ControlTopic 控制指令主题
func ControlTopic(vehicleID string) string {
	return fmt.Sprintf("driveguard/%s/control", vehicleID)
}

// AlertTopic 告警输出主题（车机 HMI 订阅）
func AlertTopic(vehicleID string) string {
	return fmt.Sprintf("driveguard/%s/alerts", vehicleID)
}

// FrameConsumer MQTT 帧消费者
type FrameConsumer struct {
	subscriber Subscriber
	engine     Engine
	vehicleID  string
	logger     *zap.Logger
	ctx        context.Context
}

// NewFrameConsumer 创建帧消费者
func NewFrameConsumer(subscriber Subscriber, engine Engine, vehicleID string, logger *zap.Logger) *FrameConsumer {
	return &FrameConsumer{
		subscriber: subscriber,
		engine:     engine,
		vehicleID:  vehicleID,
		logger:     logger,
		ctx:        context.Background(),
	}
}

// Start 订阅主题并阻塞到 ctx 取消
func (c *FrameConsumer) Start(ctx context.Context) error {
	c.ctx = ctx

	// 帧丢失只是短暂空档，用 QoS 0；控制指令需要送达
	if err := c.subscriber.Subscribe(LandmarkTopic(c.vehicleID), 0, c.handleLandmarks); err != nil {
		return fmt.Errorf("failed to subscribe to landmark topic: %w", err)
	}
	if err := c.subscriber.Subscribe(ControlTopic(c.vehicleID), 1, c.handleControl); err != nil {
		return fmt.Errorf("failed to subscribe to control topic: %w", err)
	}

	c.logger.Info("Frame consumer started",
		zap.String("vehicle_id", c.vehicleID),
		zap.String("landmark_topic", LandmarkTopic(c.vehicleID)),
		zap.String("control_topic", ControlTopic(c.vehicleID)),
	)

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *FrameConsumer) Stop(_ context.Context) error {
	if err := c.subscriber.Unsubscribe(LandmarkTopic(c.vehicleID), ControlTopic(c.vehicleID)); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("Frame consumer stopped")
	return nil
}

func (c *FrameConsumer) handleLandmarks(topic string, payload []byte) error {
	var msg models.LandmarkPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal landmark payload: %w", err)
	}

	snap, processed := c.engine.ProcessFrame(c.ctx, msg.Frame())
	if processed && snap.State != models.StateNormal {
		c.logger.Debug("Frame classified",
			zap.String("topic", topic),
			zap.String("state", string(snap.State)),
			zap.Float64("ear", snap.EAR),
			zap.Float64("head_velocity", snap.HeadVelocity),
		)
	}
	return nil
}

func (c *FrameConsumer) handleControl(topic string, payload []byte) error {
	var cmd models.ControlCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal control payload: %w", err)
	}

	c.logger.Info("Received control command",
		zap.String("topic", topic),
		zap.String("command", cmd.Command),
	)
	return ApplyCommand(c.ctx, c.engine, cmd)
}

// ApplyCommand 执行一条控制指令
func ApplyCommand(ctx context.Context, engine Engine, cmd models.ControlCommand) error {
	switch cmd.Command {
	case models.CommandSetMode:
		mode, ok := profile.ParseMode(cmd.Mode)
		if !ok {
			return fmt.Errorf("invalid mode %q", cmd.Mode)
		}
		return engine.SetMode(mode)
	case models.CommandSetMonitoring:
		if cmd.Enabled == nil {
			return errors.New("set_monitoring requires enabled")
		}
		engine.SetMonitoring(*cmd.Enabled)
		return nil
	case models.CommandClearLog:
		engine.ClearLog(ctx)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
}
