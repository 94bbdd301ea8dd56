package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"driveguard/internal/models"
)

// Publisher MQTT 发布能力（common/mqtt.Client 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTSink 把告警发布到车机 HMI 订阅的主题，由 HMI 负责声音和语音播报
type MQTTSink struct {
	publisher Publisher
	topic     string
	qos       byte
	vehicleID string
	now       func() time.Time

	mu      sync.Mutex
	playing bool
}

// NewMQTTSink 创建 MQTT sink
func NewMQTTSink(publisher Publisher, topic string, qos byte, vehicleID string) *MQTTSink {
	return &MQTTSink{
		publisher: publisher,
		topic:     topic,
		qos:       qos,
		vehicleID: vehicleID,
		now:       time.Now,
	}
}

func (s *MQTTSink) Trigger(_ context.Context, kind models.AlertKind) error {
	if err := s.publish(Event{Action: ActionTrigger, Kind: kind}); err != nil {
		return err
	}
	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()
	return nil
}

// Stop 没有正在播放的告警时不发消息，避免 NORMAL 帧每帧刷屏
func (s *MQTTSink) Stop(_ context.Context) error {
	s.mu.Lock()
	playing := s.playing
	s.mu.Unlock()
	if !playing {
		return nil
	}
	if err := s.publish(Event{Action: ActionStop}); err != nil {
		return err
	}
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
	return nil
}

func (s *MQTTSink) publish(ev Event) error {
	ev.VehicleID = s.vehicleID
	ev.Timestamp = s.now().UTC()
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}
	return s.publisher.Publish(s.topic, s.qos, false, payload)
}
