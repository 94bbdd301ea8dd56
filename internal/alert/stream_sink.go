package alert

import (
	"context"
	"fmt"
	"time"

	rediscommon "driveguard/common/redis"
	"driveguard/internal/models"

	"github.com/go-redis/redis/v8"
)

// StreamSink 把触发的告警追加到 Redis Stream，供车队后台消费
// 只记录 trigger，stop 不入流
type StreamSink struct {
	client    *redis.Client
	stream    string
	maxLen    int64
	vehicleID string
}

// NewStreamSink 创建 Redis Stream sink
func NewStreamSink(client *redis.Client, stream string, maxLen int64, vehicleID string) *StreamSink {
	return &StreamSink{
		client:    client,
		stream:    stream,
		maxLen:    maxLen,
		vehicleID: vehicleID,
	}
}

func (s *StreamSink) Trigger(ctx context.Context, kind models.AlertKind) error {
	ev := Event{
		Action:    ActionTrigger,
		Kind:      kind,
		VehicleID: s.vehicleID,
		Timestamp: time.Now().UTC(),
	}
	if _, err := rediscommon.PublishJSONToStream(ctx, s.client, s.stream, ev, s.maxLen); err != nil {
		return fmt.Errorf("failed to publish alert to stream %s: %w", s.stream, err)
	}
	return nil
}

func (s *StreamSink) Stop(_ context.Context) error {
	return nil
}
