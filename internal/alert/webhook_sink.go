package alert

import (
	"context"
	"fmt"
	"time"

	"driveguard/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookSink 把触发的告警 POST 到车队管理平台
type WebhookSink struct {
	httpClient *resty.Client
	url        string
	vehicleID  string
	logger     *zap.Logger
}

// NewWebhookSink 创建 webhook sink
func NewWebhookSink(url, vehicleID string, timeout time.Duration, logger *zap.Logger) *WebhookSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookSink{
		httpClient: client,
		url:        url,
		vehicleID:  vehicleID,
		logger:     logger,
	}
}

func (s *WebhookSink) Trigger(ctx context.Context, kind models.AlertKind) error {
	ev := Event{
		Action:    ActionTrigger,
		Kind:      kind,
		VehicleID: s.vehicleID,
		Timestamp: time.Now().UTC(),
	}

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(ev).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("failed to post alert webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode())
	}

	s.logger.Debug("Alert webhook delivered",
		zap.String("kind", string(kind)),
		zap.Int("status", resp.StatusCode()),
	)
	return nil
}

// Stop 平台只关心触发事件
func (s *WebhookSink) Stop(_ context.Context) error {
	return nil
}
