package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	mqttcommon "driveguard/common/mqtt"
	"driveguard/internal/models"
	"driveguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubscriber struct {
	mu           sync.Mutex
	handlers     map[string]mqttcommon.MessageHandler
	qos          map[string]byte
	unsubscribed []string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{
		handlers: make(map[string]mqttcommon.MessageHandler),
		qos:      make(map[string]byte),
	}
}

func (s *fakeSubscriber) Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[topic] = handler
	s.qos[topic] = qos
	return nil
}

func (s *fakeSubscriber) Unsubscribe(topics ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed = append(s.unsubscribed, topics...)
	return nil
}

type fakeEngine struct {
	frames     []*models.LandmarkFrame
	modes      []models.Mode
	monitoring []bool
	clears     int
}

func (e *fakeEngine) ProcessFrame(_ context.Context, frame *models.LandmarkFrame) (models.DriverStateSnapshot, bool) {
	e.frames = append(e.frames, frame)
	return models.DriverStateSnapshot{State: models.StateNormal}, true
}

func (e *fakeEngine) SetMode(mode models.Mode) error {
	e.modes = append(e.modes, mode)
	return nil
}

func (e *fakeEngine) SetMonitoring(on bool) { e.monitoring = append(e.monitoring, on) }

func (e *fakeEngine) ClearLog(context.Context) { e.clears++ }

func startConsumer(t *testing.T) (*fakeSubscriber, *fakeEngine, *FrameConsumer) {
	t.Helper()
	sub := newFakeSubscriber()
	engine := &fakeEngine{}
	c := NewFrameConsumer(sub, engine, "cab-7", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		return len(sub.subscribedTopics()) == 2
	}, time.Second, 5*time.Millisecond)
	return sub, engine, c
}

func (s *fakeSubscriber) handler(topic string) mqttcommon.MessageHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[topic]
}

func (s *fakeSubscriber) subscribedTopics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var topics []string
	for topic := range s.handlers {
		topics = append(topics, topic)
	}
	return topics
}

func TestFrameConsumer_SubscribesVehicleTopics(t *testing.T) {
	sub, _, _ := startConsumer(t)

	assert.ElementsMatch(t, []string{"driveguard/cab-7/landmarks", "driveguard/cab-7/control"}, sub.subscribedTopics())
	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.Equal(t, byte(0), sub.qos["driveguard/cab-7/landmarks"])
	assert.Equal(t, byte(1), sub.qos["driveguard/cab-7/control"])
}

func TestHandleLandmarks_FirstFace(t *testing.T) {
	sub, engine, _ := startConsumer(t)
	face := testutil.FaceFrame(0.3, models.Point{X: 0.5, Y: 0.6})
	other := testutil.ClosedEyes(models.Point{X: 0.1, Y: 0.1})
	payload, err := json.Marshal(models.LandmarkPayload{
		Timestamp: 1760857200000,
		Faces:     [][]models.Point{face.Points, other.Points},
	})
	require.NoError(t, err)

	require.NoError(t, sub.handler(LandmarkTopic("cab-7"))(LandmarkTopic("cab-7"), payload))

	require.Len(t, engine.frames, 1)
	assert.Len(t, engine.frames[0].Points, models.RequiredLandmarks)
	assert.Equal(t, models.Point{X: 0.5, Y: 0.6}, engine.frames[0].Points[1])
	assert.Equal(t, time.UnixMilli(1760857200000).UTC(), engine.frames[0].CapturedAt)
}

func TestHandleLandmarks_NoFaces(t *testing.T) {
	sub, engine, _ := startConsumer(t)

	require.NoError(t, sub.handler(LandmarkTopic("cab-7"))(LandmarkTopic("cab-7"), []byte(`{"timestamp":1,"faces":[]}`)))

	require.Len(t, engine.frames, 1)
	assert.False(t, engine.frames[0].HasFace())
}

func TestHandleLandmarks_MalformedDropped(t *testing.T) {
	sub, engine, _ := startConsumer(t)

	err := sub.handler(LandmarkTopic("cab-7"))(LandmarkTopic("cab-7"), []byte(`{"faces":`))

	assert.Error(t, err)
	assert.Empty(t, engine.frames)
}

func TestHandleControl(t *testing.T) {
	sub, engine, _ := startConsumer(t)
	handle := sub.handler(ControlTopic("cab-7"))

	require.NoError(t, handle("", []byte(`{"command":"set_mode","mode":"emergency"}`)))
	require.NoError(t, handle("", []byte(`{"command":"set_monitoring","enabled":true}`)))
	require.NoError(t, handle("", []byte(`{"command":"set_monitoring","enabled":false}`)))
	require.NoError(t, handle("", []byte(`{"command":"clear_log"}`)))

	assert.Equal(t, []models.Mode{models.ModeEmergency}, engine.modes)
	assert.Equal(t, []bool{true, false}, engine.monitoring)
	assert.Equal(t, 1, engine.clears)
}

func TestHandleControl_Errors(t *testing.T) {
	sub, engine, _ := startConsumer(t)
	handle := sub.handler(ControlTopic("cab-7"))

	for _, payload := range []string{
		`{"command":"set_mode","mode":"TURBO"}`,
		`{"command":"set_monitoring"}`,
		`not json`,
	} {
		assert.Error(t, handle("", []byte(payload)), fmt.Sprintf("payload %s", payload))
	}
	assert.ErrorIs(t, handle("", []byte(`{"command":"reboot"}`)), ErrUnknownCommand)
	assert.Empty(t, engine.modes)
	assert.Empty(t, engine.monitoring)
}

func TestFrameConsumer_Stop(t *testing.T) {
	sub, _, c := startConsumer(t)

	require.NoError(t, c.Stop(context.Background()))

	assert.ElementsMatch(t, []string{"driveguard/cab-7/landmarks", "driveguard/cab-7/control"}, sub.unsubscribed)
}
