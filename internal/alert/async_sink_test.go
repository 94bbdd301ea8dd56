package alert

import (
	"context"
	"sync"
	"testing"

	"driveguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAsyncSink_DeliversInOrder(t *testing.T) {
	inner := &fakeSink{}
	s := NewAsyncSink(inner, 8, zap.NewNop())
	s.Start(context.Background())

	require.NoError(t, s.Trigger(context.Background(), models.AlertDrowsiness))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Trigger(context.Background(), models.AlertNoFace))
	s.Close()

	assert.Equal(t, []models.AlertKind{models.AlertDrowsiness, models.AlertNoFace}, inner.Triggers())
	assert.Equal(t, 1, inner.Stops())
}

func TestAsyncSink_DropsWhenFull(t *testing.T) {
	inner := &fakeSink{}
	s := NewAsyncSink(inner, 1, zap.NewNop())
	// 未启动消费者，队列只能放一条

	require.NoError(t, s.Trigger(context.Background(), models.AlertDrowsiness))
	err := s.Trigger(context.Background(), models.AlertDistraction)

	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int64(1), s.Dropped())

	s.Start(context.Background())
	s.Close()
	assert.Equal(t, []models.AlertKind{models.AlertDrowsiness}, inner.Triggers())
}

// blockingSink 第一次 Trigger 阻塞到 release 关闭
type blockingSink struct {
	fakeSink
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSink) Trigger(ctx context.Context, kind models.AlertKind) error {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.started)
		<-b.release
	}
	return b.fakeSink.Trigger(ctx, kind)
}

func TestAsyncSink_RepeatedStopsDoNotCrowdOutTriggers(t *testing.T) {
	inner := &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
	s := NewAsyncSink(inner, 2, zap.NewNop())
	s.Start(context.Background())

	require.NoError(t, s.Trigger(context.Background(), models.AlertDrowsiness))
	<-inner.started

	for i := 0; i < 40; i++ {
		require.NoError(t, s.Stop(context.Background()))
	}
	require.NoError(t, s.Trigger(context.Background(), models.AlertDistraction))
	assert.Equal(t, int64(0), s.Dropped())

	close(inner.release)
	s.Close()

	assert.Equal(t, []models.AlertKind{models.AlertDrowsiness, models.AlertDistraction}, inner.Triggers())
	assert.Equal(t, 1, inner.Stops())
}

func TestAsyncSink_StopAfterTriggerIsQueued(t *testing.T) {
	inner := &fakeSink{}
	s := NewAsyncSink(inner, 8, zap.NewNop())

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Trigger(context.Background(), models.AlertNoFace))
	require.NoError(t, s.Stop(context.Background()))

	s.Start(context.Background())
	s.Close()
	assert.Equal(t, 2, inner.Stops())
	assert.Equal(t, []models.AlertKind{models.AlertNoFace}, inner.Triggers())
}

func TestAsyncSink_RejectsAfterClose(t *testing.T) {
	s := NewAsyncSink(&fakeSink{}, 1, zap.NewNop())
	s.Start(context.Background())
	s.Close()
	s.Close()

	assert.Error(t, s.Trigger(context.Background(), models.AlertNoFace))
}
