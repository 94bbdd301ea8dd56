package alert

import (
	"context"
	"testing"
	"time"

	"driveguard/internal/models"
	"driveguard/internal/profile"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func standard() models.ModeProfile {
	return profile.DefaultRegistry().Get(models.ModeStandard)
}

func TestDispatch_AlertCountIgnoresDebounce(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, zap.NewNop(), 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d.Dispatch(ctx, models.StateDrowsy, standard(), t0.Add(time.Duration(i)*33*time.Millisecond))
	}

	assert.Equal(t, 5, d.AlertCount())
	assert.Equal(t, []models.AlertKind{models.AlertDrowsiness}, sink.Triggers())
}

func TestDispatch_AudioDebounce(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, zap.NewNop(), 3*time.Second)
	ctx := context.Background()

	d.Dispatch(ctx, models.StateDrowsy, standard(), t0)
	d.Dispatch(ctx, models.StateDistracted, standard(), t0.Add(3*time.Second))
	d.Dispatch(ctx, models.StateDistracted, standard(), t0.Add(3001*time.Millisecond))

	assert.Equal(t, []models.AlertKind{models.AlertDrowsiness, models.AlertDistraction}, sink.Triggers())
	assert.Equal(t, 3, d.AlertCount())
}

func TestDispatch_NoFaceUsesProfileDebounce(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, zap.NewNop(), 0)
	ctx := context.Background()
	emergency := profile.DefaultRegistry().Get(models.ModeEmergency)

	d.Dispatch(ctx, models.StateNoFace, emergency, t0)
	d.Dispatch(ctx, models.StateNoFace, emergency, t0.Add(500*time.Millisecond))
	d.Dispatch(ctx, models.StateNoFace, emergency, t0.Add(1100*time.Millisecond))

	assert.Equal(t, []models.AlertKind{models.AlertNoFace, models.AlertNoFace}, sink.Triggers())
	assert.Equal(t, 0, d.AlertCount())
}

func TestDispatch_NoFaceSharesAudioClock(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, zap.NewNop(), 0)
	ctx := context.Background()

	d.Dispatch(ctx, models.StateDrowsy, standard(), t0)
	// STANDARD 无人脸去抖 5 秒，距上次播报只有 2 秒
	d.Dispatch(ctx, models.StateNoFace, standard(), t0.Add(2*time.Second))

	assert.Equal(t, []models.AlertKind{models.AlertDrowsiness}, sink.Triggers())
}

func TestDispatch_NormalStops(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, zap.NewNop(), 0)
	ctx := context.Background()

	d.Dispatch(ctx, models.StateNormal, standard(), t0)
	d.Dispatch(ctx, models.StateNormal, standard(), t0.Add(time.Second))

	assert.Equal(t, 2, sink.Stops())
	assert.Empty(t, sink.Triggers())
}

func TestDispatch_SinkErrorsAreSwallowed(t *testing.T) {
	sink := &fakeSink{err: errSinkDown}
	d := NewDispatcher(sink, zap.NewNop(), 0)

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), models.StateDrowsy, standard(), t0)
		d.Dispatch(context.Background(), models.StateNormal, standard(), t0)
	})
	assert.Equal(t, 1, d.AlertCount())
}

func TestDispatch_SinkPanicIsRecovered(t *testing.T) {
	sink := &fakeSink{panicMsg: "audio context gone"}
	d := NewDispatcher(sink, zap.NewNop(), 0)

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), models.StateDistracted, standard(), t0)
	})
	assert.Equal(t, 1, d.AlertCount())
}

func TestDispatcher_Reset(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, zap.NewNop(), 0)
	d.Dispatch(context.Background(), models.StateDrowsy, standard(), t0)

	d.Reset()

	assert.Equal(t, 0, d.AlertCount())
	// 播报时钟未重置
	d.Dispatch(context.Background(), models.StateDrowsy, standard(), t0.Add(time.Second))
	assert.Len(t, sink.Triggers(), 1)
}

func TestMultiSink_JoinsErrors(t *testing.T) {
	ok := &fakeSink{}
	bad := &fakeSink{err: errSinkDown}
	m := MultiSink{ok, bad}

	err := m.Trigger(context.Background(), models.AlertNoFace)

	assert.ErrorIs(t, err, errSinkDown)
	assert.Equal(t, []models.AlertKind{models.AlertNoFace}, ok.Triggers())
	assert.Equal(t, []models.AlertKind{models.AlertNoFace}, bad.Triggers())
	assert.ErrorIs(t, m.Stop(context.Background()), errSinkDown)
}
