package classifier

import (
	"testing"
	"time"

	"driveguard/internal/extractor"
	"driveguard/internal/models"
	"driveguard/internal/profile"
	"driveguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameInterval = 33 * time.Millisecond

var center = models.Point{X: 0.5, Y: 0.6}

func newStandard() *Classifier {
	return New(profile.DefaultRegistry().Get(models.ModeStandard))
}

func feed(t *testing.T, c *Classifier, frame *models.LandmarkFrame, n int) Result {
	t.Helper()
	var res Result
	for i := 0; i < n; i++ {
		var err error
		res, err = c.Classify(frame, frameInterval)
		require.NoError(t, err)
	}
	return res
}

func TestClassify_DrowsyHysteresis(t *testing.T) {
	c := newStandard()
	closed := testutil.FaceFrame(0.2, center)

	res := feed(t, c, closed, 9)
	assert.Equal(t, models.StateNormal, res.State)

	res = feed(t, c, closed, 1)
	assert.Equal(t, models.StateDrowsy, res.State)
	assert.True(t, res.IsDrowsy)
}

func TestClassify_OpenEyeResetsDrowsyCounter(t *testing.T) {
	c := newStandard()
	closed := testutil.FaceFrame(0.2, center)

	feed(t, c, closed, 9)
	res := feed(t, c, testutil.FaceFrame(0.3, center), 1)
	assert.Equal(t, models.StateNormal, res.State)
	drowsy, _ := c.Counters()
	assert.Equal(t, 0, drowsy)

	res = feed(t, c, closed, 9)
	assert.Equal(t, models.StateNormal, res.State)
	res = feed(t, c, closed, 1)
	assert.Equal(t, models.StateDrowsy, res.State)
}

func TestClassify_NoFaceAlwaysResets(t *testing.T) {
	c := newStandard()
	feed(t, c, testutil.FaceFrame(0.1, center), 15)

	res, err := c.Classify(nil, frameInterval)
	require.NoError(t, err)
	assert.Equal(t, models.StateNoFace, res.State)
	drowsy, distraction := c.Counters()
	assert.Equal(t, 0, drowsy)
	assert.Equal(t, 0, distraction)

	res, err = c.Classify(&models.LandmarkFrame{}, frameInterval)
	require.NoError(t, err)
	assert.Equal(t, models.StateNoFace, res.State)
}

func TestClassify_DistractionOverridesDrowsiness(t *testing.T) {
	c := newStandard()
	feed(t, c, testutil.FaceFrame(0.1, center), 10)

	// 每帧鼻尖移动 0.01 / 33ms => 速度约 3.0 > 1.5
	var res Result
	for i := 1; i <= 2; i++ {
		var err error
		res, err = c.Classify(testutil.FaceFrame(0.1, models.Point{X: 0.5 + 0.01*float64(i), Y: 0.6}), frameInterval)
		require.NoError(t, err)
	}

	assert.True(t, res.IsDrowsy)
	assert.True(t, res.IsDistracted)
	assert.Equal(t, models.StateDistracted, res.State)
}

func TestClassify_DistractionNeedsConsecutiveFrames(t *testing.T) {
	c := newStandard()
	feed(t, c, testutil.FaceFrame(0.3, center), 1)

	res, err := c.Classify(testutil.FaceFrame(0.3, models.Point{X: 0.52, Y: 0.6}), frameInterval)
	require.NoError(t, err)
	assert.Equal(t, models.StateNormal, res.State)
	_, distraction := c.Counters()
	assert.Equal(t, 1, distraction)

	res, err = c.Classify(testutil.FaceFrame(0.3, models.Point{X: 0.54, Y: 0.6}), frameInterval)
	require.NoError(t, err)
	assert.Equal(t, models.StateDistracted, res.State)
}

func TestClassify_InvalidFrameLeavesStateUnchanged(t *testing.T) {
	c := newStandard()
	feed(t, c, testutil.FaceFrame(0.2, center), 5)

	_, err := c.Classify(testutil.DegenerateFrame(), frameInterval)
	assert.ErrorIs(t, err, extractor.ErrDegenerateGeometry)

	_, err = c.Classify(&models.LandmarkFrame{Points: make([]models.Point, 10)}, frameInterval)
	assert.ErrorIs(t, err, extractor.ErrInvalidFrame)

	drowsy, _ := c.Counters()
	assert.Equal(t, 5, drowsy)
	assert.Equal(t, models.StateNormal, c.State())
}

func TestSetProfile_KeepsCounters(t *testing.T) {
	c := newStandard()
	feed(t, c, testutil.FaceFrame(0.2, center), 5)

	c.SetProfile(profile.DefaultRegistry().Get(models.ModeEmergency))

	drowsy, _ := c.Counters()
	assert.Equal(t, 5, drowsy)
	// 计数已满足 EMERGENCY 的 4 帧，下一帧立即触发
	res := feed(t, c, testutil.FaceFrame(0.2, center), 1)
	assert.Equal(t, models.StateDrowsy, res.State)
}

func TestReset(t *testing.T) {
	c := newStandard()
	feed(t, c, testutil.FaceFrame(0.2, center), 12)
	require.Equal(t, models.StateDrowsy, c.State())

	c.Reset()

	drowsy, distraction := c.Counters()
	assert.Equal(t, 0, drowsy)
	assert.Equal(t, 0, distraction)
	assert.Equal(t, models.StateNormal, c.State())

	res := feed(t, c, testutil.FaceFrame(0.3, models.Point{X: 0.9, Y: 0.9}), 1)
	assert.Equal(t, 0.0, res.Metrics.HeadVelocity)
}
