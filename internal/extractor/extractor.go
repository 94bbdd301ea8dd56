// Package extractor 从人脸关键点帧计算每帧指标（EAR、头部速度、帧率）
//
// 纯函数，无状态：上一帧的鼻尖位置由调用方（classifier）持有并传入。
package extractor

import (
	"errors"
	"fmt"
	"math"
	"time"

	"driveguard/internal/models"
)

var (
	// ErrInvalidFrame 关键点数量不足或缺少必需索引
	ErrInvalidFrame = errors.New("invalid landmark frame")
	// ErrDegenerateGeometry 眼宽接近 0，EAR 无意义
	ErrDegenerateGeometry = errors.New("degenerate eye geometry")
	// ErrInvalidInterval 帧间隔 <= 0，帧率和速度无定义
	ErrInvalidInterval = errors.New("invalid frame interval")
)

// VelocityScale 头部速度放大系数（便于阅读的量级）
const VelocityScale = 10.0

const minEyeWidth = 1e-9

// eyeIndices 单眼六个关键点（face mesh 索引）
type eyeIndices struct {
	inner, outer  int
	top1, bottom1 int
	top2, bottom2 int
}

var (
	rightEye = eyeIndices{inner: 33, outer: 133, top1: 160, bottom1: 144, top2: 158, bottom2: 153}
	leftEye  = eyeIndices{inner: 362, outer: 263, top1: 385, bottom1: 380, top2: 387, bottom2: 373}
)

// NoseTipIndex 鼻尖关键点索引
const NoseTipIndex = 1

// Extract 计算单帧指标，返回指标和新的鼻尖位置
// prevNose 为 nil 表示重置后的第一帧：速度为 0，只记录位置
func Extract(frame *models.LandmarkFrame, prevNose *models.Point, elapsed time.Duration) (models.Metrics, models.Point, error) {
	if frame == nil || len(frame.Points) < models.RequiredLandmarks {
		n := 0
		if frame != nil {
			n = len(frame.Points)
		}
		return models.Metrics{}, models.Point{}, fmt.Errorf("%w: got %d points, need %d", ErrInvalidFrame, n, models.RequiredLandmarks)
	}
	if elapsed <= 0 {
		return models.Metrics{}, models.Point{}, fmt.Errorf("%w: %s", ErrInvalidInterval, elapsed)
	}

	ear, err := EyeAspectRatio(frame.Points)
	if err != nil {
		return models.Metrics{}, models.Point{}, err
	}

	nose := frame.Points[NoseTipIndex]
	elapsedMs := float64(elapsed) / float64(time.Millisecond)

	metrics := models.Metrics{
		EAR:          ear,
		HeadVelocity: HeadVelocity(prevNose, nose, elapsed),
		FPS:          math.Round(1000 / elapsedMs),
	}

	return metrics, nose, nil
}

// EyeAspectRatio 左右眼 EAR 的平均值
func EyeAspectRatio(points []models.Point) (float64, error) {
	if len(points) < models.RequiredLandmarks {
		return 0, fmt.Errorf("%w: got %d points", ErrInvalidFrame, len(points))
	}

	right, err := eyeRatio(points, rightEye)
	if err != nil {
		return 0, fmt.Errorf("right eye: %w", err)
	}
	left, err := eyeRatio(points, leftEye)
	if err != nil {
		return 0, fmt.Errorf("left eye: %w", err)
	}

	return (left + right) / 2, nil
}

func eyeRatio(points []models.Point, eye eyeIndices) (float64, error) {
	width := distance(points[eye.inner], points[eye.outer])
	if width <= minEyeWidth {
		return 0, ErrDegenerateGeometry
	}
	vertical := distance(points[eye.top1], points[eye.bottom1]) + distance(points[eye.top2], points[eye.bottom2])
	return vertical / (2 * width), nil
}

// HeadVelocity 鼻尖位移 / 秒 * VelocityScale；prev 为 nil 返回 0
func HeadVelocity(prev *models.Point, current models.Point, elapsed time.Duration) float64 {
	if prev == nil || elapsed <= 0 {
		return 0
	}
	return distance(*prev, current) / elapsed.Seconds() * VelocityScale
}

func distance(a, b models.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
