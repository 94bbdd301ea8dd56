// Package testutil 测试用的关键点帧构造工具
package testutil

import "driveguard/internal/models"

const eyeWidth = 0.1

// FaceFrame 构造一帧 468 点人脸，双眼 EAR 均为 ear，鼻尖位于 nose
func FaceFrame(ear float64, nose models.Point) *models.LandmarkFrame {
	points := make([]models.Point, models.RequiredLandmarks)
	for i := range points {
		points[i] = models.Point{X: 0.5, Y: 0.5}
	}

	// 单眼 EAR = (h + h) / (2 * eyeWidth) => h = ear * eyeWidth
	h := ear * eyeWidth
	placeEye(points, 33, 133, 160, 144, 158, 153, 0.30, 0.40, h)
	placeEye(points, 362, 263, 385, 380, 387, 373, 0.60, 0.40, h)
	points[1] = nose

	return &models.LandmarkFrame{Points: points}
}

// ClosedEyes 上下眼睑重合的一帧（EAR = 0）
func ClosedEyes(nose models.Point) *models.LandmarkFrame {
	return FaceFrame(0, nose)
}

// DegenerateFrame 内外眼角重合的一帧
func DegenerateFrame() *models.LandmarkFrame {
	frame := FaceFrame(0.3, models.Point{X: 0.5, Y: 0.6})
	frame.Points[133] = frame.Points[33]
	return frame
}

func placeEye(points []models.Point, inner, outer, top1, bottom1, top2, bottom2 int, x, y, h float64) {
	points[inner] = models.Point{X: x, Y: y}
	points[outer] = models.Point{X: x + eyeWidth, Y: y}
	points[top1] = models.Point{X: x + 0.03, Y: y - h/2}
	points[bottom1] = models.Point{X: x + 0.03, Y: y + h/2}
	points[top2] = models.Point{X: x + 0.07, Y: y - h/2}
	points[bottom2] = models.Point{X: x + 0.07, Y: y + h/2}
}
