package models

import "time"

// RequiredLandmarks 人脸网格最少点数（468 点 face mesh）
const RequiredLandmarks = 468

// Point 归一化坐标点，x/y 取值 [0,1]
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkFrame 单帧人脸关键点（来自外部 tracker）
// nil 或 Points 为空表示该帧未检测到人脸
// CapturedAt 为 tracker 采集时间，零值表示未知
type LandmarkFrame struct {
	Points     []Point   `json:"points"`
	CapturedAt time.Time `json:"captured_at,omitempty"`
}

// HasFace 判断该帧是否包含人脸
func (f *LandmarkFrame) HasFace() bool {
	return f != nil && len(f.Points) > 0
}

// Metrics 每帧计算得到的指标，不落盘
type Metrics struct {
	EAR          float64 `json:"ear"`
	HeadVelocity float64 `json:"head_velocity"`
	FPS          float64 `json:"fps"`
}

// LandmarkPayload tracker 上报的消息格式（MQTT / HTTP）
// faces 为空表示未检测到人脸，多张人脸时只取第一张
type LandmarkPayload struct {
	Timestamp int64     `json:"timestamp"` // 毫秒
	Faces     [][]Point `json:"faces"`
}

// Frame 转换为单帧关键点
func (p *LandmarkPayload) Frame() *LandmarkFrame {
	if p == nil {
		return &LandmarkFrame{}
	}
	frame := &LandmarkFrame{}
	if p.Timestamp > 0 {
		frame.CapturedAt = time.UnixMilli(p.Timestamp).UTC()
	}
	if len(p.Faces) > 0 {
		frame.Points = p.Faces[0]
	}
	return frame
}

// ControlCommand 控制消息
type ControlCommand struct {
	Command string `json:"command"`
	Mode    string `json:"mode,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

const (
	CommandSetMode       = "set_mode"
	CommandSetMonitoring = "set_monitoring"
	CommandClearLog      = "clear_log"
)
