package models

import "time"

// Mode 运行模式（灵敏度档位）
type Mode string

const (
	ModeStandard     Mode = "STANDARD"
	ModeProfessional Mode = "PROFESSIONAL"
	ModeEmergency    Mode = "EMERGENCY"
)

// ModeProfile 模式阈值配置（不可变）
type ModeProfile struct {
	Mode                  Mode          `json:"mode"`
	EARThreshold          float64       `json:"ear_threshold"`
	VelocityThreshold     float64       `json:"velocity_threshold"`
	DrowsyFrameCount      int           `json:"drowsy_frame_count"`
	DistractionFrameCount int           `json:"distraction_frame_count"`
	NoFaceDebounce        time.Duration `json:"no_face_debounce"`
}

// AttentionState 注意力分类结果
type AttentionState string

const (
	StateNormal     AttentionState = "NORMAL"
	StateDrowsy     AttentionState = "DROWSY"
	StateDistracted AttentionState = "DISTRACTED"
	StateNoFace     AttentionState = "NO_FACE"
)

// DriverStateSnapshot 对外可见的驾驶员状态，每处理一帧整体替换
type DriverStateSnapshot struct {
	EAR          float64        `json:"ear"`
	HeadVelocity float64        `json:"head_velocity"`
	FPS          float64        `json:"fps"`
	State        AttentionState `json:"state"`
	Mode         Mode           `json:"mode"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SessionInfo 监控会话信息
type SessionInfo struct {
	Monitoring bool       `json:"monitoring"`
	Mode       Mode       `json:"mode"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	AlertCount int        `json:"alert_count"`
}
