package models

import "time"

// AlertKind 告警声音/语音类型
type AlertKind string

const (
	AlertDrowsiness  AlertKind = "DROWSINESS"
	AlertDistraction AlertKind = "DISTRACTION"
	AlertNoFace      AlertKind = "NO_FACE"
)

// LogType 事件日志类型（NO_FACE 不入日志）
type LogType string

const (
	LogDrowsiness  LogType = "DROWSINESS"
	LogDistraction LogType = "DISTRACTION"
)

// LogEntry 事件日志条目，创建后不可变
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      LogType   `json:"type"`
}

// AlertKindForState 分类结果对应的告警类型，NORMAL 返回 false
func AlertKindForState(state AttentionState) (AlertKind, bool) {
	switch state {
	case StateDrowsy:
		return AlertDrowsiness, true
	case StateDistracted:
		return AlertDistraction, true
	case StateNoFace:
		return AlertNoFace, true
	default:
		return "", false
	}
}

// LogTypeForState 分类结果对应的日志类型，只有 DROWSY/DISTRACTED 入日志
func LogTypeForState(state AttentionState) (LogType, bool) {
	switch state {
	case StateDrowsy:
		return LogDrowsiness, true
	case StateDistracted:
		return LogDistraction, true
	default:
		return "", false
	}
}
