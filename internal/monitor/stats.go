package monitor

import (
	"sync"
	"time"
)

// Stats 帧处理统计
type Stats struct {
	mu sync.RWMutex

	FramesProcessed int64 // 完成分类的帧
	FramesDropped   int64 // 监控关闭时丢弃的帧
	FramesSkipped   int64 // 指标计算失败跳过的帧
	NoFaceFrames    int64 // 无人脸帧
	LogsRecorded    int64 // 新写入的日志条数

	LastFrameAt time.Time
	StartTime   time.Time
}

// StatsSnapshot 统计快照（可安全拷贝和序列化）
type StatsSnapshot struct {
	FramesProcessed int64     `json:"frames_processed"`
	FramesDropped   int64     `json:"frames_dropped"`
	FramesSkipped   int64     `json:"frames_skipped"`
	NoFaceFrames    int64     `json:"no_face_frames"`
	LogsRecorded    int64     `json:"logs_recorded"`
	LastFrameAt     time.Time `json:"last_frame_at"`
	Uptime          string    `json:"uptime"`
}

// GetSnapshot 获取统计快照（线程安全）
func (s *Stats) GetSnapshot(now time.Time) StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		FramesProcessed: s.FramesProcessed,
		FramesDropped:   s.FramesDropped,
		FramesSkipped:   s.FramesSkipped,
		NoFaceFrames:    s.NoFaceFrames,
		LogsRecorded:    s.LogsRecorded,
		LastFrameAt:     s.LastFrameAt,
		Uptime:          FormatElapsed(now.Sub(s.StartTime)),
	}
}

func (s *Stats) incDropped() {
	s.mu.Lock()
	s.FramesDropped++
	s.mu.Unlock()
}

func (s *Stats) incSkipped(at time.Time) {
	s.mu.Lock()
	s.FramesSkipped++
	s.LastFrameAt = at
	s.mu.Unlock()
}

func (s *Stats) recordFrame(at time.Time, noFace, logged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FramesProcessed++
	s.LastFrameAt = at
	if noFace {
		s.NoFaceFrames++
	}
	if logged {
		s.LogsRecorded++
	}
}
