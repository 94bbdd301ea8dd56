package monitor

import (
	"fmt"
	"time"
)

// Clock 时间来源（测试中注入固定时间）
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FormatElapsed 会话计时显示 HH:MM:SS，超过 99 小时时小时位继续增长
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
