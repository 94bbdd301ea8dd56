// Package classifier 注意力分类器：维护两个滞回计数器，逐帧输出分类结果
package classifier

import (
	"time"

	"driveguard/internal/extractor"
	"driveguard/internal/models"
)

// Result 单帧分类结果
type Result struct {
	Metrics      models.Metrics
	State        models.AttentionState
	IsDrowsy     bool
	IsDistracted bool
}

// Classifier 注意力分类器（非并发安全，由 monitor 加锁调用）
type Classifier struct {
	profile            models.ModeProfile
	drowsyCounter      int
	distractionCounter int
	prevNose           *models.Point
	state              models.AttentionState
}

// New 创建分类器
func New(profile models.ModeProfile) *Classifier {
	return &Classifier{
		profile: profile,
		state:   models.StateNormal,
	}
}

// Classify 处理一帧
// 无人脸：输出 NO_FACE 并清零两个计数器（人脸丢失总是优先）
// 指标计算失败：返回错误，状态不变，调用方跳过该帧
func (c *Classifier) Classify(frame *models.LandmarkFrame, elapsed time.Duration) (Result, error) {
	if !frame.HasFace() {
		c.drowsyCounter = 0
		c.distractionCounter = 0
		c.prevNose = nil
		c.state = models.StateNoFace
		return Result{State: models.StateNoFace}, nil
	}

	metrics, nose, err := extractor.Extract(frame, c.prevNose, elapsed)
	if err != nil {
		return Result{}, err
	}
	c.prevNose = &nose

	if metrics.EAR < c.profile.EARThreshold {
		c.drowsyCounter++
	} else {
		c.drowsyCounter = 0
	}
	isDrowsy := c.drowsyCounter >= c.profile.DrowsyFrameCount

	if metrics.HeadVelocity > c.profile.VelocityThreshold {
		c.distractionCounter++
	} else {
		c.distractionCounter = 0
	}
	isDistracted := c.distractionCounter >= c.profile.DistractionFrameCount

	// 同时满足时 DISTRACTED 覆盖 DROWSY（保持原有判定顺序）
	state := models.StateNormal
	if isDrowsy {
		state = models.StateDrowsy
	}
	if isDistracted {
		state = models.StateDistracted
	}
	c.state = state

	return Result{
		Metrics:      metrics,
		State:        state,
		IsDrowsy:     isDrowsy,
		IsDistracted: isDistracted,
	}, nil
}

// SetProfile 切换模式配置，计数器不清零
func (c *Classifier) SetProfile(profile models.ModeProfile) {
	c.profile = profile
}

// Profile 当前生效的模式配置
func (c *Classifier) Profile() models.ModeProfile {
	return c.profile
}

// Reset 清零计数器、鼻尖位置，分类回到 NORMAL
func (c *Classifier) Reset() {
	c.drowsyCounter = 0
	c.distractionCounter = 0
	c.prevNose = nil
	c.state = models.StateNormal
}

// Counters 返回 (drowsy, distraction) 计数器
func (c *Classifier) Counters() (int, int) {
	return c.drowsyCounter, c.distractionCounter
}

// State 最近一次分类结果
func (c *Classifier) State() models.AttentionState {
	return c.state
}
