package profile

import (
	"strings"
	"time"

	"driveguard/internal/models"
)

// DefaultProfiles 三档灵敏度的参考配置
// 灵敏度越高：阈值越宽、所需连续帧越少，反应更快但误报更多
func DefaultProfiles() []models.ModeProfile {
	return []models.ModeProfile{
		{
			Mode:                  models.ModeStandard,
			EARThreshold:          0.25,
			VelocityThreshold:     1.5,
			DrowsyFrameCount:      10,
			DistractionFrameCount: 2,
			NoFaceDebounce:        5 * time.Second,
		},
		{
			Mode:                  models.ModeProfessional,
			EARThreshold:          0.28,
			VelocityThreshold:     1.2,
			DrowsyFrameCount:      8,
			DistractionFrameCount: 2,
			NoFaceDebounce:        3 * time.Second,
		},
		{
			Mode:                  models.ModeEmergency,
			EARThreshold:          0.30,
			VelocityThreshold:     0.8,
			DrowsyFrameCount:      4,
			DistractionFrameCount: 1,
			NoFaceDebounce:        1 * time.Second,
		},
	}
}

// Registry 模式 → 阈值配置的只读查找表
type Registry struct {
	profiles map[models.Mode]models.ModeProfile
	order    []models.Mode
}

// NewRegistry 用给定配置构建查找表，未提供 STANDARD 时补上默认值
func NewRegistry(profiles ...models.ModeProfile) *Registry {
	r := &Registry{profiles: make(map[models.Mode]models.ModeProfile)}
	for _, p := range profiles {
		if _, exists := r.profiles[p.Mode]; !exists {
			r.order = append(r.order, p.Mode)
		}
		r.profiles[p.Mode] = p
	}
	if _, ok := r.profiles[models.ModeStandard]; !ok {
		r.profiles[models.ModeStandard] = DefaultProfiles()[0]
		r.order = append([]models.Mode{models.ModeStandard}, r.order...)
	}
	return r
}

// DefaultRegistry 使用参考配置的查找表
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultProfiles()...)
}

// Get 查找模式配置，未知模式回退到 STANDARD
func (r *Registry) Get(mode models.Mode) models.ModeProfile {
	if p, ok := r.profiles[mode]; ok {
		return p
	}
	return r.profiles[models.ModeStandard]
}

// Has 模式是否已注册
func (r *Registry) Has(mode models.Mode) bool {
	_, ok := r.profiles[mode]
	return ok
}

// Modes 按注册顺序返回所有模式
func (r *Registry) Modes() []models.Mode {
	out := make([]models.Mode, len(r.order))
	copy(out, r.order)
	return out
}

// All 按注册顺序返回所有配置
func (r *Registry) All() []models.ModeProfile {
	out := make([]models.ModeProfile, 0, len(r.order))
	for _, m := range r.order {
		out = append(out, r.profiles[m])
	}
	return out
}

// ParseMode 解析模式名（不区分大小写）
func ParseMode(s string) (models.Mode, bool) {
	switch models.Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case models.ModeStandard:
		return models.ModeStandard, true
	case models.ModeProfessional:
		return models.ModeProfessional, true
	case models.ModeEmergency:
		return models.ModeEmergency, true
	default:
		return "", false
	}
}
