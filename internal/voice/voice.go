// Package voice 为每个片段选择发音人。
package voice

import (
	"fmt"
	"strings"

	"github.com/iabetor/podvoice/internal/script"
)

// HostMode 是主播模式。
type HostMode string

const (
	// Single 单人播客，所有片段使用 VoiceA。
	Single HostMode = "single"
	// Dual 双人播客，A/B 交替。
	Dual HostMode = "dual"
)

// 语速范围
const (
	MinSpeed = -2.0
	MaxSpeed = 2.0
)

// Config 是一次运行的发音配置，运行期间不变。
type Config struct {
	VoiceA   string
	VoiceB   string
	Speed    float64
	HostMode HostMode
}

// ParseHostMode 解析主播模式，空字符串视为 dual。
func ParseHostMode(s string) (HostMode, error) {
	switch HostMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Dual:
		return Dual, nil
	case Single:
		return Single, nil
	default:
		return "", fmt.Errorf("[voice] 未知的主播模式: %q", s)
	}
}

// ParseID 解析形如 "501006:千嶂" 的音色标识，只保留冒号前的部分；
// 为空时返回 fallback。
func ParseID(v, fallback string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexAny(v, ":："); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	if v == "" {
		return fallback
	}
	return v
}

// ClampSpeed 把语速限制在 [MinSpeed, MaxSpeed]。
func ClampSpeed(s float64) float64 {
	return min(max(s, MinSpeed), MaxSpeed)
}

// Normalize 返回解析后的配置：音色去掉标签、语速截断、模式补默认值。
func (c Config) Normalize(defaultA, defaultB string) Config {
	out := Config{
		VoiceA:   ParseID(c.VoiceA, defaultA),
		VoiceB:   ParseID(c.VoiceB, defaultB),
		Speed:    ClampSpeed(c.Speed),
		HostMode: c.HostMode,
	}
	if out.HostMode == "" {
		out.HostMode = Dual
	}
	return out
}

// Assign 返回片段使用的发音人。
// 单人模式总是 VoiceA；双人模式优先使用片段的说话人标记，
// 未标记时按片段序号奇偶交替。
func Assign(seg script.Segment, cfg Config) string {
	if cfg.HostMode == Single {
		return cfg.VoiceA
	}
	switch seg.Role {
	case script.RoleA:
		return cfg.VoiceA
	case script.RoleB:
		return cfg.VoiceB
	}
	if seg.Index%2 == 0 {
		return cfg.VoiceA
	}
	return cfg.VoiceB
}

// SegmentLimit 返回该模式下单次合成的字数上限。
func SegmentLimit(mode HostMode, dualLimit, singleLimit int) int {
	if mode == Single {
		if singleLimit > 0 {
			return singleLimit
		}
		return script.DefaultSingleLimit
	}
	if dualLimit > 0 {
		return dualLimit
	}
	return script.DefaultDualLimit
}
