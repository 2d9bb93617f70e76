package audio

import (
	"errors"
	"time"
)

// ErrRateMismatch 表示两段音频采样率不一致，需要先 Resample。
var ErrRateMismatch = errors.New("[audio] 采样率不一致")

// Clip 是解码后的单声道 float32 PCM 音频。
// 所有处理函数都返回新的 Clip，不修改入参的 Samples。
type Clip struct {
	Samples    []float32
	SampleRate int
}

// NewClip 用给定样本创建 Clip（不复制）。
func NewClip(samples []float32, sampleRate int) Clip {
	return Clip{Samples: samples, SampleRate: sampleRate}
}

// Silence 返回 ms 毫秒的静音。
func Silence(ms, sampleRate int) Clip {
	return SilenceSamples(SamplesFor(ms, sampleRate), sampleRate)
}

// SilenceSamples 返回 n 个样本的静音。
func SilenceSamples(n, sampleRate int) Clip {
	if n < 0 {
		n = 0
	}
	return Clip{Samples: make([]float32, n), SampleRate: sampleRate}
}

// SamplesFor 将毫秒换算为样本数（向下取整）。
func SamplesFor(ms, sampleRate int) int {
	if ms <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(int64(ms) * int64(sampleRate) / 1000)
}

// Len 返回样本数。
func (c Clip) Len() int { return len(c.Samples) }

// Empty 报告 Clip 是否没有样本。
func (c Clip) Empty() bool { return len(c.Samples) == 0 }

// Duration 返回时长。
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(len(c.Samples)) * int64(time.Second) / int64(c.SampleRate))
}

// Clone 深拷贝。
func (c Clip) Clone() Clip {
	out := make([]float32, len(c.Samples))
	copy(out, c.Samples)
	return Clip{Samples: out, SampleRate: c.SampleRate}
}

// Head 返回前 n 个样本的副本；n 超过长度时返回整段副本。
func (c Clip) Head(n int) Clip {
	if n < 0 {
		n = 0
	}
	if n > len(c.Samples) {
		n = len(c.Samples)
	}
	out := make([]float32, n)
	copy(out, c.Samples[:n])
	return Clip{Samples: out, SampleRate: c.SampleRate}
}

// PadTo 在尾部补静音直到 n 个样本；已达到 n 时返回副本。
func (c Clip) PadTo(n int) Clip {
	if n <= len(c.Samples) {
		return c.Clone()
	}
	out := make([]float32, n)
	copy(out, c.Samples)
	return Clip{Samples: out, SampleRate: c.SampleRate}
}

// FitTo 裁剪或补静音，使长度恰好为 n 个样本。
func (c Clip) FitTo(n int) Clip {
	if n <= len(c.Samples) {
		return c.Head(n)
	}
	return c.PadTo(n)
}
