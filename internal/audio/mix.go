package audio

import (
	"fmt"
	"math"
)

// Append 把 b 接在 a 之后，两者在 crossfade 个样本上线性交叉淡化。
// crossfade 会被限制在 [0, min(len(a), len(b))]，
// 结果长度为 len(a) + len(b) - crossfade。
func Append(a, b Clip, crossfade int) (Clip, error) {
	if a.SampleRate != b.SampleRate && !a.Empty() && !b.Empty() {
		return Clip{}, fmt.Errorf("%w: %d != %d", ErrRateMismatch, a.SampleRate, b.SampleRate)
	}
	rate := a.SampleRate
	if a.Empty() {
		rate = b.SampleRate
	}

	cf := clampCrossfade(crossfade, a.Len(), b.Len())
	la, lb := a.Len(), b.Len()
	out := make([]float32, la+lb-cf)
	copy(out, a.Samples[:la-cf])

	// 交叉区：a 线性淡出，b 线性淡入；i=0 时与 a 完全一致，保证接缝连续。
	for i := 0; i < cf; i++ {
		t := float32(i) / float32(cf)
		out[la-cf+i] = a.Samples[la-cf+i]*(1-t) + b.Samples[i]*t
	}
	copy(out[la:], b.Samples[cf:])
	return Clip{Samples: out, SampleRate: rate}, nil
}

// AppendMs 是以毫秒指定交叉淡化时长的 Append。
func AppendMs(a, b Clip, crossfadeMs int) (Clip, error) {
	rate := a.SampleRate
	if rate == 0 {
		rate = b.SampleRate
	}
	return Append(a, b, SamplesFor(crossfadeMs, rate))
}

func clampCrossfade(cf, la, lb int) int {
	if cf < 0 {
		return 0
	}
	if cf > la {
		cf = la
	}
	if cf > lb {
		cf = lb
	}
	return cf
}

// Overlay 逐样本相加，结果长度取两者较长者。
func Overlay(a, b Clip) (Clip, error) {
	if a.SampleRate != b.SampleRate {
		return Clip{}, fmt.Errorf("%w: %d != %d", ErrRateMismatch, a.SampleRate, b.SampleRate)
	}
	n := a.Len()
	if b.Len() > n {
		n = b.Len()
	}
	out := make([]float32, n)
	copy(out, a.Samples)
	for i, s := range b.Samples {
		out[i] += s
	}
	return Clip{Samples: out, SampleRate: a.SampleRate}, nil
}

// Gain 按 dB 调整音量（负值为衰减）。
func Gain(c Clip, db float64) Clip {
	factor := float32(math.Pow(10, db/20))
	out := make([]float32, c.Len())
	for i, s := range c.Samples {
		out[i] = s * factor
	}
	return Clip{Samples: out, SampleRate: c.SampleRate}
}

// FadeIn 在开头 ms 毫秒内从 0 线性增益到 1。
func FadeIn(c Clip, ms int) Clip {
	out := c.Clone()
	n := SamplesFor(ms, c.SampleRate)
	if n > out.Len() {
		n = out.Len()
	}
	for i := 0; i < n; i++ {
		out.Samples[i] *= float32(i) / float32(n)
	}
	return out
}

// FadeOut 在末尾 ms 毫秒内线性衰减到 0。
func FadeOut(c Clip, ms int) Clip {
	return fadeOutSamples(c, SamplesFor(ms, c.SampleRate))
}

func fadeOutSamples(c Clip, n int) Clip {
	out := c.Clone()
	if n > out.Len() {
		n = out.Len()
	}
	start := out.Len() - n
	for i := 0; i < n; i++ {
		out.Samples[start+i] *= float32(n-1-i) / float32(n)
	}
	return out
}

// Resample 用线性插值把 c 转换到目标采样率。
// 输出长度为 round(len * to / from)。
func Resample(c Clip, to int) Clip {
	if c.SampleRate == to || c.SampleRate <= 0 || to <= 0 {
		out := c.Clone()
		if to > 0 {
			out.SampleRate = to
		}
		return out
	}
	n := int(math.Round(float64(c.Len()) * float64(to) / float64(c.SampleRate)))
	return Clip{Samples: interpolate(c.Samples, n), SampleRate: to}
}

// Stretch 把 clip 线性伸缩为恰好 n 个采样，采样率不变。
// 等价于把采样率改标为 rate·len/n 后再重采样回 rate，音高随之改变。
func Stretch(c Clip, n int) Clip {
	if n < 0 {
		n = 0
	}
	return Clip{Samples: interpolate(c.Samples, n), SampleRate: c.SampleRate}
}

// interpolate 把 in 线性拉伸/压缩为 n 个样本，首尾样本对齐。
func interpolate(in []float32, n int) []float32 {
	out := make([]float32, n)
	if n == 0 || len(in) == 0 {
		return out
	}
	if len(in) == 1 || n == 1 {
		for i := range out {
			out[i] = in[0]
		}
		return out
	}
	step := float64(len(in)-1) / float64(n-1)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}

// Peak 返回最大绝对振幅。
func Peak(c Clip) float32 {
	var peak float32
	for _, s := range c.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
