package audio

import "errors"

// ErrNoClips 表示没有可拼接的音频。
var ErrNoClips = errors.New("[audio] 没有可拼接的音频片段")

// Assemble 按顺序拼接 clips：每个接缝先插入 pauseMs 静音，
// 再把下一段以 crossfadeMs 交叉淡化接入，避免接缝处的爆音。
// 有停顿时交叉淡化只作用在静音上（不超过停顿长度），因此前一段的尾部不受影响。
//
// 输出采样率取第一段的采样率，其余片段按需重采样。
// 结果长度见 AssembledLength。
func Assemble(clips []Clip, pauseMs, crossfadeMs int) (Clip, error) {
	if len(clips) == 0 {
		return Clip{}, ErrNoClips
	}
	rate := clips[0].SampleRate
	pause := SamplesFor(pauseMs, rate)
	cf := SamplesFor(crossfadeMs, rate)

	out := clips[0].Clone()
	var err error
	for _, c := range clips[1:] {
		c = Resample(c, rate)
		fade := cf
		if pause > 0 {
			out, err = Append(out, SilenceSamples(pause, rate), 0)
			if err != nil {
				return Clip{}, err
			}
			if fade > pause {
				fade = pause
			}
		}
		out, err = Append(out, c, fade)
		if err != nil {
			return Clip{}, err
		}
	}
	return out, nil
}

// AssembledLength 计算 Assemble 输出的样本数：
//
//	Σ len(c) + (n-1)·pause − Σ overlap_i
//
// 其中 pause>0 时 overlap_i = min(cf, pause, len(c_i))，
// pause=0 时 overlap_i = min(cf, 已拼接长度, len(c_i))。
// lengths 需已换算到同一采样率。
func AssembledLength(lengths []int, pause, cf int) int {
	if len(lengths) == 0 {
		return 0
	}
	total := lengths[0]
	for _, l := range lengths[1:] {
		fade := cf
		if pause > 0 {
			total += pause
			if fade > pause {
				fade = pause
			}
		}
		total += l - clampCrossfade(fade, total, l)
	}
	return total
}
