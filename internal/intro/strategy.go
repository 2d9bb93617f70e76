package intro

import (
	"github.com/iabetor/podvoice/internal/audio"
)

// declickMs 循环音乐结尾补静音前的短淡出，避免截断处的爆音。
const declickMs = 10

// Fit 按策略把背景音乐调整为恰好 target 个采样。
func Fit(bgm audio.Clip, target int, strategy Strategy, loopCrossfade int) audio.Clip {
	if target <= 0 {
		return audio.SilenceSamples(0, bgm.SampleRate)
	}
	if bgm.Empty() {
		return audio.SilenceSamples(target, bgm.SampleRate)
	}
	if strategy == Stretch {
		return audio.Stretch(bgm, target)
	}
	return LoopTo(bgm, target, loopCrossfade)
}

// LoopTo 把音乐循环到 target 个采样：足够长时直接裁剪；否则在接缝处交叉淡化
// 反复追加，直到长度达到 target 减去交叉淡化窗口，剩余部分补静音。
func LoopTo(bgm audio.Clip, target, crossfade int) audio.Clip {
	if bgm.Empty() {
		return audio.SilenceSamples(max(target, 0), bgm.SampleRate)
	}
	if bgm.Len() >= target {
		return bgm.Head(target)
	}

	// 交叉淡化不能超过单段长度的一半，否则每次追加几乎不增长
	cf := min(max(crossfade, 0), bgm.Len()/2)
	acc := bgm.Clone()
	for acc.Len() < target-cf {
		next, err := audio.Append(acc, bgm, cf)
		if err != nil {
			break
		}
		acc = next
	}
	if acc.Len() > target {
		acc = acc.Head(target)
	}
	acc = audio.FadeOut(acc, declickMs)
	return acc.PadTo(target)
}
