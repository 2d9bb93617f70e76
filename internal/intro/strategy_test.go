package intro

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/iabetor/podvoice/internal/audio"
)

func sine(freq float64, ms, rate int, amp float32) audio.Clip {
	n := audio.SamplesFor(ms, rate)
	s := make([]float32, n)
	for i := range s {
		s[i] = amp * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return audio.NewClip(s, rate)
}

func TestLoopTo_TrimsLongMusic(t *testing.T) {
	bgm := sine(220, 1000, 8000, 0.5)
	out := LoopTo(bgm, 3000, 1200)
	if out.Len() != 3000 {
		t.Fatalf("got %d samples", out.Len())
	}
	if out.Samples[100] != bgm.Samples[100] {
		t.Error("trimmed music should be the head of the original")
	}
}

func TestLoopTo_ExactLength(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bgmLen := rapid.IntRange(1, 2000).Draw(t, "bgm")
		target := rapid.IntRange(0, 12000).Draw(t, "target")
		cf := rapid.IntRange(0, 1500).Draw(t, "crossfade")

		bgm := audio.SilenceSamples(bgmLen, 8000)
		for i := range bgm.Samples {
			bgm.Samples[i] = 0.3
		}
		if got := LoopTo(bgm, target, cf).Len(); got != target {
			t.Fatalf("LoopTo(len=%d, target=%d, cf=%d) = %d samples", bgmLen, target, cf, got)
		}
	})
}

func TestLoopTo_ShortMusicIsContinuous(t *testing.T) {
	const rate = 8000
	bgm := sine(220, 1000, rate, 0.5)
	target := audio.SamplesFor(4300, rate)
	out := LoopTo(bgm, target, audio.SamplesFor(150, rate))

	if out.Len() != target {
		t.Fatalf("got %d samples, want %d", out.Len(), target)
	}
	// 正弦本身相邻采样最大变化约 0.086，接缝处不应出现明显跳变
	maxJump := 0.0
	for i := 1; i < out.Len(); i++ {
		maxJump = math.Max(maxJump, math.Abs(float64(out.Samples[i]-out.Samples[i-1])))
	}
	if maxJump > 0.12 {
		t.Errorf("discontinuity at loop seam: max jump %.3f", maxJump)
	}
}

func TestFit_Stretch(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 500).Draw(t, "bgm")
		target := rapid.IntRange(1, 3000).Draw(t, "target")

		ramp := make([]float32, n)
		for i := range ramp {
			ramp[i] = float32(i)
		}
		out := Fit(audio.NewClip(ramp, 16000), target, Stretch, 0)
		if out.Len() != target || out.SampleRate != 16000 {
			t.Fatalf("got %d samples @ %d Hz, want %d", out.Len(), out.SampleRate, target)
		}
		for i := 1; i < out.Len(); i++ {
			if out.Samples[i] < out.Samples[i-1] {
				t.Fatalf("content order broken at %d", i)
			}
		}
	})
}

func TestFit_EmptyMusicIsSilence(t *testing.T) {
	out := Fit(audio.Clip{SampleRate: 8000}, 100, Loop, 10)
	if out.Len() != 100 || audio.Peak(out) != 0 {
		t.Errorf("expected 100 silent samples, got %d (peak %f)", out.Len(), audio.Peak(out))
	}
}
