package intro

import (
	"context"
	"errors"
	"fmt"

	"github.com/iabetor/podvoice/internal/audio"
	"github.com/iabetor/podvoice/internal/config"
	"github.com/iabetor/podvoice/internal/logger"
	"github.com/iabetor/podvoice/internal/metrics"
	"github.com/iabetor/podvoice/internal/script"
	"github.com/iabetor/podvoice/internal/tts"
	"github.com/iabetor/podvoice/internal/voice"
)

// ErrIntroComposition 表示所有片头方案都失败，运行必须中止。
var ErrIntroComposition = errors.New("[intro] 片头合成失败")

// Tier 是片头最终采用的方案。
type Tier string

const (
	// TierDynamic 片头语音与按时长调整的背景音乐混音。
	TierDynamic Tier = "dynamic"
	// TierMusicOnly 风格没有文案时的纯音乐片头。
	TierMusicOnly Tier = "music_only"
	// TierStatic 语音片头失败后退回的固定长度纯音乐片头。
	TierStatic Tier = "static"
	// TierBasic 整段背景音乐直接接上重新读取的正文；没有音乐时只有正文。
	TierBasic Tier = "basic"
)

// Synthesizer 合成一个片段，*tts.Invoker 实现了该接口。
type Synthesizer interface {
	Synthesize(ctx context.Context, seg script.Segment, voiceID string, speed float64) (tts.Result, error)
}

// Params 片头时长与音量参数，时长单位为毫秒。
type Params struct {
	LeadInMs          int
	FadeInMs          int
	FadeOutMs         int // 同时作为语音之后的留白
	GainDB            float64
	LoopCrossfadeMs   int
	SpliceCrossfadeMs int
	LinePauseMs       int
	LineCrossfadeMs   int

	MusicOnlyMs     int
	StaticFadeInMs  int
	StaticFadeOutMs int
	StaticGainDB    float64
}

// ParamsFromConfig 从配置构造参数。
func ParamsFromConfig(ic config.IntroConfig, ac config.AssembleConfig) Params {
	return Params{
		LeadInMs:          ic.LeadInMs,
		FadeInMs:          ic.FadeInMs,
		FadeOutMs:         ic.FadeOutMs,
		GainDB:            ic.GainDB,
		LoopCrossfadeMs:   ic.LoopCrossfadeMs,
		SpliceCrossfadeMs: ic.SpliceCrossfadeMs,
		LinePauseMs:       ac.IntroPauseMs,
		LineCrossfadeMs:   ac.CrossfadeMs,
		MusicOnlyMs:       ic.MusicOnlyMs,
		StaticFadeInMs:    ic.StaticFadeInMs,
		StaticFadeOutMs:   ic.StaticFadeOutMs,
		StaticGainDB:      ic.StaticGainDB,
	}
}

// Input 是一次片头合成的输入。
type Input struct {
	Spec  Spec
	Voice voice.Config
	Body  audio.Clip
	// BodyPath 是已导出的正文文件，最后一级兜底从这里重新读取正文。
	BodyPath string
}

// Result 是片头合成的结果。
type Result struct {
	Clip    audio.Clip // 片头 + 正文
	Tier    Tier
	Lines   []string // 实际朗读的片头文案
	BGMPath string
}

// Composer 负责片头合成，可被多个运行并发使用。
type Composer struct {
	synth   Synthesizer
	library *Library
	params  Params
	metrics *metrics.Collector
}

// NewComposer 创建片头合成器。m 可以为 nil。
func NewComposer(synth Synthesizer, library *Library, params Params, m *metrics.Collector) *Composer {
	return &Composer{synth: synth, library: library, params: params, metrics: m}
}

// tier 是兜底链上的一级。run 返回错误时交给下一级处理。
type tier struct {
	name Tier
	run  func() (audio.Clip, error)
}

// Compose 生成片头并拼接到正文之前。依次尝试各级方案，只有最后一级失败才返回
// ErrIntroComposition。
func (c *Composer) Compose(ctx context.Context, in Input) (Result, error) {
	bgm, bgmPath, bgmErr := c.library.Load(ctx, in.Spec)
	if bgmErr != nil {
		logger.Warnf("[intro] %v", bgmErr)
	} else if in.Body.SampleRate > 0 {
		bgm = audio.Resample(bgm, in.Body.SampleRate)
	}

	lines := in.Spec.Lines(in.Voice.HostMode)
	var spoken []string

	var tiers []tier
	if len(lines) > 0 {
		tiers = append(tiers, tier{TierDynamic, func() (audio.Clip, error) {
			if bgmErr != nil {
				return audio.Clip{}, bgmErr
			}
			clip, texts, err := c.dynamic(ctx, lines, bgm, in)
			spoken = texts
			return clip, err
		}})
	}
	staticName := TierStatic
	if len(lines) == 0 {
		staticName = TierMusicOnly
	}
	tiers = append(tiers,
		tier{staticName, func() (audio.Clip, error) {
			if bgmErr != nil {
				return audio.Clip{}, bgmErr
			}
			return c.static(bgm, in.Body)
		}},
		tier{TierBasic, func() (audio.Clip, error) {
			return c.basic(ctx, bgm, bgmErr == nil, in)
		}},
	)

	var lastErr error
	for _, t := range tiers {
		clip, err := t.run()
		if err == nil {
			c.metrics.RecordIntroTier(string(t.name))
			logger.Infof("[intro] 片头方案 %s (风格 %s, %s)", t.name, in.Spec.Style, clip.Duration())
			res := Result{Clip: clip, Tier: t.name, BGMPath: bgmPath}
			if t.name == TierDynamic {
				res.Lines = spoken
			}
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		logger.Warnf("[intro] 片头方案 %s 失败，尝试下一级: %v", t.name, err)
		lastErr = err
	}
	return Result{}, fmt.Errorf("%w: %v", ErrIntroComposition, lastErr)
}

// dynamic 合成片头语音，把背景音乐调整到与语音匹配的长度后混音。
func (c *Composer) dynamic(ctx context.Context, lines []string, bgm audio.Clip, in Input) (audio.Clip, []string, error) {
	p := c.params
	clips := make([]audio.Clip, 0, len(lines))
	texts := make([]string, 0, len(lines))
	for i, line := range lines {
		seg := script.Segment{Text: line, Index: i}
		res, err := c.synth.Synthesize(ctx, seg, voice.Assign(seg, in.Voice), in.Voice.Speed)
		if err != nil {
			return audio.Clip{}, nil, err
		}
		clips = append(clips, res.Clip)
		texts = append(texts, res.Text)
	}

	voiceClip, err := audio.Assemble(clips, p.LinePauseMs, p.LineCrossfadeMs)
	if err != nil {
		return audio.Clip{}, nil, err
	}
	rate := bgm.SampleRate
	voiceClip = audio.Resample(voiceClip, rate)

	lead := audio.Silence(p.LeadInMs, rate)
	target := lead.Len() + voiceClip.Len() + audio.SamplesFor(p.FadeOutMs, rate)
	music := Fit(bgm, target, in.Spec.Strategy(), audio.SamplesFor(p.LoopCrossfadeMs, rate))
	music = audio.FadeOut(audio.FadeIn(audio.Gain(music, p.GainDB), p.FadeInMs), p.FadeOutMs)

	track, err := audio.Append(lead, voiceClip, 0)
	if err != nil {
		return audio.Clip{}, nil, err
	}
	intro, err := audio.Overlay(music, track)
	if err != nil {
		return audio.Clip{}, nil, err
	}
	out, err := audio.AppendMs(intro, in.Body, p.SpliceCrossfadeMs)
	if err != nil {
		return audio.Clip{}, nil, err
	}
	return out, texts, nil
}

// static 把背景音乐开头的固定长度作为片头。
func (c *Composer) static(bgm, body audio.Clip) (audio.Clip, error) {
	p := c.params
	intro := bgm.Head(audio.SamplesFor(p.MusicOnlyMs, bgm.SampleRate))
	return c.spliceMusic(intro, body)
}

// basic 重新读取已导出的正文，整段背景音乐作片头；没有音乐时只返回正文。
func (c *Composer) basic(ctx context.Context, bgm audio.Clip, haveBGM bool, in Input) (audio.Clip, error) {
	body := in.Body
	if in.BodyPath != "" {
		reread, err := audio.DecodeFile(ctx, in.BodyPath, c.library.FFmpegPath)
		if err != nil {
			return audio.Clip{}, err
		}
		body = reread
	}
	if body.Empty() {
		return audio.Clip{}, fmt.Errorf("[intro] 正文为空")
	}
	if !haveBGM {
		return body, nil
	}
	return c.spliceMusic(audio.Resample(bgm, body.SampleRate), body)
}

func (c *Composer) spliceMusic(music, body audio.Clip) (audio.Clip, error) {
	p := c.params
	music = audio.Gain(audio.FadeOut(audio.FadeIn(music, p.StaticFadeInMs), p.StaticFadeOutMs), p.StaticGainDB)
	return audio.AppendMs(music, body, p.SpliceCrossfadeMs)
}
