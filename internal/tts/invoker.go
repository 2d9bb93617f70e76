package tts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/iabetor/podvoice/internal/audio"
	"github.com/iabetor/podvoice/internal/logger"
	"github.com/iabetor/podvoice/internal/metrics"
	"github.com/iabetor/podvoice/internal/script"
)

// maxAttempts 每个片段最多尝试的次数：原文、激进清洗、兜底短句。
const maxAttempts = 3

// DefaultFillers 是文本两次被拒后使用的兜底短句。
var DefaultFillers = []string{"嗯，我们继续。", "好的，接着说。", "下面进入下一段。"}

// InvokerConfig 合成调用配置。
type InvokerConfig struct {
	Fillers    []string
	Codec      string  // 向后端请求的编码
	SampleRate int     // 输出 Clip 的采样率，0 表示保持后端原始采样率
	QPS        float64 // <=0 表示不限速
	Burst      int
	Cache      *Cache // 可以为 nil
}

// Result 是一个片段的合成结果。
type Result struct {
	Clip     audio.Clip
	Text     string // 实际合成的文本
	Attempts int
	Filler   bool // 是否使用了兜底短句
}

// outcome 是单次尝试的结果类型。
type outcome int

const (
	outcomeOK outcome = iota
	outcomeRetry
	outcomeFatal
)

type attempt struct {
	kind   outcome
	clip   audio.Clip
	reason string
	err    error
}

// Invoker 负责带重试的片段合成。它只持有不可变的共享依赖，可被多个运行并发使用；
// 限速器在所有运行之间共享。
type Invoker struct {
	provider   Provider
	limiter    *rate.Limiter
	fillers    []string
	codec      string
	sampleRate int
	cache      *Cache
	metrics    *metrics.Collector
}

// NewInvoker 创建合成调用器。m 可以为 nil。
func NewInvoker(p Provider, cfg InvokerConfig, m *metrics.Collector) *Invoker {
	fillers := cfg.Fillers
	if len(fillers) == 0 {
		fillers = DefaultFillers
	}
	codec := cfg.Codec
	if codec == "" {
		codec = "mp3"
	}
	limit := rate.Inf
	if cfg.QPS > 0 {
		limit = rate.Limit(cfg.QPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Invoker{
		provider:   p,
		limiter:    rate.NewLimiter(limit, burst),
		fillers:    fillers,
		codec:      codec,
		sampleRate: cfg.SampleRate,
		cache:      cfg.Cache,
		metrics:    m,
	}
}

// ProviderName 返回后端名称。
func (inv *Invoker) ProviderName() string { return inv.provider.Name() }

// Synthesize 合成一个片段。文本被拒时依次改用激进清洗后的文本和兜底短句；
// 其他错误立即失败。失败时返回 *SegmentError（上下文取消除外）。
func (inv *Invoker) Synthesize(ctx context.Context, seg script.Segment, voiceID string, speed float64) (Result, error) {
	text := script.Sanitize(seg.Text, false)
	var last attempt

	for n := 1; n <= maxAttempts; n++ {
		filler := false
		switch n {
		case 2:
			text = script.Sanitize(text, true)
		case 3:
			text = inv.fillers[seg.Index%len(inv.fillers)]
			filler = true
		}

		last = inv.try(ctx, text, voiceID, speed)
		switch last.kind {
		case outcomeOK:
			if filler {
				inv.metrics.RecordFiller()
				logger.Warnf("[tts] 片段 %d 两次被拒，已替换为兜底短句 %q", seg.Index, text)
			}
			return Result{Clip: last.clip, Text: text, Attempts: n, Filler: filler}, nil
		case outcomeRetry:
			inv.metrics.RecordRetry(last.reason)
			logger.Warnf("[tts] 片段 %d 第 %d 次合成被拒 (%s): %v", seg.Index, n, last.reason, last.err)
		case outcomeFatal:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			return Result{}, &SegmentError{Index: seg.Index, Attempts: n, Err: last.err}
		}
	}
	return Result{}, &SegmentError{Index: seg.Index, Attempts: maxAttempts, Err: last.err}
}

// try 执行一次合成调用并归类结果。
func (inv *Invoker) try(ctx context.Context, text, voiceID string, speed float64) attempt {
	key := CacheKey(inv.provider.Name(), voiceID, speed, inv.codec, text)
	if data, ok := inv.cache.Get(key); ok {
		if clip, err := inv.decode(data); err == nil {
			inv.metrics.RecordCacheHit()
			return attempt{kind: outcomeOK, clip: clip}
		}
	}

	if err := inv.limiter.Wait(ctx); err != nil {
		return attempt{kind: outcomeFatal, err: err}
	}

	start := time.Now()
	data, err := inv.provider.Synthesize(ctx, Request{Text: text, Voice: voiceID, Speed: speed, Codec: inv.codec})
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrInvalidText):
		inv.metrics.RecordSynthesis(inv.provider.Name(), metrics.StatusRetry, elapsed)
		return attempt{kind: outcomeRetry, reason: "invalid_text", err: err}
	case err != nil:
		inv.metrics.RecordSynthesis(inv.provider.Name(), metrics.StatusFatal, elapsed)
		return attempt{kind: outcomeFatal, err: err}
	}

	clip, err := inv.decode(data)
	if err != nil {
		inv.metrics.RecordSynthesis(inv.provider.Name(), metrics.StatusFatal, elapsed)
		return attempt{kind: outcomeFatal, err: err}
	}
	inv.metrics.RecordSynthesis(inv.provider.Name(), metrics.StatusOK, elapsed)
	entry := CacheEntry{Provider: inv.provider.Name(), Voice: voiceID, Text: text}
	if err := inv.cache.Put(key, entry, data); err != nil {
		logger.Warnf("[tts] %v", err)
	}
	return attempt{kind: outcomeOK, clip: clip}
}

func (inv *Invoker) decode(data []byte) (audio.Clip, error) {
	if len(data) == 0 {
		return audio.Clip{}, fmt.Errorf("[tts] %s 返回了空音频", inv.provider.Name())
	}
	clip, err := audio.Decode(data, audio.Sniff(data, inv.codec))
	if err != nil {
		return audio.Clip{}, err
	}
	if clip.Empty() {
		return audio.Clip{}, fmt.Errorf("[tts] %s 返回的音频没有采样", inv.provider.Name())
	}
	if inv.sampleRate > 0 && clip.SampleRate != inv.sampleRate {
		clip = audio.Resample(clip, inv.sampleRate)
	}
	return clip, nil
}
