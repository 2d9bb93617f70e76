// Package ttstest 提供用于测试的合成后端。
package ttstest

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/iabetor/podvoice/internal/audio"
	"github.com/iabetor/podvoice/internal/tts"
)

// Provider 是内存中的合成后端：每个字符生成 MsPerRune 毫秒的恒定音频，
// 以 WAV 返回。
type Provider struct {
	SampleRate int
	MsPerRune  int
	Level      float32

	// Reject 返回 true 时该文本被当作非法文本拒绝。
	Reject func(text string) bool
	// Fail 返回非 nil 时直接作为错误返回。
	Fail func(text string) error

	mu    sync.Mutex
	calls []tts.Request
}

// Name 实现 tts.Provider。
func (p *Provider) Name() string { return "fake" }

// Synthesize 实现 tts.Provider。
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Fail != nil {
		if err := p.Fail(req.Text); err != nil {
			return nil, err
		}
	}
	if p.Reject != nil && p.Reject(req.Text) {
		return nil, fmt.Errorf("%w: %q", tts.ErrInvalidText, req.Text)
	}

	var buf bytes.Buffer
	if err := audio.EncodeWAV(&buf, p.Clip(req.Text)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Clip 返回该文本对应的音频。
func (p *Provider) Clip(text string) audio.Clip {
	rate := p.SampleRate
	if rate == 0 {
		rate = 16000
	}
	ms := p.MsPerRune
	if ms == 0 {
		ms = 10
	}
	level := p.Level
	if level == 0 {
		level = 0.25
	}
	n := audio.SamplesFor(ms*utf8.RuneCountInString(text), rate)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = level
	}
	return audio.NewClip(samples, rate)
}

// Calls 返回收到的全部请求。
func (p *Provider) Calls() []tts.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]tts.Request(nil), p.calls...)
}
