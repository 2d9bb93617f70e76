package tts_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iabetor/podvoice/internal/metrics"
	"github.com/iabetor/podvoice/internal/script"
	"github.com/iabetor/podvoice/internal/tts"
	"github.com/iabetor/podvoice/internal/tts/ttstest"
)

func TestInvoker_FirstAttemptSucceeds(t *testing.T) {
	p := &ttstest.Provider{SampleRate: 16000}
	inv := tts.NewInvoker(p, tts.InvokerConfig{Codec: "wav"}, nil)

	res, err := inv.Synthesize(context.Background(), script.Segment{Text: "你好 [1] 世界。", Index: 0}, "501006", 1)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Attempts != 1 || res.Filler {
		t.Errorf("unexpected result: attempts=%d filler=%v", res.Attempts, res.Filler)
	}
	if res.Text != "你好世界。" {
		t.Errorf("text should be sanitized, got %q", res.Text)
	}
	calls := p.Calls()
	if len(calls) != 1 || calls[0].Voice != "501006" || calls[0].Speed != 1 || calls[0].Codec != "wav" {
		t.Errorf("unexpected calls: %+v", calls)
	}
	if res.Clip.Len() != 16000*10*5/1000 {
		t.Errorf("clip has %d samples", res.Clip.Len())
	}
}

func TestInvoker_AggressiveRetry(t *testing.T) {
	p := &ttstest.Provider{Reject: func(text string) bool { return strings.Contains(text, "《") }}
	m := metrics.NewCollector("test", nil)
	inv := tts.NewInvoker(p, tts.InvokerConfig{}, m)

	res, err := inv.Synthesize(context.Background(), script.Segment{Text: "推荐《三体》这本书。"}, "a", 0)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Attempts != 2 || res.Text != "推荐三体这本书。" {
		t.Errorf("got attempts=%d text=%q", res.Attempts, res.Text)
	}
}

func TestInvoker_InvalidTwiceUsesFiller(t *testing.T) {
	p := &ttstest.Provider{Reject: func(text string) bool { return strings.Contains(text, "坏") }}
	inv := tts.NewInvoker(p, tts.InvokerConfig{}, nil)

	res, err := inv.Synthesize(context.Background(), script.Segment{Text: "这段坏文本。", Index: 4}, "a", 0)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	// 4 % 3 == 1
	if !res.Filler || res.Attempts != 3 || res.Text != tts.DefaultFillers[1] {
		t.Errorf("got filler=%v attempts=%d text=%q", res.Filler, res.Attempts, res.Text)
	}
	if len(p.Calls()) != 3 {
		t.Errorf("expected 3 provider calls, got %d", len(p.Calls()))
	}
}

func TestInvoker_FillerRejectedIsFatal(t *testing.T) {
	p := &ttstest.Provider{Reject: func(string) bool { return true }}
	inv := tts.NewInvoker(p, tts.InvokerConfig{Fillers: []string{"继续。"}}, nil)

	_, err := inv.Synthesize(context.Background(), script.Segment{Text: "任何文本", Index: 7}, "a", 0)
	if !errors.Is(err, tts.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
	var segErr *tts.SegmentError
	if !errors.As(err, &segErr) || segErr.Index != 7 || segErr.Attempts != 3 {
		t.Errorf("unexpected segment error: %+v", segErr)
	}
	if !errors.Is(err, tts.ErrInvalidText) {
		t.Errorf("cause should be kept: %v", err)
	}
}

func TestInvoker_OtherErrorsAreFatalImmediately(t *testing.T) {
	boom := errors.New("network down")
	p := &ttstest.Provider{Fail: func(string) error { return boom }}
	inv := tts.NewInvoker(p, tts.InvokerConfig{}, nil)

	_, err := inv.Synthesize(context.Background(), script.Segment{Text: "你好"}, "a", 0)
	if !errors.Is(err, tts.ErrProviderFailure) || !errors.Is(err, boom) {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Calls()) != 1 {
		t.Errorf("expected no retries, got %d calls", len(p.Calls()))
	}
}

func TestInvoker_ResamplesToTargetRate(t *testing.T) {
	p := &ttstest.Provider{SampleRate: 16000}
	inv := tts.NewInvoker(p, tts.InvokerConfig{SampleRate: 44100}, nil)
	res, err := inv.Synthesize(context.Background(), script.Segment{Text: "一二三四五六七八九十"}, "a", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Clip.SampleRate != 44100 || res.Clip.Len() != 4410 {
		t.Errorf("got %d samples @ %d Hz", res.Clip.Len(), res.Clip.SampleRate)
	}
}

func TestInvoker_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv := tts.NewInvoker(&ttstest.Provider{}, tts.InvokerConfig{}, nil)
	_, err := inv.Synthesize(ctx, script.Segment{Text: "你好"}, "a", 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, tts.ErrProviderFailure) {
		t.Error("cancellation should not be reported as provider failure")
	}
}

func TestInvoker_CacheServesRepeatedText(t *testing.T) {
	cache, err := tts.NewCache(t.TempDir(), 10)
	if err != nil {
		t.Fatal(err)
	}
	p := &ttstest.Provider{}
	m := metrics.NewCollector("test", nil)
	inv := tts.NewInvoker(p, tts.InvokerConfig{Cache: cache}, m)

	seg := script.Segment{Text: "重复的句子。"}
	first, err := inv.Synthesize(context.Background(), seg, "a", 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := inv.Synthesize(context.Background(), seg, "a", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Calls()) != 1 {
		t.Errorf("second synthesis should come from the cache, provider called %d times", len(p.Calls()))
	}
	if first.Clip.Len() != second.Clip.Len() {
		t.Errorf("cached clip differs: %d vs %d samples", first.Clip.Len(), second.Clip.Len())
	}

	// 音色不同不命中
	if _, err := inv.Synthesize(context.Background(), seg, "b", 0); err != nil {
		t.Fatal(err)
	}
	if len(p.Calls()) != 2 {
		t.Errorf("different voice should miss the cache")
	}
}
