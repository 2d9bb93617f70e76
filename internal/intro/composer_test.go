package intro

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/iabetor/podvoice/internal/audio"
	"github.com/iabetor/podvoice/internal/config"
	"github.com/iabetor/podvoice/internal/metrics"
	"github.com/iabetor/podvoice/internal/script"
	"github.com/iabetor/podvoice/internal/tts"
	"github.com/iabetor/podvoice/internal/tts/ttstest"
	"github.com/iabetor/podvoice/internal/voice"
)

const testRate = 8000

func testParams() Params {
	cfg := config.Default()
	return ParamsFromConfig(cfg.Intro, cfg.Assemble)
}

func writeWAV(t *testing.T, path string, c audio.Clip) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := audio.EncodeWAV(f, c); err != nil {
		t.Fatal(err)
	}
}

func constant(v float32, ms int) audio.Clip {
	c := audio.Silence(ms, testRate)
	for i := range c.Samples {
		c.Samples[i] = v
	}
	return c
}

type fixture struct {
	dir      string
	provider *ttstest.Provider
	composer *Composer
	body     audio.Clip
	bodyPath string
}

func newFixture(t *testing.T, bgmFiles ...string) *fixture {
	t.Helper()
	dir := t.TempDir()
	for _, name := range bgmFiles {
		writeWAV(t, filepath.Join(dir, name), constant(0.5, 3000))
	}
	body := constant(0.1, 1000)
	bodyPath := filepath.Join(dir, "body.wav")
	writeWAV(t, bodyPath, body)

	p := &ttstest.Provider{SampleRate: testRate}
	inv := tts.NewInvoker(p, tts.InvokerConfig{}, nil)
	lib := &Library{Dir: dir, Default: "bgm_general.wav"}
	return &fixture{
		dir:      dir,
		provider: p,
		composer: NewComposer(inv, lib, testParams(), metrics.NewCollector("test", nil)),
		body:     body,
		bodyPath: bodyPath,
	}
}

func dualVoices() voice.Config {
	return voice.Config{VoiceA: "a", VoiceB: "b", HostMode: voice.Dual}
}

func TestCompose_GeneralIsMusicOnly(t *testing.T) {
	f := newFixture(t, "bgm_general.wav")
	res, err := f.composer.Compose(context.Background(), Input{
		Spec: Spec{Style: StyleGeneral}, Voice: dualVoices(), Body: f.body, BodyPath: f.bodyPath,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Tier != TierMusicOnly {
		t.Errorf("tier = %s, want %s", res.Tier, TierMusicOnly)
	}
	if len(f.provider.Calls()) != 0 {
		t.Errorf("music-only intro should not synthesize, got %d calls", len(f.provider.Calls()))
	}
	// 3s 音乐（不足 5s 全部保留）+ 1s 正文 − 200ms 交叉淡化
	if want := audio.SamplesFor(3000+1000-200, testRate); res.Clip.Len() != want {
		t.Errorf("got %d samples, want %d", res.Clip.Len(), want)
	}
}

func TestCompose_DynamicMatchesVoiceLength(t *testing.T) {
	f := newFixture(t, "bgm_general.wav")
	spec := Spec{Style: StyleCustom, CustomLines: []string{"你好", "欢迎收听"}}

	res, err := f.composer.Compose(context.Background(), Input{
		Spec: spec, Voice: dualVoices(), Body: f.body, BodyPath: f.bodyPath,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Tier != TierDynamic {
		t.Fatalf("tier = %s, want %s", res.Tier, TierDynamic)
	}
	if len(res.Lines) != 2 || res.Lines[1] != "欢迎收听" {
		t.Errorf("spoken lines = %q", res.Lines)
	}

	calls := f.provider.Calls()
	if len(calls) != 2 || calls[0].Voice != "a" || calls[1].Voice != "b" {
		t.Errorf("intro lines should alternate voices: %+v", calls)
	}

	p := testParams()
	voiceLen := audio.AssembledLength(
		[]int{audio.SamplesFor(20, testRate), audio.SamplesFor(40, testRate)},
		audio.SamplesFor(p.LinePauseMs, testRate), audio.SamplesFor(p.LineCrossfadeMs, testRate))
	target := audio.SamplesFor(p.LeadInMs, testRate) + voiceLen + audio.SamplesFor(p.FadeOutMs, testRate)
	want := target + f.body.Len() - audio.SamplesFor(p.SpliceCrossfadeMs, testRate)
	if res.Clip.Len() != want {
		t.Errorf("got %d samples, want %d", res.Clip.Len(), want)
	}
	// 引导静音段只有背景音乐，且已淡入
	if res.Clip.Samples[0] != 0 {
		t.Errorf("intro should fade in from silence, got %f", res.Clip.Samples[0])
	}
}

func TestCompose_DynamicStretchesStyledMusic(t *testing.T) {
	f := newFixture(t, "bgm_general.wav")
	// 0 到 1 的斜坡，便于区分拉伸与循环
	ramp := audio.Silence(3000, testRate)
	for i := range ramp.Samples {
		ramp.Samples[i] = float32(i) / float32(len(ramp.Samples)-1)
	}
	writeWAV(t, filepath.Join(f.dir, "bgm_tech.wav"), ramp)

	spec := Spec{Style: StyleTech}
	if spec.Strategy() != Stretch {
		t.Fatalf("tech style should stretch, got %v", spec.Strategy())
	}
	res, err := f.composer.Compose(context.Background(), Input{
		Spec: spec, Voice: dualVoices(), Body: f.body, BodyPath: f.bodyPath,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Tier != TierDynamic {
		t.Fatalf("tier = %s, want %s", res.Tier, TierDynamic)
	}

	p := testParams()
	lines := spec.Lines(voice.Dual)
	lengths := make([]int, len(lines))
	for i, line := range lines {
		lengths[i] = audio.SamplesFor(10*utf8.RuneCountInString(script.Sanitize(line, false)), testRate)
	}
	voiceLen := audio.AssembledLength(lengths,
		audio.SamplesFor(p.LinePauseMs, testRate), audio.SamplesFor(p.LineCrossfadeMs, testRate))
	lead := audio.SamplesFor(p.LeadInMs, testRate)
	target := lead + voiceLen + audio.SamplesFor(p.FadeOutMs, testRate)
	if want := target + f.body.Len() - audio.SamplesFor(p.SpliceCrossfadeMs, testRate); res.Clip.Len() != want {
		t.Fatalf("got %d samples, want %d", res.Clip.Len(), want)
	}

	// 语音结束后只剩背景音乐：应与整段拉伸到 target 的音乐一致
	music := audio.FadeOut(audio.FadeIn(audio.Gain(audio.Stretch(ramp, target), p.GainDB), p.FadeInMs), p.FadeOutMs)
	idx := lead + voiceLen
	if d := res.Clip.Samples[idx] - music.Samples[idx]; d > 1e-3 || d < -1e-3 {
		t.Errorf("sample %d = %f, want stretched music %f", idx, res.Clip.Samples[idx], music.Samples[idx])
	}
}

func TestCompose_SynthesisFailureFallsBackToStatic(t *testing.T) {
	f := newFixture(t, "bgm_tech.wav", "bgm_general.wav")
	f.provider.Fail = func(string) error { return errors.New("quota exceeded") }

	res, err := f.composer.Compose(context.Background(), Input{
		Spec: Spec{Style: StyleTech}, Voice: dualVoices(), Body: f.body, BodyPath: f.bodyPath,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Tier != TierStatic {
		t.Errorf("tier = %s, want %s", res.Tier, TierStatic)
	}
	if res.BGMPath != filepath.Join(f.dir, "bgm_tech.wav") {
		t.Errorf("styled music should be used, got %s", res.BGMPath)
	}
}

func TestCompose_MissingStyledMusicUsesDefault(t *testing.T) {
	f := newFixture(t, "bgm_general.wav")
	res, err := f.composer.Compose(context.Background(), Input{
		Spec: Spec{Style: StyleLife}, Voice: dualVoices(), Body: f.body, BodyPath: f.bodyPath,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.BGMPath != filepath.Join(f.dir, "bgm_general.wav") || res.Tier != TierDynamic {
		t.Errorf("got tier %s with %s", res.Tier, res.BGMPath)
	}
}

func TestCompose_NoMusicAtAllKeepsBody(t *testing.T) {
	f := newFixture(t)
	res, err := f.composer.Compose(context.Background(), Input{
		Spec: Spec{Style: StyleTech}, Voice: dualVoices(), Body: f.body, BodyPath: f.bodyPath,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Tier != TierBasic || res.Clip.Len() != f.body.Len() {
		t.Errorf("got tier %s with %d samples", res.Tier, res.Clip.Len())
	}
}

func TestCompose_LastTierFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	_, err := f.composer.Compose(context.Background(), Input{
		Spec: Spec{Style: StyleGeneral}, Voice: dualVoices(), Body: f.body,
		BodyPath: filepath.Join(f.dir, "missing.wav"),
	})
	if !errors.Is(err, ErrIntroComposition) {
		t.Fatalf("expected ErrIntroComposition, got %v", err)
	}
}

func TestLibrary_CustomMusicTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "bgm_tech.wav"), constant(0.1, 100))
	custom := filepath.Join(dir, "mine.wav")
	writeWAV(t, custom, constant(0.1, 100))

	lib := &Library{Dir: dir}
	got, err := lib.Resolve(Spec{Style: StyleTech, CustomBGMPath: custom})
	if err != nil || got != custom {
		t.Errorf("Resolve = %q, %v", got, err)
	}
	if _, err := lib.Resolve(Spec{Style: StyleLife}); !errors.Is(err, ErrMissingBGM) {
		t.Errorf("expected ErrMissingBGM, got %v", err)
	}
}
