// Package pipeline 把脚本转换为成品音频：分段、合成、拼接、片头和导出。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iabetor/podvoice/internal/audio"
	"github.com/iabetor/podvoice/internal/config"
	"github.com/iabetor/podvoice/internal/database"
	"github.com/iabetor/podvoice/internal/intro"
	"github.com/iabetor/podvoice/internal/logger"
	"github.com/iabetor/podvoice/internal/metrics"
	"github.com/iabetor/podvoice/internal/script"
	"github.com/iabetor/podvoice/internal/tts"
	"github.com/iabetor/podvoice/internal/voice"
)

// ErrEmptyScript 表示脚本没有可合成的内容。
var ErrEmptyScript = errors.New("[pipeline] 脚本为空，无法合成")

// Request 是一次运行的输入。
type Request struct {
	// ID 用于输出文件命名，需在并发运行间唯一；为空时自动生成。
	ID     string
	Title  string
	Script string
	Voice  voice.Config
	Intro  intro.Spec
	// OnStage 非空时在每次阶段变化后调用。
	OnStage func(from, to Stage)
}

// Output 是一次成功运行的结果。
type Output struct {
	RunID          string
	AudioPath      string
	TranscriptPath string
	Duration       time.Duration
	Segments       int
	Fillers        int
	IntroTier      intro.Tier
}

// History 保存运行记录。
type History interface {
	RecordRun(ctx context.Context, r database.RunRecord) error
}

// Driver 编排整个流程。它只持有不可变的共享依赖，可同时执行多个运行。
type Driver struct {
	cfg      *config.Config
	cache    *tts.Cache
	invoker  *tts.Invoker
	composer *intro.Composer
	exporter *audio.Exporter
	metrics  *metrics.Collector
	history  History
}

// NewDriver 按配置组装流程。m 可以为 nil。
func NewDriver(cfg *config.Config, provider tts.Provider, m *metrics.Collector) *Driver {
	cache, err := tts.NewCache(cfg.TTS.Cache.Dir, cfg.TTS.Cache.MaxSizeMB)
	if err != nil {
		logger.Warnf("[pipeline] 合成缓存不可用: %v", err)
	}
	invoker := tts.NewInvoker(provider, tts.InvokerConfig{
		Fillers:    cfg.TTS.Fillers,
		Codec:      cfg.TTS.Tencent.Codec,
		SampleRate: cfg.Audio.SampleRate,
		QPS:        cfg.TTS.QPS,
		Burst:      cfg.TTS.Burst,
		Cache:      cache,
	}, m)

	library := &intro.Library{
		Dir:        cfg.Intro.BGMDir,
		Default:    cfg.Intro.DefaultBGM,
		FFmpegPath: cfg.Audio.FFmpegPath,
	}
	composer := intro.NewComposer(invoker, library, intro.ParamsFromConfig(cfg.Intro, cfg.Assemble), m)

	exporter := &audio.Exporter{Format: cfg.Audio.Format}
	if cfg.Audio.Format == "mp3" {
		exporter.FFmpeg = audio.NewFFmpeg(cfg.Audio.FFmpegPath, cfg.Audio.Bitrate)
	}

	return &Driver{
		cfg:      cfg,
		cache:    cache,
		invoker:  invoker,
		composer: composer,
		exporter: exporter,
		metrics:  m,
	}
}

// SetHistory 设置运行记录存储，须在 Run 之前调用。
func (d *Driver) SetHistory(h History) { d.history = h }

// Close 持久化合成缓存索引。
func (d *Driver) Close() error {
	return d.cache.Flush()
}

// Run 执行一次完整的合成。任何致命错误都会中止运行，且不会在输出目录留下文件。
func (d *Driver) Run(ctx context.Context, req Request) (*Output, error) {
	run, err := newRun(req)
	if err != nil {
		return nil, err
	}
	if req.OnStage != nil {
		run.state.SetOnChange(req.OnStage)
	}
	run.log.Infof("[pipeline] 开始运行 (标题 %q, 风格 %s)", req.Title, req.Intro.Style)

	start := time.Now()
	out, err := d.execute(ctx, run)
	if err != nil {
		run.state.Fail()
		run.log.Errorf("[pipeline] 运行失败: %v", err)
		d.metrics.RecordRun(metrics.StatusFailed, time.Since(start), 0)
		d.record(ctx, run, start, nil, err)
		return nil, err
	}

	run.state.Transition(StageDone)
	d.metrics.RecordRun(metrics.StatusSuccess, time.Since(start), out.Duration)
	d.record(ctx, run, start, out, nil)
	run.log.Infof("[pipeline] 运行完成: %s (%s, %d 段, 耗时 %s)",
		out.AudioPath, out.Duration.Round(time.Millisecond), out.Segments, time.Since(start).Round(time.Millisecond))
	return out, nil
}

// record 写入运行记录。取消的运行也要记录，因此不沿用 ctx 的取消。
func (d *Driver) record(ctx context.Context, run *Run, start time.Time, out *Output, runErr error) {
	if d.history == nil {
		return
	}
	rec := database.RunRecord{
		RunID:     run.id,
		Title:     run.req.Title,
		Status:    metrics.StatusSuccess,
		Provider:  d.invoker.ProviderName(),
		Style:     run.req.Intro.Style.String(),
		Elapsed:   time.Since(start),
		StartedAt: start,
	}
	if runErr != nil {
		rec.Status = metrics.StatusFailed
		rec.Error = runErr.Error()
	}
	if out != nil {
		rec.IntroTier = string(out.IntroTier)
		rec.Segments = out.Segments
		rec.Fillers = out.Fillers
		rec.AudioPath = out.AudioPath
		rec.TranscriptPath = out.TranscriptPath
		rec.Audio = out.Duration
	}
	if err := d.history.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		run.log.Warnf("[pipeline] %v", err)
	}
}

func (d *Driver) execute(ctx context.Context, run *Run) (*Output, error) {
	run.state.Transition(StageSegmenting)
	if strings.TrimSpace(run.req.Script) == "" {
		return nil, ErrEmptyScript
	}
	vc := run.req.Voice.Normalize(d.cfg.Voice.VoiceA, d.cfg.Voice.VoiceB)
	limit := voice.SegmentLimit(vc.HostMode, d.cfg.Segment.DualLimit, d.cfg.Segment.SingleLimit)
	parsed := script.Parse(run.req.Script)
	segs := script.Segments(parsed, limit)
	if len(segs) == 0 {
		return nil, ErrEmptyScript
	}
	run.log.Infof("[pipeline] %d 行脚本切分为 %d 段 (上限 %d 字, %s)", len(parsed), len(segs), limit, vc.HostMode)

	run.state.Transition(StageSynthesizing)
	clips := make([]audio.Clip, 0, len(segs))
	spoken := make([][]string, len(parsed))
	fillers := 0
	for _, seg := range segs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := d.invoker.Synthesize(ctx, seg, voice.Assign(seg, vc), vc.Speed)
		if err != nil {
			return nil, err
		}
		if res.Filler {
			fillers++
		}
		clips = append(clips, res.Clip)
		spoken[seg.Line] = append(spoken[seg.Line], res.Text)
		run.log.Debugf("[pipeline] 片段 %d/%d 完成 (%s)", seg.Index+1, len(segs), res.Clip.Duration())
	}

	run.state.Transition(StageAssembling)
	body, err := audio.Assemble(clips, d.cfg.Assemble.PauseMs, d.cfg.Assemble.CrossfadeMs)
	if err != nil {
		return nil, err
	}

	workDir := filepath.Join(d.cfg.Output.Dir, ".work", run.id)
	defer func() {
		os.RemoveAll(workDir)
		// 其他运行仍在使用时删除会失败，忽略即可
		os.Remove(filepath.Dir(workDir))
	}()
	bodyPath := filepath.Join(workDir, "body.wav")
	if err := (&audio.Exporter{Format: "wav"}).Export(ctx, body, bodyPath); err != nil {
		return nil, fmt.Errorf("[pipeline] 导出正文失败: %w", err)
	}

	run.state.Transition(StageComposingIntro)
	composed, err := d.composer.Compose(ctx, intro.Input{
		Spec:     run.req.Intro,
		Voice:    vc,
		Body:     body,
		BodyPath: bodyPath,
	})
	if err != nil {
		return nil, err
	}

	run.state.Transition(StageExporting)
	base := OutputName(run.req.Title, run.id)
	audioPath := filepath.Join(d.cfg.Output.Dir, base+"."+d.exporter.Ext())
	transcriptPath := filepath.Join(d.cfg.Output.Dir, base+".txt")

	if err := d.exporter.Export(ctx, composed.Clip, audioPath); err != nil {
		return nil, err
	}
	if err := writeTranscript(transcriptPath, spoken); err != nil {
		os.Remove(audioPath)
		return nil, err
	}

	return &Output{
		RunID:          run.id,
		AudioPath:      audioPath,
		TranscriptPath: transcriptPath,
		Duration:       composed.Clip.Duration(),
		Segments:       len(segs),
		Fillers:        fillers,
		IntroTier:      composed.Tier,
	}, nil
}

// writeTranscript 每行脚本一行，内容为实际合成的文本。先写临时文件再改名。
func writeTranscript(path string, spoken [][]string) error {
	var b strings.Builder
	for _, texts := range spoken {
		if len(texts) == 0 {
			continue
		}
		b.WriteString(strings.Join(texts, ""))
		b.WriteByte('\n')
	}

	tmp := path + ".part"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("[pipeline] 写入文稿失败: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("[pipeline] 写入文稿失败: %w", err)
	}
	return nil
}
