package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/iabetor/podvoice/internal/config"
	"github.com/iabetor/podvoice/internal/database"
	"github.com/iabetor/podvoice/internal/intro"
	"github.com/iabetor/podvoice/internal/logger"
	"github.com/iabetor/podvoice/internal/metrics"
	"github.com/iabetor/podvoice/internal/pipeline"
	"github.com/iabetor/podvoice/internal/tts"
	"github.com/iabetor/podvoice/internal/voice"
)

func main() {
	configPath := flag.String("config", "configs/podvoice.yaml", "配置文件路径")
	title := flag.String("title", "", "节目标题，用于输出文件名；批量时为空则取脚本文件名")
	runID := flag.String("id", "", "运行 ID，仅单个脚本时有效")
	style := flag.String("style", "", "片头风格，如 tech、商业财经、custom")
	introFile := flag.String("intro", "", "自定义片头文本文件（每行一句）")
	bgm := flag.String("bgm", "", "自定义片头背景音乐")
	hostMode := flag.String("host-mode", "", "single 或 dual")
	voiceA := flag.String("voice-a", "", "主持人 A 音色，支持 id:名称")
	voiceB := flag.String("voice-b", "", "主持人 B 音色，支持 id:名称")
	speed := flag.Float64("speed", 0, "语速 [-2, 2]，0 表示使用配置")
	history := flag.Int("history", 0, "列出最近 N 次运行记录后退出")
	flag.Usage = printUsage
	flag.Parse()

	scripts := flag.Args()
	if len(scripts) == 0 && *history == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var db *database.DB
	if cfg.History.Enabled || *history > 0 {
		db, err = database.Open(cfg.History.DBPath)
		if err == nil {
			err = db.Migrate()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "打开运行历史失败: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
	}
	if *history > 0 {
		printHistory(db, *history)
		return
	}

	mode, err := voice.ParseHostMode(firstNonEmpty(*hostMode, cfg.Voice.HostMode))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	vc := voice.Config{
		VoiceA:   firstNonEmpty(*voiceA, cfg.Voice.VoiceA),
		VoiceB:   firstNonEmpty(*voiceB, cfg.Voice.VoiceB),
		Speed:    float64(cfg.Voice.Speed),
		HostMode: mode,
	}
	if *speed != 0 {
		vc.Speed = *speed
	}

	spec := intro.Spec{
		Style:         intro.ParseStyle(firstNonEmpty(*style, cfg.Intro.Style)),
		CustomBGMPath: *bgm,
	}
	if *introFile != "" {
		data, err := os.ReadFile(*introFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "读取片头文本失败: %v\n", err)
			os.Exit(1)
		}
		lines, err := intro.ParseCustomScript(string(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "片头文本无效: %v\n", err)
			os.Exit(1)
		}
		spec.Style = intro.StyleCustom
		spec.CustomLines = lines
	}

	reqs := make([]pipeline.Request, 0, len(scripts))
	for _, path := range scripts {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "读取脚本失败: %v\n", err)
			os.Exit(1)
		}
		req := pipeline.Request{
			Title:  firstNonEmpty(*title, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))),
			Script: string(data),
			Voice:  vc,
			Intro:  spec,
		}
		if len(scripts) == 1 {
			req.ID = *runID
		}
		reqs = append(reqs, req)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听系统信号，取消进行中的运行
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("[main] 收到信号 %v，正在取消...", sig)
		cancel()
	}()

	provider, err := tts.NewProvider(cfg.TTS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建 TTS 失败: %v\n", err)
		os.Exit(1)
	}
	m := metrics.NewCollector(cfg.Metrics.Namespace, nil)
	driver := pipeline.NewDriver(cfg, provider, m)
	if db != nil {
		driver.SetHistory(db)
	}

	logger.Infof("[main] podvoice 启动 (provider=%s, %d 个脚本, 并发 %d)",
		provider.Name(), len(reqs), cfg.Pipeline.MaxConcurrent)
	outputs, runErr := pipeline.RunBatch(ctx, driver, reqs, cfg.Pipeline.MaxConcurrent)
	if err := driver.Close(); err != nil {
		logger.Warnf("[main] 保存合成缓存失败: %v", err)
	}

	for _, out := range outputs {
		if out != nil {
			fmt.Printf("%s\t%s\t%s\n", out.AudioPath, out.TranscriptPath, out.Duration.Round(time.Millisecond))
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warnf("[main] 写入指标失败: %v", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Info("[main] 已取消")
		}
		fmt.Fprintf(os.Stderr, "运行出错: %v\n", runErr)
		os.Exit(1)
	}
}

func printHistory(db *database.DB, n int) {
	runs, err := db.RecentRuns(context.Background(), n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取运行历史失败: %v\n", err)
		os.Exit(1)
	}
	for _, r := range runs {
		detail := r.AudioPath
		if r.Status != metrics.StatusSuccess {
			detail = r.Error
		}
		fmt.Printf("%s  %s  %-7s  %-10s  %s  %s\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.RunID, r.Status, r.IntroTier,
			r.Audio.Round(time.Second), detail)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "用法: podvoice [选项] <脚本文件>...")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "脚本每行一句，可用 \"A:\" / \"B:\" 指定说话人。多个脚本并发生成。")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "片头风格:")
	for _, spec := range intro.Styles() {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", spec.Code, spec.Name)
	}
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}
