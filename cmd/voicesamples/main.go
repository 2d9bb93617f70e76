package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iabetor/podvoice/internal/audio"
	"github.com/iabetor/podvoice/internal/config"
	"github.com/iabetor/podvoice/internal/logger"
	"github.com/iabetor/podvoice/internal/script"
	"github.com/iabetor/podvoice/internal/tts"
)

const defaultSampleText = "大家好，欢迎收听本期节目。今天我们来聊一聊科技与生活。"

func main() {
	configPath := flag.String("config", "configs/podvoice.yaml", "配置文件路径")
	outDir := flag.String("out", "voice_samples", "试听文件输出目录")
	text := flag.String("text", defaultSampleText, "试听文本")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.Voices) == 0 {
		fmt.Fprintln(os.Stderr, "配置中没有音色目录，请在 voices 下列出音色")
		os.Exit(1)
	}

	provider, err := tts.NewProvider(cfg.TTS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建 TTS 失败: %v\n", err)
		os.Exit(1)
	}
	invoker := tts.NewInvoker(provider, tts.InvokerConfig{
		Fillers:    cfg.TTS.Fillers,
		Codec:      cfg.TTS.Tencent.Codec,
		SampleRate: cfg.Audio.SampleRate,
		QPS:        cfg.TTS.QPS,
		Burst:      cfg.TTS.Burst,
	}, nil)
	exporter := &audio.Exporter{
		Format: "mp3",
		FFmpeg: audio.NewFFmpeg(cfg.Audio.FFmpegPath, cfg.Audio.Bitrate),
	}

	ctx := context.Background()
	ok, failed := 0, 0
	for _, v := range cfg.Voices {
		path := filepath.Join(*outDir, fmt.Sprintf("voice_%s.mp3", v.ID))
		res, err := invoker.Synthesize(ctx, script.Segment{Text: *text}, v.ID, 0)
		if err == nil {
			err = exporter.Export(ctx, res.Clip, path)
		}
		if err != nil {
			failed++
			logger.Warnf("[samples] %s (%s) 失败: %v", v.ID, v.Name, err)
			continue
		}
		ok++
		fmt.Printf("%s\t%s\t%s\n", v.ID, v.Name, path)
	}

	fmt.Printf("完成: 成功 %d，失败 %d\n", ok, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
