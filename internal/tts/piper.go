package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/iabetor/podvoice/internal/audio"
	"github.com/iabetor/podvoice/internal/logger"
)

// piperSampleRate 是 piper 输出的固定采样率。
const piperSampleRate = 22050

// PiperProvider 使用 piper CLI 子进程离线合成。音色编号是 modelDir 下的
// 模型名（不含 .onnx 后缀）。返回的音频总是 WAV。
type PiperProvider struct {
	binary   string
	modelDir string
}

// NewPiperProvider 创建 piper 后端。
func NewPiperProvider(binary, modelDir string) *PiperProvider {
	if binary == "" {
		binary = "piper"
	}
	return &PiperProvider{binary: binary, modelDir: modelDir}
}

// Name 实现 Provider。
func (p *PiperProvider) Name() string { return "piper" }

// Synthesize piper 输出 signed 16-bit LE 单声道 PCM，这里封装成 WAV 返回。
func (p *PiperProvider) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	model := p.modelPath(req.Voice)
	logger.Debugf("[tts] piper: 正在合成 %d 个字符，模型=%s", len([]rune(req.Text)), model)

	cmd := exec.CommandContext(ctx, p.binary, "--model", model, "--output-raw")
	cmd.Stdin = strings.NewReader(req.Text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			logger.Warnf("[tts] piper stderr: %s", s)
		}
		return nil, fmt.Errorf("[tts] piper 执行失败: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("[tts] piper: 未收到音频数据")
	}

	var wav bytes.Buffer
	clip := audio.NewClip(audio.BytesToFloat32(stdout.Bytes()), piperSampleRate)
	if err := audio.EncodeWAV(&wav, clip); err != nil {
		return nil, err
	}
	return wav.Bytes(), nil
}

func (p *PiperProvider) modelPath(voice string) string {
	if voice == "" || strings.ContainsRune(voice, filepath.Separator) || strings.HasSuffix(voice, ".onnx") {
		return voice
	}
	return filepath.Join(p.modelDir, voice+".onnx")
}
