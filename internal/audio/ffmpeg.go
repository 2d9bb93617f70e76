package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/iabetor/podvoice/internal/logger"
)

// FFmpeg 通过子进程调用 ffmpeg 完成 MP3 编码和非常见格式的解码。
type FFmpeg struct {
	path    string
	bitrate string
}

// NewFFmpeg 创建 ffmpeg 封装；bitrate 形如 "192k"，为空时使用 192k。
func NewFFmpeg(path, bitrate string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if bitrate == "" {
		bitrate = "192k"
	}
	return &FFmpeg{path: path, bitrate: bitrate}
}

// DecodeFile 把任意 ffmpeg 可识别的音频转为单声道 16-bit WAV 并解码。
func (f *FFmpeg) DecodeFile(ctx context.Context, path string) (Clip, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.path,
		"-v", "error",
		"-i", path,
		"-f", "wav",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Clip{}, fmt.Errorf("[audio] ffmpeg 解码 %s 失败: %w, stderr: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return DecodeWAV(&stdout)
}

// EncodeMP3 把 WAV 文件转码为固定码率的 MP3。
func (f *FFmpeg) EncodeMP3(ctx context.Context, wavPath, mp3Path string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.path,
		"-v", "error",
		"-y",
		"-i", wavPath,
		"-codec:a", "libmp3lame",
		"-b:a", f.bitrate,
		"-f", "mp3",
		mp3Path,
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("[audio] ffmpeg 编码 MP3 失败: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Exporter 把 Clip 写成最终文件。写入先落在同目录的临时文件，
// 成功后再 rename，失败时不会在目标路径留下残缺文件。
type Exporter struct {
	Format string // mp3 或 wav
	FFmpeg *FFmpeg
}

// Ext 返回输出文件扩展名（不含点）。
func (e *Exporter) Ext() string {
	if e.Format == "" {
		return "wav"
	}
	return e.Format
}

// Export 将 clip 导出到 path。
func (e *Exporter) Export(ctx context.Context, c Clip, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("[audio] 创建输出目录失败: %w", err)
	}

	wavTmp, err := writeTempWAV(c, filepath.Dir(path))
	if err != nil {
		return err
	}
	defer os.Remove(wavTmp)

	switch e.Ext() {
	case "wav":
		if err := os.Rename(wavTmp, path); err != nil {
			return fmt.Errorf("[audio] 重命名输出文件失败: %w", err)
		}
	case "mp3":
		if e.FFmpeg == nil {
			return fmt.Errorf("[audio] 导出 MP3 需要 ffmpeg")
		}
		mp3Tmp := path + ".part"
		defer os.Remove(mp3Tmp)
		if err := e.FFmpeg.EncodeMP3(ctx, wavTmp, mp3Tmp); err != nil {
			return err
		}
		if err := os.Rename(mp3Tmp, path); err != nil {
			return fmt.Errorf("[audio] 重命名输出文件失败: %w", err)
		}
	default:
		return fmt.Errorf("[audio] 不支持的输出格式: %s", e.Format)
	}

	logger.Debugf("[audio] 已导出 %s (%s, %d Hz)", path, c.Duration(), c.SampleRate)
	return nil
}

func writeTempWAV(c Clip, dir string) (string, error) {
	f, err := os.CreateTemp(dir, ".podvoice-*.wav")
	if err != nil {
		return "", fmt.Errorf("[audio] 创建临时文件失败: %w", err)
	}
	if err := EncodeWAV(f, c); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("[audio] 写入临时文件失败: %w", err)
	}
	return f.Name(), nil
}
