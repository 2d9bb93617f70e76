package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 把 MP3 数据解码为单声道 Clip。
// go-mp3 固定输出立体声 signed 16-bit LE PCM。
func DecodeMP3(r io.Reader) (Clip, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return Clip{}, fmt.Errorf("[audio] MP3 解码失败: %w", err)
	}
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return Clip{}, fmt.Errorf("[audio] 读取 PCM 数据失败: %w", err)
	}
	return Clip{Samples: InterleavedToMono(pcm, 2), SampleRate: decoder.SampleRate()}, nil
}

// Decode 按编码格式（mp3 / wav）解码内存中的音频。
func Decode(data []byte, codec string) (Clip, error) {
	if len(data) == 0 {
		return Clip{}, fmt.Errorf("[audio] 音频数据为空")
	}
	switch strings.ToLower(codec) {
	case "mp3":
		return DecodeMP3(bytes.NewReader(data))
	case "wav", "pcm_wav":
		return DecodeWAV(bytes.NewReader(data))
	default:
		return Clip{}, fmt.Errorf("[audio] 不支持的编码格式: %s", codec)
	}
}

// Sniff 根据文件头判断编码格式，无法判断时返回 fallback。
func Sniff(data []byte, fallback string) string {
	switch {
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav"
	case len(data) >= 3 && string(data[:3]) == "ID3":
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	}
	return fallback
}

// DecodeFile 读取并解码音频文件。mp3 / wav 直接解码，
// 其他格式在 ffmpegPath 非空时先用 ffmpeg 转成 WAV。
func DecodeFile(ctx context.Context, path, ffmpegPath string) (Clip, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "mp3", "wav":
		data, err := os.ReadFile(path)
		if err != nil {
			return Clip{}, fmt.Errorf("[audio] 读取 %s 失败: %w", path, err)
		}
		clip, err := Decode(data, ext)
		if err != nil {
			return Clip{}, fmt.Errorf("[audio] 解码 %s 失败: %w", path, err)
		}
		return clip, nil
	}
	if ffmpegPath == "" {
		return Clip{}, fmt.Errorf("[audio] 不支持的音频格式 %q 且未配置 ffmpeg", ext)
	}
	return NewFFmpeg(ffmpegPath, "").DecodeFile(ctx, path)
}
