package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/iabetor/podvoice/internal/config"
)

var (
	// ErrInvalidText 表示合成服务拒绝了文本内容，可以换一种文本重试。
	ErrInvalidText = errors.New("[tts] 文本被合成服务拒绝")
	// ErrProviderFailure 表示片段在所有重试后仍无法合成。
	ErrProviderFailure = errors.New("[tts] 语音合成失败")
)

// Request 是一次合成调用的参数。
type Request struct {
	Text  string
	Voice string  // 音色编号，含义由具体后端决定
	Speed float64 // -2..2
	Codec string  // 期望的音频编码：mp3 或 wav
}

// Provider 定义语音合成后端接口。
type Provider interface {
	// Name 返回后端名称，用于日志和指标。
	Name() string
	// Synthesize 将文本转换为编码后的音频数据。
	// 文本被拒绝时返回的错误满足 errors.Is(err, ErrInvalidText)。
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// SegmentError 记录无法合成的片段。
type SegmentError struct {
	Index    int
	Attempts int
	Err      error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("[tts] 片段 %d 在 %d 次尝试后合成失败: %v", e.Index, e.Attempts, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrProviderFailure) 对所有片段失败成立。
func (e *SegmentError) Is(target error) bool {
	return target == ErrProviderFailure
}

// NewProvider 按配置创建合成后端。
func NewProvider(cfg config.TTSConfig) (Provider, error) {
	switch cfg.Provider {
	case "tencent", "":
		return NewTencentProvider(cfg.Tencent)
	case "edge":
		return NewEdgeProvider(cfg.Edge.DefaultVoice), nil
	case "piper":
		return NewPiperProvider(cfg.Piper.Binary, cfg.Piper.ModelDir), nil
	default:
		return nil, fmt.Errorf("[tts] 未知的 TTS 提供方: %s", cfg.Provider)
	}
}
