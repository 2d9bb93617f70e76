package tts

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/iabetor/podvoice/internal/logger"
)

// EdgeProvider 使用微软 Edge TTS 实现语音合成，音色编号即语音名称，
// 如 "zh-CN-XiaoxiaoNeural"。返回的音频总是 MP3。
type EdgeProvider struct {
	defaultVoice string
}

// NewEdgeProvider 创建 Edge TTS 后端；defaultVoice 在请求未指定音色时使用。
func NewEdgeProvider(defaultVoice string) *EdgeProvider {
	if defaultVoice == "" {
		defaultVoice = "zh-CN-XiaoxiaoNeural"
	}
	return &EdgeProvider{defaultVoice: defaultVoice}
}

// Name 实现 Provider。
func (p *EdgeProvider) Name() string { return "edge" }

// Synthesize 通过 Stream() 收集 MP3 音频块。Edge 不支持语速参数，Speed 被忽略。
func (p *EdgeProvider) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	voice := req.Voice
	if voice == "" {
		voice = p.defaultVoice
	}
	logger.Debugf("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(req.Text)), voice)

	comm, err := edge.NewCommunicate(req.Text, edge.WithVoice(voice))
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts 创建实例失败: %w", err)
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts 开始流式合成失败: %w", err)
	}

	var buf bytes.Buffer
	for msg := range ch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// type=="audio" 的条目包含音频数据
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				buf.Write(data)
			}
		}
	}

	if buf.Len() == 0 {
		return nil, fmt.Errorf("[tts] edge-tts: 未收到音频数据")
	}
	return buf.Bytes(), nil
}
