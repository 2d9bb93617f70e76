package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	tcerr "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/iabetor/podvoice/internal/config"
	"github.com/iabetor/podvoice/internal/logger"
)

// defaultTencentVoice 默认音色：千嶂。
const defaultTencentVoice int64 = 501006

// TencentProvider 使用腾讯云 TTS 实现语音合成。
type TencentProvider struct {
	client     *tts.Client
	codec      string
	sampleRate uint64
	volume     float64
}

// NewTencentProvider 创建腾讯云 TTS 后端。
func NewTencentProvider(cfg config.TencentConfig) (*TencentProvider, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("[tts] 腾讯云 TTS 需要 SecretID 和 SecretKey")
	}
	if cfg.Region == "" {
		cfg.Region = "ap-beijing"
	}
	if cfg.Codec == "" {
		cfg.Codec = "mp3"
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tts.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建腾讯云 TTS 客户端失败: %w", err)
	}

	logger.Infof("[tts] 腾讯云 TTS 已初始化 (region=%s, codec=%s)", cfg.Region, cfg.Codec)

	return &TencentProvider{
		client:     client,
		codec:      cfg.Codec,
		sampleRate: cfg.SampleRate,
		volume:     cfg.Volume,
	}, nil
}

// Name 实现 Provider。
func (p *TencentProvider) Name() string { return "tencent" }

// Synthesize 调用 TextToVoice，返回解码前的音频数据。
func (p *TencentProvider) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	codec := req.Codec
	if codec == "" {
		codec = p.codec
	}

	request := tts.NewTextToVoiceRequest()
	request.Text = common.StringPtr(req.Text)
	request.SessionId = common.StringPtr(uuid.NewString())
	request.VoiceType = common.Int64Ptr(tencentVoiceType(req.Voice))
	request.Speed = common.Float64Ptr(req.Speed)
	request.Volume = common.Float64Ptr(p.volume)
	request.PrimaryLanguage = common.Int64Ptr(1)
	request.ModelType = common.Int64Ptr(1)
	request.Codec = common.StringPtr(codec)
	if p.sampleRate > 0 {
		request.SampleRate = common.Uint64Ptr(p.sampleRate)
	}

	logger.Debugf("[tts] 腾讯云 TTS: 正在合成 %d 个字符，音色=%s", len([]rune(req.Text)), req.Voice)

	response, err := p.client.TextToVoiceWithContext(ctx, request)
	if err != nil {
		return nil, classifyTencentError(err)
	}
	if response.Response == nil || response.Response.Audio == nil {
		return nil, fmt.Errorf("[tts] 腾讯云 TTS: 未返回音频数据")
	}

	data, err := base64.StdEncoding.DecodeString(*response.Response.Audio)
	if err != nil {
		return nil, fmt.Errorf("[tts] Base64 解码失败: %w", err)
	}
	return data, nil
}

// tencentVoiceType 把音色编号转为 VoiceType，无法解析时使用默认音色。
func tencentVoiceType(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n <= 0 {
		return defaultTencentVoice
	}
	return n
}

// classifyTencentError 把错误码含 InvalidText 的 SDK 错误归为 ErrInvalidText。
func classifyTencentError(err error) error {
	var sdkErr *tcerr.TencentCloudSDKError
	if errors.As(err, &sdkErr) && strings.Contains(sdkErr.GetCode(), "InvalidText") {
		return fmt.Errorf("%w: %s", ErrInvalidText, sdkErr.GetMessage())
	}
	return fmt.Errorf("[tts] 腾讯云 TTS 合成失败: %w", err)
}
