package tts

import (
	"errors"
	"testing"

	tcerr "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"

	"github.com/iabetor/podvoice/internal/config"
)

func TestClassifyTencentError(t *testing.T) {
	invalid := tcerr.NewTencentCloudSDKError("InvalidParameterValue.InvalidText", "bad text", "req-1")
	if err := classifyTencentError(invalid); !errors.Is(err, ErrInvalidText) {
		t.Errorf("InvalidText code should map to ErrInvalidText, got %v", err)
	}
	other := tcerr.NewTencentCloudSDKError("AuthFailure.SignatureFailure", "bad sig", "req-2")
	if err := classifyTencentError(other); errors.Is(err, ErrInvalidText) {
		t.Errorf("auth failure should not be retryable: %v", err)
	}
	if err := classifyTencentError(errors.New("timeout")); errors.Is(err, ErrInvalidText) {
		t.Errorf("plain error should not be retryable: %v", err)
	}
}

func TestTencentVoiceType(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"601007", 601007},
		{" 501004 ", 501004},
		{"", defaultTencentVoice},
		{"zh-CN-XiaoxiaoNeural", defaultTencentVoice},
		{"-3", defaultTencentVoice},
	}
	for _, tt := range tests {
		if got := tencentVoiceType(tt.in); got != tt.want {
			t.Errorf("tencentVoiceType(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewTencentProvider_RequiresSecrets(t *testing.T) {
	if _, err := NewTencentProvider(config.TencentConfig{SecretID: "id"}); err == nil {
		t.Fatal("expected error without secret key")
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.TTSConfig{Provider: "edge"})
	if err != nil || p.Name() != "edge" {
		t.Fatalf("edge: got %v, %v", p, err)
	}
	p, err = NewProvider(config.TTSConfig{Provider: "piper", Piper: config.PiperConfig{ModelDir: "/models"}})
	if err != nil || p.Name() != "piper" {
		t.Fatalf("piper: got %v, %v", p, err)
	}
	if got := p.(*PiperProvider).modelPath("zh_CN-huayan-medium"); got != "/models/zh_CN-huayan-medium.onnx" {
		t.Errorf("modelPath = %q", got)
	}
	if _, err := NewProvider(config.TTSConfig{Provider: "nope"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
