package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 podvoice 的顶层配置结构。
type Config struct {
	TTS      TTSConfig      `yaml:"tts"`
	Voice    VoiceConfig    `yaml:"voice"`
	Segment  SegmentConfig  `yaml:"segment"`
	Assemble AssembleConfig `yaml:"assemble"`
	Intro    IntroConfig    `yaml:"intro"`
	Audio    AudioConfig    `yaml:"audio"`
	Output   OutputConfig   `yaml:"output"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	History  HistoryConfig  `yaml:"history"`
	Voices   []VoiceEntry   `yaml:"voices"`
	Log      LogConfig      `yaml:"log"`
}

// TTSConfig 语音合成配置。
type TTSConfig struct {
	Provider string        `yaml:"provider"` // tencent、edge 或 piper
	QPS      float64       `yaml:"qps"`      // 所有并发任务共享的请求速率上限
	Burst    int           `yaml:"burst"`
	Fillers  []string      `yaml:"fillers"` // 文本被拒时的兜底短句
	Tencent  TencentConfig `yaml:"tencent"`
	Edge     EdgeConfig    `yaml:"edge"`
	Piper    PiperConfig   `yaml:"piper"`
	Cache    CacheConfig   `yaml:"cache"`
}

// CacheConfig 合成结果的本地缓存。MaxSizeMB 为 0 时禁用。
type CacheConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int64  `yaml:"max_size_mb"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID   string  `yaml:"secret_id"`
	SecretKey  string  `yaml:"secret_key"`
	Region     string  `yaml:"region"`
	Codec      string  `yaml:"codec"`
	SampleRate uint64  `yaml:"sample_rate"`
	Volume     float64 `yaml:"volume"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	// DefaultVoice 在音色编号为空时使用。
	DefaultVoice string `yaml:"default_voice"`
}

// PiperConfig 离线 piper 配置。音色编号为模型文件名（不含 .onnx），
// 在 ModelDir 下查找。
type PiperConfig struct {
	Binary   string `yaml:"binary"`
	ModelDir string `yaml:"model_dir"`
}

// VoiceConfig 主持人音色配置。
type VoiceConfig struct {
	VoiceA   string `yaml:"voice_a"`
	VoiceB   string `yaml:"voice_b"`
	Speed    int    `yaml:"speed"`     // -2..2
	HostMode string `yaml:"host_mode"` // single 或 dual
}

// SegmentConfig 文本分段长度上限（字符数）。
type SegmentConfig struct {
	DualLimit   int `yaml:"dual_limit"`
	SingleLimit int `yaml:"single_limit"`
}

// AssembleConfig 拼接参数。
type AssembleConfig struct {
	PauseMs      int `yaml:"pause_ms"`
	CrossfadeMs  int `yaml:"crossfade_ms"`
	IntroPauseMs int `yaml:"intro_pause_ms"`
}

// IntroConfig 片头配置。
type IntroConfig struct {
	Style      string `yaml:"style"`
	BGMDir     string `yaml:"bgm_dir"`
	DefaultBGM string `yaml:"default_bgm"`

	LeadInMs          int     `yaml:"lead_in_ms"`
	FadeInMs          int     `yaml:"fade_in_ms"`
	FadeOutMs         int     `yaml:"fade_out_ms"`
	GainDB            float64 `yaml:"gain_db"`
	LoopCrossfadeMs   int     `yaml:"loop_crossfade_ms"`
	SpliceCrossfadeMs int     `yaml:"splice_crossfade_ms"`

	// 无语音片头（纯音乐）及静态兜底使用的参数
	MusicOnlyMs     int     `yaml:"music_only_ms"`
	StaticFadeInMs  int     `yaml:"static_fade_in_ms"`
	StaticFadeOutMs int     `yaml:"static_fade_out_ms"`
	StaticGainDB    float64 `yaml:"static_gain_db"`
}

// AudioConfig 输出音频配置。
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	Format     string `yaml:"format"` // mp3 或 wav
	Bitrate    string `yaml:"bitrate"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// OutputConfig 输出目录配置。
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// PipelineConfig 批量运行配置。
type PipelineConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// MetricsConfig 指标配置。
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	// Textfile 非空时，运行结束后把指标写入该文件（node_exporter textfile 格式）。
	Textfile string `yaml:"textfile"`
}

// HistoryConfig 运行历史配置。
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"` // 为空时使用 ~/.podvoice/podvoice.db
}

// VoiceEntry 音色目录中的一项，用于生成试听样本。
type VoiceEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Lang string `yaml:"lang"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 内容并填充默认值。
func Parse(data []byte) (*Config, error) {
	// 展开环境变量，如 ${PODVOICE_TENCENT_SECRET_ID}
	expanded := os.Expand(string(data), os.Getenv)

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	setDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回只包含默认值的配置。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Validate 检查取值范围。
func (c *Config) Validate() error {
	switch c.TTS.Provider {
	case "tencent", "edge", "piper":
	default:
		return fmt.Errorf("未知的 TTS 提供方: %s", c.TTS.Provider)
	}
	switch c.Voice.HostMode {
	case "single", "dual":
	default:
		return fmt.Errorf("未知的主持人模式: %s", c.Voice.HostMode)
	}
	switch c.Audio.Format {
	case "mp3", "wav":
	default:
		return fmt.Errorf("不支持的输出格式: %s", c.Audio.Format)
	}
	if c.Voice.Speed < -2 || c.Voice.Speed > 2 {
		return fmt.Errorf("语速 %d 超出范围 [-2, 2]", c.Voice.Speed)
	}
	return nil
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.TTS.Provider == "" {
		cfg.TTS.Provider = "tencent"
	}
	if cfg.TTS.QPS == 0 {
		cfg.TTS.QPS = 10
	}
	if cfg.TTS.Piper.Binary == "" {
		cfg.TTS.Piper.Binary = "piper"
	}
	if cfg.TTS.Cache.Dir == "" {
		cfg.TTS.Cache.Dir = "~/.podvoice/tts_cache"
	}
	if cfg.TTS.Burst == 0 {
		cfg.TTS.Burst = 1
	}
	if len(cfg.TTS.Fillers) == 0 {
		cfg.TTS.Fillers = []string{"嗯，我们继续。", "好的，接着说。", "下面进入下一段。"}
	}
	if cfg.TTS.Tencent.Region == "" {
		cfg.TTS.Tencent.Region = "ap-beijing"
	}
	if cfg.TTS.Tencent.Codec == "" {
		cfg.TTS.Tencent.Codec = "mp3"
	}
	if cfg.TTS.Tencent.SampleRate == 0 {
		cfg.TTS.Tencent.SampleRate = 16000
	}
	if cfg.TTS.Tencent.Volume == 0 {
		cfg.TTS.Tencent.Volume = 1
	}
	if cfg.TTS.Edge.DefaultVoice == "" {
		cfg.TTS.Edge.DefaultVoice = "zh-CN-XiaoxiaoNeural"
	}

	if cfg.Voice.VoiceA == "" {
		cfg.Voice.VoiceA = "501006"
	}
	if cfg.Voice.VoiceB == "" {
		cfg.Voice.VoiceB = "601007"
	}
	if cfg.Voice.HostMode == "" {
		cfg.Voice.HostMode = "dual"
	}

	if cfg.Segment.DualLimit == 0 {
		cfg.Segment.DualLimit = 220
	}
	if cfg.Segment.SingleLimit == 0 {
		// 独白段落更长，单次请求留更多余量
		cfg.Segment.SingleLimit = 120
	}

	if cfg.Assemble.PauseMs == 0 {
		cfg.Assemble.PauseMs = 200
	}
	if cfg.Assemble.CrossfadeMs == 0 {
		cfg.Assemble.CrossfadeMs = 50
	}
	if cfg.Assemble.IntroPauseMs == 0 {
		cfg.Assemble.IntroPauseMs = 150
	}

	setIntroDefaults(&cfg.Intro)

	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = 44100
	}
	if cfg.Audio.Format == "" {
		cfg.Audio.Format = "mp3"
	}
	if cfg.Audio.Bitrate == "" {
		cfg.Audio.Bitrate = "192k"
	}
	if cfg.Audio.FFmpegPath == "" {
		cfg.Audio.FFmpegPath = "ffmpeg"
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "outputs"
	}
	cfg.Output.Dir = expandHome(cfg.Output.Dir)
	cfg.Intro.BGMDir = expandHome(cfg.Intro.BGMDir)
	cfg.TTS.Piper.ModelDir = expandHome(cfg.TTS.Piper.ModelDir)
	cfg.TTS.Cache.Dir = expandHome(cfg.TTS.Cache.Dir)
	cfg.History.DBPath = expandHome(cfg.History.DBPath)

	if cfg.Pipeline.MaxConcurrent == 0 {
		cfg.Pipeline.MaxConcurrent = 2
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "podvoice"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// 去除密钥两端可能的空白（环境变量展开后常见）
	cfg.TTS.Tencent.SecretID = strings.TrimSpace(cfg.TTS.Tencent.SecretID)
	cfg.TTS.Tencent.SecretKey = strings.TrimSpace(cfg.TTS.Tencent.SecretKey)
}

func setIntroDefaults(ic *IntroConfig) {
	if ic.Style == "" {
		ic.Style = "general"
	}
	if ic.BGMDir == "" {
		ic.BGMDir = "assets/bgm"
	}
	if ic.DefaultBGM == "" {
		ic.DefaultBGM = "bgm_general.mp3"
	}
	if ic.LeadInMs == 0 {
		ic.LeadInMs = 500
	}
	if ic.FadeInMs == 0 {
		ic.FadeInMs = 300
	}
	if ic.FadeOutMs == 0 {
		ic.FadeOutMs = 500
	}
	if ic.GainDB == 0 {
		ic.GainDB = -8
	}
	if ic.LoopCrossfadeMs == 0 {
		ic.LoopCrossfadeMs = 150
	}
	if ic.SpliceCrossfadeMs == 0 {
		ic.SpliceCrossfadeMs = 200
	}
	if ic.MusicOnlyMs == 0 {
		ic.MusicOnlyMs = 5000
	}
	if ic.StaticFadeInMs == 0 {
		ic.StaticFadeInMs = 100
	}
	if ic.StaticFadeOutMs == 0 {
		ic.StaticFadeOutMs = 400
	}
	if ic.StaticGainDB == 0 {
		ic.StaticGainDB = -6
	}
}

// expandHome 展开 ~/ 前缀，Go 不会自动处理。
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return path
	}
	return home + path[1:]
}
