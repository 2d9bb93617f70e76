package intro

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iabetor/podvoice/internal/audio"
	"github.com/iabetor/podvoice/internal/logger"
)

// ErrMissingBGM 表示找不到可用的背景音乐。不致命，片头会降级。
var ErrMissingBGM = errors.New("[intro] 找不到背景音乐")

// Library 是背景音乐目录。
type Library struct {
	Dir        string
	Default    string // 风格音乐缺失时使用的文件名
	FFmpegPath string // 解码 mp3 / wav 以外格式时使用
}

// Resolve 返回应使用的背景音乐路径：自定义文件优先，其次风格音乐，最后默认音乐。
func (l *Library) Resolve(spec Spec) (string, error) {
	if spec.CustomBGMPath != "" {
		if fileExists(spec.CustomBGMPath) {
			return spec.CustomBGMPath, nil
		}
		logger.Warnf("[intro] 自定义背景音乐 %s 不存在，改用风格音乐", spec.CustomBGMPath)
	}

	if name := spec.Style.Spec().BGMFile; name != "" {
		if p, ok := l.find(name); ok {
			return p, nil
		}
		logger.Warnf("[intro] 风格 %s 的背景音乐 %s 不存在，改用默认音乐", spec.Style, name)
	}

	if l.Default != "" {
		if p, ok := l.find(l.Default); ok {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: 目录 %s", ErrMissingBGM, l.Dir)
}

// 同名但扩展名不同的音乐文件也可使用
var assetExts = []string{".mp3", ".wav", ".m4a", ".ogg", ".flac"}

func (l *Library) find(name string) (string, bool) {
	p := filepath.Join(l.Dir, name)
	if fileExists(p) {
		return p, true
	}
	stem := strings.TrimSuffix(p, filepath.Ext(p))
	for _, ext := range assetExts {
		if alt := stem + ext; fileExists(alt) {
			return alt, true
		}
	}
	return "", false
}

// Load 解析并解码背景音乐。
func (l *Library) Load(ctx context.Context, spec Spec) (audio.Clip, string, error) {
	path, err := l.Resolve(spec)
	if err != nil {
		return audio.Clip{}, "", err
	}
	clip, err := audio.DecodeFile(ctx, path, l.FFmpegPath)
	if err != nil {
		return audio.Clip{}, path, fmt.Errorf("%w: %v", ErrMissingBGM, err)
	}
	if clip.Empty() {
		return audio.Clip{}, path, fmt.Errorf("%w: %s 没有音频数据", ErrMissingBGM, path)
	}
	return clip, path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
