package script

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Placeholder 是清洗后文本为空时使用的占位文本。
const Placeholder = "。"

var (
	citationRe = regexp.MustCompile(`\s*\[[0-9]+\]\s*`)
	urlRe      = regexp.MustCompile(`https?://\S+`)
	emailRe    = regexp.MustCompile(`\S+@\S+`)
	controlRe  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	spaceRe    = regexp.MustCompile(`\s+`)

	dashReplacer = strings.NewReplacer("——", "—", "…", "...")
)

// 激进模式下保留的标点
const keptPunct = "，。！？；、：“”‘’()[]-~.!,?;: "

// Sanitize 去除合成服务可能拒绝的内容：引用标记、链接、邮箱、控制字符和
// BMP 以外的字符（如 emoji），并规整破折号、省略号和空白。
// aggressive 为 true 时只保留字母、数字、汉字和常用标点。
// 结果不会为空；对结果再次调用 Sanitize 不会改变它。
func Sanitize(text string, aggressive bool) string {
	s := text
	for {
		next := sanitizeOnce(s, aggressive)
		if next == s {
			break
		}
		s = next
	}
	if s == "" {
		return Placeholder
	}
	return s
}

func sanitizeOnce(s string, aggressive bool) string {
	s = citationRe.ReplaceAllString(s, "")
	s = urlRe.ReplaceAllString(s, "")
	s = emailRe.ReplaceAllString(s, "")
	s = controlRe.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r > 0xFFFF || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
	s = dashReplacer.Replace(s)
	if aggressive {
		s = strings.Map(func(r rune) rune {
			if keepAggressive(r) {
				return r
			}
			if unicode.IsSpace(r) {
				return ' '
			}
			return -1
		}, s)
	}
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func keepAggressive(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= 0x4E00 && r <= 0x9FFF:
		return true
	}
	return strings.ContainsRune(keptPunct, r)
}
