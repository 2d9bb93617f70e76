package pipeline

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

// maxSlugLen 文件名中标题部分的最大长度。
const maxSlugLen = 48

var pinyinArgs = pinyin.NewArgs()

// Slug 把标题转为只含小写字母、数字和连字符的文件名片段，汉字转为拼音。
func Slug(title string) string {
	var parts []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			parts = append(parts, word.String())
			word.Reset()
		}
	}

	for _, r := range title {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			if py := pinyin.LazyPinyin(string(r), pinyinArgs); len(py) > 0 && py[0] != "" {
				parts = append(parts, py[0])
			}
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			word.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()

	slug := strings.Join(parts, "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		return "podcast"
	}
	return slug
}

// OutputName 返回不含扩展名的输出文件名：<slug>-<runID>。
func OutputName(title, runID string) string {
	return Slug(title) + "-" + runID
}
