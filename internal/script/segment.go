package script

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// 单次合成的默认字数上限（按字符计）。
const (
	DefaultDualLimit   = 220
	DefaultSingleLimit = 120
)

var (
	sentenceEnders = []rune{'。', '．', '！', '？', '.', '!', '?'}
	clauseBreakers = []rune{'，', ',', '；', ';', '、'}

	// 依次尝试的切分层级，都失败时按字数硬切
	splitTiers = [][]rune{sentenceEnders, clauseBreakers}
)

// Split 将一段文本切分为不超过 limit 个字符的片段。
// 先按段落，超长段落按句末标点，超长句子按逗号等次级标点，仍超长时按字数硬切；
// 切出的小片段按顺序贪心合并，尽量让短句共用一次合成调用。
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultDualLimit
	}

	var chunks []string
	for _, para := range strings.Split(normalizeNewlines(text), "\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		chunks = append(chunks, pack(pieces(para, limit, 0), limit)...)
	}
	return chunks
}

// pieces 递归切分，返回的每个片段都不超过 limit 个字符。
func pieces(text string, limit, tier int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	if tier >= len(splitTiers) {
		return hardCut(text, limit)
	}
	var out []string
	for _, p := range splitAfter(text, splitTiers[tier]) {
		out = append(out, pieces(p, limit, tier+1)...)
	}
	return out
}

// splitAfter 在标点之后切开，连续的标点归属前一个分句。
func splitAfter(text string, breaks []rune) []string {
	var out []string
	start := 0
	prevBreak := false
	for i, r := range text {
		isBreak := slices.Contains(breaks, r)
		if !isBreak && prevBreak {
			out = append(out, text[start:i])
			start = i
		}
		prevBreak = isBreak
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func hardCut(text string, limit int) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > limit {
		out = append(out, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// pack 按顺序贪心合并片段，每段不超过 limit 个字符。
func pack(parts []string, limit int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentLen = 0
	}

	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		n := utf8.RuneCountInString(p)
		// 追加后超限，先刷出当前段
		if currentLen > 0 && currentLen+n > limit {
			flush()
		}
		current.WriteString(p)
		currentLen += n
	}
	flush()
	return chunks
}
