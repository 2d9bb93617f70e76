// Package script 负责把播客脚本解析为行、切分为可合成的片段并清洗文本。
package script

import (
	"regexp"
	"strings"
)

// Role 是说话人标记。
type Role int

const (
	// RoleNone 表示未标记说话人。
	RoleNone Role = iota
	// RoleA 主播 A。
	RoleA
	// RoleB 主播 B。
	RoleB
)

func (r Role) String() string {
	switch r {
	case RoleA:
		return "A"
	case RoleB:
		return "B"
	default:
		return "-"
	}
}

// Line 是脚本中的一行（一个发言轮次）。
type Line struct {
	Text string
	Role Role
}

// Script 是按播放顺序排列的行。
type Script []Line

// Segment 是一次合成调用的文本单元。
type Segment struct {
	Text  string
	Index int // 在整个脚本中的顺序号，从 0 开始
	Line  int // 所属行的序号
	Role  Role
}

var (
	// 形如 "A:"、"B："、"主播A："、"**主播B**:" 的说话人前缀
	rolePrefix = regexp.MustCompile(`^(?:主播)?([ABab])\s*[:：]\s*`)
	// 行首的 markdown 标记
	markdownPrefix = regexp.MustCompile(`^[*#>\-\s]+`)
)

// Parse 按行解析脚本，识别说话人前缀，丢弃空行。
func Parse(text string) Script {
	var s Script
	for _, raw := range strings.Split(normalizeNewlines(text), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		line = markdownPrefix.ReplaceAllString(line, "")
		line = strings.ReplaceAll(line, "**", "")

		role := RoleNone
		if m := rolePrefix.FindStringSubmatch(line); m != nil {
			if strings.EqualFold(m[1], "A") {
				role = RoleA
			} else {
				role = RoleB
			}
			line = line[len(m[0]):]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s = append(s, Line{Text: line, Role: role})
	}
	return s
}

// Text 把脚本还原为每行一句的纯文本（不含说话人前缀）。
func (s Script) Text() string {
	lines := make([]string, len(s))
	for i, l := range s {
		lines[i] = l.Text
	}
	return strings.Join(lines, "\n")
}

// Segments 对每一行执行分段，保留行的说话人标记，并分配全局顺序号。
func Segments(s Script, limit int) []Segment {
	var out []Segment
	for i, line := range s {
		for _, chunk := range Split(line.Text, limit) {
			out = append(out, Segment{Text: chunk, Index: len(out), Line: i, Role: line.Role})
		}
	}
	return out
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
