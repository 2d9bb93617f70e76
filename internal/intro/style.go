// Package intro 生成片头：合成片头文案，按风格调整背景音乐时长并与语音混音，
// 最后拼接到正文之前。
package intro

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/iabetor/podvoice/internal/voice"
)

// Style 是片头风格。
type Style int

const (
	StyleGeneral Style = iota
	StyleTech
	StyleBusiness
	StyleLife
	StyleCulture
	StyleEntertainment
	StyleEducation
	StyleHealth
	StyleEmotion
	StyleGrowth
	StyleCustom
)

// Strategy 是背景音乐时长调整策略。
type Strategy int

const (
	// Loop 循环或裁剪。
	Loop Strategy = iota
	// Stretch 变速伸缩。
	Stretch
)

func (s Strategy) String() string {
	if s == Stretch {
		return "stretch"
	}
	return "loop"
}

// StyleSpec 描述一种风格的背景音乐、调整策略和片头文案。
// 双人模式下文案按顺序 A/B 交替朗读。
type StyleSpec struct {
	Code     string
	Name     string
	BGMFile  string
	Strategy Strategy
	Lines    []string
}

var styles = [...]StyleSpec{
	StyleGeneral: {Code: "general", Name: "通用", BGMFile: "bgm_general.mp3"},
	StyleTech: {Code: "tech", Name: "科技", BGMFile: "bgm_tech.mp3", Strategy: Stretch, Lines: []string{
		"这里解码未来", "探索创新", "从 AI 到元宇宙", "从芯片到量子计算",
		"我们关注科技如何重塑世界", "深入浅出，专业解析", "带你了解技术背后的故事", "欢迎来到科技前沿",
	}},
	StyleBusiness: {Code: "business", Name: "商业/财经", BGMFile: "bgm_business.mp3", Lines: []string{
		"这里洞察商业", "解读趋势", "从创业到上市", "从资本到战略",
		"我们关注商业如何改变格局", "数据说话，逻辑为王", "带你看懂市场背后的博弈", "欢迎来到财经视角",
	}},
	StyleLife: {Code: "life", Name: "生活/日常", BGMFile: "bgm_life.mp3", Lines: []string{
		"这里记录生活", "发现美好", "从清晨到日落", "从厨房到远方",
		"我们关注平凡中的不平凡", "轻松有趣，贴近真实", "带你感受生活的温度", "欢迎来到日常频道",
	}},
	StyleCulture: {Code: "culture", Name: "文化/历史", BGMFile: "bgm_culture.mp3", Strategy: Stretch, Lines: []string{
		"这里穿越时光", "品读经典", "从古老文明到近代风云", "从东方到西方",
		"我们关注历史如何照进现实", "厚重而不沉闷", "带你重温那些被遗忘的故事", "欢迎来到文化长廊",
	}},
	StyleEntertainment: {Code: "entertainment", Name: "娱乐/轻松", BGMFile: "bgm_entertainment.mp3", Lines: []string{
		"这里释放快乐", "拒绝无聊", "从热梗到冷知识", "从吐槽到段子",
		"我们关注一切有趣的事", "不正经但有营养", "带你笑着度过每一天", "欢迎来到快乐星球",
	}},
	StyleEducation: {Code: "education", Name: "教育/学习", BGMFile: "bgm_education.mp3", Lines: []string{
		"这里点亮思维", "激发潜能", "从方法到实践", "从入门到精通",
		"我们关注知识如何改变命运", "干货满满，拒绝空谈", "带你高效学习每一天", "欢迎来到成长课堂",
	}},
	StyleHealth: {Code: "health", Name: "健康/养生", BGMFile: "bgm_health.mp3", Lines: []string{
		"这里守护健康", "关爱身心", "从饮食到运动", "从睡眠到心态",
		"我们关注如何活得更好", "科学靠谱，拒绝焦虑", "带你找到适合自己的节奏", "欢迎来到健康生活",
	}},
	StyleEmotion: {Code: "emotion", Name: "情感/心理", BGMFile: "bgm_emotion.mp3", Lines: []string{
		"这里倾听内心", "理解情绪", "从亲密关系到自我成长", "从焦虑到释然",
		"我们关注心灵的每一次波动", "温暖而不说教", "带你与自己和解", "欢迎来到心灵角落",
	}},
	StyleGrowth: {Code: "growth", Name: "个人成长", BGMFile: "bgm_growth.mp3", Lines: []string{
		"这里见证蜕变", "突破自我", "从迷茫到清晰", "从平凡到卓越",
		"我们关注每一次成长的瞬间", "脚踏实地，仰望星空", "带你成为更好的自己", "欢迎来到成长之路",
	}},
	// 自定义风格没有自己的音乐和文案，分别由调用方和默认音乐提供
	StyleCustom: {Code: "custom", Name: "自定义"},
}

// 中文风格名称到风格的映射
var styleNames = map[string]Style{
	"科技": StyleTech,
	"商业": StyleBusiness, "财经": StyleBusiness,
	"生活": StyleLife, "日常": StyleLife,
	"文化": StyleCulture, "历史": StyleCulture,
	"娱乐": StyleEntertainment, "轻松": StyleEntertainment,
	"教育": StyleEducation, "学习": StyleEducation,
	"健康": StyleHealth, "养生": StyleHealth,
	"情感": StyleEmotion, "心理": StyleEmotion,
	"成长": StyleGrowth, "个人成长": StyleGrowth,
	"通用": StyleGeneral,
	"自定义": StyleCustom,
}

// ParseStyle 解析风格代码或中文名称，未知风格返回 StyleGeneral。
func ParseStyle(s string) Style {
	s = strings.TrimSpace(s)
	for i, spec := range styles {
		if strings.EqualFold(s, spec.Code) || s == spec.Name {
			return Style(i)
		}
	}
	if st, ok := styleNames[s]; ok {
		return st
	}
	return StyleGeneral
}

// Spec 返回风格的描述。
func (s Style) Spec() StyleSpec {
	if s < 0 || int(s) >= len(styles) {
		return styles[StyleGeneral]
	}
	return styles[s]
}

func (s Style) String() string { return s.Spec().Code }

// Styles 返回全部风格，顺序与界面下拉框一致。
func Styles() []StyleSpec {
	return append([]StyleSpec(nil), styles[:]...)
}

// Spec 是一次运行的片头设置。
type Spec struct {
	Style Style
	// CustomLines 非空时替代风格自带的文案。
	CustomLines []string
	// CustomBGMPath 非空时优先使用该音乐文件，并强制使用循环策略。
	CustomBGMPath string
}

// Lines 返回要朗读的片头文案；单人模式下合并为一句。
// 返回空表示纯音乐片头。
func (s Spec) Lines(mode voice.HostMode) []string {
	lines := s.CustomLines
	if len(lines) == 0 {
		lines = s.Style.Spec().Lines
	}
	if len(lines) == 0 {
		return nil
	}
	if mode == voice.Single {
		return []string{strings.Join(lines, " ")}
	}
	return append([]string(nil), lines...)
}

// Strategy 返回背景音乐时长调整策略。
func (s Spec) Strategy() Strategy {
	if s.CustomBGMPath != "" {
		return Loop
	}
	return s.Style.Spec().Strategy
}

// MaxCustomChars 是自定义片头文案的字数上限（不计空白）。
const MaxCustomChars = 200

var (
	// ErrEmptyCustomScript 自定义文案为空。
	ErrEmptyCustomScript = errors.New("[intro] 请输入片头文案")
	// ErrCustomScriptTooLong 自定义文案超出字数上限。
	ErrCustomScriptTooLong = errors.New("[intro] 片头文案超出字数限制")
)

// ParseCustomScript 校验并拆分自定义片头文案，每行一句。
func ParseCustomScript(text string) ([]string, error) {
	count := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	if count == 0 {
		return nil, ErrEmptyCustomScript
	}
	if count > MaxCustomChars {
		return nil, fmt.Errorf("%w: 当前 %d 字，上限 %d 字", ErrCustomScriptTooLong, count, MaxCustomChars)
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
