package pipeline

import (
	"sync"

	"go.uber.org/zap"
)

// Stage 表示一次运行所处的阶段。
type Stage int

const (
	// StageIdle 已创建，尚未开始。
	StageIdle Stage = iota
	// StageSegmenting 正在解析脚本并分段。
	StageSegmenting
	// StageSynthesizing 正在逐段合成语音。
	StageSynthesizing
	// StageAssembling 正在拼接正文。
	StageAssembling
	// StageComposingIntro 正在生成片头。
	StageComposingIntro
	// StageExporting 正在导出音频和文稿。
	StageExporting
	// StageDone 运行成功结束。
	StageDone
	// StageFailed 运行因致命错误中止。
	StageFailed
)

var stageNames = [...]string{
	"Idle",
	"Segmenting",
	"Synthesizing",
	"Assembling",
	"ComposingIntro",
	"Exporting",
	"Done",
	"Failed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "Unknown"
}

// Terminal 判断是否为终止阶段。
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// StateMachine 管理线程安全的阶段转换。
type StateMachine struct {
	mu       sync.RWMutex
	current  Stage
	log      *zap.SugaredLogger
	onChange func(from, to Stage)
}

// NewStateMachine 创建一个初始阶段为 Idle 的状态机。
func NewStateMachine(log *zap.SugaredLogger) *StateMachine {
	return &StateMachine{current: StageIdle, log: log}
}

// SetOnChange 注册阶段变化时的回调函数。
func (sm *StateMachine) SetOnChange(fn func(from, to Stage)) {
	sm.mu.Lock()
	sm.onChange = fn
	sm.mu.Unlock()
}

// Current 返回当前阶段。
func (sm *StateMachine) Current() Stage {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Transition 尝试切换阶段。只有合法的转换才会生效：
//
//	Idle → Segmenting → Synthesizing → Assembling → ComposingIntro → Exporting → Done
//
// 任何非终止阶段都可以转换到 Failed；终止阶段不再变化。
func (sm *StateMachine) Transition(to Stage) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !validTransition(sm.current, to) {
		sm.log.Warnf("[state] 非法转换 %s → %s", sm.current, to)
		return false
	}

	from := sm.current
	sm.current = to
	sm.log.Debugf("[state] %s → %s", from, to)

	if sm.onChange != nil {
		sm.onChange(from, to)
	}
	return true
}

// Fail 把运行标记为失败；已终止时不做任何事。
func (sm *StateMachine) Fail() {
	sm.Transition(StageFailed)
}

// validTransition 检查阶段转换是否合法。
func validTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	return to == from+1
}
