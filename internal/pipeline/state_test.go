package pipeline

import (
	"testing"

	"go.uber.org/zap"
)

func newTestMachine() *StateMachine {
	return NewStateMachine(zap.NewNop().Sugar())
}

// advanceTo 通过合法转换把状态机推进到目标阶段。
func advanceTo(t *testing.T, sm *StateMachine, target Stage) {
	t.Helper()
	if target == StageFailed {
		if !sm.Transition(StageFailed) {
			t.Fatalf("failed to reach Failed")
		}
		return
	}
	for sm.Current() != target {
		if !sm.Transition(sm.Current() + 1) {
			t.Fatalf("failed to advance from %s towards %s", sm.Current(), target)
		}
	}
}

func TestNewStateMachine_InitialStageIsIdle(t *testing.T) {
	sm := newTestMachine()
	if sm.Current() != StageIdle {
		t.Fatalf("expected initial stage Idle, got %s", sm.Current())
	}
}

func TestStateMachine_ValidTransitions(t *testing.T) {
	tests := []struct {
		from, to Stage
	}{
		{StageIdle, StageSegmenting},
		{StageSegmenting, StageSynthesizing},
		{StageSynthesizing, StageAssembling},
		{StageAssembling, StageComposingIntro},
		{StageComposingIntro, StageExporting},
		{StageExporting, StageDone},
	}

	for _, tt := range tests {
		sm := newTestMachine()
		advanceTo(t, sm, tt.from)

		if !sm.Transition(tt.to) {
			t.Errorf("transition %s → %s should be valid", tt.from, tt.to)
		}
		if sm.Current() != tt.to {
			t.Errorf("expected stage %s, got %s", tt.to, sm.Current())
		}
	}
}

func TestStateMachine_InvalidTransitions(t *testing.T) {
	tests := []struct {
		from, to Stage
	}{
		{StageIdle, StageSynthesizing},
		{StageIdle, StageDone},
		{StageSegmenting, StageSegmenting},
		{StageSynthesizing, StageSegmenting},
		{StageAssembling, StageExporting},
		{StageExporting, StageIdle},
		{StageDone, StageFailed},
		{StageFailed, StageIdle},
		{StageFailed, StageSegmenting},
	}

	for _, tt := range tests {
		sm := newTestMachine()
		advanceTo(t, sm, tt.from)

		if sm.Transition(tt.to) {
			t.Errorf("transition %s → %s should be invalid", tt.from, tt.to)
		}
		if sm.Current() != tt.from {
			t.Errorf("stage should remain %s after invalid transition, got %s", tt.from, sm.Current())
		}
	}
}

func TestStateMachine_AnyActiveStageCanFail(t *testing.T) {
	for _, s := range []Stage{StageIdle, StageSegmenting, StageSynthesizing, StageAssembling, StageComposingIntro, StageExporting} {
		sm := newTestMachine()
		advanceTo(t, sm, s)
		sm.Fail()
		if sm.Current() != StageFailed {
			t.Errorf("Fail from %s: got %s", s, sm.Current())
		}
	}
}

func TestStateMachine_FailAfterDoneIsNoop(t *testing.T) {
	sm := newTestMachine()
	advanceTo(t, sm, StageDone)
	sm.Fail()
	if sm.Current() != StageDone {
		t.Errorf("expected Done, got %s", sm.Current())
	}
}

func TestStateMachine_OnChangeCallback(t *testing.T) {
	sm := newTestMachine()

	var calls []struct{ from, to Stage }
	sm.SetOnChange(func(from, to Stage) {
		calls = append(calls, struct{ from, to Stage }{from, to})
	})

	sm.Transition(StageSegmenting)
	sm.Transition(StageDone) // 非法，不触发回调
	sm.Transition(StageSynthesizing)

	if len(calls) != 2 {
		t.Fatalf("expected 2 callbacks, got %d", len(calls))
	}
	if calls[1].from != StageSegmenting || calls[1].to != StageSynthesizing {
		t.Errorf("unexpected second callback: %v", calls[1])
	}
}

func TestStage_String(t *testing.T) {
	if StageComposingIntro.String() != "ComposingIntro" || Stage(42).String() != "Unknown" {
		t.Error("unexpected stage names")
	}
}
