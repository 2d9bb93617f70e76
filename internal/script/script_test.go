package script

import "testing"

func TestParse_RolePrefixes(t *testing.T) {
	tests := []struct {
		input string
		text  string
		role  Role
	}{
		{"A: 大家好", "大家好", RoleA},
		{"B：欢迎收听", "欢迎收听", RoleB},
		{"主播A：今天聊聊咖啡", "今天聊聊咖啡", RoleA},
		{"**主播B**：好呀", "好呀", RoleB},
		{"## 第一部分", "第一部分", RoleNone},
		{"没有标记的一行", "没有标记的一行", RoleNone},
		{"Apple: 不是说话人", "Apple: 不是说话人", RoleNone},
	}

	for _, tt := range tests {
		s := Parse(tt.input)
		if len(s) != 1 {
			t.Errorf("Parse(%q): expected 1 line, got %d", tt.input, len(s))
			continue
		}
		if s[0].Text != tt.text || s[0].Role != tt.role {
			t.Errorf("Parse(%q) = {%q, %s}, want {%q, %s}", tt.input, s[0].Text, s[0].Role, tt.text, tt.role)
		}
	}
}

func TestParse_DropsBlankLines(t *testing.T) {
	s := Parse("A: 第一句\n\n   \r\nB: 第二句\nA:\n")
	if len(s) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(s), s)
	}
	if s.Text() != "第一句\n第二句" {
		t.Errorf("Text() = %q", s.Text())
	}
}

func TestSegments_CarriesRoleAndIndex(t *testing.T) {
	s := Parse("A: 你好，欢迎收听。\nB: 今天我们聊一个很长的话题。第二句话也在这里。")
	segs := Segments(s, 14)

	want := []struct {
		text string
		line int
		role Role
	}{
		{"你好，欢迎收听。", 0, RoleA},
		{"今天我们聊一个很长的话题。", 1, RoleB},
		{"第二句话也在这里。", 1, RoleB},
	}
	if len(segs) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(segs), segs)
	}
	for i, w := range want {
		if segs[i].Index != i || segs[i].Line != w.line || segs[i].Text != w.text || segs[i].Role != w.role {
			t.Errorf("segment %d = %+v, want {%q, %d, %d, %s}", i, segs[i], w.text, i, w.line, w.role)
		}
	}
}
