package cli

import (
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m PickModel, msgs ...tea.Msg) (PickModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(PickModel)
	}
	return m, cmd
}

func TestPickModel(t *testing.T) {
	entries := []string{"CD3E", "CD8A", "CD8B", "MS4A1"}

	tests := []struct {
		name       string
		msgs       []tea.Msg
		want       []string
		cancelled  bool
		wantQuery  string
		wantQuit   bool
		wantCursor int
	}{
		{
			name:     "enter picks the current entry",
			msgs:     []tea.Msg{tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter}},
			want:     []string{"CD8A"},
			wantQuit: true,
		},
		{
			name: "filter and toggle",
			msgs: []tea.Msg{
				keys("cd8"),
				tea.KeyMsg{Type: tea.KeySpace},
				tea.KeyMsg{Type: tea.KeyDown},
				tea.KeyMsg{Type: tea.KeySpace},
				tea.KeyMsg{Type: tea.KeyEnter},
			},
			want:       []string{"CD8A", "CD8B"},
			wantQuery:  "cd8",
			wantQuit:   true,
			wantCursor: 1,
		},
		{
			name: "toggle twice removes",
			msgs: []tea.Msg{
				tea.KeyMsg{Type: tea.KeySpace},
				tea.KeyMsg{Type: tea.KeySpace},
				tea.KeyMsg{Type: tea.KeyDown},
				tea.KeyMsg{Type: tea.KeySpace},
			},
			want:       []string{"CD8A"},
			wantCursor: 1,
		},
		{
			name:      "backspace widens the filter",
			msgs:      []tea.Msg{keys("ms4x"), tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyEnter}},
			want:      []string{"MS4A1"},
			wantQuery: "ms4",
			wantQuit:  true,
		},
		{
			name:      "no match picks nothing",
			msgs:      []tea.Msg{keys("zzz"), tea.KeyMsg{Type: tea.KeyEnter}},
			want:      []string{},
			wantQuery: "zzz",
			wantQuit:  true,
		},
		{
			name:      "escape cancels",
			msgs:      []tea.Msg{tea.KeyMsg{Type: tea.KeySpace}, tea.KeyMsg{Type: tea.KeyEsc}},
			want:      []string{"CD3E"},
			cancelled: true,
			wantQuit:  true,
		},
		{
			name: "cursor stays in range",
			msgs: []tea.Msg{
				tea.KeyMsg{Type: tea.KeyUp},
				tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown},
				tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown},
				tea.KeyMsg{Type: tea.KeyDown},
			},
			want:       []string{},
			wantCursor: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := press(NewPickModel(entries), tt.msgs...)
			got := m.Selected()
			if got == nil {
				got = []string{}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Selected() = %v, want %v", got, tt.want)
			}
			if m.Cancelled != tt.cancelled {
				t.Errorf("Cancelled = %v, want %v", m.Cancelled, tt.cancelled)
			}
			if m.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", m.Query, tt.wantQuery)
			}
			if m.Cursor != tt.wantCursor {
				t.Errorf("Cursor = %d, want %d", m.Cursor, tt.wantCursor)
			}
			if (cmd != nil) != tt.wantQuit {
				t.Errorf("quit command = %v, want %v", cmd != nil, tt.wantQuit)
			}
		})
	}
}

func TestPickModelScrolls(t *testing.T) {
	entries := make([]string, 30)
	for i := range entries {
		entries[i] = "G" + strings.Repeat("x", i)
	}
	m, _ := press(NewPickModel(entries), tea.WindowSizeMsg{Height: 11})
	if m.Height != 5 {
		t.Fatalf("Height = %d, want 5", m.Height)
	}
	for range 7 {
		m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	}
	if m.Offset != 3 {
		t.Errorf("Offset = %d, want 3", m.Offset)
	}
	view := m.View()
	if !strings.Contains(view, entries[7]) {
		t.Errorf("view does not follow the cursor:\n%s", view)
	}
	if !strings.Contains(view, "[8/30]") {
		t.Errorf("view lacks the position:\n%s", view)
	}
}

func TestPickModelIsolated(t *testing.T) {
	m := NewPickModel([]string{"A", "B"})
	a, _ := press(m, tea.KeyMsg{Type: tea.KeySpace})
	b, _ := press(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeySpace})
	if !reflect.DeepEqual(a.Selected(), []string{"A"}) || !reflect.DeepEqual(b.Selected(), []string{"B"}) {
		t.Errorf("models share state: %v, %v", a.Selected(), b.Selected())
	}
}
