package cli

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/stackpack/pkg/observability"
)

func update(t *testing.T, m ProgressModel, msgs ...tea.Msg) ProgressModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(ProgressModel)
	}
	return m
}

func TestProgressModelPacks(t *testing.T) {
	m := update(t, NewProgressModel(nil),
		packCheckedMsg{pack: "markup", applicable: false},
		packCheckedMsg{pack: "style", applicable: true},
		packBuiltMsg{pack: "style", duration: 120 * time.Millisecond},
	)

	if len(m.Packs) != 2 {
		t.Fatalf("got %d pack rows, want 2", len(m.Packs))
	}
	if m.Packs[0].state != packSkipped {
		t.Errorf("markup state = %v, want skipped", m.Packs[0].state)
	}
	if m.Packs[1].state != packReady {
		t.Errorf("style state = %v, want ready", m.Packs[1].state)
	}

	view := m.View()
	for _, want := range []string{"markup", "not applicable", "style", "applied", "120ms"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q:\n%s", want, view)
		}
	}
}

func TestProgressModelInstalls(t *testing.T) {
	m := update(t, NewProgressModel(nil),
		provisionQueuedMsg{op: observability.OpUse, name: "sass-loader", version: "7.1.0"},
		provisionQueuedMsg{op: observability.OpUse, name: "css-loader", version: "2.1.1"},
		provisionQueuedMsg{op: observability.OpLocate, name: "ts-loader"},
		provisionStartMsg{op: observability.OpUse, name: "sass-loader", version: "7.1.0"},
	)

	if len(m.Installs) != 2 {
		t.Fatalf("locate requests should not be listed, got %d rows", len(m.Installs))
	}
	view := m.View()
	if !strings.Contains(view, "installing sass-loader@7.1.0") {
		t.Errorf("running install missing:\n%s", view)
	}
	if !strings.Contains(view, "queued css-loader@2.1.1") {
		t.Errorf("queued install missing:\n%s", view)
	}

	m = update(t, m,
		provisionDoneMsg{op: observability.OpUse, name: "sass-loader", version: "7.1.0", installed: true, duration: 2 * time.Second},
		provisionDoneMsg{op: observability.OpUse, name: "css-loader", version: "2.1.1", err: errors.New("exit status 1")},
	)
	if !m.Installs[0].done || m.Installs[0].running {
		t.Errorf("sass-loader row = %+v, want done", m.Installs[0])
	}
	if !m.Installs[1].failed {
		t.Errorf("css-loader row = %+v, want failed", m.Installs[1])
	}
}

func TestProgressModelQuitsWhenDone(t *testing.T) {
	m := NewProgressModel(nil)
	next, cmd := m.Update(composeDoneMsg{err: errors.New("boom")})
	m = next.(ProgressModel)

	if !m.Done || m.Err == nil {
		t.Errorf("model should record completion, got done=%v err=%v", m.Done, m.Err)
	}
	if cmd == nil {
		t.Fatal("completion should quit the program")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("completion command should be tea.Quit")
	}

	if _, cmd := m.Update(tickMsg(time.Now())); cmd != nil {
		t.Error("a finished model should stop ticking")
	}
}

func TestProgressModelCtrlCCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewProgressModel(cancel)
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	if ctx.Err() == nil {
		t.Error("ctrl+c should cancel the run")
	}
}

func TestTeaHooksForwardEvents(t *testing.T) {
	var got []tea.Msg
	h := &teaHooks{send: func(msg tea.Msg) { got = append(got, msg) }}
	ctx := context.Background()

	h.OnPackChecked(ctx, "vue", false, nil)
	h.OnProvisionQueued(ctx, observability.OpUse, "vue-loader", "15.7.0", 1)
	h.OnProvisionStart(ctx, observability.OpUse, "vue-loader", "15.7.0")
	h.OnProvisionComplete(ctx, observability.OpUse, "vue-loader", "15.7.0", true, time.Second, nil)
	h.OnPackBuilt(ctx, "vue", time.Second, nil)
	h.OnComposeComplete(ctx, []string{"base"}, time.Second, nil)

	if len(got) != 5 {
		t.Fatalf("got %d messages, want 5", len(got))
	}
	if msg, ok := got[0].(packCheckedMsg); !ok || msg.pack != "vue" {
		t.Errorf("first message = %#v", got[0])
	}
	if msg, ok := got[3].(provisionDoneMsg); !ok || !msg.installed {
		t.Errorf("fourth message = %#v", got[3])
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, ""},
		{45 * time.Millisecond, "45ms"},
		{1234 * time.Millisecond, "1.23s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
