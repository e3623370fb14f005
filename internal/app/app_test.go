package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lzhou/workdesk/internal/api"
	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/session"
	"github.com/lzhou/workdesk/internal/status"
	"github.com/lzhou/workdesk/internal/store"
	"github.com/lzhou/workdesk/internal/ui/board"
	"github.com/lzhou/workdesk/internal/ui/detail"
)

func newTestApp(todos ...model.Todo) Model {
	sess := session.New("u1", "Li Wei", "tok")
	s := store.NewTodoListStore(nil, nil)
	for _, t := range todos {
		s.Put(t)
	}
	client := api.NewClient("http://127.0.0.1:0", sess)
	cfg := &model.AppConfig{Display: model.DisplayConfig{RefreshIntervalSec: 60}}

	m := New(client, sess, s, cfg)
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return sized.(Model)
}

func press(t *testing.T, m Model, key string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestViewToggleBetweenBoardAndList(t *testing.T) {
	m := newTestApp(model.Todo{ID: "t1", Title: "x", Status: model.StatusOpen})

	if m.currentView != ViewBoard {
		t.Fatalf("initial view = %v, want board", m.currentView)
	}

	m, _ = press(t, m, "v")
	if m.currentView != ViewList {
		t.Errorf("view = %v, want list", m.currentView)
	}

	m, _ = press(t, m, "v")
	if m.currentView != ViewBoard {
		t.Errorf("view = %v, want board", m.currentView)
	}
}

func TestHelpTogglesAndRemembersPreviousView(t *testing.T) {
	m := newTestApp()

	m, _ = press(t, m, "v")
	m, _ = press(t, m, "?")
	if m.currentView != ViewHelp {
		t.Fatalf("view = %v, want help", m.currentView)
	}

	m, _ = press(t, m, "?")
	if m.currentView != ViewList {
		t.Errorf("view = %v, want list restored", m.currentView)
	}
}

func TestOpenDetailFromBoardUsesWorkingSetCopy(t *testing.T) {
	m := newTestApp(model.Todo{ID: "t1", Title: "Review budget", Status: model.StatusOpen})

	// A selection message routes to the detail view with the local copy
	// shown immediately.
	mdl, cmd := m.Update(board.OpenDetailMsg{TodoID: "t1"})
	m = mdl.(Model)
	if m.currentView != ViewDetail {
		t.Fatalf("view = %v, want detail", m.currentView)
	}
	if todo := m.detailView.Todo(); todo == nil || todo.ID != "t1" {
		t.Errorf("detail todo = %+v", todo)
	}
	if cmd == nil {
		t.Error("expected a background fetch command")
	}

	mdl, _ = m.Update(detail.BackMsg{})
	m = mdl.(Model)
	if m.currentView != ViewBoard {
		t.Errorf("view = %v, want board after back", m.currentView)
	}
}

func TestScopeToggleRefusedWithoutSubordinates(t *testing.T) {
	m := newTestApp()

	m, cmd := press(t, m, "w")
	if cmd == nil {
		t.Fatal("expected a subordinates lookup command")
	}

	// The server reports no direct reports; the scope stays closed.
	mdl, _ := m.Update(subordinatesMsg{})
	m = mdl.(Model)
	if m.todos.Scope() != store.ScopeMy {
		t.Errorf("scope = %q, want my", m.todos.Scope())
	}
	if !m.statusIsErr {
		t.Error("expected an error note")
	}
}

func TestScopeToggleAsksServerForSubordinates(t *testing.T) {
	var teamCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := api.TodoPage{Page: 1, Pages: 1}
		if r.URL.Path == "/todo/team" {
			teamCalls++
			page.Items = []model.Todo{{ID: "t9", Status: model.StatusPendingReview, AssigneeUserID: "u2"}}
			page.Subordinates = []model.User{{ID: "u2", DisplayName: "Chen"}}
		}
		raw, _ := json.Marshal(page)
		body, _ := json.Marshal(map[string]interface{}{
			"code": 0, "message": "ok", "data": json.RawMessage(raw),
		})
		w.Write(body)
	}))
	defer srv.Close()

	sess := session.New("u1", "Li Wei", "tok")
	client := api.NewClient(srv.URL, sess)
	s := store.NewTodoListStore(client, nil)
	cfg := &model.AppConfig{Display: model.DisplayConfig{RefreshIntervalSec: 60}}
	mdl, _ := New(client, sess, s, cfg).Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m := mdl.(Model)

	// The viewer's reports are unknown on a fresh session, so the
	// toggle must ask the server instead of refusing outright.
	m, cmd := press(t, m, "w")
	if cmd == nil {
		t.Fatal("expected a subordinates lookup command")
	}
	answer, ok := cmd().(subordinatesMsg)
	if !ok {
		t.Fatalf("msg = %T, want subordinatesMsg", cmd())
	}
	if teamCalls != 1 {
		t.Fatalf("team listing called %d times, want 1", teamCalls)
	}

	mdl, cmd = m.Update(answer)
	m = mdl.(Model)
	if m.todos.Scope() != store.ScopeTeam {
		t.Fatalf("scope = %q, want team", m.todos.Scope())
	}
	if !m.session.IsManagerOf("u2") {
		t.Error("subordinates not learned from the server answer")
	}
	if cmd == nil {
		t.Fatal("expected a team refresh once the scope opens")
	}
}

func TestDetailActionRefusedWhileBoardMoveInFlight(t *testing.T) {
	m := newTestApp(model.Todo{ID: "t1", Status: model.StatusOpen, AssigneeUserID: "u1", Title: "task"})

	// Drag t1 one column right; the commit command is held un-run so
	// the server round trip stays outstanding.
	space := tea.KeyMsg{Type: tea.KeySpace}
	mdl, _ := m.Update(space)
	m = mdl.(Model)
	mdl, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m = mdl.(Model)
	mdl, cmd := m.Update(space)
	m = mdl.(Model)
	if cmd == nil {
		t.Fatal("expected a commit command from the drop")
	}

	// A detail-view transition on the same todo must be refused until
	// the board's commit answers.
	mdl, actionCmd := m.Update(detail.ActionMsg{TodoID: "t1", Trigger: status.TriggerSubmit})
	m = mdl.(Model)
	if actionCmd == nil {
		t.Fatal("expected a refusal note")
	}
	note, ok := actionCmd().(statusNoteMsg)
	if !ok || !note.isErr || !strings.Contains(note.text, "waiting") {
		t.Fatalf("msg = %#v, want a busy note", actionCmd())
	}
	if _, busy := m.inflight["t1"]; !busy {
		t.Fatal("board drop should hold the shared transition gate")
	}
}

func TestGlobalKeysFollowKeymap(t *testing.T) {
	m := newTestApp()
	m.keys.ToggleView = key.NewBinding(key.WithKeys("b"))

	m, _ = press(t, m, "b")
	if m.currentView != ViewList {
		t.Errorf("view = %v, want list via the rebound key", m.currentView)
	}
	m, _ = press(t, m, "v")
	if m.currentView != ViewList {
		t.Errorf("view = %v, unbound key must not toggle", m.currentView)
	}
}

func TestStatusNoteShowsInStatusLine(t *testing.T) {
	m := newTestApp()

	mdl, _ := m.Update(statusNoteMsg{text: "start failed: boom", isErr: true})
	m = mdl.(Model)
	if got := m.statusLine(); got != "start failed: boom" {
		t.Errorf("statusLine = %q", got)
	}
}

func TestUnknownCommandReportsError(t *testing.T) {
	m := newTestApp()
	m.previousView = ViewBoard

	cmd := m.executeCommand("frobnicate")
	if cmd == nil {
		t.Fatal("expected a command")
	}
	note, ok := cmd().(statusNoteMsg)
	if !ok {
		t.Fatalf("msg = %T, want statusNoteMsg", cmd())
	}
	if !note.isErr || !strings.Contains(note.text, "frobnicate") {
		t.Errorf("note = %+v", note)
	}
}

func TestViewShowsHeaderAfterSizing(t *testing.T) {
	m := newTestApp(model.Todo{ID: "t1", Title: "x", Status: model.StatusOpen})

	out := m.View()
	if !strings.Contains(out, "Workdesk") {
		t.Error("header missing from rendered view")
	}
}
