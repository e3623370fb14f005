package tasklist

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lzhou/workdesk/internal/keys"
	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/store"
)

func newTestModel(todos ...model.Todo) Model {
	s := store.NewTodoListStore(nil, nil)
	for _, t := range todos {
		s.Put(t)
	}
	return New(s, keys.DefaultKeyMap(), 80, 24)
}

func keyMsg(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	if s == "tab" {
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLoadTodosShowsWorkingSet(t *testing.T) {
	m := newTestModel(
		model.Todo{ID: "t1", Title: "Review budget", Status: model.StatusOpen},
		model.Todo{ID: "t2", Title: "Ship release", Status: model.StatusInProgress},
	)

	msg := m.LoadTodos()()
	loaded, ok := msg.(TodosLoadedMsg)
	if !ok {
		t.Fatalf("msg = %T, want TodosLoadedMsg", msg)
	}
	if len(loaded.Todos) != 2 {
		t.Fatalf("len = %d, want 2", len(loaded.Todos))
	}

	m, _ = m.Update(loaded)
	if n := len(m.list.Items()); n != 2 {
		t.Errorf("items = %d, want 2", n)
	}
}

func TestSearchNarrowsItems(t *testing.T) {
	m := newTestModel(
		model.Todo{ID: "t1", Title: "Review budget", Status: model.StatusOpen},
		model.Todo{ID: "t2", Title: "Ship release", Status: model.StatusOpen},
		model.Todo{ID: "t3", Title: "Plan offsite", Description: "budget owners only", Status: model.StatusOpen},
	)

	m, _ = m.Update(keyMsg("/"))
	if !m.Searching() {
		t.Fatal("expected search mode after /")
	}

	for _, r := range "budget" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, cmd := m.Update(keyMsg("enter"))
	if m.Searching() {
		t.Fatal("enter should leave search mode")
	}

	loaded := cmd().(TodosLoadedMsg)
	m, _ = m.Update(loaded)

	// Title and description both match.
	if n := len(m.list.Items()); n != 2 {
		t.Errorf("items = %d, want 2", n)
	}
}

func TestEscClearsSearch(t *testing.T) {
	m := newTestModel(model.Todo{ID: "t1", Title: "Review budget", Status: model.StatusOpen})

	m, _ = m.Update(keyMsg("/"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if m.Searching() {
		t.Error("esc should leave search mode")
	}
	if m.searchQuery != "" {
		t.Errorf("searchQuery = %q, want empty", m.searchQuery)
	}
}

func TestCycleFilterEmitsChange(t *testing.T) {
	m := newTestModel(model.Todo{ID: "t1", Title: "x", Status: model.StatusOpen})

	_, cmd := m.Update(keyMsg("tab"))
	if cmd == nil {
		t.Fatal("expected a command")
	}

	var filterMsg *FilterChangedMsg
	collect(cmd(), func(msg tea.Msg) {
		if fm, ok := msg.(FilterChangedMsg); ok {
			filterMsg = &fm
		}
	})
	if filterMsg == nil {
		t.Fatal("no FilterChangedMsg emitted")
	}
	if filterMsg.Filter != store.FilterReview {
		t.Errorf("filter = %q, want %q", filterMsg.Filter, store.FilterReview)
	}
}

// collect walks a possibly batched message tree.
func collect(msg tea.Msg, fn func(tea.Msg)) {
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c != nil {
				collect(c(), fn)
			}
		}
		return
	}
	fn(msg)
}

func TestEnterEmitsSelection(t *testing.T) {
	m := newTestModel(model.Todo{ID: "t1", Title: "Review budget", Status: model.StatusOpen})
	loaded := m.LoadTodos()().(TodosLoadedMsg)
	m, _ = m.Update(loaded)

	_, cmd := m.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	sel, ok := cmd().(SelectedTodoMsg)
	if !ok {
		t.Fatalf("msg = %T, want SelectedTodoMsg", cmd())
	}
	if sel.TodoID != "t1" {
		t.Errorf("TodoID = %q, want t1", sel.TodoID)
	}
}
