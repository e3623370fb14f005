package tasklist

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lzhou/workdesk/internal/keys"
	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/store"
	"github.com/lzhou/workdesk/internal/theme"
)

// TodosLoadedMsg is sent when the working set has been (re)loaded.
type TodosLoadedMsg struct {
	Todos []model.Todo
}

// SelectedTodoMsg is sent when a user selects a todo to view details.
type SelectedTodoMsg struct {
	TodoID string
}

// FilterChangedMsg is sent after the status filter cycles.
type FilterChangedMsg struct {
	Filter store.StatusFilter
}

// Model is the todo list view component.
type Model struct {
	list        list.Model
	store       *store.TodoListStore
	keys        *keys.KeyMap
	searchMode  bool
	searchQuery string
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a new todo list model backed by the working set store.
func New(s *store.TodoListStore, k *keys.KeyMap, width, height int) Model {
	delegate := ItemDelegate{ShowAssignee: s.Scope() == store.ScopeTeam}
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.Title = "Todos"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search todos..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		store:       s,
		keys:        k,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns a command that loads the initial set of todos.
func (m Model) Init() tea.Cmd {
	return m.LoadTodos()
}

// Update handles messages for the todo list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TodosLoadedMsg:
		m.list.SetDelegate(ItemDelegate{ShowAssignee: m.store.Scope() == store.ScopeTeam})
		cmd := m.list.SetItems(m.visibleItems(msg.Todos))
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	// Delegate to list model for other messages
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchQuery = m.searchInput.Value()
		return m, m.LoadTodos()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.searchQuery = ""
		return m, m.LoadTodos()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(TodoItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedTodoMsg{TodoID: item.Todo.ID}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.CycleFilter):
		next := m.store.CycleFilter()
		return m, tea.Batch(m.LoadTodos(), func() tea.Msg {
			return FilterChangedMsg{Filter: next}
		})
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// visibleItems applies the client-side search on top of the already
// filtered working set.
func (m Model) visibleItems(todos []model.Todo) []list.Item {
	query := strings.ToLower(strings.TrimSpace(m.searchQuery))
	var items []list.Item
	for _, t := range todos {
		if query != "" &&
			!strings.Contains(strings.ToLower(t.Title), query) &&
			!strings.Contains(strings.ToLower(t.Description), query) {
			continue
		}
		items = append(items, TodoItem{Todo: t})
	}
	return items
}

// View renders the todo list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when no todos are visible.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.searchQuery != "" || m.store.Filter() != store.FilterAll {
		return style.Render("No matching todos.\nTab cycles the status filter; / searches.")
	}

	return style.Render("No todos yet.\n\nPress n to create one.")
}

// LoadTodos returns a tea.Cmd that reads the working set with the
// current filter.
func (m Model) LoadTodos() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		return TodosLoadedMsg{Todos: s.Visible()}
	}
}

// Searching reports whether the search input currently owns key input.
func (m Model) Searching() bool {
	return m.searchMode
}

// SelectedID returns the currently focused todo's ID.
func (m Model) SelectedID() (string, bool) {
	item, ok := m.list.SelectedItem().(TodoItem)
	if !ok {
		return "", false
	}
	return item.Todo.ID, true
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
