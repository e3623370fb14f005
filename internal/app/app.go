package app

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lzhou/workdesk/internal/api"
	"github.com/lzhou/workdesk/internal/credential"
	"github.com/lzhou/workdesk/internal/keys"
	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/session"
	"github.com/lzhou/workdesk/internal/store"
	"github.com/lzhou/workdesk/internal/ui"
	"github.com/lzhou/workdesk/internal/ui/board"
	"github.com/lzhou/workdesk/internal/ui/command"
	"github.com/lzhou/workdesk/internal/ui/detail"
	helpview "github.com/lzhou/workdesk/internal/ui/help"
	"github.com/lzhou/workdesk/internal/ui/tasklist"
	"github.com/lzhou/workdesk/internal/ui/todoform"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewList
	ViewDetail
	ViewForm
	ViewReason
	ViewHelp
	ViewCommand
)

// statusNoteMsg carries transient feedback for the status bar.
type statusNoteMsg struct {
	text  string
	isErr bool
}

// refreshTickMsg fires on the periodic auto-refresh interval.
type refreshTickMsg time.Time

// Model is the root Bubble Tea model that manages view routing, layout
// and access to the API client and working set.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout

	client  *api.Client
	session *session.Session
	todos   *store.TodoListStore
	keys    *keys.KeyMap

	boardView   board.Model
	listView    tasklist.Model
	detailView  detail.Model
	formView    todoform.Model
	reasonView  todoform.ReasonModel
	helpView    helpview.Model
	commandView command.Model

	refreshEvery time.Duration
	ready        bool
	refreshing   bool

	// inflight holds todo IDs with a transition round trip pending.
	// The board view holds the same map, so a drag and a detail action
	// on one todo serialize no matter which surface started first.
	inflight map[string]struct{}

	statusText  string
	statusIsErr bool

	// authErrText sticks in the status bar until the next successful
	// request; the stored token is discarded when it is set.
	authErrText string
}

// New creates the root application model.
func New(client *api.Client, sess *session.Session, todos *store.TodoListStore, cfg *model.AppConfig) Model {
	k := keys.DefaultKeyMap()

	refreshEvery := time.Duration(cfg.Display.RefreshIntervalSec) * time.Second
	if refreshEvery <= 0 {
		refreshEvery = 2 * time.Minute
	}

	viewer := model.User{ID: sess.UserID, DisplayName: sess.DisplayName}

	// One gate for the whole UI: a todo with a transition round trip
	// outstanding refuses further transitions on any surface.
	inflight := make(map[string]struct{})

	return Model{
		currentView:  ViewBoard,
		client:       client,
		session:      sess,
		todos:        todos,
		keys:         k,
		boardView:    board.New(todos, client, sess.Actor(), k, inflight, 80, 24),
		listView:     tasklist.New(todos, k, 80, 24),
		detailView:   detail.New(sess.Actor(), k, 80, 24),
		formView:     todoform.New(viewer, 80, 24),
		reasonView:   todoform.NewReason(80, 24),
		helpView:     helpview.New(k, 80, 24),
		commandView:  command.New(80, 24),
		refreshEvery: refreshEvery,
		inflight:     inflight,
	}
}

// Init seeds the UI from the local snapshot, kicks off the first
// refresh, and starts the auto-refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadCachedTodos(),
		m.refreshTodos(),
		m.scheduleRefresh(),
	)
}

func (m Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refreshEvery, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w := m.layout.ContentWidth()
		h := m.layout.ContentHeight()
		m.boardView.SetSize(w, h)
		m.listView.SetSize(w, h)
		m.detailView.SetSize(w, h)
		m.formView.SetSize(w, h)
		m.reasonView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to the active view so huh forms can size themselves.
		return m.updateActiveView(msg)

	case refreshTickMsg:
		m.refreshing = true
		return m, tea.Batch(m.refreshTodos(), m.scheduleRefresh())

	case todosLoadedMsg:
		return m.handleTodosLoaded(msg)

	case subordinatesMsg:
		return m.handleSubordinates(msg)

	case statusNoteMsg:
		m.statusText = msg.text
		m.statusIsErr = msg.isErr
		return m, nil

	case board.NoteMsg:
		m.statusText = msg.Text
		m.statusIsErr = msg.IsError
		return m, nil

	case board.RefreshRequestMsg:
		m.refreshing = true
		return m, m.refreshTodos()

	case board.OpenDetailMsg:
		return m.openDetail(msg.TodoID)

	case tasklist.SelectedTodoMsg:
		return m.openDetail(msg.TodoID)

	case tasklist.FilterChangedMsg:
		m.statusText = "filter: " + string(msg.Filter)
		m.statusIsErr = false
		return m, nil

	case detailLoadedMsg:
		if msg.err != nil {
			m.detailView.SetLoading(false)
			m.statusText = "loading todo: " + msg.err.Error()
			m.statusIsErr = true
			return m, nil
		}
		if msg.todo != nil {
			m.todos.Put(*msg.todo)
			m.detailView.SetTodo(msg.todo)
			m.boardView.SetTodos(m.todos.All())
		}
		return m, m.listView.LoadTodos()

	case detail.BackMsg:
		m.currentView = m.mainView()
		return m, nil

	case detail.ActionMsg:
		if msg.NeedsReason {
			m.previousView = m.currentView
			m.currentView = ViewReason
			return m, m.reasonView.Start(msg.TodoID, msg.Trigger)
		}
		return m, m.runTransition(msg.TodoID, msg.Trigger, "")

	case detail.EditMsg:
		if todo, ok := m.todos.Get(msg.TodoID); ok {
			m.previousView = m.currentView
			m.currentView = ViewForm
			return m, m.formView.StartEdit(todo)
		}
		return m, nil

	case todoform.ReasonSubmittedMsg:
		m.currentView = m.previousView
		return m, m.runTransition(msg.TodoID, msg.Trigger, msg.Reason)

	case todoform.ReasonCancelMsg:
		m.currentView = m.previousView
		return m, nil

	case todoform.CreateSubmittedMsg:
		m.currentView = m.mainView()
		return m, m.createTodo(msg.Request)

	case todoform.EditSubmittedMsg:
		m.currentView = m.previousView
		return m, m.updateTodo(msg.TodoID, msg.Request)

	case todoform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case createResultMsg:
		if msg.err != nil {
			m.statusText = "create failed: " + msg.err.Error()
			m.statusIsErr = true
			return m, nil
		}
		if msg.todo != nil {
			m.todos.Put(*msg.todo)
			m.boardView.SetTodos(m.todos.All())
		}
		m.statusText = "todo created"
		m.statusIsErr = false
		m.refreshing = true
		return m, tea.Batch(m.refreshTodos(), m.listView.LoadTodos())

	case updateResultMsg:
		if msg.err != nil {
			m.statusText = "update failed: " + msg.err.Error()
			m.statusIsErr = true
			return m, nil
		}
		if msg.todo != nil {
			m.todos.Put(*msg.todo)
			m.boardView.SetTodos(m.todos.All())
			if m.currentView == ViewDetail {
				m.detailView.SetTodo(msg.todo)
			}
		}
		m.refreshing = true
		return m, tea.Batch(m.refreshTodos(), m.listView.LoadTodos())

	case transitionResultMsg:
		return m.handleTransitionResult(msg)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if handled, mdl, cmd := m.handleGlobalKeys(msg); handled {
			return mdl, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that work across views. Views with
// text input (form, reason, command) see everything except ctrl+c.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return true, m, tea.Quit
	}

	switch m.currentView {
	case ViewCommand:
		if key.Matches(msg, m.keys.Command) || key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return true, m, nil
		}
		return false, m, nil
	case ViewForm, ViewReason:
		return false, m, nil
	case ViewList:
		if m.listView.Searching() {
			return false, m, nil
		}
	case ViewBoard:
		if m.boardView.Grabbed() {
			return false, m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewBoard || m.currentView == ViewList {
			return true, m, tea.Quit
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return true, m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return true, m, nil

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return true, m, m.commandView.Focus()

	case key.Matches(msg, m.keys.ToggleView):
		if m.currentView == ViewBoard {
			m.currentView = ViewList
			return true, m, m.listView.LoadTodos()
		}
		if m.currentView == ViewList {
			m.currentView = ViewBoard
			m.boardView.SetTodos(m.todos.All())
			return true, m, nil
		}

	case key.Matches(msg, m.keys.ToggleScope):
		if m.currentView == ViewBoard || m.currentView == ViewList {
			return true, m, m.toggleScope()
		}

	case key.Matches(msg, m.keys.Refresh):
		if m.currentView == ViewBoard || m.currentView == ViewList {
			m.refreshing = true
			return true, m, m.refreshTodos()
		}

	case key.Matches(msg, m.keys.New):
		if m.currentView == ViewBoard || m.currentView == ViewList {
			m.previousView = m.currentView
			m.currentView = ViewForm
			m.formView.SetSubordinates(m.session.Subordinates())
			return true, m, m.formView.StartCreate()
		}

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return true, m, nil
		}
	}

	return false, m, nil
}

// toggleScope flips between the viewer's own todos and the team's.
// Whether the viewer manages anyone is only known after a team listing
// has answered, so the first switch asks the server rather
// than being refused outright.
func (m *Model) toggleScope() tea.Cmd {
	if m.todos.Scope() == store.ScopeMy {
		if !m.session.HasSubordinates() {
			m.statusText = "checking for direct reports..."
			m.statusIsErr = false
			return m.fetchSubordinates()
		}
		m.todos.SetScope(store.ScopeTeam)
		m.statusText = "scope: team"
	} else {
		m.todos.SetScope(store.ScopeMy)
		m.statusText = "scope: my"
	}
	m.statusIsErr = false
	m.refreshing = true
	return m.refreshTodos()
}

// handleSubordinates opens the team scope when the server reports direct
// reports, and refuses it otherwise.
func (m Model) handleSubordinates(msg subordinatesMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.noteAuthFailure(msg.err)
		m.statusText = "team scope: " + msg.err.Error()
		m.statusIsErr = true
		return m, nil
	}
	if len(msg.subs) == 0 {
		m.statusText = "no direct reports; team scope unavailable"
		m.statusIsErr = true
		return m, nil
	}

	m.session.SetSubordinates(msg.subs)
	m.boardView.SetActor(m.session.Actor())
	m.detailView.SetActor(m.session.Actor())

	m.todos.SetScope(store.ScopeTeam)
	m.statusText = "scope: team"
	m.statusIsErr = false
	m.refreshing = true
	return m, m.refreshTodos()
}

func (m Model) handleTodosLoaded(msg todosLoadedMsg) (tea.Model, tea.Cmd) {
	if !msg.fromCache {
		m.refreshing = false
	}
	if msg.err != nil {
		if !msg.fromCache {
			m.noteAuthFailure(msg.err)
			m.statusText = "refresh failed: " + msg.err.Error()
			m.statusIsErr = true
		}
		return m, nil
	}
	m.authErrText = ""

	// A team refresh is how we learn the viewer's direct reports.
	if subs := m.todos.Subordinates(); len(subs) > 0 {
		m.session.SetSubordinates(subs)
		m.boardView.SetActor(m.session.Actor())
		m.detailView.SetActor(m.session.Actor())
	}

	m.boardView.SetTodos(msg.todos)

	// Keep an open detail view in sync with the fresh snapshot.
	if m.currentView == ViewDetail {
		if cur := m.detailView.Todo(); cur != nil {
			if fresh, ok := m.todos.Get(cur.ID); ok {
				m.detailView.SetTodo(&fresh)
			}
		}
	}

	if m.statusIsErr {
		m.statusText = ""
		m.statusIsErr = false
	}
	return m, m.listView.LoadTodos()
}

func (m Model) handleTransitionResult(msg transitionResultMsg) (tea.Model, tea.Cmd) {
	delete(m.inflight, msg.todoID)
	if msg.noop {
		m.statusText = "already in that state"
		m.statusIsErr = false
		return m, nil
	}

	if msg.err != nil {
		// Roll back the optimistic copy, surface the error, and refetch
		// so local state converges on the server's.
		m.noteAuthFailure(msg.err)
		m.todos.Put(msg.before)
		m.boardView.SetTodos(m.todos.All())
		text := fmt.Sprintf("%s failed: %v", msg.trigger, msg.err)
		m.statusText = text
		m.statusIsErr = true
		if m.currentView == ViewDetail {
			m.detailView.SetTodo(&msg.before)
			m.detailView.SetError(text)
		}
		m.refreshing = true
		return m, tea.Batch(m.refreshTodos(), m.listView.LoadTodos())
	}

	if m.currentView == ViewDetail {
		if fresh, ok := m.todos.Get(msg.todoID); ok {
			m.detailView.SetTodo(&fresh)
		}
	}
	m.statusText = string(msg.trigger) + " ok"
	m.statusIsErr = false
	m.refreshing = true
	return m, tea.Batch(m.refreshTodos(), m.listView.LoadTodos())
}

// openDetail shows a todo from the working set immediately and fetches
// the authoritative copy in the background.
func (m Model) openDetail(id string) (tea.Model, tea.Cmd) {
	m.previousView = m.currentView
	m.currentView = ViewDetail
	if todo, ok := m.todos.Get(id); ok {
		m.detailView.SetTodo(&todo)
	} else {
		m.detailView.SetLoading(true)
	}
	return m, m.loadDetail(id)
}

// mainView returns the surface to fall back to: board or list,
// whichever the user was on last.
func (m Model) mainView() ViewState {
	if m.previousView == ViewList {
		return ViewList
	}
	return ViewBoard
}

// updateActiveView dispatches the message to the currently active view.
// Non-key messages also reach the board when it is inactive, so a move
// commit result still rolls back and ungates its card.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var boardCmd tea.Cmd
	if _, isKey := msg.(tea.KeyMsg); !isKey && m.currentView != ViewBoard {
		m.boardView, boardCmd = m.boardView.Update(msg)
	}

	mdl, cmd := m.dispatchActive(msg)
	if boardCmd != nil {
		return mdl, tea.Batch(boardCmd, cmd)
	}
	return mdl, cmd
}

func (m Model) dispatchActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		m.boardView, cmd = m.boardView.Update(msg)
	case ViewList:
		m.listView, cmd = m.listView.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewForm:
		m.formView, cmd = m.formView.Update(msg)
	case ViewReason:
		m.reasonView, cmd = m.reasonView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Workdesk", m.headerStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.statusLine())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		return m.boardView.View()
	case ViewList:
		return m.listView.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewForm:
		return m.formView.View()
	case ViewReason:
		return m.reasonView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// headerStatus summarizes scope, viewer and sync state for the header.
func (m Model) headerStatus() string {
	scope := "my todos"
	if m.todos.Scope() == store.ScopeTeam {
		scope = "team"
	}
	state := "idle"
	if m.refreshing {
		state = "refreshing"
	} else if at := m.todos.FetchedAt(); !at.IsZero() {
		state = "synced " + at.Format("15:04")
	}
	return fmt.Sprintf("%s | %s | %s", m.session.DisplayName, scope, state)
}

// statusLine returns the status bar content: a transient note when one
// is pending, key hints otherwise.
func (m Model) statusLine() string {
	if m.authErrText != "" {
		return m.authErrText
	}
	if m.statusText != "" {
		return m.statusText
	}
	return m.keyHints()
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewBoard:
		if m.boardView.Grabbed() {
			return "h/l carry | space drop | esc cancel"
		}
		return "q quit | ? help | v list | w scope | n new | space grab | enter open | r refresh"
	case ViewList:
		return "q quit | ? help | v board | w scope | n new | tab filter | / search | enter open"
	case ViewDetail:
		return "esc back | s start | S submit | a approve | x reject | b block | d dismiss | e edit"
	case ViewForm, ViewReason:
		return "enter submit | esc cancel"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close | enter execute | esc back"
	default:
		return ""
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "board", "b":
		m.currentView = ViewBoard
		m.boardView.SetTodos(m.todos.All())
		return nil
	case "list", "l":
		m.currentView = ViewList
		return m.listView.LoadTodos()
	case "my":
		if m.todos.Scope() != store.ScopeMy {
			return m.toggleScope()
		}
		return nil
	case "team":
		if m.todos.Scope() != store.ScopeTeam {
			return m.toggleScope()
		}
		return nil
	case "new", "new todo", "todo":
		m.previousView = m.currentView
		m.currentView = ViewForm
		m.formView.SetSubordinates(m.session.Subordinates())
		return m.formView.StartCreate()
	case "refresh", "sync", "r":
		m.refreshing = true
		return m.refreshTodos()
	case "logout":
		_ = credential.Delete(credential.TokenKey)
		_ = credential.Delete(credential.UserIDKey)
		_ = credential.Delete(credential.DisplayNameKey)
		m.session.Close()
		return tea.Quit
	case "quit", "q":
		return tea.Quit
	default:
		return m.noteError("unknown command: " + cmd)
	}
}

// noteAuthFailure discards the stored token when the server rejected
// it, so the next launch goes through login again.
func (m *Model) noteAuthFailure(err error) {
	if !api.IsKind(err, api.KindUnauthenticated) {
		return
	}
	_ = credential.Delete(credential.TokenKey)
	m.session.Close()
	m.authErrText = "session expired; restart workdesk to sign in again"
}

// noteError returns a command that surfaces an error in the status bar.
func (m *Model) noteError(text string) tea.Cmd {
	return func() tea.Msg {
		return statusNoteMsg{text: text, isErr: true}
	}
}
