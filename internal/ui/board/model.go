package board

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lzhou/workdesk/internal/keys"
	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/status"
	"github.com/lzhou/workdesk/internal/store"
	"github.com/lzhou/workdesk/internal/theme"
)

// Commander is the slice of the API client the board needs to commit a
// drag. Each call performs exactly one request; the board never retries
// a transition on its own.
type Commander interface {
	StartTodo(ctx context.Context, id string) (*model.Todo, error)
	SubmitTodo(ctx context.Context, id string) (*model.Todo, error)
	ApproveTodo(ctx context.Context, id string, comment string) (*model.Todo, error)
	UpdateTodoStatus(ctx context.Context, id string, targetStatus string, comment string) (*model.Todo, error)
}

// OpenDetailMsg asks the app to open the focused todo's detail view.
type OpenDetailMsg struct {
	TodoID string
}

// RefreshRequestMsg asks the app for a full server refresh.
type RefreshRequestMsg struct{}

// NoteMsg carries transient feedback for the status bar.
type NoteMsg struct {
	Text    string
	IsError bool
}

// moveResultMsg reports the server's verdict on a committed drag.
type moveResultMsg struct {
	todoID string
	before model.Todo
	err    error
}

// Model is the Kanban board view component. Cards move between columns
// by an explicit grab/drop: space grabs the focused card, left/right
// carry it, space again drops it and commits the transition.
type Model struct {
	store  *store.TodoListStore
	client Commander
	actor  status.Actor
	keys   *keys.KeyMap

	grid grid
	sel  selection

	// grabbed is the carried card's ID; grabCol is the column the card
	// is currently hovering over.
	grabbed    string
	grabBefore model.Todo
	grabCol    int

	// inflight holds todo IDs with a transition round trip outstanding
	// anywhere in the UI. The map is shared with the owning app model
	// so a detail-view transition and a board drag on the same todo
	// cannot run at once. A busy card cannot be grabbed or dropped
	// until the server answers.
	inflight map[string]struct{}

	width  int
	height int
}

// New creates a board over the working set store. inflight is the
// UI-wide transition gate; pass the same map the rest of the views
// consult.
func New(s *store.TodoListStore, client Commander, actor status.Actor, k *keys.KeyMap, inflight map[string]struct{}, width, height int) Model {
	if inflight == nil {
		inflight = make(map[string]struct{})
	}
	m := Model{
		store:    s,
		client:   client,
		actor:    actor,
		keys:     k,
		inflight: inflight,
		width:    width,
		height:   height,
	}
	m.grid = buildGrid(s.All())
	m.sel = m.grid.clamp(selection{})
	return m
}

// SetTodos rebuilds the board from a fresh working set. The focused
// card is kept when it still exists.
func (m *Model) SetTodos(todos []model.Todo) {
	m.grid = buildGrid(todos)
	m.sel = m.grid.clamp(m.sel)
	if m.grabbed != "" {
		// The carried card may have moved or vanished server-side.
		if _, _, ok := m.grid.indexOf(m.grabbed); !ok {
			m.grabbed = ""
		}
	}
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetActor updates the viewer used for authorization checks.
func (m *Model) SetActor(actor status.Actor) {
	m.actor = actor
}

// Update handles messages for the board view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case moveResultMsg:
		return m.handleMoveResult(msg)

	case tea.KeyMsg:
		if m.grabbed != "" {
			return m.handleGrabKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}
	return m, nil
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sel.Row--
		m.sel.TodoID = ""
		m.sel = m.grid.clamp(m.sel)

	case key.Matches(msg, m.keys.Down):
		m.sel.Row++
		m.sel.TodoID = ""
		m.sel = m.grid.clamp(m.sel)

	case key.Matches(msg, m.keys.Left):
		m.sel.Col--
		m.sel.Row = 0
		m.sel.TodoID = ""
		m.sel = m.grid.clamp(m.sel)

	case key.Matches(msg, m.keys.Right):
		m.sel.Col++
		m.sel.Row = 0
		m.sel.TodoID = ""
		m.sel = m.grid.clamp(m.sel)

	case key.Matches(msg, m.keys.Select):
		if t, ok := m.grid.at(m.sel); ok {
			id := t.ID
			return m, func() tea.Msg { return OpenDetailMsg{TodoID: id} }
		}

	case key.Matches(msg, m.keys.Grab):
		return m.grabFocused()
	}
	return m, nil
}

func (m Model) grabFocused() (Model, tea.Cmd) {
	t, ok := m.grid.at(m.sel)
	if !ok {
		return m, nil
	}
	if _, busy := m.inflight[t.ID]; busy {
		return m, note("waiting for the server on this todo", true)
	}
	m.grabbed = t.ID
	m.grabBefore = t
	m.grabCol = m.sel.Col
	return m, nil
}

func (m Model) handleGrabKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.grabCol > 0 {
			m.grabCol--
		}

	case key.Matches(msg, m.keys.Right):
		if m.grabCol < len(m.grid.cols)-1 {
			m.grabCol++
		}

	case key.Matches(msg, m.keys.Back):
		m.grabbed = ""

	case key.Matches(msg, m.keys.Grab), key.Matches(msg, m.keys.Select):
		return m.dropGrabbed()
	}
	return m, nil
}

// dropGrabbed commits the carried card to the hovered column. The move
// is validated locally, applied optimistically, then sent to the
// server in a single request.
func (m Model) dropGrabbed() (Model, tea.Cmd) {
	before := m.grabBefore
	target := columnStatuses[m.grabCol]
	m.grabbed = ""

	if target == before.Status {
		return m, nil
	}
	if _, busy := m.inflight[before.ID]; busy {
		return m, note("waiting for the server on this todo", true)
	}

	trigger, needsInput, ok := status.TransitionForMove(before.Status, target)
	if !ok {
		return m, note(fmt.Sprintf(
			"cannot move %s to %s",
			model.StatusLabel(before.Status), model.StatusLabel(target),
		), true)
	}
	if needsInput {
		return m, note(fmt.Sprintf(
			"%s needs a comment; open the card with enter",
			trigger,
		), true)
	}

	req := status.Request{Trigger: trigger}
	res, err := status.Decide(before, m.actor, req)
	if err != nil {
		return m, note(moveErrorText(err), true)
	}

	// Optimistic: the card lands in its new column immediately, and is
	// rolled back if the server disagrees.
	applied := status.Apply(before, res, req, time.Now())
	m.store.Put(applied)
	m.SetTodos(m.store.All())
	m.sel.TodoID = applied.ID
	m.sel = m.grid.clamp(m.sel)
	m.inflight[before.ID] = struct{}{}

	client := m.client
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var err error
		switch trigger {
		case status.TriggerStart:
			_, err = client.StartTodo(ctx, before.ID)
		case status.TriggerSubmit:
			_, err = client.SubmitTodo(ctx, before.ID)
		case status.TriggerApprove:
			_, err = client.ApproveTodo(ctx, before.ID, "")
		default:
			// reset, recall, reopen go through the generic status
			// endpoint.
			_, err = client.UpdateTodoStatus(ctx, before.ID, res.Next, "")
		}
		return moveResultMsg{todoID: before.ID, before: before, err: err}
	}
}

func (m Model) handleMoveResult(msg moveResultMsg) (Model, tea.Cmd) {
	delete(m.inflight, msg.todoID)
	if msg.err == nil {
		// The server accepted; refetch so local state converges on the
		// authoritative snapshot.
		return m, func() tea.Msg { return RefreshRequestMsg{} }
	}

	// Roll the card back before the refetch lands.
	m.store.Put(msg.before)
	m.SetTodos(m.store.All())
	m.sel.TodoID = msg.todoID
	m.sel = m.grid.clamp(m.sel)

	err := msg.err
	return m, tea.Batch(
		note(fmt.Sprintf("move rejected: %v", err), true),
		func() tea.Msg { return RefreshRequestMsg{} },
	)
}

func note(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return NoteMsg{Text: text, IsError: isError}
	}
}

func moveErrorText(err error) string {
	switch {
	case status.IsReason(err, status.ReasonUnauthorized):
		return "you are not allowed to move this todo"
	case status.IsReason(err, status.ReasonInvalidTransition):
		return "that move is not a legal transition"
	default:
		return err.Error()
	}
}

// View renders the four columns side by side.
func (m Model) View() string {
	n := len(m.grid.cols)
	if n == 0 {
		return ""
	}

	gap := 1
	avail := m.width - gap*(n-1) - 4*n
	colW := avail / n
	if colW < 14 {
		colW = 14
	}
	colH := m.height - 2
	if colH < 3 {
		colH = 3
	}

	rendered := make([]string, 0, n)
	for ci, col := range m.grid.cols {
		rendered = append(rendered, m.renderColumn(ci, col, colW, colH))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(ci int, col column, colW, colH int) string {
	header := fmt.Sprintf("%s (%d)", col.label, len(col.todos))
	headerLine := theme.StatusStyle(col.status).Render(truncate(header, colW))

	lines := []string{headerLine, ""}
	for ri, t := range col.todos {
		lines = append(lines, m.renderCard(ci, ri, t, colW))
	}

	body := strings.Join(lines, "\n")
	style := theme.ColumnStyle
	hovering := m.grabbed != "" && ci == m.grabCol
	if hovering || (m.grabbed == "" && ci == m.sel.Col) {
		style = theme.FocusedColumnStyle
	}
	return style.Width(colW + 2).Height(colH).Render(body)
}

func (m Model) renderCard(ci, ri int, t model.Todo, colW int) string {
	pri := theme.PriorityStyle(t.Priority).Render(strings.ToUpper(t.Priority))
	title := truncate(t.Title, colW-4)

	line := pri + " " + title
	if t.IsOverdue() {
		line += theme.OverdueStyle.Render(" !")
	}

	switch {
	case m.grabbed != "" && t.ID == m.grabbed:
		return theme.GrabbedCardStyle.Render(line)
	case m.grabbed == "" && ci == m.sel.Col && ri == m.sel.Row:
		return theme.SelectedCardStyle.Render(line)
	default:
		return theme.CardStyle.Render(line)
	}
}

// Focused returns the currently focused todo.
func (m Model) Focused() (model.Todo, bool) {
	return m.grid.at(m.sel)
}

// Grabbed reports whether a card is being carried.
func (m Model) Grabbed() bool {
	return m.grabbed != ""
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
