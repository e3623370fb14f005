package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lzhou/workdesk/internal/keys"
	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/status"
	"github.com/lzhou/workdesk/internal/theme"
)

// BackMsg signals the parent to navigate back.
type BackMsg struct{}

// ActionMsg signals the parent to execute a lifecycle action on the
// displayed todo. NeedsReason actions go through a reason prompt first.
type ActionMsg struct {
	TodoID      string
	Trigger     status.Trigger
	NeedsReason bool
}

// EditMsg signals the parent to open the edit form for the todo.
type EditMsg struct {
	TodoID string
}

// Model is the todo detail view component.
type Model struct {
	todo     *model.Todo
	actor    status.Actor
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool

	// errText is the last failed action's message. It stays visible in
	// the open view until the next action or reload clears it.
	errText string
}

// New creates a new detail view model.
func New(actor status.Actor, keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		actor:    actor,
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Start):
			return m.emitAction(status.TriggerStart)
		case key.Matches(msg, m.keys.Submit):
			return m.emitAction(status.TriggerSubmit)
		case key.Matches(msg, m.keys.Approve):
			return m.emitAction(status.TriggerApprove)
		case key.Matches(msg, m.keys.Reject):
			return m.emitAction(status.TriggerReject)
		case key.Matches(msg, m.keys.Block):
			return m.emitAction(status.TriggerBlock)
		case key.Matches(msg, m.keys.Dismiss):
			return m.emitAction(status.TriggerDismiss)

		case key.Matches(msg, m.keys.Edit):
			if m.todo != nil && CanEdit(*m.todo, m.actor) {
				id := m.todo.ID
				return m, func() tea.Msg { return EditMsg{TodoID: id} }
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// emitAction forwards an allowed lifecycle action to the parent. Keys
// for actions the actor cannot perform here are ignored.
func (m Model) emitAction(trigger status.Trigger) (Model, tea.Cmd) {
	if m.todo == nil || !status.Allowed(*m.todo, m.actor, trigger) {
		return m, nil
	}
	msg := ActionMsg{
		TodoID:      m.todo.ID,
		Trigger:     trigger,
		NeedsReason: reasonTriggers[trigger],
	}
	m.errText = ""
	return m, func() tea.Msg { return msg }
}

// View renders the detail view.
func (m Model) View() string {
	if m.loading {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Loading todo...")
	}

	if m.todo == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No todo selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.todo == nil {
		return ""
	}

	todo := m.todo
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(todo.Title))

	statusBadge := theme.StatusStyle(todo.Status).Render(model.StatusLabel(todo.Status))
	priBadge := theme.PriorityStyle(todo.Priority).Render(model.PriorityLabel(todo.Priority))
	actionBadge := theme.ActionTypeStyle(todo.ActionType).Render(model.ActionTypeLabel(todo.ActionType))

	badgeLine := lipgloss.JoinHorizontal(
		lipgloss.Top, statusBadge, "  ", priBadge, "  ", actionBadge,
	)
	sections = append(sections, badgeLine)
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	if todo.AssigneeName != "" {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Assignee:"),
			valStyle.Render(todo.AssigneeName),
		))
	}
	if todo.CreatorName != "" {
		sections = append(sections, fmt.Sprintf(
			"%s   %s",
			metaStyle.Render("Creator:"),
			valStyle.Render(todo.CreatorName),
		))
	}
	if todo.DueAt != nil {
		due := todo.DueAt.Format("2006-01-02 15:04")
		if todo.IsOverdue() {
			due += theme.OverdueStyle.Render("  OVERDUE")
		}
		sections = append(sections, fmt.Sprintf(
			"%s       %s",
			metaStyle.Render("Due:"),
			valStyle.Render(due),
		))
	}
	if todo.DoneAt != nil {
		sections = append(sections, fmt.Sprintf(
			"%s      %s",
			metaStyle.Render("Done:"),
			valStyle.Render(todo.DoneAt.Format("2006-01-02 15:04")),
		))
	}
	if !todo.CreatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s   %s",
			metaStyle.Render("Created:"),
			valStyle.Render(todo.CreatedAt.Format("2006-01-02 15:04")),
		))
	}
	if !todo.UpdatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s   %s",
			metaStyle.Render("Updated:"),
			valStyle.Render(todo.UpdatedAt.Format("2006-01-02 15:04")),
		))
	}
	if todo.SourceType != "" {
		sections = append(sections, fmt.Sprintf(
			"%s    %s",
			metaStyle.Render("Source:"),
			valStyle.Render(todo.SourceType),
		))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", min(m.width-4, 80)))

	// Lifecycle context: reasons and the reviewer's comment.
	if todo.BlockedReason != "" && todo.Status == model.StatusBlocked {
		sections = append(sections, "")
		sections = append(sections, theme.StatusStyle(model.StatusBlocked).Render("Blocked:")+
			" "+valStyle.Render(todo.BlockedReason))
	}
	if todo.DismissReason != "" && todo.Status == model.StatusDismissed {
		sections = append(sections, "")
		sections = append(sections, theme.StatusStyle(model.StatusDismissed).Render("Dismissed:")+
			" "+valStyle.Render(todo.DismissReason))
	}
	if todo.ReviewComment != "" {
		sections = append(sections, "")
		sections = append(sections, theme.ErrorStyle.Render("Review comment:")+
			" "+valStyle.Render(todo.ReviewComment))
	}

	sections = append(sections, "")
	sections = append(sections, separator)
	sections = append(sections, "")

	descHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sections = append(sections, descHeaderStyle.Render("Description"))

	body := todo.Description
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	// Offered actions with their key hints.
	actions := AvailableActions(*todo, m.actor)
	if len(actions) > 0 || CanEdit(*todo, m.actor) {
		sections = append(sections, "")
		sections = append(sections, separator)
		sections = append(sections, "")
		sections = append(sections, descHeaderStyle.Render("Actions"))

		for _, a := range actions {
			hint := actionKeyHint(a.Trigger)
			label := a.Label
			if a.NeedsReason {
				label += " (asks for a reason)"
			}
			sections = append(sections, fmt.Sprintf(
				"%s %s",
				theme.HelpStyle.Render("["+hint+"]"),
				valStyle.Render(label),
			))
		}
		if CanEdit(*todo, m.actor) {
			sections = append(sections, fmt.Sprintf(
				"%s %s",
				theme.HelpStyle.Render("[e]"),
				valStyle.Render("Edit"),
			))
		}
	}

	if m.errText != "" {
		sections = append(sections, "")
		sections = append(sections, theme.ErrorStyle.Render(m.errText))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func actionKeyHint(trigger status.Trigger) string {
	switch trigger {
	case status.TriggerStart:
		return "s"
	case status.TriggerSubmit:
		return "S"
	case status.TriggerApprove:
		return "a"
	case status.TriggerReject:
		return "x"
	case status.TriggerBlock:
		return "b"
	case status.TriggerDismiss:
		return "d"
	default:
		return "enter"
	}
}

// SetTodo updates the displayed todo and re-renders the content.
func (m *Model) SetTodo(todo *model.Todo) {
	m.todo = todo
	m.loading = false
	m.errText = ""
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// SetActor updates the viewer used for authorization checks.
func (m *Model) SetActor(actor status.Actor) {
	m.actor = actor
	if m.todo != nil {
		m.viewport.SetContent(m.renderContent())
	}
}

// SetError shows a failed action's message inside the open view.
func (m *Model) SetError(text string) {
	m.errText = text
	if m.todo != nil {
		m.viewport.SetContent(m.renderContent())
	}
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// Todo returns the displayed todo.
func (m Model) Todo() *model.Todo {
	return m.todo
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
}
