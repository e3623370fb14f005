package todoform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/lzhou/workdesk/internal/status"
	"github.com/lzhou/workdesk/internal/theme"
)

// ReasonSubmittedMsg carries the typed reason for a reason-bearing
// transition (block, dismiss, reject).
type ReasonSubmittedMsg struct {
	TodoID  string
	Trigger status.Trigger
	Reason  string
}

// ReasonCancelMsg is dispatched when the user abandons the prompt.
type ReasonCancelMsg struct{}

// reasonBindings keeps the input value on the heap across model copies.
type reasonBindings struct {
	reason string
}

// ReasonModel prompts for the required reason of a transition. The
// input cannot be submitted empty; blocking, dismissing and rejecting
// all carry mandatory context.
type ReasonModel struct {
	form    *huh.Form
	rb      *reasonBindings
	todoID  string
	trigger status.Trigger
	width   int
	height  int
}

// NewReason creates an empty reason prompt.
func NewReason(width, height int) ReasonModel {
	return ReasonModel{
		rb:     &reasonBindings{},
		width:  width,
		height: height,
	}
}

// Start initializes the prompt for a todo and trigger.
func (m *ReasonModel) Start(todoID string, trigger status.Trigger) tea.Cmd {
	m.todoID = todoID
	m.trigger = trigger
	m.rb.reason = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title(reasonTitle(trigger)).
				Placeholder(reasonPlaceholder(trigger)).
				Value(&m.rb.reason).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a reason is required")
					}
					return nil
				}),
		),
	).WithWidth(min(m.width-4, 80)).WithHeight(min(m.height-4, 12))

	return m.form.Init()
}

// Update handles messages for the reason prompt.
func (m ReasonModel) Update(msg tea.Msg) (ReasonModel, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		out := ReasonSubmittedMsg{
			TodoID:  m.todoID,
			Trigger: m.trigger,
			Reason:  strings.TrimSpace(m.rb.reason),
		}
		return m, func() tea.Msg { return out }
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return ReasonCancelMsg{} }
	}

	return m, cmd
}

// View renders the reason prompt.
func (m ReasonModel) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(reasonHeading(m.trigger)) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the prompt dimensions.
func (m *ReasonModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func reasonHeading(trigger status.Trigger) string {
	switch trigger {
	case status.TriggerBlock:
		return "Block Todo"
	case status.TriggerDismiss:
		return "Dismiss Todo"
	case status.TriggerReject:
		return "Reject Submission"
	default:
		return "Provide Reason"
	}
}

func reasonTitle(trigger status.Trigger) string {
	switch trigger {
	case status.TriggerBlock:
		return "What is blocking this todo?"
	case status.TriggerDismiss:
		return "Why is this todo being dismissed?"
	case status.TriggerReject:
		return "What needs to change?"
	default:
		return "Reason"
	}
}

func reasonPlaceholder(trigger status.Trigger) string {
	switch trigger {
	case status.TriggerReject:
		return "Feedback for the assignee..."
	default:
		return "Required..."
	}
}
