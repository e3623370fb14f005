package tasklist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/theme"
)

// TodoItem wraps a model.Todo so it can be used in a bubbles/list.
type TodoItem struct {
	Todo model.Todo
}

// FilterValue returns the string used for fuzzy filtering.
func (i TodoItem) FilterValue() string { return i.Todo.Title }

// Title returns the todo title for the list.
func (i TodoItem) Title() string { return i.Todo.Title }

// Description returns a short summary line for the list.
func (i TodoItem) Description() string {
	parts := []string{
		model.StatusLabel(i.Todo.Status),
		model.ActionTypeLabel(i.Todo.ActionType),
		relativeTime(i.Todo.UpdatedAt),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering todo lines.
type ItemDelegate struct {
	// ShowAssignee adds the assignee name, for the team scope.
	ShowAssignee bool
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single todo line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TodoItem)
	if !ok {
		return
	}
	todo := ti.Todo
	isSelected := index == m.Index()

	var prefix string
	switch todo.Status {
	case model.StatusDone:
		prefix = "✓"
	case model.StatusDismissed:
		prefix = "✗"
	case model.StatusBlocked:
		prefix = "!"
	default:
		prefix = "○"
	}

	statusBadge := theme.StatusStyle(todo.Status).Render(model.StatusLabel(todo.Status))
	priBadge := theme.PriorityStyle(todo.Priority).Render(strings.ToUpper(todo.Priority))
	actionBadge := theme.ActionTypeStyle(todo.ActionType).Render(model.ActionTypeLabel(todo.ActionType))

	assignee := ""
	if d.ShowAssignee && todo.AssigneeName != "" {
		assignee = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render(" @" + todo.AssigneeName)
	}

	dueStr := ""
	if todo.DueAt != nil {
		dueStr = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render(" due " + todo.DueAt.Format("Jan 02"))
	}

	overdueStr := ""
	if todo.IsOverdue() {
		overdueStr = theme.OverdueStyle.Render(" OVERDUE")
	}

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(todo.UpdatedAt))

	line := fmt.Sprintf(
		"%s %s %s %s %s%s%s%s  %s",
		prefix, statusBadge, priBadge, actionBadge, todo.Title,
		assignee, dueStr, overdueStr, timeStr,
	)

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hrs)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		weeks := int(d.Hours() / 24 / 7)
		if weeks == 1 {
			return "1w ago"
		}
		return fmt.Sprintf("%dw ago", weeks)
	}
}
