package todoform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/lzhou/workdesk/internal/api"
	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/theme"
)

// CreateSubmittedMsg is dispatched when the create form completes.
type CreateSubmittedMsg struct {
	Request api.CreateTodoRequest
}

// EditSubmittedMsg is dispatched when the edit form completes.
type EditSubmittedMsg struct {
	TodoID  string
	Request api.UpdateTodoRequest
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	priority    string
	actionType  string
	assigneeID  string
	dueDate     string
}

// Model is the Bubble Tea model for the todo create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editMode bool
	editID   string

	// viewer and subordinates feed the assignee selector; a todo can be
	// assigned to the viewer or to one of their direct reports.
	viewer       model.User
	subordinates []model.User

	width  int
	height int
}

// New creates a new todo form model.
func New(viewer model.User, width, height int) Model {
	return Model{
		fb:     &formBindings{priority: model.PriorityP2, actionType: model.ActionDo},
		viewer: viewer,
		width:  width,
		height: height,
	}
}

// SetSubordinates sets the direct reports offered by the assignee selector.
func (m *Model) SetSubordinates(users []model.User) {
	m.subordinates = users
}

// StartCreate initializes the form for creating a new todo.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.editID = ""
	m.fb.title = ""
	m.fb.description = ""
	m.fb.priority = model.PriorityP2
	m.fb.actionType = model.ActionDo
	m.fb.assigneeID = m.viewer.ID
	m.fb.dueDate = ""
	m.form = m.buildCreateForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing an existing todo. Only the
// mutable fields are shown; assignee and action type are fixed at
// creation.
func (m *Model) StartEdit(todo model.Todo) tea.Cmd {
	m.editMode = true
	m.editID = todo.ID
	m.fb.title = todo.Title
	m.fb.description = todo.Description
	m.fb.priority = todo.Priority
	if todo.DueAt != nil {
		m.fb.dueDate = todo.DueAt.Format("2006-01-02")
	} else {
		m.fb.dueDate = ""
	}
	m.form = m.buildEditForm()
	return m.form.Init()
}

// Update handles messages for the todo form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the todo form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Todo"
	if m.editMode {
		titleText = "Edit Todo"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildCreateForm() *huh.Form {
	fields := m.coreFields()
	fields = append(fields,
		huh.NewSelect[string]().
			Title("Action Type").
			Options(
				huh.NewOption(model.ActionTypeLabel(model.ActionDo), model.ActionDo),
				huh.NewOption(model.ActionTypeLabel(model.ActionApprove), model.ActionApprove),
				huh.NewOption(model.ActionTypeLabel(model.ActionReview), model.ActionReview),
				huh.NewOption(model.ActionTypeLabel(model.ActionAck), model.ActionAck),
			).
			Value(&m.fb.actionType),
		m.assigneeField(),
	)

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) buildEditForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(m.coreFields()...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) coreFields() []huh.Field {
	return []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&m.fb.description),
		huh.NewSelect[string]().
			Title("Priority").
			Options(
				huh.NewOption(model.PriorityLabel(model.PriorityP0), model.PriorityP0),
				huh.NewOption(model.PriorityLabel(model.PriorityP1), model.PriorityP1),
				huh.NewOption(model.PriorityLabel(model.PriorityP2), model.PriorityP2),
				huh.NewOption(model.PriorityLabel(model.PriorityP3), model.PriorityP3),
			).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD (optional)").
			Value(&m.fb.dueDate).
			Validate(validateOptionalDate),
	}
}

func (m *Model) assigneeField() huh.Field {
	opts := []huh.Option[string]{
		huh.NewOption("Me ("+m.viewer.DisplayName+")", m.viewer.ID),
	}
	for _, u := range m.subordinates {
		opts = append(opts, huh.NewOption(u.DisplayName, u.ID))
	}
	return huh.NewSelect[string]().
		Title("Assignee").
		Options(opts...).
		Value(&m.fb.assigneeID)
}

func (m Model) handleSubmit() tea.Cmd {
	var dueAt *time.Time
	if m.fb.dueDate != "" {
		if t, err := time.Parse("2006-01-02", m.fb.dueDate); err == nil {
			dueAt = &t
		}
	}

	if m.editMode {
		title := m.fb.title
		description := m.fb.description
		priority := m.fb.priority
		msg := EditSubmittedMsg{
			TodoID: m.editID,
			Request: api.UpdateTodoRequest{
				Title:       &title,
				Description: &description,
				Priority:    &priority,
				DueAt:       dueAt,
			},
		}
		return func() tea.Msg { return msg }
	}

	msg := CreateSubmittedMsg{
		Request: api.CreateTodoRequest{
			AssigneeUserID: m.fb.assigneeID,
			Title:          m.fb.title,
			Description:    m.fb.description,
			ActionType:     m.fb.actionType,
			Priority:       m.fb.priority,
			SourceType:     model.SourceCustom,
			DueAt:          dueAt,
		},
	}
	return func() tea.Msg { return msg }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	_, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
