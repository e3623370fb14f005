package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lzhou/workdesk/internal/api"
	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/status"
)

// requestTimeout bounds every server call issued from the UI.
const requestTimeout = 15 * time.Second

// todosLoadedMsg is sent after a refresh (or cache load) completes.
type todosLoadedMsg struct {
	todos     []model.Todo
	fromCache bool
	err       error
}

// detailLoadedMsg carries a freshly fetched todo for the detail view.
type detailLoadedMsg struct {
	todo *model.Todo
	err  error
}

// createResultMsg is sent after the server answers a create.
type createResultMsg struct {
	todo *model.Todo
	err  error
}

// updateResultMsg is sent after the server answers a field edit.
type updateResultMsg struct {
	todo *model.Todo
	err  error
}

// transitionResultMsg reports the server's verdict on a lifecycle
// transition, with the pre-transition copy for rollback.
type transitionResultMsg struct {
	todoID  string
	before  model.Todo
	trigger status.Trigger
	noop    bool
	err     error
}

// subordinatesMsg answers whether the viewer manages anyone. The answer
// comes from the team listing, the only call that reports the caller's
// direct subordinates.
type subordinatesMsg struct {
	subs []model.User
	err  error
}

// fetchSubordinates asks the server for the first team page. The page's
// subordinate list decides whether the team scope opens; the todos on
// it are discarded since a full refresh follows on success.
func (m *Model) fetchSubordinates() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		page, err := client.ListTeamTodos(ctx, api.ListOptions{Page: 1, PageSize: 1})
		if err != nil {
			return subordinatesMsg{err: err}
		}
		return subordinatesMsg{subs: page.Subordinates}
	}
}

// refreshTodos walks the server listing for the current scope and
// replaces the working set.
func (m *Model) refreshTodos() tea.Cmd {
	s := m.todos
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			return todosLoadedMsg{err: err}
		}
		return todosLoadedMsg{todos: s.All()}
	}
}

// loadCachedTodos seeds the working set from the local snapshot so the
// first paint has data while the network refresh runs.
func (m *Model) loadCachedTodos() tea.Cmd {
	s := m.todos
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := s.LoadCached(ctx); err != nil {
			return todosLoadedMsg{fromCache: true, err: err}
		}
		return todosLoadedMsg{todos: s.All(), fromCache: true}
	}
}

// loadDetail fetches the authoritative copy of one todo.
func (m *Model) loadDetail(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		todo, err := client.GetTodo(ctx, id)
		return detailLoadedMsg{todo: todo, err: err}
	}
}

// createTodo sends a create request.
func (m *Model) createTodo(req api.CreateTodoRequest) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		todo, err := client.CreateTodo(ctx, req)
		return createResultMsg{todo: todo, err: err}
	}
}

// updateTodo sends a field edit.
func (m *Model) updateTodo(id string, req api.UpdateTodoRequest) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		todo, err := client.UpdateTodo(ctx, id, req)
		return updateResultMsg{todo: todo, err: err}
	}
}

// runTransition validates a lifecycle transition locally, applies it
// optimistically, then commits it to the server with a single request.
// A same-state request without a new reason never touches the network.
func (m *Model) runTransition(id string, trigger status.Trigger, reason string) tea.Cmd {
	before, ok := m.todos.Get(id)
	if !ok {
		return nil
	}
	if _, busy := m.inflight[id]; busy {
		return m.noteError("waiting for the server on this todo")
	}

	req := status.Request{Trigger: trigger, Reason: reason}
	res, err := status.Decide(before, m.session.Actor(), req)
	if err != nil {
		return m.noteError(transitionErrorText(err, trigger))
	}

	if res.NoOp && !res.SetsBlockedReason && !res.SetsDismissReason {
		msg := transitionResultMsg{todoID: id, before: before, trigger: trigger, noop: true}
		return func() tea.Msg { return msg }
	}

	applied := status.Apply(before, res, req, time.Now())
	m.todos.Put(applied)
	m.inflight[id] = struct{}{}

	client := m.client
	next := res.Next
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var err error
		switch trigger {
		case status.TriggerStart:
			_, err = client.StartTodo(ctx, id)
		case status.TriggerSubmit:
			_, err = client.SubmitTodo(ctx, id)
		case status.TriggerApprove:
			_, err = client.ApproveTodo(ctx, id, reason)
		case status.TriggerReject:
			_, err = client.RejectTodo(ctx, id, reason)
		case status.TriggerBlock:
			_, err = client.BlockTodo(ctx, id, reason)
		case status.TriggerDismiss:
			_, err = client.DismissTodo(ctx, id, reason)
		default:
			_, err = client.UpdateTodoStatus(ctx, id, next, reason)
		}
		return transitionResultMsg{todoID: id, before: before, trigger: trigger, err: err}
	}
}

func transitionErrorText(err error, trigger status.Trigger) string {
	switch {
	case status.IsReason(err, status.ReasonMissingField):
		return string(trigger) + " needs a reason"
	case status.IsReason(err, status.ReasonUnauthorized):
		return "you are not allowed to " + string(trigger) + " this todo"
	case status.IsReason(err, status.ReasonInvalidTransition):
		return string(trigger) + " is not legal from the current status"
	default:
		return err.Error()
	}
}
