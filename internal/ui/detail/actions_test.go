package detail

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lzhou/workdesk/internal/keys"
	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/status"
)

func todoWith(s string) model.Todo {
	return model.Todo{
		ID:             "t1",
		AssigneeUserID: "u1",
		CreatorUserID:  "u2",
		Title:          "write report",
		Status:         s,
	}
}

func triggersOf(actions []Action) map[status.Trigger]bool {
	out := make(map[status.Trigger]bool, len(actions))
	for _, a := range actions {
		out[a.Trigger] = true
	}
	return out
}

func TestAvailableActionsForAssignee(t *testing.T) {
	actor := status.Actor{UserID: "u1"}

	got := triggersOf(AvailableActions(todoWith(model.StatusOpen), actor))
	for _, tr := range []status.Trigger{status.TriggerStart, status.TriggerSubmit, status.TriggerBlock, status.TriggerDismiss} {
		if !got[tr] {
			t.Errorf("assignee on open todo should be offered %s", tr)
		}
	}
	if got[status.TriggerApprove] || got[status.TriggerReject] {
		t.Error("assignee must not be offered review actions")
	}

	got = triggersOf(AvailableActions(todoWith(model.StatusPendingReview), actor))
	if !got[status.TriggerRecall] {
		t.Error("assignee should be able to recall from review")
	}
	if got[status.TriggerStart] {
		t.Error("start is not legal from pending_review")
	}
}

func TestAvailableActionsForCreator(t *testing.T) {
	actor := status.Actor{UserID: "u2"}

	got := triggersOf(AvailableActions(todoWith(model.StatusPendingReview), actor))
	if !got[status.TriggerApprove] || !got[status.TriggerReject] {
		t.Error("creator should be offered approve and reject on pending_review")
	}
	if got[status.TriggerSubmit] {
		t.Error("creator is not the assignee and must not be offered submit")
	}

	got = triggersOf(AvailableActions(todoWith(model.StatusDone), actor))
	if !got[status.TriggerReopen] || !got[status.TriggerDismiss] {
		t.Error("creator should be offered reopen and dismiss on done")
	}
}

func TestAvailableActionsForStranger(t *testing.T) {
	actor := status.Actor{UserID: "x9"}
	if got := AvailableActions(todoWith(model.StatusOpen), actor); len(got) != 0 {
		t.Fatalf("stranger should be offered nothing, got %v", got)
	}
}

func TestReasonBearingActionsAreMarked(t *testing.T) {
	actor := status.Actor{UserID: "u1"}
	for _, a := range AvailableActions(todoWith(model.StatusOpen), actor) {
		wantReason := a.Trigger == status.TriggerBlock || a.Trigger == status.TriggerDismiss || a.Trigger == status.TriggerReject
		if a.NeedsReason != wantReason {
			t.Errorf("%s NeedsReason = %v, want %v", a.Trigger, a.NeedsReason, wantReason)
		}
	}
}

func TestCanEdit(t *testing.T) {
	assignee := status.Actor{UserID: "u1"}
	creator := status.Actor{UserID: "u2"}

	if !CanEdit(todoWith(model.StatusInProgress), assignee) {
		t.Error("assignee should be able to edit an unfinished todo")
	}
	if CanEdit(todoWith(model.StatusDone), assignee) {
		t.Error("finished todos are not editable")
	}
	if CanEdit(todoWith(model.StatusOpen), creator) {
		t.Error("only the assignee edits")
	}
}

func TestActionKeyEmitsForAllowedTrigger(t *testing.T) {
	todo := todoWith(model.StatusOpen)
	m := New(status.Actor{UserID: "u1"}, keys.DefaultKeyMap(), 80, 24)
	m.SetTodo(&todo)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if cmd == nil {
		t.Fatal("s on an open todo should emit an action")
	}
	msg, ok := cmd().(ActionMsg)
	if !ok {
		t.Fatalf("message = %#v, want ActionMsg", cmd())
	}
	if msg.Trigger != status.TriggerStart || msg.TodoID != "t1" || msg.NeedsReason {
		t.Fatalf("ActionMsg = %+v, want start on t1 without reason", msg)
	}
}

func TestActionKeyIgnoredWhenNotAllowed(t *testing.T) {
	todo := todoWith(model.StatusOpen)
	m := New(status.Actor{UserID: "x9"}, keys.DefaultKeyMap(), 80, 24)
	m.SetTodo(&todo)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if cmd != nil {
		if _, ok := cmd().(ActionMsg); ok {
			t.Fatal("stranger's s key must not emit an action")
		}
	}
}

func TestBlockKeyAsksForReason(t *testing.T) {
	todo := todoWith(model.StatusInProgress)
	m := New(status.Actor{UserID: "u1"}, keys.DefaultKeyMap(), 80, 24)
	m.SetTodo(&todo)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}})
	if cmd == nil {
		t.Fatal("b should emit a block action")
	}
	msg, ok := cmd().(ActionMsg)
	if !ok || !msg.NeedsReason {
		t.Fatalf("message = %#v, want reason-bearing ActionMsg", cmd())
	}
}
