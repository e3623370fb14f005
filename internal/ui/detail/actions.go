package detail

import (
	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/status"
)

// Action is one lifecycle operation the viewer may perform on the
// displayed todo.
type Action struct {
	Trigger status.Trigger
	Label   string

	// NeedsReason marks actions that require typed input before they
	// can be sent (block and dismiss reasons, the reject comment).
	NeedsReason bool
}

// actionOrder fixes the display order of offered actions.
var actionOrder = []status.Trigger{
	status.TriggerStart,
	status.TriggerSubmit,
	status.TriggerApprove,
	status.TriggerReject,
	status.TriggerRecall,
	status.TriggerReset,
	status.TriggerReopen,
	status.TriggerBlock,
	status.TriggerDismiss,
}

var actionLabels = map[status.Trigger]string{
	status.TriggerStart:   "Start",
	status.TriggerSubmit:  "Submit for review",
	status.TriggerApprove: "Approve",
	status.TriggerReject:  "Reject",
	status.TriggerRecall:  "Recall from review",
	status.TriggerReset:   "Reset to open",
	status.TriggerReopen:  "Reopen",
	status.TriggerBlock:   "Block",
	status.TriggerDismiss: "Dismiss",
}

var reasonTriggers = map[status.Trigger]bool{
	status.TriggerReject:  true,
	status.TriggerBlock:   true,
	status.TriggerDismiss: true,
}

// AvailableActions returns the lifecycle actions the actor may perform
// on the todo from its current status, in display order.
func AvailableActions(t model.Todo, actor status.Actor) []Action {
	var out []Action
	for _, tr := range actionOrder {
		if !status.Allowed(t, actor, tr) {
			continue
		}
		out = append(out, Action{
			Trigger:     tr,
			Label:       actionLabels[tr],
			NeedsReason: reasonTriggers[tr],
		})
	}
	return out
}

// CanEdit reports whether the actor may edit the todo's mutable fields.
// Editing is an assignee affordance on unfinished todos.
func CanEdit(t model.Todo, actor status.Actor) bool {
	return actor.UserID == t.AssigneeUserID && !t.IsFinished()
}
