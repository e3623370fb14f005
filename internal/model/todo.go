package model

import "time"

// Todo status constants. These are the only values the server accepts.
const (
	StatusOpen          = "open"
	StatusInProgress    = "in_progress"
	StatusPendingReview = "pending_review"
	StatusBlocked       = "blocked"
	StatusDone          = "done"
	StatusDismissed     = "dismissed"
)

// Priority constants ("p0" is most urgent). The server defaults to p2.
const (
	PriorityP0 = "p0"
	PriorityP1 = "p1"
	PriorityP2 = "p2"
	PriorityP3 = "p3"
)

// Action type constants. Fixed at creation, immutable afterwards.
const (
	ActionDo      = "do"
	ActionApprove = "approve"
	ActionReview  = "review"
	ActionAck     = "ack"
)

// Source type constants. Used for filtering and linking only; no todo
// behavior depends on them.
const (
	SourceCustom           = "custom"
	SourceProjectTask      = "project_task"
	SourceApprovalStep     = "approval_step"
	SourceContractReminder = "contract_reminder"
	SourceFinanceAction    = "finance_action"
)

// Todo is the working copy of a server-owned todo item. The server is
// authoritative; this struct is mutated only by applying transition
// results or by replacing it with a fresh server snapshot.
type Todo struct {
	// ID is the server-assigned unique identifier.
	ID string `json:"id" db:"id"`

	// AssigneeUserID is the person responsible for doing the work.
	AssigneeUserID string `json:"assignee_user_id" db:"assignee_user_id"`

	// CreatorUserID is the person who created the todo. The creator may
	// act as reviewer in addition to the assignee's manager.
	CreatorUserID string `json:"creator_user_id" db:"creator_user_id"`

	// AssigneeName and CreatorName are resolved display names supplied
	// by list and detail responses.
	AssigneeName string `json:"assignee_name,omitempty" db:"assignee_name"`
	CreatorName  string `json:"creator_name,omitempty" db:"creator_name"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description,omitempty" db:"description"`

	// Status is one of the Status* constants.
	Status string `json:"status" db:"status"`

	// Priority is one of the Priority* constants.
	Priority string `json:"priority" db:"priority"`

	// ActionType is one of the Action* constants.
	ActionType string `json:"action_type" db:"action_type"`

	// SourceType and SourceID tag the todo's origin system.
	SourceType string `json:"source_type" db:"source_type"`
	SourceID   string `json:"source_id" db:"source_id"`

	StartAt *time.Time `json:"start_at,omitempty" db:"start_at"`
	DueAt   *time.Time `json:"due_at,omitempty" db:"due_at"`

	// DoneAt is set when the todo first reaches done. It is not cleared
	// if the todo is later reopened from the board.
	DoneAt *time.Time `json:"done_at,omitempty" db:"done_at"`

	// BlockedReason is non-empty whenever Status is blocked.
	BlockedReason string `json:"blocked_reason,omitempty" db:"blocked_reason"`

	// DismissReason is non-empty whenever Status is dismissed.
	DismissReason string `json:"dismiss_reason,omitempty" db:"dismiss_reason"`

	// ReviewComment holds the manager's rejection comment. Cleared on
	// the next submit.
	ReviewComment string `json:"review_comment,omitempty" db:"review_comment"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsFinished reports whether the todo is in a terminal state.
func (t Todo) IsFinished() bool {
	return t.Status == StatusDone || t.Status == StatusDismissed
}

// IsActive reports whether the todo counts toward the "active" list
// filter (the server's "open" filter: open, in_progress, or blocked).
func (t Todo) IsActive() bool {
	switch t.Status {
	case StatusOpen, StatusInProgress, StatusBlocked:
		return true
	}
	return false
}

// IsOverdue reports whether the todo has a due date in the past and is
// not finished.
func (t Todo) IsOverdue() bool {
	if t.DueAt == nil || t.IsFinished() {
		return false
	}
	return t.DueAt.Before(time.Now())
}

// statusLabels maps each status to its display label.
var statusLabels = map[string]string{
	StatusOpen:          "Open",
	StatusInProgress:    "In Progress",
	StatusPendingReview: "Pending Review",
	StatusBlocked:       "Blocked",
	StatusDone:          "Done",
	StatusDismissed:     "Dismissed",
}

// StatusLabel returns the display label for a status, falling back to
// the raw value for anything unknown.
func StatusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}

// priorityLabels maps each priority to its display label.
var priorityLabels = map[string]string{
	PriorityP0: "P0 - Urgent",
	PriorityP1: "P1 - High",
	PriorityP2: "P2 - Medium",
	PriorityP3: "P3 - Low",
}

// PriorityLabel returns the display label for a priority.
func PriorityLabel(priority string) string {
	if l, ok := priorityLabels[priority]; ok {
		return l
	}
	return priority
}

// actionTypeLabels maps each action type to its display label.
var actionTypeLabels = map[string]string{
	ActionDo:      "Do",
	ActionApprove: "Approve",
	ActionReview:  "Review",
	ActionAck:     "Acknowledge",
}

// ActionTypeLabel returns the display label for an action type.
func ActionTypeLabel(actionType string) string {
	if l, ok := actionTypeLabels[actionType]; ok {
		return l
	}
	return actionType
}
