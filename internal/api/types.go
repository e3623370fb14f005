package api

import (
	"encoding/json"
	"time"

	"github.com/lzhou/workdesk/internal/model"
)

// envelope is the server's unified response wrapper. A non-zero code
// marks an application-level failure even under HTTP 200.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors,omitempty"`
}

// TodoPage is one page of a todo list response. Team listings also
// carry the caller's direct subordinates.
type TodoPage struct {
	Items        []model.Todo `json:"items"`
	Total        int          `json:"total"`
	Page         int          `json:"page"`
	PageSize     int          `json:"page_size"`
	Pages        int          `json:"pages"`
	Subordinates []model.User `json:"subordinates,omitempty"`
}

// ListOptions controls status filtering and pagination for list calls.
// Status "open" selects the active set (open, in_progress, blocked) by
// server convention; empty means unfiltered.
type ListOptions struct {
	Status   string
	Page     int
	PageSize int
}

// CreateTodoRequest is the payload for creating a todo.
type CreateTodoRequest struct {
	EntityID       string     `json:"our_entity_id"`
	AssigneeUserID string     `json:"assignee_user_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	SourceType     string     `json:"source_type"`
	SourceID       string     `json:"source_id"`
	ActionType     string     `json:"action_type"`
	Priority       string     `json:"priority,omitempty"`
	StartAt        *time.Time `json:"start_at,omitempty"`
	DueAt          *time.Time `json:"due_at,omitempty"`
}

// UpdateTodoRequest is the payload for editing mutable fields. Nil
// fields are left unchanged; status is never writable through here.
type UpdateTodoRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// LoginResult carries the minted token and viewer identity.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// reviewAction is the approve/reject payload.
type reviewAction struct {
	Comment string `json:"comment,omitempty"`
}

// statusUpdate is the generic status-update payload used for backward
// transitions (reset, recall, reopen).
type statusUpdate struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}
