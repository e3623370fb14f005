package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/lzhou/workdesk/internal/model"
)

// CreateTodo creates a new todo in state open. A missing SourceID is
// filled with a generated UUID, matching the server's behavior for
// custom todos.
func (c *Client) CreateTodo(ctx context.Context, req CreateTodoRequest) (*model.Todo, error) {
	if req.SourceID == "" {
		req.SourceID = uuid.New().String()
	}
	if req.SourceType == "" {
		req.SourceType = model.SourceCustom
	}

	var todo model.Todo
	if err := c.post(ctx, "/todo", req, &todo); err != nil {
		return nil, fmt.Errorf("creating todo: %w", err)
	}
	return &todo, nil
}

// ListMyTodos fetches one page of the viewer's own todos.
func (c *Client) ListMyTodos(ctx context.Context, opts ListOptions) (*TodoPage, error) {
	return c.listTodos(ctx, "/todo/my", opts)
}

// ListTeamTodos fetches one page of the viewer's direct subordinates'
// todos. The page also carries the subordinate list.
func (c *Client) ListTeamTodos(ctx context.Context, opts ListOptions) (*TodoPage, error) {
	return c.listTodos(ctx, "/todo/team", opts)
}

func (c *Client) listTodos(ctx context.Context, path string, opts ListOptions) (*TodoPage, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Page > 0 {
		q.Set("page", fmt.Sprint(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("page_size", fmt.Sprint(opts.PageSize))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page TodoPage
	if err := c.get(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	return &page, nil
}

// GetTodo fetches a single todo by ID.
func (c *Client) GetTodo(ctx context.Context, id string) (*model.Todo, error) {
	var todo model.Todo
	if err := c.get(ctx, "/todo/"+id, &todo); err != nil {
		return nil, fmt.Errorf("getting todo %s: %w", id, err)
	}
	return &todo, nil
}

// UpdateTodo edits mutable fields of a todo. Status changes go through
// the transition operations, never through here.
func (c *Client) UpdateTodo(ctx context.Context, id string, req UpdateTodoRequest) (*model.Todo, error) {
	var todo model.Todo
	if err := c.patch(ctx, "/todo/"+id, req, &todo); err != nil {
		return nil, fmt.Errorf("updating todo %s: %w", id, err)
	}
	return &todo, nil
}

// StartTodo requests open -> in_progress.
func (c *Client) StartTodo(ctx context.Context, id string) (*model.Todo, error) {
	return c.transition(ctx, id, "/start", nil)
}

// SubmitTodo requests the submit transition into pending_review.
func (c *Client) SubmitTodo(ctx context.Context, id string) (*model.Todo, error) {
	return c.transition(ctx, id, "/submit", nil)
}

// ApproveTodo requests pending_review -> done. The comment is optional.
func (c *Client) ApproveTodo(ctx context.Context, id, comment string) (*model.Todo, error) {
	return c.transition(ctx, id, "/approve", reviewAction{Comment: comment})
}

// RejectTodo requests pending_review -> open with a required comment.
func (c *Client) RejectTodo(ctx context.Context, id, comment string) (*model.Todo, error) {
	return c.transition(ctx, id, "/reject", reviewAction{Comment: comment})
}

// BlockTodo requests the block transition with a required reason. The
// server takes the reason as a query parameter.
func (c *Client) BlockTodo(ctx context.Context, id, reason string) (*model.Todo, error) {
	q := url.Values{"blocked_reason": {reason}}
	return c.transition(ctx, id, "/block?"+q.Encode(), nil)
}

// DismissTodo requests the dismiss transition with a required reason.
func (c *Client) DismissTodo(ctx context.Context, id, reason string) (*model.Todo, error) {
	q := url.Values{"dismiss_reason": {reason}}
	return c.transition(ctx, id, "/dismiss?"+q.Encode(), nil)
}

// UpdateTodoStatus is the generic status-update escape hatch for the
// backward transitions (reset, recall, reopen). The target status must
// already have passed client-side validation; the server remains the
// final authority.
func (c *Client) UpdateTodoStatus(ctx context.Context, id, targetStatus, comment string) (*model.Todo, error) {
	return c.transition(ctx, id, "/status", statusUpdate{Status: targetStatus, Comment: comment})
}

// transition performs a single, non-retried transition round trip.
func (c *Client) transition(ctx context.Context, id, suffix string, body interface{}) (*model.Todo, error) {
	var todo model.Todo
	if err := c.post(ctx, "/todo/"+id+suffix, body, &todo); err != nil {
		return nil, fmt.Errorf("todo %s transition: %w", id, err)
	}
	return &todo, nil
}
