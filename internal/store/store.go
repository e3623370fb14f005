package store

import (
	"context"
	"time"

	"github.com/lzhou/workdesk/internal/api"
	"github.com/lzhou/workdesk/internal/model"
)

// Scope selects which server listing backs the working set.
type Scope string

const (
	// ScopeMy shows todos assigned to the viewer.
	ScopeMy Scope = "my"
	// ScopeTeam shows todos assigned to the viewer's direct reports.
	ScopeTeam Scope = "team"
)

// StatusFilter narrows the visible todos in list views. The board
// always shows its own fixed column set regardless of this filter.
type StatusFilter string

const (
	// FilterActive shows open, in_progress and blocked todos. This is
	// the server's "open" listing filter.
	FilterActive StatusFilter = "active"
	// FilterReview shows todos waiting on a reviewer.
	FilterReview StatusFilter = "review"
	// FilterDone shows todos that reached done. Dismissed todos are
	// only visible under FilterAll.
	FilterDone StatusFilter = "done"
	// FilterAll shows everything.
	FilterAll StatusFilter = "all"
)

// NextFilter cycles to the next status filter, for a single keybinding.
func NextFilter(f StatusFilter) StatusFilter {
	switch f {
	case FilterActive:
		return FilterReview
	case FilterReview:
		return FilterDone
	case FilterDone:
		return FilterAll
	default:
		return FilterActive
	}
}

// Matches reports whether a todo passes the filter.
func (f StatusFilter) Matches(t model.Todo) bool {
	switch f {
	case FilterActive:
		return t.IsActive()
	case FilterReview:
		return t.Status == model.StatusPendingReview
	case FilterDone:
		return t.Status == model.StatusDone
	default:
		return true
	}
}

// TodoLister is the slice of the API client the list store needs.
type TodoLister interface {
	ListMyTodos(ctx context.Context, opts api.ListOptions) (*api.TodoPage, error)
	ListTeamTodos(ctx context.Context, opts api.ListOptions) (*api.TodoPage, error)
}

// Snapshotter persists the last fetched working set so the UI has
// something to show before the first refresh completes.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, scope Scope, todos []model.Todo, fetchedAt time.Time) error
	LoadSnapshot(ctx context.Context, scope Scope) ([]model.Todo, time.Time, error)
	SaveSubordinates(ctx context.Context, users []model.User) error
	LoadSubordinates(ctx context.Context) ([]model.User, error)
	Close() error
}
