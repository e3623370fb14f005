package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lzhou/workdesk/internal/api"
	"github.com/lzhou/workdesk/internal/model"
)

// defaultPageSize is the page size used when walking server listings.
const defaultPageSize = 50

// TodoListStore holds the client-side working set for the current
// scope. It refreshes by walking every page of the server listing,
// serves reads to the views, and accepts optimistic single-todo
// replacements between refreshes. A Snapshotter, when present, gets a
// write-through copy of each refresh so the next startup has data
// before the first fetch completes.
type TodoListStore struct {
	client TodoLister
	snap   Snapshotter

	mu           sync.RWMutex
	scope        Scope
	filter       StatusFilter
	todos        []model.Todo
	index        map[string]int
	subordinates []model.User
	fetchedAt    time.Time
}

// NewTodoListStore returns a store scoped to the viewer's own todos
// with the active filter. snap may be nil.
func NewTodoListStore(client TodoLister, snap Snapshotter) *TodoListStore {
	return &TodoListStore{
		client: client,
		snap:   snap,
		scope:  ScopeMy,
		filter: FilterActive,
		index:  make(map[string]int),
	}
}

// Scope returns the current listing scope.
func (s *TodoListStore) Scope() Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// SetScope switches between the viewer's own todos and the team's.
// The working set keeps serving the old scope's data until the next
// Refresh completes.
func (s *TodoListStore) SetScope(scope Scope) {
	s.mu.Lock()
	s.scope = scope
	s.mu.Unlock()
}

// Filter returns the current status filter.
func (s *TodoListStore) Filter() StatusFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// CycleFilter advances to the next status filter and returns it.
func (s *TodoListStore) CycleFilter() StatusFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = NextFilter(s.filter)
	return s.filter
}

// Refresh replaces the working set with a fresh full fetch of the
// current scope, walking every page. Filtering stays client-side so a
// single fetch serves both the board and every list filter.
func (s *TodoListStore) Refresh(ctx context.Context) error {
	s.mu.RLock()
	scope := s.scope
	s.mu.RUnlock()

	var (
		todos []model.Todo
		subs  []model.User
	)

	opts := api.ListOptions{Page: 1, PageSize: defaultPageSize}
	for {
		var (
			page *api.TodoPage
			err  error
		)
		switch scope {
		case ScopeTeam:
			page, err = s.client.ListTeamTodos(ctx, opts)
		default:
			page, err = s.client.ListMyTodos(ctx, opts)
		}
		if err != nil {
			return fmt.Errorf("refreshing %s todos: %w", scope, err)
		}

		todos = append(todos, page.Items...)
		if opts.Page == 1 {
			subs = page.Subordinates
		}
		if opts.Page >= page.Pages || len(page.Items) == 0 {
			break
		}
		opts.Page++
	}

	fetchedAt := time.Now()

	s.mu.Lock()
	if s.scope != scope {
		// Scope changed while fetching; drop the stale result.
		s.mu.Unlock()
		return nil
	}
	s.todos = todos
	s.rebuildIndexLocked()
	s.fetchedAt = fetchedAt
	if scope == ScopeTeam {
		s.subordinates = subs
	}
	s.mu.Unlock()

	if s.snap != nil {
		if err := s.snap.SaveSnapshot(ctx, scope, todos, fetchedAt); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		if scope == ScopeTeam {
			if err := s.snap.SaveSubordinates(ctx, subs); err != nil {
				return fmt.Errorf("saving subordinates: %w", err)
			}
		}
	}

	return nil
}

// LoadCached seeds the working set from the local snapshot, if one
// exists for the current scope.
func (s *TodoListStore) LoadCached(ctx context.Context) error {
	if s.snap == nil {
		return nil
	}

	s.mu.RLock()
	scope := s.scope
	s.mu.RUnlock()

	todos, fetchedAt, err := s.snap.LoadSnapshot(ctx, scope)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	subs, err := s.snap.LoadSubordinates(ctx)
	if err != nil {
		return fmt.Errorf("loading subordinates: %w", err)
	}

	s.mu.Lock()
	s.todos = todos
	s.rebuildIndexLocked()
	s.fetchedAt = fetchedAt
	s.subordinates = subs
	s.mu.Unlock()
	return nil
}

// All returns a copy of the full working set.
func (s *TodoListStore) All() []model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

// Visible returns the todos passing the current status filter.
func (s *TodoListStore) Visible() []model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Todo
	for _, t := range s.todos {
		if s.filter.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// ByStatus returns the todos in a given status, preserving order.
func (s *TodoListStore) ByStatus(status string) []model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Todo
	for _, t := range s.todos {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the todo with the given ID.
func (s *TodoListStore) Get(id string) (model.Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return model.Todo{}, false
	}
	return s.todos[i], true
}

// Put replaces a single todo in place, or appends it if unknown. Used
// for optimistic transition results and fresh detail fetches.
func (s *TodoListStore) Put(t model.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[t.ID]; ok {
		s.todos[i] = t
		return
	}
	s.todos = append(s.todos, t)
	s.index[t.ID] = len(s.todos) - 1
}

// Subordinates returns the direct reports learned from the last team
// refresh.
func (s *TodoListStore) Subordinates() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, len(s.subordinates))
	copy(out, s.subordinates)
	return out
}

// FetchedAt returns when the working set was last fetched from the
// server, or the cached snapshot's fetch time after LoadCached. Zero
// means no data yet.
func (s *TodoListStore) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

func (s *TodoListStore) rebuildIndexLocked() {
	s.index = make(map[string]int, len(s.todos))
	for i, t := range s.todos {
		s.index[t.ID] = i
	}
}
