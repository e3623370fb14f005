package board

import (
	"github.com/lzhou/workdesk/internal/model"
)

// columnStatuses is the fixed column order. Blocked and dismissed todos
// never appear on the board; they are reachable from the list view.
var columnStatuses = []string{
	model.StatusOpen,
	model.StatusInProgress,
	model.StatusPendingReview,
	model.StatusDone,
}

type column struct {
	status string
	label  string
	todos  []model.Todo
}

// selection tracks the focused card. TodoID is the stable selected
// card id, preferred over the indices for tracking focus across
// rebuilds and status changes.
type selection struct {
	Col    int
	Row    int
	TodoID string
}

type grid struct {
	cols []column
}

// buildGrid distributes todos into the fixed columns, preserving the
// working set's order inside each column. Todos in statuses without a
// column are skipped.
func buildGrid(todos []model.Todo) grid {
	cols := make([]column, len(columnStatuses))
	for i, status := range columnStatuses {
		cols[i] = column{status: status, label: model.StatusLabel(status)}
	}
	for _, t := range todos {
		for i := range cols {
			if cols[i].status == t.Status {
				cols[i].todos = append(cols[i].todos, t)
				break
			}
		}
	}
	return grid{cols: cols}
}

func (g grid) indexOf(todoID string) (int, int, bool) {
	if todoID == "" {
		return 0, 0, false
	}
	for ci := range g.cols {
		for ri := range g.cols[ci].todos {
			if g.cols[ci].todos[ri].ID == todoID {
				return ci, ri, true
			}
		}
	}
	return 0, 0, false
}

// clamp normalizes a selection against the grid, preferring the stable
// ID when the card is still present.
func (g grid) clamp(sel selection) selection {
	if len(g.cols) == 0 {
		return selection{Col: 0, Row: -1}
	}

	if ci, ri, ok := g.indexOf(sel.TodoID); ok {
		sel.Col = ci
		sel.Row = ri
	} else {
		sel.TodoID = ""
	}

	if sel.Col < 0 {
		sel.Col = 0
	}
	if sel.Col >= len(g.cols) {
		sel.Col = len(g.cols) - 1
	}

	n := len(g.cols[sel.Col].todos)
	if n == 0 {
		// The focused column emptied out, usually because the selected
		// card hopped columns or left the board. Fall back to the
		// nearest column that still has cards.
		ci, ok := g.nearestNonEmpty(sel.Col)
		if !ok {
			sel.Row = -1
			return sel
		}
		sel.Col = ci
		sel.Row = 0
		n = len(g.cols[ci].todos)
	}
	if sel.Row < 0 {
		sel.Row = 0
	}
	if sel.Row >= n {
		sel.Row = n - 1
	}
	sel.TodoID = g.cols[sel.Col].todos[sel.Row].ID
	return sel
}

// nearestNonEmpty returns the closest column to from that holds at
// least one card, preferring the left side on ties.
func (g grid) nearestNonEmpty(from int) (int, bool) {
	for d := 1; d < len(g.cols); d++ {
		if i := from - d; i >= 0 && len(g.cols[i].todos) > 0 {
			return i, true
		}
		if i := from + d; i < len(g.cols) && len(g.cols[i].todos) > 0 {
			return i, true
		}
	}
	return 0, false
}

func (g grid) at(sel selection) (model.Todo, bool) {
	sel = g.clamp(sel)
	if sel.Col < 0 || sel.Col >= len(g.cols) {
		return model.Todo{}, false
	}
	if sel.Row < 0 || sel.Row >= len(g.cols[sel.Col].todos) {
		return model.Todo{}, false
	}
	return g.cols[sel.Col].todos[sel.Row], true
}
