package status

import (
	"testing"
	"time"

	"github.com/lzhou/workdesk/internal/model"
)

const (
	assigneeID = "u1"
	creatorID  = "u2"
	managerID  = "m1"
	strangerID = "x9"
)

func newTodo(status string) model.Todo {
	return model.Todo{
		ID:             "t1",
		Title:          "Draft contract",
		Status:         status,
		AssigneeUserID: assigneeID,
		CreatorUserID:  creatorID,
	}
}

func assignee() Actor { return Actor{UserID: assigneeID} }
func creator() Actor  { return Actor{UserID: creatorID} }
func stranger() Actor { return Actor{UserID: strangerID} }

func manager() Actor {
	return Actor{
		UserID:    managerID,
		ManagerOf: func(userID string) bool { return userID == assigneeID },
	}
}

func allStatuses() []string {
	return []string{
		model.StatusOpen, model.StatusInProgress, model.StatusPendingReview,
		model.StatusBlocked, model.StatusDone, model.StatusDismissed,
	}
}

// validFrom lists, per trigger, the statuses a transition may start
// from with the strongest actor and a non-empty reason. Same-target
// no-ops are accounted for separately.
var validFrom = map[Trigger][]string{
	TriggerStart:   {model.StatusOpen},
	TriggerSubmit:  {model.StatusOpen, model.StatusInProgress, model.StatusBlocked},
	TriggerApprove: {model.StatusPendingReview},
	TriggerReject:  {model.StatusPendingReview},
	TriggerBlock:   {model.StatusOpen, model.StatusInProgress, model.StatusPendingReview, model.StatusBlocked},
	TriggerDismiss: {model.StatusOpen, model.StatusInProgress, model.StatusPendingReview, model.StatusBlocked, model.StatusDone},
	TriggerReset:   {model.StatusInProgress},
	TriggerRecall:  {model.StatusPendingReview},
	TriggerReopen:  {model.StatusDone},
}

// targets mirrors the table's target status per trigger.
var targets = map[Trigger]string{
	TriggerStart:   model.StatusInProgress,
	TriggerSubmit:  model.StatusPendingReview,
	TriggerApprove: model.StatusDone,
	TriggerReject:  model.StatusOpen,
	TriggerBlock:   model.StatusBlocked,
	TriggerDismiss: model.StatusDismissed,
	TriggerReset:   model.StatusOpen,
	TriggerRecall:  model.StatusInProgress,
	TriggerReopen:  model.StatusInProgress,
}

func strongestActor(tr Trigger) Actor {
	switch tr {
	case TriggerApprove, TriggerReject:
		return manager()
	default:
		return assignee()
	}
}

func TestDecideRejectsAllPairsOutsideTable(t *testing.T) {
	for _, tr := range Triggers() {
		for _, from := range allStatuses() {
			if contains(validFrom[tr], from) || targets[tr] == from {
				continue
			}
			_, err := Decide(newTodo(from), strongestActor(tr), Request{Trigger: tr, Reason: "r"})
			if !IsReason(err, ReasonInvalidTransition) {
				t.Errorf("%s from %s: want invalid-transition, got %v", tr, from, err)
			}
		}
	}
}

func TestDecideAcceptsAllPairsInTable(t *testing.T) {
	for _, tr := range Triggers() {
		for _, from := range validFrom[tr] {
			res, err := Decide(newTodo(from), strongestActor(tr), Request{Trigger: tr, Reason: "r"})
			if err != nil {
				t.Errorf("%s from %s: unexpected error %v", tr, from, err)
				continue
			}
			if res.Next != targets[tr] {
				t.Errorf("%s from %s: next = %s, want %s", tr, from, res.Next, targets[tr])
			}
			if res.NoOp && from != targets[tr] {
				t.Errorf("%s from %s: unexpected no-op", tr, from)
			}
		}
	}
}

func TestDecideUnauthorizedForWrongRole(t *testing.T) {
	for _, tr := range Triggers() {
		for _, from := range validFrom[tr] {
			_, err := Decide(newTodo(from), stranger(), Request{Trigger: tr, Reason: "r"})
			if !IsReason(err, ReasonUnauthorized) {
				t.Errorf("%s from %s as stranger: want unauthorized, got %v", tr, from, err)
			}
		}
	}

	// Assignee may not review their own submission.
	for _, tr := range []Trigger{TriggerApprove, TriggerReject} {
		_, err := Decide(newTodo(model.StatusPendingReview), assignee(), Request{Trigger: tr, Reason: "r"})
		if !IsReason(err, ReasonUnauthorized) {
			t.Errorf("%s as assignee: want unauthorized, got %v", tr, err)
		}
	}

	// Manager may not start or submit on the assignee's behalf.
	_, err := Decide(newTodo(model.StatusOpen), manager(), Request{Trigger: TriggerStart})
	if !IsReason(err, ReasonUnauthorized) {
		t.Errorf("start as manager: want unauthorized, got %v", err)
	}
}

func TestCreatorActsAsReviewer(t *testing.T) {
	res, err := Decide(newTodo(model.StatusPendingReview), creator(), Request{Trigger: TriggerApprove})
	if err != nil {
		t.Fatalf("approve as creator: %v", err)
	}
	if res.Next != model.StatusDone || !res.SetsDoneAt {
		t.Errorf("approve result = %+v, want done with done_at", res)
	}
}

func TestMissingReasonFailsRegardlessOfStatus(t *testing.T) {
	for _, tr := range []Trigger{TriggerBlock, TriggerDismiss, TriggerReject} {
		for _, from := range allStatuses() {
			_, err := Decide(newTodo(from), manager(), Request{Trigger: tr, Reason: ""})
			if !IsReason(err, ReasonMissingField) {
				t.Errorf("%s(reason=\"\") from %s: want missing-required-field, got %v", tr, from, err)
			}
			_, err = Decide(newTodo(from), manager(), Request{Trigger: tr, Reason: "   "})
			if !IsReason(err, ReasonMissingField) {
				t.Errorf("%s(reason=blank) from %s: want missing-required-field, got %v", tr, from, err)
			}
		}
	}
}

func TestRejectSetsReviewComment(t *testing.T) {
	todo := newTodo(model.StatusPendingReview)
	req := Request{Trigger: TriggerReject, Reason: "needs rework"}

	res, err := Decide(todo, manager(), req)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if res.Next != model.StatusOpen {
		t.Errorf("next = %s, want open", res.Next)
	}

	updated := Apply(todo, res, req, time.Now())
	if updated.ReviewComment != "needs rework" {
		t.Errorf("review_comment = %q, want %q", updated.ReviewComment, "needs rework")
	}
}

func TestSubmitClearsReviewComment(t *testing.T) {
	todo := newTodo(model.StatusOpen)
	todo.ReviewComment = "add clause 5"

	res, err := Decide(todo, assignee(), Request{Trigger: TriggerSubmit})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	updated := Apply(todo, res, Request{Trigger: TriggerSubmit}, time.Now())
	if updated.Status != model.StatusPendingReview {
		t.Errorf("status = %s, want pending_review", updated.Status)
	}
	if updated.ReviewComment != "" {
		t.Errorf("review_comment = %q, want cleared", updated.ReviewComment)
	}
}

func TestSameTargetIsIdempotentNoOp(t *testing.T) {
	res, err := Decide(newTodo(model.StatusInProgress), assignee(), Request{Trigger: TriggerStart})
	if err != nil {
		t.Fatalf("start when in_progress: %v", err)
	}
	if !res.NoOp {
		t.Error("start when in_progress: want no-op")
	}

	todo := newTodo(model.StatusInProgress)
	before := todo
	updated := Apply(todo, res, Request{Trigger: TriggerStart}, time.Now())
	if updated.Status != before.Status || updated.DoneAt != nil || updated.ReviewComment != before.ReviewComment {
		t.Errorf("no-op mutated fields: %+v", updated)
	}
}

func TestSameTargetReasonStillOverwrites(t *testing.T) {
	todo := newTodo(model.StatusBlocked)
	todo.BlockedReason = "waiting on vendor"

	req := Request{Trigger: TriggerBlock, Reason: "vendor bankrupt"}
	res, err := Decide(todo, assignee(), req)
	if err != nil {
		t.Fatalf("block when blocked: %v", err)
	}
	if !res.NoOp {
		t.Error("block when blocked: want no-op with overwrite")
	}

	updated := Apply(todo, res, req, time.Now())
	if updated.Status != model.StatusBlocked {
		t.Errorf("status = %s, want blocked", updated.Status)
	}
	if updated.BlockedReason != "vendor bankrupt" {
		t.Errorf("blocked_reason = %q, want overwritten", updated.BlockedReason)
	}
}

func TestApproveSetsDoneAtOnlyFromPendingReview(t *testing.T) {
	res, err := Decide(newTodo(model.StatusPendingReview), manager(), Request{Trigger: TriggerApprove})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	updated := Apply(newTodo(model.StatusPendingReview), res, Request{Trigger: TriggerApprove}, time.Now())
	if updated.Status != model.StatusDone {
		t.Errorf("status = %s, want done", updated.Status)
	}
	if updated.DoneAt == nil {
		t.Error("done_at not set on approve")
	}

	for _, from := range []string{model.StatusOpen, model.StatusInProgress, model.StatusBlocked, model.StatusDismissed} {
		_, err := Decide(newTodo(from), manager(), Request{Trigger: TriggerApprove})
		if !IsReason(err, ReasonInvalidTransition) {
			t.Errorf("approve from %s: want invalid-transition, got %v", from, err)
		}
	}
}

func TestReopenKeepsDoneAt(t *testing.T) {
	doneAt := time.Now().Add(-time.Hour)
	todo := newTodo(model.StatusDone)
	todo.DoneAt = &doneAt

	res, err := Decide(todo, assignee(), Request{Trigger: TriggerReopen})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	updated := Apply(todo, res, Request{Trigger: TriggerReopen}, time.Now())
	if updated.Status != model.StatusInProgress {
		t.Errorf("status = %s, want in_progress", updated.Status)
	}
	if updated.DoneAt == nil || !updated.DoneAt.Equal(doneAt) {
		t.Error("done_at must survive reopening")
	}
}

func TestTransitionForMove(t *testing.T) {
	cases := []struct {
		from, to   string
		trigger    Trigger
		needsInput bool
		ok         bool
	}{
		{model.StatusOpen, model.StatusInProgress, TriggerStart, false, true},
		{model.StatusOpen, model.StatusPendingReview, TriggerSubmit, false, true},
		{model.StatusInProgress, model.StatusPendingReview, TriggerSubmit, false, true},
		{model.StatusPendingReview, model.StatusDone, TriggerApprove, false, true},
		{model.StatusPendingReview, model.StatusOpen, TriggerReject, true, true},
		{model.StatusInProgress, model.StatusOpen, TriggerReset, false, true},
		{model.StatusPendingReview, model.StatusInProgress, TriggerRecall, false, true},
		{model.StatusDone, model.StatusInProgress, TriggerReopen, false, true},
		{model.StatusOpen, model.StatusDone, "", false, false},
		{model.StatusDone, model.StatusOpen, "", false, false},
		{model.StatusDone, model.StatusPendingReview, "", false, false},
	}

	for _, c := range cases {
		tr, needsInput, ok := TransitionForMove(c.from, c.to)
		if ok != c.ok {
			t.Errorf("move %s->%s: ok = %v, want %v", c.from, c.to, ok, c.ok)
			continue
		}
		if !ok {
			continue
		}
		if tr != c.trigger || needsInput != c.needsInput {
			t.Errorf("move %s->%s: got (%s, input=%v), want (%s, input=%v)",
				c.from, c.to, tr, needsInput, c.trigger, c.needsInput)
		}
	}
}

func TestFullLifecycle(t *testing.T) {
	now := time.Now()
	todo := newTodo(model.StatusOpen)

	step := func(actor Actor, req Request) {
		t.Helper()
		res, err := Decide(todo, actor, req)
		if err != nil {
			t.Fatalf("%s from %s: %v", req.Trigger, todo.Status, err)
		}
		todo = Apply(todo, res, req, now)
	}

	step(assignee(), Request{Trigger: TriggerStart})
	if todo.Status != model.StatusInProgress {
		t.Fatalf("after start: %s", todo.Status)
	}

	step(assignee(), Request{Trigger: TriggerSubmit})
	if todo.Status != model.StatusPendingReview || todo.ReviewComment != "" {
		t.Fatalf("after submit: %s %q", todo.Status, todo.ReviewComment)
	}

	step(manager(), Request{Trigger: TriggerReject, Reason: "add clause 5"})
	if todo.Status != model.StatusOpen || todo.ReviewComment != "add clause 5" {
		t.Fatalf("after reject: %s %q", todo.Status, todo.ReviewComment)
	}

	step(assignee(), Request{Trigger: TriggerSubmit})
	if todo.Status != model.StatusPendingReview || todo.ReviewComment != "" {
		t.Fatalf("after resubmit: %s %q", todo.Status, todo.ReviewComment)
	}

	step(manager(), Request{Trigger: TriggerApprove})
	if todo.Status != model.StatusDone || todo.DoneAt == nil {
		t.Fatalf("after approve: %s done_at=%v", todo.Status, todo.DoneAt)
	}
}

func TestAllowedIgnoresPayload(t *testing.T) {
	if !Allowed(newTodo(model.StatusOpen), assignee(), TriggerBlock) {
		t.Error("block should be offered to the assignee of an open todo")
	}
	if Allowed(newTodo(model.StatusDone), assignee(), TriggerBlock) {
		t.Error("block must not be offered on a done todo")
	}
	if Allowed(newTodo(model.StatusPendingReview), stranger(), TriggerApprove) {
		t.Error("approve must not be offered to unrelated users")
	}
}
