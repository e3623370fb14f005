// Package status implements the todo transition rules: which status
// changes exist, who may request them, and what each one requires and
// changes. It performs no I/O; every decision is a pure function of the
// current todo, the requested transition, and the acting user. The
// server re-validates everything, but deciding here first keeps
// obviously illegal requests off the wire and lets the board reject a
// drop before rendering an optimistic move.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/lzhou/workdesk/internal/model"
)

// Trigger names a transition in the lifecycle table.
type Trigger string

const (
	TriggerStart   Trigger = "start"
	TriggerSubmit  Trigger = "submit"
	TriggerApprove Trigger = "approve"
	TriggerReject  Trigger = "reject"
	TriggerBlock   Trigger = "block"
	TriggerDismiss Trigger = "dismiss"

	// Backward transitions, reachable only via board drags and the
	// generic status-update endpoint.
	TriggerReset  Trigger = "reset"
	TriggerRecall Trigger = "recall"
	TriggerReopen Trigger = "reopen"
)

// Reason codes for illegal transitions.
const (
	ReasonInvalidTransition = "invalid-transition"
	ReasonUnauthorized      = "unauthorized"
	ReasonMissingField      = "missing-required-field"
)

// Error describes why a requested transition is illegal.
type Error struct {
	// Code is one of the Reason* constants.
	Code    string
	Trigger Trigger
	From    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s from %s", e.Code, e.Trigger, e.From)
}

// IsReason reports whether err is a transition Error with the given code.
func IsReason(err error, code string) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}

// Actor identifies the requesting user relative to the IAM hierarchy.
// ManagerOf reports the viewer's direct-report relationship and is
// supplied by the IAM collaborator; the engine never scans subordinate
// lists itself.
type Actor struct {
	UserID string

	// ManagerOf reports whether the actor is the direct manager of the
	// given user. A nil func means "manages nobody".
	ManagerOf func(userID string) bool
}

func (a Actor) isAssignee(t model.Todo) bool {
	return a.UserID != "" && a.UserID == t.AssigneeUserID
}

// isReviewer reports whether the actor holds the MANAGER role for the
// todo: the assignee's direct manager, or the todo's own creator. Both
// are kept eligible with no priority rule between them.
func (a Actor) isReviewer(t model.Todo) bool {
	if a.UserID == "" {
		return false
	}
	if a.UserID == t.CreatorUserID {
		return true
	}
	return a.ManagerOf != nil && a.ManagerOf(t.AssigneeUserID)
}

// Request is a transition request with its payload. Reason carries the
// block/dismiss reason or the reject comment, depending on the trigger.
type Request struct {
	Trigger Trigger
	Reason  string
}

// Result describes a legal transition: the resulting status and the
// side effects the caller must apply (locally for optimistic rendering;
// the server applies the same ones authoritatively).
type Result struct {
	Next string

	// NoOp is set when the target equals the current status and nothing
	// but a reason overwrite (if any) needs to happen.
	NoOp bool

	SetsDoneAt        bool
	SetsBlockedReason bool
	SetsDismissReason bool
	SetsReviewComment bool
	ClearsReview      bool
}

// edge is one row of the transition table.
type edge struct {
	from []string
	to   string

	// role requirements; exactly one of these sets applies per edge.
	assigneeOnly bool
	reviewerOnly bool
	either       bool

	requiresReason bool

	setsDoneAt        bool
	setsBlockedReason bool
	setsDismissReason bool
	setsReviewComment bool
	clearsReview      bool
}

var edges = map[Trigger]edge{
	TriggerStart: {
		from:         []string{model.StatusOpen},
		to:           model.StatusInProgress,
		assigneeOnly: true,
	},
	TriggerSubmit: {
		from:         []string{model.StatusOpen, model.StatusInProgress, model.StatusBlocked},
		to:           model.StatusPendingReview,
		assigneeOnly: true,
		clearsReview: true,
	},
	TriggerApprove: {
		from:         []string{model.StatusPendingReview},
		to:           model.StatusDone,
		reviewerOnly: true,
		setsDoneAt:   true,
	},
	TriggerReject: {
		from:              []string{model.StatusPendingReview},
		to:                model.StatusOpen,
		reviewerOnly:      true,
		requiresReason:    true,
		setsReviewComment: true,
	},
	TriggerBlock: {
		from: []string{
			model.StatusOpen, model.StatusInProgress,
			model.StatusPendingReview, model.StatusBlocked,
		},
		to:                model.StatusBlocked,
		assigneeOnly:      true,
		requiresReason:    true,
		setsBlockedReason: true,
	},
	TriggerDismiss: {
		from: []string{
			model.StatusOpen, model.StatusInProgress,
			model.StatusPendingReview, model.StatusBlocked, model.StatusDone,
		},
		to:                model.StatusDismissed,
		either:            true,
		requiresReason:    true,
		setsDismissReason: true,
	},
	TriggerReset: {
		from:   []string{model.StatusInProgress},
		to:     model.StatusOpen,
		either: true,
	},
	TriggerRecall: {
		from:   []string{model.StatusPendingReview},
		to:     model.StatusInProgress,
		either: true,
	},
	TriggerReopen: {
		from:   []string{model.StatusDone},
		to:     model.StatusInProgress,
		either: true,
	},
}

// Decide validates a transition request against the current todo and
// actor. It returns the legal Result or an *Error with a reason code.
//
// Check order follows the operation contract: a required reason that is
// missing always fails first regardless of the current status; a request
// whose target equals the current status succeeds as a no-op (with the
// reason overwrite still applied for reason-bearing triggers); then edge
// existence, then role.
func Decide(t model.Todo, actor Actor, req Request) (Result, error) {
	e, ok := edges[req.Trigger]
	if !ok {
		return Result{}, &Error{Code: ReasonInvalidTransition, Trigger: req.Trigger, From: t.Status}
	}

	if e.requiresReason && strings.TrimSpace(req.Reason) == "" {
		return Result{}, &Error{Code: ReasonMissingField, Trigger: req.Trigger, From: t.Status}
	}

	sameTarget := t.Status == e.to
	if !sameTarget && !contains(e.from, t.Status) {
		return Result{}, &Error{Code: ReasonInvalidTransition, Trigger: req.Trigger, From: t.Status}
	}

	switch {
	case e.assigneeOnly:
		if !actor.isAssignee(t) {
			return Result{}, &Error{Code: ReasonUnauthorized, Trigger: req.Trigger, From: t.Status}
		}
	case e.reviewerOnly:
		if !actor.isReviewer(t) {
			return Result{}, &Error{Code: ReasonUnauthorized, Trigger: req.Trigger, From: t.Status}
		}
	case e.either:
		if !actor.isAssignee(t) && !actor.isReviewer(t) {
			return Result{}, &Error{Code: ReasonUnauthorized, Trigger: req.Trigger, From: t.Status}
		}
	}

	res := Result{Next: e.to}
	if sameTarget {
		// Idempotent no-op; only a new reason still takes effect.
		res.NoOp = true
		res.SetsBlockedReason = e.setsBlockedReason
		res.SetsDismissReason = e.setsDismissReason
		return res, nil
	}

	res.SetsDoneAt = e.setsDoneAt
	res.SetsBlockedReason = e.setsBlockedReason
	res.SetsDismissReason = e.setsDismissReason
	res.SetsReviewComment = e.setsReviewComment
	res.ClearsReview = e.clearsReview
	return res, nil
}

// Allowed reports whether the actor could legally perform the trigger
// from the todo's current status, ignoring payload requirements. The
// detail presenter uses this to decide which actions to offer.
func Allowed(t model.Todo, actor Actor, trigger Trigger) bool {
	_, err := Decide(t, actor, Request{Trigger: trigger, Reason: "-"})
	return err == nil
}

// Apply returns a copy of the todo with the result's side effects
// applied, for optimistic local state. The server's eventual snapshot
// supersedes it.
func Apply(t model.Todo, res Result, req Request, now time.Time) model.Todo {
	if !res.NoOp {
		t.Status = res.Next
	}
	if res.SetsDoneAt && t.DoneAt == nil {
		at := now
		t.DoneAt = &at
	}
	if res.SetsBlockedReason {
		t.BlockedReason = req.Reason
	}
	if res.SetsDismissReason {
		t.DismissReason = req.Reason
	}
	if res.SetsReviewComment {
		t.ReviewComment = req.Reason
	}
	if res.ClearsReview {
		t.ReviewComment = ""
	}
	t.UpdatedAt = now
	return t
}

// TransitionForMove maps a (from, to) status pair to the transition a
// board drag should request. The second return is false when no edge
// connects the pair. Moves whose transition needs typed input (reject's
// comment) are reported via needsInput so the board can refuse the drop
// and point at the detail view instead.
func TransitionForMove(from, to string) (trigger Trigger, needsInput bool, ok bool) {
	for tr, e := range edges {
		if e.to != to || !contains(e.from, from) {
			continue
		}
		return tr, e.requiresReason, true
	}
	return "", false, false
}

// Triggers returns every trigger in the table. Test helper order is not
// guaranteed.
func Triggers() []Trigger {
	out := make([]Trigger, 0, len(edges))
	for tr := range edges {
		out = append(out, tr)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
