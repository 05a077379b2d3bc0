package bindings

import (
	"context"
	"net/url"
	"time"

	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
)

// Reviews binds the optimistic layer to task reviews. Review decisions are
// compound server transactions (they may flip the reviewed task's status),
// so Approve and RequestChanges run as named procedures with the coarse
// recovery path rather than plain updates.
type Reviews struct {
	deps   Deps
	state  scopedState
	engine *optimistic.Engine[models.Review]
	tasks  *Tasks
}

// NewReviews assembles the review binding. tasks is needed so a decided
// review can refresh the affected task row.
func NewReviews(deps Deps, tasks *Tasks) *Reviews {
	r := &Reviews{deps: deps, tasks: tasks}
	r.state.init("reviews")
	col := optimistic.NewCollection(func(rv models.Review) string { return rv.ID.String() })
	shape := optimistic.Shape[models.Review]{
		Name: "review",
		ID:   func(rv models.Review) string { return rv.ID.String() },
		WithTempID: func(rv models.Review) models.Review {
			now := time.Now().UTC()
			rv.ID = models.NewReviewID()
			rv.CreatedAt = now
			rv.UpdatedAt = now
			rv.State = models.ReviewPending
			scope, _ := r.state.current()
			rv.Scope = scope
			return rv
		},
		Clone: models.Review.Clone,
	}
	remote := optimistic.Remote[models.Review]{
		Create: func(ctx context.Context, draft models.Review) (models.Review, error) {
			var out models.Review
			err := deps.Conn.Create(ctx, "/reviews", draft, &out)
			return out, err
		},
		Update: func(ctx context.Context, id string, record models.Review) (*models.Review, error) {
			var out models.Review
			if err := deps.Conn.Update(ctx, "/reviews/"+id, record, &out); err != nil {
				return nil, err
			}
			if out.ID.IsZero() {
				return nil, nil
			}
			return &out, nil
		},
		Delete: func(ctx context.Context, id string) error {
			return deps.Conn.Delete(ctx, "/reviews/"+id)
		},
		Get: func(ctx context.Context, id string) (models.Review, error) {
			var out models.Review
			err := deps.Conn.Fetch(ctx, "/reviews/"+id, nil, &out)
			return out, err
		},
	}
	r.engine = optimistic.NewEngine(col, shape, remote, validateReview, deps.Log)
	return r
}

func validateReview(rv models.Review) error {
	if rv.TaskID.IsZero() {
		return &optimistic.ValidationError{Entity: "review", Field: "task_id", Reason: "must reference a task"}
	}
	if rv.ReviewerID.IsZero() {
		return &optimistic.ValidationError{Entity: "review", Field: "reviewer_id", Reason: "must name a reviewer"}
	}
	return nil
}

// Rescope points the binding at a new tenant scope.
func (r *Reviews) Rescope(scope models.Scope) {
	r.state.rescope(r.deps.Seq, scope)
	r.engine.Collection().Replace(nil)
}

// Load fetches the review list for the active scope.
func (r *Reviews) Load(ctx context.Context, filter url.Values) error {
	token := r.state.begin(r.deps.Seq)

	var rows []models.Review
	err := r.deps.Conn.Fetch(ctx, "/reviews", filter, &rows)
	if !r.deps.Seq.Current(token) {
		return nil
	}
	if err != nil {
		return err
	}
	r.engine.Collection().Replace(rows)
	return nil
}

// Items returns the current review list.
func (r *Reviews) Items() []models.Review { return r.engine.Collection().Items() }

// Get returns one review from local state.
func (r *Reviews) Get(id models.ReviewID) (models.Review, bool) {
	return r.engine.Collection().Get(id.String())
}

// Request optimistically creates a pending review on a task and confirms it
// against the service.
func (r *Reviews) Request(ctx context.Context, taskID models.TaskID, reviewerID models.UserID) (models.Review, error) {
	created, err := r.engine.Create(ctx, models.Review{TaskID: taskID, ReviewerID: reviewerID})
	if err != nil {
		return models.Review{}, err
	}
	r.deps.announce("review", created.ID.String(), "requested")
	return created, nil
}

// Withdraw optimistically removes a pending review and confirms against the
// service.
func (r *Reviews) Withdraw(ctx context.Context, id models.ReviewID) error {
	if err := r.engine.Delete(ctx, id.String()); err != nil {
		return err
	}
	r.deps.announce("review", id.String(), "withdrawn")
	return nil
}

type reviewDecisionParams struct {
	ReviewID models.ReviewID `json:"review_id"`
	Note     string          `json:"note,omitempty"`
}

// Approve records an approving decision. The server transaction may also
// advance the reviewed task out of waiting_review, so on success the task
// row is refreshed from the service.
func (r *Reviews) Approve(ctx context.Context, id models.ReviewID, note string) error {
	return r.decide(ctx, id, "review.approve", "approved", models.ReviewApproved, note)
}

// RequestChanges records a changes-requested decision, mirroring Approve.
func (r *Reviews) RequestChanges(ctx context.Context, id models.ReviewID, note string) error {
	return r.decide(ctx, id, "review.request_changes", "changes_requested", models.ReviewChangesRequested, note)
}

func (r *Reviews) decide(ctx context.Context, id models.ReviewID, proc, event string, state models.ReviewState, note string) error {
	var taskID models.TaskID
	err := r.engine.Procedure(ctx, id.String(),
		func(rv models.Review) models.Review {
			now := time.Now().UTC()
			rv.State = state
			rv.Note = note
			rv.DecidedAt = &now
			taskID = rv.TaskID
			return rv
		},
		func(ctx context.Context) (*models.Review, error) {
			var out models.Review
			if err := r.deps.Conn.Call(ctx, proc, reviewDecisionParams{ReviewID: id, Note: note}, &out); err != nil {
				return nil, err
			}
			return &out, nil
		},
	)
	if err != nil {
		return err
	}
	r.refreshTask(ctx, taskID)
	r.deps.announce("review", id.String(), event)
	return nil
}

// refreshTask reloads the reviewed task after a decision. The decision
// already succeeded, so a failed refresh is logged and the stale task row
// stands until the next full fetch.
func (r *Reviews) refreshTask(ctx context.Context, id models.TaskID) {
	if r.tasks == nil || id.IsZero() {
		return
	}
	var out models.Task
	if err := r.deps.Conn.Fetch(ctx, "/tasks/"+id.String(), nil, &out); err != nil {
		r.deps.Log.Warn().Str("task", id.String()).Err(err).Msg("task refresh after review decision failed")
		return
	}
	out.Comments = nil
	r.tasks.engine.Collection().Swap(id.String(), out)
}
