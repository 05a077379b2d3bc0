package bindings

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
)

// specPathPattern is the required shape of a specification document path:
// slash-separated segments ending in a markdown file.
var specPathPattern = regexp.MustCompile(`^(?:[\w.-]+/)*[\w.-]+\.md$`)

// Tasks binds the optimistic layer to the task entity. Task list rows embed
// their comments; the binding degroups them into a relation map exposed
// through [Tasks.CommentsFor] and the Comments binding.
type Tasks struct {
	deps     Deps
	state    scopedState
	engine   *optimistic.Engine[models.Task]
	comments *optimistic.Relations[models.Comment]
}

// NewTasks assembles the task binding.
func NewTasks(deps Deps) *Tasks {
	t := &Tasks{
		deps:     deps,
		comments: optimistic.NewRelations[models.Comment](),
	}
	t.state.init("tasks")
	col := optimistic.NewCollection(func(task models.Task) string { return task.ID.String() })
	shape := optimistic.Shape[models.Task]{
		Name: "task",
		ID:   func(task models.Task) string { return task.ID.String() },
		WithTempID: func(task models.Task) models.Task {
			now := time.Now().UTC()
			task.ID = models.NewTaskID()
			task.CreatedAt = now
			task.UpdatedAt = now
			scope, _ := t.state.current()
			task.Scope = scope
			return task
		},
		Clone:   models.Task.Clone,
		Prepend: true,
	}
	remote := optimistic.Remote[models.Task]{
		Create: func(ctx context.Context, draft models.Task) (models.Task, error) {
			var out models.Task
			err := deps.Conn.Create(ctx, "/tasks", draft, &out)
			return out, err
		},
		Update: func(ctx context.Context, id string, record models.Task) (*models.Task, error) {
			var out models.Task
			if err := deps.Conn.Update(ctx, "/tasks/"+id, record, &out); err != nil {
				return nil, err
			}
			if out.ID.IsZero() {
				return nil, nil
			}
			return &out, nil
		},
		Delete: func(ctx context.Context, id string) error {
			return deps.Conn.Delete(ctx, "/tasks/"+id)
		},
		Get: func(ctx context.Context, id string) (models.Task, error) {
			var out models.Task
			err := deps.Conn.Fetch(ctx, "/tasks/"+id, nil, &out)
			return out, err
		},
	}
	t.engine = optimistic.NewEngine(col, shape, remote, validateTask, deps.Log)
	return t
}

// validateTask is the local gate run before any optimistic apply. It only
// enforces invariants the client UI is responsible for; the server re-checks
// everything.
func validateTask(t models.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return &optimistic.ValidationError{Entity: "task", Field: "title", Reason: "must not be empty"}
	}
	if t.Status == models.TaskExternal && len(t.ExternalOwners()) == 0 {
		return &optimistic.ValidationError{
			Entity: "task", Field: "owners",
			Reason: "an external-facing task needs at least one external-side owner",
		}
	}
	if t.Kind == models.TaskSpec && !specPathPattern.MatchString(t.SpecPath) {
		return &optimistic.ValidationError{
			Entity: "task", Field: "spec_path",
			Reason: "a spec task needs a path like docs/feature.md",
		}
	}
	return nil
}

// Rescope points the binding at a new tenant scope. In-flight fetches for
// the old scope are permanently disposed and local state is cleared.
func (t *Tasks) Rescope(scope models.Scope) {
	t.state.rescope(t.deps.Seq, scope)
	t.engine.Collection().Replace(nil)
	t.comments.Rebuild(nil)
}

// Load fetches the task list for the active scope and filter. A response
// superseded by a later Load (or by a Rescope) is silently discarded,
// including its error.
func (t *Tasks) Load(ctx context.Context, filter url.Values) error {
	token := t.state.begin(t.deps.Seq)

	var rows []models.Task
	err := t.deps.Conn.Fetch(ctx, "/tasks", filter, &rows)
	if !t.deps.Seq.Current(token) {
		return nil
	}
	if err != nil {
		return err
	}

	parents, byTask := optimistic.Degroup(rows,
		func(task *models.Task) []models.Comment {
			kids := task.Comments
			task.Comments = nil
			return kids
		},
		func(task models.Task) string { return task.ID.String() },
	)
	t.engine.Collection().Replace(parents)
	t.comments.Rebuild(byTask)
	return nil
}

// Items returns the current task list.
func (t *Tasks) Items() []models.Task { return t.engine.Collection().Items() }

// Get returns one task from local state.
func (t *Tasks) Get(id models.TaskID) (models.Task, bool) {
	return t.engine.Collection().Get(id.String())
}

// CommentsFor returns the comments currently known for a task.
func (t *Tasks) CommentsFor(id models.TaskID) []models.Comment {
	return t.comments.Get(id.String())
}

// Create optimistically inserts the draft and confirms it against the
// service.
func (t *Tasks) Create(ctx context.Context, draft models.Task) (models.Task, error) {
	created, err := t.engine.Create(ctx, draft)
	if err != nil {
		return models.Task{}, err
	}
	t.deps.announce("task", created.ID.String(), "created")
	return created, nil
}

// Update applies patch optimistically and confirms it against the service.
func (t *Tasks) Update(ctx context.Context, id models.TaskID, patch func(models.Task) models.Task) (models.Task, error) {
	updated, err := t.engine.Update(ctx, id.String(), patch)
	if err != nil {
		return models.Task{}, err
	}
	t.deps.announce("task", id.String(), "updated")
	return updated, nil
}

// Delete optimistically removes the task and confirms against the service.
func (t *Tasks) Delete(ctx context.Context, id models.TaskID) error {
	if err := t.engine.Delete(ctx, id.String()); err != nil {
		return err
	}
	t.deps.announce("task", id.String(), "deleted")
	return nil
}

type passBallParams struct {
	TaskID models.TaskID `json:"task_id"`
	To     models.UserID `json:"to"`
}

// PassBall hands responsibility for the task to another user. The server
// transaction also touches owner rows the client cannot predict, so the
// optimistic patch covers only the ball holder; on success the task's
// comment relation is refreshed, on failure the single task is refetched.
func (t *Tasks) PassBall(ctx context.Context, id models.TaskID, to models.UserID) error {
	err := t.engine.Procedure(ctx, id.String(),
		func(task models.Task) models.Task {
			task.BallHolder = to
			return task
		},
		func(ctx context.Context) (*models.Task, error) {
			var out models.Task
			if err := t.deps.Conn.Call(ctx, "task.pass_ball", passBallParams{TaskID: id, To: to}, &out); err != nil {
				return nil, err
			}
			return &out, nil
		},
	)
	if err != nil {
		return err
	}
	t.refreshComments(ctx, id)
	t.deps.announce("task", id.String(), "ball_passed")
	return nil
}

// refreshComments reloads one task's dependent comment relation. The primary
// operation already succeeded, so a failed refresh is logged and the stale
// relation stands until the next full fetch.
func (t *Tasks) refreshComments(ctx context.Context, id models.TaskID) {
	var kids []models.Comment
	if err := t.deps.Conn.Fetch(ctx, "/tasks/"+id.String()+"/comments", nil, &kids); err != nil {
		t.deps.Log.Warn().Str("task", id.String()).Err(err).Msg("comment relation refresh failed")
		return
	}
	t.comments.Replace(id.String(), kids)
}

// relations exposes the comment relation map to the Comments binding.
func (t *Tasks) relations() *optimistic.Relations[models.Comment] { return t.comments }
