package bindings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
)

// Comments binds the optimistic cycle to task comments. Comments are child
// records: they live in the relation map owned by the Tasks binding, rebuilt
// on every task fetch, so the optimistic apply/confirm/rollback here runs
// against the map rather than an ordered collection.
type Comments struct {
	deps  Deps
	tasks *Tasks
}

// NewComments assembles the comment binding over the task binding's relation
// map.
func NewComments(deps Deps, tasks *Tasks) *Comments {
	return &Comments{deps: deps, tasks: tasks}
}

// For returns the comments currently known for a task.
func (c *Comments) For(taskID models.TaskID) []models.Comment {
	return c.tasks.CommentsFor(taskID)
}

func validateComment(cm models.Comment) error {
	if cm.TaskID.IsZero() {
		return &optimistic.ValidationError{Entity: "comment", Field: "task_id", Reason: "must reference a task"}
	}
	if strings.TrimSpace(cm.Body) == "" {
		return &optimistic.ValidationError{Entity: "comment", Field: "body", Reason: "must not be empty"}
	}
	return nil
}

// Add optimistically appends a comment under the task and confirms it
// against the service. On failure the temporary comment is removed and the
// error returned; on success the temporary record is replaced by the
// canonical one.
func (c *Comments) Add(ctx context.Context, taskID models.TaskID, body string) (models.Comment, error) {
	author, err := c.deps.Session.Current(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("add comment: resolve author: %w", err)
	}

	scope, _ := c.tasks.state.current()
	now := time.Now().UTC()
	tmp := models.Comment{
		ID:        models.NewCommentID(),
		Scope:     scope,
		TaskID:    taskID,
		AuthorID:  author.ID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateComment(tmp); err != nil {
		return models.Comment{}, err
	}

	rel := c.tasks.relations()
	parent := taskID.String()
	tmpID := tmp.ID
	rel.Append(parent, tmp)

	var canonical models.Comment
	if err := c.deps.Conn.Create(ctx, "/comments", tmp, &canonical); err != nil {
		rel.Remove(parent, func(cm models.Comment) bool { return cm.ID == tmpID })
		return models.Comment{}, fmt.Errorf("create comment: %w", err)
	}

	rel.Swap(parent, func(cm models.Comment) bool { return cm.ID == tmpID }, canonical)
	c.deps.announce("comment", canonical.ID.String(), "created")
	return canonical, nil
}

// Edit patches a comment's body optimistically and confirms it against the
// service, restoring exactly the captured prior value on failure.
func (c *Comments) Edit(ctx context.Context, taskID models.TaskID, id models.CommentID, body string) (models.Comment, error) {
	rel := c.tasks.relations()
	parent := taskID.String()

	var prior models.Comment
	found := false
	for _, cm := range rel.Get(parent) {
		if cm.ID == id {
			prior = cm.Clone()
			found = true
			break
		}
	}
	if !found {
		return models.Comment{}, fmt.Errorf("edit comment %s: %w", id, optimistic.ErrNoSuchRecord)
	}

	patched := prior.Clone()
	patched.Body = body
	if err := validateComment(patched); err != nil {
		return models.Comment{}, err
	}

	rel.Swap(parent, func(cm models.Comment) bool { return cm.ID == id }, patched)

	var out models.Comment
	if err := c.deps.Conn.Update(ctx, "/comments/"+id.String(), patched, &out); err != nil {
		rel.Swap(parent, func(cm models.Comment) bool { return cm.ID == id }, prior)
		return models.Comment{}, fmt.Errorf("update comment %s: %w", id, err)
	}
	if !out.ID.IsZero() {
		rel.Swap(parent, func(cm models.Comment) bool { return cm.ID == id }, out)
		patched = out
	}
	c.deps.announce("comment", id.String(), "updated")
	return patched, nil
}

// Remove optimistically deletes a comment and confirms against the service,
// restoring the captured record on failure.
func (c *Comments) Remove(ctx context.Context, taskID models.TaskID, id models.CommentID) error {
	rel := c.tasks.relations()
	parent := taskID.String()

	var captured models.Comment
	found := false
	for _, cm := range rel.Get(parent) {
		if cm.ID == id {
			captured = cm.Clone()
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("remove comment %s: %w", id, optimistic.ErrNoSuchRecord)
	}

	rel.Remove(parent, func(cm models.Comment) bool { return cm.ID == id })

	if err := c.deps.Conn.Delete(ctx, "/comments/"+id.String()); err != nil {
		rel.Append(parent, captured)
		return fmt.Errorf("delete comment %s: %w", id, err)
	}
	c.deps.announce("comment", id.String(), "deleted")
	return nil
}
