package bindings_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/relaypoint.go/internal/fakesvc"
	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
)

func TestReviewsRequest(t *testing.T) {
	h := newHarness(t)
	task := h.srv.SeedTask(models.Task{Title: "reviewed", Status: models.TaskWaitingReview, Kind: models.TaskWork})

	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)
	reviews := h.reviews(t, tasks)
	require.NoError(t, reviews.Load(context.Background(), nil))

	created, err := reviews.Request(context.Background(), task.ID, models.NewUserID())
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, created.State)

	got, ok := reviews.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, task.ID, got.TaskID)
}

func TestReviewsRequestValidation(t *testing.T) {
	h := newHarness(t)
	tasks := h.tasks(t)
	reviews := h.reviews(t, tasks)

	_, err := reviews.Request(context.Background(), models.TaskID{}, models.NewUserID())
	require.Error(t, err)
	assert.True(t, optimistic.IsValidation(err))

	_, err = reviews.Request(context.Background(), models.NewTaskID(), models.UserID{})
	require.Error(t, err)
	assert.True(t, optimistic.IsValidation(err))
}

func TestReviewsApproveAdvancesTask(t *testing.T) {
	h := newHarness(t)
	task := h.srv.SeedTask(models.Task{Title: "gated", Status: models.TaskWaitingReview, Kind: models.TaskWork})
	review := h.srv.SeedReview(models.Review{TaskID: task.ID, ReviewerID: h.srv.Me.ID})

	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)
	reviews := h.reviews(t, tasks)
	require.NoError(t, reviews.Load(context.Background(), nil))

	require.NoError(t, reviews.Approve(context.Background(), review.ID, "ship it"))

	got, ok := reviews.Get(review.ID)
	require.True(t, ok)
	assert.Equal(t, models.ReviewApproved, got.State)
	assert.Equal(t, "ship it", got.Note)
	require.NotNil(t, got.DecidedAt)

	refreshed, ok := tasks.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, models.TaskDone, refreshed.Status, "the approval transaction advances the task")
}

func TestReviewsRequestChanges(t *testing.T) {
	h := newHarness(t)
	task := h.srv.SeedTask(models.Task{Title: "gated", Status: models.TaskWaitingReview, Kind: models.TaskWork})
	review := h.srv.SeedReview(models.Review{TaskID: task.ID, ReviewerID: h.srv.Me.ID})

	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)
	reviews := h.reviews(t, tasks)
	require.NoError(t, reviews.Load(context.Background(), nil))

	require.NoError(t, reviews.RequestChanges(context.Background(), review.ID, "needs tests"))

	got, _ := reviews.Get(review.ID)
	assert.Equal(t, models.ReviewChangesRequested, got.State)

	refreshed, _ := tasks.Get(task.ID)
	assert.Equal(t, models.TaskWaitingReview, refreshed.Status, "changes requested leaves the task gated")
}

func TestReviewsDecisionRejectionRefetches(t *testing.T) {
	h := newHarness(t)
	task := h.srv.SeedTask(models.Task{Title: "gated", Status: models.TaskWaitingReview, Kind: models.TaskWork})
	review := h.srv.SeedReview(models.Review{TaskID: task.ID, ReviewerID: h.srv.Me.ID})

	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)
	reviews := h.reviews(t, tasks)
	require.NoError(t, reviews.Load(context.Background(), nil))

	h.srv.Fail(fakesvc.Failure{
		Method: http.MethodPost, Path: "/rpc/review.approve",
		Status: http.StatusConflict, Code: "already_decided", Message: "raced another reviewer",
	})

	require.Error(t, reviews.Approve(context.Background(), review.ID, "late"))

	got, ok := reviews.Get(review.ID)
	require.True(t, ok)
	assert.Equal(t, models.ReviewPending, got.State, "optimistic decision must not survive the failure")
	assert.Nil(t, got.DecidedAt)
}
