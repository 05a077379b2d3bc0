package bindings_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/relaypoint.go/internal/fakesvc"
	"github.com/relaypoint/relaypoint.go/pkg/connection"
	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
)

func TestTasksLoadDegroupsComments(t *testing.T) {
	h := newHarness(t)
	seeded := h.srv.SeedTask(models.Task{Title: "with comments", Status: models.TaskBacklog, Kind: models.TaskWork})
	h.srv.SeedComment(models.Comment{TaskID: seeded.ID, Body: "first"})
	h.srv.SeedComment(models.Comment{TaskID: seeded.ID, Body: "second"})

	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)

	items := tasks.Items()
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Comments, "parents in client state must not embed children")
	assert.Len(t, tasks.CommentsFor(seeded.ID), 2)
}

func TestTasksCreateConfirmsWithCanonicalID(t *testing.T) {
	h := newHarness(t)
	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)

	created, err := tasks.Create(context.Background(), models.Task{
		Title: "new work", Status: models.TaskBacklog, Kind: models.TaskWork,
	})
	require.NoError(t, err)

	got, ok := tasks.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "new work", got.Title)
	assert.False(t, got.CreatedAt.IsZero())

	// The fake now holds the record under the same canonical id.
	_, ok = h.srv.Task(created.ID)
	assert.True(t, ok)
}

func TestTasksCreateRejectionRemovesOptimisticRecord(t *testing.T) {
	h := newHarness(t)
	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)

	h.srv.Fail(fakesvc.Failure{
		Method: http.MethodPost, Path: "/tasks",
		Status: http.StatusForbidden, Message: "read-only member",
	})

	_, err := tasks.Create(context.Background(), models.Task{
		Title: "forbidden", Status: models.TaskBacklog, Kind: models.TaskWork,
	})
	require.Error(t, err)
	assert.True(t, connection.IsAuthorization(err))
	assert.Empty(t, tasks.Items(), "failed create must leave no residue")
}

func TestTasksValidationGates(t *testing.T) {
	h := newHarness(t)
	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)

	cases := []struct {
		name  string
		draft models.Task
	}{
		{"empty title", models.Task{Kind: models.TaskWork}},
		{"external without external owner", models.Task{
			Title: "x", Kind: models.TaskWork, Status: models.TaskExternal,
			Owners: []models.Owner{{UserID: models.NewUserID(), Side: models.SideInternal}},
		}},
		{"spec without path", models.Task{Title: "x", Kind: models.TaskSpec}},
		{"spec with non-markdown path", models.Task{Title: "x", Kind: models.TaskSpec, SpecPath: "docs/feature.txt"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tasks.Create(context.Background(), tc.draft)
			require.Error(t, err)
			assert.True(t, optimistic.IsValidation(err))
		})
	}
	assert.Empty(t, tasks.Items())
	assert.Equal(t, 0, h.srv.TaskCount(), "validation failures must never reach the wire")
}

func TestTasksUpdateRejectionRestoresPrior(t *testing.T) {
	h := newHarness(t)
	seeded := h.srv.SeedTask(models.Task{Title: "original", Status: models.TaskBacklog, Kind: models.TaskWork})

	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)

	h.srv.Fail(fakesvc.Failure{
		Method: http.MethodPatch, Path: "/tasks/" + seeded.ID.String(),
		Status: http.StatusUnprocessableEntity, Code: "status_locked", Message: "nope",
	})

	_, err := tasks.Update(context.Background(), seeded.ID, func(task models.Task) models.Task {
		task.Title = "changed"
		return task
	})
	require.Error(t, err)
	var bre *connection.BusinessRuleError
	require.ErrorAs(t, err, &bre)
	assert.Equal(t, "status_locked", bre.Code)

	got, ok := tasks.Get(seeded.ID)
	require.True(t, ok)
	assert.Equal(t, "original", got.Title)
}

func TestTasksDeleteRejectionRestoresAtPosition(t *testing.T) {
	h := newHarness(t)
	h.srv.SeedTask(models.Task{Title: "a", Status: models.TaskBacklog, Kind: models.TaskWork})
	b := h.srv.SeedTask(models.Task{Title: "b", Status: models.TaskBacklog, Kind: models.TaskWork})
	h.srv.SeedTask(models.Task{Title: "c", Status: models.TaskBacklog, Kind: models.TaskWork})

	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)

	h.srv.Fail(fakesvc.Failure{
		Method: http.MethodDelete, Path: "/tasks/" + b.ID.String(),
		Status: http.StatusForbidden, Message: "nope",
	})

	require.Error(t, tasks.Delete(context.Background(), b.ID))

	items := tasks.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "b", items[1].Title, "record must come back at its captured position")
}

func TestTasksPassBall(t *testing.T) {
	h := newHarness(t)
	seeded := h.srv.SeedTask(models.Task{Title: "handoff", Status: models.TaskInProgress, Kind: models.TaskWork})

	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)

	to := models.NewUserID()
	require.NoError(t, tasks.PassBall(context.Background(), seeded.ID, to))

	got, ok := tasks.Get(seeded.ID)
	require.True(t, ok)
	assert.Equal(t, to, got.BallHolder)
	assert.NotEmpty(t, got.Owners, "the transaction also adds the holder as owner")
}

func TestTasksPassBallRejectionRefetches(t *testing.T) {
	h := newHarness(t)
	seeded := h.srv.SeedTask(models.Task{Title: "handoff", Status: models.TaskInProgress, Kind: models.TaskWork})

	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)

	h.srv.Fail(fakesvc.Failure{
		Method: http.MethodPost, Path: "/rpc/task.pass_ball",
		Status: http.StatusUnprocessableEntity, Code: "ball_not_held", Message: "caller does not hold the ball",
	})

	to := models.NewUserID()
	err := tasks.PassBall(context.Background(), seeded.ID, to)
	require.Error(t, err)

	got, ok := tasks.Get(seeded.ID)
	require.True(t, ok)
	assert.NotEqual(t, to, got.BallHolder, "the optimistic holder must not survive the failure")
	assert.Empty(t, got.Owners)
}

func TestTasksRescopeClearsState(t *testing.T) {
	h := newHarness(t)
	h.srv.SeedTask(models.Task{Title: "old scope", Status: models.TaskBacklog, Kind: models.TaskWork})

	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)
	require.Len(t, tasks.Items(), 1)

	tasks.Rescope(models.Scope{Org: models.NewOrgID(), Space: models.NewSpaceID()})
	assert.Empty(t, tasks.Items(), "rescoping must drop the previous space's records")
}

func TestTasksMutationsAnnounceEffects(t *testing.T) {
	h := newHarness(t)
	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)

	_, err := tasks.Create(context.Background(), models.Task{
		Title: "announced", Status: models.TaskBacklog, Kind: models.TaskWork,
	})
	require.NoError(t, err)

	h.effects.Close()
	notify, audit := h.srv.SideEffectCounts()
	assert.Equal(t, 1, notify)
	assert.Equal(t, 1, audit)
}

func TestTasksEffectFailureDoesNotAffectMutation(t *testing.T) {
	h := newHarness(t)
	tasks := h.tasks(t)
	mustLoadTasks(t, tasks)

	h.srv.Fail(fakesvc.Failure{
		Method: http.MethodPost, Path: "/notify",
		Status: http.StatusInternalServerError, Message: "notifier down",
	})

	created, err := tasks.Create(context.Background(), models.Task{
		Title: "still created", Status: models.TaskBacklog, Kind: models.TaskWork,
	})
	require.NoError(t, err, "a failed side effect must never fail the mutation")

	h.effects.Close()
	_, ok := tasks.Get(created.ID)
	assert.True(t, ok)
}
