package relaypoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/relaypoint.go"
	"github.com/relaypoint/relaypoint.go/internal/fakesvc"
	"github.com/relaypoint/relaypoint.go/pkg/models"
)

func newClient(t *testing.T) (*relaypoint.Client, *fakesvc.Server) {
	t.Helper()
	srv := fakesvc.New()
	t.Cleanup(srv.Close)

	client, err := relaypoint.New(srv.URL())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	client.Authenticate("test-token")
	client.Use(models.NewOrgID(), models.NewSpaceID())
	return client, srv
}

func TestClientSmoke(t *testing.T) {
	client, srv := newClient(t)
	ctx := context.Background()

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.Me.ID, me.ID)

	require.NoError(t, client.Tasks.Load(ctx, nil))
	task, err := client.Tasks.Create(ctx, models.Task{
		Title: "first task", Status: models.TaskBacklog, Kind: models.TaskWork,
	})
	require.NoError(t, err)

	comment, err := client.Comments.Add(ctx, task.ID, "kicking this off")
	require.NoError(t, err)
	assert.Equal(t, me.ID, comment.AuthorID)

	review, err := client.Reviews.Request(ctx, task.ID, me.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, review.State)
}

func TestClientUseSwitchesScopeState(t *testing.T) {
	client, srv := newClient(t)
	ctx := context.Background()

	srv.SeedTask(models.Task{Title: "space one", Status: models.TaskBacklog, Kind: models.TaskWork})
	require.NoError(t, client.Tasks.Load(ctx, nil))
	require.Len(t, client.Tasks.Items(), 1)

	client.Use(models.NewOrgID(), models.NewSpaceID())
	assert.Empty(t, client.Tasks.Items(), "switching space must clear the previous space's state")
	assert.Empty(t, client.Meetings.Items())
	assert.Empty(t, client.Milestones.Items())
	assert.Empty(t, client.Reviews.Items())
}

func TestClientAuthenticateInvalidatesSession(t *testing.T) {
	client, srv := newClient(t)
	ctx := context.Background()

	first, err := client.Me(ctx)
	require.NoError(t, err)

	srv.Me = models.User{ID: models.NewUserID(), Name: "Next User"}
	client.Authenticate("other-token")

	second, err := client.Me(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestClientCloseDrainsEffects(t *testing.T) {
	srv := fakesvc.New()
	defer srv.Close()

	client, err := relaypoint.New(srv.URL())
	require.NoError(t, err)
	client.Authenticate("test-token")
	client.Use(models.NewOrgID(), models.NewSpaceID())

	ctx := context.Background()
	require.NoError(t, client.Tasks.Load(ctx, nil))
	_, err = client.Tasks.Create(ctx, models.Task{
		Title: "announced", Status: models.TaskBacklog, Kind: models.TaskWork,
	})
	require.NoError(t, err)

	require.NoError(t, client.Close())

	notify, audit := srv.SideEffectCounts()
	assert.Equal(t, 1, notify)
	assert.Equal(t, 1, audit)
}
