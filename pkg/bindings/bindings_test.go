package bindings_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/relaypoint.go/internal/fakesvc"
	"github.com/relaypoint/relaypoint.go/pkg/bindings"
	"github.com/relaypoint/relaypoint.go/pkg/connection"
	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
	"github.com/relaypoint/relaypoint.go/pkg/session"
)

// harness wires one binding set against an in-process fake service.
type harness struct {
	srv     *fakesvc.Server
	deps    bindings.Deps
	effects *optimistic.Dispatcher
	scope   models.Scope
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := fakesvc.New()
	t.Cleanup(srv.Close)

	conn := connection.NewHTTP(srv.URL())
	conn.SetToken("test-token")
	effects := optimistic.NewDispatcher(zerolog.Nop())
	t.Cleanup(effects.Close)

	sess := session.NewCache(func(ctx context.Context) (models.User, error) {
		var u models.User
		err := conn.Fetch(ctx, "/me", nil, &u)
		return u, err
	})

	scope := models.Scope{Org: models.NewOrgID(), Space: models.NewSpaceID()}
	conn.UseScope(scope)

	return &harness{
		srv: srv,
		deps: bindings.Deps{
			Conn:    conn,
			Seq:     optimistic.NewSequencer(),
			Effects: effects,
			Session: sess,
			Log:     zerolog.Nop(),
		},
		effects: effects,
		scope:   scope,
	}
}

func (h *harness) tasks(t *testing.T) *bindings.Tasks {
	t.Helper()
	tasks := bindings.NewTasks(h.deps)
	tasks.Rescope(h.scope)
	return tasks
}

func (h *harness) meetings(t *testing.T) *bindings.Meetings {
	t.Helper()
	meetings := bindings.NewMeetings(h.deps)
	meetings.Rescope(h.scope)
	return meetings
}

func (h *harness) milestones(t *testing.T) *bindings.Milestones {
	t.Helper()
	ms := bindings.NewMilestones(h.deps)
	ms.Rescope(h.scope)
	return ms
}

func (h *harness) reviews(t *testing.T, tasks *bindings.Tasks) *bindings.Reviews {
	t.Helper()
	rv := bindings.NewReviews(h.deps, tasks)
	rv.Rescope(h.scope)
	return rv
}

func mustLoadTasks(t *testing.T, tasks *bindings.Tasks) {
	t.Helper()
	require.NoError(t, tasks.Load(context.Background(), nil))
}
