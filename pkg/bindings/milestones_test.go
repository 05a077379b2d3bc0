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

func TestMilestonesCRUD(t *testing.T) {
	h := newHarness(t)
	ms := h.milestones(t)
	require.NoError(t, ms.Load(context.Background(), nil))

	created, err := ms.Create(context.Background(), models.Milestone{Name: "v1.0", Color: "#7c3aed"})
	require.NoError(t, err)

	updated, err := ms.Update(context.Background(), created.ID, func(m models.Milestone) models.Milestone {
		m.Name = "v1.1"
		return m
	})
	require.NoError(t, err)
	assert.Equal(t, "v1.1", updated.Name)

	require.NoError(t, ms.Delete(context.Background(), created.ID))
	assert.Empty(t, ms.Items())
}

func TestMilestonesValidation(t *testing.T) {
	h := newHarness(t)
	ms := h.milestones(t)

	_, err := ms.Create(context.Background(), models.Milestone{Name: "   "})
	require.Error(t, err)
	assert.True(t, optimistic.IsValidation(err))
}

func TestMilestonesUpdateRejectionRestoresPrior(t *testing.T) {
	h := newHarness(t)
	seeded := h.srv.SeedMilestone(models.Milestone{Name: "frozen"})

	ms := h.milestones(t)
	require.NoError(t, ms.Load(context.Background(), nil))

	h.srv.Fail(fakesvc.Failure{
		Method: http.MethodPatch, Path: "/milestones/" + seeded.ID.String(),
		Status: http.StatusUnprocessableEntity, Code: "milestone_locked", Message: "nope",
	})

	_, err := ms.Update(context.Background(), seeded.ID, func(m models.Milestone) models.Milestone {
		m.Name = "thawed"
		return m
	})
	require.Error(t, err)

	got, ok := ms.Get(seeded.ID)
	require.True(t, ok)
	assert.Equal(t, "frozen", got.Name)
}
