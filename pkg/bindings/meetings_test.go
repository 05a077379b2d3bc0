package bindings_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/relaypoint.go/internal/fakesvc"
	"github.com/relaypoint/relaypoint.go/pkg/bindings"
	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
)

func seedMeeting(h *harness, title string) models.Meeting {
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	return h.srv.SeedMeeting(models.Meeting{
		Title:    title,
		Status:   models.MeetingProposed,
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
	})
}

func TestMeetingsLoadDegroupsProposals(t *testing.T) {
	h := newHarness(t)
	m := seedMeeting(h, "kickoff")
	h.srv.SeedProposal(models.Proposal{MeetingID: m.ID, StartsAt: m.StartsAt, EndsAt: m.EndsAt})

	meetings := h.meetings(t)
	require.NoError(t, meetings.Load(context.Background(), nil))

	items := meetings.Items()
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Proposals)
	assert.Len(t, meetings.ProposalsFor(m.ID), 1)
}

func TestMeetingsValidation(t *testing.T) {
	h := newHarness(t)
	meetings := h.meetings(t)
	require.NoError(t, meetings.Load(context.Background(), nil))

	now := time.Now().UTC()
	_, err := meetings.Create(context.Background(), models.Meeting{
		Title: "backwards", StartsAt: now, EndsAt: now.Add(-time.Hour),
	})
	require.Error(t, err)
	assert.True(t, optimistic.IsValidation(err))

	_, err = meetings.Create(context.Background(), models.Meeting{
		StartsAt: now, EndsAt: now.Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, optimistic.IsValidation(err))
}

func TestProposalsAcceptFixesMeetingAndDropsCompetitors(t *testing.T) {
	h := newHarness(t)
	m := seedMeeting(h, "scheduling")
	slotA := h.srv.SeedProposal(models.Proposal{
		MeetingID: m.ID,
		StartsAt:  m.StartsAt.Add(2 * time.Hour),
		EndsAt:    m.StartsAt.Add(3 * time.Hour),
	})
	h.srv.SeedProposal(models.Proposal{
		MeetingID: m.ID,
		StartsAt:  m.StartsAt.Add(4 * time.Hour),
		EndsAt:    m.StartsAt.Add(5 * time.Hour),
	})

	meetings := h.meetings(t)
	require.NoError(t, meetings.Load(context.Background(), nil))
	proposals := bindings.NewProposals(h.deps, meetings)

	require.NoError(t, proposals.Accept(context.Background(), m.ID, slotA.ID))

	got, ok := meetings.Get(m.ID)
	require.True(t, ok)
	assert.Equal(t, models.MeetingFixed, got.Status)
	assert.True(t, got.StartsAt.Equal(slotA.StartsAt), "the meeting takes the accepted slot's time")

	remaining := proposals.For(m.ID)
	require.Len(t, remaining, 1, "competing proposals are dropped by the transaction")
	assert.Equal(t, slotA.ID, remaining[0].ID)
	assert.True(t, remaining[0].Accepted)
}

func TestProposalsAcceptUnknownProposal(t *testing.T) {
	h := newHarness(t)
	m := seedMeeting(h, "scheduling")
	h.srv.SeedProposal(models.Proposal{
		MeetingID: m.ID,
		StartsAt:  m.StartsAt.Add(2 * time.Hour),
		EndsAt:    m.StartsAt.Add(3 * time.Hour),
	})

	meetings := h.meetings(t)
	require.NoError(t, meetings.Load(context.Background(), nil))
	proposals := bindings.NewProposals(h.deps, meetings)

	err := proposals.Accept(context.Background(), m.ID, models.NewProposalID())
	require.ErrorIs(t, err, optimistic.ErrNoSuchRecord)

	// No placeholder record may be installed for the unknown id.
	remaining := proposals.For(m.ID)
	require.Len(t, remaining, 1)
	assert.False(t, remaining[0].Accepted)
	assert.Equal(t, m.ID, remaining[0].MeetingID)
}

func TestProposalsAcceptRejectionRefetchesMeeting(t *testing.T) {
	h := newHarness(t)
	m := seedMeeting(h, "scheduling")
	slot := h.srv.SeedProposal(models.Proposal{
		MeetingID: m.ID,
		StartsAt:  m.StartsAt.Add(2 * time.Hour),
		EndsAt:    m.StartsAt.Add(3 * time.Hour),
	})

	meetings := h.meetings(t)
	require.NoError(t, meetings.Load(context.Background(), nil))
	proposals := bindings.NewProposals(h.deps, meetings)

	h.srv.Fail(fakesvc.Failure{
		Method: http.MethodPost, Path: "/rpc/proposal.accept",
		Status: http.StatusUnprocessableEntity, Code: "meeting_fixed", Message: "already fixed",
	})

	require.Error(t, proposals.Accept(context.Background(), m.ID, slot.ID))

	// Coarse recovery: the accepted flag must not survive locally.
	remaining := proposals.For(m.ID)
	require.Len(t, remaining, 1)
	assert.False(t, remaining[0].Accepted)

	got, ok := meetings.Get(m.ID)
	require.True(t, ok)
	assert.Equal(t, models.MeetingProposed, got.Status)
}

func TestProposalsProposeAndWithdrawRollback(t *testing.T) {
	h := newHarness(t)
	m := seedMeeting(h, "slots")

	meetings := h.meetings(t)
	require.NoError(t, meetings.Load(context.Background(), nil))
	proposals := bindings.NewProposals(h.deps, meetings)

	slot, err := proposals.Propose(context.Background(), m.ID,
		m.StartsAt.Add(time.Hour), m.StartsAt.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, proposals.For(m.ID), 1)

	h.srv.Fail(fakesvc.Failure{
		Method: http.MethodDelete, Path: "/proposals/" + slot.ID.String(),
		Status: http.StatusForbidden, Message: "not the proposer",
	})
	require.Error(t, proposals.Withdraw(context.Background(), m.ID, slot.ID))
	assert.Len(t, proposals.For(m.ID), 1, "failed withdraw must restore the proposal")
}

func TestMeetingsParseMinutes(t *testing.T) {
	h := newHarness(t)
	m := h.srv.SeedMeeting(models.Meeting{
		Title:       "retro",
		Status:      models.MeetingHeld,
		StartsAt:    time.Now().UTC().Add(-2 * time.Hour),
		EndsAt:      time.Now().UTC().Add(-time.Hour),
		MinutesPath: "minutes/retro.md",
	})
	h.srv.Minutes["minutes/retro.md"] = "- [ ] follow up with vendor\nsome prose\n- [ ] update the runbook\n"

	meetings := h.meetings(t)
	require.NoError(t, meetings.Load(context.Background(), nil))

	status, err := meetings.ParseMinutes(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.CreatedTasks)
	assert.Equal(t, 1, status.SkippedLines)
	assert.Equal(t, 2, h.srv.TaskCount())
}
