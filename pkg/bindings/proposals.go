package bindings

import (
	"context"
	"fmt"
	"time"

	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
)

// Proposals binds the optimistic cycle to scheduling proposals. Proposals
// are child records of meetings: they live in the relation map owned by the
// Meetings binding and run the optimistic cycle against it.
type Proposals struct {
	deps     Deps
	meetings *Meetings
}

// NewProposals assembles the proposal binding over the meeting binding's
// relation map.
func NewProposals(deps Deps, meetings *Meetings) *Proposals {
	return &Proposals{deps: deps, meetings: meetings}
}

// For returns the proposals currently known for a meeting.
func (p *Proposals) For(meetingID models.MeetingID) []models.Proposal {
	return p.meetings.ProposalsFor(meetingID)
}

func validateProposal(pr models.Proposal) error {
	if pr.MeetingID.IsZero() {
		return &optimistic.ValidationError{Entity: "proposal", Field: "meeting_id", Reason: "must reference a meeting"}
	}
	if !pr.EndsAt.After(pr.StartsAt) {
		return &optimistic.ValidationError{Entity: "proposal", Field: "ends_at", Reason: "must be after starts_at"}
	}
	return nil
}

// Propose optimistically appends a scheduling proposal under the meeting and
// confirms it against the service.
func (p *Proposals) Propose(ctx context.Context, meetingID models.MeetingID, startsAt, endsAt time.Time) (models.Proposal, error) {
	proposer, err := p.deps.Session.Current(ctx)
	if err != nil {
		return models.Proposal{}, fmt.Errorf("propose slot: resolve proposer: %w", err)
	}

	scope, _ := p.meetings.state.current()
	now := time.Now().UTC()
	tmp := models.Proposal{
		ID:         models.NewProposalID(),
		Scope:      scope,
		MeetingID:  meetingID,
		ProposedBy: proposer.ID,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := validateProposal(tmp); err != nil {
		return models.Proposal{}, err
	}

	rel := p.meetings.relations()
	parent := meetingID.String()
	tmpID := tmp.ID
	rel.Append(parent, tmp)

	var canonical models.Proposal
	if err := p.deps.Conn.Create(ctx, "/proposals", tmp, &canonical); err != nil {
		rel.Remove(parent, func(pr models.Proposal) bool { return pr.ID == tmpID })
		return models.Proposal{}, fmt.Errorf("create proposal: %w", err)
	}

	rel.Swap(parent, func(pr models.Proposal) bool { return pr.ID == tmpID }, canonical)
	p.deps.announce("proposal", canonical.ID.String(), "created")
	return canonical, nil
}

// Withdraw optimistically deletes a proposal and confirms against the
// service, restoring the captured record on failure.
func (p *Proposals) Withdraw(ctx context.Context, meetingID models.MeetingID, id models.ProposalID) error {
	rel := p.meetings.relations()
	parent := meetingID.String()

	var captured models.Proposal
	found := false
	for _, pr := range rel.Get(parent) {
		if pr.ID == id {
			captured = pr.Clone()
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("withdraw proposal %s: %w", id, optimistic.ErrNoSuchRecord)
	}

	rel.Remove(parent, func(pr models.Proposal) bool { return pr.ID == id })

	if err := p.deps.Conn.Delete(ctx, "/proposals/"+id.String()); err != nil {
		rel.Append(parent, captured)
		return fmt.Errorf("delete proposal %s: %w", id, err)
	}
	p.deps.announce("proposal", id.String(), "deleted")
	return nil
}

type acceptProposalParams struct {
	ProposalID models.ProposalID `json:"proposal_id"`
}

// Accept marks a proposal as the chosen slot. The server transaction also
// fixes the meeting's time and clears competing proposals, so the optimistic
// patch covers only the accepted flag; the procedure returns the updated
// meeting row with its proposals embedded, and both sides of local state are
// rebuilt from it. On failure the single meeting is refetched and the
// procedure error returned.
func (p *Proposals) Accept(ctx context.Context, meetingID models.MeetingID, id models.ProposalID) error {
	rel := p.meetings.relations()
	parent := meetingID.String()

	patched := rel.Patch(parent,
		func(pr models.Proposal) bool { return pr.ID == id },
		func(pr models.Proposal) models.Proposal {
			out := pr.Clone()
			out.Accepted = true
			return out
		})
	if !patched {
		return fmt.Errorf("accept proposal %s: %w", id, optimistic.ErrNoSuchRecord)
	}

	var row models.Meeting
	if err := p.deps.Conn.Call(ctx, "proposal.accept", acceptProposalParams{ProposalID: id}, &row); err != nil {
		p.refetchMeeting(ctx, meetingID)
		return fmt.Errorf("accept proposal %s: %w", id, err)
	}

	p.installMeetingRow(row)
	p.deps.announce("proposal", id.String(), "accepted")
	return nil
}

// installMeetingRow degroups a single nested meeting row into the meeting
// collection and the proposal relation map.
func (p *Proposals) installMeetingRow(row models.Meeting) {
	kids := row.Proposals
	row.Proposals = nil
	p.meetings.engine.Collection().Swap(row.ID.String(), row)
	p.meetings.relations().Replace(row.ID.String(), kids)
}

// refetchMeeting is the coarse recovery after a failed accept: the server
// transaction's scope was never fully known locally, so the single affected
// meeting is reloaded instead of patching it back field by field.
func (p *Proposals) refetchMeeting(ctx context.Context, id models.MeetingID) {
	var row models.Meeting
	if err := p.deps.Conn.Fetch(ctx, "/meetings/"+id.String(), nil, &row); err != nil {
		p.deps.Log.Warn().Str("meeting", id.String()).Err(err).Msg("post-failure meeting refetch failed")
		return
	}
	p.installMeetingRow(row)
}
