package bindings

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
)

// Meetings binds the optimistic layer to the meeting entity. Meeting list
// rows embed their scheduling proposals; the binding degroups them into a
// relation map shared with the Proposals binding.
type Meetings struct {
	deps      Deps
	state     scopedState
	engine    *optimistic.Engine[models.Meeting]
	proposals *optimistic.Relations[models.Proposal]
}

// NewMeetings assembles the meeting binding.
func NewMeetings(deps Deps) *Meetings {
	m := &Meetings{
		deps:      deps,
		proposals: optimistic.NewRelations[models.Proposal](),
	}
	m.state.init("meetings")
	col := optimistic.NewCollection(func(mt models.Meeting) string { return mt.ID.String() })
	shape := optimistic.Shape[models.Meeting]{
		Name: "meeting",
		ID:   func(mt models.Meeting) string { return mt.ID.String() },
		WithTempID: func(mt models.Meeting) models.Meeting {
			now := time.Now().UTC()
			mt.ID = models.NewMeetingID()
			mt.CreatedAt = now
			mt.UpdatedAt = now
			scope, _ := m.state.current()
			mt.Scope = scope
			if mt.Status == "" {
				mt.Status = models.MeetingProposed
			}
			return mt
		},
		Clone: models.Meeting.Clone,
	}
	remote := optimistic.Remote[models.Meeting]{
		Create: func(ctx context.Context, draft models.Meeting) (models.Meeting, error) {
			var out models.Meeting
			err := deps.Conn.Create(ctx, "/meetings", draft, &out)
			return out, err
		},
		Update: func(ctx context.Context, id string, record models.Meeting) (*models.Meeting, error) {
			var out models.Meeting
			if err := deps.Conn.Update(ctx, "/meetings/"+id, record, &out); err != nil {
				return nil, err
			}
			if out.ID.IsZero() {
				return nil, nil
			}
			return &out, nil
		},
		Delete: func(ctx context.Context, id string) error {
			return deps.Conn.Delete(ctx, "/meetings/"+id)
		},
		Get: func(ctx context.Context, id string) (models.Meeting, error) {
			var out models.Meeting
			err := deps.Conn.Fetch(ctx, "/meetings/"+id, nil, &out)
			return out, err
		},
	}
	m.engine = optimistic.NewEngine(col, shape, remote, validateMeeting, deps.Log)
	return m
}

func validateMeeting(m models.Meeting) error {
	if strings.TrimSpace(m.Title) == "" {
		return &optimistic.ValidationError{Entity: "meeting", Field: "title", Reason: "must not be empty"}
	}
	if !m.EndsAt.After(m.StartsAt) {
		return &optimistic.ValidationError{Entity: "meeting", Field: "ends_at", Reason: "must be after starts_at"}
	}
	return nil
}

// Rescope points the binding at a new tenant scope, disposing in-flight
// fetches for the old one.
func (m *Meetings) Rescope(scope models.Scope) {
	m.state.rescope(m.deps.Seq, scope)
	m.engine.Collection().Replace(nil)
	m.proposals.Rebuild(nil)
}

// Load fetches the meeting list for the active scope. Superseded responses
// are silently discarded.
func (m *Meetings) Load(ctx context.Context, filter url.Values) error {
	token := m.state.begin(m.deps.Seq)

	var rows []models.Meeting
	err := m.deps.Conn.Fetch(ctx, "/meetings", filter, &rows)
	if !m.deps.Seq.Current(token) {
		return nil
	}
	if err != nil {
		return err
	}

	parents, byMeeting := optimistic.Degroup(rows,
		func(mt *models.Meeting) []models.Proposal {
			kids := mt.Proposals
			mt.Proposals = nil
			return kids
		},
		func(mt models.Meeting) string { return mt.ID.String() },
	)
	m.engine.Collection().Replace(parents)
	m.proposals.Rebuild(byMeeting)
	return nil
}

// Items returns the current meeting list.
func (m *Meetings) Items() []models.Meeting { return m.engine.Collection().Items() }

// Get returns one meeting from local state.
func (m *Meetings) Get(id models.MeetingID) (models.Meeting, bool) {
	return m.engine.Collection().Get(id.String())
}

// ProposalsFor returns the scheduling proposals currently known for a
// meeting.
func (m *Meetings) ProposalsFor(id models.MeetingID) []models.Proposal {
	return m.proposals.Get(id.String())
}

// Create optimistically inserts the draft and confirms it against the
// service.
func (m *Meetings) Create(ctx context.Context, draft models.Meeting) (models.Meeting, error) {
	created, err := m.engine.Create(ctx, draft)
	if err != nil {
		return models.Meeting{}, err
	}
	m.deps.announce("meeting", created.ID.String(), "created")
	return created, nil
}

// Update applies patch optimistically and confirms it against the service.
func (m *Meetings) Update(ctx context.Context, id models.MeetingID, patch func(models.Meeting) models.Meeting) (models.Meeting, error) {
	updated, err := m.engine.Update(ctx, id.String(), patch)
	if err != nil {
		return models.Meeting{}, err
	}
	m.deps.announce("meeting", id.String(), "updated")
	return updated, nil
}

// Delete optimistically removes the meeting and confirms against the
// service.
func (m *Meetings) Delete(ctx context.Context, id models.MeetingID) error {
	if err := m.engine.Delete(ctx, id.String()); err != nil {
		return err
	}
	m.deps.announce("meeting", id.String(), "deleted")
	return nil
}

type parseMinutesParams struct {
	MeetingID models.MeetingID `json:"meeting_id"`
}

// MinutesImport is the status object the minutes-parsing procedure returns.
type MinutesImport struct {
	CreatedTasks int `json:"created_tasks"`
	SkippedLines int `json:"skipped_lines"`
}

// ParseMinutes asks the server to parse the meeting's minutes document into
// tasks. The outcome is entirely server-computed, so nothing is applied
// optimistically; callers refetch the task list to pick up created tasks.
func (m *Meetings) ParseMinutes(ctx context.Context, id models.MeetingID) (MinutesImport, error) {
	var out MinutesImport
	if err := m.deps.Conn.Call(ctx, "meeting.parse_minutes", parseMinutesParams{MeetingID: id}, &out); err != nil {
		return MinutesImport{}, err
	}
	m.deps.announce("meeting", id.String(), "minutes_parsed")
	return out, nil
}

// relations exposes the proposal relation map to the Proposals binding.
func (m *Meetings) relations() *optimistic.Relations[models.Proposal] { return m.proposals }
