package bindings

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
)

// Milestones binds the optimistic layer to the milestone entity. Milestones
// embed no child collection and append in position order, so this is the
// plainest instantiation of the engine.
type Milestones struct {
	deps   Deps
	state  scopedState
	engine *optimistic.Engine[models.Milestone]
}

// NewMilestones assembles the milestone binding.
func NewMilestones(deps Deps) *Milestones {
	m := &Milestones{deps: deps}
	m.state.init("milestones")
	col := optimistic.NewCollection(func(ms models.Milestone) string { return ms.ID.String() })
	shape := optimistic.Shape[models.Milestone]{
		Name: "milestone",
		ID:   func(ms models.Milestone) string { return ms.ID.String() },
		WithTempID: func(ms models.Milestone) models.Milestone {
			now := time.Now().UTC()
			ms.ID = models.NewMilestoneID()
			ms.CreatedAt = now
			ms.UpdatedAt = now
			scope, _ := m.state.current()
			ms.Scope = scope
			return ms
		},
		Clone: models.Milestone.Clone,
	}
	remote := optimistic.Remote[models.Milestone]{
		Create: func(ctx context.Context, draft models.Milestone) (models.Milestone, error) {
			var out models.Milestone
			err := deps.Conn.Create(ctx, "/milestones", draft, &out)
			return out, err
		},
		Update: func(ctx context.Context, id string, record models.Milestone) (*models.Milestone, error) {
			var out models.Milestone
			if err := deps.Conn.Update(ctx, "/milestones/"+id, record, &out); err != nil {
				return nil, err
			}
			if out.ID.IsZero() {
				return nil, nil
			}
			return &out, nil
		},
		Delete: func(ctx context.Context, id string) error {
			return deps.Conn.Delete(ctx, "/milestones/"+id)
		},
		Get: func(ctx context.Context, id string) (models.Milestone, error) {
			var out models.Milestone
			err := deps.Conn.Fetch(ctx, "/milestones/"+id, nil, &out)
			return out, err
		},
	}
	m.engine = optimistic.NewEngine(col, shape, remote, validateMilestone, deps.Log)
	return m
}

func validateMilestone(ms models.Milestone) error {
	if strings.TrimSpace(ms.Name) == "" {
		return &optimistic.ValidationError{Entity: "milestone", Field: "name", Reason: "must not be empty"}
	}
	return nil
}

// Rescope points the binding at a new tenant scope.
func (m *Milestones) Rescope(scope models.Scope) {
	m.state.rescope(m.deps.Seq, scope)
	m.engine.Collection().Replace(nil)
}

// Load fetches the milestone list for the active scope.
func (m *Milestones) Load(ctx context.Context, filter url.Values) error {
	token := m.state.begin(m.deps.Seq)

	var rows []models.Milestone
	err := m.deps.Conn.Fetch(ctx, "/milestones", filter, &rows)
	if !m.deps.Seq.Current(token) {
		return nil
	}
	if err != nil {
		return err
	}
	m.engine.Collection().Replace(rows)
	return nil
}

// Items returns the current milestone list.
func (m *Milestones) Items() []models.Milestone { return m.engine.Collection().Items() }

// Get returns one milestone from local state.
func (m *Milestones) Get(id models.MilestoneID) (models.Milestone, bool) {
	return m.engine.Collection().Get(id.String())
}

// Create optimistically inserts the draft and confirms it against the
// service.
func (m *Milestones) Create(ctx context.Context, draft models.Milestone) (models.Milestone, error) {
	created, err := m.engine.Create(ctx, draft)
	if err != nil {
		return models.Milestone{}, err
	}
	m.deps.announce("milestone", created.ID.String(), "created")
	return created, nil
}

// Update applies patch optimistically and confirms it against the service.
func (m *Milestones) Update(ctx context.Context, id models.MilestoneID, patch func(models.Milestone) models.Milestone) (models.Milestone, error) {
	updated, err := m.engine.Update(ctx, id.String(), patch)
	if err != nil {
		return models.Milestone{}, err
	}
	m.deps.announce("milestone", id.String(), "updated")
	return updated, nil
}

// Delete optimistically removes the milestone and confirms against the
// service.
func (m *Milestones) Delete(ctx context.Context, id models.MilestoneID) error {
	if err := m.engine.Delete(ctx, id.String()); err != nil {
		return err
	}
	m.deps.announce("milestone", id.String(), "deleted")
	return nil
}
