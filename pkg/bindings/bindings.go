// Package bindings instantiates the optimistic layer for each Relaypoint
// entity type: tasks, meetings, milestones, comments, reviews, and scheduling
// proposals.
//
// A binding supplies only the entity-specific parameters (record shape,
// remote paths and procedure names, the validation predicate, and which side
// effects to announce) while the generic engine in
// [github.com/relaypoint/relaypoint.go/pkg/optimistic] owns the
// apply/confirm/rollback mechanics. Child entities that live in a relation
// map (comments under tasks, proposals under meetings) run the same
// optimistic cycle against the map.
//
// Bindings are rescoped, not recreated, when the active space changes: the
// facade disposes the old fetch channel so no in-flight response for the
// previous space can ever land in the new one.
package bindings

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/relaypoint/relaypoint.go/pkg/connection"
	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
	"github.com/relaypoint/relaypoint.go/pkg/session"
)

// Deps is the shared infrastructure every binding is built on.
type Deps struct {
	Conn    connection.Connection
	Seq     *optimistic.Sequencer
	Effects *optimistic.Dispatcher
	Session *session.Cache
	Log     zerolog.Logger
}

// notifyPayload is the body of a best-effort cross-user notification.
type notifyPayload struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Event  string `json:"event"`
	Actor  string `json:"actor,omitempty"`
}

// auditPayload is the body of a best-effort audit-trail record.
type auditPayload struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Event  string `json:"event"`
	Actor  string `json:"actor,omitempty"`
}

// announce dispatches the notification and audit effects for a mutation
// whose primary call already succeeded. Neither effect can influence the
// mutation's result.
func (d Deps) announce(entity, id, event string) {
	d.Effects.Dispatch(optimistic.Effect{
		Kind:   "notify",
		Entity: entity,
		ID:     id,
		Run: func(ctx context.Context) error {
			return d.Conn.Create(ctx, "/notify", notifyPayload{
				Entity: entity, ID: id, Event: event, Actor: d.actor(ctx),
			}, nil)
		},
	})
	d.Effects.Dispatch(optimistic.Effect{
		Kind:   "audit",
		Entity: entity,
		ID:     id,
		Run: func(ctx context.Context) error {
			return d.Conn.Create(ctx, "/audit", auditPayload{
				Entity: entity, ID: id, Event: event, Actor: d.actor(ctx),
			}, nil)
		},
	})
}

// actor resolves the current user for effect attribution. Effects are
// best-effort, so a failed lookup degrades to an anonymous entry.
func (d Deps) actor(ctx context.Context) string {
	if d.Session == nil {
		return ""
	}
	u, err := d.Session.Current(ctx)
	if err != nil {
		return ""
	}
	return u.ID.String()
}

// scopedState is the per-binding mutable scope shared by the entity
// bindings: the active tenant scope and the fetch channel derived from it.
// The channel starts at the binding's own prefix, so bindings never share a
// channel even before the first rescope.
type scopedState struct {
	mu      sync.Mutex
	prefix  string
	scope   models.Scope
	channel string
}

func (s *scopedState) init(prefix string) {
	s.prefix = prefix
	s.channel = prefix
}

func (s *scopedState) rescope(seq *optimistic.Sequencer, scope models.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq.Dispose(s.channel)
	s.scope = scope
	s.channel = fmt.Sprintf("%s/%s", s.prefix, scope.Space)
}

// begin derives the active channel and starts a fetch on it under one lock,
// so a rescope cannot slip between the two and hand back a live token for a
// channel it just disposed.
func (s *scopedState) begin(seq *optimistic.Sequencer) optimistic.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq.Begin(s.channel)
}

func (s *scopedState) current() (models.Scope, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope, s.channel
}
