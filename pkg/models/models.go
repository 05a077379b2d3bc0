// Package models defines the Relaypoint entity types shared by the client
// bindings and the wire layer.
//
// Every collaborative entity carries a typed identifier, the tenant scope pair
// it belongs to, and created/updated timestamps maintained by the server.
// Rows returned by list fetches may embed one named child collection (for
// example a task row embeds its comments); the optimistic layer splits those
// into flat collections before they reach application state, so code past the
// grouper boundary only ever sees fully-typed records.
package models

import (
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskBacklog       TaskStatus = "backlog"
	TaskInProgress    TaskStatus = "in_progress"
	TaskWaitingReview TaskStatus = "waiting_review"
	// TaskExternal marks a task visible to and actionable by external-side
	// collaborators. A task in this state must have at least one
	// external-side owner.
	TaskExternal TaskStatus = "external"
	TaskDone     TaskStatus = "done"
)

// TaskKind distinguishes ordinary work items from specification tasks.
type TaskKind string

const (
	TaskWork TaskKind = "work"
	// TaskSpec tasks track a specification document and must carry a
	// repository path to it.
	TaskSpec TaskKind = "spec"
)

// OwnerSide says which side of a collaboration an owner belongs to.
type OwnerSide string

const (
	SideInternal OwnerSide = "internal"
	SideExternal OwnerSide = "external"
)

// ReviewState is the decision state of a review.
type ReviewState string

const (
	ReviewPending          ReviewState = "pending"
	ReviewApproved         ReviewState = "approved"
	ReviewChangesRequested ReviewState = "changes_requested"
)

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingProposed MeetingStatus = "proposed"
	MeetingFixed    MeetingStatus = "fixed"
	MeetingHeld     MeetingStatus = "held"
	MeetingCanceled MeetingStatus = "canceled"
)

// Scope is the tenant scope pair carried on every remote call. It plays the
// role the namespace/database pair plays in a multi-tenant backend: records
// are only visible and mutable within their own scope.
type Scope struct {
	Org   OrgID   `json:"org_id"`
	Space SpaceID `json:"space_id"`
}

func (s Scope) IsZero() bool { return s.Org.IsZero() && s.Space.IsZero() }

// Owner attributes a task to a user on one side of the collaboration.
type Owner struct {
	UserID UserID    `json:"user_id"`
	Side   OwnerSide `json:"side"`
}

// Task is the primary work item. List fetches may embed the task's comments
// under the "comments" key to save a round-trip.
type Task struct {
	ID          TaskID       `json:"id"`
	Scope       Scope        `json:"scope"`
	Title       string       `json:"title"`
	Body        string       `json:"body,omitempty"`
	Status      TaskStatus   `json:"status"`
	Kind        TaskKind     `json:"kind"`
	SpecPath    string       `json:"spec_path,omitempty"`
	BallHolder  UserID       `json:"ball_holder"`
	Owners      []Owner      `json:"owners,omitempty"`
	MilestoneID *MilestoneID `json:"milestone_id,omitempty"`
	DueAt       *time.Time   `json:"due_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Comments is the embedded child collection on nested fetch rows. It is
	// stripped by the grouper and empty on records held in client state.
	Comments []Comment `json:"comments,omitempty"`
}

// Clone returns a deep copy, so a captured rollback value cannot alias the
// live record's slices.
func (t Task) Clone() Task {
	out := t
	if t.Owners != nil {
		out.Owners = append([]Owner(nil), t.Owners...)
	}
	if t.Comments != nil {
		out.Comments = append([]Comment(nil), t.Comments...)
	}
	if t.MilestoneID != nil {
		id := *t.MilestoneID
		out.MilestoneID = &id
	}
	if t.DueAt != nil {
		at := *t.DueAt
		out.DueAt = &at
	}
	return out
}

// ExternalOwners returns the owners on the external side.
func (t Task) ExternalOwners() []Owner {
	var out []Owner
	for _, o := range t.Owners {
		if o.Side == SideExternal {
			out = append(out, o)
		}
	}
	return out
}

// Meeting is a scheduled or proposed meeting. List fetches may embed the
// meeting's scheduling proposals under the "proposals" key.
type Meeting struct {
	ID          MeetingID     `json:"id"`
	Scope       Scope         `json:"scope"`
	Title       string        `json:"title"`
	Status      MeetingStatus `json:"status"`
	StartsAt    time.Time     `json:"starts_at"`
	EndsAt      time.Time     `json:"ends_at"`
	Attendees   []UserID      `json:"attendees,omitempty"`
	MinutesPath string        `json:"minutes_path,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Proposals is the embedded child collection on nested fetch rows.
	Proposals []Proposal `json:"proposals,omitempty"`
}

func (m Meeting) Clone() Meeting {
	out := m
	if m.Attendees != nil {
		out.Attendees = append([]UserID(nil), m.Attendees...)
	}
	if m.Proposals != nil {
		out.Proposals = append([]Proposal(nil), m.Proposals...)
	}
	return out
}

// Milestone groups tasks toward a target date.
type Milestone struct {
	ID         MilestoneID `json:"id"`
	Scope      Scope       `json:"scope"`
	Name       string      `json:"name"`
	TargetDate *time.Time  `json:"target_date,omitempty"`
	Color      string      `json:"color,omitempty"`
	Position   int         `json:"position"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (m Milestone) Clone() Milestone {
	out := m
	if m.TargetDate != nil {
		d := *m.TargetDate
		out.TargetDate = &d
	}
	return out
}

// Comment is a discussion entry attached to a task.
type Comment struct {
	ID        CommentID `json:"id"`
	Scope     Scope     `json:"scope"`
	TaskID    TaskID    `json:"task_id"`
	AuthorID  UserID    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Comment) Clone() Comment { return c }

// Review is a gating review on a task.
type Review struct {
	ID         ReviewID    `json:"id"`
	Scope      Scope       `json:"scope"`
	TaskID     TaskID      `json:"task_id"`
	ReviewerID UserID      `json:"reviewer_id"`
	State      ReviewState `json:"state"`
	Note       string      `json:"note,omitempty"`
	DecidedAt  *time.Time  `json:"decided_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (r Review) Clone() Review {
	out := r
	if r.DecidedAt != nil {
		at := *r.DecidedAt
		out.DecidedAt = &at
	}
	return out
}

// Proposal is a scheduling proposal for a meeting.
type Proposal struct {
	ID         ProposalID `json:"id"`
	Scope      Scope      `json:"scope"`
	MeetingID  MeetingID  `json:"meeting_id"`
	ProposedBy UserID     `json:"proposed_by"`
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     time.Time  `json:"ends_at"`
	Accepted   bool       `json:"accepted"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (p Proposal) Clone() Proposal { return p }

// User is an account entity, fetched for display and the current-user cache.
type User struct {
	ID        UserID    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
