package models

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Typed identifiers wrap a UUID per entity type so that a TaskID can never be
// passed where a MeetingID is expected. IDs created client-side (via the New*
// constructors) are valid temporary identifiers for the optimistic create
// window; the server assigns the canonical identifier on create.

// TaskID identifies a task.
type TaskID struct{ uuid uuid.UUID }

func NewTaskID() TaskID { return TaskID{uuid: uuid.New()} }

func ParseTaskID(s string) (TaskID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TaskID{}, fmt.Errorf("invalid task ID: %w", err)
	}
	return TaskID{uuid: id}, nil
}

func (t TaskID) UUID() uuid.UUID { return t.uuid }
func (t TaskID) String() string  { return t.uuid.String() }
func (t TaskID) IsZero() bool    { return t.uuid == uuid.Nil }

func (t TaskID) MarshalJSON() ([]byte, error)  { return marshalID(t.uuid) }
func (t *TaskID) UnmarshalJSON(b []byte) error { return unmarshalID(b, &t.uuid) }
func (t TaskID) MarshalCBOR() ([]byte, error)  { return cbor.Marshal(t.uuid.String()) }
func (t *TaskID) UnmarshalCBOR(b []byte) error { return unmarshalCBORID(b, &t.uuid) }

// MeetingID identifies a meeting.
type MeetingID struct{ uuid uuid.UUID }

func NewMeetingID() MeetingID { return MeetingID{uuid: uuid.New()} }

func ParseMeetingID(s string) (MeetingID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MeetingID{}, fmt.Errorf("invalid meeting ID: %w", err)
	}
	return MeetingID{uuid: id}, nil
}

func (m MeetingID) UUID() uuid.UUID { return m.uuid }
func (m MeetingID) String() string  { return m.uuid.String() }
func (m MeetingID) IsZero() bool    { return m.uuid == uuid.Nil }

func (m MeetingID) MarshalJSON() ([]byte, error)  { return marshalID(m.uuid) }
func (m *MeetingID) UnmarshalJSON(b []byte) error { return unmarshalID(b, &m.uuid) }
func (m MeetingID) MarshalCBOR() ([]byte, error)  { return cbor.Marshal(m.uuid.String()) }
func (m *MeetingID) UnmarshalCBOR(b []byte) error { return unmarshalCBORID(b, &m.uuid) }

// MilestoneID identifies a milestone.
type MilestoneID struct{ uuid uuid.UUID }

func NewMilestoneID() MilestoneID { return MilestoneID{uuid: uuid.New()} }

func ParseMilestoneID(s string) (MilestoneID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MilestoneID{}, fmt.Errorf("invalid milestone ID: %w", err)
	}
	return MilestoneID{uuid: id}, nil
}

func (m MilestoneID) UUID() uuid.UUID { return m.uuid }
func (m MilestoneID) String() string  { return m.uuid.String() }
func (m MilestoneID) IsZero() bool    { return m.uuid == uuid.Nil }

func (m MilestoneID) MarshalJSON() ([]byte, error)  { return marshalID(m.uuid) }
func (m *MilestoneID) UnmarshalJSON(b []byte) error { return unmarshalID(b, &m.uuid) }
func (m MilestoneID) MarshalCBOR() ([]byte, error)  { return cbor.Marshal(m.uuid.String()) }
func (m *MilestoneID) UnmarshalCBOR(b []byte) error { return unmarshalCBORID(b, &m.uuid) }

// CommentID identifies a comment.
type CommentID struct{ uuid uuid.UUID }

func NewCommentID() CommentID { return CommentID{uuid: uuid.New()} }

func ParseCommentID(s string) (CommentID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CommentID{}, fmt.Errorf("invalid comment ID: %w", err)
	}
	return CommentID{uuid: id}, nil
}

func (c CommentID) UUID() uuid.UUID { return c.uuid }
func (c CommentID) String() string  { return c.uuid.String() }
func (c CommentID) IsZero() bool    { return c.uuid == uuid.Nil }

func (c CommentID) MarshalJSON() ([]byte, error)  { return marshalID(c.uuid) }
func (c *CommentID) UnmarshalJSON(b []byte) error { return unmarshalID(b, &c.uuid) }
func (c CommentID) MarshalCBOR() ([]byte, error)  { return cbor.Marshal(c.uuid.String()) }
func (c *CommentID) UnmarshalCBOR(b []byte) error { return unmarshalCBORID(b, &c.uuid) }

// ReviewID identifies a review.
type ReviewID struct{ uuid uuid.UUID }

func NewReviewID() ReviewID { return ReviewID{uuid: uuid.New()} }

func ParseReviewID(s string) (ReviewID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ReviewID{}, fmt.Errorf("invalid review ID: %w", err)
	}
	return ReviewID{uuid: id}, nil
}

func (r ReviewID) UUID() uuid.UUID { return r.uuid }
func (r ReviewID) String() string  { return r.uuid.String() }
func (r ReviewID) IsZero() bool    { return r.uuid == uuid.Nil }

func (r ReviewID) MarshalJSON() ([]byte, error)  { return marshalID(r.uuid) }
func (r *ReviewID) UnmarshalJSON(b []byte) error { return unmarshalID(b, &r.uuid) }
func (r ReviewID) MarshalCBOR() ([]byte, error)  { return cbor.Marshal(r.uuid.String()) }
func (r *ReviewID) UnmarshalCBOR(b []byte) error { return unmarshalCBORID(b, &r.uuid) }

// ProposalID identifies a scheduling proposal.
type ProposalID struct{ uuid uuid.UUID }

func NewProposalID() ProposalID { return ProposalID{uuid: uuid.New()} }

func ParseProposalID(s string) (ProposalID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ProposalID{}, fmt.Errorf("invalid proposal ID: %w", err)
	}
	return ProposalID{uuid: id}, nil
}

func (p ProposalID) UUID() uuid.UUID { return p.uuid }
func (p ProposalID) String() string  { return p.uuid.String() }
func (p ProposalID) IsZero() bool    { return p.uuid == uuid.Nil }

func (p ProposalID) MarshalJSON() ([]byte, error)  { return marshalID(p.uuid) }
func (p *ProposalID) UnmarshalJSON(b []byte) error { return unmarshalID(b, &p.uuid) }
func (p ProposalID) MarshalCBOR() ([]byte, error)  { return cbor.Marshal(p.uuid.String()) }
func (p *ProposalID) UnmarshalCBOR(b []byte) error { return unmarshalCBORID(b, &p.uuid) }

// UserID identifies a user account.
type UserID struct{ uuid uuid.UUID }

func NewUserID() UserID { return UserID{uuid: uuid.New()} }

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user ID: %w", err)
	}
	return UserID{uuid: id}, nil
}

func (u UserID) UUID() uuid.UUID { return u.uuid }
func (u UserID) String() string  { return u.uuid.String() }
func (u UserID) IsZero() bool    { return u.uuid == uuid.Nil }

func (u UserID) MarshalJSON() ([]byte, error)  { return marshalID(u.uuid) }
func (u *UserID) UnmarshalJSON(b []byte) error { return unmarshalID(b, &u.uuid) }
func (u UserID) MarshalCBOR() ([]byte, error)  { return cbor.Marshal(u.uuid.String()) }
func (u *UserID) UnmarshalCBOR(b []byte) error { return unmarshalCBORID(b, &u.uuid) }

// OrgID identifies a tenant organization.
type OrgID struct{ uuid uuid.UUID }

func NewOrgID() OrgID { return OrgID{uuid: uuid.New()} }

func ParseOrgID(s string) (OrgID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return OrgID{}, fmt.Errorf("invalid org ID: %w", err)
	}
	return OrgID{uuid: id}, nil
}

func (o OrgID) UUID() uuid.UUID { return o.uuid }
func (o OrgID) String() string  { return o.uuid.String() }
func (o OrgID) IsZero() bool    { return o.uuid == uuid.Nil }

func (o OrgID) MarshalJSON() ([]byte, error)  { return marshalID(o.uuid) }
func (o *OrgID) UnmarshalJSON(b []byte) error { return unmarshalID(b, &o.uuid) }
func (o OrgID) MarshalCBOR() ([]byte, error)  { return cbor.Marshal(o.uuid.String()) }
func (o *OrgID) UnmarshalCBOR(b []byte) error { return unmarshalCBORID(b, &o.uuid) }

// SpaceID identifies a project space within an organization.
type SpaceID struct{ uuid uuid.UUID }

func NewSpaceID() SpaceID { return SpaceID{uuid: uuid.New()} }

func ParseSpaceID(s string) (SpaceID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return SpaceID{}, fmt.Errorf("invalid space ID: %w", err)
	}
	return SpaceID{uuid: id}, nil
}

func (s SpaceID) UUID() uuid.UUID { return s.uuid }
func (s SpaceID) String() string  { return s.uuid.String() }
func (s SpaceID) IsZero() bool    { return s.uuid == uuid.Nil }

func (s SpaceID) MarshalJSON() ([]byte, error)  { return marshalID(s.uuid) }
func (s *SpaceID) UnmarshalJSON(b []byte) error { return unmarshalID(b, &s.uuid) }
func (s SpaceID) MarshalCBOR() ([]byte, error)  { return cbor.Marshal(s.uuid.String()) }
func (s *SpaceID) UnmarshalCBOR(b []byte) error { return unmarshalCBORID(b, &s.uuid) }

// Helper functions

func marshalID(id uuid.UUID) ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

func unmarshalID(b []byte, target *uuid.UUID) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid ID literal: %s", b)
	}
	id, err := uuid.Parse(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*target = id
	return nil
}

func unmarshalCBORID(b []byte, target *uuid.UUID) error {
	var s string
	if err := cbor.Unmarshal(b, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = id
	return nil
}
