package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCloneIsDeep(t *testing.T) {
	due := time.Now().UTC()
	ms := NewMilestoneID()
	orig := Task{
		ID:          NewTaskID(),
		Title:       "ship it",
		Owners:      []Owner{{UserID: NewUserID(), Side: SideInternal}},
		MilestoneID: &ms,
		DueAt:       &due,
		Comments:    []Comment{{ID: NewCommentID(), Body: "lgtm"}},
	}

	clone := orig.Clone()
	clone.Owners[0].Side = SideExternal
	clone.Comments[0].Body = "changed"
	*clone.DueAt = clone.DueAt.Add(time.Hour)

	assert.Equal(t, SideInternal, orig.Owners[0].Side)
	assert.Equal(t, "lgtm", orig.Comments[0].Body)
	assert.Equal(t, due, *orig.DueAt)
}

func TestMeetingCloneIsDeep(t *testing.T) {
	orig := Meeting{
		ID:        NewMeetingID(),
		Attendees: []UserID{NewUserID()},
		Proposals: []Proposal{{ID: NewProposalID()}},
	}

	clone := orig.Clone()
	clone.Attendees[0] = NewUserID()
	clone.Proposals[0].Accepted = true

	assert.NotEqual(t, orig.Attendees[0], clone.Attendees[0])
	assert.False(t, orig.Proposals[0].Accepted)
}

func TestExternalOwners(t *testing.T) {
	ext := NewUserID()
	task := Task{Owners: []Owner{
		{UserID: NewUserID(), Side: SideInternal},
		{UserID: ext, Side: SideExternal},
	}}

	out := task.ExternalOwners()
	require.Len(t, out, 1)
	assert.Equal(t, ext, out[0].UserID)

	assert.Empty(t, Task{}.ExternalOwners())
}
