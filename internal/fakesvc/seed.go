package fakesvc

import (
	"time"

	"github.com/relaypoint/relaypoint.go/pkg/models"
)

// Seed helpers insert rows directly, bypassing the HTTP contract, so tests
// can arrange state without the client under test.

func (s *Server) SeedTask(t models.Task) models.Task {
	if t.ID.IsZero() {
		t.ID = models.NewTaskID()
	}
	stamp(&t.CreatedAt, &t.UpdatedAt)
	t.Comments = nil
	s.mu.Lock()
	s.tasks[t.ID] = t
	s.taskOrder = append(s.taskOrder, t.ID)
	s.mu.Unlock()
	return t
}

func (s *Server) SeedComment(c models.Comment) models.Comment {
	if c.ID.IsZero() {
		c.ID = models.NewCommentID()
	}
	stamp(&c.CreatedAt, &c.UpdatedAt)
	s.mu.Lock()
	s.comments[c.ID] = c
	s.mu.Unlock()
	return c
}

func (s *Server) SeedMeeting(m models.Meeting) models.Meeting {
	if m.ID.IsZero() {
		m.ID = models.NewMeetingID()
	}
	stamp(&m.CreatedAt, &m.UpdatedAt)
	m.Proposals = nil
	s.mu.Lock()
	s.meetings[m.ID] = m
	s.mu.Unlock()
	return m
}

func (s *Server) SeedProposal(p models.Proposal) models.Proposal {
	if p.ID.IsZero() {
		p.ID = models.NewProposalID()
	}
	stamp(&p.CreatedAt, &p.UpdatedAt)
	s.mu.Lock()
	s.proposals[p.ID] = p
	s.mu.Unlock()
	return p
}

func (s *Server) SeedMilestone(m models.Milestone) models.Milestone {
	if m.ID.IsZero() {
		m.ID = models.NewMilestoneID()
	}
	stamp(&m.CreatedAt, &m.UpdatedAt)
	s.mu.Lock()
	s.milestones[m.ID] = m
	s.mu.Unlock()
	return m
}

func (s *Server) SeedReview(r models.Review) models.Review {
	if r.ID.IsZero() {
		r.ID = models.NewReviewID()
	}
	if r.State == "" {
		r.State = models.ReviewPending
	}
	stamp(&r.CreatedAt, &r.UpdatedAt)
	s.mu.Lock()
	s.reviews[r.ID] = r
	s.mu.Unlock()
	return r
}

// Task returns a stored task for assertions.
func (s *Server) Task(id models.TaskID) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// Meeting returns a stored meeting for assertions.
func (s *Server) Meeting(id models.MeetingID) (models.Meeting, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	return m, ok
}

// TaskCount reports how many tasks the fake holds.
func (s *Server) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = now
	}
}
