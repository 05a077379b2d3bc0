package fakesvc

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/relaypoint/relaypoint.go/pkg/models"
)

// Entity handlers. Every create replaces the client's temporary identifier
// with a server-assigned one and stamps timestamps, matching the real
// service's contract; updates return the canonical record.

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := make([]models.Task, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		t := s.tasks[id].Clone()
		for _, c := range s.comments {
			if c.TaskID == id {
				t.Comments = append(t.Comments, c)
			}
		}
		rows = append(rows, t)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t models.Task
	if !decode(w, r, &t) {
		return
	}
	now := time.Now().UTC()
	t.ID = models.NewTaskID()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Comments = nil
	s.mu.Lock()
	s.tasks[t.ID] = t
	s.taskOrder = append(s.taskOrder, t.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) taskID(w http.ResponseWriter, r *http.Request) (models.TaskID, bool) {
	id, err := models.ParseTaskID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return models.TaskID{}, false
	}
	return id, true
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	t, found := s.tasks[id]
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "no such task")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	var t models.Task
	if !decode(w, r, &t) {
		return
	}
	s.mu.Lock()
	if _, found := s.tasks[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such task")
		return
	}
	t.ID = id
	t.UpdatedAt = time.Now().UTC()
	t.Comments = nil
	s.tasks[id] = t
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	if _, found := s.tasks[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such task")
		return
	}
	delete(s.tasks, id)
	for i, tid := range s.taskOrder {
		if tid == id {
			s.taskOrder = append(s.taskOrder[:i], s.taskOrder[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTaskComments(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	rows := make([]models.Comment, 0)
	for _, c := range s.comments {
		if c.TaskID == id {
			rows = append(rows, c)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var c models.Comment
	if !decode(w, r, &c) {
		return
	}
	s.mu.Lock()
	if _, found := s.tasks[c.TaskID]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such task")
		return
	}
	now := time.Now().UTC()
	c.ID = models.NewCommentID()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.comments[c.ID] = c
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseCommentID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	var c models.Comment
	if !decode(w, r, &c) {
		return
	}
	s.mu.Lock()
	prior, found := s.comments[id]
	if !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such comment")
		return
	}
	prior.Body = c.Body
	prior.UpdatedAt = time.Now().UTC()
	s.comments[id] = prior
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, prior)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseCommentID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s.mu.Lock()
	if _, found := s.comments[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such comment")
		return
	}
	delete(s.comments, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := make([]models.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		rows = append(rows, s.nestedMeetingLocked(m))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rows)
}

// nestedMeetingLocked attaches the meeting's proposals; s.mu must be held.
func (s *Server) nestedMeetingLocked(m models.Meeting) models.Meeting {
	out := m.Clone()
	for _, p := range s.proposals {
		if p.MeetingID == m.ID {
			out.Proposals = append(out.Proposals, p)
		}
	}
	return out
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var m models.Meeting
	if !decode(w, r, &m) {
		return
	}
	now := time.Now().UTC()
	m.ID = models.NewMeetingID()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.Proposals = nil
	s.mu.Lock()
	s.meetings[m.ID] = m
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) meetingID(w http.ResponseWriter, r *http.Request) (models.MeetingID, bool) {
	id, err := models.ParseMeetingID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return models.MeetingID{}, false
	}
	return id, true
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := s.meetingID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	m, found := s.meetings[id]
	var row models.Meeting
	if found {
		row = s.nestedMeetingLocked(m)
	}
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "no such meeting")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleUpdateMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := s.meetingID(w, r)
	if !ok {
		return
	}
	var m models.Meeting
	if !decode(w, r, &m) {
		return
	}
	s.mu.Lock()
	if _, found := s.meetings[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such meeting")
		return
	}
	m.ID = id
	m.UpdatedAt = time.Now().UTC()
	m.Proposals = nil
	s.meetings[id] = m
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := s.meetingID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	if _, found := s.meetings[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such meeting")
		return
	}
	delete(s.meetings, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var p models.Proposal
	if !decode(w, r, &p) {
		return
	}
	s.mu.Lock()
	if _, found := s.meetings[p.MeetingID]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such meeting")
		return
	}
	now := time.Now().UTC()
	p.ID = models.NewProposalID()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.proposals[p.ID] = p
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeleteProposal(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseProposalID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s.mu.Lock()
	if _, found := s.proposals[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such proposal")
		return
	}
	delete(s.proposals, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMilestones(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := make([]models.Milestone, 0, len(s.milestones))
	for _, m := range s.milestones {
		rows = append(rows, m)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCreateMilestone(w http.ResponseWriter, r *http.Request) {
	var m models.Milestone
	if !decode(w, r, &m) {
		return
	}
	now := time.Now().UTC()
	m.ID = models.NewMilestoneID()
	m.CreatedAt = now
	m.UpdatedAt = now
	s.mu.Lock()
	s.milestones[m.ID] = m
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) milestoneID(w http.ResponseWriter, r *http.Request) (models.MilestoneID, bool) {
	id, err := models.ParseMilestoneID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return models.MilestoneID{}, false
	}
	return id, true
}

func (s *Server) handleGetMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := s.milestoneID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	m, found := s.milestones[id]
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "no such milestone")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := s.milestoneID(w, r)
	if !ok {
		return
	}
	var m models.Milestone
	if !decode(w, r, &m) {
		return
	}
	s.mu.Lock()
	if _, found := s.milestones[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such milestone")
		return
	}
	m.ID = id
	m.UpdatedAt = time.Now().UTC()
	s.milestones[id] = m
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := s.milestoneID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	if _, found := s.milestones[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such milestone")
		return
	}
	delete(s.milestones, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := make([]models.Review, 0, len(s.reviews))
	for _, rv := range s.reviews {
		rows = append(rows, rv)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var rv models.Review
	if !decode(w, r, &rv) {
		return
	}
	s.mu.Lock()
	if _, found := s.tasks[rv.TaskID]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such task")
		return
	}
	now := time.Now().UTC()
	rv.ID = models.NewReviewID()
	rv.State = models.ReviewPending
	rv.CreatedAt = now
	rv.UpdatedAt = now
	s.reviews[rv.ID] = rv
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, rv)
}

func (s *Server) reviewID(w http.ResponseWriter, r *http.Request) (models.ReviewID, bool) {
	id, err := models.ParseReviewID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return models.ReviewID{}, false
	}
	return id, true
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := s.reviewID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	rv, found := s.reviews[id]
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "no such review")
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := s.reviewID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	if _, found := s.reviews[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such review")
		return
	}
	delete(s.reviews, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
