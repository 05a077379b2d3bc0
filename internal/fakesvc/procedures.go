package fakesvc

import (
	"bufio"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/relaypoint/relaypoint.go/pkg/models"
)

// Named procedures. Each one is a multi-row transaction the real service
// runs atomically; the fake applies the same row changes under its lock.

func (s *Server) handleProcedure(w http.ResponseWriter, r *http.Request) {
	switch mux.Vars(r)["proc"] {
	case "task.pass_ball":
		s.procPassBall(w, r)
	case "review.approve":
		s.procReviewDecision(w, r, models.ReviewApproved)
	case "review.request_changes":
		s.procReviewDecision(w, r, models.ReviewChangesRequested)
	case "proposal.accept":
		s.procAcceptProposal(w, r)
	case "meeting.parse_minutes":
		s.procParseMinutes(w, r)
	default:
		writeError(w, http.StatusNotFound, "not_found", "no such procedure")
	}
}

func (s *Server) procPassBall(w http.ResponseWriter, r *http.Request) {
	var params struct {
		TaskID models.TaskID `json:"task_id"`
		To     models.UserID `json:"to"`
	}
	if !decode(w, r, &params) {
		return
	}
	s.mu.Lock()
	t, found := s.tasks[params.TaskID]
	if !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such task")
		return
	}
	t.BallHolder = params.To
	holderOwned := false
	for _, o := range t.Owners {
		if o.UserID == params.To {
			holderOwned = true
			break
		}
	}
	// The real transaction also adds the new holder as an owner.
	if !holderOwned {
		t.Owners = append(t.Owners, models.Owner{UserID: params.To, Side: models.SideInternal})
	}
	t.UpdatedAt = time.Now().UTC()
	s.tasks[params.TaskID] = t
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) procReviewDecision(w http.ResponseWriter, r *http.Request, state models.ReviewState) {
	var params struct {
		ReviewID models.ReviewID `json:"review_id"`
		Note     string          `json:"note"`
	}
	if !decode(w, r, &params) {
		return
	}
	s.mu.Lock()
	rv, found := s.reviews[params.ReviewID]
	if !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such review")
		return
	}
	if rv.State != models.ReviewPending {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "already_decided", "review is already decided")
		return
	}
	now := time.Now().UTC()
	rv.State = state
	rv.Note = params.Note
	rv.DecidedAt = &now
	rv.UpdatedAt = now
	s.reviews[params.ReviewID] = rv

	// An approval moves the reviewed task out of waiting_review.
	if t, ok := s.tasks[rv.TaskID]; ok && state == models.ReviewApproved && t.Status == models.TaskWaitingReview {
		t.Status = models.TaskDone
		t.UpdatedAt = now
		s.tasks[rv.TaskID] = t
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rv)
}

func (s *Server) procAcceptProposal(w http.ResponseWriter, r *http.Request) {
	var params struct {
		ProposalID models.ProposalID `json:"proposal_id"`
	}
	if !decode(w, r, &params) {
		return
	}
	s.mu.Lock()
	p, found := s.proposals[params.ProposalID]
	if !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such proposal")
		return
	}
	m, found := s.meetings[p.MeetingID]
	if !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such meeting")
		return
	}
	now := time.Now().UTC()
	// Accepting fixes the meeting and drops competing proposals.
	for id, other := range s.proposals {
		if other.MeetingID == p.MeetingID && id != p.ID {
			delete(s.proposals, id)
		}
	}
	p.Accepted = true
	p.UpdatedAt = now
	s.proposals[p.ID] = p
	m.Status = models.MeetingFixed
	m.StartsAt = p.StartsAt
	m.EndsAt = p.EndsAt
	m.UpdatedAt = now
	s.meetings[m.ID] = m
	row := s.nestedMeetingLocked(m)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) procParseMinutes(w http.ResponseWriter, r *http.Request) {
	var params struct {
		MeetingID models.MeetingID `json:"meeting_id"`
	}
	if !decode(w, r, &params) {
		return
	}
	s.mu.Lock()
	m, found := s.meetings[params.MeetingID]
	if !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "no such meeting")
		return
	}
	text := s.Minutes[m.MinutesPath]
	created, skipped := 0, 0
	now := time.Now().UTC()
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		title, ok := strings.CutPrefix(line, "- [ ] ")
		if !ok {
			skipped++
			continue
		}
		t := models.Task{
			ID:        models.NewTaskID(),
			Scope:     m.Scope,
			Title:     title,
			Status:    models.TaskBacklog,
			Kind:      models.TaskWork,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.tasks[t.ID] = t
		s.taskOrder = append(s.taskOrder, t.ID)
		created++
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"created_tasks": created, "skipped_lines": skipped})
}
