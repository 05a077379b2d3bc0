// Package fakesvc provides an in-process fake Relaypoint service for
// integration tests. It serves the entity REST contract plus the named
// procedures under /rpc, backed by in-memory maps, and supports per-route
// failure injection so tests can exercise the client's rollback paths.
package fakesvc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"

	"github.com/relaypoint/relaypoint.go/pkg/models"
)

// Failure is an injected rejection for one route. Method and Path match the
// incoming request exactly ("POST" "/tasks", "POST" "/rpc/task.pass_ball");
// while armed, matching requests get Status/Code/Message instead of being
// processed.
type Failure struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
}

// Server is the fake service. Zero-value maps are initialized by New.
type Server struct {
	mu         sync.Mutex
	tasks      map[models.TaskID]models.Task
	taskOrder  []models.TaskID
	comments   map[models.CommentID]models.Comment
	meetings   map[models.MeetingID]models.Meeting
	proposals  map[models.ProposalID]models.Proposal
	milestones map[models.MilestoneID]models.Milestone
	reviews    map[models.ReviewID]models.Review
	failures   []Failure

	// Me is the user returned by GET /me.
	Me models.User
	// Minutes maps a meeting's minutes path to the raw minutes text parsed
	// by meeting.parse_minutes. Lines starting with "- [ ]" become tasks;
	// non-empty lines without that prefix are counted as skipped.
	Minutes map[string]string
	// Notifications and AuditEntries record the side-effect posts received.
	Notifications []json.RawMessage
	AuditEntries  []json.RawMessage

	httpSrv *httptest.Server
}

// New starts a fake service on a local listener.
func New() *Server {
	s := &Server{
		tasks:      make(map[models.TaskID]models.Task),
		comments:   make(map[models.CommentID]models.Comment),
		meetings:   make(map[models.MeetingID]models.Meeting),
		proposals:  make(map[models.ProposalID]models.Proposal),
		milestones: make(map[models.MilestoneID]models.Milestone),
		reviews:    make(map[models.ReviewID]models.Review),
		Minutes:    make(map[string]string),
		Me: models.User{
			ID:    models.NewUserID(),
			Email: "dev@relaypoint.test",
			Name:  "Dev User",
		},
	}

	r := mux.NewRouter()
	r.Use(s.failureMiddleware)

	r.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/notify", s.handleNotify).Methods(http.MethodPost)
	r.HandleFunc("/audit", s.handleAudit).Methods(http.MethodPost)

	r.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}", s.handleGetTask).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}", s.handleUpdateTask).Methods(http.MethodPatch)
	r.HandleFunc("/tasks/{id}", s.handleDeleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/tasks/{id}/comments", s.handleTaskComments).Methods(http.MethodGet)

	r.HandleFunc("/comments", s.handleCreateComment).Methods(http.MethodPost)
	r.HandleFunc("/comments/{id}", s.handleUpdateComment).Methods(http.MethodPatch)
	r.HandleFunc("/comments/{id}", s.handleDeleteComment).Methods(http.MethodDelete)

	r.HandleFunc("/meetings", s.handleListMeetings).Methods(http.MethodGet)
	r.HandleFunc("/meetings", s.handleCreateMeeting).Methods(http.MethodPost)
	r.HandleFunc("/meetings/{id}", s.handleGetMeeting).Methods(http.MethodGet)
	r.HandleFunc("/meetings/{id}", s.handleUpdateMeeting).Methods(http.MethodPatch)
	r.HandleFunc("/meetings/{id}", s.handleDeleteMeeting).Methods(http.MethodDelete)

	r.HandleFunc("/proposals", s.handleCreateProposal).Methods(http.MethodPost)
	r.HandleFunc("/proposals/{id}", s.handleDeleteProposal).Methods(http.MethodDelete)

	r.HandleFunc("/milestones", s.handleListMilestones).Methods(http.MethodGet)
	r.HandleFunc("/milestones", s.handleCreateMilestone).Methods(http.MethodPost)
	r.HandleFunc("/milestones/{id}", s.handleGetMilestone).Methods(http.MethodGet)
	r.HandleFunc("/milestones/{id}", s.handleUpdateMilestone).Methods(http.MethodPatch)
	r.HandleFunc("/milestones/{id}", s.handleDeleteMilestone).Methods(http.MethodDelete)

	r.HandleFunc("/reviews", s.handleListReviews).Methods(http.MethodGet)
	r.HandleFunc("/reviews", s.handleCreateReview).Methods(http.MethodPost)
	r.HandleFunc("/reviews/{id}", s.handleGetReview).Methods(http.MethodGet)
	r.HandleFunc("/reviews/{id}", s.handleDeleteReview).Methods(http.MethodDelete)

	r.HandleFunc("/rpc/{proc}", s.handleProcedure).Methods(http.MethodPost)

	s.httpSrv = httptest.NewServer(r)
	return s
}

// URL is the service base URL.
func (s *Server) URL() string { return s.httpSrv.URL }

// Close shuts the listener down.
func (s *Server) Close() { s.httpSrv.Close() }

// Fail arms a failure for its route until cleared.
func (s *Server) Fail(f Failure) {
	s.mu.Lock()
	s.failures = append(s.failures, f)
	s.mu.Unlock()
}

// ClearFailures disarms all injected failures.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	s.failures = nil
	s.mu.Unlock()
}

func (s *Server) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var hit *Failure
		for i := range s.failures {
			f := &s.failures[i]
			if f.Method == r.Method && f.Path == r.URL.Path {
				hit = f
				break
			}
		}
		s.mu.Unlock()
		if hit != nil {
			writeError(w, hit.Status, hit.Code, hit.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return false
	}
	return true
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	me := s.Me
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, me)
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !decode(w, r, &raw) {
		return
	}
	s.mu.Lock()
	s.Notifications = append(s.Notifications, raw)
	s.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !decode(w, r, &raw) {
		return
	}
	s.mu.Lock()
	s.AuditEntries = append(s.AuditEntries, raw)
	s.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

// SideEffectCounts reports how many notification and audit posts arrived.
func (s *Server) SideEffectCounts() (notify, audit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Notifications), len(s.AuditEntries)
}
