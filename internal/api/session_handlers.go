package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go-petri-flow/internal/session"
)

// SessionHandlers contains handlers for session lifecycle endpoints.
type SessionHandlers struct {
	server *Server
}

// NewSessionHandlers creates new session handlers.
func NewSessionHandlers(server *Server) *SessionHandlers {
	return &SessionHandlers{server: server}
}

type CreateSessionRequest struct {
	ID    string `json:"id"`
	NetID string `json:"netId"`
	Name  string `json:"name"`
}

type SessionResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Marking     *MarkingResponse `json:"marking,omitempty"`
}

type RunSessionResponse struct {
	Fired   int             `json:"fired"`
	Session SessionResponse `json:"session"`
}

func sessionToResponse(s *session.Session) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID,
		Name:        s.Name,
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
	if s.Marking != nil {
		m := markingToResponse(s.Marking)
		resp.Marking = &m
	}
	return resp
}

// CreateSession creates a session against a loaded net.
func (h *SessionHandlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "failed to parse JSON: "+err.Error())
		return
	}
	if req.ID == "" || req.NetID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "id, netId, and name are all required")
		return
	}

	loaded, err := h.server.getNet(req.NetID)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}

	s, err := loaded.sessions.CreateSession(req.ID, req.Name)
	if err != nil {
		writeError(w, http.StatusConflict, "creation_failed", err.Error())
		return
	}

	writeSuccess(w, sessionToResponse(s), "session created successfully")
}

// StartSession moves a session to RUNNING against its net's initial marking.
func (h *SessionHandlers) StartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}
	netID := r.URL.Query().Get("netId")
	sessionID := r.URL.Query().Get("id")
	if netID == "" || sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing_parameter", "netId and id query parameters are required")
		return
	}

	loaded, err := h.server.getNet(netID)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}

	if err := loaded.sessions.StartSession(sessionID, loaded.initial.Clone()); err != nil {
		writeError(w, http.StatusBadRequest, "start_failed", err.Error())
		return
	}

	s, err := loaded.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "retrieval_failed", err.Error())
		return
	}
	writeSuccess(w, sessionToResponse(s), "session started successfully")
}

// GetSession retrieves a session by ID.
func (h *SessionHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}
	netID := r.URL.Query().Get("netId")
	sessionID := r.URL.Query().Get("id")
	loaded, err := h.server.getNet(netID)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}
	s, err := loaded.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	writeSuccess(w, sessionToResponse(s), "")
}

// RunSession fires every enabled Auto transition until the session stalls.
func (h *SessionHandlers) RunSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}
	netID := r.URL.Query().Get("netId")
	sessionID := r.URL.Query().Get("id")
	loaded, err := h.server.getNet(netID)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}

	fired, err := loaded.sessions.RunAuto(sessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "run_failed", err.Error())
		return
	}
	s, err := loaded.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "retrieval_failed", err.Error())
		return
	}
	writeSuccess(w, RunSessionResponse{Fired: fired, Session: sessionToResponse(s)}, "")
}

// SuspendSession suspends a running session.
func (h *SessionHandlers) SuspendSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) { s.Suspend() }, "session suspended successfully")
}

// ResumeSession resumes a suspended session.
func (h *SessionHandlers) ResumeSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) { s.Resume() }, "session resumed successfully")
}

// AbortSession aborts a session.
func (h *SessionHandlers) AbortSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) { s.Abort() }, "session aborted successfully")
}

// transition applies a lifecycle mutation to the registered session.
func (h *SessionHandlers) transition(w http.ResponseWriter, r *http.Request, mutate func(*session.Session), successMessage string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}
	netID := r.URL.Query().Get("netId")
	sessionID := r.URL.Query().Get("id")
	loaded, err := h.server.getNet(netID)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}
	if err := loaded.sessions.Mutate(sessionID, mutate); err != nil {
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s, err := loaded.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "retrieval_failed", err.Error())
		return
	}
	writeSuccess(w, sessionToResponse(s), successMessage)
}
