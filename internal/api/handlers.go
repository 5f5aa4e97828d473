// Package api exposes the net/session/reachability model over a
// stdlib net/http.ServeMux REST interface.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go-petri-flow/internal/engine"
	"go-petri-flow/internal/expression"
	"go-petri-flow/internal/importer"
	"go-petri-flow/internal/marking"
	"go-petri-flow/internal/net"
	"go-petri-flow/internal/session"
)

func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

// loadedNet bundles together everything the server needs to drive one
// registered net: its structure, the engine evaluating it, and the
// session manager tracking running instances of it.
type loadedNet struct {
	id        string
	net       *net.Net
	evaluator *expression.Evaluator
	engine    *engine.Engine
	initial   *marking.Marking
	sessions  *session.Manager
}

// Server represents the API server.
type Server struct {
	nets             map[string]*loadedNet
	sessionHandlers  *SessionHandlers
	workItemHandlers *WorkItemHandlers
}

// NewServer creates a new API server.
func NewServer() *Server {
	s := &Server{
		nets: make(map[string]*loadedNet),
	}
	s.sessionHandlers = NewSessionHandlers(s)
	s.workItemHandlers = NewWorkItemHandlers(s)
	return s
}

// Close releases every loaded net's evaluator resources.
func (s *Server) Close() {
	for _, n := range s.nets {
		n.engine.Close()
	}
}

// Response structures

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type NetListResponse struct {
	Nets []NetInfo `json:"nets"`
}

type NetInfo struct {
	ID        string `json:"id"`
	Places    int    `json:"places"`
	Transitions int  `json:"transitions"`
}

type MarkingResponse struct {
	GlobalClock int                    `json:"globalClock"`
	Places      map[string][]TokenInfo `json:"places"`
}

type TokenInfo struct {
	Value     interface{} `json:"value"`
	Timestamp int         `json:"timestamp"`
}

type TransitionInfo struct {
	ID              string   `json:"id"`
	Enabled         bool     `json:"enabled"`
	Guard           string   `json:"guard,omitempty"`
	Variables       []string `json:"variables,omitempty"`
	TransitionDelay int      `json:"transitionDelay,omitempty"`
	BindingCount    int      `json:"bindingCount"`
}

// EnabledTransitionDetail extends TransitionInfo with concrete bindings.
type EnabledTransitionDetail struct {
	TransitionInfo
	Bindings []map[string]interface{} `json:"bindings"`
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

func writeSuccess(w http.ResponseWriter, data interface{}, message string) {
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data, Message: message})
}

func (s *Server) getNet(id string) (*loadedNet, error) {
	n, exists := s.nets[id]
	if !exists {
		return nil, fmt.Errorf("net with ID %s not found", id)
	}
	return n, nil
}

func markingToResponse(m *marking.Marking) MarkingResponse {
	places := make(map[string][]TokenInfo)
	for _, placeName := range m.PlaceNames() {
		ms := m.Get(placeName)
		all := ms.AllTokens()
		infos := make([]TokenInfo, len(all))
		for i, tk := range all {
			infos[i] = TokenInfo{Value: tk.Value, Timestamp: tk.Timestamp}
		}
		places[placeName] = infos
	}
	return MarkingResponse{GlobalClock: m.GlobalClock, Places: places}
}

// API Handlers

// LoadNet loads a net definition plus initial marking from JSON.
func (s *Server) LoadNet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_parameter", "net ID is required")
		return
	}
	if _, exists := s.nets[id]; exists {
		writeError(w, http.StatusConflict, "net_exists", "net with ID "+id+" already exists")
		return
	}

	body, err := readAll(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to read request body: "+err.Error())
		return
	}

	n, m, _, evalContext, err := importer.ImportJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_net", "failed to import net: "+err.Error())
		return
	}

	eval, err := expression.NewWithEnvironment(evalContext)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "evaluator_error", "failed to initialize evaluator: "+err.Error())
		return
	}

	eng := engine.New(n, eval)
	loaded := &loadedNet{
		id:        id,
		net:       n,
		evaluator: eval,
		engine:    eng,
		initial:   m,
		sessions:  session.NewManager(n, eng),
	}
	s.nets[id] = loaded

	writeSuccess(w, NetInfo{ID: id, Places: len(n.Places), Transitions: len(n.Transitions)}, "net loaded successfully")
}

// ListNets returns a list of all loaded nets.
func (s *Server) ListNets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	var nets []NetInfo
	for _, n := range s.nets {
		nets = append(nets, NetInfo{ID: n.id, Places: len(n.net.Places), Transitions: len(n.net.Transitions)})
	}
	writeSuccess(w, NetListResponse{Nets: nets}, "")
}

// GetNet returns the JSON export of a loaded net and its initial marking.
func (s *Server) GetNet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}
	id := r.URL.Query().Get("id")
	loaded, err := s.getNet(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}
	writeSuccess(w, importer.Export(loaded.net, loaded.initial), "")
}

// DeleteNet removes a net and all of its sessions from the server.
func (s *Server) DeleteNet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only DELETE method is allowed")
		return
	}
	id := r.URL.Query().Get("id")
	loaded, err := s.getNet(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}
	loaded.engine.Close()
	delete(s.nets, id)
	writeSuccess(w, nil, "net deleted successfully")
}

// GetTransitions returns information about every transition in a net,
// evaluated against its initial marking.
func (s *Server) GetTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}
	id := r.URL.Query().Get("id")
	loaded, err := s.getNet(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}

	var transitions []TransitionInfo
	for _, t := range loaded.net.Transitions {
		bindings, err := loaded.engine.FindAllBindings(t, loaded.initial)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "engine_error", "failed to evaluate transition "+t.Name+": "+err.Error())
			return
		}
		transitions = append(transitions, TransitionInfo{
			ID:              t.Name,
			Enabled:         len(bindings) > 0,
			Guard:           t.Guard,
			Variables:       t.Variables,
			TransitionDelay: t.TransitionDelay,
			BindingCount:    len(bindings),
		})
	}
	writeSuccess(w, transitions, "")
}

// GetEnabledTransitions returns only the transitions enabled in a
// net's initial marking, each with its concrete candidate bindings.
func (s *Server) GetEnabledTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}
	id := r.URL.Query().Get("id")
	loaded, err := s.getNet(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}

	var details []EnabledTransitionDetail
	for _, t := range loaded.net.Transitions {
		bindings, err := loaded.engine.FindAllBindings(t, loaded.initial)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "engine_error", "failed to evaluate transition "+t.Name+": "+err.Error())
			return
		}
		if len(bindings) == 0 {
			continue
		}
		bindingObjs := make([]map[string]interface{}, 0, len(bindings))
		for _, b := range bindings {
			obj := make(map[string]interface{}, len(b))
			for varName, value := range b {
				obj[varName] = value
			}
			bindingObjs = append(bindingObjs, obj)
		}
		details = append(details, EnabledTransitionDetail{
			TransitionInfo: TransitionInfo{
				ID:              t.Name,
				Enabled:         true,
				Guard:           t.Guard,
				Variables:       t.Variables,
				TransitionDelay: t.TransitionDelay,
				BindingCount:    len(bindings),
			},
			Bindings: bindingObjs,
		})
	}
	writeSuccess(w, details, "")
}
