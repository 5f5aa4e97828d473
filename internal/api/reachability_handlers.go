package api

import (
	"net/http"
	"strconv"

	"go-petri-flow/internal/reachability"
)

// GraphResponse is the JSON rendering of a reachability graph.
type GraphResponse struct {
	Start string          `json:"start"`
	Nodes []GraphNode     `json:"nodes"`
	Edges []GraphEdgeInfo `json:"edges"`
}

type GraphNode struct {
	Key     string          `json:"key"`
	Marking MarkingResponse `json:"marking"`
}

type GraphEdgeInfo struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Transition string `json:"transition"`
	BindingKey string `json:"bindingKey"`
}

// BuildReachability explores every marking reachable from a net's
// initial marking, up to an optional maxNodes cap (default 1000,
// since the state space may be infinite).
func (s *Server) BuildReachability(w http.ResponseWriter, r *http.Request) {
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

	maxNodes := 1000
	if raw := r.URL.Query().Get("maxNodes"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			maxNodes = parsed
		}
	}

	builder := reachability.NewBuilder(loaded.net, loaded.engine, reachability.WithMaxNodes(maxNodes))
	graph, err := builder.Build(loaded.initial.Clone())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reachability_error", "failed to build reachability graph: "+err.Error())
		return
	}

	writeSuccess(w, graphToResponse(graph), "")
}

// ExploreSession builds the reachability graph rooted at a running
// session's current marking, rather than the net's initial marking.
func (s *Server) ExploreSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}
	netID := r.URL.Query().Get("netId")
	sessionID := r.URL.Query().Get("id")
	loaded, err := s.getNet(netID)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}

	maxNodes := 1000
	if raw := r.URL.Query().Get("maxNodes"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			maxNodes = parsed
		}
	}

	graph, err := loaded.sessions.Explore(sessionID, reachability.WithMaxNodes(maxNodes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "explore_failed", err.Error())
		return
	}

	writeSuccess(w, graphToResponse(graph), "")
}

func graphToResponse(graph *reachability.Graph) GraphResponse {
	resp := GraphResponse{Start: graph.Start}
	for key, node := range graph.Nodes {
		resp.Nodes = append(resp.Nodes, GraphNode{Key: key, Marking: markingToResponse(node.Marking)})
	}
	for _, edge := range graph.Edges {
		resp.Edges = append(resp.Edges, GraphEdgeInfo{From: edge.From, To: edge.To, Transition: edge.Transition, BindingKey: edge.BindingKey})
	}
	return resp
}
