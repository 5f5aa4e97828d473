package api

import (
	"net/http"
	"time"

	"go-petri-flow/internal/session"
)

// WorkItemHandlers contains handlers for work item management endpoints.
type WorkItemHandlers struct {
	server *Server
}

// NewWorkItemHandlers creates new work item handlers.
func NewWorkItemHandlers(server *Server) *WorkItemHandlers {
	return &WorkItemHandlers{server: server}
}

type WorkItemResponse struct {
	ID          string                 `json:"id"`
	SessionID   string                 `json:"sessionId"`
	Transition  string                 `json:"transition"`
	Status      string                 `json:"status"`
	CreatedAt   time.Time              `json:"createdAt"`
	AllocatedTo string                 `json:"allocatedTo,omitempty"`
	Binding     map[string]interface{} `json:"binding"`
}

func workItemToResponse(item *session.WorkItem) WorkItemResponse {
	binding := make(map[string]interface{}, len(item.Binding))
	for k, v := range item.Binding {
		binding[k] = v
	}
	return WorkItemResponse{
		ID:          item.ID,
		SessionID:   item.SessionID,
		Transition:  item.Transition,
		Status:      string(item.Status),
		CreatedAt:   item.CreatedAt,
		AllocatedTo: item.AllocatedTo,
		Binding:     binding,
	}
}

// RefreshWorkItems scans a running session for newly enabled Manual
// transitions and creates one work item per enabling binding.
func (h *WorkItemHandlers) RefreshWorkItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}
	netID := r.URL.Query().Get("netId")
	sessionID := r.URL.Query().Get("sessionId")
	loaded, err := h.server.getNet(netID)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}

	created, err := loaded.sessions.RefreshWorkItems(sessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "refresh_failed", err.Error())
		return
	}

	var out []WorkItemResponse
	for _, item := range created {
		out = append(out, workItemToResponse(item))
	}
	writeSuccess(w, out, "")
}

// ListWorkItems lists the work items of a session.
func (h *WorkItemHandlers) ListWorkItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}
	netID := r.URL.Query().Get("netId")
	sessionID := r.URL.Query().Get("sessionId")
	loaded, err := h.server.getNet(netID)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}

	items := loaded.sessions.ListWorkItems(sessionID)
	var out []WorkItemResponse
	for _, item := range items {
		out = append(out, workItemToResponse(item))
	}
	writeSuccess(w, out, "")
}

// AllocateWorkItem assigns a work item to a resource.
func (h *WorkItemHandlers) AllocateWorkItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}
	netID := r.URL.Query().Get("netId")
	itemID := r.URL.Query().Get("id")
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		writeError(w, http.StatusBadRequest, "missing_parameter", "resource query parameter is required")
		return
	}
	loaded, err := h.server.getNet(netID)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}
	if err := loaded.sessions.Allocate(itemID, resource); err != nil {
		writeError(w, http.StatusNotFound, "allocate_failed", err.Error())
		return
	}
	writeSuccess(w, nil, "work item allocated successfully")
}

// CompleteWorkItem fires the work item's transition under its bound binding.
func (h *WorkItemHandlers) CompleteWorkItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}
	netID := r.URL.Query().Get("netId")
	itemID := r.URL.Query().Get("id")
	loaded, err := h.server.getNet(netID)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}
	if err := loaded.sessions.Complete(itemID); err != nil {
		writeError(w, http.StatusBadRequest, "complete_failed", err.Error())
		return
	}
	writeSuccess(w, nil, "work item completed successfully")
}

// CancelWorkItem discards a work item without firing it.
func (h *WorkItemHandlers) CancelWorkItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}
	netID := r.URL.Query().Get("netId")
	itemID := r.URL.Query().Get("id")
	loaded, err := h.server.getNet(netID)
	if err != nil {
		writeError(w, http.StatusNotFound, "net_not_found", err.Error())
		return
	}
	if err := loaded.sessions.Cancel(itemID); err != nil {
		writeError(w, http.StatusBadRequest, "cancel_failed", err.Error())
		return
	}
	writeSuccess(w, nil, "work item cancelled successfully")
}
