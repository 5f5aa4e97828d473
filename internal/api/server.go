package api

import (
	"log"
	"net/http"
)

// SetupRoutes sets up the HTTP routes for the API server.
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Net management
	mux.HandleFunc("/api/nets/load", s.corsMiddleware(s.LoadNet))
	mux.HandleFunc("/api/nets/list", s.corsMiddleware(s.ListNets))
	mux.HandleFunc("/api/nets/get", s.corsMiddleware(s.GetNet))
	mux.HandleFunc("/api/nets/delete", s.corsMiddleware(s.DeleteNet))
	mux.HandleFunc("/api/nets/validate", s.corsMiddleware(s.ValidateNet))

	// Transitions
	mux.HandleFunc("/api/transitions/list", s.corsMiddleware(s.GetTransitions))
	mux.HandleFunc("/api/transitions/enabled", s.corsMiddleware(s.GetEnabledTransitions))

	// Reachability
	mux.HandleFunc("/api/reachability/build", s.corsMiddleware(s.BuildReachability))
	mux.HandleFunc("/api/reachability/explore", s.corsMiddleware(s.ExploreSession))

	// Session management
	mux.HandleFunc("/api/sessions/create", s.corsMiddleware(s.sessionHandlers.CreateSession))
	mux.HandleFunc("/api/sessions/start", s.corsMiddleware(s.sessionHandlers.StartSession))
	mux.HandleFunc("/api/sessions/get", s.corsMiddleware(s.sessionHandlers.GetSession))
	mux.HandleFunc("/api/sessions/run", s.corsMiddleware(s.sessionHandlers.RunSession))
	mux.HandleFunc("/api/sessions/suspend", s.corsMiddleware(s.sessionHandlers.SuspendSession))
	mux.HandleFunc("/api/sessions/resume", s.corsMiddleware(s.sessionHandlers.ResumeSession))
	mux.HandleFunc("/api/sessions/abort", s.corsMiddleware(s.sessionHandlers.AbortSession))

	// Work item management
	mux.HandleFunc("/api/workitems/refresh", s.corsMiddleware(s.workItemHandlers.RefreshWorkItems))
	mux.HandleFunc("/api/workitems/list", s.corsMiddleware(s.workItemHandlers.ListWorkItems))
	mux.HandleFunc("/api/workitems/allocate", s.corsMiddleware(s.workItemHandlers.AllocateWorkItem))
	mux.HandleFunc("/api/workitems/complete", s.corsMiddleware(s.workItemHandlers.CompleteWorkItem))
	mux.HandleFunc("/api/workitems/cancel", s.corsMiddleware(s.workItemHandlers.CancelWorkItem))

	// Utility
	mux.HandleFunc("/api/health", s.corsMiddleware(s.HealthCheck))
	mux.HandleFunc("/api/docs", s.corsMiddleware(s.APIDocs))

	return mux
}

// corsMiddleware adds CORS headers to allow cross-origin requests.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// HealthCheck returns the health status of the API.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	status := map[string]interface{}{
		"status":  "healthy",
		"service": "go-petri-flow",
		"version": "1.0.0",
		"nets":    len(s.nets),
		"engine":  "gopher-lua",
	}

	writeSuccess(w, status, "service is healthy")
}

// APIDocs returns API documentation.
func (s *Server) APIDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	docs := map[string]interface{}{
		"title":       "Go Petri Flow API",
		"version":     "1.0.0",
		"description": "REST API for colored Petri net simulation using gopher-lua",
		"endpoints": map[string]interface{}{
			"Net Management": map[string]interface{}{
				"POST /api/nets/load":       "Load a net from a JSON document (colorSets/places/transitions/initialMarking)",
				"GET /api/nets/list":        "List all loaded nets",
				"GET /api/nets/get":         "Get a net's JSON export by ID",
				"DELETE /api/nets/delete":   "Delete a net by ID",
				"GET /api/nets/validate":    "Validate a net and its initial marking",
			},
			"Transitions": map[string]interface{}{
				"GET /api/transitions/list":    "List transitions and whether they're enabled in the net's initial marking",
				"GET /api/transitions/enabled": "List enabled transitions in the net's initial marking, each with its concrete bindings",
			},
			"Reachability": map[string]interface{}{
				"GET /api/reachability/build":   "Build the reachability graph from a net's initial marking",
				"GET /api/reachability/explore": "Build the reachability graph from a running session's current marking",
			},
			"Sessions": map[string]interface{}{
				"POST /api/sessions/create":  "Create a session against a loaded net",
				"POST /api/sessions/start":   "Start a session from its net's initial marking",
				"GET /api/sessions/get":      "Get a session by ID",
				"POST /api/sessions/run":     "Fire every enabled automatic transition until the session stalls",
				"POST /api/sessions/suspend": "Suspend a running session",
				"POST /api/sessions/resume":  "Resume a suspended session",
				"POST /api/sessions/abort":   "Abort a session",
			},
			"Work Items": map[string]interface{}{
				"POST /api/workitems/refresh":  "Create a work item for each enabled binding of each manual transition",
				"GET /api/workitems/list":      "List a session's work items",
				"POST /api/workitems/allocate": "Allocate a work item to a resource",
				"POST /api/workitems/complete": "Fire a work item's transition under its bound binding",
				"POST /api/workitems/cancel":   "Discard a work item without firing it",
			},
			"Utility": map[string]interface{}{
				"GET /api/health": "Health check",
				"GET /api/docs":   "API documentation",
			},
		},
	}

	writeSuccess(w, docs, "")
}

// StartServer starts the HTTP server.
func (s *Server) StartServer(port string) error {
	mux := s.SetupRoutes()

	log.Printf("Starting Go Petri Flow API server on port %s", port)
	log.Printf("API documentation available at: http://localhost:%s/api/docs", port)
	log.Printf("Health check available at: http://localhost:%s/api/health", port)

	return http.ListenAndServe("0.0.0.0:"+port, mux)
}
