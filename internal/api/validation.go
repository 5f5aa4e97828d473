package api

import (
	"net/http"
)

// ValidationViolation represents a failed validation rule.
type ValidationViolation struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// TransitionDiagnostic provides per-transition enablement info.
type TransitionDiagnostic struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Guard   string `json:"guard,omitempty"`
}

// ValidateNet validates a loaded net's structure and its initial
// marking: GET /api/nets/validate?id=...
func (s *Server) ValidateNet(w http.ResponseWriter, r *http.Request) {
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

	var violations []ValidationViolation
	if errs := loaded.net.Validate(); len(errs) > 0 {
		for _, e := range errs {
			violations = append(violations, ValidationViolation{Code: "structural_error", Message: e.Error()})
		}
	}

	for _, placeName := range loaded.initial.PlaceNames() {
		place := loaded.net.LookupPlace(placeName)
		if place == nil {
			violations = append(violations, ValidationViolation{Code: "initial_marking_unknown_place", Message: "initial marking references unknown place", Context: map[string]interface{}{"place": placeName}})
			continue
		}
		for _, tk := range loaded.initial.Get(placeName).AllTokens() {
			if !place.ColorSet.IsMember(tk.Value) {
				violations = append(violations, ValidationViolation{Code: "token_color_mismatch", Message: "token value is not a member of the place's color set", Context: map[string]interface{}{"place": placeName, "value": tk.Value}})
			}
		}
	}

	var diagnostics []TransitionDiagnostic
	enabledCount := 0
	for _, t := range loaded.net.Transitions {
		bindings, err := loaded.engine.FindAllBindings(t, loaded.initial)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "engine_error", "failed to evaluate transition "+t.Name+": "+err.Error())
			return
		}
		enabled := len(bindings) > 0
		if enabled {
			enabledCount++
		}
		diagnostics = append(diagnostics, TransitionDiagnostic{Name: t.Name, Enabled: enabled, Guard: t.Guard})
	}

	if enabledCount == 0 {
		violations = append(violations, ValidationViolation{Code: "deadlock", Message: "no transitions are enabled in the initial marking"})
	}

	result := map[string]interface{}{
		"id":          id,
		"valid":       len(violations) == 0,
		"violations":  violations,
		"transitions": diagnostics,
	}
	writeSuccess(w, result, "validation completed")
}
