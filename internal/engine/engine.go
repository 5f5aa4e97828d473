// Package engine implements the occurrence rule: enabling checks,
// binding search, firing, and clock advance. Binding search is
// pool-based: candidates are drawn from the union of ready tokens
// across a transition's input places, not matched arc-by-arc.
package engine

import (
	"fmt"
	"sort"

	"go-petri-flow/internal/expression"
	"go-petri-flow/internal/marking"
	"go-petri-flow/internal/net"
	"go-petri-flow/internal/token"
)

// Engine evaluates guards/arc expressions against a Net's structure to
// answer enabling, binding-search and firing queries. It holds no
// marking itself: every method takes one explicitly, so the same
// engine can drive many independent markings (the reachability
// builder's exploration in particular).
type Engine struct {
	net       *net.Net
	evaluator *expression.Evaluator
}

// New builds an engine for net n using evaluator eval for every guard
// and arc-inscription evaluation.
func New(n *net.Net, eval *expression.Evaluator) *Engine {
	return &Engine{net: n, evaluator: eval}
}

// Close releases the engine's evaluator resources.
func (e *Engine) Close() {
	if e.evaluator != nil {
		e.evaluator.Close()
	}
}

// Binding assigns a value to each of a transition's bound variables.
type Binding = expression.Binding

// IsEnabled reports whether t is enabled under binding in m: the
// guard (if any) evaluates true, and every input arc's evaluated
// demand is available at m.GlobalClock.
func (e *Engine) IsEnabled(t *net.Transition, m *marking.Marking, binding Binding) (bool, error) {
	ok, err := e.evaluator.EvaluateGuard(t.Guard, binding)
	if err != nil {
		return false, &EvaluationFailedError{Expression: t.Guard, Cause: err}
	}
	if !ok {
		return false, nil
	}

	demand := make(map[string]map[string]int) // place -> value key -> count
	for _, arc := range e.net.InputArcs(t) {
		values, _, err := e.evaluator.EvaluateArc(arc.Expression, binding)
		if err != nil {
			return false, &EvaluationFailedError{Expression: arc.Expression, Cause: err}
		}
		byKey, ok := demand[arc.Place]
		if !ok {
			byKey = make(map[string]int)
			demand[arc.Place] = byKey
		}
		for _, v := range values {
			byKey[token.ValueKey(v)]++
		}
	}

	for place, byKey := range demand {
		ms := m.Get(place)
		for key, need := range byKey {
			have := 0
			for _, inst := range ms[key] {
				if inst.IsReadyAt(m.GlobalClock) {
					have++
				}
			}
			if have < need {
				return false, nil
			}
		}
	}
	return true, nil
}

// candidatePool collects the union of ready-token values across every
// input place of t, deduplicated and in ascending key order. The pool
// is drawn across all of a transition's input places, not per-arc.
func (e *Engine) candidatePool(t *net.Transition, m *marking.Marking) []interface{} {
	seen := make(map[string]bool)
	var pool []interface{}
	places := make(map[string]bool)
	for _, arc := range e.net.InputArcs(t) {
		places[arc.Place] = true
	}
	placeNames := make([]string, 0, len(places))
	for p := range places {
		placeNames = append(placeNames, p)
	}
	sort.Strings(placeNames)

	for _, place := range placeNames {
		ms := m.Get(place)
		for _, v := range ms.ReadyTokensAt(m.GlobalClock) {
			key := token.ValueKey(v.Value)
			if !seen[key] {
				seen[key] = true
				pool = append(pool, v.Value)
			}
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return token.ValueKey(pool[i]) < token.ValueKey(pool[j])
	})
	return pool
}

// FindBinding returns the first binding (DFS over t's ordered
// Variables, assigning each from the shared candidate pool, for
// deterministic results) under which t is enabled, or ok=false if
// none exists.
func (e *Engine) FindBinding(t *net.Transition, m *marking.Marking) (binding Binding, ok bool, err error) {
	if len(t.Variables) == 0 {
		enabled, evalErr := e.IsEnabled(t, m, Binding{})
		if evalErr != nil {
			return nil, false, evalErr
		}
		return Binding{}, enabled, nil
	}

	pool := e.candidatePool(t, m)
	found := false
	var result Binding

	var assign func(index int, current Binding) error
	assign = func(index int, current Binding) error {
		if found {
			return nil
		}
		if index == len(t.Variables) {
			enabled, evalErr := e.IsEnabled(t, m, current)
			if evalErr != nil {
				return evalErr
			}
			if enabled {
				found = true
				result = cloneBinding(current)
			}
			return nil
		}
		variable := t.Variables[index]
		for _, value := range pool {
			if found {
				return nil
			}
			current[variable] = value
			if err := assign(index+1, current); err != nil {
				return err
			}
		}
		delete(current, variable)
		return nil
	}

	if err := assign(0, Binding{}); err != nil {
		return nil, false, err
	}
	return result, found, nil
}

// FindAllBindings enumerates every binding under which t is enabled,
// exhaustively, for use by the reachability builder (bindings are returned in a stable, pool-ascending order).
func (e *Engine) FindAllBindings(t *net.Transition, m *marking.Marking) ([]Binding, error) {
	if len(t.Variables) == 0 {
		enabled, err := e.IsEnabled(t, m, Binding{})
		if err != nil {
			return nil, err
		}
		if enabled {
			return []Binding{{}}, nil
		}
		return nil, nil
	}

	pool := e.candidatePool(t, m)
	var results []Binding

	var assign func(index int, current Binding) error
	assign = func(index int, current Binding) error {
		if index == len(t.Variables) {
			enabled, err := e.IsEnabled(t, m, current)
			if err != nil {
				return err
			}
			if enabled {
				results = append(results, cloneBinding(current))
			}
			return nil
		}
		variable := t.Variables[index]
		for _, value := range pool {
			current[variable] = value
			if err := assign(index+1, current); err != nil {
				return err
			}
		}
		delete(current, variable)
		return nil
	}

	if err := assign(0, Binding{}); err != nil {
		return nil, err
	}
	return results, nil
}

func cloneBinding(b Binding) Binding {
	clone := make(Binding, len(b))
	for k, v := range b {
		clone[k] = v
	}
	return clone
}

// Fire executes the occurrence rule for t under
// binding against m, mutating m in place. If binding is nil, a
// binding is searched for first (NoBindingFound if none exists);
// otherwise the supplied binding is re-checked for enabling
// (TransitionNotEnabled if it fails). Firing is atomic: either every
// input arc's tokens are consumed and every output arc's tokens are
// produced, or m is left untouched.
func (e *Engine) Fire(t *net.Transition, m *marking.Marking, binding Binding) error {
	if binding == nil {
		found, ok, err := e.FindBinding(t, m)
		if err != nil {
			return err
		}
		if !ok {
			return &NoBindingFoundError{Transition: t.Name}
		}
		binding = found
	} else {
		enabled, err := e.IsEnabled(t, m, binding)
		if err != nil {
			return err
		}
		if !enabled {
			return &TransitionNotEnabledError{Transition: t.Name}
		}
	}

	working := m.Clone()

	for _, arc := range e.net.InputArcs(t) {
		values, _, err := e.evaluator.EvaluateArc(arc.Expression, binding)
		if err != nil {
			return &EvaluationFailedError{Expression: arc.Expression, Cause: err}
		}
		for _, v := range values {
			if err := working.Remove(arc.Place, v); err != nil {
				return &NotEnoughTokensError{Place: arc.Place, Cause: err}
			}
		}
	}

	for _, arc := range e.net.OutputArcs(t) {
		values, delay, err := e.evaluator.EvaluateArc(arc.Expression, binding)
		if err != nil {
			return &EvaluationFailedError{Expression: arc.Expression, Cause: err}
		}
		place := e.net.LookupPlace(arc.Place)
		if place == nil {
			return &EvaluationFailedError{Expression: arc.Expression, Cause: fmt.Errorf("unknown place %s", arc.Place)}
		}
		timestamp := 0
		if place.ColorSet.IsTimed() {
			timestamp = m.GlobalClock + t.TransitionDelay + delay
		}
		for _, v := range values {
			if !place.ColorSet.IsMember(v) {
				return &ColorMismatchError{Place: arc.Place, Value: v}
			}
			working.Add(arc.Place, v, timestamp)
		}
	}

	*m = *working
	return nil
}

// AdvanceClock advances m's global clock to the smallest token
// timestamp strictly greater than the current clock,
// returning whether it moved.
func (e *Engine) AdvanceClock(m *marking.Marking) bool {
	return m.AdvanceClock()
}

// EnabledTransitions returns the transitions of the net that have at
// least one enabling binding in m, in the net's insertion order.
func (e *Engine) EnabledTransitions(m *marking.Marking) ([]*net.Transition, error) {
	var result []*net.Transition
	for _, t := range e.net.Transitions {
		_, ok, err := e.FindBinding(t, m)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, t)
		}
	}
	return result, nil
}
