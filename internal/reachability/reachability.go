// Package reachability builds the occurrence graph of a net by BFS
// over equivalence classes of markings. The traversal and
// equivalence-key machinery are built directly on the occurrence
// engine's contract (internal/engine).
package reachability

import (
	"fmt"
	"sort"

	"go-petri-flow/internal/engine"
	"go-petri-flow/internal/marking"
	"go-petri-flow/internal/net"
	"go-petri-flow/internal/token"
)

// MarkingKeyFunc canonicalizes a marking into a hashable key. Two
// markings deemed equivalent must produce the same key.
type MarkingKeyFunc func(*marking.Marking) string

// BindingKeyFunc canonicalizes a binding into a hashable key.
type BindingKeyFunc func(engine.Binding) string

// DefaultMarkingKey is the marking.Marking.Key() default: global clock
// plus the sorted per-place (value, timestamp) multiset.
func DefaultMarkingKey(m *marking.Marking) string { return m.Key() }

// DefaultBindingKey is the sorted (variable, value) list default.
func DefaultBindingKey(b engine.Binding) string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	var out string
	for _, name := range names {
		out += fmt.Sprintf("%s=%s;", name, token.ValueKey(b[name]))
	}
	return out
}

// Node is one equivalence-class representative in the graph: a
// canonical key plus the marking that witnesses it.
type Node struct {
	Key     string
	Marking *marking.Marking
}

// Edge records one BFS transition: the source/target node keys, the
// transition that fired, and the canonical key of the binding used.
type Edge struct {
	From        string
	To          string
	Transition  string
	BindingKey  string
}

// Graph is the output of Build: every discovered node and every edge
// between them.
type Graph struct {
	Nodes map[string]*Node
	Edges []Edge
	Start string
}

// Builder runs the BFS exploration of equivalence-class markings
// against a fixed net and engine.
type Builder struct {
	net            *net.Net
	engine         *engine.Engine
	markingKey     MarkingKeyFunc
	bindingKey     BindingKeyFunc
	maxNodes       int
}

// Option configures a Builder.
type Option func(*Builder)

// WithMarkingKey overrides the marking-equivalence key function.
func WithMarkingKey(f MarkingKeyFunc) Option { return func(b *Builder) { b.markingKey = f } }

// WithBindingKey overrides the binding-equivalence key function.
func WithBindingKey(f BindingKeyFunc) Option { return func(b *Builder) { b.bindingKey = f } }

// WithMaxNodes caps the number of nodes explored; 0 means unbounded.
// The host is responsible for bounding reachability when the state
// space may be infinite (the builder itself treats the BFS queue as
// unbounded unless this option is set).
func WithMaxNodes(n int) Option { return func(b *Builder) { b.maxNodes = n } }

// NewBuilder creates a Builder for the given net and engine, defaulting
// to marking.Marking.Key() and the sorted-binding key.
func NewBuilder(n *net.Net, e *engine.Engine, opts ...Option) *Builder {
	b := &Builder{
		net:        n,
		engine:     e,
		markingKey: DefaultMarkingKey,
		bindingKey: DefaultBindingKey,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// pair is one (transition, binding) candidate collected at a node.
type pair struct {
	transition *net.Transition
	binding    engine.Binding
}

// Build explores every marking reachable from initial, producing the
// directed graph of equivalence-class nodes and labeled edges.
// Exploration stops early once maxNodes nodes have been
// enrolled, if WithMaxNodes was set to a positive value.
func (b *Builder) Build(initial *marking.Marking) (*Graph, error) {
	startKey := b.markingKey(initial)
	graph := &Graph{
		Nodes: map[string]*Node{startKey: {Key: startKey, Marking: initial}},
		Start: startKey,
	}

	queue := []string{startKey}
	for len(queue) > 0 {
		currentKey := queue[0]
		queue = queue[1:]
		current := graph.Nodes[currentKey].Marking

		pairs, err := b.collectPairs(current)
		if err != nil {
			return nil, err
		}

		if len(pairs) == 0 {
			probe := current.Clone()
			if probe.AdvanceClock() {
				pairs, err = b.collectPairs(probe)
				if err != nil {
					return nil, err
				}
				current = probe
				graph.Nodes[currentKey].Marking = probe
			}
		}

		for _, p := range pairs {
			successor := current.Clone()
			if err := b.engine.Fire(p.transition, successor, p.binding); err != nil {
				switch err.(type) {
				case *engine.EvaluationFailedError, *engine.TransitionNotEnabledError:
					continue
				default:
					return nil, err
				}
			}

			successorKey := b.markingKey(successor)
			if _, exists := graph.Nodes[successorKey]; !exists {
				graph.Nodes[successorKey] = &Node{Key: successorKey, Marking: successor}
				if b.maxNodes <= 0 || len(graph.Nodes) <= b.maxNodes {
					queue = append(queue, successorKey)
				}
			}

			graph.Edges = append(graph.Edges, Edge{
				From:       currentKey,
				To:         successorKey,
				Transition: p.transition.Name,
				BindingKey: b.bindingKey(p.binding),
			})
		}

		if b.maxNodes > 0 && len(graph.Nodes) >= b.maxNodes {
			break
		}
	}

	return graph, nil
}

// collectPairs gathers every (transition, binding) pair enabled in m,
// in the net's transition order and each transition's pool-ascending
// binding order, for deterministic output.
func (b *Builder) collectPairs(m *marking.Marking) ([]pair, error) {
	var pairs []pair
	for _, t := range b.net.Transitions {
		bindings, err := b.engine.FindAllBindings(t, m)
		if err != nil {
			return nil, err
		}
		for _, binding := range bindings {
			pairs = append(pairs, pair{transition: t, binding: binding})
		}
	}
	return pairs, nil
}
