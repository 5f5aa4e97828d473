package reachability

import (
	"testing"

	"go-petri-flow/internal/colorset"
	"go-petri-flow/internal/engine"
	"go-petri-flow/internal/expression"
	"go-petri-flow/internal/marking"
	"go-petri-flow/internal/net"
)

// buildCounterNet builds a single place p (initially empty; callers
// seed it with one token) and a transition that decrements that token
// down to 0.
func buildCounterNet(t *testing.T) (*net.Net, *engine.Engine) {
	t.Helper()
	n := net.New("counter")
	if err := n.AddPlace(&net.Place{Name: "p", ColorSet: colorset.NewInteger("INT", false)}); err != nil {
		t.Fatalf("AddPlace: %v", err)
	}
	tr := &net.Transition{Name: "dec", Variables: []string{"x"}, Guard: "x > 0"}
	if err := n.AddTransition(tr); err != nil {
		t.Fatalf("AddTransition: %v", err)
	}
	if err := n.AddArc(&net.Arc{Place: "p", Transition: "dec", Expression: "x", Direction: net.DirIn}); err != nil {
		t.Fatalf("AddArc in: %v", err)
	}
	if err := n.AddArc(&net.Arc{Place: "p", Transition: "dec", Expression: "x - 1", Direction: net.DirOut}); err != nil {
		t.Fatalf("AddArc out: %v", err)
	}
	eval := expression.New()
	return n, engine.New(n, eval)
}

func TestBuildExploresFiniteStateSpace(t *testing.T) {
	n, e := buildCounterNet(t)
	defer e.Close()
	_ = n

	m := marking.New()
	m.Add("p", 3, 0)

	builder := NewBuilder(n, e)
	graph, err := builder.Build(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 3 -> 2 -> 1 -> 0 (deadlock) is 4 distinct markings.
	if len(graph.Nodes) != 4 {
		t.Fatalf("expected 4 reachable markings, got %d", len(graph.Nodes))
	}
	if len(graph.Edges) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(graph.Edges))
	}
}

func TestBuildRespectsMaxNodes(t *testing.T) {
	n, e := buildCounterNet(t)
	defer e.Close()
	_ = n

	m := marking.New()
	m.Add("p", 10, 0)

	builder := NewBuilder(n, e, WithMaxNodes(2))
	graph, err := builder.Build(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(graph.Nodes) > 2 {
		t.Fatalf("expected at most 2 nodes with WithMaxNodes(2), got %d", len(graph.Nodes))
	}
}

func TestDefaultBindingKeyStableAcrossMapOrder(t *testing.T) {
	a := engine.Binding{"x": 1, "y": 2}
	b := engine.Binding{"y": 2, "x": 1}
	if DefaultBindingKey(a) != DefaultBindingKey(b) {
		t.Fatalf("expected binding key to be independent of map iteration order")
	}
}

func TestBuildStartsAtInitialMarkingKey(t *testing.T) {
	n, e := buildCounterNet(t)
	defer e.Close()
	_ = n

	m := marking.New()
	m.Add("p", 1, 0)

	builder := NewBuilder(n, e)
	graph, err := builder.Build(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if graph.Start != DefaultMarkingKey(m) {
		t.Fatalf("expected start key to match the initial marking's default key")
	}
	if _, ok := graph.Nodes[graph.Start]; !ok {
		t.Fatalf("start key must be present among the graph's nodes")
	}
}
