// Package importer implements the JSON net+marking import/export
// contract: it resolves a document's color-set DSL strings and wires
// places, transitions, arcs, and the initial marking into the net and
// marking packages.
package importer

import (
	"encoding/json"
	"fmt"

	"go-petri-flow/internal/colorset"
	"go-petri-flow/internal/marking"
	"go-petri-flow/internal/net"
)

// Document is the external JSON shape for a net plus its initial
// marking and optional supporting definitions.
type Document struct {
	ColorSets         []string               `json:"colorSets,omitempty"`
	JSONSchemas       []SchemaDef            `json:"jsonSchemas,omitempty"`
	Places            []PlaceDef             `json:"places"`
	Transitions       []TransitionDef        `json:"transitions"`
	InitialMarking    map[string]MarkingDef  `json:"initialMarking,omitempty"`
	EvaluationContext string                 `json:"evaluationContext,omitempty"`
}

// SchemaDef names a JSON Schema available to `dict<Name>` color sets.
type SchemaDef struct {
	Name   string      `json:"name"`
	Schema interface{} `json:"schema"`
}

// PlaceDef is one entry of the "places" array.
type PlaceDef struct {
	Name      string `json:"name"`
	ColorSet  string `json:"colorSet"`
	SubnetRef string `json:"subnetRef,omitempty"`
}

// ArcDef is one entry of a transition's inArcs/outArcs array.
type ArcDef struct {
	Place      string `json:"place"`
	Expression string `json:"expression"`
}

// TransitionDef is one entry of the "transitions" array.
type TransitionDef struct {
	Name            string   `json:"name"`
	Guard           string   `json:"guard,omitempty"`
	Variables       []string `json:"variables,omitempty"`
	TransitionDelay int      `json:"transitionDelay,omitempty"`
	InArcs          []ArcDef `json:"inArcs"`
	OutArcs         []ArcDef `json:"outArcs"`
	SubnetRef       string   `json:"subnetRef,omitempty"`
}

// MarkingDef is the initial-marking entry for a single place: parallel
// values/timestamps arrays (timestamps defaults to all-zero when
// absent).
type MarkingDef struct {
	Tokens     []interface{} `json:"tokens"`
	Timestamps []int         `json:"timestamps,omitempty"`
}

// Import parses a Document into a *net.Net, its initial *marking.Marking,
// the color-set parser used to resolve place color sets (the
// expression evaluator is built separately and shares no state with
// it), and the document's
// evaluationContext Lua source blob (empty if absent), which the
// caller threads into expression.NewWithEnvironment to establish the
// net's helper functions/constants.
func Import(doc *Document) (*net.Net, *marking.Marking, *colorset.Parser, string, error) {
	parser := colorset.NewParser()

	for _, s := range doc.JSONSchemas {
		if err := parser.RegisterSchema(s.Name, s.Schema); err != nil {
			return nil, nil, nil, "", fmt.Errorf("failed to register json schema %s: %w", s.Name, err)
		}
	}

	if _, err := parser.ParseAll(doc.ColorSets); err != nil {
		return nil, nil, nil, "", fmt.Errorf("failed to parse color sets: %w", err)
	}

	n := net.New("imported")

	for _, p := range doc.Places {
		cs, ok := parser.Get(p.ColorSet)
		if !ok {
			return nil, nil, nil, "", &net.InvalidNetError{Reason: fmt.Sprintf("unknown color set %s for place %s", p.ColorSet, p.Name)}
		}
		if err := n.AddPlace(&net.Place{Name: p.Name, ColorSet: cs, SubnetRef: p.SubnetRef}); err != nil {
			return nil, nil, nil, "", err
		}
	}

	for _, t := range doc.Transitions {
		transition := &net.Transition{
			Name:            t.Name,
			Guard:           t.Guard,
			Variables:       t.Variables,
			TransitionDelay: t.TransitionDelay,
			SubnetRef:       t.SubnetRef,
		}
		if err := n.AddTransition(transition); err != nil {
			return nil, nil, nil, "", err
		}
		for _, a := range t.InArcs {
			if err := n.AddArc(&net.Arc{Place: a.Place, Transition: t.Name, Expression: a.Expression, Direction: net.DirIn}); err != nil {
				return nil, nil, nil, "", err
			}
		}
		for _, a := range t.OutArcs {
			if err := n.AddArc(&net.Arc{Place: a.Place, Transition: t.Name, Expression: a.Expression, Direction: net.DirOut}); err != nil {
				return nil, nil, nil, "", err
			}
		}
	}

	if errs := n.Validate(); len(errs) > 0 {
		return nil, nil, nil, "", &net.InvalidNetError{Reason: fmt.Sprintf("%d structural errors, first: %v", len(errs), errs[0])}
	}

	m := marking.New()
	for placeName, def := range doc.InitialMarking {
		place := n.LookupPlace(placeName)
		if place == nil {
			return nil, nil, nil, "", &net.InvalidNetError{Reason: fmt.Sprintf("initial marking references unknown place %s", placeName)}
		}
		timestamps := def.Timestamps
		for i, value := range def.Tokens {
			if !place.ColorSet.IsMember(value) {
				return nil, nil, nil, "", fmt.Errorf("token value %v is not a member of color set %s for place %s", value, place.ColorSet.Name(), placeName)
			}
			ts := 0
			if timestamps != nil {
				ts = timestamps[i]
			}
			m.Add(placeName, value, ts)
		}
	}

	return n, m, parser, doc.EvaluationContext, nil
}

// ImportJSON unmarshals raw JSON bytes and imports the resulting
// document.
func ImportJSON(data []byte) (*net.Net, *marking.Marking, *colorset.Parser, string, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, nil, "", fmt.Errorf("failed to unmarshal net document: %w", err)
	}
	return Import(&doc)
}

// Export renders a net and marking back into the external JSON shape.
// Color-set definitions are written from each place's color set's
// own String() rendering (the DSL grammar is self-describing). Only
// color sets that some place uses are written: JSON Schemas are not
// exported, and a product's or list's component color sets appear only
// if a place also uses them, so such documents do not re-import as-is.
func Export(n *net.Net, m *marking.Marking) *Document {
	doc := &Document{
		InitialMarking: make(map[string]MarkingDef),
	}

	seenColorSets := make(map[string]bool)
	for _, p := range n.Places {
		if !seenColorSets[p.ColorSet.Name()] {
			seenColorSets[p.ColorSet.Name()] = true
			doc.ColorSets = append(doc.ColorSets, p.ColorSet.String()+";")
		}
		doc.Places = append(doc.Places, PlaceDef{Name: p.Name, ColorSet: p.ColorSet.Name(), SubnetRef: p.SubnetRef})
	}

	for _, t := range n.Transitions {
		def := TransitionDef{
			Name:            t.Name,
			Guard:           t.Guard,
			Variables:       t.Variables,
			TransitionDelay: t.TransitionDelay,
			SubnetRef:       t.SubnetRef,
		}
		for _, a := range n.InputArcs(t) {
			def.InArcs = append(def.InArcs, ArcDef{Place: a.Place, Expression: a.Expression})
		}
		for _, a := range n.OutputArcs(t) {
			def.OutArcs = append(def.OutArcs, ArcDef{Place: a.Place, Expression: a.Expression})
		}
		doc.Transitions = append(doc.Transitions, def)
	}

	for _, placeName := range m.PlaceNames() {
		ms := m.Get(placeName)
		var tokens []interface{}
		var timestamps []int
		for _, t := range ms.AllTokens() {
			tokens = append(tokens, t.Value)
			timestamps = append(timestamps, t.Timestamp)
		}
		doc.InitialMarking[placeName] = MarkingDef{Tokens: tokens, Timestamps: timestamps}
	}

	return doc
}

// ExportJSON renders a net and marking to indented JSON bytes.
func ExportJSON(n *net.Net, m *marking.Marking) ([]byte, error) {
	return json.MarshalIndent(Export(n, m), "", "  ")
}
