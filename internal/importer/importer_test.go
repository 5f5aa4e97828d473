package importer

import "testing"

func sampleDoc() *Document {
	return &Document{
		ColorSets: []string{"colset INT = int;"},
		Places: []PlaceDef{
			{Name: "p1", ColorSet: "INT"},
			{Name: "p2", ColorSet: "INT"},
		},
		Transitions: []TransitionDef{
			{
				Name:      "t1",
				Variables: []string{"x"},
				InArcs:    []ArcDef{{Place: "p1", Expression: "x"}},
				OutArcs:   []ArcDef{{Place: "p2", Expression: "x"}},
			},
		},
		InitialMarking: map[string]MarkingDef{
			"p1": {Tokens: []interface{}{1, 2, 3}},
		},
	}
}

func TestImportBuildsNetAndMarking(t *testing.T) {
	n, m, _, _, err := Import(sampleDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.Places) != 2 || len(n.Transitions) != 1 {
		t.Fatalf("unexpected net shape: %d places, %d transitions", len(n.Places), len(n.Transitions))
	}
	if m.Get("p1").Size() != 3 {
		t.Fatalf("expected 3 tokens in p1, got %d", m.Get("p1").Size())
	}
}

func TestImportUnknownColorSetErrors(t *testing.T) {
	doc := sampleDoc()
	doc.Places[0].ColorSet = "MISSING"
	if _, _, _, _, err := Import(doc); err == nil {
		t.Fatalf("expected error for an unresolved color set reference")
	}
}

func TestImportTokenColorMismatchErrors(t *testing.T) {
	doc := sampleDoc()
	doc.InitialMarking["p1"] = MarkingDef{Tokens: []interface{}{"not an int"}}
	if _, _, _, _, err := Import(doc); err == nil {
		t.Fatalf("expected error for a token that isn't a member of its place's color set")
	}
}

func TestImportMarkingReferencesUnknownPlace(t *testing.T) {
	doc := sampleDoc()
	doc.InitialMarking["ghost"] = MarkingDef{Tokens: []interface{}{1}}
	if _, _, _, _, err := Import(doc); err == nil {
		t.Fatalf("expected error for initial marking referencing an unknown place")
	}
}

func TestImportJSONRoundTrip(t *testing.T) {
	n, m, _, _, err := Import(sampleDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := ExportJSON(n, m)
	if err != nil {
		t.Fatalf("unexpected error exporting: %v", err)
	}
	n2, m2, _, _, err := ImportJSON(data)
	if err != nil {
		t.Fatalf("unexpected error re-importing: %v", err)
	}
	if len(n2.Places) != len(n.Places) || len(n2.Transitions) != len(n.Transitions) {
		t.Fatalf("round-tripped net shape mismatch")
	}
	if m2.Get("p1").Size() != m.Get("p1").Size() {
		t.Fatalf("round-tripped marking token count mismatch")
	}
}

func TestImportJSONInvalidBytes(t *testing.T) {
	if _, _, _, _, err := ImportJSON([]byte("not json")); err == nil {
		t.Fatalf("expected error for malformed JSON input")
	}
}

func TestImportReturnsEvaluationContext(t *testing.T) {
	doc := sampleDoc()
	doc.EvaluationContext = "function double(n) return n * 2 end"
	_, _, _, evalContext, err := Import(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evalContext != doc.EvaluationContext {
		t.Fatalf("expected the document's evaluationContext to be returned unchanged, got %q", evalContext)
	}
}
