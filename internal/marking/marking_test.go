package marking

import "testing"

func TestAddAndGet(t *testing.T) {
	m := New()
	m.Add("p1", 1, 0)
	m.Add("p1", 2, 0)
	if m.Get("p1").Size() != 2 {
		t.Fatalf("expected 2 tokens in p1, got %d", m.Get("p1").Size())
	}
	if !m.Get("p2").IsEmpty() {
		t.Fatalf("expected untouched place to be empty")
	}
}

func TestRemoveDeletesEmptyPlace(t *testing.T) {
	m := New()
	m.Add("p1", 1, 0)
	if err := m.Remove("p1", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.Places["p1"]; ok {
		t.Fatalf("expected place entry to be deleted once empty")
	}
}

func TestRemoveFromEmptyPlaceErrors(t *testing.T) {
	m := New()
	if err := m.Remove("nope", 1); err == nil {
		t.Fatalf("expected error removing from an untouched place")
	}
}

func TestAdvanceClockToSmallestGreaterTimestamp(t *testing.T) {
	m := New()
	m.Add("p1", "a", 5)
	m.Add("p1", "b", 3)
	m.Add("p2", "c", 8)

	if !m.AdvanceClock() {
		t.Fatalf("expected clock to advance")
	}
	if m.GlobalClock != 3 {
		t.Fatalf("expected clock to advance to 3, got %d", m.GlobalClock)
	}
	if !m.AdvanceClock() {
		t.Fatalf("expected clock to advance again")
	}
	if m.GlobalClock != 5 {
		t.Fatalf("expected clock to advance to 5, got %d", m.GlobalClock)
	}
	if !m.AdvanceClock() {
		t.Fatalf("expected clock to advance a third time")
	}
	if m.GlobalClock != 8 {
		t.Fatalf("expected clock to advance to 8, got %d", m.GlobalClock)
	}
	if m.AdvanceClock() {
		t.Fatalf("expected clock to stay put once no greater timestamp remains")
	}
	if m.GlobalClock != 8 {
		t.Fatalf("clock should remain at 8")
	}
}

func TestCloneIndependence(t *testing.T) {
	m := New()
	m.Add("p1", 1, 0)
	clone := m.Clone()
	clone.Add("p1", 2, 0)
	if m.Get("p1").Size() != 1 {
		t.Fatalf("mutating a clone should not affect the original marking")
	}
}

func TestKeyStableUnderPlaceInsertionOrder(t *testing.T) {
	a := New()
	a.Add("p1", 1, 0)
	a.Add("p2", 2, 0)

	b := New()
	b.Add("p2", 2, 0)
	b.Add("p1", 1, 0)

	if a.Key() != b.Key() {
		t.Fatalf("markings with the same content in different insertion order should key identically")
	}
}

func TestKeyDiffersOnClock(t *testing.T) {
	a := New()
	a.Add("p1", 1, 0)
	b := a.Clone()
	b.GlobalClock = 1
	if a.Key() == b.Key() {
		t.Fatalf("markings with different global clocks should key differently")
	}
}

func TestPlaceNamesOmitsEmptyPlaces(t *testing.T) {
	m := New()
	m.Add("p1", 1, 0)
	m.Remove("p1", 1)
	m.Add("p2", 1, 0)
	names := m.PlaceNames()
	if len(names) != 1 || names[0] != "p2" {
		t.Fatalf("expected only p2 in PlaceNames, got %v", names)
	}
}
