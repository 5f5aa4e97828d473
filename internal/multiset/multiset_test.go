package multiset

import "testing"

func TestAddAndCount(t *testing.T) {
	ms := New()
	ms.Add(1, 0, 3)
	if ms.Count(1) != 3 {
		t.Fatalf("expected count 3, got %d", ms.Count(1))
	}
	if ms.Size() != 3 {
		t.Fatalf("expected size 3, got %d", ms.Size())
	}
}

func TestAddNonPositiveCountIsNoop(t *testing.T) {
	ms := New()
	ms.Add(1, 0, 0)
	ms.Add(1, 0, -5)
	if !ms.IsEmpty() {
		t.Fatalf("expected empty multiset after non-positive Add counts")
	}
}

func TestRemoveLargestTimestampFirst(t *testing.T) {
	ms := New()
	ms.Add(1, 5, 1)
	ms.Add(1, 10, 1)
	ms.Add(1, 2, 1)

	if err := ms.Remove(1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	remaining := ms.AllTokens()
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining tokens, got %d", len(remaining))
	}
	for _, tok := range remaining {
		if tok.Timestamp == 10 {
			t.Fatalf("the largest-timestamp instance should have been removed first")
		}
	}
}

func TestRemoveInsufficientInstancesLeavesUnmodified(t *testing.T) {
	ms := New()
	ms.Add(1, 0, 1)
	if err := ms.Remove(1, 2); err == nil {
		t.Fatalf("expected error removing more instances than present")
	}
	if ms.Count(1) != 1 {
		t.Fatalf("multiset should be unmodified after a failed Remove, got count %d", ms.Count(1))
	}
}

func TestCountReadyAt(t *testing.T) {
	ms := New()
	ms.Add("a", 0, 1)
	ms.Add("a", 5, 1)
	if ms.CountReadyAt("a", 0) != 1 {
		t.Fatalf("expected 1 ready token at clock 0")
	}
	if ms.CountReadyAt("a", 5) != 2 {
		t.Fatalf("expected 2 ready tokens at clock 5")
	}
}

func TestIsSubset(t *testing.T) {
	a := New()
	a.Add(1, 0, 1)
	b := New()
	b.Add(1, 0, 2)
	if !a.IsSubset(b) {
		t.Fatalf("a should be a subset of b")
	}
	if b.IsSubset(a) {
		t.Fatalf("b should not be a subset of a")
	}
}

func TestSumDoesNotMutateOperands(t *testing.T) {
	a := New()
	a.Add(1, 0, 1)
	b := New()
	b.Add(2, 0, 1)
	sum := a.Sum(b)
	if sum.Size() != 2 {
		t.Fatalf("expected sum size 2, got %d", sum.Size())
	}
	if a.Size() != 1 || b.Size() != 1 {
		t.Fatalf("Sum should not mutate its operands")
	}
}

func TestDifferenceRemovesLargestTimestampFirstWithoutMutatingOperands(t *testing.T) {
	a := New()
	a.Add(1, 5, 1)
	a.Add(1, 10, 1)
	a.Add(1, 2, 1)
	b := New()
	b.Add(1, 0, 1)

	diff := a.Difference(b)
	if diff.Count(1) != 2 {
		t.Fatalf("expected 2 remaining instances of 1, got %d", diff.Count(1))
	}
	for _, tok := range diff.AllTokens() {
		if tok.Timestamp == 10 {
			t.Fatalf("the largest-timestamp instance should have been removed first")
		}
	}
	if a.Count(1) != 3 || b.Count(1) != 1 {
		t.Fatalf("Difference should not mutate its operands")
	}
}

func TestDifferenceCapsAtAvailableInstances(t *testing.T) {
	a := New()
	a.Add(1, 0, 1)
	b := New()
	b.Add(1, 0, 5)

	diff := a.Difference(b)
	if diff.Count(1) != 0 {
		t.Fatalf("expected all instances of 1 removed, got count %d", diff.Count(1))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := New()
	a.Add(1, 0, 1)
	clone := a.Clone()
	clone.Add(1, 0, 1)
	if a.Count(1) != 1 {
		t.Fatalf("mutating a clone should not affect the original")
	}
	if clone.Count(1) != 2 {
		t.Fatalf("expected clone count 2, got %d", clone.Count(1))
	}
}

func TestValuesAscendingOrder(t *testing.T) {
	ms := New()
	ms.Add("b", 0, 1)
	ms.Add("a", 0, 1)
	vals := ms.Values()
	if len(vals) != 2 || vals[0] != "a" || vals[1] != "b" {
		t.Fatalf("expected [a b] in ascending key order, got %v", vals)
	}
}
