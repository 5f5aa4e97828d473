// Package marking implements the CPN state: a per-place
// multiset map plus a monotone global clock.
package marking

import (
	"fmt"
	"sort"
	"strings"

	"go-petri-flow/internal/multiset"
	"go-petri-flow/internal/token"
)

// Marking maps place names to token multisets, plus a non-negative
// global clock. Absent places implicitly hold the empty multiset.
type Marking struct {
	Places      map[string]multiset.Multiset `json:"places"`
	GlobalClock int                          `json:"globalClock"`
}

// New creates an empty marking at clock 0.
func New() *Marking {
	return &Marking{Places: make(map[string]multiset.Multiset)}
}

// Get returns the multiset at place, or an empty one if the place
// has never been touched.
func (m *Marking) Get(place string) multiset.Multiset {
	if ms, ok := m.Places[place]; ok {
		return ms
	}
	return multiset.New()
}

// ensure returns the multiset at place, creating it if absent.
func (m *Marking) ensure(place string) multiset.Multiset {
	ms, ok := m.Places[place]
	if !ok {
		ms = multiset.New()
		m.Places[place] = ms
	}
	return ms
}

// Set replaces the multiset at place with fresh tokens built from
// values and, optionally, parallel timestamps (nil means all 0).
func (m *Marking) Set(place string, values []interface{}, timestamps []int) {
	ms := multiset.New()
	for i, v := range values {
		ts := 0
		if timestamps != nil {
			ts = timestamps[i]
		}
		ms.Add(v, ts, 1)
	}
	m.Places[place] = ms
}

// Add produces a single token of value at place with the given
// timestamp.
func (m *Marking) Add(place string, value interface{}, timestamp int) {
	m.ensure(place).Add(value, timestamp, 1)
}

// Remove consumes one instance of value from place, honoring the
// largest-timestamp-first rule. Underflow is a NotEnoughTokens failure.
func (m *Marking) Remove(place string, value interface{}) error {
	ms, ok := m.Places[place]
	if !ok {
		return fmt.Errorf("not enough tokens with value %v in place %s: place is empty", value, place)
	}
	if err := ms.Remove(value, 1); err != nil {
		return fmt.Errorf("place %s: %w", place, err)
	}
	if ms.IsEmpty() {
		delete(m.Places, place)
	}
	return nil
}

// AdvanceClock moves the clock to the smallest
// timestamp strictly greater than the current clock across every
// token instance in every place. If no such timestamp exists, the
// clock is unchanged. Returns whether the clock moved.
func (m *Marking) AdvanceClock() bool {
	next := -1
	for _, ms := range m.Places {
		for _, inst := range ms.AllTokens() {
			if inst.Timestamp > m.GlobalClock && (next == -1 || inst.Timestamp < next) {
				next = inst.Timestamp
			}
		}
	}
	if next == -1 {
		return false
	}
	m.GlobalClock = next
	return true
}

// Clone returns a deep copy of the marking with no token instance
// aliased between the original and the clone.
func (m *Marking) Clone() *Marking {
	clone := &Marking{
		Places:      make(map[string]multiset.Multiset, len(m.Places)),
		GlobalClock: m.GlobalClock,
	}
	for place, ms := range m.Places {
		clone.Places[place] = ms.Clone()
	}
	return clone
}

// PlaceNames returns the names of places that currently hold at least
// one token, in ascending order.
func (m *Marking) PlaceNames() []string {
	names := make([]string, 0, len(m.Places))
	for name, ms := range m.Places {
		if !ms.IsEmpty() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Key returns the default marking-equivalence canonical key: the tuple
// (global_clock, sorted-by-place list of
// (place_name, sorted list of (value, timestamp))). Two markings with
// identical per-place (value, timestamp) multisets and the same clock
// always produce the same key.
func (m *Marking) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|", m.GlobalClock)

	placeNames := make([]string, 0, len(m.Places))
	for name, ms := range m.Places {
		if !ms.IsEmpty() {
			placeNames = append(placeNames, name)
		}
	}
	sort.Strings(placeNames)

	for _, name := range placeNames {
		b.WriteString(name)
		b.WriteByte(':')
		for _, t := range sortedInstances(m.Places[name]) {
			fmt.Fprintf(&b, "(%s@%d)", token.ValueKey(t.Value), t.Timestamp)
		}
		b.WriteByte(';')
	}
	return b.String()
}

func sortedInstances(ms multiset.Multiset) []*token.Token {
	all := ms.AllTokens()
	sort.SliceStable(all, func(i, j int) bool {
		ki, kj := token.ValueKey(all[i].Value), token.ValueKey(all[j].Value)
		if ki != kj {
			return ki < kj
		}
		return all[i].Timestamp < all[j].Timestamp
	})
	return all
}

// String renders the marking for debugging.
func (m *Marking) String() string {
	names := m.PlaceNames()
	if len(names) == 0 {
		return fmt.Sprintf("Marking{clock: %d, places: empty}", m.GlobalClock)
	}
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, m.Places[name].String())
	}
	return fmt.Sprintf("Marking{clock: %d, places: {%s}}", m.GlobalClock, strings.Join(parts, ", "))
}
