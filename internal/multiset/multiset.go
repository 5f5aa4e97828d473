// Package multiset implements the per-place multiset of colored,
// timestamped tokens.
package multiset

import (
	"fmt"
	"sort"
	"strings"

	"go-petri-flow/internal/token"
)

// Multiset groups token instances by the canonical key of their
// value. Two tokens with the same value but different timestamps are
// distinct instances that count as the same color for multiset
// arithmetic (Count, IsSubset, Sum, Difference).
type Multiset map[string][]*token.Token

// New creates an empty multiset.
func New() Multiset {
	return make(Multiset)
}

// Add appends count token instances with the given value and
// timestamp.
func (ms Multiset) Add(value interface{}, timestamp int, count int) {
	if count <= 0 {
		return
	}
	key := token.ValueKey(value)
	for i := 0; i < count; i++ {
		ms[key] = append(ms[key], token.New(value, timestamp))
	}
}

// AddToken appends a single existing token instance.
func (ms Multiset) AddToken(t *token.Token) {
	key := token.ValueKey(t.Value)
	ms[key] = append(ms[key], t)
}

// Remove deletes count instances whose value equals value. When
// multiple instances share the value, the instances with the largest
// timestamps are removed first.
// Returns an error if fewer than count matching instances exist; on
// error the multiset is left unmodified.
func (ms Multiset) Remove(value interface{}, count int) error {
	if count <= 0 {
		return nil
	}
	key := token.ValueKey(value)
	instances := ms[key]
	if len(instances) < count {
		return fmt.Errorf("not enough tokens with value %v: have %d, need %d", value, len(instances), count)
	}

	order := make([]int, len(instances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return instances[order[i]].Timestamp > instances[order[j]].Timestamp
	})

	remove := make(map[int]bool, count)
	for _, idx := range order[:count] {
		remove[idx] = true
	}

	kept := instances[:0:0]
	for i, inst := range instances {
		if !remove[i] {
			kept = append(kept, inst)
		}
	}
	if len(kept) == 0 {
		delete(ms, key)
	} else {
		ms[key] = kept
	}
	return nil
}

// Count returns the number of instances with the given value,
// regardless of timestamp.
func (ms Multiset) Count(value interface{}) int {
	return len(ms[token.ValueKey(value)])
}

// CountReadyAt returns the number of instances with the given value
// whose timestamp is <= clock.
func (ms Multiset) CountReadyAt(value interface{}, clock int) int {
	n := 0
	for _, inst := range ms[token.ValueKey(value)] {
		if inst.IsReadyAt(clock) {
			n++
		}
	}
	return n
}

// Size returns the total number of token instances in the multiset.
func (ms Multiset) Size() int {
	total := 0
	for _, instances := range ms {
		total += len(instances)
	}
	return total
}

// IsEmpty reports whether the multiset has no token instances.
func (ms Multiset) IsEmpty() bool {
	return ms.Size() == 0
}

// IsSubset reports whether ms's per-value multiplicity is everywhere
// less than or equal to other's, ignoring timestamps.
func (ms Multiset) IsSubset(other Multiset) bool {
	for key, instances := range ms {
		if len(instances) > len(other[key]) {
			return false
		}
	}
	return true
}

// Sum returns a new multiset containing every instance of ms and
// other.
func (ms Multiset) Sum(other Multiset) Multiset {
	result := ms.Clone()
	for key, instances := range other {
		for _, inst := range instances {
			result[key] = append(result[key], inst.Clone())
		}
	}
	return result
}

// Difference returns a new multiset holding every instance of ms minus
// up to one instance per instance other holds of the same value,
// using the same largest-timestamp-first selection rule as Remove.
// Neither ms nor other is mutated.
func (ms Multiset) Difference(other Multiset) Multiset {
	result := ms.Clone()
	for key, otherInstances := range other {
		instances := result[key]
		if len(instances) == 0 {
			continue
		}
		n := len(otherInstances)
		if n > len(instances) {
			n = len(instances)
		}
		order := make([]int, len(instances))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			return instances[order[i]].Timestamp > instances[order[j]].Timestamp
		})
		remove := make(map[int]bool, n)
		for _, idx := range order[:n] {
			remove[idx] = true
		}
		kept := instances[:0:0]
		for i, inst := range instances {
			if !remove[i] {
				kept = append(kept, inst)
			}
		}
		if len(kept) == 0 {
			delete(result, key)
		} else {
			result[key] = kept
		}
	}
	return result
}

// AllTokens returns every token instance in the multiset, in
// ascending order of value key then descending timestamp (matching
// the order Remove would delete them).
func (ms Multiset) AllTokens() []*token.Token {
	keys := make([]string, 0, len(ms))
	for k := range ms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result []*token.Token
	for _, k := range keys {
		instances := append([]*token.Token(nil), ms[k]...)
		sort.SliceStable(instances, func(i, j int) bool {
			return instances[i].Timestamp > instances[j].Timestamp
		})
		result = append(result, instances...)
	}
	return result
}

// ReadyTokensAt returns every token instance whose timestamp is <=
// clock, in the same deterministic order as AllTokens.
func (ms Multiset) ReadyTokensAt(clock int) []*token.Token {
	var result []*token.Token
	for _, t := range ms.AllTokens() {
		if t.IsReadyAt(clock) {
			result = append(result, t)
		}
	}
	return result
}

// Values returns the distinct values held in the multiset, in
// ascending key order for deterministic iteration.
func (ms Multiset) Values() []interface{} {
	keys := make([]string, 0, len(ms))
	for k := range ms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		if len(ms[k]) > 0 {
			result = append(result, ms[k][0].Value)
		}
	}
	return result
}

// Clone returns a deep copy of the multiset: no token instance is
// shared with the original, which is what lets the reachability
// builder deep-copy a marking before firing without aliasing token
// instances between graph nodes.
func (ms Multiset) Clone() Multiset {
	clone := New()
	for key, instances := range ms {
		cloned := make([]*token.Token, len(instances))
		for i, inst := range instances {
			cloned[i] = inst.Clone()
		}
		clone[key] = cloned
	}
	return clone
}

// String renders the multiset using CPN Tools-style `n\`value` multiplicity notation.
func (ms Multiset) String() string {
	if ms.IsEmpty() {
		return "empty"
	}
	keys := make([]string, 0, len(ms))
	for k := range ms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		instances := ms[k]
		if len(instances) == 0 {
			continue
		}
		if len(instances) == 1 {
			parts = append(parts, fmt.Sprintf("%v", instances[0].Value))
		} else {
			parts = append(parts, fmt.Sprintf("%d`%v", len(instances), instances[0].Value))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
