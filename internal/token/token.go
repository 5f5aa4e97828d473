// Package token defines the colored, timestamped value carried by places.
package token

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Token is a value-plus-timestamp instance residing in a place. A
// timestamp of 0 means the token is untimed, or ready at clock 0.
type Token struct {
	Value     interface{} `json:"value"`
	Timestamp int         `json:"timestamp"`
}

// ProductValue is a single composite (tuple) value bound for a
// product color set, as distinct from a plain []interface{} list of
// several separate values. An arc expression evaluates to either a
// list of values or one ProductValue; the two must not be confused.
type ProductValue []interface{}

// New creates a token with the given value and timestamp.
func New(value interface{}, timestamp int) *Token {
	return &Token{Value: value, Timestamp: timestamp}
}

// String returns a human-readable representation of the token.
func (t *Token) String() string {
	return fmt.Sprintf("Token{Value: %v, Timestamp: %d}", t.Value, t.Timestamp)
}

// Equals reports whether two tokens have the same value and timestamp.
func (t *Token) Equals(other *Token) bool {
	if other == nil {
		return false
	}
	return ValueKey(t.Value) == ValueKey(other.Value) && t.Timestamp == other.Timestamp
}

// Clone returns a shallow copy of the token. Values are treated as
// immutable once deposited, so a shallow copy of Value is sufficient.
func (t *Token) Clone() *Token {
	return &Token{Value: t.Value, Timestamp: t.Timestamp}
}

// IsReadyAt reports whether the token may be consumed at the given
// clock value (timestamp <= clock).
func (t *Token) IsReadyAt(clock int) bool {
	return t.Timestamp <= clock
}

// ValueKey returns a canonical string key for a token value, used to
// group token instances by color in a multiset and to build
// equivalence keys for reachability. Maps are rendered with sorted
// keys so that two structurally equal dict values key identically
// regardless of Go map iteration order.
func ValueKey(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "nil"
	case string:
		return "s:" + v
	case bool:
		return "b:" + strconv.FormatBool(v)
	case int:
		return "i:" + strconv.Itoa(v)
	case int32:
		return "i:" + strconv.Itoa(int(v))
	case int64:
		return "i:" + strconv.FormatInt(v, 10)
	case float64:
		if v == float64(int64(v)) {
			return "i:" + strconv.FormatInt(int64(v), 10)
		}
		return "f:" + strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return ValueKey(float64(v))
	case []interface{}:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = ValueKey(e)
		}
		b, _ := json.Marshal(parts)
		return "l:" + string(b)
	case ProductValue:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = ValueKey(e)
		}
		b, _ := json.Marshal(parts)
		return "p:" + string(b)
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + ValueKey(v[k])
		}
		b, _ := json.Marshal(parts)
		return "d:" + string(b)
	default:
		if b, err := json.Marshal(v); err == nil {
			return "j:" + string(b)
		}
		return fmt.Sprintf("?:%v", v)
	}
}
