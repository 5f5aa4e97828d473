// Package colorset implements the color-set type system: a classifier
// over token values with an orthogonal "timed" flag that governs
// production semantics rather than membership.
package colorset

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ColorSet classifies token values and flags whether places of this
// color set receive timestamped tokens on production.
type ColorSet interface {
	Name() string
	IsMember(value interface{}) bool
	IsTimed() bool
	String() string
}

// Equal reports whether two color sets are value-equal: same variant
// and same parameters (structurally equal, not just same-named).
func Equal(a, b ColorSet) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// Infinity is the distinguished sentinel value of the intinf color
// set, representing an unbounded integer (e.g. an unbounded token
// count or a "never" timestamp bound).
const Infinity = "inf"

// --- Integer ---

type Integer struct {
	name           string
	timed          bool
	minVal, maxVal *int
}

func NewInteger(name string, timed bool) *Integer { return &Integer{name: name, timed: timed} }

func NewIntegerRange(name string, timed bool, minVal, maxVal int) *Integer {
	return &Integer{name: name, timed: timed, minVal: &minVal, maxVal: &maxVal}
}

func (cs *Integer) Name() string { return cs.name }

func (cs *Integer) IsMember(value interface{}) bool {
	iv, ok := asInt(value)
	if !ok {
		return false
	}
	if cs.minVal != nil && iv < *cs.minVal {
		return false
	}
	if cs.maxVal != nil && iv > *cs.maxVal {
		return false
	}
	return true
}

func (cs *Integer) IsTimed() bool { return cs.timed }

func (cs *Integer) String() string {
	rangeStr := ""
	if cs.minVal != nil && cs.maxVal != nil {
		rangeStr = fmt.Sprintf("[%d..%d]", *cs.minVal, *cs.maxVal)
	}
	return fmt.Sprintf("colset %s = int%s%s", cs.name, rangeStr, timedSuffix(cs.timed))
}

// --- IntegerInfinity ---

// IntegerInfinity is an integer color set whose domain additionally
// includes the Infinity sentinel, used for unbounded counters or
// timestamp bounds.
type IntegerInfinity struct {
	name  string
	timed bool
}

func NewIntegerInfinity(name string, timed bool) *IntegerInfinity {
	return &IntegerInfinity{name: name, timed: timed}
}

func (cs *IntegerInfinity) Name() string { return cs.name }

func (cs *IntegerInfinity) IsMember(value interface{}) bool {
	if s, ok := value.(string); ok && s == Infinity {
		return true
	}
	_, ok := asInt(value)
	return ok
}

func (cs *IntegerInfinity) IsTimed() bool { return cs.timed }

func (cs *IntegerInfinity) String() string {
	return fmt.Sprintf("colset %s = intinf%s", cs.name, timedSuffix(cs.timed))
}

// --- Real ---

type Real struct {
	name  string
	timed bool
}

func NewReal(name string, timed bool) *Real { return &Real{name: name, timed: timed} }

func (cs *Real) Name() string { return cs.name }

func (cs *Real) IsMember(value interface{}) bool {
	switch value.(type) {
	case float32, float64, int, int32, int64:
		return true
	}
	return false
}

func (cs *Real) IsTimed() bool { return cs.timed }

func (cs *Real) String() string { return fmt.Sprintf("colset %s = real%s", cs.name, timedSuffix(cs.timed)) }

// --- String ---

type String struct {
	name  string
	timed bool
}

func NewString(name string, timed bool) *String { return &String{name: name, timed: timed} }

func (cs *String) Name() string { return cs.name }

func (cs *String) IsMember(value interface{}) bool {
	_, ok := value.(string)
	return ok
}

func (cs *String) IsTimed() bool { return cs.timed }

func (cs *String) String() string {
	return fmt.Sprintf("colset %s = string%s", cs.name, timedSuffix(cs.timed))
}

// --- Boolean ---

type Boolean struct {
	name  string
	timed bool
}

func NewBoolean(name string, timed bool) *Boolean { return &Boolean{name: name, timed: timed} }

func (cs *Boolean) Name() string { return cs.name }

func (cs *Boolean) IsMember(value interface{}) bool {
	_, ok := value.(bool)
	return ok
}

func (cs *Boolean) IsTimed() bool { return cs.timed }

func (cs *Boolean) String() string {
	return fmt.Sprintf("colset %s = bool%s", cs.name, timedSuffix(cs.timed))
}

// --- Unit ---

type Unit struct {
	name  string
	timed bool
}

func NewUnit(name string, timed bool) *Unit { return &Unit{name: name, timed: timed} }

func (cs *Unit) Name() string { return cs.name }

func (cs *Unit) IsMember(value interface{}) bool {
	return value == nil || value == "unit" || value == "()"
}

func (cs *Unit) IsTimed() bool { return cs.timed }

func (cs *Unit) String() string { return fmt.Sprintf("colset %s = unit%s", cs.name, timedSuffix(cs.timed)) }

// --- Time ---

// Time is an integer-valued color set that is implicitly timed: its
// tokens always carry the production timestamp regardless of the
// declared `timed` suffix.
type Time struct {
	name string
}

func NewTime(name string) *Time { return &Time{name: name} }

func (cs *Time) Name() string { return cs.name }

func (cs *Time) IsMember(value interface{}) bool {
	_, ok := asInt(value)
	return ok
}

func (cs *Time) IsTimed() bool { return true }

func (cs *Time) String() string { return fmt.Sprintf("colset %s = time", cs.name) }

// --- Enumerated ---

type Enumerated struct {
	name   string
	timed  bool
	values []string
}

func NewEnumerated(name string, timed bool, values []string) *Enumerated {
	return &Enumerated{name: name, timed: timed, values: values}
}

func (cs *Enumerated) Name() string { return cs.name }

func (cs *Enumerated) IsMember(value interface{}) bool {
	str, ok := value.(string)
	if !ok {
		return false
	}
	for _, v := range cs.values {
		if v == str {
			return true
		}
	}
	return false
}

func (cs *Enumerated) IsTimed() bool      { return cs.timed }
func (cs *Enumerated) Values() []string   { return cs.values }

func (cs *Enumerated) String() string {
	return fmt.Sprintf("colset %s = with %s%s", cs.name, strings.Join(cs.values, " | "), timedSuffix(cs.timed))
}

// --- Product ---

// Product is a 2-tuple color set (a pair of heterogeneous color sets). Values are represented as []interface{} of length 2.
type Product struct {
	name       string
	timed      bool
	components [2]ColorSet
}

func NewProduct(name string, timed bool, first, second ColorSet) *Product {
	return &Product{name: name, timed: timed, components: [2]ColorSet{first, second}}
}

func (cs *Product) Name() string { return cs.name }

func (cs *Product) Components() [2]ColorSet { return cs.components }

func (cs *Product) IsMember(value interface{}) bool {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false
	}
	if v.Len() != 2 {
		return false
	}
	return cs.components[0].IsMember(v.Index(0).Interface()) && cs.components[1].IsMember(v.Index(1).Interface())
}

func (cs *Product) IsTimed() bool { return cs.timed }

func (cs *Product) String() string {
	return fmt.Sprintf("colset %s = product(%s, %s)%s", cs.name, cs.components[0].Name(), cs.components[1].Name(), timedSuffix(cs.timed))
}

// --- List ---

// List requires every element of a sequence to satisfy the element
// color set.
type List struct {
	name    string
	timed   bool
	element ColorSet
}

func NewList(name string, timed bool, element ColorSet) *List {
	return &List{name: name, timed: timed, element: element}
}

func (cs *List) Name() string         { return cs.name }
func (cs *List) Element() ColorSet    { return cs.element }

func (cs *List) IsMember(value interface{}) bool {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if !cs.element.IsMember(v.Index(i).Interface()) {
			return false
		}
	}
	return true
}

func (cs *List) IsTimed() bool { return cs.timed }

func (cs *List) String() string {
	return fmt.Sprintf("colset %s = list %s%s", cs.name, cs.element.Name(), timedSuffix(cs.timed))
}

// --- Dict ---

// Dict represents an untyped key/value map, optionally validated
// against a named JSON Schema via the dict<Schema> syntax.
type Dict struct {
	name       string
	timed      bool
	schemaName string
	schema     *jsonschema.Schema
}

func NewDict(name string, timed bool, schemaName string, schema *jsonschema.Schema) *Dict {
	return &Dict{name: name, timed: timed, schemaName: schemaName, schema: schema}
}

func (cs *Dict) Name() string       { return cs.name }
func (cs *Dict) SchemaName() string { return cs.schemaName }

func (cs *Dict) IsMember(value interface{}) bool {
	if value == nil {
		return false
	}
	kind := reflect.TypeOf(value).Kind()
	if kind != reflect.Map && kind != reflect.Slice && kind != reflect.Array {
		return false
	}
	if cs.schema == nil {
		return true
	}
	return cs.schema.Validate(value) == nil
}

func (cs *Dict) IsTimed() bool { return cs.timed }

func (cs *Dict) String() string {
	if cs.schemaName != "" {
		return fmt.Sprintf("colset %s = dict<%s>%s", cs.name, cs.schemaName, timedSuffix(cs.timed))
	}
	return fmt.Sprintf("colset %s = dict%s", cs.name, timedSuffix(cs.timed))
}

// --- helpers ---

func timedSuffix(timed bool) string {
	if timed {
		return " timed"
	}
	return ""
}

func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	case float32:
		return asInt(float64(v))
	}
	return 0, false
}

// Builtins are the always-registered base color sets, matching the
// teacher's INT/STRING/BOOL/REAL/UNIT constants.
var (
	INT    = NewInteger("INT", false)
	STRING = NewString("STRING", false)
	BOOL   = NewBoolean("BOOL", false)
	REAL   = NewReal("REAL", false)
	UNIT   = NewUnit("UNIT", false)
)
