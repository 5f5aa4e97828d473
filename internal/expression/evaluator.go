// Package expression implements the guard/arc evaluator on top of an
// embedded Lua interpreter (gopher-lua) as the expression sandbox.
package expression

import (
	"fmt"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"go-petri-flow/internal/token"
)

// tupleMarkerKey tags a Lua table built by the tuple() builtin so it
// round-trips to a token.ProductValue (one composite value) instead of
// being mistaken for a list of several separate values. It lives
// alongside the table's integer keys but is never counted by Len(),
// so it doesn't affect the elements tuple() packed in.
const tupleMarkerKey = "__cpn_tuple"

// Binding maps a transition's variable names to concrete values for
// one evaluation.
type Binding map[string]interface{}

// Evaluator evaluates guard and arc-inscription expression strings
// under a binding and an optional user environment established once
// from a code blob. It is pure from the net's viewpoint:
// evaluation never mutates a marking.
type Evaluator struct {
	state *lua.LState
}

// New creates an evaluator with no user environment.
func New() *Evaluator {
	e := &Evaluator{state: lua.NewState()}
	e.registerBuiltins()
	return e
}

// NewWithEnvironment creates an evaluator and runs userCode once to
// establish function/constant definitions available to every
// subsequent guard/arc evaluation.
func NewWithEnvironment(userCode string) (*Evaluator, error) {
	e := New()
	if strings.TrimSpace(userCode) == "" {
		return e, nil
	}
	if err := e.state.DoString(userCode); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to load evaluation context: %w", err)
	}
	return e, nil
}

// Close releases the underlying Lua state.
func (e *Evaluator) Close() {
	if e.state != nil {
		e.state.Close()
	}
}

// EvaluateGuard evaluates a guard expression under binding. An absent
// (empty) expression is always true.
func (e *Evaluator) EvaluateGuard(expr string, binding Binding) (bool, error) {
	if expr == "" {
		return true, nil
	}
	result, err := e.evaluate(expr, binding)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate guard '%s': %w", expr, err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("guard expression '%s' did not evaluate to a boolean, got %T", expr, result)
	}
	return b, nil
}

// EvaluateArc evaluates an arc inscription under binding, splitting
// on the first top-level `@+` token. The left side
// evaluates to a value or list of values; the right side, if present,
// evaluates to a non-negative integer delay. Input-arc callers ignore
// the returned delay.
func (e *Evaluator) EvaluateArc(expr string, binding Binding) (values []interface{}, delay int, err error) {
	valueExpr, delayExpr, hasDelay := splitDelaySuffix(expr)

	result, err := e.evaluate(valueExpr, binding)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to evaluate arc expression '%s': %w", valueExpr, err)
	}
	values = asValueList(result)

	if hasDelay {
		delayResult, err := e.evaluate(delayExpr, binding)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to evaluate delay expression '%s': %w", delayExpr, err)
		}
		d, ok := asInt(delayResult)
		if !ok {
			return nil, 0, fmt.Errorf("delay expression '%s' did not evaluate to an integer", delayExpr)
		}
		if d < 0 {
			return nil, 0, fmt.Errorf("delay expression '%s' evaluated to a negative delay %d", delayExpr, d)
		}
		delay = d
	}
	return values, delay, nil
}

// splitDelaySuffix splits expr on the first top-level "@+" token,
// i.e. one not nested inside (), [] or a quoted string. Returns the
// value expression, the delay expression (if present) and whether a
// delay suffix was found.
func splitDelaySuffix(expr string) (valueExpr, delayExpr string, hasDelay bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(expr)-1; i++ {
		c := expr[i]
		if quote != 0 {
			if c == quote && (i == 0 || expr[i-1] != '\\') {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '@':
			if depth == 0 && expr[i+1] == '+' {
				return strings.TrimSpace(expr[:i]), strings.TrimSpace(expr[i+2:]), true
			}
		}
	}
	return expr, "", false
}

// evaluate runs expr in the evaluator's shared Lua state after setting
// each binding entry as a global (globals set by earlier evaluations,
// including earlier bindings, are not cleared) and returns the
// Go-converted result. Expressions are wrapped in a
// "return" unless they already look like a statement containing one.
func (e *Evaluator) evaluate(expr string, binding Binding) (interface{}, error) {
	if err := e.setGlobals(binding); err != nil {
		return nil, err
	}

	code := expr
	if !strings.Contains(strings.ToLower(expr), "return") {
		code = "return " + expr
	}
	if err := e.state.DoString(code); err != nil {
		return nil, fmt.Errorf("lua evaluation error: %w", err)
	}
	result := e.state.Get(-1)
	e.state.Pop(1)
	return luaToGo(result), nil
}

func (e *Evaluator) setGlobals(binding Binding) error {
	for name, value := range binding {
		lv, err := goToLua(e.state, value)
		if err != nil {
			return fmt.Errorf("failed to bind variable %s: %w", name, err)
		}
		e.state.SetGlobal(name, lv)
	}
	return nil
}

// asValueList normalizes an evaluation result into the list-of-values
// an arc may produce/consume: a Lua array-like table becomes its
// elements; a token.ProductValue (one composite/tuple value, e.g. from
// tuple(...)) becomes a singleton list holding that one value; any
// other value becomes a singleton list too.
func asValueList(result interface{}) []interface{} {
	if tuple, ok := result.(token.ProductValue); ok {
		return []interface{}{tuple}
	}
	if list, ok := result.([]interface{}); ok {
		return list
	}
	return []interface{}{result}
}

func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func (e *Evaluator) registerBuiltins() {
	L := e.state
	L.SetGlobal("print", L.NewFunction(e.luaPrint))
	L.SetGlobal("tostring", L.NewFunction(e.luaToString))
	L.SetGlobal("tonumber", L.NewFunction(e.luaToNumber))
	L.SetGlobal("tuple", L.NewFunction(e.luaTuple))
}

func (e *Evaluator) luaPrint(L *lua.LState) int {
	args := make([]string, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		args[i-1] = L.Get(i).String()
	}
	fmt.Println(strings.Join(args, "\t"))
	return 0
}

func (e *Evaluator) luaToString(L *lua.LState) int {
	L.Push(lua.LString(L.Get(1).String()))
	return 1
}

func (e *Evaluator) luaToNumber(L *lua.LState) int {
	switch v := L.Get(1).(type) {
	case lua.LNumber:
		L.Push(v)
	case lua.LString:
		if n, err := strconv.ParseFloat(string(v), 64); err == nil {
			L.Push(lua.LNumber(n))
		} else {
			L.Push(lua.LNil)
		}
	default:
		L.Push(lua.LNil)
	}
	return 1
}

// luaTuple builds a tuple value from all of its arguments (two of them
// for a product color set), for expressions
// that produce product-colored tokens, e.g. tuple(x, "hello"). The
// result is tagged with tupleMarkerKey so it converts back to a single
// token.ProductValue rather than spreading into several values.
func (e *Evaluator) luaTuple(L *lua.LState) int {
	n := L.GetTop()
	table := L.NewTable()
	for i := 1; i <= n; i++ {
		table.RawSetInt(i, L.Get(i))
	}
	table.RawSetString(tupleMarkerKey, lua.LBool(true))
	L.Push(table)
	return 1
}

// goToLua converts a Go value into its Lua representation.
func goToLua(L *lua.LState, value interface{}) (lua.LValue, error) {
	switch v := value.(type) {
	case nil:
		return lua.LNil, nil
	case bool:
		return lua.LBool(v), nil
	case int:
		return lua.LNumber(v), nil
	case int32:
		return lua.LNumber(v), nil
	case int64:
		return lua.LNumber(v), nil
	case float32:
		return lua.LNumber(v), nil
	case float64:
		return lua.LNumber(v), nil
	case string:
		return lua.LString(v), nil
	case []interface{}:
		table := L.NewTable()
		for i, item := range v {
			lv, err := goToLua(L, item)
			if err != nil {
				return nil, fmt.Errorf("slice item %d: %w", i, err)
			}
			table.RawSetInt(i+1, lv)
		}
		return table, nil
	case token.ProductValue:
		table := L.NewTable()
		for i, item := range v {
			lv, err := goToLua(L, item)
			if err != nil {
				return nil, fmt.Errorf("tuple item %d: %w", i, err)
			}
			table.RawSetInt(i+1, lv)
		}
		table.RawSetString(tupleMarkerKey, lua.LBool(true))
		return table, nil
	case map[string]interface{}:
		table := L.NewTable()
		for key, val := range v {
			lv, err := goToLua(L, val)
			if err != nil {
				return nil, fmt.Errorf("map value for key %s: %w", key, err)
			}
			table.RawSetString(key, lv)
		}
		return table, nil
	default:
		return lua.LString(fmt.Sprintf("%v", v)), nil
	}
}

// luaToGo converts a Lua value into its Go representation.
func luaToGo(value lua.LValue) interface{} {
	switch v := value.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		n := float64(v)
		if n == float64(int64(n)) {
			return int(n)
		}
		return n
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if isTupleTable(v) {
			return token.ProductValue(luaTableToSlice(v))
		}
		if isLuaArray(v) {
			return luaTableToSlice(v)
		}
		return luaTableToMap(v)
	default:
		return v.String()
	}
}

// isTupleTable reports whether table was built by tuple(...) (or is a
// token.ProductValue round-tripping back through Lua), as opposed to
// an ordinary list literal.
func isTupleTable(table *lua.LTable) bool {
	marker, ok := table.RawGetString(tupleMarkerKey).(lua.LBool)
	return ok && bool(marker)
}

func isLuaArray(table *lua.LTable) bool {
	length := table.Len()
	if length == 0 {
		return false
	}
	hasNonArrayKey := false
	table.ForEach(func(key, _ lua.LValue) {
		n, ok := key.(lua.LNumber)
		if !ok || int(n) < 1 || int(n) > length {
			hasNonArrayKey = true
		}
	})
	return !hasNonArrayKey
}

func luaTableToSlice(table *lua.LTable) []interface{} {
	n := table.Len()
	result := make([]interface{}, n)
	for i := 1; i <= n; i++ {
		result[i-1] = luaToGo(table.RawGetInt(i))
	}
	return result
}

func luaTableToMap(table *lua.LTable) map[string]interface{} {
	result := make(map[string]interface{})
	table.ForEach(func(key, value lua.LValue) {
		result[fmt.Sprintf("%v", luaToGo(key))] = luaToGo(value)
	})
	return result
}
