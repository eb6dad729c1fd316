package lua

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/aretw0/solsim/pkg/domain"
)

// toLua converts a Go state value to Lua. Maps with string keys become
// tables, slices become sequences, numbers become LNumber.
func toLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case domain.State:
		return mapToTable(L, x)
	case map[string]any:
		return mapToTable(L, x)
	case []any:
		t := L.CreateTable(len(x), 0)
		for i, e := range x {
			t.RawSetInt(i+1, toLua(L, e))
		}
		return t
	case lua.LValue:
		return x
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32:
		return lua.LNumber(rv.Float())
	case reflect.Slice, reflect.Array:
		t := L.CreateTable(rv.Len(), 0)
		for i := range rv.Len() {
			t.RawSetInt(i+1, toLua(L, rv.Index(i).Interface()))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

func mapToTable(L *lua.LState, m map[string]any) *lua.LTable {
	t := L.CreateTable(0, len(m))
	for k, v := range m {
		t.RawSetString(k, toLua(L, v))
	}
	return t
}

func historyToTable(L *lua.LState, h domain.History) *lua.LTable {
	t := L.CreateTable(len(h), 0)
	for i, s := range h {
		t.RawSetInt(i+1, mapToTable(L, s))
	}
	return t
}

// fromLua converts a Lua value to Go. Whole numbers come back as int so
// they line up with the index columns.
func fromLua(lv lua.LValue) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if n := v.Len(); n > 0 && sequenceLen(v) == n {
			out := make([]any, n)
			for i := 1; i <= n; i++ {
				out[i-1] = fromLua(v.RawGetInt(i))
			}
			return out
		}
		out := map[string]any{}
		v.ForEach(func(k, val lua.LValue) {
			out[k.String()] = fromLua(val)
		})
		return out
	default:
		return nil
	}
}

func sequenceLen(t *lua.LTable) int {
	n := 0
	t.ForEach(func(lua.LValue, lua.LValue) { n++ })
	return n
}

// toState converts the table a script returned into state updates.
// nil yields no updates.
func toState(fn string, lv lua.LValue) (domain.State, error) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return domain.State{}, nil
	case *lua.LTable:
		state := domain.State{}
		var bad []string
		v.ForEach(func(k, val lua.LValue) {
			key, ok := k.(lua.LString)
			if !ok {
				bad = append(bad, k.String())
				return
			}
			state[string(key)] = fromLua(val)
		})
		if len(bad) > 0 {
			sort.Strings(bad)
			return nil, fmt.Errorf("%s: state keys must be strings, got %v", fn, bad)
		}
		return state, nil
	default:
		return nil, fmt.Errorf("%s must return a table, got %s", fn, lv.Type())
	}
}
