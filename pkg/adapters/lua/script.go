// Package lua runs systems defined by Lua scripts. A script defines
// initial_step() and step(state, history), each returning a table of
// quantities, and may list the quantities to record in a global `watch`.
package lua

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/aretw0/solsim/pkg/adapters/localnet"
	"github.com/aretw0/solsim/pkg/domain"
)

// Script function names.
const (
	InitialStepFunc = "initial_step"
	StepFunc        = "step"
	WatchGlobal     = "watch"
)

// ErrMissingFunction is returned when a script lacks a required function.
var ErrMissingFunction = errors.New("script function not defined")

// Script is a plain system backed by a Lua state. The state is not safe for
// concurrent use; calls are serialized.
type Script struct {
	name string

	mu sync.Mutex
	L  *lua.LState
}

// LoadFile compiles and runs the script at path.
func LoadFile(path string) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return LoadString(path, string(src))
}

// LoadString compiles and runs src, named name in error messages.
func LoadString(name, src string) (*Script, error) {
	L, err := newSandbox()
	if err != nil {
		return nil, err
	}
	fn, err := L.LoadString(src)
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.Close()
		return nil, fmt.Errorf("run %s: %w", name, err)
	}

	s := &Script{name: name, L: L}
	for _, fn := range []string{InitialStepFunc, StepFunc} {
		if _, ok := L.GetGlobal(fn).(*lua.LFunction); !ok {
			L.Close()
			return nil, fmt.Errorf("%s: %w: %s", name, ErrMissingFunction, fn)
		}
	}
	return s, nil
}

// newSandbox opens the libraries a model needs and nothing that reaches
// the filesystem or the OS.
func newSandbox() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua library %s: %w", lib.name, err)
		}
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L, nil
}

// Name is the script path or name.
func (s *Script) Name() string { return s.name }

// Watch returns the quantities listed in the script's `watch` global.
func (s *Script) Watch() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.L.GetGlobal(WatchGlobal).(*lua.LTable)
	if !ok {
		return nil
	}
	var names []string
	for i := 1; i <= t.Len(); i++ {
		if v, ok := t.RawGetInt(i).(lua.LString); ok {
			names = append(names, string(v))
		}
	}
	return names
}

// ProcessBacked is false; see ProcessScript for the localnet variant.
func (s *Script) ProcessBacked() bool { return false }

// InitialStep calls initial_step().
func (s *Script) InitialStep() (domain.State, error) {
	return s.call(context.Background(), InitialStepFunc)
}

// Step calls step(state, history).
func (s *Script) Step(state domain.State, history domain.History) (domain.State, error) {
	return s.call(context.Background(), StepFunc, state, history)
}

// Close releases the Lua state.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.L.Close()
}

func (s *Script) call(ctx context.Context, fn string, args ...any) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case domain.History:
			largs[i] = historyToTable(s.L, v)
		default:
			largs[i] = toLua(s.L, v)
		}
	}
	err := s.L.CallByParam(lua.P{Fn: s.L.GetGlobal(fn), NRet: 1, Protect: true}, largs...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)
	return toState(fn, ret)
}

// ProcessScript is a script backed by a local validator. Scripts get a
// token_balance(account[, commitment]) function reading through the
// backend's RPC client.
type ProcessScript struct {
	*localnet.Backend
	script     *Script
	commitment domain.Commitment
}

// NewProcessScript binds script to backend. commitment is used when the
// script does not pass one.
func NewProcessScript(script *Script, backend *localnet.Backend, commitment domain.Commitment) *ProcessScript {
	p := &ProcessScript{Backend: backend, script: script, commitment: commitment}
	script.mu.Lock()
	script.L.SetGlobal("token_balance", script.L.NewFunction(p.tokenBalance))
	script.mu.Unlock()
	return p
}

// Script returns the wrapped script.
func (p *ProcessScript) Script() *Script { return p.script }

// InitialStep calls initial_step() with ctx bound to RPC calls.
func (p *ProcessScript) InitialStep(ctx context.Context) (domain.State, error) {
	return p.script.call(ctx, InitialStepFunc)
}

// Step calls step(state, history) with ctx bound to RPC calls.
func (p *ProcessScript) Step(ctx context.Context, state domain.State, history domain.History) (domain.State, error) {
	return p.script.call(ctx, StepFunc, state, history)
}

func (p *ProcessScript) tokenBalance(L *lua.LState) int {
	account := L.CheckString(1)
	commitment := p.commitment
	if L.GetTop() >= 2 {
		c, err := domain.ParseCommitment(L.CheckString(2))
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}
		commitment = c
	}

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	balance, err := p.TokenBalance(ctx, account, commitment)
	if err != nil {
		L.RaiseError("token_balance %s: %v", account, err)
		return 0
	}
	L.Push(lua.LNumber(balance))
	return 1
}
