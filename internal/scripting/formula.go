package scripting

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"
)

// ErrNotANumber is returned when a formula evaluates to a non-numeric value.
var ErrNotANumber = errors.New("formula did not return a number")

// MaxResult bounds the magnitude of a formula result; larger values are clamped.
const MaxResult = 1_000_000

// Evaluator compiles and runs single-expression Lua formulas such as
// "power + intelligence / 2". Compiled chunks are cached by source text.
//
// Evaluator is safe for concurrent use; each evaluation runs in a fresh
// sandboxed state.
type Evaluator struct {
	instLimit int
	logger    *zap.Logger

	mu     sync.RWMutex
	protos map[string]*lua.FunctionProto
}

// NewEvaluator creates an Evaluator.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 uses DefaultInstructionLimit).
func NewEvaluator(instLimit int, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		instLimit: instLimit,
		logger:    logger,
		protos:    make(map[string]*lua.FunctionProto),
	}
}

// Check compiles formula without running it.
func (e *Evaluator) Check(formula string) error {
	_, err := e.compile(formula)
	return err
}

// Evaluate runs formula with vars bound as globals and returns the result
// floored to an int.
//
// Postcondition: returns an error when the formula fails to compile, raises a
// Lua error, exceeds the instruction limit or returns a non-number.
func (e *Evaluator) Evaluate(formula string, vars map[string]int) (int, error) {
	proto, err := e.compile(formula)
	if err != nil {
		return 0, err
	}

	L, cancel := NewSandboxedState(e.instLimit)
	defer L.Close()
	defer cancel()

	for name, v := range vars {
		L.SetGlobal(name, lua.LNumber(v))
	}
	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, 1, nil); err != nil {
		e.logger.Warn("formula evaluation failed", zap.String("formula", formula), zap.Error(err))
		return 0, fmt.Errorf("evaluating formula %q: %w", formula, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("formula %q returned %s: %w", formula, ret.Type(), ErrNotANumber)
	}
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("formula %q returned %v: %w", formula, f, ErrNotANumber)
	}
	e.logger.Debug("formula evaluated", zap.String("formula", formula), zap.Float64("result", f))
	return int(math.Floor(max(-MaxResult, min(f, MaxResult)))), nil
}

func (e *Evaluator) compile(formula string) (*lua.FunctionProto, error) {
	e.mu.RLock()
	proto, ok := e.protos[formula]
	e.mu.RUnlock()
	if ok {
		return proto, nil
	}

	if strings.TrimSpace(formula) == "" {
		return nil, errors.New("formula must not be empty")
	}
	src := "return (" + formula + ")"
	chunk, err := parse.Parse(strings.NewReader(src), "formula")
	if err != nil {
		return nil, fmt.Errorf("parsing formula %q: %w", formula, err)
	}
	proto, err = lua.Compile(chunk, "formula")
	if err != nil {
		return nil, fmt.Errorf("compiling formula %q: %w", formula, err)
	}

	e.mu.Lock()
	e.protos[formula] = proto
	e.mu.Unlock()
	return proto, nil
}
