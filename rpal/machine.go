package rpal

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Machine is the Control-Stack-Environment evaluator over a compiled
// Program. Out receives what Print formats; Log, when set, records each
// rule application at debug level; TraceControl and TraceValue, when set,
// receive one line per machine state (the serialized control stack and
// value stack respectively).
type Machine struct {
	Out          io.Writer
	Log          *slog.Logger
	TraceControl io.Writer
	TraceValue   io.Writer

	prog    *Program
	control []ctrl
	stack   []Value
	envs    []*Env
	nextEnv int
}

// NewMachine returns a machine ready to evaluate prog, with Print output
// going to out.
func NewMachine(prog *Program, out io.Writer) *Machine {
	return &Machine{Out: out, prog: prog}
}

// Eval runs the machine to completion and returns the program's result:
// the single value left on the stack once the control is exhausted.
func (m *Machine) Eval() (Value, error) {
	e0 := NewEnv(0, nil)
	bindBuiltins(e0)
	m.envs = []*Env{e0}
	m.nextEnv = 0

	m.control = append([]ctrl{{kind: cEnv, env: e0}}, m.prog.bodies[0]...)
	m.stack = []Value{{Kind: VEnvMark, Env: e0}}

	for len(m.control) > 0 {
		if err := m.step(); err != nil {
			return Value{}, err
		}
		m.trace()
	}
	if len(m.stack) != 1 {
		return Value{}, runtimeErrorf(TypeError, "",
			"evaluation left %d values on the stack", len(m.stack))
	}
	return m.stack[0], nil
}

func (m *Machine) env() *Env {
	return m.envs[len(m.envs)-1]
}

func (m *Machine) popControl() ctrl {
	c := m.control[len(m.control)-1]
	m.control = m.control[:len(m.control)-1]
	return c
}

func (m *Machine) push(v Value) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *Machine) debug(rule int, detail string) {
	if m.Log != nil {
		m.Log.Debug("applying rule", "rule", rule, "item", detail)
	}
}

// step applies the one rule selected by the top of the control stack
// (and, for gamma, the top of the value stack).
func (m *Machine) step() error {
	top := m.control[len(m.control)-1]

	switch top.kind {
	case cValue: // rule 1, literal
		m.debug(1, top.String())
		m.popControl()
		m.push(top.val)
		return nil

	case cName: // rule 1, identifier
		m.debug(1, top.String())
		v, ok := m.env().Lookup(top.name)
		if !ok {
			return runtimeErrorf(UnboundIdentifier, "rule 1",
				"identifier %q is not defined", top.name)
		}
		m.popControl()
		m.push(v)
		return nil

	case cLambda: // rule 2
		m.debug(2, top.String())
		m.popControl()
		m.push(Value{Kind: VClosure, CS: top.n, Params: top.params, Env: m.env()})
		return nil

	case cGamma:
		return m.apply()

	case cOp:
		switch top.op {
		case NNot, NNeg:
			return m.unary(top.op)
		default:
			return m.binary(top.op)
		}

	case cBeta: // rule 8
		m.debug(8, "beta")
		m.popControl()
		cond := m.pop()
		if cond.Kind != VBool {
			return runtimeErrorf(TypeError, "rule 8",
				"condition evaluated to a %s, not a truthvalue", cond.Kind)
		}
		whenFalse := m.popControl()
		whenTrue := m.popControl()
		if whenFalse.kind != cDelta || whenTrue.kind != cDelta {
			return runtimeErrorf(TypeError, "rule 8", "malformed conditional")
		}
		if cond.Bool {
			m.control = append(m.control, m.prog.bodies[whenTrue.n]...)
		} else {
			m.control = append(m.control, m.prog.bodies[whenFalse.n]...)
		}
		return nil

	case cTau: // rule 9
		m.debug(9, top.String())
		m.popControl()
		items := make([]Value, top.n)
		for i := 0; i < top.n; i++ {
			items[i] = m.pop()
		}
		m.push(tupleValue(items))
		return nil

	case cEnv: // rule 5
		m.debug(5, top.String())
		m.popControl()
		if len(m.stack) < 2 {
			return runtimeErrorf(TypeError, "rule 5", "missing environment marker")
		}
		marker := m.stack[len(m.stack)-2]
		if marker.Kind != VEnvMark || marker.Env != top.env {
			return runtimeErrorf(TypeError, "rule 5", "missing environment marker")
		}
		m.stack = append(m.stack[:len(m.stack)-2], m.stack[len(m.stack)-1])
		if len(m.envs) > 1 {
			m.envs = m.envs[:len(m.envs)-1]
		}
		return nil
	}
	return runtimeErrorf(TypeError, "", "no rule matches control item %s", top)
}

// apply dispatches a gamma by the kind of the operator on top of the
// value stack: rules 3 (builtin), 4/11 (closure), 10 (tuple selection),
// 12 (Y*) and 13 (eta).
func (m *Machine) apply() error {
	if len(m.stack) == 0 {
		return runtimeErrorf(TypeError, "gamma", "nothing to apply")
	}
	rator := m.stack[len(m.stack)-1]

	switch rator.Kind {
	case VBuiltin: // rule 3
		m.debug(3, rator.Name)
		m.popControl()
		m.pop()
		if len(m.stack) == 0 {
			return runtimeErrorf(ArityError, "rule 3",
				"%s applied to nothing", rator.Name)
		}
		result, err := m.applyBuiltin(rator, m.pop())
		if err != nil {
			return err
		}
		m.push(result)
		return nil

	case VClosure: // rules 4 and 11
		return m.applyClosure(rator)

	case VTuple, VNil: // rule 10
		m.debug(10, "tuple")
		m.popControl()
		m.pop()
		if len(m.stack) == 0 {
			return runtimeErrorf(IndexError, "rule 10", "tuple applied to nothing")
		}
		index := m.pop()
		if index.Kind != VInt {
			return runtimeErrorf(TypeError, "rule 10",
				"tuple selector must be an integer, got %s", index.Kind)
		}
		i := index.Int
		if i < 1 || i > int64(len(rator.Tuple)) {
			return runtimeErrorf(IndexError, "rule 10",
				"index %d out of range for tuple of order %d", i, len(rator.Tuple))
		}
		m.push(rator.Tuple[i-1])
		return nil

	case VYStar: // rule 12
		m.debug(12, "Y*")
		m.popControl()
		m.pop()
		if len(m.stack) == 0 || m.stack[len(m.stack)-1].Kind != VClosure {
			return runtimeErrorf(TypeError, "rule 12",
				"Y* must be applied to a lambda closure")
		}
		closure := m.pop()
		closure.Kind = VEta
		m.push(closure)
		return nil

	case VEta: // rule 13
		m.debug(13, rator.String())
		// The gamma stays; a second one joins it, so the unrolled
		// closure is first applied to the eta-closure and the result to
		// the original argument.
		m.control = append(m.control, ctrl{kind: cGamma})
		closure := rator
		closure.Kind = VClosure
		m.push(closure)
		return nil
	}
	return runtimeErrorf(TypeError, "gamma",
		"a %s cannot be applied as a function", rator.Kind)
}

// applyClosure implements rules 4 and 11: bind the argument (or the
// elements of an argument tuple, for a multi-name parameter list) in a
// fresh environment and enter the closure's body.
func (m *Machine) applyClosure(closure Value) error {
	m.debug(4, closure.String())
	m.popControl()
	m.pop()
	if len(m.stack) == 0 {
		return runtimeErrorf(ArityError, "rule 4", "function applied to nothing")
	}
	rand := m.pop()

	m.nextEnv++
	env := NewEnv(m.nextEnv, closure.Env)

	switch {
	case len(closure.Params) == 1:
		env.Bind(closure.Params[0], rand)
	case rand.Kind == VTuple && len(rand.Tuple) == len(closure.Params):
		for i, name := range closure.Params {
			env.Bind(name, rand.Tuple[i])
		}
	case rand.Kind == VTuple || rand.Kind == VNil:
		return runtimeErrorf(ArityError, "rule 11",
			"function of %d parameters applied to a tuple of order %d",
			len(closure.Params), len(rand.Tuple))
	default:
		return runtimeErrorf(ArityError, "rule 11",
			"function of %d parameters applied to a %s",
			len(closure.Params), rand.Kind)
	}

	m.envs = append(m.envs, env)
	m.control = append(m.control, ctrl{kind: cEnv, env: env})
	m.control = append(m.control, m.prog.bodies[closure.CS]...)
	m.push(Value{Kind: VEnvMark, Env: env})
	return nil
}

// binary implements rule 6.
func (m *Machine) binary(op NodeKind) error {
	m.debug(6, op.String())
	m.popControl()
	if len(m.stack) < 2 {
		return runtimeErrorf(TypeError, "rule 6",
			"operator %s is missing operands", op)
	}
	left := m.pop()
	right := m.pop()

	switch op {
	case NPlus, NMinus, NMul, NDiv, NPow:
		if left.Kind != VInt || right.Kind != VInt {
			return runtimeErrorf(TypeError, "rule 6",
				"operator %s needs integers, got %s and %s", op, left.Kind, right.Kind)
		}
		result, err := arith(op, left.Int, right.Int)
		if err != nil {
			return err
		}
		m.push(intValue(result))
		return nil

	case NGr, NGe, NLs, NLe:
		switch {
		case left.Kind == VInt && right.Kind == VInt:
			m.push(boolValue(compareInts(op, left.Int, right.Int)))
			return nil
		case left.Kind == VStr && right.Kind == VStr:
			m.push(boolValue(compareStrings(op, left.Str, right.Str)))
			return nil
		}
		return runtimeErrorf(TypeError, "rule 6",
			"operator %s needs two integers or two strings, got %s and %s",
			op, left.Kind, right.Kind)

	case NEq, NNe:
		eq, err := valuesEqual(left, right)
		if err != nil {
			return err
		}
		if op == NNe {
			eq = !eq
		}
		m.push(boolValue(eq))
		return nil

	case NAmp, NOr:
		if left.Kind != VBool || right.Kind != VBool {
			return runtimeErrorf(TypeError, "rule 6",
				"operator %s needs truthvalues, got %s and %s", op, left.Kind, right.Kind)
		}
		if op == NAmp {
			m.push(boolValue(left.Bool && right.Bool))
		} else {
			m.push(boolValue(left.Bool || right.Bool))
		}
		return nil

	case NAug:
		// The left operand must already be a tuple, with nil as the
		// empty tuple; arbitrary values do not auto-promote.
		if left.Kind != VTuple && left.Kind != VNil {
			return runtimeErrorf(TypeError, "rule 6",
				"aug needs a tuple or nil on the left, got %s", left.Kind)
		}
		extended := make([]Value, 0, len(left.Tuple)+1)
		extended = append(extended, left.Tuple...)
		extended = append(extended, right)
		m.push(tupleValue(extended))
		return nil
	}
	return runtimeErrorf(TypeError, "rule 6", "unknown operator %s", op)
}

func arith(op NodeKind, left, right int64) (int64, error) {
	switch op {
	case NPlus:
		return left + right, nil
	case NMinus:
		return left - right, nil
	case NMul:
		return left * right, nil
	case NDiv:
		if right == 0 {
			return 0, runtimeErrorf(DivByZero, "rule 6", "division by zero")
		}
		return left / right, nil
	case NPow:
		if right < 0 {
			return 0, runtimeErrorf(TypeError, "rule 6",
				"negative exponent %d", right)
		}
		result := int64(1)
		for i := int64(0); i < right; i++ {
			result *= left
		}
		return result, nil
	}
	return 0, runtimeErrorf(TypeError, "rule 6", "unknown operator %s", op)
}

func compareInts(op NodeKind, left, right int64) bool {
	switch op {
	case NGr:
		return left > right
	case NGe:
		return left >= right
	case NLs:
		return left < right
	default:
		return left <= right
	}
}

func compareStrings(op NodeKind, left, right string) bool {
	switch op {
	case NGr:
		return left > right
	case NGe:
		return left >= right
	case NLs:
		return left < right
	default:
		return left <= right
	}
}

// valuesEqual implements eq/ne over matching tagged kinds.
func valuesEqual(left, right Value) (bool, error) {
	if left.Kind != right.Kind {
		return false, runtimeErrorf(TypeError, "rule 6",
			"eq needs operands of the same kind, got %s and %s",
			left.Kind, right.Kind)
	}
	switch left.Kind {
	case VInt:
		return left.Int == right.Int, nil
	case VStr:
		return left.Str == right.Str, nil
	case VBool:
		return left.Bool == right.Bool, nil
	case VNil, VDummy:
		return true, nil
	}
	return false, runtimeErrorf(TypeError, "rule 6",
		"eq is not defined over %s values", left.Kind)
}

// unary implements rule 7.
func (m *Machine) unary(op NodeKind) error {
	m.debug(7, op.String())
	m.popControl()
	if len(m.stack) == 0 {
		return runtimeErrorf(TypeError, "rule 7",
			"operator %s is missing an operand", op)
	}
	v := m.pop()
	switch op {
	case NNeg:
		if v.Kind != VInt {
			return runtimeErrorf(TypeError, "rule 7",
				"neg needs an integer, got %s", v.Kind)
		}
		m.push(intValue(-v.Int))
	case NNot:
		if v.Kind != VBool {
			return runtimeErrorf(TypeError, "rule 7",
				"not needs a truthvalue, got %s", v.Kind)
		}
		m.push(boolValue(!v.Bool))
	}
	return nil
}

// trace serializes the current control and value stacks, one line per
// state, to the optional trace streams.
func (m *Machine) trace() {
	if m.TraceControl != nil {
		items := make([]string, len(m.control))
		for i, c := range m.control {
			items[i] = c.String()
		}
		fmt.Fprintln(m.TraceControl, strings.Join(items, " "))
	}
	if m.TraceValue != nil {
		items := make([]string, len(m.stack))
		for i, v := range m.stack {
			items[i] = v.String()
		}
		fmt.Fprintln(m.TraceValue, strings.Join(items, " "))
	}
}
