package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/aves/ir"
)

// ---------------------------------------------------------------------------
// Machine: stack-machine execution state
// ---------------------------------------------------------------------------

// defaultMaxStack bounds the operand stack so a runaway program fails
// instead of exhausting memory.
const defaultMaxStack = 1 << 20

// Options configures a machine. The zero value runs with program output to
// os.Stdout, the default stack bound and no step limit.
type Options struct {
	Output   io.Writer
	MaxStack int   // operand stack entry limit, 0 = default
	MaxSteps int64 // instructions executed before ErrStepLimit, 0 = unlimited
}

// funcInfo records a FUNCTION marker: the index just past it and its
// declared local-frame size.
type funcInfo struct {
	entry     int
	numLocals int64
}

// frame is one call-stack entry.
type frame struct {
	locals []Value
	retIP  int
}

// global is one entry of the global variable table: either a 4-byte
// integer cell or a fixed-size byte buffer.
type global struct {
	isInt bool
	cell  int32
	buf   []byte
}

// Machine executes a program. State is constructed fresh per run and never
// shared; a Machine is single-use.
type Machine struct {
	prog    ir.Program
	out     io.Writer
	labels  map[string]int
	funcs   map[string]funcInfo
	globals map[string]*global
	regs    map[int64]Value
	stack   []Value
	frames  []frame
	ip      int

	maxStack int
	maxSteps int64
}

// New builds a machine for prog. Labels are resolved once, up front:
// every LabelDef and Function registers its position, and a duplicate name
// is rejected here rather than surfacing as a runtime ambiguity.
func New(prog ir.Program, opts Options) (*Machine, error) {
	m := &Machine{
		prog:     prog,
		out:      opts.Output,
		labels:   make(map[string]int),
		funcs:    make(map[string]funcInfo),
		globals:  make(map[string]*global),
		regs:     make(map[int64]Value),
		maxStack: opts.MaxStack,
		maxSteps: opts.MaxSteps,
	}
	if m.out == nil {
		m.out = os.Stdout
	}
	if m.maxStack <= 0 {
		m.maxStack = defaultMaxStack
	}

	for i, instr := range prog {
		switch n := instr.(type) {
		case ir.LabelDef:
			if _, ok := m.labels[n.Label.Name]; ok {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, n.Label.Name)
			}
			m.labels[n.Label.Name] = i
		case ir.Function:
			if _, ok := m.labels[n.Label.Name]; ok {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, n.Label.Name)
			}
			m.labels[n.Label.Name] = i
			m.funcs[n.Label.Name] = funcInfo{entry: i + 1, numLocals: n.NumLocals}
		}
	}
	return m, nil
}

// Stack returns the operand stack contents, bottom to top.
func (m *Machine) Stack() []Value {
	out := make([]Value, len(m.stack))
	copy(out, m.stack)
	return out
}

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (m *Machine) push(v Value) error {
	if len(m.stack) >= m.maxStack {
		return ErrStackLimit
	}
	m.stack = append(m.stack, v)
	return nil
}

func (m *Machine) pop() (Value, error) {
	if len(m.stack) == 0 {
		return Value{}, ErrStackUnderflow
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func (m *Machine) popInt() (int32, error) {
	v, err := m.pop()
	if err != nil {
		return 0, err
	}
	if v.Kind != IntValue {
		return 0, fmt.Errorf("%w: expected int, got %s", ErrBadOperandKind, v.Kind)
	}
	return v.Int, nil
}

func (m *Machine) popString() (string, error) {
	v, err := m.pop()
	if err != nil {
		return "", err
	}
	if v.Kind != StringValue {
		return "", fmt.Errorf("%w: expected string, got %s", ErrBadOperandKind, v.Kind)
	}
	return v.Str, nil
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Run executes the program to completion: end of instruction stream, an
// explicit EXIT, or a fatal runtime error. On success it returns the final
// operand stack, bottom to top.
func (m *Machine) Run() ([]Value, error) {
	var steps int64
	for m.ip < len(m.prog) {
		if m.maxSteps > 0 {
			steps++
			if steps > m.maxSteps {
				return nil, ErrStepLimit
			}
		}

		ip := m.ip
		m.ip++
		done, err := m.step(m.prog[ip])
		if err != nil {
			return nil, &RuntimeError{IP: ip, Instr: m.prog[ip], Err: err}
		}
		if done {
			break
		}
	}
	return m.Stack(), nil
}

// step executes one instruction. It reports done=true when the program
// terminated via EXIT.
func (m *Machine) step(instr ir.Instr) (done bool, err error) {
	switch n := instr.(type) {
	case ir.Nop, ir.LabelDef, ir.Function:
		// Position markers and NOP have no execution effect. Producers
		// are expected to jump around function bodies.
		return false, nil

	case ir.Iconst:
		// Constants wider than the wire format never reach a decoded
		// program; a hand-built one truncates like the 32-bit engine.
		return false, m.push(IntVal(int32(n.Value)))
	case ir.Sconst:
		return false, m.push(StringVal(n.Text))

	case ir.Add:
		return false, m.binaryInt(func(a, b int32) (int32, error) { return a + b, nil })
	case ir.Sub:
		return false, m.binaryInt(func(a, b int32) (int32, error) { return a - b, nil })
	case ir.Mul:
		return false, m.binaryInt(func(a, b int32) (int32, error) { return a * b, nil })
	case ir.Div:
		return false, m.binaryInt(func(a, b int32) (int32, error) {
			if b == 0 {
				return 0, ErrDivideByZero
			}
			return a / b, nil
		})
	case ir.Mod:
		return false, m.binaryInt(func(a, b int32) (int32, error) {
			if b == 0 {
				return 0, ErrDivideByZero
			}
			return a % b, nil
		})
	case ir.Bor:
		return false, m.binaryInt(func(a, b int32) (int32, error) { return a | b, nil })
	case ir.Band:
		return false, m.binaryInt(func(a, b int32) (int32, error) { return a & b, nil })
	case ir.Xor:
		return false, m.binaryInt(func(a, b int32) (int32, error) { return a ^ b, nil })
	case ir.Or:
		return false, m.binaryInt(func(a, b int32) (int32, error) {
			return boolInt(a != 0 || b != 0), nil
		})
	case ir.And:
		return false, m.binaryInt(func(a, b int32) (int32, error) {
			return boolInt(a != 0 && b != 0), nil
		})
	case ir.Eq:
		return false, m.binaryInt(func(a, b int32) (int32, error) { return boolInt(a == b), nil })
	case ir.Lt:
		return false, m.binaryInt(func(a, b int32) (int32, error) { return boolInt(a < b), nil })
	case ir.Gt:
		return false, m.binaryInt(func(a, b int32) (int32, error) { return boolInt(a > b), nil })
	case ir.Not:
		v, err := m.popInt()
		if err != nil {
			return false, err
		}
		return false, m.push(IntVal(boolInt(v == 0)))

	case ir.ReserveInt:
		if _, ok := m.globals[n.Name]; ok {
			return false, fmt.Errorf("%w: %s", ErrDuplicateGlobal, n.Name)
		}
		m.globals[n.Name] = &global{isInt: true}
		return false, nil
	case ir.ReserveString:
		if _, ok := m.globals[n.Name]; ok {
			return false, fmt.Errorf("%w: %s", ErrDuplicateGlobal, n.Name)
		}
		buf := make([]byte, n.Size)
		copy(buf, n.InitialValue)
		m.globals[n.Name] = &global{buf: buf}
		return false, nil
	case ir.Read:
		g, ok := m.globals[n.Name]
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownGlobal, n.Name)
		}
		if g.isInt {
			return false, m.push(IntVal(g.cell))
		}
		return false, m.push(StringVal(cString(g.buf)))
	case ir.Write:
		g, ok := m.globals[n.Name]
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownGlobal, n.Name)
		}
		if g.isInt {
			v, err := m.popInt()
			if err != nil {
				return false, err
			}
			g.cell = v
			return false, nil
		}
		s, err := m.popString()
		if err != nil {
			return false, err
		}
		storeCString(g.buf, s)
		return false, nil

	case ir.ArgLocalRead:
		f, err := m.currentFrame()
		if err != nil {
			return false, err
		}
		if n.Index < 0 || n.Index >= int64(len(f.locals)) {
			return false, fmt.Errorf("%w: %d of %d", ErrLocalOutOfRange, n.Index, len(f.locals))
		}
		return false, m.push(f.locals[n.Index])
	case ir.ArgLocalWrite:
		f, err := m.currentFrame()
		if err != nil {
			return false, err
		}
		if n.Index < 0 || n.Index >= int64(len(f.locals)) {
			return false, fmt.Errorf("%w: %d of %d", ErrLocalOutOfRange, n.Index, len(f.locals))
		}
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		f.locals[n.Index] = v
		return false, nil

	case ir.Jump:
		return false, m.jumpTo(n.Label)
	case ir.BranchZero:
		v, err := m.popInt()
		if err != nil {
			return false, err
		}
		if v == 0 {
			return false, m.jumpTo(n.Label)
		}
		return false, nil

	case ir.Call:
		info, ok := m.funcs[n.Label.Name]
		if !ok {
			if _, isLabel := m.labels[n.Label.Name]; isLabel {
				return false, fmt.Errorf("%w: %s", ErrNotAFunction, n.Label.Name)
			}
			return false, fmt.Errorf("%w: %s", ErrUnresolvedLabel, n.Label.Name)
		}
		if n.NumArgs > info.numLocals {
			return false, fmt.Errorf("%w: %d args into %d locals",
				ErrLocalOutOfRange, n.NumArgs, info.numLocals)
		}
		locals := make([]Value, info.numLocals)
		// Arguments were pushed first-to-last, so they pop off in
		// reverse: argument 0 lands in local 0.
		for i := n.NumArgs - 1; i >= 0; i-- {
			v, err := m.pop()
			if err != nil {
				return false, err
			}
			locals[i] = v
		}
		m.frames = append(m.frames, frame{locals: locals, retIP: m.ip})
		m.ip = info.entry
		return false, nil
	case ir.Ret:
		if len(m.frames) == 0 {
			return false, ErrCallUnderflow
		}
		f := m.frames[len(m.frames)-1]
		m.frames = m.frames[:len(m.frames)-1]
		m.ip = f.retIP
		return false, nil

	case ir.IntrinsicCall:
		return m.intrinsic(n.Intrinsic)

	case ir.Push:
		v, ok := m.regs[n.Reg]
		if !ok {
			return false, fmt.Errorf("%w: %d", ErrUnwrittenRegister, n.Reg)
		}
		return false, m.push(v)
	case ir.Pop:
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		m.regs[n.Reg] = v
		return false, nil

	default:
		return false, fmt.Errorf("unexecutable instruction %T", instr)
	}
}

// intrinsic dispatches a builtin, consuming its operand as applicable.
func (m *Machine) intrinsic(in ir.Intrinsic) (done bool, err error) {
	switch in {
	case ir.PrintInt:
		v, err := m.popInt()
		if err != nil {
			return false, err
		}
		_, err = fmt.Fprintf(m.out, "%d\n", v)
		return false, err
	case ir.PrintString:
		s, err := m.popString()
		if err != nil {
			return false, err
		}
		_, err = io.WriteString(m.out, s)
		return false, err
	case ir.Exit:
		return true, nil
	default:
		return false, fmt.Errorf("unknown intrinsic %v", in)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (m *Machine) binaryInt(op func(a, b int32) (int32, error)) error {
	b, err := m.popInt()
	if err != nil {
		return err
	}
	a, err := m.popInt()
	if err != nil {
		return err
	}
	result, err := op(a, b)
	if err != nil {
		return err
	}
	return m.push(IntVal(result))
}

func (m *Machine) jumpTo(label ir.Label) error {
	target, ok := m.labels[label.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnresolvedLabel, label.Name)
	}
	m.ip = target
	return nil
}

func (m *Machine) currentFrame() (*frame, error) {
	if len(m.frames) == 0 {
		return nil, fmt.Errorf("%w: no active call frame", ErrLocalOutOfRange)
	}
	return &m.frames[len(m.frames)-1], nil
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// cString returns the buffer contents up to the first NUL, C-style.
func cString(buf []byte) string {
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// storeCString copies s into buf, truncating to fit and NUL-terminating
// when room remains.
func storeCString(buf []byte, s string) {
	n := copy(buf, s)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
}
