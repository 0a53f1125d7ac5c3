package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/aves/ir"
)

// ---------------------------------------------------------------------------
// Runtime error classes
// ---------------------------------------------------------------------------

// All runtime failures are fatal to the running program; none are locally
// recovered.
var (
	ErrStackUnderflow    = errors.New("operand stack underflow")
	ErrStackLimit        = errors.New("operand stack limit exceeded")
	ErrCallUnderflow     = errors.New("return with no active call frame")
	ErrUnresolvedLabel   = errors.New("unresolved label")
	ErrDuplicateLabel    = errors.New("duplicate label")
	ErrNotAFunction      = errors.New("call target is not a function")
	ErrLocalOutOfRange   = errors.New("local index out of range")
	ErrUnknownGlobal     = errors.New("unknown global")
	ErrDuplicateGlobal   = errors.New("global already reserved")
	ErrBadOperandKind    = errors.New("operand has wrong kind")
	ErrDivideByZero      = errors.New("division by zero")
	ErrUnwrittenRegister = errors.New("read of unwritten register")
	ErrStepLimit         = errors.New("step limit exceeded")
)

// RuntimeError wraps a runtime failure with the position and instruction
// that raised it. It unwraps to one of the error classes above.
type RuntimeError struct {
	IP    int
	Instr ir.Instr
	Err   error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("instruction %d (%s): %s", e.IP, ir.PrintInstr(e.Instr), e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}
