// Package ir defines the Aves intermediate representation: a flat,
// stack-oriented instruction set produced by the assembler and consumed by
// the bytecode codec and the execution engine.
package ir

import "fmt"

// ---------------------------------------------------------------------------
// Label
// ---------------------------------------------------------------------------

// Label names a jump or call target. The name obeys the identifier grammar
// (alphanumerics, '$' and '_'). Uniqueness within a program is a caller
// invariant; duplicates are caught at label resolution, not here.
type Label struct {
	Name string
}

// Named creates a label with the given name.
func Named(name string) Label {
	return Label{Name: name}
}

func (l Label) String() string {
	return l.Name
}

// ---------------------------------------------------------------------------
// Intrinsic
// ---------------------------------------------------------------------------

// Intrinsic is one of the fixed builtin operations invoked by INTRINSIC.
type Intrinsic int

const (
	PrintInt Intrinsic = iota
	PrintString
	Exit
)

var intrinsicNames = map[Intrinsic]string{
	PrintInt:    "PRINT_INT",
	PrintString: "PRINT_STRING",
	Exit:        "EXIT",
}

func (in Intrinsic) String() string {
	if name, ok := intrinsicNames[in]; ok {
		return name
	}
	return fmt.Sprintf("Intrinsic(%d)", int(in))
}

// ---------------------------------------------------------------------------
// Instr: closed instruction variant, one case per opcode
// ---------------------------------------------------------------------------

// Instr is a single IR instruction. The set of implementations is closed;
// every case is a comparable struct, so two instructions can be compared
// with ==.
type Instr interface {
	isInstr()
}

// Nop does nothing.
type Nop struct{}

// Iconst pushes a signed integer constant.
type Iconst struct {
	Value int64
}

// Sconst pushes a string constant. Text holds the unescaped value.
type Sconst struct {
	Text string
}

// Arithmetic, logic and comparison operations. Each pops its operands from
// the stack and pushes one result.
type (
	Add  struct{}
	Sub  struct{}
	Mul  struct{}
	Div  struct{}
	Mod  struct{}
	Bor  struct{}
	Band struct{}
	Xor  struct{}
	Or   struct{}
	And  struct{}
	Eq   struct{}
	Lt   struct{}
	Gt   struct{}
	Not  struct{}
)

// ReserveInt declares a named 4-byte global, zero-initialized.
type ReserveInt struct {
	Name string
}

// ReserveString declares a named fixed-size global byte buffer seeded with
// an initial value.
type ReserveString struct {
	Name         string
	Size         int64
	InitialValue string
}

// Read pushes the value of a named global.
type Read struct {
	Name string
}

// Write pops the top of stack into a named global.
type Write struct {
	Name string
}

// ArgLocalRead pushes the current frame's local at Index.
type ArgLocalRead struct {
	Index int64
}

// ArgLocalWrite pops the top of stack into the current frame's local at Index.
type ArgLocalWrite struct {
	Index int64
}

// LabelDef marks a position in the instruction stream. It has no execution
// effect; label resolution turns it into an address.
type LabelDef struct {
	Label Label
}

// Jump transfers control to a label unconditionally.
type Jump struct {
	Label Label
}

// BranchZero pops one value and transfers control to the label if it is zero.
type BranchZero struct {
	Label Label
}

// Function marks a callable entry point and declares its local frame size.
type Function struct {
	Label     Label
	NumLocals int64
}

// Call invokes a function, transferring NumArgs values from the caller's
// operand stack into the callee's leading locals.
type Call struct {
	Label   Label
	NumArgs int64
}

// Ret pops the current frame and resumes at the saved return position.
type Ret struct{}

// IntrinsicCall dispatches to a builtin operation.
type IntrinsicCall struct {
	Intrinsic Intrinsic
}

// Push and Pop move a value between the operand stack and an explicitly
// numbered register slot. Retained for producers that address storage that
// way; ordinary generated code should not need them.
type (
	Push struct {
		Reg int64
	}
	Pop struct {
		Reg int64
	}
)

func (Nop) isInstr()           {}
func (Iconst) isInstr()        {}
func (Sconst) isInstr()        {}
func (Add) isInstr()           {}
func (Sub) isInstr()           {}
func (Mul) isInstr()           {}
func (Div) isInstr()           {}
func (Mod) isInstr()           {}
func (Bor) isInstr()           {}
func (Band) isInstr()          {}
func (Xor) isInstr()           {}
func (Or) isInstr()            {}
func (And) isInstr()           {}
func (Eq) isInstr()            {}
func (Lt) isInstr()            {}
func (Gt) isInstr()            {}
func (Not) isInstr()           {}
func (ReserveInt) isInstr()    {}
func (ReserveString) isInstr() {}
func (Read) isInstr()          {}
func (Write) isInstr()         {}
func (ArgLocalRead) isInstr()  {}
func (ArgLocalWrite) isInstr() {}
func (LabelDef) isInstr()      {}
func (Jump) isInstr()          {}
func (BranchZero) isInstr()    {}
func (Function) isInstr()      {}
func (Call) isInstr()          {}
func (Ret) isInstr()           {}
func (IntrinsicCall) isInstr() {}
func (Push) isInstr()          {}
func (Pop) isInstr()           {}

// ---------------------------------------------------------------------------
// Program
// ---------------------------------------------------------------------------

// Program is an ordered instruction sequence. Order is execution order;
// LabelDef entries define jump targets by position. A Program is built once
// by the assembler or the bytecode decoder and not mutated afterwards.
type Program []Instr
