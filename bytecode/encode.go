package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/chazu/aves/ir"
)

// ErrOperandRange reports a logical operand value that does not fit the
// 32-bit wire width. The range is checked at encode time, never silently
// wrapped.
var ErrOperandRange = errors.New("operand does not fit 32-bit wire format")

// ---------------------------------------------------------------------------
// Encoder
// ---------------------------------------------------------------------------

// Encoder writes programs in the binary bytecode format.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes every instruction of prog in order.
func (e *Encoder) Encode(prog ir.Program) error {
	for i, instr := range prog {
		if err := e.EncodeInstr(instr); err != nil {
			return fmt.Errorf("instruction %d (%s): %w", i, ir.PrintInstr(instr), err)
		}
	}
	return nil
}

// EncodeInstr writes a single instruction: its opcode tag followed by the
// operand layout the tag implies.
func (e *Encoder) EncodeInstr(instr ir.Instr) error {
	switch n := instr.(type) {
	case ir.Nop:
		return e.writeTag(TagNop)
	case ir.Iconst:
		if err := e.writeTag(TagIconst); err != nil {
			return err
		}
		return e.writeOperand(n.Value)
	case ir.Sconst:
		if err := e.writeTag(TagSconst); err != nil {
			return err
		}
		return e.writeString(n.Text)
	case ir.Add:
		return e.writeTag(TagAdd)
	case ir.Sub:
		return e.writeTag(TagSub)
	case ir.Mul:
		return e.writeTag(TagMul)
	case ir.Div:
		return e.writeTag(TagDiv)
	case ir.Mod:
		return e.writeTag(TagMod)
	case ir.Bor:
		return e.writeTag(TagBor)
	case ir.Band:
		return e.writeTag(TagBand)
	case ir.Xor:
		return e.writeTag(TagXor)
	case ir.Or:
		return e.writeTag(TagOr)
	case ir.And:
		return e.writeTag(TagAnd)
	case ir.Eq:
		return e.writeTag(TagEq)
	case ir.Lt:
		return e.writeTag(TagLt)
	case ir.Gt:
		return e.writeTag(TagGt)
	case ir.Not:
		return e.writeTag(TagNot)
	case ir.ReserveInt:
		if err := e.writeTag(TagReserve); err != nil {
			return err
		}
		if err := e.writeString(n.Name); err != nil {
			return err
		}
		// A zero string length marks the null initial value; integer
		// globals are always 4 bytes wide.
		if err := e.writeInt32(0); err != nil {
			return err
		}
		return e.writeInt32(4)
	case ir.ReserveString:
		if err := e.writeTag(TagReserve); err != nil {
			return err
		}
		if err := e.writeString(n.Name); err != nil {
			return err
		}
		if err := e.writeString(n.InitialValue); err != nil {
			return err
		}
		return e.writeOperand(n.Size)
	case ir.Read:
		if err := e.writeTag(TagRead); err != nil {
			return err
		}
		return e.writeString(n.Name)
	case ir.Write:
		if err := e.writeTag(TagWrite); err != nil {
			return err
		}
		return e.writeString(n.Name)
	case ir.ArgLocalRead:
		if err := e.writeTag(TagArgLocalRead); err != nil {
			return err
		}
		return e.writeOperand(n.Index)
	case ir.ArgLocalWrite:
		if err := e.writeTag(TagArgLocalWrite); err != nil {
			return err
		}
		return e.writeOperand(n.Index)
	case ir.LabelDef:
		if err := e.writeTag(TagLabel); err != nil {
			return err
		}
		return e.writeString(n.Label.Name)
	case ir.Jump:
		if err := e.writeTag(TagJump); err != nil {
			return err
		}
		return e.writeString(n.Label.Name)
	case ir.BranchZero:
		if err := e.writeTag(TagBranchZero); err != nil {
			return err
		}
		return e.writeString(n.Label.Name)
	case ir.Function:
		if err := e.writeTag(TagFunction); err != nil {
			return err
		}
		if err := e.writeString(n.Label.Name); err != nil {
			return err
		}
		return e.writeOperand(n.NumLocals)
	case ir.Call:
		if err := e.writeTag(TagCall); err != nil {
			return err
		}
		if err := e.writeString(n.Label.Name); err != nil {
			return err
		}
		return e.writeOperand(n.NumArgs)
	case ir.Ret:
		return e.writeTag(TagRet)
	case ir.IntrinsicCall:
		if err := e.writeTag(TagIntrinsic); err != nil {
			return err
		}
		code, ok := intrinsicCodes[n.Intrinsic]
		if !ok {
			return fmt.Errorf("unknown intrinsic %v", n.Intrinsic)
		}
		return e.writeInt32(code)
	case ir.Push:
		if err := e.writeTag(TagPush); err != nil {
			return err
		}
		return e.writeOperand(n.Reg)
	case ir.Pop:
		if err := e.writeTag(TagPop); err != nil {
			return err
		}
		return e.writeOperand(n.Reg)
	default:
		return fmt.Errorf("unencodable instruction %T", instr)
	}
}

// ---------------------------------------------------------------------------
// Wire primitives
// ---------------------------------------------------------------------------

func (e *Encoder) writeInt32(v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := e.w.Write(buf[:])
	return err
}

func (e *Encoder) writeTag(t Tag) error {
	return e.writeInt32(int32(t))
}

// writeOperand range-checks a 64-bit logical operand down to the 32-bit
// wire width.
func (e *Encoder) writeOperand(v int64) error {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return fmt.Errorf("%w: %d", ErrOperandRange, v)
	}
	return e.writeInt32(int32(v))
}

// writeString writes the byte length plus one, the raw bytes, then a NUL.
func (e *Encoder) writeString(s string) error {
	if int64(len(s))+1 > math.MaxInt32 {
		return fmt.Errorf("%w: string of %d bytes", ErrOperandRange, len(s))
	}
	if err := e.writeInt32(int32(len(s) + 1)); err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, s); err != nil {
		return err
	}
	_, err := e.w.Write([]byte{0})
	return err
}
