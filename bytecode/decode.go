package bytecode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/chazu/aves/ir"
)

// Decode error classes. All are fatal; decoding never recovers partially.
var (
	ErrUnknownTag      = errors.New("unknown opcode tag")
	ErrBadStringLength = errors.New("non-positive string length")
	ErrTruncated       = errors.New("truncated bytecode stream")
)

// ---------------------------------------------------------------------------
// Decoder
// ---------------------------------------------------------------------------

// Decoder reads programs from the binary bytecode format. It is the exact
// inverse of Encoder: decode(encode(p)) reproduces p.
type Decoder struct {
	r io.Reader
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads instructions until end of stream.
func (d *Decoder) Decode() (ir.Program, error) {
	var prog ir.Program
	for i := 0; ; i++ {
		instr, err := d.DecodeInstr()
		if err == io.EOF {
			return prog, nil
		}
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		prog = append(prog, instr)
	}
}

// DecodeInstr reads one instruction. It returns io.EOF only on a clean end
// of stream, before any byte of the next tag.
func (d *Decoder) DecodeInstr() (ir.Instr, error) {
	tag, err := d.readTag()
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagNop:
		return ir.Nop{}, nil
	case TagIconst:
		v, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return ir.Iconst{Value: int64(v)}, nil
	case TagSconst:
		text, err := d.readString()
		if err != nil {
			return nil, err
		}
		return ir.Sconst{Text: text}, nil
	case TagAdd:
		return ir.Add{}, nil
	case TagSub:
		return ir.Sub{}, nil
	case TagMul:
		return ir.Mul{}, nil
	case TagDiv:
		return ir.Div{}, nil
	case TagMod:
		return ir.Mod{}, nil
	case TagBor:
		return ir.Bor{}, nil
	case TagBand:
		return ir.Band{}, nil
	case TagXor:
		return ir.Xor{}, nil
	case TagOr:
		return ir.Or{}, nil
	case TagAnd:
		return ir.And{}, nil
	case TagEq:
		return ir.Eq{}, nil
	case TagLt:
		return ir.Lt{}, nil
	case TagGt:
		return ir.Gt{}, nil
	case TagNot:
		return ir.Not{}, nil
	case TagReserve:
		return d.decodeReserve()
	case TagRead:
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		return ir.Read{Name: name}, nil
	case TagWrite:
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		return ir.Write{Name: name}, nil
	case TagArgLocalRead:
		index, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return ir.ArgLocalRead{Index: int64(index)}, nil
	case TagArgLocalWrite:
		index, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return ir.ArgLocalWrite{Index: int64(index)}, nil
	case TagLabel:
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		return ir.LabelDef{Label: ir.Named(name)}, nil
	case TagJump:
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		return ir.Jump{Label: ir.Named(name)}, nil
	case TagBranchZero:
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		return ir.BranchZero{Label: ir.Named(name)}, nil
	case TagFunction:
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		numLocals, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return ir.Function{Label: ir.Named(name), NumLocals: int64(numLocals)}, nil
	case TagCall:
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		numArgs, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return ir.Call{Label: ir.Named(name), NumArgs: int64(numArgs)}, nil
	case TagRet:
		return ir.Ret{}, nil
	case TagIntrinsic:
		code, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		intrinsic, ok := intrinsicsByCode[code]
		if !ok {
			return nil, fmt.Errorf("unknown intrinsic code %d", code)
		}
		return ir.IntrinsicCall{Intrinsic: intrinsic}, nil
	case TagPush:
		reg, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return ir.Push{Reg: int64(reg)}, nil
	case TagPop:
		reg, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return ir.Pop{Reg: int64(reg)}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}

// decodeReserve reads the operands shared by ReserveInt and ReserveString.
// A zero initial-value length is the null sentinel marking an integer
// global; any positive length carries the string payload.
func (d *Decoder) decodeReserve() (ir.Instr, error) {
	name, err := d.readString()
	if err != nil {
		return nil, err
	}
	length, err := d.readInt32()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadStringLength, length)
	}
	if length == 0 {
		// Trailing size field is fixed at 4 for integer globals.
		if _, err := d.readInt32(); err != nil {
			return nil, err
		}
		return ir.ReserveInt{Name: name}, nil
	}
	initial, err := d.readStringPayload(length)
	if err != nil {
		return nil, err
	}
	size, err := d.readInt32()
	if err != nil {
		return nil, err
	}
	return ir.ReserveString{Name: name, Size: int64(size), InitialValue: initial}, nil
}

// ---------------------------------------------------------------------------
// Wire primitives
// ---------------------------------------------------------------------------

// readTag reads the next opcode tag. A clean end of stream yields io.EOF;
// a partial read is reported as truncation.
func (d *Decoder) readTag() (Tag, error) {
	var buf [4]byte
	n, err := io.ReadFull(d.r, buf[:])
	if err == io.EOF && n == 0 {
		return 0, io.EOF
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return Tag(int32(binary.LittleEndian.Uint32(buf[:]))), nil
}

func (d *Decoder) readInt32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// readString reads a length-prefixed, NUL-terminated string field.
func (d *Decoder) readString() (string, error) {
	length, err := d.readInt32()
	if err != nil {
		return "", err
	}
	if length <= 0 {
		return "", fmt.Errorf("%w: %d", ErrBadStringLength, length)
	}
	return d.readStringPayload(length)
}

// readStringPayload reads length bytes, of which the last must be the NUL
// terminator. The buffer grows with the bytes actually read rather than
// being sized up front, so a corrupt length field cannot force a giant
// allocation before the read fails short.
func (d *Decoder) readStringPayload(length int32) (string, error) {
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, d.r, int64(length)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	b := buf.Bytes()
	if b[length-1] != 0 {
		return "", fmt.Errorf("string field of length %d is not NUL-terminated", length)
	}
	return string(b[:length-1]), nil
}
