// Package bytecode implements the canonical binary encoding of Aves IR:
// little-endian, opcode-tagged, with NUL-terminated length-prefixed strings
// so the stream is directly consumable by a C-style reader.
package bytecode

import "github.com/chazu/aves/ir"

// ---------------------------------------------------------------------------
// Opcode tags
// ---------------------------------------------------------------------------

// Tag is the 4-byte signed discriminator identifying an instruction's kind
// on the wire.
type Tag int32

const (
	TagNop Tag = iota
	TagIconst
	TagSconst
	TagAdd
	TagSub
	TagMul
	TagDiv
	TagMod
	TagBor
	TagBand
	TagXor
	TagOr
	TagAnd
	TagEq
	TagLt
	TagGt
	TagNot
	// TagReserve is shared by ReserveInt and ReserveString; the two are
	// told apart at decode time by the initial-value string length, not
	// by a distinct tag.
	TagReserve
	TagRead
	TagWrite
	TagArgLocalRead
	TagArgLocalWrite
	TagLabel
	TagJump
	TagBranchZero
	TagFunction
	TagCall
	TagRet
	TagIntrinsic
	TagPush
	TagPop
)

// ---------------------------------------------------------------------------
// Intrinsic codes
// ---------------------------------------------------------------------------

// Intrinsic operands are written as the intrinsic's external numeric code.
// The translation is explicit rather than relying on the IR's internal
// ordinals coinciding with the wire numbering.
var intrinsicCodes = map[ir.Intrinsic]int32{
	ir.PrintInt:    0,
	ir.PrintString: 1,
	ir.Exit:        2,
}

var intrinsicsByCode = map[int32]ir.Intrinsic{
	0: ir.PrintInt,
	1: ir.PrintString,
	2: ir.Exit,
}
