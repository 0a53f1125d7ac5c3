package ir

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Canonical printer
// ---------------------------------------------------------------------------

// Print renders a program in canonical assembly text, one instruction per
// line. Reassembling the output reproduces the same program.
func Print(prog Program) string {
	var sb strings.Builder
	for _, instr := range prog {
		sb.WriteString(PrintInstr(instr))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// PrintInstr renders a single instruction in canonical form.
func PrintInstr(instr Instr) string {
	switch n := instr.(type) {
	case Nop:
		return "NOP"
	case Iconst:
		return fmt.Sprintf("ICONST %d", n.Value)
	case Sconst:
		return fmt.Sprintf("SCONST %s", Quote(n.Text))
	case Add:
		return "ADD"
	case Sub:
		return "SUB"
	case Mul:
		return "MUL"
	case Div:
		return "DIV"
	case Mod:
		return "MOD"
	case Bor:
		return "BOR"
	case Band:
		return "BAND"
	case Xor:
		return "XOR"
	case Or:
		return "OR"
	case And:
		return "AND"
	case Eq:
		return "EQ"
	case Lt:
		return "LT"
	case Gt:
		return "GT"
	case Not:
		return "NOT"
	case ReserveInt:
		return fmt.Sprintf("RESERVE %s 4 (null)", n.Name)
	case ReserveString:
		return fmt.Sprintf("RESERVE %s %d %s", n.Name, n.Size, Quote(n.InitialValue))
	case Read:
		return fmt.Sprintf("READ %s", n.Name)
	case Write:
		return fmt.Sprintf("WRITE %s", n.Name)
	case ArgLocalRead:
		return fmt.Sprintf("ARGLOCAL_READ %d", n.Index)
	case ArgLocalWrite:
		return fmt.Sprintf("ARGLOCAL_WRITE %d", n.Index)
	case LabelDef:
		return n.Label.Name + ":"
	case Jump:
		return fmt.Sprintf("JUMP %s", n.Label.Name)
	case BranchZero:
		return fmt.Sprintf("BRANCHZERO %s", n.Label.Name)
	case Function:
		return fmt.Sprintf("FUNCTION %s %d", n.Label.Name, n.NumLocals)
	case Call:
		return fmt.Sprintf("CALL %s %d", n.Label.Name, n.NumArgs)
	case Ret:
		return "RET"
	case IntrinsicCall:
		return fmt.Sprintf("INTRINSIC %s", n.Intrinsic)
	case Push:
		return fmt.Sprintf("PUSH %d", n.Reg)
	case Pop:
		return fmt.Sprintf("POP %d", n.Reg)
	default:
		return fmt.Sprintf("<unknown instruction %T>", instr)
	}
}

// Quote renders a string in source form. Only '\' and '"' are escaped; the
// grammar recognizes no other escape sequences.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		default:
			sb.WriteByte(s[i])
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
