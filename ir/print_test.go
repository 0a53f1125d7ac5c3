package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintInstrCanonicalForms(t *testing.T) {
	tests := []struct {
		instr Instr
		want  string
	}{
		{Nop{}, "NOP"},
		{Iconst{Value: 42}, "ICONST 42"},
		{Iconst{Value: -7}, "ICONST -7"},
		{Sconst{Text: "hello"}, `SCONST "hello"`},
		{Sconst{Text: `a"b`}, `SCONST "a\"b"`},
		{Sconst{Text: `back\slash`}, `SCONST "back\\slash"`},
		{Sconst{Text: ""}, `SCONST ""`},
		{Add{}, "ADD"},
		{Not{}, "NOT"},
		{ReserveInt{Name: "counter"}, "RESERVE counter 4 (null)"},
		{ReserveString{Name: "msg", Size: 16, InitialValue: "hi"}, `RESERVE msg 16 "hi"`},
		{Read{Name: "counter"}, "READ counter"},
		{Write{Name: "counter"}, "WRITE counter"},
		{ArgLocalRead{Index: 0}, "ARGLOCAL_READ 0"},
		{ArgLocalWrite{Index: 3}, "ARGLOCAL_WRITE 3"},
		{LabelDef{Label: Named("L0")}, "L0:"},
		{Jump{Label: Named("L0")}, "JUMP L0"},
		{BranchZero{Label: Named("done")}, "BRANCHZERO done"},
		{Function{Label: Named("f"), NumLocals: 2}, "FUNCTION f 2"},
		{Call{Label: Named("f"), NumArgs: 1}, "CALL f 1"},
		{Ret{}, "RET"},
		{IntrinsicCall{Intrinsic: PrintInt}, "INTRINSIC PRINT_INT"},
		{IntrinsicCall{Intrinsic: PrintString}, "INTRINSIC PRINT_STRING"},
		{IntrinsicCall{Intrinsic: Exit}, "INTRINSIC EXIT"},
		{Push{Reg: -1}, "PUSH -1"},
		{Pop{Reg: 2}, "POP 2"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, PrintInstr(tc.instr))
	}
}

func TestPrintProgram(t *testing.T) {
	prog := Program{
		Iconst{Value: 20},
		Iconst{Value: 22},
		Add{},
		IntrinsicCall{Intrinsic: PrintInt},
		IntrinsicCall{Intrinsic: Exit},
	}
	want := "ICONST 20\nICONST 22\nADD\nINTRINSIC PRINT_INT\nINTRINSIC EXIT\n"
	assert.Equal(t, want, Print(prog))

	assert.Equal(t, "", Print(nil))
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", `""`},
		{"abc", `"abc"`},
		{`a"b`, `"a\"b"`},
		{`\`, `"\\"`},
		{"newline\nkept", "\"newline\nkept\""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Quote(tc.in))
	}
}
