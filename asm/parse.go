package asm

import (
	"fmt"
	"strings"

	"github.com/chazu/aves/ir"
)

// ---------------------------------------------------------------------------
// Parse errors
// ---------------------------------------------------------------------------

// ParseError reports a failure to assemble, with the source position of the
// offending input. Assembly never partially succeeds: either the whole input
// yields a program or a ParseError is returned.
type ParseError struct {
	Pos Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func parseErrorf(pos Position, format string, args ...interface{}) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------------
// Instruction rules
// ---------------------------------------------------------------------------

// opRule parses the operands of one opcode, after the keyword and before
// any trailing input. Rules must not consume trailing whitespace; that is
// the program parser's job.
type opRule func(s *scanner) (ir.Instr, error)

func noArg(instr ir.Instr) opRule {
	return func(s *scanner) (ir.Instr, error) {
		return instr, nil
	}
}

// operandSep requires the inline separator between an opcode keyword and
// its operands (or between two operands).
func operandSep(s *scanner) error {
	if !s.sepInline() {
		return fmt.Errorf("expected operand")
	}
	return nil
}

func parseIconst(s *scanner) (ir.Instr, error) {
	if err := operandSep(s); err != nil {
		return nil, err
	}
	v, err := s.scanInt()
	if err != nil {
		return nil, err
	}
	return ir.Iconst{Value: v}, nil
}

func parseSconst(s *scanner) (ir.Instr, error) {
	if err := operandSep(s); err != nil {
		return nil, err
	}
	text, err := s.scanStringLiteral()
	if err != nil {
		return nil, err
	}
	return ir.Sconst{Text: text}, nil
}

func parseReserve(s *scanner) (ir.Instr, error) {
	if err := operandSep(s); err != nil {
		return nil, err
	}
	name, err := s.scanIdentifier()
	if err != nil {
		return nil, err
	}
	if err := operandSep(s); err != nil {
		return nil, err
	}
	size, err := s.scanUint()
	if err != nil {
		return nil, err
	}
	if err := operandSep(s); err != nil {
		return nil, err
	}
	if s.peek() == '"' {
		initial, err := s.scanStringLiteral()
		if err != nil {
			return nil, err
		}
		return ir.ReserveString{Name: name, Size: size, InitialValue: initial}, nil
	}
	// The declared size is fixed at 4 for integer globals, so it is not
	// carried on the instruction.
	if !s.scanNullLiteral() {
		return nil, fmt.Errorf("expected string literal or (null)")
	}
	return ir.ReserveInt{Name: name}, nil
}

// scanNullLiteral consumes the literal text "(null)", case-insensitively.
func (s *scanner) scanNullLiteral() bool {
	const null = "(null)"
	if len(s.input)-s.pos < len(null) {
		return false
	}
	if !strings.EqualFold(s.input[s.pos:s.pos+len(null)], null) {
		return false
	}
	for range null {
		s.advance()
	}
	return true
}

func parseName(build func(name string) ir.Instr) opRule {
	return func(s *scanner) (ir.Instr, error) {
		if err := operandSep(s); err != nil {
			return nil, err
		}
		name, err := s.scanIdentifier()
		if err != nil {
			return nil, err
		}
		return build(name), nil
	}
}

func parseLocalIndex(build func(index int64) ir.Instr) opRule {
	return func(s *scanner) (ir.Instr, error) {
		if err := operandSep(s); err != nil {
			return nil, err
		}
		if c := s.peek(); isIdentByte(c) && !isDigit(c) {
			return nil, fmt.Errorf("locals are addressed by index, not by name")
		}
		index, err := s.scanUint()
		if err != nil {
			return nil, err
		}
		return build(index), nil
	}
}

func parseLabelAndCount(build func(label ir.Label, count int64) ir.Instr) opRule {
	return func(s *scanner) (ir.Instr, error) {
		if err := operandSep(s); err != nil {
			return nil, err
		}
		name, err := s.scanIdentifier()
		if err != nil {
			return nil, err
		}
		if err := operandSep(s); err != nil {
			return nil, err
		}
		count, err := s.scanUint()
		if err != nil {
			return nil, err
		}
		return build(ir.Named(name), count), nil
	}
}

var intrinsicsByName = map[string]ir.Intrinsic{
	"PRINT_INT":    ir.PrintInt,
	"PRINT_STRING": ir.PrintString,
	"EXIT":         ir.Exit,
}

func parseIntrinsic(s *scanner) (ir.Instr, error) {
	if !s.sepInline() {
		return nil, fmt.Errorf("expected intrinsic name")
	}
	name, err := s.scanIdentifier()
	if err != nil {
		return nil, fmt.Errorf("expected intrinsic name")
	}
	intrinsic, ok := intrinsicsByName[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unknown intrinsic %q", name)
	}
	return ir.IntrinsicCall{Intrinsic: intrinsic}, nil
}

func parseReg(build func(reg int64) ir.Instr) opRule {
	return func(s *scanner) (ir.Instr, error) {
		if err := operandSep(s); err != nil {
			return nil, err
		}
		reg, err := s.scanInt()
		if err != nil {
			return nil, err
		}
		return build(reg), nil
	}
}

// opRules maps each opcode keyword (uppercased) to its operand rule.
// Keyword matching is exact: the parser scans a maximal identifier, so a
// longer identifier that merely starts with an opcode name never matches.
var opRules = map[string]opRule{
	"NOP":     noArg(ir.Nop{}),
	"ICONST":  parseIconst,
	"SCONST":  parseSconst,
	"ADD":     noArg(ir.Add{}),
	"SUB":     noArg(ir.Sub{}),
	"MUL":     noArg(ir.Mul{}),
	"DIV":     noArg(ir.Div{}),
	"MOD":     noArg(ir.Mod{}),
	"BOR":     noArg(ir.Bor{}),
	"BAND":    noArg(ir.Band{}),
	"XOR":     noArg(ir.Xor{}),
	"OR":      noArg(ir.Or{}),
	"AND":     noArg(ir.And{}),
	"EQ":      noArg(ir.Eq{}),
	"LT":      noArg(ir.Lt{}),
	"GT":      noArg(ir.Gt{}),
	"NOT":     noArg(ir.Not{}),
	"RESERVE": parseReserve,
	"READ":    parseName(func(name string) ir.Instr { return ir.Read{Name: name} }),
	"WRITE":   parseName(func(name string) ir.Instr { return ir.Write{Name: name} }),
	"ARGLOCAL_READ": parseLocalIndex(func(index int64) ir.Instr {
		return ir.ArgLocalRead{Index: index}
	}),
	"ARGLOCAL_WRITE": parseLocalIndex(func(index int64) ir.Instr {
		return ir.ArgLocalWrite{Index: index}
	}),
	"JUMP": parseName(func(name string) ir.Instr { return ir.Jump{Label: ir.Named(name)} }),
	"BRANCHZERO": parseName(func(name string) ir.Instr {
		return ir.BranchZero{Label: ir.Named(name)}
	}),
	"FUNCTION": parseLabelAndCount(func(label ir.Label, count int64) ir.Instr {
		return ir.Function{Label: label, NumLocals: count}
	}),
	"CALL": parseLabelAndCount(func(label ir.Label, count int64) ir.Instr {
		return ir.Call{Label: label, NumArgs: count}
	}),
	"RET":       noArg(ir.Ret{}),
	"INTRINSIC": parseIntrinsic,
	"PUSH":      parseReg(func(reg int64) ir.Instr { return ir.Push{Reg: reg} }),
	"POP":       parseReg(func(reg int64) ir.Instr { return ir.Pop{Reg: reg} }),
}

// ---------------------------------------------------------------------------
// Instruction and program parsing
// ---------------------------------------------------------------------------

// parseInstr parses exactly one instruction at the cursor, leaving any
// trailing input (including trailing whitespace) unconsumed.
func parseInstr(s *scanner) (ir.Instr, error) {
	pos := s.position()

	// A label declaration is any identifier immediately followed by ':',
	// with no separator in between. Tried first: opcode keywords are never
	// directly followed by ':'.
	saved := *s
	if name, err := s.scanIdentifier(); err == nil && s.peek() == ':' {
		s.advance()
		return ir.LabelDef{Label: ir.Named(name)}, nil
	}
	*s = saved

	word, err := s.scanIdentifier()
	if err != nil {
		return nil, parseErrorf(pos, "expected instruction")
	}
	rule, ok := opRules[strings.ToUpper(word)]
	if !ok {
		return nil, parseErrorf(pos, "unrecognized instruction %q", word)
	}
	instr, err := rule(s)
	if err != nil {
		return nil, parseErrorf(s.position(), "%s: %s", strings.ToUpper(word), err)
	}
	return instr, nil
}

// ParseInstr parses a single instruction from the start of input and
// returns it together with the unconsumed remainder. Leading whitespace is
// not accepted.
func ParseInstr(input string) (ir.Instr, string, error) {
	s := newScanner(input)
	instr, err := parseInstr(&s)
	if err != nil {
		return nil, input, err
	}
	return instr, s.rest(), nil
}

// Assemble parses a whole program: an optional leading separator run,
// instructions separated by at least one separator unit each, an optional
// trailing run. The entire input must be consumed.
func Assemble(input string) (ir.Program, error) {
	s := newScanner(input)
	var prog ir.Program

	s.sepBetween()
	for !s.eof() {
		instr, err := parseInstr(&s)
		if err != nil {
			return nil, err
		}
		prog = append(prog, instr)

		if !s.sepBetween() && !s.eof() {
			return nil, parseErrorf(s.position(), "expected separator after instruction")
		}
	}
	return prog, nil
}
