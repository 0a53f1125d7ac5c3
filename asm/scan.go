// Package asm assembles Aves IR text into an ir.Program. The grammar is
// line-oriented only in that an instruction's operands must share a line
// with their opcode; between instructions any whitespace and comment run
// separates.
package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Position
// ---------------------------------------------------------------------------

// Position locates a byte offset in the source text.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based, in bytes
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// ---------------------------------------------------------------------------
// scanner: byte cursor over the source text
// ---------------------------------------------------------------------------

// scanner is a cursor over the input. It is copied by value to backtrack,
// so it holds no pointers.
type scanner struct {
	input string
	pos   int
	line  int
	col   int
}

func newScanner(input string) scanner {
	return scanner{input: input, line: 1, col: 1}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.input)
}

// peek returns the current byte, or 0 at EOF.
func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.input[s.pos]
}

// peekAt returns the byte n positions ahead, or 0 past EOF.
func (s *scanner) peekAt(n int) byte {
	if s.pos+n >= len(s.input) {
		return 0
	}
	return s.input[s.pos+n]
}

// advance consumes one byte, tracking line and column.
func (s *scanner) advance() {
	if s.eof() {
		return
	}
	if s.input[s.pos] == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.pos++
}

func (s *scanner) position() Position {
	return Position{Offset: s.pos, Line: s.line, Column: s.col}
}

// rest returns the unconsumed remainder of the input.
func (s *scanner) rest() string {
	return s.input[s.pos:]
}

// ---------------------------------------------------------------------------
// Lexical primitives
// ---------------------------------------------------------------------------

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '$' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// scanIdentifier consumes one or more identifier bytes. An empty match is
// a failure.
func (s *scanner) scanIdentifier() (string, error) {
	start := s.pos
	for !s.eof() && isIdentByte(s.peek()) {
		s.advance()
	}
	if s.pos == start {
		return "", fmt.Errorf("expected identifier")
	}
	return s.input[start:s.pos], nil
}

// scanStringLiteral consumes a double-quoted literal and returns the
// unescaped text. Only \" and \\ are recognized escapes; anything else
// after a backslash means the literal fails to close at that point.
func (s *scanner) scanStringLiteral() (string, error) {
	if s.peek() != '"' {
		return "", fmt.Errorf("expected string literal")
	}
	s.advance()

	var sb strings.Builder
	for !s.eof() {
		c := s.peek()
		switch c {
		case '"':
			s.advance()
			return sb.String(), nil
		case '\\':
			s.advance()
			switch s.peek() {
			case '"':
				sb.WriteByte('"')
				s.advance()
			case '\\':
				sb.WriteByte('\\')
				s.advance()
			default:
				return "", fmt.Errorf("unrecognized escape sequence in string literal")
			}
		default:
			sb.WriteByte(c)
			s.advance()
		}
	}
	return "", fmt.Errorf("unterminated string literal")
}

// scanUint consumes an unsigned decimal integer. A leading '-' is an
// explicit failure, not an unsigned overflow.
func (s *scanner) scanUint() (int64, error) {
	if s.peek() == '-' {
		return 0, fmt.Errorf("expected unsigned integer, found negative value")
	}
	start := s.pos
	for !s.eof() && isDigit(s.peek()) {
		s.advance()
	}
	if s.pos == start {
		return 0, fmt.Errorf("expected unsigned integer")
	}
	v, err := strconv.ParseInt(s.input[start:s.pos], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("integer literal out of range")
	}
	return v, nil
}

// scanInt consumes a signed decimal integer.
func (s *scanner) scanInt() (int64, error) {
	neg := false
	if s.peek() == '-' {
		neg = true
		s.advance()
	}
	v, err := s.scanUint()
	if err != nil {
		return 0, err
	}
	if neg {
		return -v, nil
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Comments and separators
// ---------------------------------------------------------------------------

// skipLineComment consumes '#' through end of line, exclusive of the
// newline itself.
func (s *scanner) skipLineComment() bool {
	if s.peek() != '#' {
		return false
	}
	for !s.eof() && s.peek() != '\n' {
		s.advance()
	}
	return true
}

// skipBlockComment consumes a '/*...*/' run. Block comments do not nest.
// If inline is true the comment must not span a line. Returns whether a
// comment was consumed; an unterminated comment does not match.
func (s *scanner) skipBlockComment(inline bool) bool {
	if s.peek() != '/' || s.peekAt(1) != '*' {
		return false
	}
	saved := *s
	s.advance()
	s.advance()
	for !s.eof() {
		if s.peek() == '*' && s.peekAt(1) == '/' {
			s.advance()
			s.advance()
			return true
		}
		if inline && s.peek() == '\n' {
			*s = saved
			return false
		}
		s.advance()
	}
	*s = saved
	return false
}

// sepInline consumes the separator run permitted between an opcode and its
// operands: spaces, tabs and block comments, never a newline. Returns
// whether at least one unit was consumed.
func (s *scanner) sepInline() bool {
	consumed := false
	for {
		switch {
		case s.peek() == ' ' || s.peek() == '\t':
			s.advance()
			consumed = true
		case s.skipBlockComment(true):
			consumed = true
		default:
			return consumed
		}
	}
}

// sepBetween consumes the separator run permitted between instructions:
// any whitespace including newlines, line comments and block comments.
// Returns whether at least one unit was consumed.
func (s *scanner) sepBetween() bool {
	consumed := false
	for {
		switch c := s.peek(); {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.advance()
			consumed = true
		case s.skipLineComment():
			consumed = true
		case s.skipBlockComment(false):
			consumed = true
		default:
			return consumed
		}
	}
}
