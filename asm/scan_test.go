package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/aves/ir"
)

func TestScanIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
		rest  string
	}{
		{"foo", "foo", ""},
		{"foo bar", "foo", " bar"},
		{"$tmp_1:", "$tmp_1", ":"},
		{"a1b2c3", "a1b2c3", ""},
		{"_", "_", ""},
		{"123", "123", ""},
	}
	for _, tc := range tests {
		s := newScanner(tc.input)
		got, err := s.scanIdentifier()
		require.NoError(t, err, "scanIdentifier(%q)", tc.input)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.rest, s.rest())
	}

	s := newScanner(" foo")
	_, err := s.scanIdentifier()
	require.Error(t, err)

	s = newScanner("")
	_, err = s.scanIdentifier()
	require.Error(t, err)
}

func TestScanStringLiteral(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`""`, ""},
		{`"abc"`, "abc"},
		{`"a\"b"`, `a"b`},
		{`"a\\b"`, `a\b`},
		{`"\"\""`, `""`},
		{`"tab	and space"`, "tab\tand space"},
	}
	for _, tc := range tests {
		s := newScanner(tc.input)
		got, err := s.scanStringLiteral()
		require.NoError(t, err, "scanStringLiteral(%q)", tc.input)
		assert.Equal(t, tc.want, got)
	}

	for _, input := range []string{`"abc`, `"a\nb"`, `"a\`, `abc"`, `"\x"`} {
		s := newScanner(input)
		_, err := s.scanStringLiteral()
		require.Error(t, err, "scanStringLiteral(%q)", input)
	}
}

func TestScanIntegers(t *testing.T) {
	s := newScanner("12345 rest")
	v, err := s.scanUint()
	require.NoError(t, err)
	assert.Equal(t, int64(12345), v)
	assert.Equal(t, " rest", s.rest())

	s = newScanner("-42")
	_, err = s.scanUint()
	require.Error(t, err)

	s = newScanner("-42")
	sv, err := s.scanInt()
	require.NoError(t, err)
	assert.Equal(t, int64(-42), sv)

	s = newScanner("99999999999999999999")
	_, err = s.scanUint()
	require.Error(t, err)

	// 2^64 wraps int64 all the way back into positive range; it must still
	// fail, not quietly come out as 0.
	s = newScanner("18446744073709551616")
	_, err = s.scanUint()
	require.Error(t, err)

	s = newScanner("9223372036854775807")
	v, err = s.scanUint()
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), v)

	s = newScanner("9223372036854775808")
	_, err = s.scanUint()
	require.Error(t, err)
}

func TestSeparators(t *testing.T) {
	// Inline separator stops at a newline.
	s := newScanner("  \t/* c */ x")
	assert.True(t, s.sepInline())
	assert.Equal(t, "x", s.rest())

	s = newScanner("  \n  x")
	assert.True(t, s.sepInline())
	assert.Equal(t, "\n  x", s.rest())

	// Inline block comments must not span lines.
	s = newScanner("/* a\nb */x")
	assert.False(t, s.sepInline())
	assert.Equal(t, "/* a\nb */x", s.rest())

	// The inter-instruction separator takes newlines and both comment forms.
	s = newScanner("  # comment\n/* b\nlock */\n\t x")
	assert.True(t, s.sepBetween())
	assert.Equal(t, "x", s.rest())

	// An unterminated block comment does not match.
	s = newScanner("/* open")
	assert.False(t, s.sepBetween())
}

func TestScannerTracksPosition(t *testing.T) {
	s := newScanner("ab\ncd")
	for i := 0; i < 3; i++ {
		s.advance()
	}
	pos := s.position()
	assert.Equal(t, 2, pos.Line)
	assert.Equal(t, 1, pos.Column)
	assert.Equal(t, 3, pos.Offset)
}

// ---------------------------------------------------------------------------
// FuzzAssemble: assembly must never panic, and whatever assembles must
// survive a print/reassemble round trip.
// ---------------------------------------------------------------------------

func FuzzAssemble(f *testing.F) {
	seeds := []string{
		"",
		"NOP",
		"Iconst 20\nIconst 22\nAdd\nIntrinsic print_int\nIntrinsic exit",
		`SCONST "a\"b\\c"`,
		"RESERVE counter 4 (null)\nRESERVE msg 8 \"hi\"",
		"L0: JUMP L0",
		"JUMP main\nFUNCTION f 2\nARGLOCAL_READ 0\nRET\nmain:\nCALL f 1",
		"# comment\n/* block */ PUSH -1\nPOP 1",
		"ICONST /* inline */ 7",
		"ICONST 99999999999999999999",
		"\"unterminated",
		"ARGLOCAL_READ -1",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		prog, err := Assemble(input)
		if err != nil {
			return
		}
		reparsed, err := Assemble(ir.Print(prog))
		if err != nil {
			t.Fatalf("canonical output failed to reassemble: %v", err)
		}
		if len(reparsed) != len(prog) {
			t.Fatalf("round trip changed length: %d != %d", len(reparsed), len(prog))
		}
		for i := range prog {
			if reparsed[i] != prog[i] {
				t.Fatalf("instruction %d changed: %v != %v", i, reparsed[i], prog[i])
			}
		}
	})
}
