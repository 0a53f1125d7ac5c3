// Package vm is the native Aves execution engine: a single-threaded,
// single-stack machine over the IR. It honors the same behavioral contract
// as an external engine process, so exec can use either interchangeably.
package vm

import "fmt"

// ---------------------------------------------------------------------------
// Value: tagged operand-stack values
// ---------------------------------------------------------------------------

// ValueKind discriminates the two operand kinds the machine knows.
type ValueKind int

const (
	IntValue ValueKind = iota
	StringValue
)

func (k ValueKind) String() string {
	switch k {
	case IntValue:
		return "int"
	case StringValue:
		return "string"
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Value is a single operand-stack entry. Integer values carry the wire
// width: all machine arithmetic is 32-bit.
type Value struct {
	Kind ValueKind
	Int  int32
	Str  string
}

// IntVal makes an integer value.
func IntVal(v int32) Value {
	return Value{Kind: IntValue, Int: v}
}

// StringVal makes a string value.
func StringVal(s string) Value {
	return Value{Kind: StringValue, Str: s}
}

func (v Value) String() string {
	switch v.Kind {
	case IntValue:
		return fmt.Sprintf("%d", v.Int)
	case StringValue:
		return fmt.Sprintf("%q", v.Str)
	}
	return fmt.Sprintf("<bad value kind %d>", int(v.Kind))
}
