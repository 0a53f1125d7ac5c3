package exec

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/aves/vm"
)

// ---------------------------------------------------------------------------
// Result wire format
// ---------------------------------------------------------------------------

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("exec: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// StackItem is one entry of a program's final operand stack as carried over
// the engine's result channel.
type StackItem struct {
	Kind string `cbor:"kind"` // "int" or "string"
	Int  int32  `cbor:"int,omitempty"`
	Str  string `cbor:"str,omitempty"`
}

const (
	kindInt    = "int"
	kindString = "string"
)

// StackFromValues converts machine values (bottom to top) to wire form.
func StackFromValues(values []vm.Value) []StackItem {
	items := make([]StackItem, len(values))
	for i, v := range values {
		switch v.Kind {
		case vm.StringValue:
			items[i] = StackItem{Kind: kindString, Str: v.Str}
		default:
			items[i] = StackItem{Kind: kindInt, Int: v.Int}
		}
	}
	return items
}

// WriteStack serializes a final stack to the result channel.
func WriteStack(w io.Writer, items []StackItem) error {
	data, err := cborEncMode.Marshal(items)
	if err != nil {
		return fmt.Errorf("exec: marshal stack: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("exec: write stack: %w", err)
	}
	return nil
}

// ReadStack deserializes a final stack from the result channel.
func ReadStack(r io.Reader) ([]StackItem, error) {
	var items []StackItem
	if err := cbor.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("exec: unmarshal stack: %w", err)
	}
	return items, nil
}
