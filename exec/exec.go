// Package exec orchestrates program execution: it feeds encoded bytecode to
// an execution engine and collects the program's text output together with
// its structured final operand stack.
package exec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/aves/bytecode"
	"github.com/chazu/aves/ir"
	"github.com/chazu/aves/vm"
)

var log = commonlog.GetLogger("aves.exec")

// ---------------------------------------------------------------------------
// Results and error classes
// ---------------------------------------------------------------------------

// Result is a completed run: everything the program wrote to its output
// channel plus the final operand stack, bottom to top.
type Result struct {
	Output string
	Stack  []StackItem
}

// ProgramError reports that the program itself failed: a decode error or a
// fatal runtime error inside the engine.
type ProgramError struct {
	Err error
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("program failed: %s", e.Err)
}

func (e *ProgramError) Unwrap() error {
	return e.Err
}

// TransportError reports that communication with the engine failed: a
// broken pipe, a failed spawn or join, or a corrupt result channel. It is
// distinct from ProgramError so a crashed program is distinguishable from
// broken plumbing.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("engine transport failed: %s", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ---------------------------------------------------------------------------
// Engines
// ---------------------------------------------------------------------------

// Engine runs one encoded program. Implementations consume the bytecode
// stream to its end and return the completed result.
type Engine interface {
	Execute(bytecode io.Reader) (*Result, error)
}

// InProcessEngine decodes and runs the program natively, in this process.
// It implements the same contract as the pipe engine without crossing a
// process boundary.
type InProcessEngine struct {
	Options vm.Options
}

// Execute decodes the stream and runs the machine, capturing output.
func (e *InProcessEngine) Execute(bc io.Reader) (*Result, error) {
	prog, err := bytecode.NewDecoder(bufio.NewReader(bc)).Decode()
	if err != nil {
		return nil, &ProgramError{Err: err}
	}

	var output bytes.Buffer
	opts := e.Options
	opts.Output = &output

	m, err := vm.New(prog, opts)
	if err != nil {
		return nil, &ProgramError{Err: err}
	}
	stack, err := m.Run()
	if err != nil {
		return nil, &ProgramError{Err: err}
	}
	return &Result{Output: output.String(), Stack: StackFromValues(stack)}, nil
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Runner encodes programs and submits them to an engine. There is no
// cancellation path: a submitted program runs to completion, to EXIT, or to
// a fatal error. Retries are the caller's business.
type Runner struct {
	engine Engine
}

// NewRunner creates a runner backed by the given engine.
func NewRunner(engine Engine) *Runner {
	return &Runner{engine: engine}
}

// Run encodes prog and executes it. Encoding happens before the engine is
// invoked, so an encode failure never starts a run.
func (r *Runner) Run(prog ir.Program) (*Result, error) {
	var encoded bytes.Buffer
	if err := bytecode.NewEncoder(&encoded).Encode(prog); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	id := uuid.New()
	log.Infof("run %s: %d instructions, %d bytecode bytes", id, len(prog), encoded.Len())

	result, err := r.engine.Execute(&encoded)
	if err != nil {
		log.Errorf("run %s: %s", id, err)
		return nil, err
	}
	log.Infof("run %s: completed, %d stack values", id, len(result.Stack))
	return result, nil
}

// ---------------------------------------------------------------------------
// Engine side of the protocol
// ---------------------------------------------------------------------------

// ServeEngine is the receiving half of the pipe protocol: it decodes
// bytecode from in, runs it with program output going to out, and writes
// the CBOR-encoded final stack to result. cmd/aves uses it for its engine
// subprocess mode.
func ServeEngine(in io.Reader, out io.Writer, result io.Writer, opts vm.Options) error {
	prog, err := bytecode.NewDecoder(bufio.NewReader(in)).Decode()
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	bw := bufio.NewWriter(out)
	opts.Output = bw

	m, err := vm.New(prog, opts)
	if err != nil {
		return err
	}
	stack, err := m.Run()
	if flushErr := bw.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		return err
	}
	return WriteStack(result, StackFromValues(stack))
}
