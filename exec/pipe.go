package exec

import (
	"bytes"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
)

// ---------------------------------------------------------------------------
// PipeEngine: out-of-process execution over byte pipes
// ---------------------------------------------------------------------------

// PipeEngine runs programs in a separate engine process. Bytecode is
// written to the child's stdin, program output is drained from its stdout,
// and the final stack arrives CBOR-encoded on a dedicated result pipe
// passed to the child as fd 3.
type PipeEngine struct {
	// Command is the engine argv, e.g. []string{"aves", "-engine"}.
	Command []string
}

// Execute spawns the engine and shuttles the streams. Both pipes have
// bounded kernel buffers, so the bytecode write runs in its own goroutine
// while this goroutine drains stdout to end of stream; doing the two in
// sequence deadlocks once the program's output exceeds the pipe buffer.
func (p *PipeEngine) Execute(bc io.Reader) (*Result, error) {
	if len(p.Command) == 0 {
		return nil, &TransportError{Err: fmt.Errorf("no engine command configured")}
	}

	resultR, resultW, err := os.Pipe()
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("result pipe: %w", err)}
	}
	defer resultR.Close()

	cmd := osexec.Command(p.Command[0], p.Command[1:]...)
	cmd.ExtraFiles = []*os.File{resultW}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		resultW.Close()
		return nil, &TransportError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		resultW.Close()
		return nil, &TransportError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		resultW.Close()
		return nil, &TransportError{Err: fmt.Errorf("spawn engine: %w", err)}
	}
	// The child holds its own copy of the write end now.
	resultW.Close()

	writeErr := make(chan error, 1)
	go func() {
		_, err := io.Copy(stdin, bc)
		if closeErr := stdin.Close(); err == nil {
			err = closeErr
		}
		writeErr <- err
	}()

	// The engine writes the result before its stdout ever closes, so the
	// result pipe must be drained concurrently with stdout: a final stack
	// larger than the kernel pipe buffer would otherwise wedge the child in
	// its result write while we sit waiting for stdout's EOF.
	type stackRead struct {
		items []StackItem
		err   error
	}
	stackCh := make(chan stackRead, 1)
	go func() {
		items, err := ReadStack(resultR)
		stackCh <- stackRead{items: items, err: err}
	}()

	output, readErr := io.ReadAll(stdout)
	result := <-stackCh
	stack, stackErr := result.items, result.err

	waitErr := cmd.Wait()

	if waitErr != nil {
		// A nonzero exit is the program crashing inside the engine, not
		// broken plumbing.
		if _, isExit := waitErr.(*osexec.ExitError); isExit {
			return nil, &ProgramError{Err: fmt.Errorf("%s", engineFailure(&stderr, waitErr))}
		}
		return nil, &TransportError{Err: fmt.Errorf("join engine: %w", waitErr)}
	}
	if err := <-writeErr; err != nil {
		return nil, &TransportError{Err: fmt.Errorf("write bytecode: %w", err)}
	}
	if readErr != nil {
		return nil, &TransportError{Err: fmt.Errorf("read output: %w", readErr)}
	}
	if stackErr != nil {
		return nil, &TransportError{Err: fmt.Errorf("result channel: %w", stackErr)}
	}

	return &Result{Output: string(output), Stack: stack}, nil
}

func engineFailure(stderr *bytes.Buffer, waitErr error) string {
	msg := bytes.TrimSpace(stderr.Bytes())
	if len(msg) > 0 {
		return string(msg)
	}
	return waitErr.Error()
}
