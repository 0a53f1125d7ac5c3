// Aves CLI - assembles, encodes, prints and runs Aves IR programs.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/aves/asm"
	"github.com/chazu/aves/bytecode"
	"github.com/chazu/aves/config"
	"github.com/chazu/aves/exec"
	"github.com/chazu/aves/ir"
	"github.com/chazu/aves/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	textPath := flag.String("text", "", "Assembly text input path ('-' for stdin)")
	bytecodePath := flag.String("bytecode", "", "Bytecode input path ('-' for stdin)")
	outputBytecodePath := flag.String("output-bytecode", "", "Write encoded bytecode to this path ('-' for stdout)")
	printMode := flag.Bool("print", false, "Print the program in canonical text instead of interpreting it")
	engineMode := flag.Bool("engine", false, "Run as an execution engine: bytecode on stdin, output on stdout, result stack on fd 3")
	verbose := flag.Bool("v", false, "Verbose output")
	noConfig := flag.Bool("no-config", false, "Skip loading aves.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aves [options]\n\n")
		fmt.Fprintf(os.Stderr, "Assembles, encodes and interprets Aves IR programs.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  aves -text prog.avs                    # Assemble and run\n")
		fmt.Fprintf(os.Stderr, "  aves -text prog.avs -output-bytecode prog.avb\n")
		fmt.Fprintf(os.Stderr, "  aves -bytecode prog.avb                # Run encoded program\n")
		fmt.Fprintf(os.Stderr, "  aves -bytecode prog.avb -print         # Human-readable listing\n")
		fmt.Fprintf(os.Stderr, "  cat prog.avs | aves -text -           # Pipeline composition\n")
	}
	flag.Parse()

	cfg := config.Default()
	if !*noConfig {
		loaded, err := config.FindAndLoad(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			cfg = loaded
		}
	}
	if cfg.Machine.Trace {
		*verbose = true
	}

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	machineOpts := vm.Options{
		MaxStack: cfg.Machine.MaxStack,
		MaxSteps: cfg.Machine.MaxSteps,
	}

	if *engineMode {
		resultPipe := os.NewFile(3, "result")
		if resultPipe == nil {
			fatal(fmt.Errorf("engine mode requires a result pipe on fd 3"))
		}
		if err := exec.ServeEngine(os.Stdin, os.Stdout, resultPipe, machineOpts); err != nil {
			fatal(err)
		}
		return
	}

	prog, err := loadProgram(*textPath, *bytecodePath)
	if err != nil {
		fatal(err)
	}

	if *outputBytecodePath != "" {
		if err := writeBytecode(prog, *outputBytecodePath); err != nil {
			fatal(err)
		}
	}

	if *printMode {
		fmt.Print(ir.Print(prog))
		return
	}
	if *textPath != "" && *outputBytecodePath != "" {
		// Assemble-and-dump without an explicit run request.
		return
	}

	var engine exec.Engine
	if len(cfg.Engine.Command) > 0 {
		engine = &exec.PipeEngine{Command: cfg.Engine.Command}
	} else {
		engine = &exec.InProcessEngine{Options: machineOpts}
	}

	result, err := exec.NewRunner(engine).Run(prog)
	if err != nil {
		fatal(err)
	}
	fmt.Print(result.Output)
	if *verbose {
		fmt.Fprintf(os.Stderr, "Final stack (%d values):\n", len(result.Stack))
		for _, item := range result.Stack {
			if item.Kind == "string" {
				fmt.Fprintf(os.Stderr, "  %q\n", item.Str)
			} else {
				fmt.Fprintf(os.Stderr, "  %d\n", item.Int)
			}
		}
	}
}

// loadProgram reads the program from exactly one of the two input forms.
func loadProgram(textPath, bytecodePath string) (ir.Program, error) {
	switch {
	case textPath != "" && bytecodePath != "":
		return nil, fmt.Errorf("cannot specify both -text and -bytecode")
	case textPath != "":
		data, err := readInput(textPath)
		if err != nil {
			return nil, err
		}
		return asm.Assemble(string(data))
	case bytecodePath != "":
		data, err := readInput(bytecodePath)
		if err != nil {
			return nil, err
		}
		return bytecode.NewDecoder(bytes.NewReader(data)).Decode()
	default:
		return nil, fmt.Errorf("one of -text or -bytecode is required")
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return data, nil
}

func writeBytecode(prog ir.Program, path string) error {
	var w io.Writer
	if path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("cannot create %s: %w", path, err)
		}
		defer f.Close()
		bw := bufio.NewWriter(f)
		defer bw.Flush()
		w = bw
	}
	return bytecode.NewEncoder(w).Encode(prog)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
