package rpal

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Interpreter wires the pipeline together: scanner, parser, standardizer
// and CSE machine. The zero value is not useful; use NewInterpreter.
type Interpreter struct {
	// Out is the sink Print writes to.
	Out io.Writer
	// Log, when set, records rule applications at debug level.
	Log *slog.Logger
	// TraceDir, when set, receives the control_stack and value_stack
	// dump files, one machine state per line.
	TraceDir string
}

// NewInterpreter returns an interpreter printing to out.
func NewInterpreter(out io.Writer) *Interpreter {
	return &Interpreter{Out: out}
}

// parse runs the scanner and parser over src.
func (in *Interpreter) parse(src string) (*Node, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

// standardized runs the pipeline up to and including the standardizer.
func (in *Interpreter) standardized(src string) (*Node, error) {
	ast, err := in.parse(src)
	if err != nil {
		return nil, err
	}
	return Standardize(ast)
}

// Run evaluates src, sending Print output to in.Out, and returns the
// program's final value. Output already written to the sink before a
// failure is retained.
func (in *Interpreter) Run(src string) (Value, error) {
	st, err := in.standardized(src)
	if err != nil {
		return Value{}, err
	}
	prog, err := Compile(st)
	if err != nil {
		return Value{}, err
	}

	m := NewMachine(prog, in.Out)
	m.Log = in.Log

	if in.TraceDir != "" {
		if err := os.MkdirAll(in.TraceDir, 0755); err != nil {
			return Value{}, wrapf(err, "create trace directory")
		}
		control, err := os.Create(filepath.Join(in.TraceDir, "control_stack"))
		if err != nil {
			return Value{}, wrapf(err, "create control_stack trace")
		}
		defer control.Close()
		value, err := os.Create(filepath.Join(in.TraceDir, "value_stack"))
		if err != nil {
			return Value{}, wrapf(err, "create value_stack trace")
		}
		defer value.Close()
		m.TraceControl = control
		m.TraceValue = value
	}

	return m.Eval()
}

// WriteAST parses src and writes its abstract syntax tree to w.
func (in *Interpreter) WriteAST(w io.Writer, src string) error {
	ast, err := in.parse(src)
	if err != nil {
		return err
	}
	return WriteTree(w, ast)
}

// WriteST parses and standardizes src and writes the standardized tree
// to w.
func (in *Interpreter) WriteST(w io.Writer, src string) error {
	st, err := in.standardized(src)
	if err != nil {
		return err
	}
	return WriteTree(w, st)
}
