package rpal

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalSource(t *testing.T, src string) (string, Value) {
	t.Helper()
	var out bytes.Buffer
	in := NewInterpreter(&out)
	result, err := in.Run(src)
	require.NoError(t, err)
	return out.String(), result
}

func evalError(t *testing.T, src string) *RuntimeError {
	t.Helper()
	in := NewInterpreter(io.Discard)
	_, err := in.Run(src)
	require.Error(t, err)
	var runtimeErr *RuntimeError
	require.ErrorAs(t, err, &runtimeErr)
	return runtimeErr
}

func TestEvalScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "nested let",
			src:  "let x = 5 in let y = 10 in Print(x + y)",
			want: "15\n",
		},
		{
			name: "recursive factorial",
			src:  "let rec factorial n = n eq 0 -> 1 | n * factorial (n - 1) in Print(factorial 5)",
			want: "120\n",
		},
		{
			name: "tuple order",
			src:  "let tuple = (1, 2, 3) in Print(Order tuple)",
			want: "3\n",
		},
		{
			name: "chained where",
			src:  "Print(sqr_sum) where sqr_sum = x**2 + y**2 where x = 3 where y = 4",
			want: "25\n",
		},
		{
			name: "simultaneous definitions",
			src:  "let x = 1 and y = 2 and z = 3 in Print((x, y, z))",
			want: "(1, 2, 3)\n",
		},
		{
			name: "function form",
			src:  "let Inc x = x + 1 in Print(Inc 5)",
			want: "6\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := evalSource(t, tt.src)
			require.Equal(t, tt.want, out)
		})
	}
}

func TestEvalExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"exponentiation right assoc", "Print(2 ** 3 ** 2)", "512\n"},
		{"integer division truncates", "Print(7 / 2)", "3\n"},
		{"unary minus", "let x = -3 in Print(x)", "-3\n"},
		{"not", "Print(not true)", "false\n"},
		{"and or", "Print(true & false or true)", "true\n"},
		{"string comparison", "Print('abc' ls 'abd')", "true\n"},
		{"string equality", "Print('a' eq 'a')", "true\n"},
		{"inequality", "Print(3 ne 4)", "true\n"},
		{"symbolic comparison", "Print(3 >= 3)", "true\n"},
		{"conditional true branch", "Print(2 gr 1 -> 'yes' | 'no')", "yes\n"},
		{"conditional false branch", "Print(1 gr 2 -> 'yes' | 'no')", "no\n"},
		{"aug onto nil", "Print(nil aug 1 aug 2)", "(1, 2)\n"},
		{"aug extends right", "Print((1, 2) aug 3)", "(1, 2, 3)\n"},
		{"tuple selection", "let t = (10, 20, 30) in Print(t 2)", "20\n"},
		{"infix at", "let Add x y = x + y in Print(2 @Add 3)", "5\n"},
		{"within", "let x = 2 within y = x * 10 in Print(y)", "20\n"},
		{"tuple pattern lambda", "Print((fn (x, y). x * y) (3, 4))", "12\n"},
		{"comma definition destructures", "let x, y = (1, 2) in Print(x + y)", "3\n"},
		{"empty parameter", "Print((fn (). 7) dummy)", "7\n"},
		{"single parameter takes whole tuple", "Print((fn t. Order t) (1, 2, 3))", "3\n"},
		{"nil prints as nil", "Print(nil)", "nil\n"},
		{"dummy prints as dummy", "Print(dummy)", "dummy\n"},
		{"nested tuples", "Print(((1, 2), 3))", "((1, 2), 3)\n"},
		{"two prints in order", "let x = Print(1) in Print(2)", "1\n2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := evalSource(t, tt.src)
			require.Equal(t, tt.want, out)
		})
	}
}

func TestEvalBuiltins(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"stem", "Print(Stem 'hello')", "h\n"},
		{"stern", "Print(Stern 'hello')", "ello\n"},
		{"stern of single char", "Print(Conc (Stern 'x') 'done')", "done\n"},
		{"conc", "Print(Conc 'ab' 'cd')", "abcd\n"},
		{"conc partially applied", "let g = Conc 'ab' in Print(g 'cd')", "abcd\n"},
		{"itos", "Print(Conc (ItoS 42) '!')", "42!\n"},
		{"order of nil", "Print(Order nil)", "0\n"},
		{"null of nil", "Print(Null nil)", "true\n"},
		{"null of tuple", "Print(Null (1, 2))", "false\n"},
		{"isinteger", "Print(Isinteger 3)", "true\n"},
		{"isinteger of string", "Print(Isinteger 'x')", "false\n"},
		{"istruthvalue", "Print(Istruthvalue false)", "true\n"},
		{"isstring", "Print(Isstring 'x')", "true\n"},
		{"istuple", "Print(Istuple (1, 2))", "true\n"},
		{"istuple of nil", "Print(Istuple nil)", "true\n"},
		{"isdummy", "Print(Isdummy dummy)", "true\n"},
		{"isfunction of builtin", "Print(Isfunction Print)", "true\n"},
		{"isfunction of lambda", "Print(Isfunction (fn x. x))", "true\n"},
		{"isfunction of integer", "Print(Isfunction 3)", "false\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := evalSource(t, tt.src)
			require.Equal(t, tt.want, out)
		})
	}
}

func TestPrintReturnsDummy(t *testing.T) {
	out, result := evalSource(t, "Print(1)")
	require.Equal(t, "1\n", out)
	require.Equal(t, VDummy, result.Kind)
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind RuntimeErrorKind
	}{
		{"unbound identifier", "Print(missing)", UnboundIdentifier},
		{"division by zero", "Print(1 / 0)", DivByZero},
		{"arithmetic over strings", "Print('a' + 'b')", TypeError},
		{"eq over mismatched kinds", "Print(1 eq 'a')", TypeError},
		{"comparison over mixed kinds", "Print(1 ls 'a')", TypeError},
		{"and over integers", "Print(1 & 2)", TypeError},
		{"not over integer", "Print(not 1)", TypeError},
		{"neg over string", "Print(-'a')", TypeError},
		{"aug onto integer", "Print(1 aug 2)", TypeError},
		{"condition not a truthvalue", "Print(1 -> 2 | 3)", TypeError},
		{"tuple index out of range", "Print((1, 2) 5)", IndexError},
		{"tuple index zero", "Print((1, 2) 0)", IndexError},
		{"selection from nil", "Print(nil 1)", IndexError},
		{"applying an integer", "Print(3 4)", TypeError},
		{"tuple pattern arity mismatch", "(fn (x, y). x) (1, 2, 3)", ArityError},
		{"tuple pattern on scalar", "(fn (x, y). x) 5", ArityError},
		{"conc of integer", "Print(Conc 1 'a')", BuiltinError},
		{"stem of tuple", "Print(Stem (1, 2))", BuiltinError},
		{"itos of string", "Print(ItoS 'x')", BuiltinError},
		{"order of integer", "Print(Order 5)", BuiltinError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runtimeErr := evalError(t, tt.src)
			assert.Equal(t, tt.kind, runtimeErr.Kind)
		})
	}
}

// Output printed before a failure is retained.
func TestOutputBeforeFailureRetained(t *testing.T) {
	var out bytes.Buffer
	in := NewInterpreter(&out)
	_, err := in.Run("let x = Print('first') in Print(1 / 0)")
	require.Error(t, err)
	require.Equal(t, "first\n", out.String())
}

// rec f applied observationally unrolls the recursive binding.
func TestRecursion(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "fibonacci",
			src: "let rec fib n = n ls 2 -> n | fib (n - 1) + fib (n - 2) " +
				"in Print(fib 10)",
			want: "55\n",
		},
		{
			name: "string length",
			src: "let rec Len s = s eq '' -> 0 | 1 + Len (Stern s) " +
				"in Print(Len 'hello')",
			want: "5\n",
		},
		{
			name: "recursion over tuples",
			src: "let rec Sum (t, n) = n eq 0 -> 0 | t n + Sum (t, n - 1) " +
				"in Print(Sum ((4, 5, 6), 3))",
			want: "15\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := evalSource(t, tt.src)
			require.Equal(t, tt.want, out)
		})
	}
}

// At termination the current environment is the primitive one and no
// markers remain on the stack.
func TestEnvironmentDiscipline(t *testing.T) {
	sources := []string{
		"let x = 5 in let y = 10 in x + y",
		"let rec factorial n = n eq 0 -> 1 | n * factorial (n - 1) in factorial 5",
		"(fn (x, y). x * y) (3, 4)",
	}
	for _, src := range sources {
		st := standardizeSource(t, src)
		prog, err := Compile(st)
		require.NoError(t, err)

		m := NewMachine(prog, io.Discard)
		result, err := m.Eval()
		require.NoError(t, err, "source %q", src)

		require.Len(t, m.envs, 1, "source %q", src)
		require.Equal(t, 0, m.env().ID, "source %q", src)
		require.NotEqual(t, VEnvMark, result.Kind, "source %q", src)
		require.Empty(t, m.control, "source %q", src)
	}
}

// The trace streams receive one line per rule application, control and
// value stacks in lockstep.
func TestTraceStreams(t *testing.T) {
	st := standardizeSource(t, "let x = 5 in x + 1")
	prog, err := Compile(st)
	require.NoError(t, err)

	var control, value bytes.Buffer
	m := NewMachine(prog, io.Discard)
	m.TraceControl = &control
	m.TraceValue = &value

	result, err := m.Eval()
	require.NoError(t, err)
	require.Equal(t, int64(6), result.Int)

	controlLines := strings.Split(control.String(), "\n")
	controlLines = controlLines[:len(controlLines)-1] // drop the trailing newline's split
	valueLines := strings.Split(value.String(), "\n")
	valueLines = valueLines[:len(valueLines)-1]
	require.NotEmpty(t, controlLines)
	require.Equal(t, len(controlLines), len(valueLines))
	// The final state: control empty, one value left.
	require.Equal(t, "", controlLines[len(controlLines)-1])
	require.Equal(t, "6", valueLines[len(valueLines)-1])
}
