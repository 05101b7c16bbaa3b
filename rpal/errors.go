package rpal

import (
	"fmt"

	"github.com/pkg/errors"
)

// LexError reports a malformed token or an unterminated string, with the
// source position at or before which the scanner gave up.
type LexError struct {
	Line, Column int
	Message      string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexical error at %d:%d: %s", e.Line, e.Column, e.Message)
}

func lexErrorf(line, column int, format string, args ...interface{}) error {
	return &LexError{Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

// ParseError reports a token mismatch or grammar violation.
type ParseError struct {
	Token    Token
	Expected string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: unexpected %s, expected %s",
		e.Token.Line, e.Token.Column, e.Token, e.Expected)
}

func parseErrorf(tok Token, expected string) error {
	return &ParseError{Token: tok, Expected: expected}
}

// StandardizeError marks a structurally invalid AST reaching the
// standardizer. This should be unreachable when the parser is correct; it
// exists to turn a broken invariant into a diagnosable error instead of a
// panic deep in tree surgery.
type StandardizeError struct {
	Node    *Node
	Message string
}

func (e *StandardizeError) Error() string {
	return fmt.Sprintf("internal error: standardizer invariant violated at %q node: %s",
		e.Node.Kind, e.Message)
}

func standardizeErrorf(n *Node, format string, args ...interface{}) error {
	return &StandardizeError{Node: n, Message: fmt.Sprintf(format, args...)}
}

// RuntimeErrorKind enumerates the failure modes the CSE machine can raise.
type RuntimeErrorKind int

const (
	UnboundIdentifier RuntimeErrorKind = iota
	TypeError
	ArityError
	IndexError
	DivByZero
	BuiltinError
)

func (k RuntimeErrorKind) String() string {
	switch k {
	case UnboundIdentifier:
		return "unbound identifier"
	case TypeError:
		return "type error"
	case ArityError:
		return "arity error"
	case IndexError:
		return "index error"
	case DivByZero:
		return "division by zero"
	case BuiltinError:
		return "builtin error"
	}
	return "runtime error"
}

// RuntimeError is raised by the CSE machine. Trace holds a short rule-level
// breadcrumb (e.g. the rule name and the control item being reduced) when
// one is available.
type RuntimeError struct {
	Kind    RuntimeErrorKind
	Message string
	Trace   string
}

func (e *RuntimeError) Error() string {
	if e.Trace == "" {
		return fmt.Sprintf("runtime error (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("runtime error (%s): %s [%s]", e.Kind, e.Message, e.Trace)
}

func runtimeErrorf(kind RuntimeErrorKind, trace, format string, args ...interface{}) error {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...), Trace: trace}
}

// wrapf attaches additional context to a lower-layer failure without
// discarding it, the way a failed write to Print's output sink reads as
// "Print: <inner error>" rather than losing the inner error's detail.
func wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
