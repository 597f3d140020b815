package assembler

import (
	"fmt"
	"io/fs"

	"github.com/pkg/errors"

	"github.gatech.edu/ECEInnovation/bass/expression"
	"github.gatech.edu/ECEInnovation/bass/symbols"
	"github.gatech.edu/ECEInnovation/bass/table"
)

type ErrorKind int

const (
	Failure ErrorKind = iota
	InvalidIdentifier
	UnresolvedSymbol
	MalformedExpression
	OutOfBounds
	Resource
	Structural
	PromotedWarning
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidIdentifier:
		return "invalid identifier"
	case UnresolvedSymbol:
		return "unresolved symbol"
	case MalformedExpression:
		return "malformed expression"
	case OutOfBounds:
		return "out of bounds"
	case Resource:
		return "resource"
	case Structural:
		return "structural"
	case PromotedWarning:
		return "promoted warning"
	}
	return "failure"
}

// AssemblyError is an assembly failure. Location and Stack are filled in when the
// error is reported against the active instruction.
type AssemblyError struct {
	Kind     ErrorKind
	Message  string
	Location string
	Stack    []string
	cause    error
	reported bool
}

func (e *AssemblyError) Error() string {
	if e.Location == "" {
		return e.Message
	}
	return e.Location + ": " + e.Message
}

func (e *AssemblyError) Unwrap() error {
	return e.cause
}

type assemblyErrors struct{}

var Errors assemblyErrors

func (assemblyErrors) New(kind ErrorKind, format string, args ...interface{}) *AssemblyError {
	return &AssemblyError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (assemblyErrors) UnrecognizedVariable(name string) *AssemblyError {
	return &AssemblyError{Kind: UnresolvedSymbol, Message: "unrecognized variable: " + name}
}

func (assemblyErrors) UnrecognizedArray(name string) *AssemblyError {
	return &AssemblyError{Kind: UnresolvedSymbol, Message: "unrecognized array: " + name}
}

func (assemblyErrors) UnrecognizedExpression(name string) *AssemblyError {
	return &AssemblyError{Kind: UnresolvedSymbol, Message: "unrecognized expression: " + name}
}

func (assemblyErrors) UnrecognizedAssignment(name string) *AssemblyError {
	return &AssemblyError{Kind: UnresolvedSymbol, Message: "unrecognized variable assignment: " + name}
}

func (assemblyErrors) RelativeLabel() *AssemblyError {
	return &AssemblyError{Kind: UnresolvedSymbol, Message: "relative label not declared"}
}

func (assemblyErrors) MalformedExpression(source string, err error) *AssemblyError {
	var syntaxErr *expression.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &AssemblyError{Kind: MalformedExpression, Message: fmt.Sprintf("malformed expression: %s [%s]", source, syntaxErr.Reason), cause: err}
	}
	return &AssemblyError{Kind: MalformedExpression, Message: "malformed expression: " + source, cause: err}
}

func (assemblyErrors) InvalidLiteral(literal string) *AssemblyError {
	return &AssemblyError{Kind: MalformedExpression, Message: "invalid number literal: " + literal}
}

func (assemblyErrors) SubscriptOutOfBounds(index int64, size int) *AssemblyError {
	return &AssemblyError{Kind: OutOfBounds, Message: fmt.Sprintf("array subscript out of bounds: %d >= %d", index, size)}
}

func (assemblyErrors) FileNotFound(name string) *AssemblyError {
	return &AssemblyError{Kind: Resource, Message: "file not found: " + name}
}

func (assemblyErrors) OutsideSourceDirectory(name string) *AssemblyError {
	return &AssemblyError{Kind: Resource, Message: "file outside the source directory: " + name}
}

func (assemblyErrors) UnknownArchitecture(name string) *AssemblyError {
	return &AssemblyError{Kind: Resource, Message: "unknown architecture: " + name}
}

func (assemblyErrors) MismatchedQuotes() *AssemblyError {
	return &AssemblyError{Kind: Structural, Message: "mismatched quotes in expression"}
}

func (assemblyErrors) MismatchedParentheses() *AssemblyError {
	return &AssemblyError{Kind: Structural, Message: "mismatched parentheses in expression"}
}

func (assemblyErrors) UnsupportedParameterType(name string) *AssemblyError {
	return &AssemblyError{Kind: Structural, Message: "unsupported parameter type: " + name}
}

func (assemblyErrors) UnrecognizedDirective(statement string) *AssemblyError {
	return &AssemblyError{Kind: Structural, Message: "unrecognized directive: " + statement}
}

func (assemblyErrors) Overwrite(address, base int64) *AssemblyError {
	return &AssemblyError{Kind: Structural, Message: fmt.Sprintf("overwrite detected at address 0x%x [0x%x]", address, base+address)}
}

func (assemblyErrors) AssertionFailed() *AssemblyError {
	return &AssemblyError{Kind: Failure, Message: "assertion failed"}
}

// classify converts errors from the symbol, table and expression packages
// and from file access into an *AssemblyError of the matching kind.
func classify(err error) *AssemblyError {
	var assemblyErr *AssemblyError
	if errors.As(err, &assemblyErr) {
		return assemblyErr
	}

	var identifierErr *symbols.IdentifierError
	var constantErr *symbols.ConstantError
	var boundsErr *table.BoundsError
	var tableErr *table.SyntaxError
	var syntaxErr *expression.SyntaxError
	var pathErr *fs.PathError

	kind := Failure
	switch {
	case errors.As(err, &identifierErr):
		kind = InvalidIdentifier
	case errors.As(err, &constantErr), errors.As(err, &tableErr):
		kind = Structural
	case errors.As(err, &boundsErr):
		kind = OutOfBounds
	case errors.As(err, &syntaxErr):
		return Errors.MalformedExpression(syntaxErr.Expression, err)
	case errors.As(err, &pathErr):
		kind = Resource
	}
	return &AssemblyError{Kind: kind, Message: err.Error(), cause: err}
}

// IsKind reports whether err is an assembly error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var assemblyErr *AssemblyError
	return errors.As(err, &assemblyErr) && assemblyErr.Kind == kind
}
