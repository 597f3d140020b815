package table

import "fmt"

// BoundsError is returned when a relative displacement does not fit its
// signed operand width.
type BoundsError struct {
	Value int64
	Bits  int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("branch out of bounds: %d", e.Value)
}

type SyntaxError struct {
	Line   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: '%s'", e.Reason, e.Line)
}
