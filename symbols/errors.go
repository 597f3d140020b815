package symbols

import "fmt"

// IdentifierError is returned when a symbol name fails validation. Nothing
// is stored when it occurs.
type IdentifierError struct {
	Kind string
	Name string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("invalid %s identifier: %s", e.Kind, e.Name)
}

// ConstantError is returned when a locked constant would be redefined.
type ConstantError struct {
	Name string
}

func (e *ConstantError) Error() string {
	return "constant cannot be modified: " + e.Name
}
