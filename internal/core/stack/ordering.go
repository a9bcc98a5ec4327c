package stack

import (
	"errors"
	"fmt"
)

// =============================================================================
// Stack Ordering Functions
// =============================================================================

var (
	// ErrDuplicateStack is returned when two definitions share a name.
	ErrDuplicateStack = errors.New("duplicate stack definition")

	// ErrUnknownDependency is returned when a stack depends on an undeclared stack.
	ErrUnknownDependency = errors.New("unknown stack dependency")

	// ErrOutOfOrder is returned when a stack is declared before one of its predecessors.
	ErrOutOfOrder = errors.New("stack declared before its predecessor")
)

// ValidateOrder checks that a fixed deployment order honors every declared
// dependency. The order itself is never resolved or rearranged.
//
// Each definition is visited in order; its predecessors must already have been
// visited. Because predecessors must come strictly earlier, a dependency cycle
// shows up as an out-of-order dependency.
//
// Example:
//
//	defs := []Definition{
//	    {Name: "proxy"},
//	    {Name: "app", DependsOn: []string{"db"}},
//	    {Name: "db"},
//	}
//	err := ValidateOrder(defs)
//	// errors.Is(err, ErrOutOfOrder) == true
func ValidateOrder(defs []Definition) error {
	index := make(map[string]int, len(defs))
	for i, d := range defs {
		if _, dup := index[d.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateStack, d.Name)
		}
		index[d.Name] = i
	}

	for i, d := range defs {
		for _, dep := range d.DependsOn {
			j, ok := index[dep]
			if !ok {
				return fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, d.Name, dep)
			}
			if j >= i {
				return fmt.Errorf("%w: %s depends on %s", ErrOutOfOrder, d.Name, dep)
			}
		}
	}
	return nil
}
