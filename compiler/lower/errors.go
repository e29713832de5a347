package lower

import (
	"fmt"
)

type (
	// UnboundVariableError is a read of a name no enclosing scope declares.
	UnboundVariableError struct {
		Name string
		Pos  int
	}

	// InvalidOperatorError means an operator outside the known set
	// reached lowering. Trees made by ast builders never cause it.
	InvalidOperatorError struct {
		Node string
		Op   int
	}
)

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("unbound variable: %s", e.Name)
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("invalid %s operator: %d", e.Node, e.Op)
}
