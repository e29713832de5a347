package ast

import (
	"fmt"
)

type (
	// MalformedNodeError is returned when a node is built without
	// a required child, name or a valid operator.
	MalformedNodeError struct {
		Node  string
		Field string
	}
)

func NewProgram(stmts ...Stmt) (*Program, error) {
	if err := checkStmts("Program", "Stmts", stmts); err != nil {
		return nil, err
	}

	return &Program{Stmts: stmts}, nil
}

func NewAssign(name string, x Expr) (*Assign, error) {
	if name == "" {
		return nil, malformed("Assign", "Name")
	}

	if isNil(x) {
		return nil, malformed("Assign", "Expr")
	}

	return &Assign{Name: name, Expr: x}, nil
}

func NewReturn(x Expr) (*Return, error) {
	if isNil(x) {
		return nil, malformed("Return", "Expr")
	}

	return &Return{Expr: x}, nil
}

func NewIf(cond Expr, then, els []Stmt) (*If, error) {
	if isNil(cond) {
		return nil, malformed("If", "Cond")
	}

	if err := checkStmts("If", "Then", then); err != nil {
		return nil, err
	}

	if err := checkStmts("If", "Else", els); err != nil {
		return nil, err
	}

	return &If{Cond: cond, Then: then, Else: els}, nil
}

func NewWhile(cond Expr, body []Stmt) (*While, error) {
	if isNil(cond) {
		return nil, malformed("While", "Cond")
	}

	if err := checkStmts("While", "Body", body); err != nil {
		return nil, err
	}

	return &While{Cond: cond, Body: body}, nil
}

func NewBinary(op BinaryOp, l, r Expr) (*Binary, error) {
	if !op.Valid() {
		return nil, malformed("Binary", "Op")
	}

	if isNil(l) {
		return nil, malformed("Binary", "L")
	}

	if isNil(r) {
		return nil, malformed("Binary", "R")
	}

	return &Binary{Op: op, L: l, R: r}, nil
}

func NewUnary(op UnaryOp, x Expr) (*Unary, error) {
	if !op.Valid() {
		return nil, malformed("Unary", "Op")
	}

	if isNil(x) {
		return nil, malformed("Unary", "X")
	}

	return &Unary{Op: op, X: x}, nil
}

func NewVar(name string) (*Var, error) {
	if name == "" {
		return nil, malformed("Var", "Name")
	}

	return &Var{Name: name}, nil
}

func NewNumber(v int64) *Number {
	return &Number{Value: v}
}

func checkStmts(node, field string, l []Stmt) error {
	for i, s := range l {
		if isNil(s) {
			return malformed(node, fmt.Sprintf("%s[%d]", field, i))
		}
	}

	return nil
}

// isNil catches typed nil pointers hidden in interfaces too.
func isNil(x Node) bool {
	switch x := x.(type) {
	case nil:
		return true
	case *Assign:
		return x == nil
	case *Return:
		return x == nil
	case *If:
		return x == nil
	case *While:
		return x == nil
	case *Binary:
		return x == nil
	case *Unary:
		return x == nil
	case *Var:
		return x == nil
	case *Number:
		return x == nil
	case *Program:
		return x == nil
	}

	return false
}

func malformed(node, field string) *MalformedNodeError {
	return &MalformedNodeError{Node: node, Field: field}
}

func (e *MalformedNodeError) Error() string {
	return fmt.Sprintf("malformed %s node: missing or invalid %s", e.Node, e.Field)
}
