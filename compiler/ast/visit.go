package ast

type (
	// Visitor has one handler per node variant.
	// A new variant adds a method here, so every visitor
	// has to handle it before the code compiles again.
	Visitor interface {
		VisitProgram(x *Program) error

		VisitAssign(x *Assign) error
		VisitReturn(x *Return) error
		VisitIf(x *If) error
		VisitWhile(x *While) error

		VisitBinary(x *Binary) error
		VisitUnary(x *Unary) error
		VisitVar(x *Var) error
		VisitNumber(x *Number) error
	}

	checker struct{}
)

func (x *Program) Accept(v Visitor) error { return v.VisitProgram(x) }
func (x *Assign) Accept(v Visitor) error  { return v.VisitAssign(x) }
func (x *Return) Accept(v Visitor) error  { return v.VisitReturn(x) }
func (x *If) Accept(v Visitor) error      { return v.VisitIf(x) }
func (x *While) Accept(v Visitor) error   { return v.VisitWhile(x) }
func (x *Binary) Accept(v Visitor) error  { return v.VisitBinary(x) }
func (x *Unary) Accept(v Visitor) error   { return v.VisitUnary(x) }
func (x *Var) Accept(v Visitor) error     { return v.VisitVar(x) }
func (x *Number) Accept(v Visitor) error  { return v.VisitNumber(x) }

// Check walks the tree and returns the first *MalformedNodeError found.
// Trees made by the New* builders always pass.
// Operators are not checked here, lowering rejects unknown ones.
func Check(x Node) error {
	if isNil(x) {
		return malformed("Node", "root")
	}

	return x.Accept(checker{})
}

func (c checker) VisitProgram(x *Program) error {
	return c.stmts("Program", "Stmts", x.Stmts)
}

func (c checker) VisitAssign(x *Assign) error {
	if x.Name == "" {
		return malformed("Assign", "Name")
	}

	return c.expr("Assign", "Expr", x.Expr)
}

func (c checker) VisitReturn(x *Return) error {
	return c.expr("Return", "Expr", x.Expr)
}

func (c checker) VisitIf(x *If) error {
	if err := c.expr("If", "Cond", x.Cond); err != nil {
		return err
	}

	if err := c.stmts("If", "Then", x.Then); err != nil {
		return err
	}

	return c.stmts("If", "Else", x.Else)
}

func (c checker) VisitWhile(x *While) error {
	if err := c.expr("While", "Cond", x.Cond); err != nil {
		return err
	}

	return c.stmts("While", "Body", x.Body)
}

func (c checker) VisitBinary(x *Binary) error {
	if err := c.expr("Binary", "L", x.L); err != nil {
		return err
	}

	return c.expr("Binary", "R", x.R)
}

func (c checker) VisitUnary(x *Unary) error {
	return c.expr("Unary", "X", x.X)
}

func (c checker) VisitVar(x *Var) error {
	if x.Name == "" {
		return malformed("Var", "Name")
	}

	return nil
}

func (c checker) VisitNumber(x *Number) error { return nil }

func (c checker) expr(node, field string, x Expr) error {
	if isNil(x) {
		return malformed(node, field)
	}

	return x.Accept(c)
}

func (c checker) stmts(node, field string, l []Stmt) error {
	if err := checkStmts(node, field, l); err != nil {
		return err
	}

	for _, s := range l {
		if err := s.Accept(c); err != nil {
			return err
		}
	}

	return nil
}
