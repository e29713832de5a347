package ast

type (
	// Node is any tree node. The set of variants is closed:
	// only this package can implement it.
	Node interface {
		Accept(v Visitor) error

		node()
	}

	Stmt interface {
		Node

		stmt()
	}

	Expr interface {
		Node

		expr()
	}

	Base struct {
		Pos int
		End int
	}

	Program struct {
		Base `tlog:",embed"`

		Stmts []Stmt
	}

	Assign struct {
		Base `tlog:",embed"`

		Name string
		Expr Expr
	}

	Return struct {
		Base `tlog:",embed"`

		Expr Expr
	}

	If struct {
		Base `tlog:",embed"`

		Cond Expr
		Then []Stmt
		Else []Stmt
	}

	While struct {
		Base `tlog:",embed"`

		Cond Expr
		Body []Stmt
	}

	Binary struct {
		Base `tlog:",embed"`

		Op BinaryOp
		L  Expr
		R  Expr
	}

	Unary struct {
		Base `tlog:",embed"`

		Op UnaryOp
		X  Expr
	}

	Var struct {
		Base `tlog:",embed"`

		Name string
	}

	Number struct {
		Base `tlog:",embed"`

		Value int64
	}

	BinaryOp int
	UnaryOp  int
)

const (
	Add BinaryOp = iota
	Sub
	Mul
	SDiv
	SRem
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
	And
	Or

	binaryOpEnd
)

const (
	Neg UnaryOp = iota
	Not

	unaryOpEnd
)

var binaryOpText = [...]string{
	Add:  "+",
	Sub:  "-",
	Mul:  "*",
	SDiv: "/",
	SRem: "%",
	Eq:   "==",
	Ne:   "!=",
	Lt:   "<",
	Gt:   ">",
	Le:   "<=",
	Ge:   ">=",
	And:  "&&",
	Or:   "||",
}

var unaryOpText = [...]string{
	Neg: "-",
	Not: "!",
}

func (op BinaryOp) Valid() bool { return op >= 0 && op < binaryOpEnd }
func (op UnaryOp) Valid() bool  { return op >= 0 && op < unaryOpEnd }

func (op BinaryOp) String() string {
	if !op.Valid() {
		return "BinaryOp(?)"
	}

	return binaryOpText[op]
}

func (op UnaryOp) String() string {
	if !op.Valid() {
		return "UnaryOp(?)"
	}

	return unaryOpText[op]
}

// Comparison reports whether op yields a truth value rather than an integer.
func (op BinaryOp) Comparison() bool {
	return op >= Eq && op <= Ge
}

func (*Program) node() {}
func (*Assign) node()  {}
func (*Return) node()  {}
func (*If) node()      {}
func (*While) node()   {}
func (*Binary) node()  {}
func (*Unary) node()   {}
func (*Var) node()     {}
func (*Number) node()  {}

func (*Assign) stmt() {}
func (*Return) stmt() {}
func (*If) stmt()     {}
func (*While) stmt()  {}

func (*Binary) expr() {}
func (*Unary) expr()  {}
func (*Var) expr()    {}
func (*Number) expr() {}
