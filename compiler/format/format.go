package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/toy/compiler/ast"
)

type (
	formatter struct {
		b []byte
		d int
	}
)

const (
	precOr = iota + 1
	precAnd
	precCmp
	precAdd
	precMul
	precUnary
)

// Format appends canonical source text of the program to b.
// Parsing the result gives back an equal tree.
func Format(ctx context.Context, b []byte, x *ast.Program) (_ []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "format")
	defer tr.Finish("err", &err)

	f := &formatter{b: b}

	err = x.Accept(f)
	if err != nil {
		return nil, err
	}

	return f.b, nil
}

func (f *formatter) VisitProgram(x *ast.Program) error {
	return f.stmts(x.Stmts)
}

func (f *formatter) VisitAssign(x *ast.Assign) error {
	f.app("%s = ", x.Name)

	err := x.Expr.Accept(f)
	if err != nil {
		return errors.Wrap(err, "assign %v", x.Name)
	}

	f.b = append(f.b, ";\n"...)

	return nil
}

func (f *formatter) VisitReturn(x *ast.Return) error {
	f.app("return ")

	err := x.Expr.Accept(f)
	if err != nil {
		return errors.Wrap(err, "return")
	}

	f.b = append(f.b, ";\n"...)

	return nil
}

func (f *formatter) VisitIf(x *ast.If) (err error) {
	f.app("if (")

	err = f.cond(x.Cond, x.Then)
	if err != nil {
		return errors.Wrap(err, "if")
	}

	for len(x.Else) != 0 {
		nested, ok := x.Else[0].(*ast.If)
		if ok && len(x.Else) == 1 {
			f.b = append(f.b, " else if ("...)

			err = f.cond(nested.Cond, nested.Then)
			if err != nil {
				return errors.Wrap(err, "else if")
			}

			x = nested

			continue
		}

		f.b = append(f.b, " else {\n"...)

		err = f.body(x.Else)
		if err != nil {
			return errors.Wrap(err, "else")
		}

		break
	}

	f.b = append(f.b, '\n')

	return nil
}

func (f *formatter) VisitWhile(x *ast.While) error {
	f.app("while (")

	err := f.cond(x.Cond, x.Body)
	if err != nil {
		return errors.Wrap(err, "while")
	}

	f.b = append(f.b, '\n')

	return nil
}

func (f *formatter) VisitBinary(x *ast.Binary) (err error) {
	if !x.Op.Valid() {
		return errors.New("invalid operator: %v", x.Op)
	}

	p := binaryPrec(x.Op)

	err = f.operand(x.L, p)
	if err != nil {
		return errors.Wrap(err, "left")
	}

	f.b = hfmt.Appendf(f.b, " %s ", x.Op.String())

	// operators are left associative: a right operand of the same level needs parens
	err = f.operand(x.R, p+1)
	if err != nil {
		return errors.Wrap(err, "right")
	}

	return nil
}

func (f *formatter) VisitUnary(x *ast.Unary) error {
	if !x.Op.Valid() {
		return errors.New("invalid operator: %v", x.Op)
	}

	f.b = append(f.b, x.Op.String()...)

	switch x.X.(type) {
	case *ast.Binary, *ast.Number:
		f.b = append(f.b, '(')

		err := x.X.Accept(f)
		if err != nil {
			return err
		}

		f.b = append(f.b, ')')

		return nil
	}

	return x.X.Accept(f)
}

func (f *formatter) VisitVar(x *ast.Var) error {
	f.b = append(f.b, x.Name...)

	return nil
}

func (f *formatter) VisitNumber(x *ast.Number) error {
	f.b = hfmt.Appendf(f.b, "%d", x.Value)

	return nil
}

func (f *formatter) cond(c ast.Expr, body []ast.Stmt) error {
	err := c.Accept(f)
	if err != nil {
		return errors.Wrap(err, "cond")
	}

	f.b = append(f.b, ") {\n"...)

	return f.body(body)
}

func (f *formatter) body(l []ast.Stmt) error {
	f.d++

	err := f.stmts(l)
	if err != nil {
		return err
	}

	f.d--

	f.app("}")

	return nil
}

func (f *formatter) stmts(l []ast.Stmt) error {
	for i, s := range l {
		err := s.Accept(f)
		if err != nil {
			return errors.Wrap(err, "stmt %d", i)
		}
	}

	return nil
}

func (f *formatter) operand(x ast.Expr, lowest int) error {
	b, ok := x.(*ast.Binary)
	if !ok || binaryPrec(b.Op) >= lowest {
		return x.Accept(f)
	}

	f.b = append(f.b, '(')

	err := x.Accept(f)
	if err != nil {
		return err
	}

	f.b = append(f.b, ')')

	return nil
}

func (f *formatter) app(format string, args ...any) {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"

	for d := f.d; d > 0; d -= len(tabs) {
		f.b = append(f.b, tabs[:min(d, len(tabs))]...)
	}

	f.b = hfmt.Appendf(f.b, format, args...)
}

func binaryPrec(op ast.BinaryOp) int {
	switch op {
	case ast.Or:
		return precOr
	case ast.And:
		return precAnd
	case ast.Add, ast.Sub:
		return precAdd
	case ast.Mul, ast.SDiv, ast.SRem:
		return precMul
	}

	if op.Comparison() {
		return precCmp
	}

	return precUnary
}
